package engine

import "github.com/warehousehq/ordersync/internal/model"

// orderSet is an ordered collection of orders, unique by id. Snapshot
// loads append in listing order; live events append reclassified orders
// at the end.
type orderSet struct {
	orders []model.Order
}

func (s *orderSet) len() int {
	return len(s.orders)
}

func (s *orderSet) get(id string) (model.Order, bool) {
	for _, o := range s.orders {
		if o.ID == id {
			return o, true
		}
	}
	return model.Order{}, false
}

func (s *orderSet) contains(id string) bool {
	_, ok := s.get(id)
	return ok
}

// remove deletes the order with the given id, preserving the order of the
// remainder, and returns the removed order.
func (s *orderSet) remove(id string) (model.Order, bool) {
	for i, o := range s.orders {
		if o.ID == id {
			s.orders = append(s.orders[:i], s.orders[i+1:]...)
			return o, true
		}
	}
	return model.Order{}, false
}

// upsert replaces the order in place when present, otherwise appends.
func (s *orderSet) upsert(o model.Order) {
	for i := range s.orders {
		if s.orders[i].ID == o.ID {
			s.orders[i] = o
			return
		}
	}
	s.orders = append(s.orders, o)
}

func (s *orderSet) clear() {
	s.orders = nil
}

// list returns a copy; callers may hold it across lock boundaries.
func (s *orderSet) list() []model.Order {
	out := make([]model.Order, len(s.orders))
	copy(out, s.orders)
	return out
}
