package engine

import "github.com/warehousehq/ordersync/internal/model"

// Membership is the queue an order belongs to for a (role, worker) pair.
// Membership is a pure projection of (order, role, workerID): it is
// recomputed on every snapshot load and every accepted event, never stored.
type Membership int

const (
	Irrelevant Membership = iota
	Available
	Working
	History
)

func (m Membership) String() string {
	switch m {
	case Available:
		return "available"
	case Working:
		return "working"
	case History:
		return "history"
	default:
		return "irrelevant"
	}
}

// Classify places an order into exactly one queue for the given role and
// worker.
//
// Rules, in precedence order:
//   - cancelled orders are history for every role
//   - the manager's entry status is available regardless of assignment
//   - an actionable status is working when assigned to this worker,
//     available when unassigned, and irrelevant when held by someone else
//   - a status strictly past all of the role's actionable statuses is
//     history; anything earlier is irrelevant (not yet this role's work)
func Classify(o model.Order, role model.Role, workerID string) Membership {
	if o.Status == model.StatusCancelled {
		return History
	}

	pos := model.SequencePos(o.Status)
	if pos < 0 {
		return Irrelevant
	}

	if role == model.RoleManager && o.Status == model.EntryStatus(role) {
		return Available
	}

	if model.ActionableBy(role, o.Status) {
		switch o.AssignedWorker {
		case "":
			return Available
		case workerID:
			return Working
		default:
			return Irrelevant
		}
	}

	if pos > model.RoleMaxPos(role) {
		return History
	}
	return Irrelevant
}
