package model

// Role is a worker's function on the warehouse floor.
type Role string

const (
	RoleManager        Role = "manager"
	RoleReceivingClerk Role = "receiving_clerk"
	RolePicker         Role = "picker"
	RolePacker         Role = "packer"
	RoleDriver         Role = "driver"
)

// roleStatuses maps each role to the statuses it is permitted to act on.
var roleStatuses = map[Role][]OrderStatus{
	RoleManager:        {StatusPending},
	RoleReceivingClerk: {StatusProcessing},
	RolePicker:         {StatusPicking},
	RolePacker:         {StatusPacking},
	RoleDriver:         {StatusReadyForShipping, StatusShipped},
}

// successor maps (role, status) to the status the role advances an order to.
var successor = map[Role]map[OrderStatus]OrderStatus{
	RoleManager:        {StatusPending: StatusProcessing},
	RoleReceivingClerk: {StatusProcessing: StatusPicking},
	RolePicker:         {StatusPicking: StatusPacking},
	RolePacker:         {StatusPacking: StatusReadyForShipping},
	RoleDriver: {
		StatusReadyForShipping: StatusShipped,
		StatusShipped:          StatusDelivered,
	},
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	_, ok := roleStatuses[r]
	return ok
}

// RoleStatuses returns the statuses a role may act on, in sequence order.
// Returns nil for unknown roles.
func RoleStatuses(r Role) []OrderStatus {
	return roleStatuses[r]
}

// ActionableBy reports whether the role may act on an order in status s.
func ActionableBy(r Role, s OrderStatus) bool {
	for _, st := range roleStatuses[r] {
		if st == s {
			return true
		}
	}
	return false
}

// NextStatus returns the status a role advances an order to from s.
// ok is false when the role cannot act on s.
func NextStatus(r Role, s OrderStatus) (next OrderStatus, ok bool) {
	next, ok = successor[r][s]
	return next, ok
}

// RoleMaxPos returns the highest sequence position among the role's
// actionable statuses. An order strictly past this position is history
// from the role's perspective (the "past all" rule: roles with multiple
// actionable statuses, like driver, keep an order current until it has
// cleared every one of them).
func RoleMaxPos(r Role) int {
	max := -1
	for _, st := range roleStatuses[r] {
		if p := SequencePos(st); p > max {
			max = p
		}
	}
	return max
}

// EntryStatus returns the first actionable status for a role. The manager
// role treats its entry status as available regardless of assignment.
func EntryStatus(r Role) OrderStatus {
	sts := roleStatuses[r]
	if len(sts) == 0 {
		return ""
	}
	return sts[0]
}
