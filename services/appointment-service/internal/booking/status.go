package booking

import (
	"github.com/dortega/citaflow/services/appointment-service/internal/identity"
	"github.com/dortega/citaflow/services/appointment-service/internal/model"
)

// Side identifies which side of an appointment a caller owns.
type Side int

const (
	SideNone Side = iota
	SideCustomer
	SideStaff
)

// OwnerSide resolves the caller's side by id match. Staff-side ownership
// requires being the appointment's employee: holding the staff or admin role
// alone does not grant review rights over someone else's appointment.
func OwnerSide(a model.Appointment, caller identity.Caller) Side {
	switch {
	case caller.Role.IsStaff() && a.EmployeeID == caller.ID:
		return SideStaff
	case a.UserID == caller.ID:
		return SideCustomer
	default:
		return SideNone
	}
}

// allowedTransitions is the review table: the owning staff member reviews
// customer-initiated requests, and the owning customer accepts or declines
// staff-initiated proposals. Either side may move a pending appointment to a
// terminal status; terminal statuses have no outgoing transitions.
var allowedTransitions = map[Side]map[model.Status][]model.Status{
	SideStaff: {
		model.StatusPending: {model.StatusApproved, model.StatusRejected},
	},
	SideCustomer: {
		model.StatusPending: {model.StatusApproved, model.StatusRejected},
	},
}

func CanTransition(side Side, from, to model.Status) bool {
	for _, next := range allowedTransitions[side][from] {
		if next == to {
			return true
		}
	}
	return false
}
