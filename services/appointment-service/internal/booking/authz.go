package booking

import (
	"github.com/dortega/citaflow/services/appointment-service/internal/identity"
	"github.com/dortega/citaflow/services/appointment-service/internal/model"
)

// CanDelete is the pure delete-permission rule, decided from role and
// ownership alone:
//
//	admin    - any appointment
//	staff    - appointments where they are the employee
//	customer - their own appointments, and only while still pending
func CanDelete(caller identity.Caller, a model.Appointment) bool {
	switch caller.Role {
	case identity.RoleAdmin:
		return true
	case identity.RoleStaff:
		return a.EmployeeID == caller.ID
	case identity.RoleCustomer:
		return a.UserID == caller.ID && a.Status == model.StatusPending
	default:
		return false
	}
}
