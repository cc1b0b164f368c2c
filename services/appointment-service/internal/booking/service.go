package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/dortega/citaflow/services/appointment-service/internal/identity"
	"github.com/dortega/citaflow/services/appointment-service/internal/model"
	"github.com/dortega/citaflow/services/appointment-service/internal/storage"
)

// Repository is the persistence boundary for appointments. Implementations
// return storage-level errors; the service translates them with
// storage.IsConflict / storage.IsNotFound.
type Repository interface {
	Create(ctx context.Context, a *model.Appointment) error
	GetByID(ctx context.Context, id int64) (model.Appointment, error)
	ListByEmployee(ctx context.Context, employeeID string) ([]model.Appointment, error)
	ListApprovedByEmployee(ctx context.Context, employeeID string) ([]model.Appointment, error)
	ListByCustomer(ctx context.Context, userID string) ([]model.Appointment, error)
	UpdateStatus(ctx context.Context, id int64, status model.Status) (model.Appointment, error)
	Delete(ctx context.Context, id int64) error
	DeletePendingByCustomer(ctx context.Context, id int64, userID string) error
	CountApprovedOverlapping(ctx context.Context, employeeID string, start, end time.Time, excludeID int64) (int64, error)
}

// Service implements the booking rules: who may create, see, review and
// delete which appointments. It holds no state between requests; every
// decision is a function of the caller identity and the stored rows.
type Service struct {
	repo      Repository
	conflicts *ConflictChecker
}

func NewService(repo Repository) *Service {
	return &Service{
		repo:      repo,
		conflicts: NewConflictChecker(repo),
	}
}

type CreateInput struct {
	Empresa         string
	TipoConsulta    string
	Descripcion     string
	FechaConsulta   time.Time
	DurationMinutes int
	Modalidad       string
	Direccion       string
	EmployeeID      string
	UserID          string
}

// Create books an appointment for the caller. Staff and admins book on
// behalf of a client (user_id required, employee side fixed to the caller,
// approved immediately); customers book with a chosen specialist
// (employee_id required, pending until reviewed).
func (s *Service) Create(ctx context.Context, caller identity.Caller, in CreateInput) (model.Appointment, error) {
	if in.FechaConsulta.IsZero() {
		return model.Appointment{}, validationError("fecha_consulta is required")
	}
	minutes := in.DurationMinutes
	if minutes == 0 {
		minutes = model.DefaultDurationMinutes
	}
	if minutes < 0 {
		return model.Appointment{}, validationError("duracion_consulta must be positive")
	}

	a := model.Appointment{
		Empresa:       in.Empresa,
		TipoConsulta:  in.TipoConsulta,
		Descripcion:   in.Descripcion,
		FechaConsulta: in.FechaConsulta,
		EndTime:       in.FechaConsulta.Add(time.Duration(minutes) * time.Minute),
		Modalidad:     in.Modalidad,
		Direccion:     in.Direccion,
	}

	// ParseRole collapses anything unrecognized to customer, so the default
	// branch is the customer rule, never a silent no-op.
	switch caller.Role {
	case identity.RoleStaff, identity.RoleAdmin:
		if in.UserID == "" {
			return model.Appointment{}, validationError("user_id is required when booking on behalf of a client")
		}
		a.UserID = in.UserID
		a.EmployeeID = caller.ID
		a.Status = model.StatusApproved
	default:
		if in.EmployeeID == "" {
			return model.Appointment{}, validationError("employee_id is required")
		}
		a.UserID = caller.ID
		a.EmployeeID = in.EmployeeID
		a.Status = model.StatusPending
	}

	conflict, err := s.conflicts.HasConflict(ctx, a.EmployeeID, a.FechaConsulta, a.EndTime, 0)
	if err != nil {
		return model.Appointment{}, fmt.Errorf("conflict check: %w", err)
	}
	if conflict {
		return model.Appointment{}, ErrSlotTaken
	}

	if err := s.repo.Create(ctx, &a); err != nil {
		// The insert races with concurrent bookings past the advisory check;
		// the exclusion constraint reports the loser here.
		if storage.IsConflict(err) {
			return model.Appointment{}, ErrSlotTaken
		}
		return model.Appointment{}, fmt.Errorf("create appointment: %w", err)
	}
	return a, nil
}

// List returns the appointments the caller may see, ordered by start time.
// Staff see their own schedule. Customers see their own appointments, or,
// when filtering by employee, only that specialist's approved slots so
// availability renders without leaking other clients' pending requests.
func (s *Service) List(ctx context.Context, caller identity.Caller, filterEmployeeID string) ([]model.Appointment, error) {
	switch caller.Role {
	case identity.RoleStaff, identity.RoleAdmin:
		return s.repo.ListByEmployee(ctx, caller.ID)
	default:
		if filterEmployeeID != "" {
			return s.repo.ListApprovedByEmployee(ctx, filterEmployeeID)
		}
		return s.repo.ListByCustomer(ctx, caller.ID)
	}
}

// UpdateStatus applies a review transition. A transition into approved
// re-runs the conflict check so a late approval cannot create the very
// double-booking the create path prevents.
func (s *Service) UpdateStatus(ctx context.Context, caller identity.Caller, id int64, status model.Status) (model.Appointment, error) {
	if !status.Terminal() {
		return model.Appointment{}, validationError("status must be approved or rejected")
	}

	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if storage.IsNotFound(err) {
			return model.Appointment{}, ErrNotFound
		}
		return model.Appointment{}, fmt.Errorf("load appointment %d: %w", id, err)
	}

	side := OwnerSide(a, caller)
	if side == SideNone {
		return model.Appointment{}, fmt.Errorf("%w: you can only update your own appointments", ErrForbidden)
	}
	if !CanTransition(side, a.Status, status) {
		return model.Appointment{}, validationError(fmt.Sprintf("cannot move a %s appointment to %s", a.Status, status))
	}

	if status == model.StatusApproved {
		conflict, err := s.conflicts.HasConflict(ctx, a.EmployeeID, a.FechaConsulta, a.EndTime, a.ID)
		if err != nil {
			return model.Appointment{}, fmt.Errorf("conflict check: %w", err)
		}
		if conflict {
			return model.Appointment{}, ErrSlotTaken
		}
	}

	updated, err := s.repo.UpdateStatus(ctx, id, status)
	if err != nil {
		switch {
		case storage.IsConflict(err):
			return model.Appointment{}, ErrSlotTaken
		case storage.IsNotFound(err):
			// The guarded UPDATE matched no pending row: a concurrent
			// review (or delete) won the race after our read.
			return model.Appointment{}, validationError("appointment is no longer pending")
		}
		return model.Appointment{}, fmt.Errorf("update appointment %d: %w", id, err)
	}
	return updated, nil
}

// Delete removes an appointment the caller may delete. A delete that matches
// no row reports success; a row the caller is not allowed to remove (for a
// customer, anything past pending) is ErrForbidden.
func (s *Service) Delete(ctx context.Context, caller identity.Caller, id int64) error {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if storage.IsNotFound(err) {
			return nil
		}
		return fmt.Errorf("load appointment %d: %w", id, err)
	}

	if !CanDelete(caller, a) {
		return fmt.Errorf("%w: you can only delete your own pending appointments", ErrForbidden)
	}

	// The customer predicate (own row, still pending) is enforced in the
	// query itself; the read above only discriminates 403 from the
	// idempotent no-row case.
	if caller.Role == identity.RoleCustomer {
		err = s.repo.DeletePendingByCustomer(ctx, id, caller.ID)
	} else {
		err = s.repo.Delete(ctx, id)
	}
	if err != nil {
		if storage.IsNotFound(err) {
			return nil
		}
		return fmt.Errorf("delete appointment %d: %w", id, err)
	}
	return nil
}
