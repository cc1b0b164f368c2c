package model

import "time"

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Terminal reports whether s is a valid review outcome.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// DefaultDurationMinutes applies when a booking request omits duracion_consulta.
const DefaultDurationMinutes = 60

// Appointment is a consultation slot owned jointly by its customer (UserID)
// and its staff member (EmployeeID). Field names follow the citas wire
// contract; FechaConsulta is the slot start and EndTime the exclusive end.
type Appointment struct {
	ID            int64
	UserID        string
	EmployeeID    string
	Empresa       string
	TipoConsulta  string
	Descripcion   string
	FechaConsulta time.Time
	EndTime       time.Time
	Modalidad     string
	Direccion     string
	Status        Status
	CreatedAt     time.Time

	// Joined from the employee's profile on reads; not persisted on citas.
	EmployeeName      string
	EmployeeSpecialty string
}
