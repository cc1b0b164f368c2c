package storage

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/dortega/citaflow/services/appointment-service/internal/model"
	"github.com/dortega/citaflow/services/appointment-service/internal/outbox"
)

// AppointmentRepository persists citas rows. Mutations run in a transaction
// together with their outbox event, so a failure leaves neither behind.
type AppointmentRepository struct {
	db     Querier
	outbox *outbox.Repository
}

func NewAppointmentRepository(db Querier, ob *outbox.Repository) *AppointmentRepository {
	return &AppointmentRepository{db: db, outbox: ob}
}

const InsertCitaSQL = `
	INSERT INTO citas
		(user_id, employee_id, empresa, tipo_consulta, descripcion, fecha_consulta, end_time, modalidad, direccion, status)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	RETURNING id, created_at
`

func (r *AppointmentRepository) Create(ctx context.Context, a *model.Appointment) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx, InsertCitaSQL,
		a.UserID, a.EmployeeID, a.Empresa, a.TipoConsulta, a.Descripcion,
		a.FechaConsulta, a.EndTime, a.Modalidad, a.Direccion, a.Status,
	).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return err
	}

	if err := r.insertEvent(ctx, tx, outbox.EventCitaCreated, *a); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

const citaColumns = `c.id, c.user_id, c.employee_id, c.empresa, c.tipo_consulta, c.descripcion,
		c.fecha_consulta, c.end_time, c.modalidad, c.direccion, c.status, c.created_at`

const GetCitaSQL = `
	SELECT ` + citaColumns + `, COALESCE(p.full_name, ''), COALESCE(p.specialty, '')
	FROM citas c
	LEFT JOIN profiles p ON p.id = c.employee_id
	WHERE c.id = $1
`

func (r *AppointmentRepository) GetByID(ctx context.Context, id int64) (model.Appointment, error) {
	var a model.Appointment
	err := r.db.QueryRow(ctx, GetCitaSQL, id).Scan(
		&a.ID, &a.UserID, &a.EmployeeID, &a.Empresa, &a.TipoConsulta, &a.Descripcion,
		&a.FechaConsulta, &a.EndTime, &a.Modalidad, &a.Direccion, &a.Status, &a.CreatedAt,
		&a.EmployeeName, &a.EmployeeSpecialty,
	)
	if err != nil {
		return model.Appointment{}, err
	}
	return a, nil
}

const ListByEmployeeSQL = `
	SELECT ` + citaColumns + `, COALESCE(p.full_name, ''), COALESCE(p.specialty, '')
	FROM citas c
	LEFT JOIN profiles p ON p.id = c.employee_id
	WHERE c.employee_id = $1
	ORDER BY c.fecha_consulta ASC
`

func (r *AppointmentRepository) ListByEmployee(ctx context.Context, employeeID string) ([]model.Appointment, error) {
	return r.list(ctx, ListByEmployeeSQL, employeeID)
}

const ListApprovedByEmployeeSQL = `
	SELECT ` + citaColumns + `, COALESCE(p.full_name, ''), COALESCE(p.specialty, '')
	FROM citas c
	LEFT JOIN profiles p ON p.id = c.employee_id
	WHERE c.employee_id = $1 AND c.status = 'approved'
	ORDER BY c.fecha_consulta ASC
`

func (r *AppointmentRepository) ListApprovedByEmployee(ctx context.Context, employeeID string) ([]model.Appointment, error) {
	return r.list(ctx, ListApprovedByEmployeeSQL, employeeID)
}

const ListByCustomerSQL = `
	SELECT ` + citaColumns + `, COALESCE(p.full_name, ''), COALESCE(p.specialty, '')
	FROM citas c
	LEFT JOIN profiles p ON p.id = c.employee_id
	WHERE c.user_id = $1
	ORDER BY c.fecha_consulta ASC
`

func (r *AppointmentRepository) ListByCustomer(ctx context.Context, userID string) ([]model.Appointment, error) {
	return r.list(ctx, ListByCustomerSQL, userID)
}

func (r *AppointmentRepository) list(ctx context.Context, sql string, arg any) ([]model.Appointment, error) {
	rows, err := r.db.Query(ctx, sql, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var appts []model.Appointment
	for rows.Next() {
		var a model.Appointment
		if err := rows.Scan(
			&a.ID, &a.UserID, &a.EmployeeID, &a.Empresa, &a.TipoConsulta, &a.Descripcion,
			&a.FechaConsulta, &a.EndTime, &a.Modalidad, &a.Direccion, &a.Status, &a.CreatedAt,
			&a.EmployeeName, &a.EmployeeSpecialty,
		); err != nil {
			return nil, err
		}
		appts = append(appts, a)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return appts, nil
}

const UpdateCitaStatusSQL = `
	UPDATE citas
	SET status = $2
	WHERE id = $1 AND status = 'pending'
	RETURNING id, user_id, employee_id, empresa, tipo_consulta, descripcion,
		fecha_consulta, end_time, modalidad, direccion, status, created_at
`

func (r *AppointmentRepository) UpdateStatus(ctx context.Context, id int64, status model.Status) (model.Appointment, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return model.Appointment{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var a model.Appointment
	err = tx.QueryRow(ctx, UpdateCitaStatusSQL, id, status).Scan(
		&a.ID, &a.UserID, &a.EmployeeID, &a.Empresa, &a.TipoConsulta, &a.Descripcion,
		&a.FechaConsulta, &a.EndTime, &a.Modalidad, &a.Direccion, &a.Status, &a.CreatedAt,
	)
	if err != nil {
		return model.Appointment{}, err
	}

	if err := r.insertEvent(ctx, tx, outbox.EventCitaStatusChanged, a); err != nil {
		return model.Appointment{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return model.Appointment{}, err
	}
	return a, nil
}

const DeleteCitaSQL = `DELETE FROM citas WHERE id = $1`

func (r *AppointmentRepository) Delete(ctx context.Context, id int64) error {
	return r.delete(ctx, id, DeleteCitaSQL, id)
}

const DeletePendingByCustomerSQL = `DELETE FROM citas WHERE id = $1 AND user_id = $2 AND status = 'pending'`

// DeletePendingByCustomer removes a cita only while it is still pending and
// owned by userID. The predicate lives in the query so a review landing
// between the caller's read and the delete cannot be lost.
func (r *AppointmentRepository) DeletePendingByCustomer(ctx context.Context, id int64, userID string) error {
	return r.delete(ctx, id, DeletePendingByCustomerSQL, id, userID)
}

func (r *AppointmentRepository) delete(ctx context.Context, id int64, sql string, args ...any) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}

	payload, err := json.Marshal(map[string]any{"cita_id": id})
	if err != nil {
		return err
	}
	if err := r.outbox.Insert(ctx, tx, outbox.Event{
		AggregateType: "cita",
		AggregateID:   strconv.FormatInt(id, 10),
		EventType:     outbox.EventCitaDeleted,
		Payload:       payload,
	}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

const CountApprovedOverlappingSQL = `
	SELECT COUNT(*)
	FROM citas
	WHERE employee_id = $1
		AND status = 'approved'
		AND fecha_consulta < $3
		AND end_time > $2
		AND ($4::bigint = 0 OR id <> $4)
`

// CountApprovedOverlapping counts approved citas for employeeID intersecting
// the half-open interval [start, end), ignoring excludeID when non-zero.
func (r *AppointmentRepository) CountApprovedOverlapping(ctx context.Context, employeeID string, start, end time.Time, excludeID int64) (int64, error) {
	var n int64
	err := r.db.QueryRow(ctx, CountApprovedOverlappingSQL, employeeID, start, end, excludeID).Scan(&n)
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (r *AppointmentRepository) insertEvent(ctx context.Context, tx pgx.Tx, eventType string, a model.Appointment) error {
	payload, err := json.Marshal(map[string]any{
		"cita_id":        a.ID,
		"user_id":        a.UserID,
		"employee_id":    a.EmployeeID,
		"fecha_consulta": a.FechaConsulta.UTC().Format(time.RFC3339),
		"end_time":       a.EndTime.UTC().Format(time.RFC3339),
		"status":         a.Status,
	})
	if err != nil {
		return err
	}
	return r.outbox.Insert(ctx, tx, outbox.Event{
		AggregateType: "cita",
		AggregateID:   strconv.FormatInt(a.ID, 10),
		EventType:     eventType,
		Payload:       payload,
	})
}
