package storage

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

// Profile is the stored identity record keyed by the auth subject id.
type Profile struct {
	ID        string
	Email     string
	FullName  string
	Specialty string
	Role      string
}

type ProfileRepository struct {
	db Querier
}

func NewProfileRepository(db Querier) *ProfileRepository {
	return &ProfileRepository{db: db}
}

const RoleByIDSQL = `SELECT role FROM profiles WHERE id = $1`

// RoleByID returns the stored role for an identity id, or "" when no profile
// exists. Callers treat the empty string as the customer default.
func (r *ProfileRepository) RoleByID(ctx context.Context, id string) (string, error) {
	var role string
	err := r.db.QueryRow(ctx, RoleByIDSQL, id).Scan(&role)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return role, nil
}

const ListStaffSQL = `
	SELECT id, COALESCE(email, ''), COALESCE(full_name, ''), COALESCE(specialty, ''), role
	FROM profiles
	WHERE role IN ('staff', 'admin')
	ORDER BY full_name ASC
`

func (r *ProfileRepository) ListStaff(ctx context.Context) ([]Profile, error) {
	return r.list(ctx, ListStaffSQL)
}

const ListCustomersSQL = `
	SELECT id, COALESCE(email, ''), COALESCE(full_name, ''), COALESCE(specialty, ''), role
	FROM profiles
	WHERE role = 'customer'
	ORDER BY full_name ASC
`

func (r *ProfileRepository) ListCustomers(ctx context.Context) ([]Profile, error) {
	return r.list(ctx, ListCustomersSQL)
}

func (r *ProfileRepository) list(ctx context.Context, sql string) ([]Profile, error) {
	rows, err := r.db.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []Profile
	for rows.Next() {
		var p Profile
		if err := rows.Scan(&p.ID, &p.Email, &p.FullName, &p.Specialty, &p.Role); err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return profiles, nil
}
