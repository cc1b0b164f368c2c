package storage_test

import (
	"context"
	"regexp"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dortega/citaflow/services/appointment-service/internal/storage"
)

var profileColumns = []string{"id", "email", "full_name", "specialty", "role"}

func newProfileRepo(t *testing.T) (*storage.ProfileRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return storage.NewProfileRepository(mock), mock
}

func TestRoleByID(t *testing.T) {
	repo, mock := newProfileRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta(storage.RoleByIDSQL)).
		WithArgs("emp-1").
		WillReturnRows(pgxmock.NewRows([]string{"role"}).AddRow("staff"))

	role, err := repo.RoleByID(context.Background(), "emp-1")
	require.NoError(t, err)
	assert.Equal(t, "staff", role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoleByIDMissingProfile(t *testing.T) {
	repo, mock := newProfileRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta(storage.RoleByIDSQL)).
		WithArgs("ghost").
		WillReturnError(pgx.ErrNoRows)

	role, err := repo.RoleByID(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Empty(t, role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListStaff(t *testing.T) {
	repo, mock := newProfileRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta(storage.ListStaffSQL)).
		WillReturnRows(pgxmock.NewRows(profileColumns).
			AddRow("admin-1", "ruiz@example.com", "A. Ruiz", "", "admin").
			AddRow("emp-1", "vega@example.com", "Dr. Vega", "tax", "staff"))

	staff, err := repo.ListStaff(context.Background())
	require.NoError(t, err)
	require.Len(t, staff, 2)
	assert.Equal(t, "Dr. Vega", staff[1].FullName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListCustomers(t *testing.T) {
	repo, mock := newProfileRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta(storage.ListCustomersSQL)).
		WillReturnRows(pgxmock.NewRows(profileColumns).
			AddRow("cust-1", "ana@example.com", "Ana", "", "customer"))

	customers, err := repo.ListCustomers(context.Background())
	require.NoError(t, err)
	require.Len(t, customers, 1)
	assert.Equal(t, "ana@example.com", customers[0].Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}
