package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dortega/citaflow/services/appointment-service/internal/identity"
	"github.com/dortega/citaflow/services/appointment-service/internal/storage"
)

type fakeProfiles struct {
	staff     []storage.Profile
	customers []storage.Profile
}

func (f fakeProfiles) ListStaff(context.Context) ([]storage.Profile, error)     { return f.staff, nil }
func (f fakeProfiles) ListCustomers(context.Context) ([]storage.Profile, error) { return f.customers, nil }

func TestEmployees(t *testing.T) {
	profiles := fakeProfiles{staff: []storage.Profile{
		{ID: "emp-1", FullName: "Dr. Vega", Specialty: "tax", Role: "staff"},
		{ID: "admin-1", FullName: "A. Ruiz", Role: "admin"},
	}}
	h := NewDirectoryHandler(fakeResolver{caller: identity.Caller{ID: "cust-1", Role: identity.RoleCustomer}}, profiles, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/employees", nil)
	req.Header.Set("Authorization", "Bearer test-token")
	rec := httptest.NewRecorder()
	h.Employees(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var items []employeeItem
	if err := json.Unmarshal(rec.Body.Bytes(), &items); err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 || items[0].FullName != "Dr. Vega" {
		t.Fatalf("unexpected items: %+v", items)
	}
}

func TestEmployeesRequiresAuth(t *testing.T) {
	h := NewDirectoryHandler(fakeResolver{err: identity.ErrUnauthenticated}, fakeProfiles{}, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/employees", nil)
	rec := httptest.NewRecorder()
	h.Employees(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestClientsStaffOnly(t *testing.T) {
	profiles := fakeProfiles{customers: []storage.Profile{
		{ID: "cust-1", Email: "ana@example.com", FullName: "Ana", Role: "customer"},
	}}

	h := NewDirectoryHandler(fakeResolver{caller: identity.Caller{ID: "cust-1", Role: identity.RoleCustomer}}, profiles, testLogger())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/clients", nil)
	req.Header.Set("Authorization", "Bearer test-token")
	rec := httptest.NewRecorder()
	h.Clients(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("customer listing clients: status = %d, want 403", rec.Code)
	}

	h = NewDirectoryHandler(fakeResolver{caller: identity.Caller{ID: "emp-1", Role: identity.RoleStaff}}, profiles, testLogger())
	rec = httptest.NewRecorder()
	h.Clients(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("staff listing clients: status = %d, want 200", rec.Code)
	}
	var items []clientItem
	if err := json.Unmarshal(rec.Body.Bytes(), &items); err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || items[0].Email != "ana@example.com" {
		t.Fatalf("unexpected items: %+v", items)
	}
}
