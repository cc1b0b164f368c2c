package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dortega/citaflow/services/appointment-service/internal/booking"
	"github.com/dortega/citaflow/services/appointment-service/internal/identity"
	"github.com/dortega/citaflow/services/appointment-service/internal/model"
)

type fakeResolver struct {
	caller identity.Caller
	err    error
}

func (f fakeResolver) Resolve(context.Context, string) (identity.Caller, error) {
	return f.caller, f.err
}

type fakeService struct {
	createFn func(identity.Caller, booking.CreateInput) (model.Appointment, error)
	listFn   func(identity.Caller, string) ([]model.Appointment, error)
	updateFn func(identity.Caller, int64, model.Status) (model.Appointment, error)
	deleteFn func(identity.Caller, int64) error
}

func (f fakeService) Create(_ context.Context, c identity.Caller, in booking.CreateInput) (model.Appointment, error) {
	return f.createFn(c, in)
}

func (f fakeService) List(_ context.Context, c identity.Caller, filter string) ([]model.Appointment, error) {
	return f.listFn(c, filter)
}

func (f fakeService) UpdateStatus(_ context.Context, c identity.Caller, id int64, status model.Status) (model.Appointment, error) {
	return f.updateFn(c, id, status)
}

func (f fakeService) Delete(_ context.Context, c identity.Caller, id int64) error {
	return f.deleteFn(c, id)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func doRequest(h *CitasHandler, method, target, body string) *httptest.ResponseRecorder {
	var rdr *strings.Reader
	if body == "" {
		rdr = strings.NewReader("")
	} else {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rdr)
	req.Header.Set("Authorization", "Bearer test-token")
	rec := httptest.NewRecorder()
	h.Handle(rec, req)
	return rec
}

func errBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not a json object: %s", rec.Body.String())
	}
	return body["error"]
}

func TestHandleRejectsUnauthenticated(t *testing.T) {
	h := NewCitasHandler(fakeResolver{err: identity.ErrUnauthenticated}, fakeService{}, testLogger())
	rec := doRequest(h, http.MethodGet, "/api/v1/citas", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if errBody(t, rec) == "" {
		t.Fatal("expected an error message")
	}
}

func TestHandleMethodNotAllowed(t *testing.T) {
	h := NewCitasHandler(fakeResolver{caller: identity.Caller{ID: "cust-1", Role: identity.RoleCustomer}}, fakeService{}, testLogger())
	rec := doRequest(h, http.MethodPatch, "/api/v1/citas", "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
}

func TestCreateCita(t *testing.T) {
	caller := identity.Caller{ID: "cust-1", Role: identity.RoleCustomer}
	start := time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC)

	svc := fakeService{
		createFn: func(c identity.Caller, in booking.CreateInput) (model.Appointment, error) {
			if c != caller {
				t.Fatalf("caller = %+v", c)
			}
			if !in.FechaConsulta.Equal(start) {
				t.Fatalf("fecha = %s", in.FechaConsulta)
			}
			if in.DurationMinutes != 45 {
				t.Fatalf("duration = %d, want 45", in.DurationMinutes)
			}
			return model.Appointment{
				ID: 12, UserID: c.ID, EmployeeID: in.EmployeeID,
				Empresa: in.Empresa, FechaConsulta: in.FechaConsulta,
				EndTime: in.FechaConsulta.Add(45 * time.Minute),
				Status:  model.StatusPending,
			}, nil
		},
	}
	h := NewCitasHandler(fakeResolver{caller: caller}, svc, testLogger())

	// duracion_consulta arrives as a numeric string from the web form.
	body := `{"empresa":"Acme","fecha_consulta":"2026-04-02T09:00:00Z","duracion_consulta":"45","employee_id":"emp-1"}`
	rec := doRequest(h, http.MethodPost, "/api/v1/citas", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var resp citaResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.ID != 12 || resp.Status != "pending" || resp.Empresa != "Acme" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestCreateCitaBadRequests(t *testing.T) {
	caller := identity.Caller{ID: "cust-1", Role: identity.RoleCustomer}
	svc := fakeService{
		createFn: func(identity.Caller, booking.CreateInput) (model.Appointment, error) {
			return model.Appointment{}, &booking.ValidationError{Msg: "employee_id is required"}
		},
	}
	h := NewCitasHandler(fakeResolver{caller: caller}, svc, testLogger())

	rec := doRequest(h, http.MethodPost, "/api/v1/citas", "{not json")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed json: status = %d, want 400", rec.Code)
	}

	rec = doRequest(h, http.MethodPost, "/api/v1/citas", `{"fecha_consulta":"02/04/2026"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad timestamp: status = %d, want 400", rec.Code)
	}

	rec = doRequest(h, http.MethodPost, "/api/v1/citas", `{"fecha_consulta":"2026-04-02T09:00:00Z"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("validation error: status = %d, want 400", rec.Code)
	}
	if errBody(t, rec) != "employee_id is required" {
		t.Fatalf("error = %q", errBody(t, rec))
	}
}

func TestCreateCitaConflict(t *testing.T) {
	caller := identity.Caller{ID: "cust-1", Role: identity.RoleCustomer}
	svc := fakeService{
		createFn: func(identity.Caller, booking.CreateInput) (model.Appointment, error) {
			return model.Appointment{}, booking.ErrSlotTaken
		},
	}
	h := NewCitasHandler(fakeResolver{caller: caller}, svc, testLogger())

	rec := doRequest(h, http.MethodPost, "/api/v1/citas", `{"fecha_consulta":"2026-04-02T09:00:00Z","employee_id":"emp-1"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	if errBody(t, rec) != "this time slot is already booked" {
		t.Fatalf("error = %q", errBody(t, rec))
	}
}

func TestListCitas(t *testing.T) {
	caller := identity.Caller{ID: "emp-1", Role: identity.RoleStaff}
	start := time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC)
	svc := fakeService{
		listFn: func(c identity.Caller, filter string) ([]model.Appointment, error) {
			return []model.Appointment{{
				ID: 1, UserID: "cust-1", EmployeeID: "emp-1",
				FechaConsulta: start, EndTime: start.Add(time.Hour),
				Status: model.StatusApproved, EmployeeName: "Dr. Vega", EmployeeSpecialty: "tax",
			}}, nil
		},
	}
	h := NewCitasHandler(fakeResolver{caller: caller}, svc, testLogger())

	rec := doRequest(h, http.MethodGet, "/api/v1/citas", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp listCitasResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.IsStaff {
		t.Fatal("staff listing must set isStaff")
	}
	if len(resp.Appointments) != 1 {
		t.Fatalf("got %d appointments", len(resp.Appointments))
	}
	if resp.Appointments[0].Employee == nil || resp.Appointments[0].Employee.FullName != "Dr. Vega" {
		t.Fatalf("employee join missing: %+v", resp.Appointments[0])
	}
}

func TestListCitasEmptyIsArray(t *testing.T) {
	caller := identity.Caller{ID: "cust-1", Role: identity.RoleCustomer}
	svc := fakeService{
		listFn: func(identity.Caller, string) ([]model.Appointment, error) { return nil, nil },
	}
	h := NewCitasHandler(fakeResolver{caller: caller}, svc, testLogger())

	rec := doRequest(h, http.MethodGet, "/api/v1/citas", "")
	if !strings.Contains(rec.Body.String(), `"appointments":[]`) {
		t.Fatalf("empty list must serialize as [], got %s", rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"isStaff":false`) {
		t.Fatalf("customer listing must set isStaff false, got %s", rec.Body.String())
	}
}

func TestUpdateCitaStatus(t *testing.T) {
	caller := identity.Caller{ID: "emp-1", Role: identity.RoleStaff}
	svc := fakeService{
		updateFn: func(c identity.Caller, id int64, status model.Status) (model.Appointment, error) {
			if id != 7 || status != model.StatusApproved {
				t.Fatalf("id=%d status=%s", id, status)
			}
			return model.Appointment{ID: 7, Status: model.StatusApproved}, nil
		},
	}
	h := NewCitasHandler(fakeResolver{caller: caller}, svc, testLogger())

	rec := doRequest(h, http.MethodPut, "/api/v1/citas", `{"id":7,"status":"approved"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(h, http.MethodPut, "/api/v1/citas", `{"status":"approved"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing id: status = %d, want 400", rec.Code)
	}
}

func TestUpdateCitaStatusErrorMapping(t *testing.T) {
	caller := identity.Caller{ID: "emp-2", Role: identity.RoleStaff}
	cases := []struct {
		err  error
		want int
	}{
		{booking.ErrForbidden, http.StatusForbidden},
		{booking.ErrNotFound, http.StatusNotFound},
		{booking.ErrSlotTaken, http.StatusConflict},
		{&booking.ValidationError{Msg: "cannot move a approved appointment to rejected"}, http.StatusBadRequest},
	}
	for _, tc := range cases {
		svc := fakeService{
			updateFn: func(identity.Caller, int64, model.Status) (model.Appointment, error) {
				return model.Appointment{}, tc.err
			},
		}
		h := NewCitasHandler(fakeResolver{caller: caller}, svc, testLogger())
		rec := doRequest(h, http.MethodPut, "/api/v1/citas", `{"id":7,"status":"rejected"}`)
		if rec.Code != tc.want {
			t.Errorf("%v: status = %d, want %d", tc.err, rec.Code, tc.want)
		}
	}
}

func TestDeleteCita(t *testing.T) {
	caller := identity.Caller{ID: "cust-1", Role: identity.RoleCustomer}
	var gotID int64
	svc := fakeService{
		deleteFn: func(_ identity.Caller, id int64) error {
			gotID = id
			return nil
		},
	}
	h := NewCitasHandler(fakeResolver{caller: caller}, svc, testLogger())

	rec := doRequest(h, http.MethodDelete, "/api/v1/citas", `{"id":5}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if gotID != 5 {
		t.Fatalf("deleted id = %d, want 5", gotID)
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["message"] != "Deleted successfully" {
		t.Fatalf("message = %q", resp["message"])
	}

	// Query-param fallback for clients that cannot send a DELETE body.
	rec = doRequest(h, http.MethodDelete, "/api/v1/citas?id=9", "")
	if rec.Code != http.StatusOK || gotID != 9 {
		t.Fatalf("query fallback: status=%d id=%d", rec.Code, gotID)
	}

	rec = doRequest(h, http.MethodDelete, "/api/v1/citas", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing id: status = %d, want 400", rec.Code)
	}
}

func TestDeleteCitaForbidden(t *testing.T) {
	caller := identity.Caller{ID: "cust-1", Role: identity.RoleCustomer}
	svc := fakeService{
		deleteFn: func(identity.Caller, int64) error {
			return booking.ErrForbidden
		},
	}
	h := NewCitasHandler(fakeResolver{caller: caller}, svc, testLogger())

	rec := doRequest(h, http.MethodDelete, "/api/v1/citas", `{"id":5}`)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}
