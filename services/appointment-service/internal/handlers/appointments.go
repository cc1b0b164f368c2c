package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dortega/citaflow/services/appointment-service/internal/booking"
	"github.com/dortega/citaflow/services/appointment-service/internal/identity"
	"github.com/dortega/citaflow/services/appointment-service/internal/model"
)

// CallerResolver turns an Authorization header into a caller identity.
type CallerResolver interface {
	Resolve(ctx context.Context, authorization string) (identity.Caller, error)
}

// BookingService is the slice of booking.Service the HTTP layer needs.
type BookingService interface {
	Create(ctx context.Context, caller identity.Caller, in booking.CreateInput) (model.Appointment, error)
	List(ctx context.Context, caller identity.Caller, filterEmployeeID string) ([]model.Appointment, error)
	UpdateStatus(ctx context.Context, caller identity.Caller, id int64, status model.Status) (model.Appointment, error)
	Delete(ctx context.Context, caller identity.Caller, id int64) error
}

type CitasHandler struct {
	resolver CallerResolver
	svc      BookingService
	logger   *slog.Logger
}

func NewCitasHandler(resolver CallerResolver, svc BookingService, logger *slog.Logger) *CitasHandler {
	return &CitasHandler{resolver: resolver, svc: svc, logger: logger}
}

// flexInt accepts a JSON number or a numeric string. The web client sends
// duracion_consulta as whichever the form field produced.
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return errors.New("must be a number")
	}
	*f = flexInt(n)
	return nil
}

type createCitaRequest struct {
	Empresa          string  `json:"empresa"`
	TipoConsulta     string  `json:"tipo_consulta"`
	Descripcion      string  `json:"descripcion"`
	FechaConsulta    string  `json:"fecha_consulta"`
	Modalidad        string  `json:"modalidad"`
	Direccion        string  `json:"direccion"`
	DuracionConsulta flexInt `json:"duracion_consulta"`
	EmployeeID       string  `json:"employee_id"`
	UserID           string  `json:"user_id"`
}

type updateCitaRequest struct {
	ID     int64  `json:"id"`
	Status string `json:"status"`
}

type deleteCitaRequest struct {
	ID int64 `json:"id"`
}

type citaEmployee struct {
	FullName  string `json:"full_name"`
	Specialty string `json:"specialty"`
}

type citaResponse struct {
	ID            int64         `json:"id"`
	UserID        string        `json:"user_id"`
	EmployeeID    string        `json:"employee_id,omitempty"`
	Empresa       string        `json:"empresa"`
	TipoConsulta  string        `json:"tipo_consulta"`
	Descripcion   string        `json:"descripcion"`
	FechaConsulta string        `json:"fecha_consulta"`
	EndTime       string        `json:"end_time"`
	Modalidad     string        `json:"modalidad"`
	Direccion     string        `json:"direccion,omitempty"`
	Status        string        `json:"status"`
	CreatedAt     string        `json:"created_at"`
	Employee      *citaEmployee `json:"employee,omitempty"`
}

type listCitasResponse struct {
	Appointments []citaResponse `json:"appointments"`
	IsStaff      bool           `json:"isStaff"`
}

// Handle dispatches /api/v1/citas by method. Every method requires a caller.
func (h *CitasHandler) Handle(w http.ResponseWriter, r *http.Request) {
	caller, err := h.resolver.Resolve(r.Context(), r.Header.Get("Authorization"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.list(w, r, caller)
	case http.MethodPost:
		h.create(w, r, caller)
	case http.MethodPut:
		h.updateStatus(w, r, caller)
	case http.MethodDelete:
		h.delete(w, r, caller)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	}
}

func (h *CitasHandler) create(w http.ResponseWriter, r *http.Request, caller identity.Caller) {
	var req createCitaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json body"})
		return
	}

	var fecha time.Time
	if s := strings.TrimSpace(req.FechaConsulta); s != "" {
		parsed, err := time.Parse(time.RFC3339, s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid fecha_consulta"})
			return
		}
		fecha = parsed
	}

	created, err := h.svc.Create(r.Context(), caller, booking.CreateInput{
		Empresa:         strings.TrimSpace(req.Empresa),
		TipoConsulta:    strings.TrimSpace(req.TipoConsulta),
		Descripcion:     strings.TrimSpace(req.Descripcion),
		FechaConsulta:   fecha,
		DurationMinutes: int(req.DuracionConsulta),
		Modalidad:       strings.TrimSpace(req.Modalidad),
		Direccion:       strings.TrimSpace(req.Direccion),
		EmployeeID:      strings.TrimSpace(req.EmployeeID),
		UserID:          strings.TrimSpace(req.UserID),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCitaResponse(created))
}

func (h *CitasHandler) list(w http.ResponseWriter, r *http.Request, caller identity.Caller) {
	filter := strings.TrimSpace(r.URL.Query().Get("employee_id"))
	appts, err := h.svc.List(r.Context(), caller, filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	items := make([]citaResponse, 0, len(appts))
	for _, a := range appts {
		items = append(items, toCitaResponse(a))
	}
	writeJSON(w, http.StatusOK, listCitasResponse{
		Appointments: items,
		IsStaff:      caller.Role.IsStaff(),
	})
}

func (h *CitasHandler) updateStatus(w http.ResponseWriter, r *http.Request, caller identity.Caller) {
	var req updateCitaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json body"})
		return
	}
	if req.ID == 0 || strings.TrimSpace(req.Status) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "id and status are required"})
		return
	}

	updated, err := h.svc.UpdateStatus(r.Context(), caller, req.ID, model.Status(strings.TrimSpace(req.Status)))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCitaResponse(updated))
}

func (h *CitasHandler) delete(w http.ResponseWriter, r *http.Request, caller identity.Caller) {
	var req deleteCitaRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	if req.ID == 0 {
		if raw := strings.TrimSpace(r.URL.Query().Get("id")); raw != "" {
			if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
				req.ID = n
			}
		}
	}
	if req.ID == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "id is required"})
		return
	}

	if err := h.svc.Delete(r.Context(), caller, req.ID); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Deleted successfully"})
}

func toCitaResponse(a model.Appointment) citaResponse {
	resp := citaResponse{
		ID:            a.ID,
		UserID:        a.UserID,
		EmployeeID:    a.EmployeeID,
		Empresa:       a.Empresa,
		TipoConsulta:  a.TipoConsulta,
		Descripcion:   a.Descripcion,
		FechaConsulta: a.FechaConsulta.UTC().Format(time.RFC3339),
		EndTime:       a.EndTime.UTC().Format(time.RFC3339),
		Modalidad:     a.Modalidad,
		Direccion:     a.Direccion,
		Status:        string(a.Status),
	}
	if !a.CreatedAt.IsZero() {
		resp.CreatedAt = a.CreatedAt.UTC().Format(time.RFC3339)
	}
	if a.EmployeeName != "" || a.EmployeeSpecialty != "" {
		resp.Employee = &citaEmployee{
			FullName:  a.EmployeeName,
			Specialty: a.EmployeeSpecialty,
		}
	}
	return resp
}

func (h *CitasHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *booking.ValidationError
	switch {
	case errors.Is(err, identity.ErrUnauthenticated):
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": verr.Msg})
	case errors.Is(err, booking.ErrForbidden):
		writeJSON(w, http.StatusForbidden, map[string]string{"error": err.Error()})
	case errors.Is(err, booking.ErrSlotTaken):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, booking.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "appointment not found"})
	default:
		h.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "failed to build response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
