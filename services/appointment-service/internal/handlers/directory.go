package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/dortega/citaflow/services/appointment-service/internal/storage"
)

// ProfileDirectory lists the profiles exposed by the directory endpoints.
type ProfileDirectory interface {
	ListStaff(ctx context.Context) ([]storage.Profile, error)
	ListCustomers(ctx context.Context) ([]storage.Profile, error)
}

type DirectoryHandler struct {
	resolver CallerResolver
	profiles ProfileDirectory
	logger   *slog.Logger
}

func NewDirectoryHandler(resolver CallerResolver, profiles ProfileDirectory, logger *slog.Logger) *DirectoryHandler {
	return &DirectoryHandler{resolver: resolver, profiles: profiles, logger: logger}
}

type employeeItem struct {
	ID        string `json:"id"`
	FullName  string `json:"full_name"`
	Specialty string `json:"specialty,omitempty"`
}

type clientItem struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

// Employees lists bookable staff. Any authenticated caller may read it; the
// booking form needs it to offer a specialist to customers.
func (h *DirectoryHandler) Employees(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	if _, err := h.resolver.Resolve(r.Context(), r.Header.Get("Authorization")); err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}

	profiles, err := h.profiles.ListStaff(r.Context())
	if err != nil {
		h.logger.Error("list employees failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list employees"})
		return
	}

	items := make([]employeeItem, 0, len(profiles))
	for _, p := range profiles {
		items = append(items, employeeItem{ID: p.ID, FullName: p.FullName, Specialty: p.Specialty})
	}
	writeJSON(w, http.StatusOK, items)
}

// Clients lists customer profiles for the staff booking form. Customers may
// not enumerate other clients.
func (h *DirectoryHandler) Clients(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	caller, err := h.resolver.Resolve(r.Context(), r.Header.Get("Authorization"))
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}
	if !caller.Role.IsStaff() {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "staff access required"})
		return
	}

	profiles, err := h.profiles.ListCustomers(r.Context())
	if err != nil {
		h.logger.Error("list clients failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list clients"})
		return
	}

	items := make([]clientItem, 0, len(profiles))
	for _, p := range profiles {
		items = append(items, clientItem{ID: p.ID, Email: p.Email, FullName: p.FullName})
	}
	writeJSON(w, http.StatusOK, items)
}
