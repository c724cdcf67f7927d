package tenant

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/opsapi-io/opsapi/internal/audit"
)

// Handler handles tenant HTTP endpoints.
type Handler struct {
	store *Store
	audit audit.Logger
}

// NewHandler creates a new tenant handler. A nil auditor disables audit
// recording.
func NewHandler(store *Store, auditor audit.Logger) *Handler {
	if auditor == nil {
		auditor = audit.NopLogger{}
	}
	return &Handler{store: store, audit: auditor}
}

// HandleCreate provisions a new tenant. Platform admin only; the policy
// is applied by the route wiring.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<10)

	var req struct {
		Name string `json:"name"`
		Slug string `json:"slug"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Name == "" || req.Slug == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name and slug are required"})
		return
	}

	t, err := h.store.Create(r.Context(), req.Name, req.Slug)
	if err != nil {
		if errors.Is(err, ErrInvalidSlug) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		if errors.Is(err, ErrSlugTaken) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "tenant creation failed"})
		return
	}

	h.audit.Log(r.Context(), audit.Event{
		TenantID: t.ID,
		UserID:   actorID(r.Context()),
		Action:   audit.ActionTenantCreated,
		Module:   "organization",
		Metadata: map[string]any{"slug": t.Slug},
		Source:   "api",
	})

	writeJSON(w, http.StatusCreated, t)
}

// HandleGet returns a tenant by external ID or slug.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing tenant id"})
		return
	}

	t, err := h.store.LookupByIDOrSlug(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrTenantNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "tenant not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "fetching tenant failed"})
		return
	}

	writeJSON(w, http.StatusOK, t)
}

// HandleList returns all tenants.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	tenants, err := h.store.List(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "listing tenants failed"})
		return
	}

	if tenants == nil {
		tenants = []Tenant{}
	}

	writeJSON(w, http.StatusOK, tenants)
}

// HandleCurrent returns the tenant resolved for this request, or an
// empty object when the request carries no tenant context.
func (h *Handler) HandleCurrent(w http.ResponseWriter, r *http.Request) {
	t, ok := FromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"tenant": nil})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tenant": t})
}

// HandleArchive archives the current tenant. Owner only; the policy is
// applied by the route wiring.
func (h *Handler) HandleArchive(w http.ResponseWriter, r *http.Request) {
	t, ok := FromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "tenant context required"})
		return
	}

	archived, err := h.store.UpdateStatus(r.Context(), t.ID, StatusArchived)
	if err != nil {
		if errors.Is(err, ErrTenantNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "tenant not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "archiving tenant failed"})
		return
	}

	h.audit.Log(r.Context(), audit.Event{
		TenantID: t.ID,
		UserID:   actorID(r.Context()),
		Action:   audit.ActionTenantArchived,
		Module:   "organization",
		Metadata: map[string]any{"slug": t.Slug},
		Source:   "api",
	})

	writeJSON(w, http.StatusOK, archived)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
