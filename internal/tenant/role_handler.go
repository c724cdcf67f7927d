package tenant

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/opsapi-io/opsapi/internal/audit"
)

// RoleHandler handles role administration endpoints. Routes are
// admin-gated by the route wiring.
type RoleHandler struct {
	roles   *RoleStore
	members *MembershipStore
	audit   audit.Logger
}

// NewRoleHandler creates a new role handler. The membership store is
// consulted to confirm that assignment targets belong to the current
// tenant. A nil auditor disables audit recording.
func NewRoleHandler(roles *RoleStore, members *MembershipStore, auditor audit.Logger) *RoleHandler {
	if auditor == nil {
		auditor = audit.NopLogger{}
	}
	return &RoleHandler{roles: roles, members: members, audit: auditor}
}

// HandleCreate creates a custom role in the current tenant.
func (h *RoleHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	t, ok := FromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "tenant context required"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 64<<10)

	var req struct {
		Name        string              `json:"name"`
		DisplayName string              `json:"display_name"`
		Permissions map[string][]string `json:"permissions"`
		Priority    int                 `json:"priority"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	role, err := h.roles.Create(r.Context(), t.ID, req.Name, req.DisplayName, req.Permissions, req.Priority)
	if err != nil {
		if errors.Is(err, ErrRoleNameEmpty) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		if errors.Is(err, ErrRoleDuplicate) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "role creation failed"})
		return
	}

	h.audit.Log(r.Context(), audit.Event{
		TenantID: t.ID,
		UserID:   actorID(r.Context()),
		Action:   audit.ActionRoleCreated,
		Module:   "organization",
		Metadata: map[string]any{"role_id": role.ID, "name": role.Name},
		Source:   "api",
	})

	writeJSON(w, http.StatusCreated, role)
}

// HandleList returns all roles in the current tenant.
func (h *RoleHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	t, ok := FromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "tenant context required"})
		return
	}

	roles, err := h.roles.List(r.Context(), t.ID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "listing roles failed"})
		return
	}

	if roles == nil {
		roles = []Role{}
	}

	writeJSON(w, http.StatusOK, roles)
}

// HandleDelete removes a custom role.
func (h *RoleHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	t, ok := FromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "tenant context required"})
		return
	}

	roleID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid role id"})
		return
	}

	if err := h.roles.Delete(r.Context(), t.ID, roleID); err != nil {
		if errors.Is(err, ErrRoleNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "role not found"})
			return
		}
		if errors.Is(err, ErrRoleIsSystem) {
			writeJSON(w, http.StatusForbidden, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "role deletion failed"})
		return
	}

	h.audit.Log(r.Context(), audit.Event{
		TenantID: t.ID,
		UserID:   actorID(r.Context()),
		Action:   audit.ActionRoleDeleted,
		Module:   "organization",
		Metadata: map[string]any{"role_id": roleID},
		Source:   "api",
	})

	w.WriteHeader(http.StatusNoContent)
}

// HandleAssign grants a role to a member. Both the role and the member
// must belong to the current tenant.
func (h *RoleHandler) HandleAssign(w http.ResponseWriter, r *http.Request) {
	t, ok := FromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "tenant context required"})
		return
	}

	memberID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid member id"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 10<<10)

	var req struct {
		RoleID int64 `json:"role_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if _, err := h.roles.GetByID(r.Context(), t.ID, req.RoleID); err != nil {
		if errors.Is(err, ErrRoleNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "role not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "role assignment failed"})
		return
	}

	if _, err := h.members.GetByID(r.Context(), t.ID, memberID); err != nil {
		if errors.Is(err, ErrMembershipNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "member not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "role assignment failed"})
		return
	}

	if err := h.roles.AssignToMember(r.Context(), memberID, req.RoleID); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "role assignment failed"})
		return
	}

	h.audit.Log(r.Context(), audit.Event{
		TenantID: t.ID,
		UserID:   actorID(r.Context()),
		Action:   audit.ActionRoleAssigned,
		Module:   "organization",
		Metadata: map[string]any{"member_id": memberID, "role_id": req.RoleID},
		Source:   "api",
	})

	w.WriteHeader(http.StatusNoContent)
}

// HandleUnassign revokes a role from a member of the current tenant.
func (h *RoleHandler) HandleUnassign(w http.ResponseWriter, r *http.Request) {
	t, ok := FromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "tenant context required"})
		return
	}

	memberID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid member id"})
		return
	}

	roleID, err := strconv.ParseInt(r.PathValue("roleID"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid role id"})
		return
	}

	if _, err := h.members.GetByID(r.Context(), t.ID, memberID); err != nil {
		if errors.Is(err, ErrMembershipNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "member not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "role removal failed"})
		return
	}

	if err := h.roles.RemoveFromMember(r.Context(), memberID, roleID); err != nil {
		if errors.Is(err, ErrRoleNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "role assignment not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "role removal failed"})
		return
	}

	h.audit.Log(r.Context(), audit.Event{
		TenantID: t.ID,
		UserID:   actorID(r.Context()),
		Action:   audit.ActionRoleRevoked,
		Module:   "organization",
		Metadata: map[string]any{"member_id": memberID, "role_id": roleID},
		Source:   "api",
	})

	w.WriteHeader(http.StatusNoContent)
}
