package tenant

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/opsapi-io/opsapi/internal/audit"
	"github.com/opsapi-io/opsapi/internal/auth"
)

// MemberHandler handles membership administration endpoints. Routes are
// permission-gated by the route wiring.
type MemberHandler struct {
	members *MembershipStore
	audit   audit.Logger
}

// NewMemberHandler creates a new member handler. A nil auditor disables
// audit recording.
func NewMemberHandler(members *MembershipStore, auditor audit.Logger) *MemberHandler {
	if auditor == nil {
		auditor = audit.NopLogger{}
	}
	return &MemberHandler{members: members, audit: auditor}
}

// actorID names the authenticated caller for audit records.
func actorID(ctx context.Context) string {
	if identity := auth.GetIdentity(ctx); identity != nil {
		return identity.UserID
	}
	return ""
}

// HandleList returns all memberships in the current tenant.
func (h *MemberHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	t, ok := FromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "tenant context required"})
		return
	}

	members, err := h.members.List(r.Context(), t.ID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "listing members failed"})
		return
	}

	if members == nil {
		members = []Membership{}
	}

	writeJSON(w, http.StatusOK, members)
}

// HandleInvite provisions a membership in invited status. The member
// gains no access until the invitation is accepted.
func (h *MemberHandler) HandleInvite(w http.ResponseWriter, r *http.Request) {
	t, ok := FromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "tenant context required"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 10<<10)

	var req struct {
		UserID string `json:"user_id"`
		Email  string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.UserID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "user_id is required"})
		return
	}

	m, err := h.members.Add(r.Context(), req.UserID, t.ID, req.Email, MembershipInvited, false)
	if err != nil {
		if errors.Is(err, ErrMemberDuplicate) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "inviting member failed"})
		return
	}

	h.audit.Log(r.Context(), audit.Event{
		TenantID: t.ID,
		UserID:   actorID(r.Context()),
		Action:   audit.ActionMemberInvited,
		Module:   "members",
		Metadata: map[string]any{"member_id": m.ID, "user_id": m.UserID},
		Source:   "api",
	})

	writeJSON(w, http.StatusCreated, m)
}

// HandleUpdateStatus transitions a membership's lifecycle status. The
// membership must belong to the current tenant.
func (h *MemberHandler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	t, ok := FromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "tenant context required"})
		return
	}

	membershipID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid member id"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 10<<10)

	var req struct {
		Status MembershipStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	switch req.Status {
	case MembershipActive, MembershipInvited, MembershipSuspended, MembershipRemoved:
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid membership status"})
		return
	}

	if err := h.members.UpdateStatus(r.Context(), t.ID, membershipID, req.Status); err != nil {
		if errors.Is(err, ErrMembershipNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "member not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "updating member failed"})
		return
	}

	h.audit.Log(r.Context(), audit.Event{
		TenantID: t.ID,
		UserID:   actorID(r.Context()),
		Action:   audit.ActionMemberStatusChanged,
		Module:   "members",
		Metadata: map[string]any{"member_id": membershipID, "status": string(req.Status)},
		Source:   "api",
	})

	w.WriteHeader(http.StatusNoContent)
}
