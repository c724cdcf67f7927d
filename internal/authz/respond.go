package authz

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/opsapi-io/opsapi/internal/auth"
	"github.com/opsapi-io/opsapi/internal/tenant"
)

// PermissionDeniedError is returned when permission evaluation rejects
// a request. It carries the requirement so the rejection body can name
// what was missing.
type PermissionDeniedError struct {
	Module string
	Action string
}

func (e *PermissionDeniedError) Error() string {
	return fmt.Sprintf("permission denied: requires %s on %s", e.Action, e.Module)
}

type rejection struct {
	Error            string                  `json:"error"`
	Required         *requiredGrant          `json:"required,omitempty"`
	TenantStatus     tenant.Status           `json:"tenant_status,omitempty"`
	MembershipStatus tenant.MembershipStatus `json:"membership_status,omitempty"`
}

type requiredGrant struct {
	Module string `json:"module"`
	Action string `json:"action"`
}

// reject maps an authorization failure to its HTTP status and body.
// Authentication failures map to 401, a missing tenant candidate to
// 400, an unknown tenant to 404, and every other denial to 403.
func reject(w http.ResponseWriter, err error) {
	status := http.StatusForbidden
	body := rejection{Error: err.Error()}

	var inaccessible *tenant.InaccessibleError
	var inactive *MembershipInactiveError
	var denied *PermissionDeniedError

	switch {
	case auth.IsAuthError(err):
		status = http.StatusUnauthorized
	case errors.Is(err, tenant.ErrNoTenantContext):
		status = http.StatusBadRequest
	case errors.Is(err, tenant.ErrTenantNotFound):
		status = http.StatusNotFound
	case errors.As(err, &inaccessible):
		body.TenantStatus = inaccessible.Status
	case errors.As(err, &inactive):
		body.MembershipStatus = inactive.Status
	case errors.As(err, &denied):
		body.Required = &requiredGrant{Module: denied.Module, Action: denied.Action}
	case errors.Is(err, tenant.ErrMembershipNotFound), errors.Is(err, ErrOwnershipRequired), errors.Is(err, ErrPlatformAdminRequired):
		// 403 with the bare message.
	default:
		status = http.StatusInternalServerError
		body.Error = "authorization check failed"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
