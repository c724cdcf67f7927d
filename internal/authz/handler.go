package authz

import (
	"encoding/json"
	"net/http"
)

// HandleMe returns the caller's assembled access context: who they are,
// which tenant the request resolved to, and what they may do there.
// Wired under RequireTenant, so the access is always present.
func HandleMe(w http.ResponseWriter, r *http.Request) {
	access := GetAccess(r.Context())
	if access == nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "authentication required"})
		return
	}

	permissions := make(map[string][]string, len(access.Permissions))
	for module, actions := range access.Permissions {
		list := make([]string, 0, len(actions))
		for action := range actions {
			list = append(list, action)
		}
		permissions[module] = list
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"user":        access.Identity,
		"tenant":      access.Tenant,
		"membership":  access.Membership,
		"owner":       access.Owner(),
		"permissions": permissions,
	})
}
