package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/josemwas/HR-management/internal/auth"
	"github.com/josemwas/HR-management/internal/obs"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string        `json:"access_token"`
	TokenType string        `json:"token_type"`
	ExpiresAt time.Time     `json:"expires_at"`
	Employee  auth.Employee `json:"employee"`
}

type myPermissionsResponse struct {
	EmployeeID     string   `json:"employee_id"`
	OrganizationID string   `json:"organization_id"`
	IsSuperAdmin   bool     `json:"is_super_admin"`
	Permissions    []string `json:"permissions"`
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if a.rbac == nil || a.tokens == nil {
		writeError(w, r, http.StatusServiceUnavailable, "authentication unavailable")
		return
	}
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	emp, err := a.rbac.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		obs.Logger().Info().
			Str("request_id", RequestIDFromContext(r.Context())).
			Str("email", strings.ToLower(strings.TrimSpace(req.Email))).
			Msg("login rejected")
		handleServiceError(w, r, err)
		return
	}
	token, expiresAt, err := a.tokens.GenerateToken(emp)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{
		Token:     token,
		TokenType: "bearer",
		ExpiresAt: expiresAt,
		Employee:  emp,
	})
}

func (a *API) handleMyPermissions(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)
	perms, err := a.rbac.EffectivePermissions(r.Context(), actor)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	names := make([]string, 0, len(perms))
	for _, p := range perms {
		names = append(names, p.Name)
	}
	writeJSON(w, http.StatusOK, myPermissionsResponse{
		EmployeeID:     actor.EmployeeID,
		OrganizationID: actor.OrganizationID,
		IsSuperAdmin:   actor.Super,
		Permissions:    names,
	})
}
