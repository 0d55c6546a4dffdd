// Package httpapi exposes the access-control administration surface over HTTP.
package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/josemwas/HR-management/internal/auth"
	"github.com/josemwas/HR-management/internal/obs"
)

// ReadyProbe checks that the service can serve traffic. A nil DB is always ready.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// Options wires the API to its services.
type Options struct {
	RBAC         *auth.RBACService
	Tokens       *auth.TokenIssuer
	Ready        ReadyProbe
	Version      string
	RateBurst    int
	RatePerSec   int
	MaxBodyBytes int64
	CORSOrigins  []string

	// TrustedProxies are the peers whose X-Forwarded-For header is believed.
	TrustedProxies []netip.Prefix
}

// API is the HTTP layer.
type API struct {
	mux          *http.ServeMux
	rbac         *auth.RBACService
	tokens       *auth.TokenIssuer
	readyProbe   ReadyProbe
	version      string
	rateBurst    int
	ratePerSec   int
	maxBodyBytes int64
	corsOrigins  []string
	trusted      []netip.Prefix
}

func New(opts Options) *API {
	a := &API{
		mux:          http.NewServeMux(),
		rbac:         opts.RBAC,
		tokens:       opts.Tokens,
		readyProbe:   opts.Ready,
		version:      opts.Version,
		rateBurst:    opts.RateBurst,
		ratePerSec:   opts.RatePerSec,
		maxBodyBytes: opts.MaxBodyBytes,
		corsOrigins:  opts.CORSOrigins,
		trusted:      opts.TrustedProxies,
	}
	if a.rateBurst <= 0 {
		a.rateBurst = 50
	}
	if a.ratePerSec <= 0 {
		a.ratePerSec = 20
	}
	if a.maxBodyBytes <= 0 {
		a.maxBodyBytes = 1 << 20
	}

	a.mux.HandleFunc("GET /healthz", a.Healthz)
	a.mux.HandleFunc("GET /readyz", a.Ready)
	a.mux.HandleFunc("GET /v1/info", a.Info)
	a.mux.Handle("GET /metrics", obs.Handler())

	a.mux.HandleFunc("POST /v1/auth/login", a.handleLogin)
	a.mux.Handle("GET /v1/me/permissions", a.guard("", a.handleMyPermissions))

	a.mux.Handle("GET /v1/roles", a.guard(auth.PermViewRolesPermissions, a.handleListRoles))
	a.mux.Handle("POST /v1/roles", a.guard(auth.PermManageRolesPermissions, a.handleCreateRole))
	a.mux.Handle("GET /v1/roles/{id}", a.guard(auth.PermViewRolesPermissions, a.handleGetRole))
	a.mux.Handle("PUT /v1/roles/{id}", a.guard(auth.PermManageRolesPermissions, a.handleUpdateRole))
	a.mux.Handle("PATCH /v1/roles/{id}", a.guard(auth.PermManageRolesPermissions, a.handleUpdateRole))
	a.mux.Handle("DELETE /v1/roles/{id}", a.guard(auth.PermManageRolesPermissions, a.handleDeleteRole))
	a.mux.Handle("GET /v1/permissions", a.guard(auth.PermViewRolesPermissions, a.handleListPermissions))

	a.mux.Handle("GET /v1/employees/{id}/roles", a.guard(auth.PermViewEmployees, a.handleEmployeeRoles))
	a.mux.Handle("POST /v1/employees/{id}/roles", a.guard(auth.PermManageEmployeeRoles, a.handleAssignRole))
	a.mux.Handle("DELETE /v1/employees/{id}/roles/{roleID}", a.guard(auth.PermManageEmployeeRoles, a.handleUnassignRole))

	a.mux.Handle("GET /v1/settings", a.guard(auth.PermViewOrganizationSettings, a.handleListSettings))
	a.mux.Handle("POST /v1/settings", a.guard(auth.PermManageOrganizationSettings, a.handleSetSettings))
	a.mux.Handle("GET /v1/settings/{key}", a.guard(auth.PermViewOrganizationSettings, a.handleGetSetting))
	a.mux.Handle("PUT /v1/settings/{key}", a.guard(auth.PermManageOrganizationSettings, a.handleSetSetting))

	a.mux.Handle("GET /v1/audit-logs", a.guard(auth.PermViewAuditLogs, a.handleAuditLogs))

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "resource not found")
	})
	return a
}

// Handler returns the mux wrapped in the full middleware chain.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = a.withAuth(h)
	h = MaxBodyBytes(h, a.maxBodyBytes)
	h = RateLimit(h, a.rateBurst, a.ratePerSec)
	h = CORS(h, a.corsOrigins)
	h = SecurityHeaders(h)
	h = Logging(h)
	h = RequestMeta(h)
	h = ClientIP(h, a.trusted)
	h = RequestID(h)
	return obs.Instrument(h)
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": obs.ServiceName,
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		obs.SetReady(false)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	obs.SetReady(true)
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    obs.ServiceName,
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"error": msg,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

// handleServiceError maps the service error taxonomy onto status codes. Unexpected
// errors are logged and answered with a generic message.
func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrUnauthenticated):
		writeError(w, r, http.StatusUnauthorized, "authentication required")
	case errors.Is(err, auth.ErrForbidden):
		writeError(w, r, http.StatusForbidden, "permission denied")
	case errors.Is(err, auth.ErrNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, auth.ErrConflict):
		writeError(w, r, http.StatusConflict, err.Error())
	default:
		obs.Logger().Error().Err(err).
			Str("request_id", RequestIDFromContext(r.Context())).
			Str("path", r.URL.Path).
			Msg("request failed")
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}

func pathValue(r *http.Request, name string) string {
	return strings.TrimSpace(r.PathValue(name))
}
