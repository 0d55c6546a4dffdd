package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/josemwas/HR-management/internal/auth"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

var publicPaths = []string{
	"/v1/auth/login",
	"/v1/info",
	"/metrics",
	"/healthz",
	"/readyz",
}

// withAuth verifies the bearer token and stores its subject in the request context.
// Authorization happens per route in guard.
func (a *API) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions || isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}
		if a.tokens == nil {
			writeError(w, r, http.StatusServiceUnavailable, "authentication unavailable")
			return
		}
		token, err := extractBearerToken(r.Header.Get(authHeader))
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, err.Error())
			return
		}
		claims, err := a.tokens.ParseAndValidate(token)
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, "invalid token")
			return
		}
		ctx := auth.ContextWithSubject(r.Context(), claims.Subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// guard resolves the token subject and checks permission before calling h. An empty
// permission only requires an active account. The resolved actor is put in the context.
func (a *API) guard(permission string, h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.rbac == nil {
			writeError(w, r, http.StatusServiceUnavailable, "rbac service unavailable")
			return
		}
		subject, ok := auth.SubjectFromContext(r.Context())
		if !ok {
			writeError(w, r, http.StatusUnauthorized, "authentication required")
			return
		}
		var (
			actor auth.Actor
			err   error
		)
		if permission == "" {
			actor, err = a.rbac.Resolve(r.Context(), subject)
		} else {
			actor, err = a.rbac.Authorize(r.Context(), subject, permission)
		}
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrUnauthenticated):
				writeError(w, r, http.StatusUnauthorized, "authentication required")
			case errors.Is(err, auth.ErrForbidden):
				writeError(w, r, http.StatusForbidden, "permission denied")
			default:
				handleServiceError(w, r, err)
			}
			return
		}
		h(w, r.WithContext(auth.ContextWithActor(r.Context(), actor)))
	})
}

// actorFrom returns the actor stored by guard.
func actorFrom(r *http.Request) auth.Actor {
	actor, _ := auth.ActorFromContext(r.Context())
	return actor
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if len(header) < len(bearer) || !strings.EqualFold(header[:len(bearer)], bearer) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}

func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}
	return false
}
