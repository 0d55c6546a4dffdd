package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/josemwas/HR-management/internal/audit"
)

func (a *API) handleAuditLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := parsePositiveInt("page", q.Get("page"), 1, 1, 1_000_000)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	perPage, err := parsePositiveInt("per_page", q.Get("per_page"), 50, 1, 200)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	result, err := a.rbac.AuditLog(r.Context(), actorFrom(r), audit.Filter{
		Action:       strings.TrimSpace(q.Get("action")),
		ResourceType: strings.TrimSpace(q.Get("resource_type")),
		ActorID:      strings.TrimSpace(q.Get("user_id")),
		Page:         page,
		PerPage:      perPage,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func parsePositiveInt(name, raw string, def, min, max int) (int, error) {
	if strings.TrimSpace(raw) == "" {
		return def, nil
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New(name + " must be an integer")
	}
	if val < min || val > max {
		return 0, fmt.Errorf("%s must be between %d and %d", name, min, max)
	}
	return val, nil
}
