package httpapi

import (
	"fmt"
	"net/http"

	"github.com/josemwas/HR-management/internal/auth"
)

type createRoleRequest struct {
	Name          string   `json:"name"`
	DisplayName   string   `json:"display_name"`
	Description   string   `json:"description"`
	IsActive      *bool    `json:"is_active"`
	PermissionIDs []string `json:"permission_ids"`
}

type updateRoleRequest struct {
	DisplayName   *string   `json:"display_name"`
	Description   *string   `json:"description"`
	IsActive      *bool     `json:"is_active"`
	PermissionIDs *[]string `json:"permission_ids"`
}

type assignRoleRequest struct {
	RoleID    string `json:"role_id"`
	IsPrimary bool   `json:"is_primary"`
}

func (a *API) handleListRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := a.rbac.ListRoles(r.Context(), actorFrom(r))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"roles": roles})
}

func (a *API) handleCreateRole(w http.ResponseWriter, r *http.Request) {
	var req createRoleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	role, err := a.rbac.CreateRole(r.Context(), actorFrom(r), auth.RoleInput{
		Name:          req.Name,
		DisplayName:   req.DisplayName,
		Description:   req.Description,
		IsActive:      req.IsActive,
		PermissionIDs: req.PermissionIDs,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/v1/roles/%s", role.ID))
	writeJSON(w, http.StatusCreated, role)
}

func (a *API) handleGetRole(w http.ResponseWriter, r *http.Request) {
	role, err := a.rbac.GetRole(r.Context(), actorFrom(r), pathValue(r, "id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, role)
}

func (a *API) handleUpdateRole(w http.ResponseWriter, r *http.Request) {
	var req updateRoleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	role, err := a.rbac.UpdateRole(r.Context(), actorFrom(r), pathValue(r, "id"), auth.RoleUpdate{
		DisplayName:   req.DisplayName,
		Description:   req.Description,
		IsActive:      req.IsActive,
		PermissionIDs: req.PermissionIDs,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, role)
}

func (a *API) handleDeleteRole(w http.ResponseWriter, r *http.Request) {
	if err := a.rbac.DeleteRole(r.Context(), actorFrom(r), pathValue(r, "id")); err != nil {
		handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleListPermissions(w http.ResponseWriter, r *http.Request) {
	catalog, err := a.rbac.ListPermissions(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, catalog)
}

func (a *API) handleEmployeeRoles(w http.ResponseWriter, r *http.Request) {
	access, err := a.rbac.EmployeeAccess(r.Context(), actorFrom(r), pathValue(r, "id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, access)
}

func (a *API) handleAssignRole(w http.ResponseWriter, r *http.Request) {
	var req assignRoleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	assignment, err := a.rbac.AssignRole(r.Context(), actorFrom(r), pathValue(r, "id"), req.RoleID, req.IsPrimary)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, assignment)
}

func (a *API) handleUnassignRole(w http.ResponseWriter, r *http.Request) {
	if err := a.rbac.UnassignRole(r.Context(), actorFrom(r), pathValue(r, "id"), pathValue(r, "roleID")); err != nil {
		handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
