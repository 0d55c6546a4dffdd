package httpapi

import (
	"net/http"

	"github.com/josemwas/HR-management/internal/auth"
)

type settingRequest struct {
	Key         string  `json:"key,omitempty"`
	Value       any     `json:"value"`
	Category    *string `json:"category"`
	DataType    *string `json:"data_type"`
	Description *string `json:"description"`
	IsSensitive *bool   `json:"is_sensitive"`
}

func (s settingRequest) input(key string) auth.SettingInput {
	return auth.SettingInput{
		Key:         key,
		Value:       s.Value,
		Category:    s.Category,
		DataType:    s.DataType,
		Description: s.Description,
		IsSensitive: s.IsSensitive,
	}
}

type batchSettingsRequest struct {
	Settings []settingRequest `json:"settings"`
}

func (a *API) handleListSettings(w http.ResponseWriter, r *http.Request) {
	list, err := a.rbac.ListSettings(r.Context(), actorFrom(r), r.URL.Query().Get("category"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (a *API) handleGetSetting(w http.ResponseWriter, r *http.Request) {
	view, err := a.rbac.GetSettingView(r.Context(), actorFrom(r), pathValue(r, "key"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (a *API) handleSetSetting(w http.ResponseWriter, r *http.Request) {
	var req settingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	view, err := a.rbac.SetSetting(r.Context(), actorFrom(r), req.input(pathValue(r, "key")))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (a *API) handleSetSettings(w http.ResponseWriter, r *http.Request) {
	var req batchSettingsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	items := make([]auth.SettingInput, 0, len(req.Settings))
	for _, s := range req.Settings {
		items = append(items, s.input(s.Key))
	}
	keys, err := a.rbac.SetSettings(r.Context(), actorFrom(r), items)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"updated": keys})
}
