package transport

import (
	"net/http"

	"github.com/gorilla/mux"

	"storefront/pkg/domain/model"
	"storefront/pkg/infrastructure/auth"
)

type settingRequest struct {
	Value string `json:"value" validate:"max=4096"`
}

func (h *handler) listSettings(w http.ResponseWriter, r *http.Request, _ auth.Identity) {
	settings, err := h.Settings.All(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, "", settings)
}

func (h *handler) updateSetting(w http.ResponseWriter, r *http.Request, identity auth.Identity) {
	key := mux.Vars(r)["key"]
	var req settingRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if err := h.Settings.Set(r.Context(), key, req.Value); err != nil {
		respondError(w, r, err)
		return
	}
	h.SystemLogs.Record(r.Context(), model.LevelInfo, "setting.updated", &identity.UserID,
		"setting updated", map[string]interface{}{"key": key})
	respondOK(w, "setting updated", nil)
}

func (h *handler) systemLogs(w http.ResponseWriter, r *http.Request, _ auth.Identity) {
	entries, err := h.SystemLogs.Recent(r.Context(), queryInt(r, "limit", 100))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, "", entries)
}
