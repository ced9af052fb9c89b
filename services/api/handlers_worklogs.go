package api

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"assetd/services/assets"
)

func (a *API) handleCreateWorkLog(w http.ResponseWriter, r *http.Request) {
	var draft assets.WorkLogDraft
	if err := decodeJSON(r, &draft); err != nil {
		a.respondError(w, r, badRequest("api.CreateWorkLog", "decode body: %v", err))
		return
	}

	log, err := a.assets.CreateWorkLog(r.Context(), draft)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"work_log": log})
}

func (a *API) handleListWorkLogs(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimSpace(r.URL.Query().Get("assetId"))
	id, err := uuid.Parse(raw)
	if err != nil {
		a.respondError(w, r, badRequest("api.ListWorkLogs", "valid assetId is required"))
		return
	}

	logs, err := a.assets.ListWorkLogs(r.Context(), id)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"work_logs": logs})
}
