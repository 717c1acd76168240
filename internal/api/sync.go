package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/afasulo/htdashboard/internal/sync"
)

const maxLogPage = 500

// TriggerSync starts a background sync. ?since=YYYY-MM-DD or ?days_back=N
// restrict Session and Plays to recent rows.
func (h *Handler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	since, err := dateParam(r, "since")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_parameter", err)
		return
	}
	days, err := intParam(r, "days_back", 0)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_parameter", err)
		return
	}
	if since == nil && days > 0 {
		cutoff := time.Now().AddDate(0, 0, -days)
		since = &cutoff
	}

	if err := h.syncManager.Trigger(since); err != nil {
		if errors.Is(err, sync.ErrSyncInProgress) {
			h.writeError(w, http.StatusConflict, "sync_in_progress", err)
			return
		}
		h.writeError(w, http.StatusInternalServerError, "sync_failed", err)
		return
	}
	h.writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

type syncStatusResponse struct {
	Status    string       `json:"status"`
	LastRun   *sync.Report `json:"last_run"`
	LastError string       `json:"last_error,omitempty"`
}

func (h *Handler) GetSyncStatus(w http.ResponseWriter, r *http.Request) {
	report, err := h.syncManager.LastRun()
	resp := syncStatusResponse{Status: h.syncManager.GetStatus(), LastRun: report}
	if err != nil {
		resp.LastError = err.Error()
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) ListSyncLogs(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", 50)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_parameter", err)
		return
	}
	offset, err := intParam(r, "offset", 0)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_parameter", err)
		return
	}
	limit = min(limit, maxLogPage)

	entries, err := h.store.ListSyncLogs(r.Context(), limit, offset)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "store_error", err)
		return
	}
	h.writeJSON(w, http.StatusOK, entries)
}

func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	v, err := h.query.Verify(r.Context())
	if err != nil {
		h.writeError(w, http.StatusServiceUnavailable, "store_error", err)
		return
	}
	h.writeJSON(w, http.StatusOK, v)
}
