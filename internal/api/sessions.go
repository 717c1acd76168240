package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/afasulo/htdashboard/internal/analytics"
	"github.com/afasulo/htdashboard/internal/export"
	"github.com/afasulo/htdashboard/internal/query"
)

// sessionFilter reads repeated skill_level and player parameters plus an
// optional start/end date range.
func sessionFilter(r *http.Request) (query.SessionFilter, error) {
	var f query.SessionFilter
	values := r.URL.Query()

	for _, raw := range values["skill_level"] {
		level, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return f, &badParam{"skill_level", raw}
		}
		f.SkillLevels = append(f.SkillLevels, level)
	}
	f.Players = values["player"]

	var err error
	if f.Start, err = dateParam(r, "start"); err != nil {
		return f, err
	}
	if f.End, err = dateParam(r, "end"); err != nil {
		return f, err
	}
	return f, nil
}

func (h *Handler) filteredSessions(w http.ResponseWriter, r *http.Request) ([]analytics.SessionRecord, bool) {
	f, err := sessionFilter(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_parameter", err)
		return nil, false
	}
	sessions := h.query.GetAllSessions(r.Context())
	if f.IsZero() {
		return sessions, true
	}
	return f.Apply(sessions), true
}

func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, ok := h.filteredSessions(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, sessions)
}

func (h *Handler) ListSkillLevels(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.query.GetAvailableSkillLevels(r.Context()))
}

func (h *Handler) ListPlayers(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.query.GetAvailablePlayers(r.Context()))
}

func (h *Handler) PlayerSessions(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	h.writeJSON(w, http.StatusOK, h.query.GetPlayerSessions(r.Context(), name))
}

// PlayerStats returns per (player, skill level) rollups. ?min_at_bats overrides
// the configured qualification threshold.
func (h *Handler) PlayerStats(w http.ResponseWriter, r *http.Request) {
	minAB, err := intParam(r, "min_at_bats", h.ranking.PlayerMinAtBats)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_parameter", err)
		return
	}
	sessions, ok := h.filteredSessions(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, analytics.CalculatePlayerStats(sessions, minAB))
}

func (h *Handler) PlayerSummary(w http.ResponseWriter, r *http.Request) {
	sessions, ok := h.filteredSessions(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, analytics.CalculatePlayerSummary(sessions))
}

func (h *Handler) ExportPlayer(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	sessions := h.query.GetPlayerSessions(r.Context(), name)
	if len(sessions) == 0 {
		h.writeError(w, http.StatusNotFound, "not_found", fmt.Errorf("no sessions for player %q", name))
		return
	}

	data, err := export.Player(sessions, h.query.GetPlayerPlays(r.Context(), name))
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "export_failed", err)
		return
	}
	writeWorkbook(w, strings.ReplaceAll(name, " ", "_")+".xlsx", data)
}
