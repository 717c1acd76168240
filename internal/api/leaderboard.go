package api

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/afasulo/htdashboard/internal/analytics"
	"github.com/afasulo/htdashboard/internal/cache"
	"github.com/afasulo/htdashboard/internal/export"
)

func (h *Handler) leaderboardQuery(r *http.Request) (analytics.LeaderboardQuery, error) {
	var q analytics.LeaderboardQuery
	var err error
	if q.Start, err = dateParam(r, "start"); err != nil {
		return q, err
	}
	if q.End, err = dateParam(r, "end"); err != nil {
		return q, err
	}
	if q.MinAtBats, err = optionalIntParam(r, "min_at_bats"); err != nil {
		return q, err
	}
	return q, nil
}

// buildLeaderboard serves from the cache when possible. Store failures yield an
// empty mapping, which is not cached.
func (h *Handler) buildLeaderboard(ctx context.Context, q analytics.LeaderboardQuery) analytics.Leaderboard {
	from, to := h.leaderboard.Window(q)
	key := cache.Key(from, to, h.leaderboard.MinAtBats(q))
	if lb, ok := h.cache.Get(ctx, key); ok {
		return lb
	}

	lb, err := h.leaderboard.BuildLeaderboard(ctx, q)
	if err != nil {
		h.log.Error("Failed to build leaderboard", zap.Error(err))
		return analytics.Leaderboard{}
	}
	h.cache.Set(ctx, key, lb)
	return lb
}

func (h *Handler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	q, err := h.leaderboardQuery(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_parameter", err)
		return
	}
	h.writeJSON(w, http.StatusOK, h.buildLeaderboard(r.Context(), q))
}

func (h *Handler) ExportLeaderboard(w http.ResponseWriter, r *http.Request) {
	q, err := h.leaderboardQuery(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_parameter", err)
		return
	}

	data, err := export.Leaderboard(h.buildLeaderboard(r.Context(), q))
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "export_failed", err)
		return
	}
	from, to := h.leaderboard.Window(q)
	writeWorkbook(w, fmt.Sprintf("leaderboard_%s_%s.xlsx",
		from.Format("20060102"), to.AddDate(0, 0, -1).Format("20060102")), data)
}
