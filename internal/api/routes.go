package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/afasulo/htdashboard/internal/analytics"
	"github.com/afasulo/htdashboard/internal/cache"
	"github.com/afasulo/htdashboard/internal/config"
	"github.com/afasulo/htdashboard/internal/metrics"
	"github.com/afasulo/htdashboard/internal/query"
	"github.com/afasulo/htdashboard/internal/store"
	"github.com/afasulo/htdashboard/internal/sync"
)

// SyncController is the part of *sync.Manager the API drives.
type SyncController interface {
	Trigger(since *time.Time) error
	GetStatus() string
	LastRun() (*sync.Report, error)
}

type Deps struct {
	Sync        SyncController
	Store       store.Store
	Query       *query.Facade
	Leaderboard *analytics.Engine
	Cache       *cache.LeaderboardCache
	Metrics     *metrics.Manager
	Server      config.ServerConfig
	Ranking     config.LeaderboardConfig
	Log         *zap.Logger
}

type Handler struct {
	syncManager SyncController
	store       store.Store
	query       *query.Facade
	leaderboard *analytics.Engine
	cache       *cache.LeaderboardCache
	metrics     *metrics.Manager
	server      config.ServerConfig
	ranking     config.LeaderboardConfig
	log         *zap.Logger
}

func NewHandler(d Deps) *Handler {
	return &Handler{
		syncManager: d.Sync,
		store:       d.Store,
		query:       d.Query,
		leaderboard: d.Leaderboard,
		cache:       d.Cache,
		metrics:     d.Metrics,
		server:      d.Server,
		ranking:     d.Ranking,
		log:         d.Log,
	}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(h.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(h.cors)
	r.Use(h.instrument)

	r.Get("/health", h.HealthCheck)
	r.Method(http.MethodGet, "/metrics", h.metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/sync/trigger", h.TriggerSync)
		r.Get("/sync/status", h.GetSyncStatus)
		r.Get("/sync/logs", h.ListSyncLogs)

		r.Get("/sessions", h.ListSessions)
		r.Get("/skill-levels", h.ListSkillLevels)
		r.Get("/players", h.ListPlayers)
		r.Get("/players/{name}/sessions", h.PlayerSessions)
		r.Get("/players/{name}/export.xlsx", h.ExportPlayer)
		r.Get("/stats", h.PlayerStats)
		r.Get("/summary", h.PlayerSummary)

		r.Get("/leaderboard", h.GetLeaderboard)
		r.Get("/leaderboard/export.xlsx", h.ExportLeaderboard)

		r.Get("/verify", h.Verify)
	})

	return r
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
