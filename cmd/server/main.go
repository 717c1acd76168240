package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/afasulo/htdashboard/internal/analytics"
	"github.com/afasulo/htdashboard/internal/api"
	"github.com/afasulo/htdashboard/internal/cache"
	"github.com/afasulo/htdashboard/internal/config"
	"github.com/afasulo/htdashboard/internal/database"
	"github.com/afasulo/htdashboard/internal/logger"
	"github.com/afasulo/htdashboard/internal/metrics"
	"github.com/afasulo/htdashboard/internal/query"
	"github.com/afasulo/htdashboard/internal/schema"
	"github.com/afasulo/htdashboard/internal/store"
	"github.com/afasulo/htdashboard/internal/sync"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	syncOnce := flag.Bool("sync", false, "run one full sync, print the report and exit")
	flag.Parse()

	// Load Config
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Init Logger
	if err := logger.InitLogger(cfg.Logging.Level, cfg.Logging.Format); err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	log := logger.Log

	log.Info("Starting htdashboard", zap.String("config", *configPath))

	overrides, err := config.LoadGradYearOverrides(cfg.Leaderboard.OverridesFile)
	if err != nil {
		log.Fatal("Failed to load graduation year overrides", zap.Error(err))
	}

	m := metrics.NewManager()

	// Analytical store
	analyticsDB, err := database.OpenAnalytics(cfg.Analytics, log)
	if err != nil {
		log.Fatal("Failed to open analytical store", zap.Error(err))
	}
	defer analyticsDB.Close()

	if err := schema.NewManager(analyticsDB, log).EnsureSchema(context.Background()); err != nil {
		log.Fatal("Failed to create schema", zap.Error(err))
	}

	// Source store
	sourceDB, err := database.OpenSource(cfg.Source, log)
	if err != nil {
		log.Fatal("Failed to configure source store", zap.Error(err))
	}
	defer sourceDB.Close()

	syncLog := store.NewDuckDBStore(analyticsDB)
	engine := sync.NewEngine(
		sync.NewSourceReader(sourceDB, cfg.Source.Timeout, log, m),
		sync.NewWriter(analyticsDB, cfg.Sync.BatchInsertSize, log),
		syncLog, log, m,
	)
	syncManager := sync.NewManager(engine, cfg.Sync.Timeout, log)

	leaderboardCache := cache.New(cfg.Cache, log, m)
	defer leaderboardCache.Close()
	if err := leaderboardCache.Ping(context.Background()); err != nil {
		log.Warn("Leaderboard cache unreachable, serving uncached", zap.Error(err))
	}
	syncManager.AddHook(func(ctx context.Context, report *sync.Report) {
		if !report.AnySucceeded() {
			return
		}
		if err := leaderboardCache.Invalidate(context.WithoutCancel(ctx)); err != nil {
			log.Warn("Failed to invalidate leaderboard cache", zap.Error(err))
		}
	})

	if *syncOnce {
		code := runOnce(syncManager, cfg.Sync.Timeout, log)
		_ = leaderboardCache.Close()
		_ = sourceDB.Close()
		_ = analyticsDB.Close()
		logger.Sync()
		os.Exit(code)
	}

	scheduler := sync.NewScheduler(cfg.Scheduler, cfg.Sync, syncManager, log)
	if err := scheduler.Start(); err != nil {
		log.Fatal("Failed to start scheduler", zap.Error(err))
	}
	defer scheduler.Stop()

	// Init API
	handler := api.NewHandler(api.Deps{
		Sync:        syncManager,
		Store:       syncLog,
		Query:       query.New(analyticsDB, log),
		Leaderboard: analytics.NewEngine(analyticsDB, cfg.Leaderboard, overrides, log, m),
		Cache:       leaderboardCache,
		Metrics:     m,
		Server:      cfg.Server,
		Ranking:     cfg.Leaderboard,
		Log:         log,
	})

	// Start Server
	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      handler.Routes(),
		ReadTimeout:  cfg.Server.GetReadTimeout(),
		WriteTimeout: cfg.Server.GetWriteTimeout(),
	}

	go func() {
		log.Info("Server listening", zap.String("addr", serverAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error("Server shutdown failed", zap.Error(err))
	}
}

// runOnce performs a blocking full sync and returns the process exit code.
func runOnce(m *sync.Manager, timeout time.Duration, log *zap.Logger) int {
	ctx := context.Background()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	report, err := m.Run(ctx, nil)
	if report != nil {
		fmt.Println(report.String())
	}
	if err != nil {
		log.Error("Sync failed", zap.Error(err))
		return 1
	}
	return 0
}
