package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"go.uber.org/zap"

	"github.com/afasulo/htdashboard/internal/config"
)

// OpenAnalytics opens the embedded DuckDB replica. DuckDB allows one read-write
// instance per file, so the process keeps this single handle for its lifetime.
// An empty path or ":memory:" opens a private in-memory store.
func OpenAnalytics(cfg config.AnalyticsStore, log *zap.Logger) (*Database, error) {
	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}

	if dir := filepath.Dir(path); path != ":memory:" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
		}
	}

	threads := cfg.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	connStr := fmt.Sprintf("%s?threads=%d", path, threads)
	if cfg.MaxMemory != "" {
		connStr += "&max_memory=" + cfg.MaxMemory
	}

	db, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open analytics store: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping analytics store: %w", err)
	}

	db.SetMaxIdleConns(2)
	db.SetConnMaxIdleTime(5 * time.Minute)

	log.Info("Opened analytics store", zap.String("path", cfg.Path))

	return &Database{DB: db, Driver: "duckdb"}, nil
}
