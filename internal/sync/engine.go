package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/afasulo/htdashboard/internal/metrics"
	"github.com/afasulo/htdashboard/internal/schema"
	"github.com/afasulo/htdashboard/internal/store"
	"github.com/afasulo/htdashboard/internal/units"
)

// Engine replicates Users, Session and Plays from the source into the analytical
// store, one full-table replace per entity.
type Engine struct {
	source  *SourceReader
	writer  *Writer
	store   store.Store
	log     *zap.Logger
	metrics *metrics.Manager
	now     func() time.Time
}

func NewEngine(source *SourceReader, writer *Writer, st store.Store, log *zap.Logger, m *metrics.Manager) *Engine {
	return &Engine{
		source:  source,
		writer:  writer,
		store:   st,
		log:     log,
		metrics: m,
		now:     time.Now,
	}
}

// TestSourceConnection runs a minimal read against the source. It never fails
// loudly; the outcome is logged.
func (e *Engine) TestSourceConnection(ctx context.Context) bool {
	n, err := e.source.CountUsers(ctx)
	if err != nil {
		e.log.Warn("Source connection test failed", zap.Error(err))
		return false
	}
	e.log.Info("Source connection ok", zap.Int64("users", n))
	return true
}

func (e *Engine) SyncUsers(ctx context.Context) (int64, error) {
	return e.syncTable(ctx, uuid.New().String(), schema.Users, nil)
}

func (e *Engine) SyncSessions(ctx context.Context, since *time.Time) (int64, error) {
	return e.syncTable(ctx, uuid.New().String(), schema.Session, since)
}

func (e *Engine) SyncPlays(ctx context.Context, since *time.Time) (int64, error) {
	return e.syncTable(ctx, uuid.New().String(), schema.Plays, since)
}

// SyncAll replicates users, sessions and plays in that order. It stops before
// touching any table when the source is unreachable. A failed table does not stop
// the following ones; the returned error then wraps ErrPartialSync.
func (e *Engine) SyncAll(ctx context.Context, since *time.Time) (*Report, error) {
	report := &Report{
		RunID:     uuid.New().String(),
		Since:     since,
		StartedAt: e.now(),
	}
	log := e.log.With(zap.String("run_id", report.RunID))

	if !e.TestSourceConnection(ctx) {
		report.FinishedAt = e.now()
		e.metrics.RecordRun(OutcomeAborted)
		log.Error("Aborting sync, source unavailable")
		return report, ErrSourceUnavailable
	}

	log.Info("Starting sync", zap.Bool("full", since == nil))

	var errs []error
	for _, table := range schema.Tables {
		cutoff := since
		if table.Name == schema.Users.Name {
			cutoff = nil
		}

		start := e.now()
		rows, err := e.syncTable(ctx, report.RunID, table, cutoff)
		result := TableResult{
			Table:    table.Name,
			Rows:     rows,
			Status:   store.StatusSuccess,
			Duration: e.now().Sub(start),
		}
		if err != nil {
			result.Status = store.StatusFailure
			result.Error = err.Error()
			errs = append(errs, fmt.Errorf("%s: %w", table.Name, err))
		}
		report.Tables = append(report.Tables, result)
	}
	report.FinishedAt = e.now()

	if len(errs) > 0 {
		e.metrics.RecordRun(OutcomePartial)
		log.Warn("Sync finished with failures", zap.Int("failed", len(errs)))
		return report, fmt.Errorf("%w: %w", ErrPartialSync, errors.Join(errs...))
	}

	e.metrics.RecordRun(OutcomeSuccess)
	log.Info("Sync complete", zap.Duration("elapsed", report.FinishedAt.Sub(report.StartedAt)))
	return report, nil
}

// syncTable replicates one table and appends its SyncLog entry either way.
func (e *Engine) syncTable(ctx context.Context, runID string, table schema.Table, since *time.Time) (int64, error) {
	log := e.log.With(zap.String("run_id", runID), zap.String("table", table.Name))
	start := time.Now()

	rows, err := e.replicate(ctx, table, since)
	e.metrics.RecordTable(table.Name, rows, time.Since(start), err)

	entry := &store.SyncLogEntry{
		RunID:        runID,
		TableName:    table.Name,
		LastSyncTime: e.now(),
		RowsSynced:   rows,
		Status:       store.StatusSuccess,
	}
	if err != nil {
		entry.Status = store.StatusFailure
		entry.Message = err.Error()
		log.Error("Table sync failed", zap.Error(err))
	} else {
		log.Info("Table synced", zap.Int64("rows", rows))
	}

	// The entry is written even when ctx was cancelled mid-sync.
	if logErr := e.store.AppendSyncLog(context.WithoutCancel(ctx), entry); logErr != nil {
		log.Error("Failed to write sync log", zap.Error(logErr))
	}
	return rows, err
}

func (e *Engine) replicate(ctx context.Context, table schema.Table, since *time.Time) (int64, error) {
	batch, err := e.source.Read(ctx, table, since)
	if err != nil {
		return 0, err
	}

	// Users carry no per-row measurements here; their height and weight are only
	// converted by UsersConverted.
	if table.Name != schema.Users.Name {
		batch = units.FillMissing(batch)
	}

	return e.writer.Replace(ctx, table, batch)
}
