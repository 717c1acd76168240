package sync

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/afasulo/htdashboard/internal/database"
	"github.com/afasulo/htdashboard/internal/metrics"
	"github.com/afasulo/htdashboard/internal/schema"
	"github.com/afasulo/htdashboard/internal/units"
)

const breakerName = "source"

// tripAfter is the number of consecutive failed source calls that opens the breaker.
const tripAfter = 5

// SourceReader pulls snapshots from the operational store. Every call is bounded
// by the configured timeout and goes through a circuit breaker.
type SourceReader struct {
	db      *database.Database
	timeout time.Duration
	cb      *gobreaker.CircuitBreaker[any]
	log     *zap.Logger
}

func NewSourceReader(db *database.Database, timeout time.Duration, log *zap.Logger, m *metrics.Manager) *SourceReader {
	m.SetBreakerState(breakerName, 0)

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Interval:    0,
		Timeout:     time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= tripAfter
		},
		// Bad data is not a connectivity problem.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, units.ErrMalformed)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("Source circuit breaker state change",
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			m.SetBreakerState(name, stateToFloat(to))
		},
	})

	return &SourceReader{db: db, timeout: timeout, cb: cb, log: log}
}

func stateToFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	}
	return 0
}

func (r *SourceReader) execute(ctx context.Context, fn func(ctx context.Context) (any, error)) (any, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	result, err := r.cb.Execute(func() (any, error) {
		return fn(ctx)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}
	return result, err
}

// CountUsers is the minimal read used as a connectivity probe.
func (r *SourceReader) CountUsers(ctx context.Context) (int64, error) {
	query := "SELECT COUNT(*) FROM " + r.quote(schema.Users.Name)
	result, err := r.execute(ctx, func(ctx context.Context) (any, error) {
		var n int64
		err := r.db.DB.QueryRowContext(ctx, query).Scan(&n)
		return n, err
	})
	if err != nil {
		return 0, err
	}
	return result.(int64), nil
}

// Read fetches every row of table, or only rows with TimeStamp >= since when
// since is set, coerced to the analytical column types.
func (r *SourceReader) Read(ctx context.Context, table schema.Table, since *time.Time) (*units.Batch, error) {
	query, args := r.selectQuery(table, since)

	result, err := r.execute(ctx, func(ctx context.Context) (any, error) {
		return r.read(ctx, table, query, args)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read %s from source: %w", table.Name, err)
	}
	return result.(*units.Batch), nil
}

func (r *SourceReader) read(ctx context.Context, table schema.Table, query string, args []any) (*units.Batch, error) {
	rows, err := r.db.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	batch := &units.Batch{Columns: table.ColumnNames()}
	for rows.Next() {
		raw := make([]any, len(table.Columns))
		dest := make([]any, len(raw))
		for i := range raw {
			dest[i] = &raw[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		for i, c := range table.Columns {
			v, err := coerce(raw[i], c.Type)
			if err != nil {
				return nil, fmt.Errorf("row %d column %s: %w", len(batch.Rows), c.Name, err)
			}
			raw[i] = v
		}
		batch.Rows = append(batch.Rows, raw)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	r.log.Debug("Read source table", zap.String("table", table.Name), zap.Int("rows", batch.Len()))
	return batch, nil
}

func (r *SourceReader) selectQuery(table schema.Table, since *time.Time) (string, []any) {
	cols := make([]string, len(table.Columns))
	for i, c := range table.Columns {
		cols[i] = r.quote(c.Name)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s", strings.Join(cols, ", "), r.quote(table.Name))
	if since == nil {
		return b.String(), nil
	}
	fmt.Fprintf(&b, " WHERE %s >= %s", r.quote("TimeStamp"), r.placeholder())
	return b.String(), []any{*since}
}

func (r *SourceReader) quote(name string) string {
	if r.db.Driver == "sqlserver" {
		return "[" + name + "]"
	}
	return "`" + name + "`"
}

func (r *SourceReader) placeholder() string {
	if r.db.Driver == "sqlserver" {
		return "@p1"
	}
	return "?"
}
