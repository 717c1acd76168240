package sync

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/afasulo/htdashboard/internal/database"
	"github.com/afasulo/htdashboard/internal/schema"
	"github.com/afasulo/htdashboard/internal/units"
)

const defaultBatchSize = 500

// Writer replaces whole tables in the analytical store.
type Writer struct {
	target    *database.Database
	batchSize int
	log       *zap.Logger
}

func NewWriter(target *database.Database, batchSize int, log *zap.Logger) *Writer {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Writer{target: target, batchSize: batchSize, log: log}
}

// Replace swaps the table's content for batch in one transaction. On any error the
// previous content is kept.
func (w *Writer) Replace(ctx context.Context, table schema.Table, batch *units.Batch) (int64, error) {
	if err := checkColumns(table, batch); err != nil {
		return 0, err
	}

	var written int64
	err := w.target.ExecTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+schema.Quote(table.Name)); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table.Name, err)
		}

		for start := 0; start < len(batch.Rows); start += w.batchSize {
			end := min(start+w.batchSize, len(batch.Rows))
			query, args := insertStatement(table, batch.Rows[start:end])
			res, err := tx.ExecContext(ctx, query, args...)
			if err != nil {
				return fmt.Errorf("failed to insert %s rows %d-%d: %w", table.Name, start, end, err)
			}
			if n, err := res.RowsAffected(); err == nil {
				written += n
			} else {
				written += int64(end - start)
			}
			w.log.Debug("Inserted batch",
				zap.String("table", table.Name),
				zap.Int("from", start),
				zap.Int("to", end),
			)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return written, nil
}

func checkColumns(table schema.Table, batch *units.Batch) error {
	if len(batch.Columns) != len(table.Columns) {
		return fmt.Errorf("%s batch has %d columns, table has %d", table.Name, len(batch.Columns), len(table.Columns))
	}
	for i, c := range table.Columns {
		if batch.Columns[i] != c.Name {
			return fmt.Errorf("%s batch column %d is %s, want %s", table.Name, i, batch.Columns[i], c.Name)
		}
	}
	return nil
}

func insertStatement(table schema.Table, rows [][]any) (string, []any) {
	tuple := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(table.Columns)), ", ") + ")"

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES ", schema.Quote(table.Name), table.SelectList())

	args := make([]any, 0, len(rows)*len(table.Columns))
	for i, row := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(tuple)
		args = append(args, row...)
	}
	return b.String(), args
}
