package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/afasulo/htdashboard/internal/database"
)

// DuckDBStore keeps the sync log next to the replicated tables. It borrows the
// analytical store handle and never closes it.
type DuckDBStore struct {
	db *sql.DB
}

func NewDuckDBStore(db *database.Database) *DuckDBStore {
	return &DuckDBStore{db: db.DB}
}

const syncLogColumns = `"Id", "RunId", "TableName", "LastSyncTime", "RowsSynced", "Status", "Message"`

// AppendSyncLog inserts the entry, filling ID and LastSyncTime when unset.
func (s *DuckDBStore) AppendSyncLog(ctx context.Context, entry *SyncLogEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.LastSyncTime.IsZero() {
		entry.LastSyncTime = time.Now().UTC()
	}

	var message sql.NullString
	if entry.Message != "" {
		message = sql.NullString{String: entry.Message, Valid: true}
	}

	query := `INSERT INTO "SyncLog" (` + syncLogColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		entry.ID,
		entry.RunID,
		entry.TableName,
		entry.LastSyncTime,
		entry.RowsSynced,
		entry.Status,
		message,
	)
	if err != nil {
		return fmt.Errorf("failed to append sync log for %s: %w", entry.TableName, err)
	}
	return nil
}

// ListSyncLogs returns entries newest first.
func (s *DuckDBStore) ListSyncLogs(ctx context.Context, limit, offset int) ([]*SyncLogEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + syncLogColumns + ` FROM "SyncLog"
			  ORDER BY "LastSyncTime" DESC, "TableName" LIMIT ? OFFSET ?`

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []*SyncLogEntry{}
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// LastSuccessfulSync returns nil, nil when the table never synced successfully.
func (s *DuckDBStore) LastSuccessfulSync(ctx context.Context, tableName string) (*SyncLogEntry, error) {
	query := `SELECT ` + syncLogColumns + ` FROM "SyncLog"
			  WHERE "TableName" = ? AND "Status" = ?
			  ORDER BY "LastSyncTime" DESC LIMIT 1`

	entry, err := scanEntry(s.db.QueryRowContext(ctx, query, tableName, StatusSuccess))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return entry, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (*SyncLogEntry, error) {
	var (
		entry   SyncLogEntry
		message sql.NullString
	)
	err := row.Scan(
		&entry.ID,
		&entry.RunID,
		&entry.TableName,
		&entry.LastSyncTime,
		&entry.RowsSynced,
		&entry.Status,
		&message,
	)
	if err != nil {
		return nil, err
	}
	entry.Message = message.String
	return &entry, nil
}
