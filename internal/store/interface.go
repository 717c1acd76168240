package store

import (
	"context"
)

type Store interface {
	// Sync log
	AppendSyncLog(ctx context.Context, entry *SyncLogEntry) error
	ListSyncLogs(ctx context.Context, limit, offset int) ([]*SyncLogEntry, error)
	LastSuccessfulSync(ctx context.Context, tableName string) (*SyncLogEntry, error)
}
