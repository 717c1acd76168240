package store

import (
	"time"
)

const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// SyncLogEntry is one audit record: the outcome of replicating one table in one run.
type SyncLogEntry struct {
	ID           string    `db:"Id" json:"id"`
	RunID        string    `db:"RunId" json:"run_id"`
	TableName    string    `db:"TableName" json:"table_name"`
	LastSyncTime time.Time `db:"LastSyncTime" json:"last_sync_time"`
	RowsSynced   int64     `db:"RowsSynced" json:"rows_synced"`
	Status       string    `db:"Status" json:"status"`
	Message      string    `db:"Message" json:"message,omitempty"`
}
