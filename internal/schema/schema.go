package schema

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/afasulo/htdashboard/internal/database"
)

// SyncLogTable is the audit table written once per replicated table per run.
const SyncLogTable = "SyncLog"

type Manager struct {
	db  *database.Database
	log *zap.Logger
}

func NewManager(db *database.Database, log *zap.Logger) *Manager {
	return &Manager{db: db, log: log}
}

// Statements returns the DDL in creation order: tables, indexes, views.
func Statements() []string {
	stmts := make([]string, 0, len(Tables)*2+1+len(indexes))
	for _, t := range Tables {
		stmts = append(stmts, t.CreateSQL())
	}
	stmts = append(stmts, syncLogDDL)
	for _, idx := range indexes {
		stmts = append(stmts, idx.sql())
	}
	for _, t := range Tables {
		stmts = append(stmts, t.ViewSQL())
	}
	return stmts
}

// EnsureSchema creates every missing table, index and view in one transaction.
// Existing objects are left as they are.
func (m *Manager) EnsureSchema(ctx context.Context) error {
	stmts := Statements()
	err := m.db.ExecTx(ctx, func(tx *sql.Tx) error {
		for _, stmt := range stmts {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("failed to execute %q: %w", firstLine(stmt), err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}

	m.log.Info("Schema ensured", zap.Int("statements", len(stmts)))
	return nil
}

// Objects lists the user-defined objects present in the analytical store.
type Objects struct {
	Tables  []string `json:"tables"`
	Views   []string `json:"views"`
	Indexes []string `json:"indexes"`
}

func (m *Manager) Objects(ctx context.Context) (*Objects, error) {
	var (
		out Objects
		err error
	)
	if out.Tables, err = m.names(ctx,
		`SELECT table_name FROM duckdb_tables() WHERE NOT internal ORDER BY table_name`); err != nil {
		return nil, err
	}
	if out.Views, err = m.names(ctx,
		`SELECT view_name FROM duckdb_views() WHERE NOT internal ORDER BY view_name`); err != nil {
		return nil, err
	}
	if out.Indexes, err = m.names(ctx,
		`SELECT index_name FROM duckdb_indexes() ORDER BY index_name`); err != nil {
		return nil, err
	}
	return &out, nil
}

func (m *Manager) names(ctx context.Context, query string) ([]string, error) {
	rows, err := m.db.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list objects: %w", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

func firstLine(stmt string) string {
	for i, r := range stmt {
		if r == '\n' || r == '(' {
			return stmt[:i]
		}
	}
	return stmt
}
