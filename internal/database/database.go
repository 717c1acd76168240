package database

import (
	"context"
	"database/sql"
	"fmt"
)

type Database struct {
	DB     *sql.DB
	Driver string
}

// Wrap adopts an already open handle, e.g. one produced by sqlmock in tests.
func Wrap(db *sql.DB, driver string) *Database {
	return &Database{DB: db, Driver: driver}
}

func (d *Database) Close() error {
	return d.DB.Close()
}

// ExecTx executes a function within a transaction
func (d *Database) ExecTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := d.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("tx err: %v, rb err: %v", err, rbErr)
		}
		return err
	}

	return tx.Commit()
}
