package utils

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	// registers the "pgx" database/sql driver
	_ "github.com/jackc/pgx/v5/stdlib"
)

const PostgresDriver = "pgx"

const postgresPingTimeout = 5 * time.Second

// PostgresPool sizes the database/sql pool. Values come from config, which
// fills in defaults.
type PostgresPool struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

func (p PostgresPool) apply(db *sql.DB) {
	db.SetMaxOpenConns(p.MaxOpenConns)
	db.SetMaxIdleConns(p.MaxIdleConns)
	db.SetConnMaxLifetime(p.ConnMaxLifetime)
	db.SetConnMaxIdleTime(p.ConnMaxIdleTime)
}

// OpenPostgres opens a handle through the pgx stdlib driver and pings it.
// dsn carries the password and must not be logged.
func OpenPostgres(ctx context.Context, dsn string, pool PostgresPool) (*sql.DB, error) {
	db, err := sql.Open(PostgresDriver, dsn)
	if err != nil {
		return nil, err
	}
	pool.apply(db)

	if err := Ping(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Ping reports whether the database answers within a short deadline.
func Ping(ctx context.Context, db *sql.DB) error {
	ctx, cancel := context.WithTimeout(ctx, postgresPingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("postgres ping: %w", err)
	}
	return nil
}

// TxFunc is the unit of work executed inside a transaction.
type TxFunc func(ctx context.Context, tx *sql.Tx) error

// WithTx commits when fn returns nil and rolls back otherwise, panics
// included. fn's error is returned unchanged.
func WithTx(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn TxFunc) error {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return err
	}
	done := false
	defer func() {
		if !done {
			_ = tx.Rollback()
		}
	}()

	if err := fn(ctx, tx); err != nil {
		return err
	}
	done = true
	return tx.Commit()
}
