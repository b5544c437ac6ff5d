package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/sxk/signal-link/internal/config"
)

// DBTX is an interface that both *sqlx.DB and *sqlx.Tx satisfy.
type DBTX interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

var _ DBTX = (*sqlx.DB)(nil)
var _ DBTX = (*sqlx.Tx)(nil)

type DB struct {
	*sqlx.DB
}

func Connect(databaseURL string) (*DB, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(config.DBMaxOpenConns)
	db.SetMaxIdleConns(config.DBMaxIdleConns)
	db.SetConnMaxLifetime(config.DBConnMaxLifetime)

	return &DB{db}, nil
}

func (db *DB) Ping(ctx context.Context) error {
	return db.PingContext(ctx)
}

func (db *DB) Close() error {
	return db.DB.Close()
}

// Schema creates the shared pairing table. Each slot is both-or-neither.
const Schema = `
CREATE TABLE IF NOT EXISTS synced_locations (
	session_code         TEXT PRIMARY KEY,
	requester_lat        DOUBLE PRECISION,
	requester_lng        DOUBLE PRECISION,
	requester_updated_at TIMESTAMPTZ,
	partner_lat          DOUBLE PRECISION,
	partner_lng          DOUBLE PRECISION,
	partner_updated_at   TIMESTAMPTZ,
	is_synced            BOOLEAN NOT NULL DEFAULT FALSE,
	created_at           TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at           TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	CONSTRAINT requester_slot_complete CHECK ((requester_lat IS NULL) = (requester_lng IS NULL)),
	CONSTRAINT partner_slot_complete CHECK ((partner_lat IS NULL) = (partner_lng IS NULL))
);

CREATE INDEX IF NOT EXISTS idx_synced_locations_updated_at ON synced_locations (updated_at);
`

// Migrate applies Schema. It is idempotent.
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
