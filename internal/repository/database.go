package repository

import (
	"context"
	"errors"
	"fmt"

	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Global error declarations.
var (
	ErrAccountNotFound = errors.New("account not found")
)

// Database holds the connection pool and the opening balance granted to
// accounts created on first access.
type Database struct {
	conn           *pgxpool.Pool
	openingBalance decimal.Decimal
}

// NewDatabase creates a new Database instance, verifies connectivity and
// applies the schema.
func NewDatabase(ctx context.Context, dbURL string, openingBalance decimal.Decimal) (Database, error) {
	config, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return Database{}, fmt.Errorf("parse config: %w", err)
	}
	// Register shopspring decimal
	config.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	conn, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return Database{}, err
	}
	// Ensure the connection is established.
	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return Database{}, err
	}

	db := Database{conn: conn, openingBalance: openingBalance}
	if err := db.migrate(ctx); err != nil {
		conn.Close()
		return Database{}, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

func (db *Database) Close() {
	db.conn.Close()
}

func (db *Database) migrate(ctx context.Context) error {
	_, err := db.conn.Exec(ctx, `
CREATE TABLE IF NOT EXISTS accounts (
  username TEXT PRIMARY KEY,
  balance  NUMERIC NOT NULL CHECK (balance >= 0)
);
CREATE TABLE IF NOT EXISTS positions (
  id        BIGSERIAL PRIMARY KEY,
  username  TEXT NOT NULL REFERENCES accounts(username),
  symbol    TEXT NOT NULL,
  quantity  BIGINT NOT NULL CHECK (quantity > 0),
  avg_price NUMERIC NOT NULL CHECK (avg_price >= 0),
  UNIQUE (username, symbol)
);
CREATE TABLE IF NOT EXISTS trades (
  id          UUID PRIMARY KEY,
  username    TEXT NOT NULL REFERENCES accounts(username),
  symbol      TEXT NOT NULL,
  side        TEXT NOT NULL,
  quantity    BIGINT NOT NULL,
  price       NUMERIC NOT NULL,
  executed_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_trades_user_time ON trades (username, executed_at DESC);
`)
	return err
}
