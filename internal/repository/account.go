package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"paperbroker/types"
)

// GetOrCreate loads an account, creating it with the opening balance if the
// username is unknown. Balance and positions are read inside one repeatable
// read transaction so a concurrent trade can never produce a torn snapshot.
func (db *Database) GetOrCreate(ctx context.Context, username string) (types.Account, error) {
	tx, err := db.conn.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return types.Account{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := db.ensureAccount(ctx, tx, username); err != nil {
		return types.Account{}, err
	}

	acct, err := loadAccount(ctx, tx, username, false)
	if err != nil {
		return types.Account{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return types.Account{}, fmt.Errorf("commit: %w", err)
	}
	return acct, nil
}

// Update runs fn against the stored account inside a single transaction. The
// account row is locked with SELECT ... FOR UPDATE for the duration, so two
// trades racing on one user serialize instead of losing an update. If fn
// fails the transaction rolls back and nothing is persisted.
func (db *Database) Update(ctx context.Context, username string, fn func(types.Account) (types.Account, []types.Trade, error)) (types.Account, error) {
	tx, err := db.conn.Begin(ctx)
	if err != nil {
		return types.Account{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := db.ensureAccount(ctx, tx, username); err != nil {
		return types.Account{}, err
	}

	acct, err := loadAccount(ctx, tx, username, true)
	if err != nil {
		return types.Account{}, err
	}

	next, trades, err := fn(acct)
	if err != nil {
		return types.Account{}, err
	}

	if _, err := tx.Exec(ctx,
		`UPDATE accounts SET balance = $2 WHERE username = $1`,
		username, next.Balance,
	); err != nil {
		return types.Account{}, fmt.Errorf("update balance: %w", err)
	}

	// Positions are rewritten in slice order; BIGSERIAL ids keep the
	// first-purchase ordering stable across rewrites.
	if _, err := tx.Exec(ctx, `DELETE FROM positions WHERE username = $1`, username); err != nil {
		return types.Account{}, fmt.Errorf("clear positions: %w", err)
	}
	for _, pos := range next.Positions {
		if _, err := tx.Exec(ctx,
			`INSERT INTO positions (username, symbol, quantity, avg_price) VALUES ($1, $2, $3, $4)`,
			username, pos.Symbol, pos.Quantity, pos.AvgPrice,
		); err != nil {
			return types.Account{}, fmt.Errorf("insert position %s: %w", pos.Symbol, err)
		}
	}

	for _, t := range trades {
		if _, err := tx.Exec(ctx,
			`INSERT INTO trades (id, username, symbol, side, quantity, price, executed_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			t.ID, t.Username, t.Symbol, string(t.Side), t.Quantity, t.Price, t.ExecutedAt,
		); err != nil {
			return types.Account{}, fmt.Errorf("insert trade %s: %w", t.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return types.Account{}, fmt.Errorf("commit: %w", err)
	}
	return next, nil
}

// ListTrades returns the user's journal, newest first. Auto-create is
// disabled here: history for a never-seen user is ErrAccountNotFound.
func (db *Database) ListTrades(ctx context.Context, username string) ([]types.Trade, error) {
	var exists bool
	if err := db.conn.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM accounts WHERE username = $1)`, username,
	).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check account: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("username %s: %w", username, ErrAccountNotFound)
	}

	rows, err := db.conn.Query(ctx,
		`SELECT id, username, symbol, side, quantity, price, executed_at
		 FROM trades WHERE username = $1 ORDER BY executed_at DESC, id`,
		username,
	)
	if err != nil {
		return nil, fmt.Errorf("query trades: %w", err)
	}
	defer rows.Close()

	var trades []types.Trade
	for rows.Next() {
		var t types.Trade
		var side string
		if err := rows.Scan(&t.ID, &t.Username, &t.Symbol, &side, &t.Quantity, &t.Price, &t.ExecutedAt); err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		t.Side = types.Side(side)
		trades = append(trades, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read trades: %w", err)
	}
	return trades, nil
}

// ensureAccount upserts the account row with the default opening balance.
func (db *Database) ensureAccount(ctx context.Context, tx pgx.Tx, username string) error {
	if _, err := tx.Exec(ctx,
		`INSERT INTO accounts (username, balance) VALUES ($1, $2) ON CONFLICT (username) DO NOTHING`,
		username, db.openingBalance,
	); err != nil {
		return fmt.Errorf("ensure account %s: %w", username, err)
	}
	return nil
}

func loadAccount(ctx context.Context, tx pgx.Tx, username string, forUpdate bool) (types.Account, error) {
	query := `SELECT balance FROM accounts WHERE username = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	acct := types.Account{Username: username}
	if err := tx.QueryRow(ctx, query, username).Scan(&acct.Balance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return types.Account{}, fmt.Errorf("username %s: %w", username, ErrAccountNotFound)
		}
		return types.Account{}, fmt.Errorf("load account %s: %w", username, err)
	}

	rows, err := tx.Query(ctx,
		`SELECT symbol, quantity, avg_price FROM positions WHERE username = $1 ORDER BY id`,
		username,
	)
	if err != nil {
		return types.Account{}, fmt.Errorf("query positions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var pos types.Position
		if err := rows.Scan(&pos.Symbol, &pos.Quantity, &pos.AvgPrice); err != nil {
			return types.Account{}, fmt.Errorf("scan position: %w", err)
		}
		acct.Positions = append(acct.Positions, pos)
	}
	if err := rows.Err(); err != nil {
		return types.Account{}, fmt.Errorf("read positions: %w", err)
	}
	return acct, nil
}
