// Package migrations holds the embedded database schema. Statements are
// idempotent and applied in order on startup.
package migrations

import (
	"context"
	"database/sql"
	"fmt"
)

// Statements is the ordered schema DDL. Every statement uses IF NOT EXISTS so
// Apply can run on every boot.
var Statements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		theme TEXT NOT NULL DEFAULT '',
		broker_key TEXT NOT NULL DEFAULT '',
		broker_secret TEXT NOT NULL DEFAULT '',
		live_trading BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS subscriptions (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL UNIQUE REFERENCES users(id) ON DELETE CASCADE,
		tier TEXT NOT NULL,
		status TEXT NOT NULL,
		current_period_end TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS analyses (
		id UUID PRIMARY KEY,
		symbol TEXT NOT NULL,
		asset_type TEXT NOT NULL,
		recommendation TEXT NOT NULL,
		confidence INTEGER NOT NULL,
		reasoning TEXT NOT NULL DEFAULT '',
		technical_score INTEGER NOT NULL DEFAULT 0,
		fundamental_score INTEGER,
		sentiment_score INTEGER NOT NULL DEFAULT 0,
		risk_level TEXT NOT NULL,
		target_price DOUBLE PRECISION,
		stop_loss DOUBLE PRECISION,
		data_source JSONB,
		created_at TIMESTAMPTZ NOT NULL,
		expires_at TIMESTAMPTZ NOT NULL,
		UNIQUE (symbol, asset_type)
	)`,
	`CREATE TABLE IF NOT EXISTS portfolios (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL UNIQUE REFERENCES users(id) ON DELETE CASCADE,
		cash_balance DOUBLE PRECISION NOT NULL,
		initial_balance DOUBLE PRECISION NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS trades (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		symbol TEXT NOT NULL,
		asset_type TEXT NOT NULL,
		action TEXT NOT NULL,
		quantity DOUBLE PRECISION NOT NULL,
		price DOUBLE PRECISION NOT NULL,
		total_value DOUBLE PRECISION NOT NULL,
		fee DOUBLE PRECISION NOT NULL,
		status TEXT NOT NULL,
		order_type TEXT NOT NULL,
		limit_price DOUBLE PRECISION,
		stop_price DOUBLE PRECISION,
		time_in_force TEXT NOT NULL DEFAULT 'day',
		executed_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS watchlist_items (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		symbol TEXT NOT NULL,
		asset_type TEXT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		added_at TIMESTAMPTZ NOT NULL,
		UNIQUE (user_id, symbol)
	)`,
	`CREATE TABLE IF NOT EXISTS alerts (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		symbol TEXT NOT NULL,
		asset_type TEXT NOT NULL,
		condition TEXT NOT NULL,
		target_price DOUBLE PRECISION NOT NULL,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		triggered BOOLEAN NOT NULL DEFAULT FALSE,
		triggered_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		title TEXT NOT NULL,
		message TEXT NOT NULL,
		type TEXT NOT NULL,
		data JSONB,
		read BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS chat_messages (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		feedback INTEGER,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS recommendations (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		symbol TEXT NOT NULL,
		asset_type TEXT NOT NULL,
		action TEXT NOT NULL,
		confidence INTEGER NOT NULL,
		reasoning TEXT NOT NULL DEFAULT '',
		viewed BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL
	)`,
}

// Apply executes every statement in order, stopping at the first failure.
func Apply(ctx context.Context, db *sql.DB) error {
	for i, stmt := range Statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
	}
	return nil
}
