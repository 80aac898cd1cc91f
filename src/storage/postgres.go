package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"market-relay/src/helpers"
	"market-relay/src/logger"
	"market-relay/src/models"

	_ "github.com/lib/pq"
)

// -----------------------------------------------------------------------------

// PostgresStore keeps snapshots in a schema named after the application.
type PostgresStore struct {
	Config *models.MConfig
	DB     *sql.DB
	Schema string
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewPostgresStore(cfg *models.MConfig, log *logger.Logger) *PostgresStore {
	return &PostgresStore{
		Config: cfg,
		Schema: schemaName(cfg.Name),
		Logger: log,
	}
}

// schemaName keeps [a-z0-9_] so the identifier never needs escaping.
func schemaName(app string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(app) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		case r == '-' || r == '.' || r == ' ':
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "market_relay"
	}
	return b.String()
}

// -----------------------------------------------------------------------------

func (d *PostgresStore) Initialize(ctx context.Context) error {
	db, err := sql.Open("postgres", d.Config.Storage.DBConnectionString)
	if err != nil {
		return helpers.NewDatabaseError("failed to open snapshot store", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return helpers.NewDatabaseError("failed to reach snapshot store", err)
	}
	d.DB = db

	// Create Schema
	if _, err := db.ExecContext(ctx, fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS "%s"`, d.Schema)); err != nil {
		return fmt.Errorf("failed to create schema %s: %w", d.Schema, err)
	}

	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS "%s"."quote_snapshots" (
			channel TEXT NOT NULL,
			symbol TEXT NOT NULL,
			price DOUBLE PRECISION,
			change DOUBLE PRECISION,
			change_percent DOUBLE PRECISION,
			volume DOUBLE PRECISION,
			timestamp_ms BIGINT,
			name TEXT,
			source TEXT,
			PRIMARY KEY (channel, symbol)
		);
	`, d.Schema)
	if _, err := db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create quote_snapshots: %w", err)
	}

	d.Logger.Info("PostgresStore initialized successfully (Schema: %s)", d.Schema)
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresStore) SaveQuotes(ctx context.Context, channel models.Channel, quotes []models.MQuote) error {
	if len(quotes) == 0 {
		return nil
	}

	tx, err := d.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := fmt.Sprintf(`
		INSERT INTO "%s"."quote_snapshots" (channel, symbol, price, change, change_percent, volume, timestamp_ms, name, source)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (channel, symbol) DO UPDATE SET
			price = EXCLUDED.price,
			change = EXCLUDED.change,
			change_percent = EXCLUDED.change_percent,
			volume = EXCLUDED.volume,
			timestamp_ms = EXCLUDED.timestamp_ms,
			name = EXCLUDED.name,
			source = EXCLUDED.source
	`, d.Schema)
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, q := range quotes {
		if _, err := stmt.ExecContext(ctx, string(channel), q.Symbol, q.Price, q.Change, q.ChangePercent, q.Volume, q.TimestampMs, q.Name, q.Source); err != nil {
			return fmt.Errorf("failed to save %s/%s: %w", channel, q.Symbol, err)
		}
	}
	return tx.Commit()
}

// -----------------------------------------------------------------------------

func (d *PostgresStore) LoadLatest(ctx context.Context, channel models.Channel) ([]models.MQuote, error) {
	rows, err := d.DB.QueryContext(ctx, fmt.Sprintf(`
		SELECT symbol, price, change, change_percent, volume, timestamp_ms, name, source
		FROM "%s"."quote_snapshots" WHERE channel = $1 ORDER BY symbol
	`, d.Schema), string(channel))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanQuotes(rows)
}

// -----------------------------------------------------------------------------

func (d *PostgresStore) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
