package storage

import (
	"context"
	"database/sql"
	"fmt"

	"market-relay/src/helpers"
	"market-relay/src/logger"
	"market-relay/src/models"

	_ "modernc.org/sqlite"
)

// -----------------------------------------------------------------------------

type SQLiteStore struct {
	Config *models.MConfig
	DB     *sql.DB
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewSQLiteStore(cfg *models.MConfig, log *logger.Logger) *SQLiteStore {
	return &SQLiteStore{
		Config: cfg,
		Logger: log,
	}
}

// -----------------------------------------------------------------------------

func (d *SQLiteStore) Initialize(ctx context.Context) error {
	dsn := d.Config.Storage.DBPath

	// Open DB
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return helpers.NewDatabaseError("failed to open snapshot store", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return helpers.NewDatabaseError("failed to reach snapshot store", err)
	}
	d.DB = db

	// PRAGMA optimizations
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode = WAL;"); err != nil {
		d.Logger.Warning("Failed to set WAL mode: %v", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA synchronous = NORMAL;"); err != nil {
		d.Logger.Warning("Failed to set synchronous mode: %v", err)
	}

	query := `
		CREATE TABLE IF NOT EXISTS quote_snapshots (
			channel TEXT NOT NULL,
			symbol TEXT NOT NULL,
			price REAL,
			change REAL,
			change_percent REAL,
			volume REAL,
			timestamp_ms INTEGER,
			name TEXT,
			source TEXT,
			PRIMARY KEY (channel, symbol)
		);
	`
	if _, err := db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create quote_snapshots: %w", err)
	}

	d.Logger.Info("SQLite snapshot store ready at %s", dsn)
	return nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteStore) SaveQuotes(ctx context.Context, channel models.Channel, quotes []models.MQuote) error {
	if len(quotes) == 0 {
		return nil
	}

	tx, err := d.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO quote_snapshots (channel, symbol, price, change, change_percent, volume, timestamp_ms, name, source)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (channel, symbol) DO UPDATE SET
			price = excluded.price,
			change = excluded.change,
			change_percent = excluded.change_percent,
			volume = excluded.volume,
			timestamp_ms = excluded.timestamp_ms,
			name = excluded.name,
			source = excluded.source
	`)
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

func (d *SQLiteStore) LoadLatest(ctx context.Context, channel models.Channel) ([]models.MQuote, error) {
	rows, err := d.DB.QueryContext(ctx, `
		SELECT symbol, price, change, change_percent, volume, timestamp_ms, name, source
		FROM quote_snapshots WHERE channel = ? ORDER BY symbol
	`, string(channel))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanQuotes(rows)
}

// -----------------------------------------------------------------------------

func (d *SQLiteStore) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}

// -----------------------------------------------------------------------------

func scanQuotes(rows *sql.Rows) ([]models.MQuote, error) {
	out := []models.MQuote{}
	for rows.Next() {
		var q models.MQuote
		var name, source sql.NullString
		if err := rows.Scan(&q.Symbol, &q.Price, &q.Change, &q.ChangePercent, &q.Volume, &q.TimestampMs, &name, &source); err != nil {
			return nil, err
		}
		q.Name, q.Source = name.String, source.String
		out = append(out, q)
	}
	return out, rows.Err()
}
