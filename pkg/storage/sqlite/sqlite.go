package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"premiumflow/internal/premium/memorystore"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

const displayTimeLayout = "15:04:05"

const schema = `
CREATE TABLE IF NOT EXISTS premium_trade (
	trade_id    TEXT PRIMARY KEY,
	symbol      TEXT NOT NULL,
	ticker      TEXT NOT NULL,
	strike      REAL NOT NULL,
	expiration  TEXT NOT NULL,
	option_type TEXT NOT NULL,
	price       REAL NOT NULL,
	size        INTEGER NOT NULL,
	premium     REAL NOT NULL,
	exchange    TEXT NOT NULL DEFAULT '',
	condition   TEXT NOT NULL DEFAULT '',
	ts          INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_premium_trade_ts ON premium_trade (ts);
CREATE INDEX IF NOT EXISTS idx_premium_trade_ticker_ts ON premium_trade (ticker, ts);
`

// Store archives admitted trades in a local SQLite file.
type Store struct {
	db  *sql.DB
	loc *time.Location
}

// Open opens (or creates) the database at path and ensures the schema exists.
func Open(ctx context.Context, path string) (*Store, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create sqlite dir: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// a single writer avoids SQLITE_BUSY between pooled connections
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create sqlite schema: %w", err)
	}
	return &Store{db: db, loc: time.UTC}, nil
}

// SetLocation sets the zone RecentTrades renders Time in. Call before use.
func (s *Store) SetLocation(loc *time.Location) {
	if loc != nil {
		s.loc = loc
	}
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) IsHealthy(ctx context.Context) bool {
	return s.db.PingContext(ctx) == nil
}

// SaveTrade inserts t; an already archived trade ID is ignored.
func (s *Store) SaveTrade(ctx context.Context, t memorystore.Trade) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO premium_trade
			(trade_id, symbol, ticker, strike, expiration, option_type, price, size, premium, exchange, condition, ts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Symbol, t.Ticker, t.Strike, t.Expiration, t.OptionType,
		t.Price, t.Size, t.Premium, t.Exchange, t.Condition, t.Timestamp.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("insert trade %s: %w", t.ID, err)
	}
	return nil
}

func (s *Store) RecentTrades(ctx context.Context, ticker string, limit int) ([]memorystore.Trade, error) {
	if limit <= 0 {
		limit = -1 // no limit
	}

	query := `SELECT trade_id, symbol, ticker, strike, expiration, option_type, price, size, premium, exchange, condition, ts
		FROM premium_trade`
	args := []any{}
	if ticker != "" {
		query += ` WHERE ticker = ?`
		args = append(args, ticker)
	}
	query += ` ORDER BY ts DESC, rowid DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query recent trades: %w", err)
	}
	defer rows.Close()

	var out []memorystore.Trade
	for rows.Next() {
		var (
			t  memorystore.Trade
			ts int64
		)
		if err := rows.Scan(&t.ID, &t.Symbol, &t.Ticker, &t.Strike, &t.Expiration, &t.OptionType,
			&t.Price, &t.Size, &t.Premium, &t.Exchange, &t.Condition, &ts); err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		t.Timestamp = time.Unix(0, ts).UTC()
		t.Time = t.Timestamp.In(s.loc).Format(displayTimeLayout)
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM premium_trade WHERE ts < ?`, before.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("delete old trades: %w", err)
	}
	return res.RowsAffected()
}
