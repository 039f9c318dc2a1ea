package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"AssetDash/internal/model"
)

// SQLiteStore persists price rows to a single SQLite file.
type SQLiteStore struct {
	db   *sql.DB
	path string
	mu   sync.Mutex // serializes writes
	now  func() time.Time
}

// NewSQLiteStore opens (or creates) the database at path and runs migrations.
// The parent directory is created when missing.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); path != ":memory:" && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, wrap("open", "", fmt.Errorf("create db dir: %w", err))
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, wrap("open", "", err)
	}
	if path == ":memory:" {
		// every connection of an in-memory database is a separate database
		db.SetMaxOpenConns(1)
	}

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, wrap("open", "", fmt.Errorf("%s: %w", pragma, err))
		}
	}

	s := &SQLiteStore{db: db, path: path, now: time.Now}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, wrap("migrate", "", err)
	}

	log.Info().Str("path", path).Msg("sqlite store opened")
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS asset_prices (
			symbol     TEXT NOT NULL,
			date       TEXT NOT NULL,
			open       REAL NOT NULL,
			high       REAL NOT NULL,
			low        REAL NOT NULL,
			close      REAL NOT NULL,
			volume     INTEGER NOT NULL DEFAULT 0,
			updated_at TEXT NOT NULL,
			PRIMARY KEY (symbol, date)
		)`,

		`CREATE TABLE IF NOT EXISTS coverage (
			symbol     TEXT NOT NULL,
			start_date TEXT NOT NULL,
			end_date   TEXT NOT NULL,
			fetched_at TEXT NOT NULL,
			PRIMARY KEY (symbol, start_date, end_date)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_coverage_symbol ON coverage(symbol)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, symbol string, rng model.DateRange) ([]model.PriceRow, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT date, open, high, low, close, volume
		FROM asset_prices
		WHERE symbol = ? AND date BETWEEN ? AND ?
		ORDER BY date ASC`,
		symbol, rng.Start.Format(model.DateLayout), rng.End.Format(model.DateLayout))
	if err != nil {
		return nil, wrap("get", symbol, err)
	}
	defer rows.Close()

	out, err := scanRows(rows, symbol)
	return out, wrap("get", symbol, err)
}

func (s *SQLiteStore) Put(ctx context.Context, symbol string, rows []model.PriceRow) error {
	if len(rows) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrap("put", symbol, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO asset_prices
		(symbol, date, open, high, low, close, volume, updated_at)
		VALUES (?,?,?,?,?,?,?,?)
		ON CONFLICT(symbol, date) DO UPDATE SET
			open = excluded.open,
			high = excluded.high,
			low = excluded.low,
			close = excluded.close,
			volume = excluded.volume,
			updated_at = excluded.updated_at`)
	if err != nil {
		return wrap("put", symbol, err)
	}
	defer stmt.Close()

	updated := s.now().UTC().Format(time.DateTime)
	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, symbol, model.Day(r.Date).Format(model.DateLayout),
			r.Open, r.High, r.Low, r.Close, r.Volume, updated); err != nil {
			return wrap("put", symbol, err)
		}
	}
	return wrap("put", symbol, tx.Commit())
}

func (s *SQLiteStore) MarkCovered(ctx context.Context, symbol string, rng model.DateRange) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO coverage
		(symbol, start_date, end_date, fetched_at) VALUES (?,?,?,?)`,
		symbol, rng.Start.Format(model.DateLayout), rng.End.Format(model.DateLayout),
		s.now().UTC().Format(time.DateTime))
	return wrap("mark covered", symbol, err)
}

func (s *SQLiteStore) CoveredRanges(ctx context.Context, symbol string) ([]model.DateRange, error) {
	ranges, err := s.coverage(ctx, symbol)
	if err != nil {
		return nil, wrap("covered ranges", symbol, err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT date FROM asset_prices WHERE symbol = ? ORDER BY date`, symbol)
	if err != nil {
		return nil, wrap("covered ranges", symbol, err)
	}
	defer rows.Close()

	var dates []time.Time
	for rows.Next() {
		var ds string
		if err := rows.Scan(&ds); err != nil {
			return nil, wrap("covered ranges", symbol, err)
		}
		d, err := model.ParseDate(ds)
		if err != nil {
			return nil, wrap("covered ranges", symbol, err)
		}
		dates = append(dates, d)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("covered ranges", symbol, err)
	}
	return covered(ranges, dates), nil
}

func (s *SQLiteStore) coverage(ctx context.Context, symbol string) ([]model.DateRange, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT start_date, end_date FROM coverage WHERE symbol = ?`, symbol)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ranges []model.DateRange
	for rows.Next() {
		var start, end string
		if err := rows.Scan(&start, &end); err != nil {
			return nil, err
		}
		from, err := model.ParseDate(start)
		if err != nil {
			return nil, err
		}
		to, err := model.ParseDate(end)
		if err != nil {
			return nil, err
		}
		rng, err := model.NewDateRange(from, to)
		if err != nil {
			return nil, err
		}
		ranges = append(ranges, rng)
	}
	return ranges, rows.Err()
}

func (s *SQLiteStore) Last(ctx context.Context, symbol string, n int) ([]model.PriceRow, error) {
	if n <= 0 {
		return []model.PriceRow{}, nil
	}
	rows, err := s.db.QueryContext(ctx, `SELECT date, open, high, low, close, volume FROM (
			SELECT * FROM asset_prices WHERE symbol = ? ORDER BY date DESC LIMIT ?
		) ORDER BY date ASC`, symbol, n)
	if err != nil {
		return nil, wrap("last", symbol, err)
	}
	defer rows.Close()

	out, err := scanRows(rows, symbol)
	return out, wrap("last", symbol, err)
}

func (s *SQLiteStore) Stats(ctx context.Context) ([]SymbolStats, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT symbol, COUNT(*), MIN(date), MAX(date)
		FROM asset_prices
		GROUP BY symbol
		ORDER BY symbol`)
	if err != nil {
		return nil, wrap("stats", "", err)
	}
	defer rows.Close()

	var stats []SymbolStats
	for rows.Next() {
		var st SymbolStats
		var minDate, maxDate string
		if err := rows.Scan(&st.Symbol, &st.Rows, &minDate, &maxDate); err != nil {
			return nil, wrap("stats", "", err)
		}
		if st.MinDate, err = model.ParseDate(minDate); err != nil {
			return nil, wrap("stats", st.Symbol, err)
		}
		if st.MaxDate, err = model.ParseDate(maxDate); err != nil {
			return nil, wrap("stats", st.Symbol, err)
		}
		stats = append(stats, st)
	}
	return stats, wrap("stats", "", rows.Err())
}

func (s *SQLiteStore) Reset(ctx context.Context, symbol string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrap("reset", symbol, err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		`DELETE FROM asset_prices WHERE symbol = ?`,
		`DELETE FROM coverage WHERE symbol = ?`,
	} {
		if _, err := tx.ExecContext(ctx, stmt, symbol); err != nil {
			return wrap("reset", symbol, err)
		}
	}
	return wrap("reset", symbol, tx.Commit())
}

func (s *SQLiteStore) Close() error {
	log.Info().Str("path", s.path).Msg("closing sqlite store")
	return s.db.Close()
}

func scanRows(rows *sql.Rows, symbol string) ([]model.PriceRow, error) {
	out := []model.PriceRow{}
	for rows.Next() {
		var ds string
		r := model.PriceRow{Symbol: symbol}
		if err := rows.Scan(&ds, &r.Open, &r.High, &r.Low, &r.Close, &r.Volume); err != nil {
			return nil, err
		}
		d, err := model.ParseDate(ds)
		if err != nil {
			return nil, err
		}
		r.Date = d
		out = append(out, r)
	}
	return out, rows.Err()
}
