package analytics

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	_ "modernc.org/sqlite"
)

// Store persists visits in SQLite.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the analytics database at path.
func NewStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open analytics db: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(time.Hour)

	if _, err := db.Exec(`PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000;`); err != nil {
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS visits (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			visitor_id TEXT NOT NULL,
			session_id TEXT NOT NULL,
			ip_hash TEXT NOT NULL,
			browser TEXT NOT NULL,
			os TEXT NOT NULL,
			device TEXT NOT NULL,
			path TEXT NOT NULL,
			referrer TEXT NOT NULL DEFAULT '',
			timestamp DATETIME NOT NULL
		);
		CREATE TABLE IF NOT EXISTS bot_visits (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			bot_name TEXT NOT NULL,
			ip_hash TEXT NOT NULL,
			user_agent TEXT NOT NULL,
			path TEXT NOT NULL,
			timestamp DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_visits_timestamp ON visits(timestamp);
		CREATE INDEX IF NOT EXISTS idx_visits_path ON visits(path);
		CREATE INDEX IF NOT EXISTS idx_bot_visits_timestamp ON bot_visits(timestamp);
		CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`)
	return err
}

// Salt returns the installation's hashing salt, creating it on first use.
func (s *Store) Salt(ctx context.Context) (string, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = 'hash_salt'`).Scan(&v)
	if err == nil {
		return v, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("read hash salt: %w", err)
	}
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	v = hex.EncodeToString(b)
	if _, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO settings (key, value) VALUES ('hash_salt', ?)`, v); err != nil {
		return "", fmt.Errorf("store hash salt: %w", err)
	}
	// A concurrent writer may have won the insert.
	if err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = 'hash_salt'`).Scan(&v); err != nil {
		return "", err
	}
	return v, nil
}

// SaveVisit records a page view.
func (s *Store) SaveVisit(ctx context.Context, v Visit) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO visits (visitor_id, session_id, ip_hash, browser, os, device, path, referrer, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.VisitorID, v.SessionID, v.IPHash, v.Browser, v.OS, v.Device, v.Path, v.Referrer, v.Timestamp.UTC())
	return err
}

// SaveBotVisit records a crawler hit.
func (s *Store) SaveBotVisit(ctx context.Context, b BotVisit) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO bot_visits (bot_name, ip_hash, user_agent, path, timestamp)
		VALUES (?, ?, ?, ?, ?)`,
		b.BotName, b.IPHash, b.UserAgent, b.Path, b.Timestamp.UTC())
	return err
}

func (s *Store) count(ctx context.Context, query string, from, to time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, query, from.UTC(), to.UTC()).Scan(&n)
	return n, err
}

func (s *Store) dimension(ctx context.Context, query string, from, to time.Time) ([]DimensionStat, error) {
	rows, err := s.db.QueryContext(ctx, query, from.UTC(), to.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []DimensionStat{}
	for rows.Next() {
		var d DimensionStat
		if err := rows.Scan(&d.Name, &d.Count); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Stats aggregates visits in [from, to). The queries run concurrently.
func (s *Store) Stats(ctx context.Context, from, to time.Time) (*Stats, error) {
	st := &Stats{From: from, To: to}
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		st.TotalViews, err = s.count(ctx, `SELECT COUNT(*) FROM visits WHERE timestamp >= ? AND timestamp < ?`, from, to)
		return wrap("count views", err)
	})
	g.Go(func() (err error) {
		st.UniqueVisitors, err = s.count(ctx, `SELECT COUNT(DISTINCT visitor_id) FROM visits WHERE timestamp >= ? AND timestamp < ?`, from, to)
		return wrap("count visitors", err)
	})
	g.Go(func() (err error) {
		st.BotVisits, err = s.count(ctx, `SELECT COUNT(*) FROM bot_visits WHERE timestamp >= ? AND timestamp < ?`, from, to)
		return wrap("count bot visits", err)
	})
	g.Go(func() error {
		pages, err := s.dimension(ctx, `SELECT path, COUNT(*) AS c FROM visits WHERE timestamp >= ? AND timestamp < ? GROUP BY path ORDER BY c DESC LIMIT 10`, from, to)
		if err != nil {
			return wrap("top pages", err)
		}
		st.TopPages = make([]PageStat, len(pages))
		for i, p := range pages {
			st.TopPages[i] = PageStat{Path: p.Name, Views: p.Count}
		}
		return nil
	})
	g.Go(func() (err error) {
		st.Browsers, err = s.dimension(ctx, `SELECT browser, COUNT(*) AS c FROM visits WHERE timestamp >= ? AND timestamp < ? GROUP BY browser ORDER BY c DESC`, from, to)
		return wrap("browsers", err)
	})
	g.Go(func() (err error) {
		st.Devices, err = s.dimension(ctx, `SELECT device, COUNT(*) AS c FROM visits WHERE timestamp >= ? AND timestamp < ? GROUP BY device ORDER BY c DESC`, from, to)
		return wrap("devices", err)
	})
	g.Go(func() (err error) {
		st.Referrers, err = s.dimension(ctx, `SELECT referrer, COUNT(*) AS c FROM visits WHERE timestamp >= ? AND timestamp < ? AND referrer != '' GROUP BY referrer ORDER BY c DESC LIMIT 10`, from, to)
		return wrap("referrers", err)
	})
	g.Go(func() (err error) {
		st.TopBots, err = s.dimension(ctx, `SELECT bot_name, COUNT(*) AS c FROM bot_visits WHERE timestamp >= ? AND timestamp < ? GROUP BY bot_name ORDER BY c DESC LIMIT 10`, from, to)
		return wrap("top bots", err)
	})
	g.Go(func() error {
		days, err := s.dimension(ctx, `SELECT strftime('%Y-%m-%d', timestamp) AS d, COUNT(*) FROM visits WHERE timestamp >= ? AND timestamp < ? GROUP BY d ORDER BY d`, from, to)
		if err != nil {
			return wrap("daily views", err)
		}
		st.Daily = make([]DailyView, len(days))
		for i, d := range days {
			st.Daily[i] = DailyView{Date: d.Name, Views: d.Count}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return st, nil
}

func wrap(what string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", what, err)
}

// Cleanup removes visits older than retentionDays.
func (s *Store) Cleanup(ctx context.Context, retentionDays int) error {
	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)
	if _, err := s.db.ExecContext(ctx, `DELETE FROM visits WHERE timestamp < ?`, cutoff); err != nil {
		return fmt.Errorf("cleanup visits: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM bot_visits WHERE timestamp < ?`, cutoff); err != nil {
		return fmt.Errorf("cleanup bot_visits: %w", err)
	}
	return nil
}

// StartCleanup runs Cleanup every interval until the returned stop function
// is called.
func (s *Store) StartCleanup(retentionDays int, interval time.Duration, logger *zap.Logger) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := s.Cleanup(context.Background(), retentionDays); err != nil {
					logger.Error("analytics cleanup failed", zap.Error(err))
				}
			case <-done:
				return
			}
		}
	}()
	return func() { close(done) }
}
