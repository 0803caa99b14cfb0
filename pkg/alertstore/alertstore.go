// Package alertstore keeps a SQLite history of malpractice alerts.
package alertstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/teslashibe/go-truesight/internal/log"
	"github.com/teslashibe/go-truesight/pkg/debounce"
	"github.com/teslashibe/go-truesight/pkg/malpractice"
	_ "modernc.org/sqlite"
)

// timeLayout is fixed-width UTC so that text ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// DefaultLimit caps ListByRoom when no limit is given.
const DefaultLimit = 100

// Store is the alert history. It implements malpractice.Sink.
type Store struct {
	db  *sql.DB
	log *slog.Logger
}

var _ malpractice.Sink = (*Store)(nil)

// Open opens or creates the database at path and enables WAL mode.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return &Store{db: db, log: log.Component("alertstore")}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate creates the schema.
func (s *Store) Migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS alerts (
			id TEXT PRIMARY KEY,
			room TEXT NOT NULL,
			condition TEXT NOT NULL,
			created_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_room_time ON alerts(room, created_at DESC)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// Insert records one alert.
func (s *Store) Insert(ctx context.Context, a debounce.Alert) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO alerts (id, room, condition, created_at) VALUES (?, ?, ?, ?)`,
		a.ID, a.Room, string(a.Condition), a.Time.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("failed to insert alert: %w", err)
	}
	return nil
}

// Publish implements malpractice.Sink. Failures are logged, not returned.
func (s *Store) Publish(a debounce.Alert) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Insert(ctx, a); err != nil {
		s.log.Error("alert not persisted", "alert_id", a.ID, "room", a.Room, "error", err)
	}
}

// ListByRoom returns a room's alerts, newest first.
func (s *Store) ListByRoom(ctx context.Context, room string, limit int) ([]debounce.Alert, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, room, condition, created_at FROM alerts
		WHERE room = ? ORDER BY created_at DESC LIMIT ?`, room, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	alerts := []debounce.Alert{}
	for rows.Next() {
		var (
			a         debounce.Alert
			condition string
			createdAt string
		)
		if err := rows.Scan(&a.ID, &a.Room, &condition, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		a.Condition = debounce.Condition(condition)
		if a.Time, err = time.Parse(timeLayout, createdAt); err != nil {
			return nil, fmt.Errorf("failed to parse alert time: %w", err)
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

// CountByCondition returns the number of stored alerts per condition.
func (s *Store) CountByCondition(ctx context.Context) (map[debounce.Condition]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT condition, COUNT(*) FROM alerts GROUP BY condition`)
	if err != nil {
		return nil, fmt.Errorf("failed to count alerts: %w", err)
	}
	defer rows.Close()

	counts := make(map[debounce.Condition]int)
	for rows.Next() {
		var (
			condition string
			n         int
		)
		if err := rows.Scan(&condition, &n); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[debounce.Condition(condition)] = n
	}
	return counts, rows.Err()
}
