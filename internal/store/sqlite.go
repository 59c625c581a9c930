package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/digitalboy/Investment-Strategy-Designer/internal/domain"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface checks.
var _ StrategyStore = (*SQLiteStore)(nil)
var _ StateStore = (*SQLiteStore)(nil)
var _ NotificationStore = (*SQLiteStore)(nil)
var _ RunStore = (*SQLiteStore)(nil)

// SQLiteStore implements StrategyStore, StateStore, NotificationStore and
// RunStore backed by a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS strategies (
	id                    TEXT PRIMARY KEY,
	user_id               TEXT NOT NULL,
	name                  TEXT NOT NULL,
	description           TEXT NOT NULL DEFAULT '',
	config                TEXT NOT NULL,
	is_public             INTEGER NOT NULL DEFAULT 0,
	notifications_enabled INTEGER NOT NULL DEFAULT 0,
	last_return           REAL,
	last_max_drawdown     REAL,
	tags                  TEXT NOT NULL DEFAULT '[]',
	created_at            TEXT NOT NULL,
	updated_at            TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_strategies_user ON strategies(user_id);

CREATE TABLE IF NOT EXISTS strategy_state (
	strategy_id TEXT PRIMARY KEY,
	state       TEXT NOT NULL,
	updated_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS notifications (
	id            TEXT PRIMARY KEY,
	user_id       TEXT NOT NULL,
	strategy_id   TEXT NOT NULL,
	strategy_name TEXT NOT NULL,
	symbol        TEXT NOT NULL,
	signal_date   TEXT NOT NULL,
	message       TEXT NOT NULL,
	is_read       INTEGER NOT NULL DEFAULT 0,
	created_at    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id, created_at);

CREATE TABLE IF NOT EXISTS backtest_runs (
	id         TEXT PRIMARY KEY,
	symbol     TEXT NOT NULL,
	config     TEXT NOT NULL,
	result     TEXT NOT NULL,
	created_at TEXT NOT NULL
);
`

// NewSQLiteStore opens (or creates) a SQLite database at dbPath, creates the
// schema if needed and returns a ready-to-use SQLiteStore.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// A single connection keeps ":memory:" databases shared and serializes
	// writers.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// ---------------------------------------------------------------------------
// StrategyStore implementation
// ---------------------------------------------------------------------------

// SaveStrategy inserts or replaces a strategy. CreatedAt and UpdatedAt are
// filled when zero.
func (s *SQLiteStore) SaveStrategy(ctx context.Context, r *StrategyRecord) error {
	now := time.Now().UTC()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.UpdatedAt = now

	cfg, err := json.Marshal(r.Config)
	if err != nil {
		return fmt.Errorf("encoding strategy config: %w", err)
	}
	tags := r.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return fmt.Errorf("encoding tags: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
INSERT OR REPLACE INTO strategies (id, user_id, name, description, config, is_public,
	notifications_enabled, last_return, last_max_drawdown, tags, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.UserID, r.Name, r.Description, string(cfg), boolInt(r.Public),
		boolInt(r.NotificationsEnabled), r.LastReturn, r.LastMaxDrawdown, string(tagsJSON),
		formatTime(r.CreatedAt), formatTime(r.UpdatedAt))
	if err != nil {
		return fmt.Errorf("saving strategy %s: %w", r.ID, err)
	}
	return nil
}

// GetStrategy retrieves a single strategy by its ID.
func (s *SQLiteStore) GetStrategy(ctx context.Context, id string) (*StrategyRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+strategyColumns+` FROM strategies WHERE id = ?`, id)
	r, err := scanStrategy(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// ListStrategies returns strategies for userID (all users when empty).
func (s *SQLiteStore) ListStrategies(ctx context.Context, userID string) ([]StrategyRecord, error) {
	q := `SELECT ` + strategyColumns + ` FROM strategies`
	var args []any
	if userID != "" {
		q += ` WHERE user_id = ?`
		args = append(args, userID)
	}
	q += ` ORDER BY created_at DESC, id`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("listing strategies: %w", err)
	}
	defer rows.Close()

	out := []StrategyRecord{}
	for rows.Next() {
		r, err := scanStrategy(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// DeleteStrategy removes a strategy and its monitor state.
func (s *SQLiteStore) DeleteStrategy(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM strategies WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting strategy %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM strategy_state WHERE strategy_id = ?`, id); err != nil {
		return fmt.Errorf("deleting state for %s: %w", id, err)
	}
	return nil
}

const strategyColumns = `id, user_id, name, description, config, is_public,
	notifications_enabled, last_return, last_max_drawdown, tags, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStrategy(sc rowScanner) (*StrategyRecord, error) {
	var (
		r                StrategyRecord
		cfg, tags        string
		public, notify   int
		lastRet, lastDD  sql.NullFloat64
		created, updated string
	)
	if err := sc.Scan(&r.ID, &r.UserID, &r.Name, &r.Description, &cfg, &public,
		&notify, &lastRet, &lastDD, &tags, &created, &updated); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(cfg), &r.Config); err != nil {
		return nil, fmt.Errorf("decoding strategy %s config: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(tags), &r.Tags); err != nil {
		return nil, fmt.Errorf("decoding strategy %s tags: %w", r.ID, err)
	}
	r.Public = public != 0
	r.NotificationsEnabled = notify != 0
	if lastRet.Valid {
		r.LastReturn = &lastRet.Float64
	}
	if lastDD.Valid {
		r.LastMaxDrawdown = &lastDD.Float64
	}
	r.CreatedAt = parseTime(created)
	r.UpdatedAt = parseTime(updated)
	return &r, nil
}

// ---------------------------------------------------------------------------
// StateStore implementation
// ---------------------------------------------------------------------------

// GetState returns the stored state for a strategy, or an empty map.
func (s *SQLiteStore) GetState(ctx context.Context, strategyID string) (map[string]string, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT state FROM strategy_state WHERE strategy_id = ?`, strategyID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading state for %s: %w", strategyID, err)
	}
	state := map[string]string{}
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return nil, fmt.Errorf("decoding state for %s: %w", strategyID, err)
	}
	return state, nil
}

// SaveState replaces the stored state for a strategy.
func (s *SQLiteStore) SaveState(ctx context.Context, strategyID string, state map[string]string) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
INSERT OR REPLACE INTO strategy_state (strategy_id, state, updated_at) VALUES (?, ?, ?)`,
		strategyID, string(raw), formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("saving state for %s: %w", strategyID, err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// NotificationStore implementation
// ---------------------------------------------------------------------------

// SaveNotification inserts a new notification.
func (s *SQLiteStore) SaveNotification(ctx context.Context, n *Notification) error {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO notifications (id, user_id, strategy_id, strategy_name, symbol, signal_date, message, is_read, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.UserID, n.StrategyID, n.StrategyName, n.Symbol, n.SignalDate, n.Message,
		boolInt(n.Read), formatTime(n.CreatedAt))
	if err != nil {
		return fmt.Errorf("saving notification %s: %w", n.ID, err)
	}
	return nil
}

// ListNotifications returns the most recent notifications for userID.
func (s *SQLiteStore) ListNotifications(ctx context.Context, userID string, limit int) ([]Notification, error) {
	q := `
SELECT id, user_id, strategy_id, strategy_name, symbol, signal_date, message, is_read, created_at
FROM notifications WHERE user_id = ? ORDER BY created_at DESC, id`
	args := []any{userID}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("listing notifications: %w", err)
	}
	defer rows.Close()

	out := []Notification{}
	for rows.Next() {
		var (
			n       Notification
			read    int
			created string
		)
		if err := rows.Scan(&n.ID, &n.UserID, &n.StrategyID, &n.StrategyName, &n.Symbol,
			&n.SignalDate, &n.Message, &read, &created); err != nil {
			return nil, err
		}
		n.Read = read != 0
		n.CreatedAt = parseTime(created)
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkRead flags a notification as read.
func (s *SQLiteStore) MarkRead(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE notifications SET is_read = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("marking notification %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ---------------------------------------------------------------------------
// RunStore implementation
// ---------------------------------------------------------------------------

// SaveRun stores a backtest run with its full result.
func (s *SQLiteStore) SaveRun(ctx context.Context, r *RunRecord) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	cfg, err := json.Marshal(r.Config)
	if err != nil {
		return fmt.Errorf("encoding run config: %w", err)
	}
	result, err := json.Marshal(r.Result)
	if err != nil {
		return fmt.Errorf("encoding run result: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
INSERT OR REPLACE INTO backtest_runs (id, symbol, config, result, created_at) VALUES (?, ?, ?, ?, ?)`,
		r.ID, r.Config.Symbol, string(cfg), string(result), formatTime(r.CreatedAt))
	if err != nil {
		return fmt.Errorf("saving run %s: %w", r.ID, err)
	}
	return nil
}

// GetRun retrieves a stored backtest run by ID.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*RunRecord, error) {
	var cfg, result, created string
	err := s.db.QueryRowContext(ctx,
		`SELECT config, result, created_at FROM backtest_runs WHERE id = ?`, id).Scan(&cfg, &result, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading run %s: %w", id, err)
	}

	r := &RunRecord{ID: id, CreatedAt: parseTime(created)}
	if err := json.Unmarshal([]byte(cfg), &r.Config); err != nil {
		return nil, fmt.Errorf("decoding run %s config: %w", id, err)
	}
	r.Result = &domain.BacktestResult{}
	if err := json.Unmarshal([]byte(result), r.Result); err != nil {
		return nil, fmt.Errorf("decoding run %s result: %w", id, err)
	}
	return r, nil
}
