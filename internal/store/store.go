// Package store defines storage interfaces for persisting and retrieving
// price history, saved strategies, monitor state, notifications and
// backtest runs.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/digitalboy/Investment-Strategy-Designer/internal/domain"
)

// ErrNotFound is returned when a record with the requested ID does not exist.
var ErrNotFound = errors.New("store: not found")

// BarStore persists and retrieves daily OHLCV bars.
type BarStore interface {
	// WriteBars merges a batch of bars for symbol into storage. Bars with a
	// date already on disk replace the stored ones.
	WriteBars(ctx context.Context, symbol string, bars domain.PriceSeries) error

	// ReadBars returns bars for symbol with start <= date <= end, sorted by
	// date. An empty bound is open.
	ReadBars(ctx context.Context, symbol, start, end string) (domain.PriceSeries, error)

	// ListSymbols returns all symbols with stored bars.
	ListSymbols(ctx context.Context) ([]string, error)
}

// StrategyRecord is a saved strategy definition owned by a user.
type StrategyRecord struct {
	ID                   string                `json:"id"`
	UserID               string                `json:"userId"`
	Name                 string                `json:"name"`
	Description          string                `json:"description,omitempty"`
	Config               domain.StrategyConfig `json:"config"`
	Public               bool                  `json:"isPublic"`
	NotificationsEnabled bool                  `json:"notificationsEnabled"`
	LastReturn           *float64              `json:"lastReturn,omitempty"`
	LastMaxDrawdown      *float64              `json:"lastMaxDrawdown,omitempty"`
	Tags                 []string              `json:"tags"`
	CreatedAt            time.Time             `json:"createdAt"`
	UpdatedAt            time.Time             `json:"updatedAt"`
}

// StrategyStore persists saved strategies.
type StrategyStore interface {
	// SaveStrategy inserts or replaces a strategy by ID.
	SaveStrategy(ctx context.Context, s *StrategyRecord) error

	// GetStrategy returns the strategy with the given ID or ErrNotFound.
	GetStrategy(ctx context.Context, id string) (*StrategyRecord, error)

	// ListStrategies returns the strategies owned by userID, or all
	// strategies when userID is empty, newest first.
	ListStrategies(ctx context.Context, userID string) ([]StrategyRecord, error)

	// DeleteStrategy removes a strategy and its monitor state.
	DeleteStrategy(ctx context.Context, id string) error
}

// StateStore persists per-strategy monitor state such as the last date each
// trigger fired.
type StateStore interface {
	GetState(ctx context.Context, strategyID string) (map[string]string, error)
	SaveState(ctx context.Context, strategyID string, state map[string]string) error
}

// Notification is a signal raised by the daily monitor.
type Notification struct {
	ID           string    `json:"id"`
	UserID       string    `json:"userId"`
	StrategyID   string    `json:"strategyId"`
	StrategyName string    `json:"strategyName"`
	Symbol       string    `json:"symbol"`
	SignalDate   string    `json:"signalDate"`
	Message      string    `json:"message"`
	Read         bool      `json:"read"`
	CreatedAt    time.Time `json:"createdAt"`
}

// NotificationStore persists monitor notifications.
type NotificationStore interface {
	SaveNotification(ctx context.Context, n *Notification) error

	// ListNotifications returns up to limit notifications for userID,
	// newest first. A limit <= 0 returns all of them.
	ListNotifications(ctx context.Context, userID string, limit int) ([]Notification, error)

	// MarkRead flags a notification as read or returns ErrNotFound.
	MarkRead(ctx context.Context, id string) error
}

// RunRecord is a stored backtest request together with its result.
type RunRecord struct {
	ID        string                 `json:"id"`
	Config    domain.StrategyConfig  `json:"config"`
	Result    *domain.BacktestResult `json:"result"`
	CreatedAt time.Time              `json:"createdAt"`
}

// RunStore persists backtest runs so results can be fetched again by ID.
type RunStore interface {
	SaveRun(ctx context.Context, r *RunRecord) error
	GetRun(ctx context.Context, id string) (*RunRecord, error)
}
