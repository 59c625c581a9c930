package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/digitalboy/Investment-Strategy-Designer/internal/store"
)

// Signal is the outcome of one strategy firing during a daily check.
type Signal struct {
	StrategyID   string   `json:"strategyId"`
	StrategyName string   `json:"strategyName"`
	UserID       string   `json:"userId"`
	Symbol       string   `json:"symbol"`
	Date         string   `json:"date"`
	Price        float64  `json:"price"`
	VIX          *float64 `json:"vix,omitempty"`
	Details      []string `json:"details"`
}

// Title is the short headline for a signal.
func (s Signal) Title() string {
	return fmt.Sprintf("Signal triggered: %s", s.StrategyName)
}

// Body lists every fired rule, one per line.
func (s Signal) Body() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %d signal(s) on %s at $%.2f", s.Symbol, len(s.Details), s.Date, s.Price)
	if s.VIX != nil {
		fmt.Fprintf(&b, " | VIX %.2f", *s.VIX)
	}
	for _, d := range s.Details {
		b.WriteString("\n")
		b.WriteString(d)
	}
	return b.String()
}

// Notifier delivers signals to one channel.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, sig Signal) error
}

// ---------------------------------------------------------------------------
// StoreNotifier: in-app notifications
// ---------------------------------------------------------------------------

// Compile-time interface check.
var _ Notifier = (*StoreNotifier)(nil)

// StoreNotifier records signals as in-app notifications.
type StoreNotifier struct {
	store store.NotificationStore
}

// NewStoreNotifier creates a StoreNotifier.
func NewStoreNotifier(s store.NotificationStore) *StoreNotifier {
	return &StoreNotifier{store: s}
}

func (n *StoreNotifier) Name() string { return "store" }

func (n *StoreNotifier) Notify(ctx context.Context, sig Signal) error {
	return n.store.SaveNotification(ctx, &store.Notification{
		ID:           uuid.NewString(),
		UserID:       sig.UserID,
		StrategyID:   sig.StrategyID,
		StrategyName: sig.StrategyName,
		Symbol:       sig.Symbol,
		SignalDate:   sig.Date,
		Message:      sig.Body(),
	})
}

// ---------------------------------------------------------------------------
// TelegramNotifier
// ---------------------------------------------------------------------------

// Compile-time interface check.
var _ Notifier = (*TelegramNotifier)(nil)

// TelegramNotifier sends signals to a Telegram chat.
type TelegramNotifier struct {
	api    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegramNotifier connects to the Telegram Bot API with token.
func NewTelegramNotifier(token string, chatID int64) (*TelegramNotifier, error) {
	return NewTelegramNotifierWithEndpoint(token, tgbotapi.APIEndpoint, chatID)
}

// NewTelegramNotifierWithEndpoint is NewTelegramNotifier against a custom
// API endpoint format such as "http://host/bot%s/%s".
func NewTelegramNotifierWithEndpoint(token, endpoint string, chatID int64) (*TelegramNotifier, error) {
	api, err := tgbotapi.NewBotAPIWithAPIEndpoint(token, endpoint)
	if err != nil {
		return nil, fmt.Errorf("connecting to telegram: %w", err)
	}
	return &TelegramNotifier{api: api, chatID: chatID}, nil
}

func (n *TelegramNotifier) Name() string { return "telegram" }

func (n *TelegramNotifier) Notify(_ context.Context, sig Signal) error {
	msg := tgbotapi.NewMessage(n.chatID, sig.Title()+"\n"+sig.Body())
	if _, err := n.api.Send(msg); err != nil {
		return fmt.Errorf("sending telegram message: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// NATSNotifier
// ---------------------------------------------------------------------------

// Compile-time interface check.
var _ Notifier = (*NATSNotifier)(nil)

// NATSNotifier publishes signals as JSON on a NATS subject.
type NATSNotifier struct {
	conn    *nats.Conn
	subject string
}

// NewNATSNotifier connects to the NATS server at url.
func NewNATSNotifier(url, subject string) (*NATSNotifier, error) {
	nc, err := nats.Connect(url, nats.Name("strategy-monitor"))
	if err != nil {
		return nil, fmt.Errorf("connecting to nats: %w", err)
	}
	return &NATSNotifier{conn: nc, subject: subject}, nil
}

func (n *NATSNotifier) Name() string { return "nats" }

// Subject returns the subject a signal is published on:
// <subject>.<SYMBOL>.
func (n *NATSNotifier) Subject(sig Signal) string {
	return n.subject + "." + sig.Symbol
}

func (n *NATSNotifier) Notify(_ context.Context, sig Signal) error {
	data, err := json.Marshal(sig)
	if err != nil {
		return fmt.Errorf("encoding signal: %w", err)
	}
	if err := n.conn.Publish(n.Subject(sig), data); err != nil {
		return fmt.Errorf("publishing signal: %w", err)
	}
	return nil
}

// Close drains and closes the connection.
func (n *NATSNotifier) Close() error {
	return n.conn.Drain()
}
