package monitor

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/digitalboy/Investment-Strategy-Designer/internal/domain"
	"github.com/digitalboy/Investment-Strategy-Designer/internal/store"
)

type fakeProvider struct {
	data map[string]domain.PriceSeries
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) FetchDaily(_ context.Context, symbol, start, end string) (domain.PriceSeries, error) {
	bars, ok := f.data[symbol]
	if !ok {
		return nil, errors.New("unknown symbol")
	}
	return bars.Between(start, end), nil
}

type fakeCalendar struct{ day string }

func (c fakeCalendar) LatestFinishedTradingDay(context.Context) (string, error) { return c.day, nil }

type recordingNotifier struct {
	mu      sync.Mutex
	signals []Signal
}

func (r *recordingNotifier) Name() string { return "recording" }

func (r *recordingNotifier) Notify(_ context.Context, sig Signal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.signals = append(r.signals, sig)
	return nil
}

// breakout ends on a close above every earlier high.
var breakout = domain.PriceSeries{
	{Date: "2024-01-02", Open: 100, High: 101, Low: 99, Close: 100},
	{Date: "2024-01-03", Open: 100, High: 102, Low: 99, Close: 101},
	{Date: "2024-01-04", Open: 101, High: 102, Low: 100, Close: 101.5},
	{Date: "2024-01-05", Open: 102, High: 106, Low: 101, Close: 105},
}

func newHighStrategy(id string, active bool) *store.StrategyRecord {
	return &store.StrategyRecord{
		ID:                   id,
		UserID:               "u1",
		Name:                 "breakout " + id,
		NotificationsEnabled: active,
		Config: domain.StrategyConfig{
			Symbol:         "QQQ",
			InitialCapital: 10000,
			Triggers: []domain.Trigger{
				{
					Condition: domain.NewHigh{Days: 3},
					Action:    domain.Action{Type: domain.ActionBuy, Value: domain.SizingValue{Type: domain.SizingFixedAmount, Amount: 500}},
					Cooldown:  &domain.Cooldown{Days: 5},
				},
				{
					Condition: domain.NewLow{Days: 3},
					Action:    domain.Action{Type: domain.ActionSell, Value: domain.SizingValue{Type: domain.SizingPositionPercent, Amount: 100}},
				},
			},
		},
	}
}

func setup(t *testing.T, data map[string]domain.PriceSeries, cal string) (*Monitor, *store.SQLiteStore, *recordingNotifier) {
	t.Helper()
	db, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "monitor.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	rec := &recordingNotifier{}
	var calendar fakeCalendar
	m := New(db, db, &fakeProvider{data: data}, nil, Options{VIXSymbol: "^VIX"}, rec, NewStoreNotifier(db))
	if cal != "" {
		calendar.day = cal
		m.calendar = calendar
	}
	m.now = func() time.Time { return time.Date(2024, 1, 6, 12, 0, 0, 0, time.UTC) }
	return m, db, rec
}

func TestRunDailyCheckFiresAndPersists(t *testing.T) {
	ctx := context.Background()
	m, db, rec := setup(t, map[string]domain.PriceSeries{
		"QQQ":  breakout,
		"^VIX": {{Date: "2024-01-05", Close: 14.25}},
	}, "2024-01-05")

	if err := db.SaveStrategy(ctx, newHighStrategy("s1", true)); err != nil {
		t.Fatalf("SaveStrategy: %v", err)
	}
	if err := db.SaveStrategy(ctx, newHighStrategy("s2", false)); err != nil {
		t.Fatalf("SaveStrategy: %v", err)
	}

	sum, err := m.RunDailyCheck(ctx)
	if err != nil {
		t.Fatalf("RunDailyCheck: %v", err)
	}
	if sum != (Summary{Checked: 1, Signals: 1}) {
		t.Errorf("summary = %+v, want 1 checked, 1 signal", sum)
	}
	if len(rec.signals) != 1 {
		t.Fatalf("got %d signals, want 1", len(rec.signals))
	}
	sig := rec.signals[0]
	if sig.StrategyID != "s1" || sig.Date != "2024-01-05" || sig.Price != 105 {
		t.Errorf("signal = %+v", sig)
	}
	if len(sig.Details) != 1 || !strings.Contains(sig.Details[0], "Rule #1") || !strings.Contains(sig.Details[0], "$500") {
		t.Errorf("details = %v", sig.Details)
	}
	if sig.VIX == nil || *sig.VIX != 14.25 {
		t.Errorf("VIX = %v, want 14.25", sig.VIX)
	}

	state, err := db.GetState(ctx, "s1")
	if err != nil {
		t.Fatalf("GetState: %v", err)
	}
	if state["trigger_0"] != "2024-01-05" {
		t.Errorf("state = %v, want trigger_0 = 2024-01-05", state)
	}

	notes, err := db.ListNotifications(ctx, "u1", 0)
	if err != nil {
		t.Fatalf("ListNotifications: %v", err)
	}
	if len(notes) != 1 || notes[0].StrategyID != "s1" || !strings.Contains(notes[0].Message, "[QQQ]") {
		t.Errorf("notifications = %+v", notes)
	}

	// Same bar again: the trigger is in cooldown.
	sum, err = m.RunDailyCheck(ctx)
	if err != nil {
		t.Fatalf("RunDailyCheck: %v", err)
	}
	if sum.Signals != 0 || len(rec.signals) != 1 {
		t.Errorf("second run signals = %d (total %d), want 0 (total 1)", sum.Signals, len(rec.signals))
	}
}

func TestRunDailyCheckSkipsStaleData(t *testing.T) {
	ctx := context.Background()
	m, db, rec := setup(t, map[string]domain.PriceSeries{"QQQ": breakout}, "2024-01-19")

	if err := db.SaveStrategy(ctx, newHighStrategy("s1", true)); err != nil {
		t.Fatalf("SaveStrategy: %v", err)
	}
	sum, err := m.RunDailyCheck(ctx)
	if err != nil {
		t.Fatalf("RunDailyCheck: %v", err)
	}
	if sum.Skipped != 1 || sum.Checked != 0 || len(rec.signals) != 0 {
		t.Errorf("summary = %+v, signals = %d; want 1 skipped", sum, len(rec.signals))
	}
}

func TestRunDailyCheckMissingData(t *testing.T) {
	ctx := context.Background()
	m, db, _ := setup(t, map[string]domain.PriceSeries{}, "")

	if err := db.SaveStrategy(ctx, newHighStrategy("s1", true)); err != nil {
		t.Fatalf("SaveStrategy: %v", err)
	}
	sum, err := m.RunDailyCheck(ctx)
	if err != nil {
		t.Fatalf("RunDailyCheck: %v", err)
	}
	if sum.Errors != 1 {
		t.Errorf("summary = %+v, want 1 error", sum)
	}
}

func TestRunDailyCheckMalformedConditionNeverFires(t *testing.T) {
	ctx := context.Background()
	m, db, rec := setup(t, map[string]domain.PriceSeries{"QQQ": breakout}, "2024-01-05")

	bad := newHighStrategy("bad", true)
	bad.Config.Triggers = []domain.Trigger{{
		Condition: domain.DrawdownFromPeak{Days: -3, Percentage: 1},
		Action:    domain.Action{Type: domain.ActionBuy, Value: domain.SizingValue{Type: domain.SizingFixedAmount, Amount: 100}},
	}}
	for _, s := range []*store.StrategyRecord{bad, newHighStrategy("s1", true)} {
		if err := db.SaveStrategy(ctx, s); err != nil {
			t.Fatalf("SaveStrategy: %v", err)
		}
	}

	sum, err := m.RunDailyCheck(ctx)
	if err != nil {
		t.Fatalf("RunDailyCheck: %v", err)
	}
	if sum.Signals != 1 || len(rec.signals) != 1 || rec.signals[0].StrategyID != "s1" {
		t.Errorf("summary = %+v, signals = %+v; want only s1 to fire", sum, rec.signals)
	}
}

func TestRunDailyCheckNoStrategies(t *testing.T) {
	m, _, _ := setup(t, nil, "")
	sum, err := m.RunDailyCheck(context.Background())
	if err != nil {
		t.Fatalf("RunDailyCheck: %v", err)
	}
	if sum != (Summary{}) {
		t.Errorf("summary = %+v, want zero", sum)
	}
}

func TestDescribeCondition(t *testing.T) {
	vix := 21.5
	threshold := 30.0
	tests := []struct {
		cond domain.Condition
		want string
	}{
		{domain.DrawdownFromPeak{Days: 60, Percentage: 15}, "QQQ down more than 15% from its 60-day high"},
		{domain.PriceStreak{Direction: domain.DirectionDown, Count: 3}, "QQQ down 3 days in a row"},
		{domain.RSI{Period: 14, Threshold: 30, Operator: domain.DirectionBelow}, "QQQ RSI(14) below 30"},
		{domain.MACross{Period: 200, Direction: domain.DirectionAbove}, "QQQ crossed above its 200-day moving average"},
		{domain.VIX{Mode: domain.VIXModeThreshold, Threshold: &threshold, Operator: domain.DirectionAbove}, "VIX above 30 (now 21.50)"},
		{domain.VIX{Mode: domain.VIXModeBreakout, BreakoutType: "high", BreakoutDays: 20}, "VIX at a new 20-day high (now 21.50)"},
		{domain.UnknownCondition{Kind: "moonPhase"}, `unknown condition "moonPhase"`},
	}
	for _, tt := range tests {
		if got := DescribeCondition(tt.cond, "QQQ", &vix); got != tt.want {
			t.Errorf("DescribeCondition(%T) = %q, want %q", tt.cond, got, tt.want)
		}
	}
}

func TestFormatActionValue(t *testing.T) {
	if got := FormatActionValue(domain.SizingValue{Type: domain.SizingFixedAmount, Amount: 500}); got != "$500" {
		t.Errorf("FormatActionValue(fixed) = %q", got)
	}
	if got := FormatActionValue(domain.SizingValue{Type: domain.SizingCashPercent, Amount: 25}); got != "25% (cashPercent)" {
		t.Errorf("FormatActionValue(percent) = %q", got)
	}
}
