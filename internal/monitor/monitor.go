// Package monitor runs saved strategies against the latest market data once
// per trading day and notifies owners when a trigger fires.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/digitalboy/Investment-Strategy-Designer/internal/domain"
	"github.com/digitalboy/Investment-Strategy-Designer/internal/indicator"
	"github.com/digitalboy/Investment-Strategy-Designer/internal/marketdata"
	"github.com/digitalboy/Investment-Strategy-Designer/internal/store"
	"github.com/digitalboy/Investment-Strategy-Designer/internal/util"
)

// Options tunes the daily check.
type Options struct {
	LookbackDays   int    // calendar days of history to load (default 550)
	StaleAfterDays int    // skip symbols whose last bar is older (default 5)
	VIXSymbol      string // empty disables VIX loading
}

// Summary counts the outcome of one RunDailyCheck.
type Summary struct {
	Checked int `json:"checked"`
	Signals int `json:"signals"`
	Skipped int `json:"skipped"`
	Errors  int `json:"errors"`
}

// Monitor evaluates active strategies on the latest bar.
type Monitor struct {
	strategies store.StrategyStore
	state      store.StateStore
	provider   marketdata.Provider
	calendar   marketdata.Calendar
	notifiers  []Notifier
	opts       Options
	now        func() time.Time
	log        *slog.Logger
}

// New creates a Monitor. calendar may be nil, in which case staleness is
// measured against today.
func New(strategies store.StrategyStore, state store.StateStore, provider marketdata.Provider,
	calendar marketdata.Calendar, opts Options, notifiers ...Notifier) *Monitor {
	if opts.LookbackDays <= 0 {
		opts.LookbackDays = 550
	}
	if opts.StaleAfterDays <= 0 {
		opts.StaleAfterDays = 5
	}
	return &Monitor{
		strategies: strategies,
		state:      state,
		provider:   provider,
		calendar:   calendar,
		notifiers:  notifiers,
		opts:       opts,
		now:        time.Now,
		log:        slog.Default().With("component", "monitor"),
	}
}

// RunDailyCheck evaluates every active strategy once. Per-strategy failures
// are logged and counted; only failing to list strategies is returned.
func (m *Monitor) RunDailyCheck(ctx context.Context) (Summary, error) {
	var sum Summary

	all, err := m.strategies.ListStrategies(ctx, "")
	if err != nil {
		return sum, fmt.Errorf("listing strategies: %w", err)
	}

	bySymbol := make(map[string][]store.StrategyRecord)
	var symbols []string
	for _, s := range all {
		if !s.NotificationsEnabled {
			continue
		}
		sym := s.Config.Symbol
		if _, ok := bySymbol[sym]; !ok {
			symbols = append(symbols, sym)
		}
		bySymbol[sym] = append(bySymbol[sym], s)
	}
	if len(symbols) == 0 {
		m.log.Info("no monitored strategies")
		return sum, nil
	}
	m.log.Info("starting daily check", "strategies", len(all), "symbols", len(symbols))

	today := m.now().UTC()
	start := util.FormatDate(today.AddDate(0, 0, -m.opts.LookbackDays))
	end := util.FormatDate(today)
	reference := m.referenceDate(ctx, end)

	vix := m.loadVIX(ctx, start, end)

	for _, sym := range symbols {
		strats := bySymbol[sym]
		if ctx.Err() != nil {
			return sum, ctx.Err()
		}

		bars, err := m.provider.FetchDaily(ctx, sym, start, end)
		if err != nil || len(bars) == 0 {
			m.log.Warn("no data, skipping symbol", "symbol", sym, "err", err)
			sum.Errors += len(strats)
			continue
		}

		last := bars[len(bars)-1].Date
		if stale(last, reference, m.opts.StaleAfterDays) {
			m.log.Warn("data is stale, skipping symbol", "symbol", sym, "last", last, "reference", reference)
			sum.Skipped += len(strats)
			continue
		}

		vixAligned := indicator.AlignToBars(bars, vix)
		cal := util.NewTradingCalendar(bars.Dates())
		for _, s := range strats {
			sum.Checked++
			fired, err := m.checkStrategy(ctx, s, bars, vixAligned, cal)
			if err != nil {
				m.log.Error("checking strategy failed", "strategy", s.ID, "err", err)
				sum.Errors++
				continue
			}
			if fired {
				sum.Signals++
			}
		}
	}

	m.log.Info("daily check complete",
		"checked", sum.Checked, "signals", sum.Signals,
		"skipped", sum.Skipped, "errors", sum.Errors)
	return sum, nil
}

func (m *Monitor) referenceDate(ctx context.Context, fallback string) string {
	if m.calendar == nil {
		return fallback
	}
	day, err := m.calendar.LatestFinishedTradingDay(ctx)
	if err != nil {
		m.log.Warn("trading calendar unavailable", "err", err)
		return fallback
	}
	return day
}

func (m *Monitor) loadVIX(ctx context.Context, start, end string) map[string]float64 {
	if m.opts.VIXSymbol == "" {
		return nil
	}
	bars, err := m.provider.FetchDaily(ctx, m.opts.VIXSymbol, start, end)
	if err != nil || len(bars) == 0 {
		m.log.Warn("no VIX history, VIX triggers will not fire", "err", err)
		return nil
	}
	out := make(map[string]float64, len(bars))
	for _, b := range bars {
		out[b.Date] = b.Close
	}
	return out
}

// stale reports whether last trails reference by more than maxDays calendar
// days.
func stale(last, reference string, maxDays int) bool {
	l, err := util.ParseDate(last)
	if err != nil {
		return true
	}
	r, err := util.ParseDate(reference)
	if err != nil {
		return false
	}
	return r.Sub(l) > time.Duration(maxDays)*24*time.Hour
}

// checkStrategy evaluates s on the last bar, persists fired trigger dates
// and notifies. It reports whether any trigger fired.
func (m *Monitor) checkStrategy(ctx context.Context, s store.StrategyRecord, bars domain.PriceSeries,
	vix []float64, cal *util.TradingCalendar) (bool, error) {
	state, err := m.state.GetState(ctx, s.ID)
	if err != nil {
		return false, err
	}

	i := len(bars) - 1
	current := bars[i]
	var currentVIX *float64
	if len(vix) > 0 && vix[i] > 0 {
		v := vix[i]
		currentVIX = &v
	}

	var details []string
	for n, t := range s.Config.Triggers {
		key := fmt.Sprintf("trigger_%d", n)
		if lastFired, ok := state[key]; ok && t.Cooldown != nil && t.Cooldown.Days > 0 {
			if cal.DaysBetween(lastFired, current.Date) < t.Cooldown.Days {
				m.log.Debug("trigger in cooldown", "strategy", s.ID, "trigger", n+1)
				continue
			}
		}

		if !indicator.CheckTriggerCondition(t, bars, i, vix) {
			continue
		}
		state[key] = current.Date
		details = append(details, fmt.Sprintf("Rule #%d (%s): %s %s",
			n+1, DescribeCondition(t.Condition, s.Config.Symbol, currentVIX),
			t.Action.Type, FormatActionValue(t.Action.Value)))
	}
	if len(details) == 0 {
		return false, nil
	}

	if err := m.state.SaveState(ctx, s.ID, state); err != nil {
		return false, err
	}

	sig := Signal{
		StrategyID:   s.ID,
		StrategyName: s.Name,
		UserID:       s.UserID,
		Symbol:       s.Config.Symbol,
		Date:         current.Date,
		Price:        current.Close,
		VIX:          currentVIX,
		Details:      details,
	}
	m.log.Info("strategy fired", "strategy", s.ID, "symbol", sig.Symbol, "rules", len(details))
	for _, n := range m.notifiers {
		if err := n.Notify(ctx, sig); err != nil {
			m.log.Error("notification failed", "notifier", n.Name(), "strategy", s.ID, "err", err)
		}
	}
	return true, nil
}
