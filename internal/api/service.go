// Package api exposes backtesting, saved strategies and notifications over
// HTTP and gRPC.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/digitalboy/Investment-Strategy-Designer/internal/chart"
	"github.com/digitalboy/Investment-Strategy-Designer/internal/domain"
	"github.com/digitalboy/Investment-Strategy-Designer/internal/engine"
	"github.com/digitalboy/Investment-Strategy-Designer/internal/marketdata"
	"github.com/digitalboy/Investment-Strategy-Designer/internal/store"
	"github.com/digitalboy/Investment-Strategy-Designer/internal/strategy"
	"github.com/digitalboy/Investment-Strategy-Designer/internal/util"
)

// BacktestRequest is the body of a backtest call.
type BacktestRequest = domain.StrategyConfig

// RunRecord is a persisted backtest together with its generated tags.
type RunRecord struct {
	store.RunRecord
	Tags []string `json:"tags"`
}

// StrategyRequest creates or replaces a saved strategy.
type StrategyRequest struct {
	ID                   string                `json:"id,omitempty"`
	UserID               string                `json:"userId"`
	Name                 string                `json:"name"`
	Description          string                `json:"description,omitempty"`
	Public               bool                  `json:"isPublic"`
	NotificationsEnabled bool                  `json:"notificationsEnabled"`
	Config               domain.StrategyConfig `json:"config"`
}

// Stores groups the persistence the service needs.
type Stores struct {
	Runs          store.RunStore
	Strategies    store.StrategyStore
	Notifications store.NotificationStore
}

// Options tunes data loading and the benchmarks. HistoryDays bounds the
// lookback of requests without a start date; zero leaves it to the provider.
type Options struct {
	HistoryDays     int
	VIXSymbol       string
	TNXSymbol       string
	DCAAcceleration *float64
}

// Service implements the operations shared by the HTTP and gRPC surfaces.
type Service struct {
	provider marketdata.Provider
	engine   *engine.Engine
	stores   Stores
	opts     Options
	log      *slog.Logger
}

// NewService creates a Service. A nil logger means slog.Default().
func NewService(provider marketdata.Provider, eng *engine.Engine, stores Stores, opts Options, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		provider: provider,
		engine:   eng,
		stores:   stores,
		opts:     opts,
		log:      logger.With("component", "service"),
	}
}

// Validate checks a strategy configuration and returns ValidationErrors when
// anything is wrong.
func Validate(cfg domain.StrategyConfig) error {
	var errs ValidationErrors
	add := func(field, msg string) { errs = append(errs, ValidationError{Field: field, Message: msg}) }

	if n := len(strings.TrimSpace(cfg.Symbol)); n < 1 || n > 10 {
		add("etfSymbol", "must be 1 to 10 characters")
	}
	var start, end time.Time
	var err error
	if cfg.StartDate != "" {
		if start, err = util.ParseDate(cfg.StartDate); err != nil {
			add("startDate", "must be YYYY-MM-DD")
		}
	}
	if cfg.EndDate != "" {
		if end, err = util.ParseDate(cfg.EndDate); err != nil {
			add("endDate", "must be YYYY-MM-DD")
		}
	}
	if !start.IsZero() && !end.IsZero() && start.After(end) {
		add("startDate", "must not be after endDate")
	}
	if !(cfg.InitialCapital > 0) {
		add("initialCapital", "must be positive")
	}
	for i, t := range cfg.Triggers {
		field := fmt.Sprintf("triggers[%d]", i)
		validateCondition(field+".condition", t.Condition, add)
		switch t.Action.Type {
		case domain.ActionBuy, domain.ActionSell:
		default:
			add(field+".action.type", "must be buy or sell")
		}
		switch t.Action.Value.Type {
		case domain.SizingFixedAmount, domain.SizingCashPercent, domain.SizingPositionPercent, domain.SizingTotalValuePercent:
		default:
			add(field+".action.value.type", "unknown sizing type")
		}
		if t.Action.Value.Amount < 0 {
			add(field+".action.value.amount", "must not be negative")
		}
		if t.Cooldown != nil && t.Cooldown.Days < 0 {
			add(field+".cooldown.days", "must not be negative")
		}
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateCondition(field string, c domain.Condition, add func(field, msg string)) {
	nonNegative := func(name string, v int) {
		if v < 0 {
			add(field+".params."+name, "must not be negative")
		}
	}
	switch c := c.(type) {
	case nil:
		add(field, "is required")
	case domain.UnknownCondition:
		if c.Kind == "" {
			add(field+".type", "is required")
		}
	case domain.PriceStreak:
		nonNegative("count", c.Count)
	case domain.DrawdownFromPeak:
		nonNegative("days", c.Days)
	case domain.NewHigh:
		nonNegative("days", c.Days)
	case domain.NewLow:
		nonNegative("days", c.Days)
	case domain.PeriodReturn:
		nonNegative("days", c.Days)
	case domain.RSI:
		nonNegative("period", c.Period)
	case domain.MACross:
		nonNegative("period", c.Period)
	case domain.VIX:
		nonNegative("streakCount", c.StreakCount)
		nonNegative("breakoutDays", c.BreakoutDays)
	}
}

// RunBacktest validates req, loads its price and market data, runs the
// engine and stores the result.
func (s *Service) RunBacktest(ctx context.Context, req BacktestRequest) (rec *RunRecord, err error) {
	start := time.Now()
	defer func() {
		status := "ok"
		if err != nil {
			body, _, _ := classify(err)
			status = strings.ToLower(body.Code)
		}
		backtestRuns.WithLabelValues(status).Inc()
		backtestDuration.Observe(time.Since(start).Seconds())
	}()

	if err := Validate(req); err != nil {
		return nil, err
	}
	req.Symbol = strings.ToUpper(strings.TrimSpace(req.Symbol))

	result, bars, err := s.simulate(ctx, req)
	if err != nil {
		return nil, err
	}

	rec = &RunRecord{
		RunRecord: store.RunRecord{
			ID:        uuid.NewString(),
			Config:    req,
			Result:    result,
			CreatedAt: time.Now().UTC(),
		},
		Tags: strategy.GenerateTags(req, result),
	}
	if s.stores.Runs != nil {
		if err := s.stores.Runs.SaveRun(ctx, &rec.RunRecord); err != nil {
			// The result is still returned; only later lookups by ID fail.
			s.log.Error("saving run failed", "id", rec.ID, "err", err)
		}
	}

	s.log.Info("backtest complete",
		"id", rec.ID,
		"symbol", req.Symbol,
		"bars", bars,
		"trades", len(result.Trades),
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return rec, nil
}

// simulate loads the data for req and runs the engine without recording
// anything. It returns the result and the number of bars loaded.
func (s *Service) simulate(ctx context.Context, req domain.StrategyConfig) (*domain.BacktestResult, int, error) {
	from := req.StartDate
	if from == "" && s.opts.HistoryDays > 0 {
		from = time.Now().AddDate(0, 0, -s.opts.HistoryDays).Format(domain.DateLayout)
	}
	series, mctx, err := marketdata.LoadMarketContext(ctx, s.provider, marketdata.Request{
		Symbol:    req.Symbol,
		Start:     from,
		End:       req.EndDate,
		VIXSymbol: s.opts.VIXSymbol,
		TNXSymbol: s.opts.TNXSymbol,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("loading data for %s: %w", req.Symbol, err)
	}
	mctx.DCAAcceleration = s.opts.DCAAcceleration

	result, err := s.engine.Run(req, series, mctx)
	if err != nil {
		return nil, 0, err
	}
	return result, len(series), nil
}

// GetRun returns a stored backtest run.
func (s *Service) GetRun(ctx context.Context, id string) (*RunRecord, error) {
	if s.stores.Runs == nil {
		return nil, store.ErrNotFound
	}
	r, err := s.stores.Runs.GetRun(ctx, id)
	if err != nil {
		return nil, err
	}
	return &RunRecord{RunRecord: *r, Tags: strategy.GenerateTags(r.Config, r.Result)}, nil
}

// RunChart renders the equity chart of a stored run as PNG.
func (s *Service) RunChart(ctx context.Context, id string) ([]byte, error) {
	r, err := s.GetRun(ctx, id)
	if err != nil {
		return nil, err
	}
	return chart.RenderEquity(r.Result)
}

// Benchmarks lists the registered comparison strategies.
func (s *Service) Benchmarks() []string {
	return s.engine.Benchmarks().List()
}

// SaveStrategy validates and stores a strategy. A backtest over its config
// fills the last return, drawdown and tags when data is available.
func (s *Service) SaveStrategy(ctx context.Context, req StrategyRequest) (*store.StrategyRecord, error) {
	var errs ValidationErrors
	if strings.TrimSpace(req.UserID) == "" {
		errs = append(errs, ValidationError{Field: "userId", Message: "is required"})
	}
	if strings.TrimSpace(req.Name) == "" {
		errs = append(errs, ValidationError{Field: "name", Message: "is required"})
	}
	if err := Validate(req.Config); err != nil {
		errs = append(errs, err.(ValidationErrors)...)
	}
	if len(errs) > 0 {
		return nil, errs
	}

	rec := &store.StrategyRecord{
		ID:                   req.ID,
		UserID:               req.UserID,
		Name:                 req.Name,
		Description:          req.Description,
		Config:               req.Config,
		Public:               req.Public,
		NotificationsEnabled: req.NotificationsEnabled,
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	} else if prev, err := s.stores.Strategies.GetStrategy(ctx, rec.ID); err == nil {
		rec.CreatedAt = prev.CreatedAt
	}

	rec.Config.Symbol = strings.ToUpper(strings.TrimSpace(rec.Config.Symbol))
	result, _, err := s.simulate(ctx, rec.Config)
	if err != nil {
		s.log.Warn("backtest for saved strategy failed", "strategy", rec.ID, "err", err)
		rec.Tags = strategy.GenerateTags(rec.Config, nil)
	} else {
		ret := result.Performance.Strategy.TotalReturn
		dd := result.Performance.Strategy.MaxDrawdown
		rec.LastReturn, rec.LastMaxDrawdown = &ret, &dd
		rec.Tags = strategy.GenerateTags(rec.Config, result)
	}

	if err := s.stores.Strategies.SaveStrategy(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// GetStrategy returns a saved strategy.
func (s *Service) GetStrategy(ctx context.Context, id string) (*store.StrategyRecord, error) {
	return s.stores.Strategies.GetStrategy(ctx, id)
}

// ListStrategies returns the strategies of userID, or all when empty.
func (s *Service) ListStrategies(ctx context.Context, userID string) ([]store.StrategyRecord, error) {
	return s.stores.Strategies.ListStrategies(ctx, userID)
}

// DeleteStrategy removes a saved strategy.
func (s *Service) DeleteStrategy(ctx context.Context, id string) error {
	return s.stores.Strategies.DeleteStrategy(ctx, id)
}

// ListNotifications returns up to limit notifications for userID.
func (s *Service) ListNotifications(ctx context.Context, userID string, limit int) ([]store.Notification, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ValidationErrors{{Field: "user", Message: "is required"}}
	}
	return s.stores.Notifications.ListNotifications(ctx, userID, limit)
}

// MarkNotificationRead flags a notification as read.
func (s *Service) MarkNotificationRead(ctx context.Context, id string) error {
	return s.stores.Notifications.MarkRead(ctx, id)
}
