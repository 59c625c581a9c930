// Package engine runs day-by-day backtests of rule-based strategies over a
// single instrument and assembles the comparison against benchmarks.
package engine

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/digitalboy/Investment-Strategy-Designer/internal/domain"
	"github.com/digitalboy/Investment-Strategy-Designer/internal/indicator"
	"github.com/digitalboy/Investment-Strategy-Designer/internal/performance"
	"github.com/digitalboy/Investment-Strategy-Designer/internal/strategy"
	"github.com/digitalboy/Investment-Strategy-Designer/internal/strategy/builtins"
)

// ErrBacktestFailed is returned for any unexpected fault during a run.
var ErrBacktestFailed = errors.New("backtest computation failed")

// Benchmarks reported in the fixed result slots. Every other registered
// benchmark is reported under Performance.Additional.
const (
	SlotBenchmark = builtins.NameBuyAndHold
	SlotDCA       = builtins.NameWeeklyDCA
	SlotScoring   = builtins.NameAdaptiveTrend
)

// Engine runs backtests. It holds no per-run state and is safe for
// concurrent use.
type Engine struct {
	benchmarks   *strategy.Registry
	topDrawdowns int
	log          *slog.Logger
}

// NewEngine creates an Engine comparing runs against the given benchmarks.
// A nil registry means the built-in set; topDrawdowns <= 0 means the
// default of five.
func NewEngine(benchmarks *strategy.Registry, topDrawdowns int, logger *slog.Logger) *Engine {
	if benchmarks == nil {
		benchmarks = builtins.NewRegistry()
	}
	if topDrawdowns <= 0 {
		topDrawdowns = performance.DefaultTopDrawdowns
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		benchmarks:   benchmarks,
		topDrawdowns: topDrawdowns,
		log:          logger,
	}
}

// Benchmarks returns the registry the engine compares against.
func (e *Engine) Benchmarks() *strategy.Registry {
	return e.benchmarks
}

// Run backtests cfg over series. Signals are evaluated on each day's close
// and filled at the next day's open. Degenerate input produces an empty
// result, not an error; the only error is ErrBacktestFailed.
func (e *Engine) Run(cfg domain.StrategyConfig, series domain.PriceSeries, mctx domain.MarketContext) (res *domain.BacktestResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("backtest panicked", "symbol", cfg.Symbol, "panic", r)
			res, err = nil, fmt.Errorf("%w: %v", ErrBacktestFailed, r)
		}
	}()
	return e.run(cfg, series, mctx), nil
}

func (e *Engine) run(cfg domain.StrategyConfig, series domain.PriceSeries, mctx domain.MarketContext) *domain.BacktestResult {
	bars := series.Sorted()
	start, end := cfg.StartDate, cfg.EndDate
	if len(bars) > 0 {
		if start == "" {
			start = bars[0].Date
		}
		if end == "" {
			end = bars[len(bars)-1].Date
		}
	}
	bars = bars.Between(cfg.StartDate, cfg.EndDate)

	sim := newSimulation(cfg, bars, indicator.AlignToBars(bars, mctx.VIX), e.log)
	sim.run()

	dates := bars.Dates()
	curve := make([]float64, len(dates))
	for i, d := range dates {
		curve[i] = sim.history[d].TotalValue
	}
	trades := sim.acct.Trades
	if trades == nil {
		trades = []domain.Trade{}
	}

	res := &domain.BacktestResult{
		Metadata: domain.Metadata{
			Symbol: cfg.Symbol,
			Period: fmt.Sprintf("%s to %s", start, end),
		},
		Performance: domain.Performance{
			Strategy: performance.MetricsFromCurve(curve, dates, performance.TradeStatsFromTrades(trades), cfg.InitialCapital),
		},
		Analysis: domain.Analysis{
			TopDrawdowns: performance.TopDrawdowns(performance.Points(dates, curve), e.topDrawdowns),
		},
		Charts: domain.Charts{
			Dates:           dates,
			StrategyEquity:  curve,
			BenchmarkEquity: []float64{},
			DCAEquity:       []float64{},
			ScoringEquity:   []float64{},
			UnderlyingPrice: bars.Closes(),
			VIXData:         valuesOn(dates, mctx.VIX),
			TNXData:         valuesOn(dates, mctx.TNX),
		},
		Trades: trades,
	}

	for _, name := range e.benchmarks.List() {
		b, _ := e.benchmarks.Get(name)
		out := b.Calculate(bars, dates, cfg.InitialCapital, mctx)
		switch name {
		case SlotBenchmark:
			res.Performance.Benchmark = out.Stats
			res.Charts.BenchmarkEquity = out.EquityCurve
		case SlotDCA:
			res.Performance.DCA = out.Stats
			res.Charts.DCAEquity = out.EquityCurve
		case SlotScoring:
			res.Performance.Scoring = out.Stats
			res.Charts.ScoringEquity = out.EquityCurve
		default:
			if res.Performance.Additional == nil {
				res.Performance.Additional = make(map[string]domain.PerformanceMetrics)
				res.Charts.AdditionalEquity = make(map[string][]float64)
			}
			res.Performance.Additional[name] = out.Stats
			res.Charts.AdditionalEquity[name] = out.EquityCurve
		}
	}

	e.log.Debug("backtest finished",
		"symbol", cfg.Symbol,
		"bars", len(bars),
		"trades", len(trades),
		"total_return", res.Performance.Strategy.TotalReturn,
	)
	return res
}

// valuesOn looks up each date in values, 0 when missing. It returns nil when
// values is empty.
func valuesOn(dates []string, values map[string]float64) []float64 {
	if len(values) == 0 {
		return nil
	}
	out := make([]float64, len(dates))
	for i, d := range dates {
		out[i] = values[d]
	}
	return out
}

type pendingOrder struct {
	action domain.Action
	reason string
}

// simulation is the state of one run: the account, the trigger cooldown
// bookkeeping and the per-date account snapshots.
type simulation struct {
	cfg       domain.StrategyConfig
	bars      domain.PriceSeries
	vix       []float64
	log       *slog.Logger
	acct      domain.AccountState
	lastFired map[int]int
	history   map[string]domain.AccountState
	pending   []pendingOrder
}

func newSimulation(cfg domain.StrategyConfig, bars domain.PriceSeries, vix []float64, logger *slog.Logger) *simulation {
	return &simulation{
		cfg:       cfg,
		bars:      bars,
		vix:       vix,
		log:       logger,
		acct:      domain.AccountState{Cash: cfg.InitialCapital, TotalValue: cfg.InitialCapital},
		lastFired: make(map[int]int),
		history:   make(map[string]domain.AccountState, len(bars)),
	}
}

func (s *simulation) run() {
	for i, bar := range s.bars {
		if len(s.pending) > 0 {
			s.acct.TotalValue = s.acct.Cash + s.acct.Positions*bar.Open
			for _, o := range s.pending {
				s.execute(o, bar.Open, bar.Date)
			}
			s.pending = s.pending[:0]
		}

		s.acct.TotalValue = s.acct.Cash + s.acct.Positions*bar.Close
		s.history[bar.Date] = s.acct.Snapshot()

		var vixHistory []float64
		if s.vix != nil {
			vixHistory = s.vix[:i+1]
		}
		for j, t := range s.cfg.Triggers {
			if last, ok := s.lastFired[j]; ok && t.Cooldown != nil && i-last < t.Cooldown.Days {
				continue
			}
			if !indicator.CheckTriggerCondition(t, s.bars, i, vixHistory) {
				continue
			}
			s.pending = append(s.pending, pendingOrder{
				action: t.Action,
				reason: fmt.Sprintf("Trigger %d (Signal on %s)", j+1, bar.Date),
			})
			s.lastFired[j] = i
			s.log.Debug("trigger fired", "trigger", j+1, "date", bar.Date, "action", t.Action.Type)
		}
	}
}

func (s *simulation) execute(o pendingOrder, price float64, date string) {
	var qty float64
	switch o.action.Type {
	case domain.ActionBuy:
		qty = CalculateBuyQuantity(o.action.Value, s.acct, price)
		if qty <= 0 {
			return
		}
		s.acct.Cash -= qty * price
		s.acct.Positions += qty
	case domain.ActionSell:
		qty = min(CalculateSellQuantity(o.action.Value, s.acct, price), s.acct.Positions)
		if qty <= 0 {
			return
		}
		s.acct.Cash += qty * price
		s.acct.Positions -= qty
	default:
		return
	}
	s.acct.Trades = append(s.acct.Trades, domain.Trade{
		Date:     date,
		Type:     o.action.Type,
		Quantity: qty,
		Price:    price,
		Reason:   o.reason,
	})
}
