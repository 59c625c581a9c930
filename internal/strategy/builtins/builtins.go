// Package builtins provides the reference benchmark strategies that ship
// with the strategy designer.
package builtins

import (
	"github.com/digitalboy/Investment-Strategy-Designer/internal/domain"
	"github.com/digitalboy/Investment-Strategy-Designer/internal/performance"
	"github.com/digitalboy/Investment-Strategy-Designer/internal/strategy"
)

// Registry names of the built-in benchmarks.
const (
	NameBuyAndHold    = "buy-and-hold"
	NameWeeklyDCA     = "weekly-dca"
	NameAdaptiveTrend = "adaptive-trend"
	NameSmartTrend    = "smart-trend"
	NameSmartTrend32  = "smart-trend-3-2"
	NameMultiFactor   = "multi-factor"
)

// NewRegistry returns a registry holding every built-in benchmark.
func NewRegistry() *strategy.Registry {
	r := strategy.NewRegistry()
	r.Register(NewBuyAndHold())
	r.Register(NewWeeklyDCA())
	r.Register(NewAdaptiveTrend())
	r.Register(NewSmartTrend())
	r.Register(NewSmartTrend32())
	r.Register(NewMultiFactor())
	return r
}

// allInOut is an account that is either fully invested or fully in cash.
type allInOut struct {
	cash      float64
	positions float64
	stats     domain.TradeStats
}

func newAllInOut(capital float64) *allInOut {
	return &allInOut{cash: capital}
}

func (a *allInOut) invested() bool { return a.positions > 0 }

func (a *allInOut) buyAll(price float64) {
	if price <= 0 || a.cash <= 0 {
		return
	}
	a.positions = a.cash / price
	a.stats.TotalInvested += a.cash
	a.cash = 0
	a.stats.BuyCount++
	a.stats.TotalTrades++
}

func (a *allInOut) sellAll(price float64) {
	proceeds := a.positions * price
	a.cash += proceeds
	a.positions = 0
	a.stats.SellCount++
	a.stats.TotalTrades++
	a.stats.TotalProceeds += proceeds
}

func (a *allInOut) value(price float64) float64 {
	return a.cash + a.positions*price
}

// finish aligns per-bar values to dates and derives metrics.
func finish(series domain.PriceSeries, values []float64, dates []string, capital float64, stats domain.TradeStats) strategy.Result {
	curve := strategy.AlignCurve(series, values, dates, capital)
	return strategy.Result{
		EquityCurve: curve,
		Stats:       performance.MetricsFromCurve(curve, dates, stats, capital),
	}
}

// empty is the result for an empty alignment window.
func empty() strategy.Result {
	return strategy.Result{EquityCurve: []float64{}}
}

// vixOn returns the volatility index on date, or 0 when unknown.
func vixOn(mctx domain.MarketContext, date string) float64 {
	if mctx.VIX == nil {
		return 0
	}
	return mctx.VIX[date]
}
