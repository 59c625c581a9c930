package builtins

import (
	"math"

	"github.com/digitalboy/Investment-Strategy-Designer/internal/domain"
	"github.com/digitalboy/Investment-Strategy-Designer/internal/strategy"
	"github.com/digitalboy/Investment-Strategy-Designer/internal/util"
)

// Compile-time interface check.
var _ strategy.Benchmark = (*WeeklyDCA)(nil)

// DefaultDCAAcceleration is the weekly acceleration rate used when the market
// context does not set one.
const DefaultDCAAcceleration = 0.12

const dcaEpsilon = 0.0001

// WeeklyDCA splits capital evenly across ISO weeks and buys on the first
// trading day of each week. After two or more consecutive down weeks the
// purchase is scaled by (1+rate)^(streak-1), capped by remaining cash.
type WeeklyDCA struct{}

// NewWeeklyDCA creates a WeeklyDCA benchmark.
func NewWeeklyDCA() *WeeklyDCA {
	return &WeeklyDCA{}
}

// Name returns "weekly-dca".
func (w *WeeklyDCA) Name() string {
	return NameWeeklyDCA
}

// Calculate runs the benchmark over the bars of series that fall on dates.
func (w *WeeklyDCA) Calculate(series domain.PriceSeries, dates []string, capital float64, mctx domain.MarketContext) strategy.Result {
	if len(dates) == 0 {
		return empty()
	}

	rate := DefaultDCAAcceleration
	if mctx.DCAAcceleration != nil {
		rate = *mctx.DCAAcceleration
	}
	rate = math.Max(0, rate)

	wanted := make(map[string]struct{}, len(dates))
	for _, d := range dates {
		wanted[d] = struct{}{}
	}
	bars := make(domain.PriceSeries, 0, len(series))
	for _, b := range series {
		if _, ok := wanted[b.Date]; ok {
			bars = append(bars, b)
		}
	}

	streaks, weeks := downWeekStreaks(bars)
	var (
		cash      = capital
		positions float64
		stats     domain.TradeStats
		lastWeek  string
		values    = make([]float64, len(bars))
	)

	if weeks > 0 {
		base := capital / float64(weeks)
		for i, bar := range bars {
			week := util.ISOWeekID(bar.Date)
			if week != lastWeek && cash > dcaEpsilon && bar.Close > 0 {
				multiplier := 1.0
				if s := streaks[week]; s >= 2 {
					multiplier = math.Pow(1+rate, float64(s-1))
				}
				invest := base * multiplier
				if cash < invest+dcaEpsilon {
					invest = cash
				}

				positions += invest / bar.Close
				cash -= invest
				if cash < dcaEpsilon {
					cash = 0
				}
				stats.BuyCount++
				stats.TotalTrades++
				stats.TotalInvested += invest
				lastWeek = week
			}
			values[i] = cash + positions*bar.Close
		}
	}

	res := finish(bars, values, dates, capital, stats)
	res.Stats.DCAAccelerationRate = &rate
	return res
}

// downWeekStreaks returns, for each ISO week in bars, how many consecutive
// completed weeks before it closed lower than the week before, along with
// the number of distinct weeks.
func downWeekStreaks(bars domain.PriceSeries) (map[string]int, int) {
	type weekClose struct {
		id    string
		close float64
	}
	var closes []weekClose
	for _, b := range bars {
		id := util.ISOWeekID(b.Date)
		if n := len(closes); n > 0 && closes[n-1].id == id {
			closes[n-1].close = b.Close
			continue
		}
		closes = append(closes, weekClose{id: id, close: b.Close})
	}

	streaks := make(map[string]int, len(closes))
	streak := 0
	for i, wc := range closes {
		if i >= 2 {
			if closes[i-1].close < closes[i-2].close {
				streak++
			} else {
				streak = 0
			}
		}
		streaks[wc.id] = streak
	}
	return streaks, len(closes)
}
