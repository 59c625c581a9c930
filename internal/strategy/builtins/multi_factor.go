package builtins

import (
	"math"

	"github.com/digitalboy/Investment-Strategy-Designer/internal/domain"
	"github.com/digitalboy/Investment-Strategy-Designer/internal/strategy"
)

// Compile-time interface check.
var _ strategy.Benchmark = (*MultiFactor)(nil)

// MultiFactor buys dips scored on fear, oversold momentum and drawdown depth:
// one point each for VIX > 20, VIX > 30, RSI < 40, RSI < 30, drawdown below
// -5% and drawdown below -15%. It enters at a score of 2 and exits once RSI
// exceeds 70 or price recovers to within 2% of its running high.
type MultiFactor struct {
	entryScore int
}

// NewMultiFactor creates a MultiFactor benchmark.
func NewMultiFactor() *MultiFactor {
	return &MultiFactor{entryScore: 2}
}

// Name returns "multi-factor".
func (m *MultiFactor) Name() string {
	return NameMultiFactor
}

// Calculate runs the benchmark over series.
func (m *MultiFactor) Calculate(series domain.PriceSeries, dates []string, capital float64, mctx domain.MarketContext) strategy.Result {
	if len(dates) == 0 {
		return empty()
	}

	closes := series.Closes()
	acct := newAllInOut(capital)
	values := make([]float64, len(series))
	runMax := math.Inf(-1)

	for i, bar := range series {
		price := bar.Close
		runMax = math.Max(runMax, price)
		var drawdown float64
		if runMax > 0 {
			drawdown = (price - runMax) / runMax * 100
		}
		rsi := rsiOrNeutral(closes, i)
		vix := vixOn(mctx, bar.Date)

		if !acct.invested() {
			if dipScore(vix, rsi, drawdown) >= m.entryScore {
				acct.buyAll(price)
			}
		} else if rsi > 70 || drawdown > -2 {
			acct.sellAll(price)
		}
		values[i] = acct.value(price)
	}
	return finish(series, values, dates, capital, acct.stats)
}

func dipScore(vix, rsi, drawdown float64) int {
	score := 0
	for _, hit := range []bool{
		vix > 20, vix > 30,
		rsi < 40, rsi < 30,
		drawdown < -5, drawdown < -15,
	} {
		if hit {
			score++
		}
	}
	return score
}
