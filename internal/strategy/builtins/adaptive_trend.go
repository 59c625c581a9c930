package builtins

import (
	"github.com/digitalboy/Investment-Strategy-Designer/internal/domain"
	"github.com/digitalboy/Investment-Strategy-Designer/internal/indicator"
	"github.com/digitalboy/Investment-Strategy-Designer/internal/strategy"
)

// Compile-time interface check.
var _ strategy.Benchmark = (*AdaptiveTrend)(nil)

// AdaptiveTrend goes all-in when price > EMA(fast) > SMA(slow). It exits on a
// close below the EMA while volatility is calm, and below the SMA otherwise.
type AdaptiveTrend struct {
	fastPeriod int
	slowPeriod int
	calmVIX    float64
}

// NewAdaptiveTrend creates an AdaptiveTrend benchmark with EMA(20), SMA(60)
// and a calm-volatility cutoff of 20.
func NewAdaptiveTrend() *AdaptiveTrend {
	return &AdaptiveTrend{
		fastPeriod: 20,
		slowPeriod: 60,
		calmVIX:    20,
	}
}

// Name returns "adaptive-trend".
func (a *AdaptiveTrend) Name() string {
	return NameAdaptiveTrend
}

// Calculate runs the benchmark over series. No trades happen before the
// slow average has a full window behind it.
func (a *AdaptiveTrend) Calculate(series domain.PriceSeries, dates []string, capital float64, mctx domain.MarketContext) strategy.Result {
	if len(dates) == 0 {
		return empty()
	}

	closes := series.Closes()
	ema := indicator.EMA(closes, a.fastPeriod)
	acct := newAllInOut(capital)
	values := make([]float64, len(series))

	for i, bar := range series {
		price := bar.Close
		if i >= a.slowPeriod {
			sma, _ := indicator.SMA(closes, i, a.slowPeriod)
			if !acct.invested() {
				if price > ema[i] && ema[i] > sma {
					acct.buyAll(price)
				}
			} else {
				stop := sma
				if vixOn(mctx, bar.Date) < a.calmVIX {
					stop = ema[i]
				}
				if price < stop {
					acct.sellAll(price)
				}
			}
		}
		values[i] = acct.value(price)
	}
	return finish(series, values, dates, capital, acct.stats)
}
