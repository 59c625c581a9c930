package builtins

import (
	"github.com/digitalboy/Investment-Strategy-Designer/internal/domain"
	"github.com/digitalboy/Investment-Strategy-Designer/internal/indicator"
	"github.com/digitalboy/Investment-Strategy-Designer/internal/strategy"
)

// Compile-time interface checks.
var (
	_ strategy.Benchmark = (*SmartTrend)(nil)
	_ strategy.Benchmark = (*SmartTrend32)(nil)
)

const (
	slopePeriod = 20
	rsiPeriod   = 14
	neutralRSI  = 50
)

// SmartTrend holds the instrument while the 20-day regression slope of
// closes is positive and steps aside when it turns negative.
type SmartTrend struct{}

// NewSmartTrend creates a SmartTrend benchmark.
func NewSmartTrend() *SmartTrend {
	return &SmartTrend{}
}

// Name returns "smart-trend".
func (s *SmartTrend) Name() string {
	return NameSmartTrend
}

// Calculate runs the benchmark over series.
func (s *SmartTrend) Calculate(series domain.PriceSeries, dates []string, capital float64, _ domain.MarketContext) strategy.Result {
	if len(dates) == 0 {
		return empty()
	}

	closes := series.Closes()
	acct := newAllInOut(capital)
	values := make([]float64, len(series))

	for i, price := range closes {
		slope := indicator.SlopeAt(closes, i, slopePeriod)
		if !acct.invested() && slope > 0 {
			acct.buyAll(price)
		} else if acct.invested() && slope < 0 {
			acct.sellAll(price)
		}
		values[i] = acct.value(price)
	}
	return finish(series, values, dates, capital, acct.stats)
}

// SmartTrend32 scores trend, volatility and momentum each day:
//
//	slope > 0: +2, slope < 0: -2
//	VIX > 30: +2, 0 < VIX < 12: -1
//	RSI(14) < 30: +2, RSI(14) > 75: -1
//
// It holds while the score is positive and exits when it drops to zero or
// below.
type SmartTrend32 struct{}

// NewSmartTrend32 creates a SmartTrend32 benchmark.
func NewSmartTrend32() *SmartTrend32 {
	return &SmartTrend32{}
}

// Name returns "smart-trend-3-2".
func (s *SmartTrend32) Name() string {
	return NameSmartTrend32
}

// Calculate runs the benchmark over series.
func (s *SmartTrend32) Calculate(series domain.PriceSeries, dates []string, capital float64, mctx domain.MarketContext) strategy.Result {
	if len(dates) == 0 {
		return empty()
	}

	closes := series.Closes()
	acct := newAllInOut(capital)
	values := make([]float64, len(series))

	for i, bar := range series {
		price := bar.Close
		score := trendScore(closes, i, vixOn(mctx, bar.Date))
		if !acct.invested() && score > 0 {
			acct.buyAll(price)
		} else if acct.invested() && score <= 0 {
			acct.sellAll(price)
		}
		values[i] = acct.value(price)
	}
	return finish(series, values, dates, capital, acct.stats)
}

func trendScore(closes []float64, i int, vix float64) int {
	score := 0
	switch slope := indicator.SlopeAt(closes, i, slopePeriod); {
	case slope > 0:
		score += 2
	case slope < 0:
		score -= 2
	}

	switch {
	case vix > 30:
		score += 2
	case vix > 0 && vix < 12:
		score--
	}

	rsi := rsiOrNeutral(closes, i)
	switch {
	case rsi < 30:
		score += 2
	case rsi > 75:
		score--
	}
	return score
}

func rsiOrNeutral(closes []float64, i int) float64 {
	if rsi, ok := indicator.RSI(closes, i, rsiPeriod); ok {
		return rsi
	}
	return neutralRSI
}
