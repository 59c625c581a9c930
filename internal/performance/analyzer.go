// Package performance computes return, drawdown and risk-adjusted metrics
// from an equity curve.
package performance

import (
	"math"
	"time"

	"github.com/digitalboy/Investment-Strategy-Designer/internal/domain"
)

// TradingDaysPerYear annualises daily Sharpe ratios.
const TradingDaysPerYear = 252

const daysPerYear = 365.25

// MaxDrawdown returns the largest peak-to-trough decline of values as a
// non-positive percentage.
func MaxDrawdown(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	peak := values[0]
	maxDD := 0.0
	for _, v := range values {
		if v > peak {
			peak = v
		}
		if peak <= 0 {
			continue
		}
		if dd := (peak - v) / peak * 100; dd > maxDD {
			maxDD = dd
		}
	}
	if maxDD == 0 {
		return 0
	}
	return -maxDD
}

// SharpeRatio annualises the mean over the population standard deviation of
// day-over-day returns, with a zero risk-free rate.
func SharpeRatio(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	returns := make([]float64, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		prev := values[i-1]
		if prev == 0 {
			returns = append(returns, 0)
			continue
		}
		returns = append(returns, (values[i]-prev)/prev)
	}

	var sum float64
	for _, r := range returns {
		sum += r
	}
	mean := sum / float64(len(returns))

	var sumSq float64
	for _, r := range returns {
		sumSq += (r - mean) * (r - mean)
	}
	stdev := math.Sqrt(sumSq / float64(len(returns)))
	if stdev == 0 || math.IsNaN(stdev) {
		return 0
	}
	return mean / stdev * math.Sqrt(TradingDaysPerYear)
}

// MetricsFromCurve derives PerformanceMetrics from an equity curve aligned to
// dates. An empty curve yields zero metrics carrying stats.
func MetricsFromCurve(curve []float64, dates []string, stats domain.TradeStats, initialCapital float64) domain.PerformanceMetrics {
	m := domain.PerformanceMetrics{TradeStats: stats}
	if len(curve) == 0 || initialCapital <= 0 {
		return m
	}

	end := curve[len(curve)-1]
	m.TotalReturn = finite((end - initialCapital) / initialCapital * 100)

	if years := elapsedYears(dates); years > 0 && end > 0 {
		m.AnnualizedReturn = finite((math.Pow(end/initialCapital, 1/years) - 1) * 100)
	}
	m.MaxDrawdown = MaxDrawdown(curve)
	m.SharpeRatio = SharpeRatio(curve)
	return m
}

// TradeStatsFromTrades tallies executed fills.
func TradeStatsFromTrades(trades []domain.Trade) domain.TradeStats {
	var s domain.TradeStats
	for _, t := range trades {
		switch t.Type {
		case domain.ActionBuy:
			s.BuyCount++
			s.TotalInvested += t.Quantity * t.Price
		case domain.ActionSell:
			s.SellCount++
			s.TotalProceeds += t.Quantity * t.Price
		}
	}
	s.TotalTrades = s.BuyCount + s.SellCount
	return s
}

func elapsedYears(dates []string) float64 {
	if len(dates) < 2 {
		return 0
	}
	first, err := time.Parse(domain.DateLayout, dates[0])
	if err != nil {
		return 0
	}
	last, err := time.Parse(domain.DateLayout, dates[len(dates)-1])
	if err != nil {
		return 0
	}
	return last.Sub(first).Hours() / 24 / daysPerYear
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
