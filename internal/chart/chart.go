// Package chart renders backtest equity curves as PNG images.
package chart

import (
	"errors"
	"fmt"
	"math"

	"github.com/vicanso/go-charts/v2"

	"github.com/digitalboy/Investment-Strategy-Designer/internal/domain"
)

// ErrTooFewPoints is returned when a result has fewer than two dates.
var ErrTooFewPoints = errors.New("chart: need at least two points")

const (
	width  = 1000
	height = 560
)

// RenderEquity draws the strategy curve together with every comparison
// curve that covers all dates, titled with the symbol, period and headline
// metrics.
func RenderEquity(result *domain.BacktestResult) ([]byte, error) {
	c := result.Charts
	if len(c.Dates) < 2 {
		return nil, ErrTooFewPoints
	}

	var (
		names  []string
		values [][]float64
	)
	add := func(name string, curve []float64) {
		if len(curve) != len(c.Dates) {
			return
		}
		names = append(names, name)
		values = append(values, curve)
	}
	add("Strategy", c.StrategyEquity)
	add("Buy & Hold", c.BenchmarkEquity)
	add("Weekly DCA", c.DCAEquity)
	add("Adaptive Trend", c.ScoringEquity)
	if len(values) == 0 {
		return nil, fmt.Errorf("chart: no curve matches %d dates", len(c.Dates))
	}

	yMin, yMax := bounds(values)
	pad := (yMax - yMin) * 0.05
	if pad == 0 {
		pad = math.Max(math.Abs(yMax)*0.05, 1)
	}
	yMin -= pad
	yMax += pad

	m := result.Performance.Strategy
	title := fmt.Sprintf("%s backtest (%s)", result.Metadata.Symbol, result.Metadata.Period)
	subtitle := fmt.Sprintf("Return: %.2f%% | CAGR: %.2f%% | MaxDD: %.2f%% | Sharpe: %.2f",
		m.TotalReturn, m.AnnualizedReturn, m.MaxDrawdown, m.SharpeRatio)

	p, err := charts.LineRender(
		values,
		charts.TitleTextOptionFunc(title, subtitle),
		charts.XAxisOptionFunc(charts.XAxisOption{
			Data:        c.Dates,
			SplitNumber: splitNumber(len(c.Dates)),
			BoundaryGap: charts.FalseFlag(),
		}),
		charts.YAxisOptionFunc(charts.YAxisOption{
			Min:         &yMin,
			Max:         &yMax,
			DivideCount: 5,
		}),
		charts.LegendOptionFunc(charts.LegendOption{Data: names}),
		charts.WidthOptionFunc(width),
		charts.HeightOptionFunc(height),
		charts.ThemeOptionFunc(charts.ThemeLight),
	)
	if err != nil {
		return nil, fmt.Errorf("rendering chart: %w", err)
	}

	buf, err := p.Bytes()
	if err != nil {
		return nil, fmt.Errorf("encoding chart: %w", err)
	}
	return buf, nil
}

func bounds(values [][]float64) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, s := range values {
		for _, v := range s {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	return lo, hi
}

func splitNumber(n int) int {
	if n > 30 {
		return 6
	}
	return max(n/3, 1)
}
