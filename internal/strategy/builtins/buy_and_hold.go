package builtins

import (
	"github.com/digitalboy/Investment-Strategy-Designer/internal/domain"
	"github.com/digitalboy/Investment-Strategy-Designer/internal/strategy"
)

// Compile-time interface check.
var _ strategy.Benchmark = (*BuyAndHold)(nil)

// BuyAndHold invests all capital at the first bar's close and never trades
// again.
type BuyAndHold struct{}

// NewBuyAndHold creates a BuyAndHold benchmark.
func NewBuyAndHold() *BuyAndHold {
	return &BuyAndHold{}
}

// Name returns "buy-and-hold".
func (b *BuyAndHold) Name() string {
	return NameBuyAndHold
}

// Calculate runs the benchmark over series.
func (b *BuyAndHold) Calculate(series domain.PriceSeries, dates []string, capital float64, _ domain.MarketContext) strategy.Result {
	if len(dates) == 0 {
		return empty()
	}
	if len(series) == 0 || series[0].Close <= 0 {
		return finish(nil, nil, dates, capital, domain.TradeStats{})
	}

	shares := capital / series[0].Close
	values := make([]float64, len(series))
	for i, bar := range series {
		values[i] = shares * bar.Close
	}
	stats := domain.TradeStats{TotalTrades: 1, BuyCount: 1, TotalInvested: capital}
	return finish(series, values, dates, capital, stats)
}
