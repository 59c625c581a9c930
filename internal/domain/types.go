// Package domain defines the core data types shared across the strategy
// designer: price bars, strategy definitions, account state, trades and
// backtest results.
package domain

import (
	"sort"
)

// DateLayout is the calendar date format used for every date string.
const DateLayout = "2006-01-02"

// PriceBar is one trading day of OHLCV data. Dates are ISO YYYY-MM-DD.
type PriceBar struct {
	Date   string  `json:"d"`
	Open   float64 `json:"o"`
	High   float64 `json:"h"`
	Low    float64 `json:"l"`
	Close  float64 `json:"c"`
	Volume int64   `json:"v"`
}

// PriceSeries is a date-ordered, date-unique sequence of bars for one symbol.
type PriceSeries []PriceBar

// Sorted returns a copy of the series ordered by date.
func (s PriceSeries) Sorted() PriceSeries {
	out := make(PriceSeries, len(s))
	copy(out, s)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// Between returns the bars whose dates fall in [start, end]. An empty bound
// is open.
func (s PriceSeries) Between(start, end string) PriceSeries {
	out := make(PriceSeries, 0, len(s))
	for _, b := range s {
		if start != "" && b.Date < start {
			continue
		}
		if end != "" && b.Date > end {
			continue
		}
		out = append(out, b)
	}
	return out
}

// Closes returns the closing prices in series order.
func (s PriceSeries) Closes() []float64 {
	out := make([]float64, len(s))
	for i, b := range s {
		out[i] = b.Close
	}
	return out
}

// Dates returns the bar dates in series order.
func (s PriceSeries) Dates() []string {
	out := make([]string, len(s))
	for i, b := range s {
		out[i] = b.Date
	}
	return out
}

// StrategyConfig is a user-defined rule set over a single instrument.
type StrategyConfig struct {
	Symbol         string    `json:"etfSymbol"`
	StartDate      string    `json:"startDate,omitempty"`
	EndDate        string    `json:"endDate,omitempty"`
	InitialCapital float64   `json:"initialCapital"`
	Triggers       []Trigger `json:"triggers"`
}

// Cooldown is the minimum number of trading days between two firings of the
// same trigger.
type Cooldown struct {
	Days int `json:"days"`
}

// ActionType is the direction of an order.
type ActionType string

const (
	ActionBuy  ActionType = "buy"
	ActionSell ActionType = "sell"
)

// SizingType selects how an order quantity is derived.
type SizingType string

const (
	SizingFixedAmount       SizingType = "fixedAmount"
	SizingCashPercent       SizingType = "cashPercent"
	SizingPositionPercent   SizingType = "positionPercent"
	SizingTotalValuePercent SizingType = "totalValuePercent"
)

// SizingValue is an abstract order size. Amount is a currency amount for
// fixedAmount and a percentage in 0..100 for the percent types.
type SizingValue struct {
	Type   SizingType `json:"type"`
	Amount float64    `json:"amount"`
}

// Action is what a trigger does when its condition holds.
type Action struct {
	Type  ActionType  `json:"type"`
	Value SizingValue `json:"value"`
}

// Trade is one executed fill.
type Trade struct {
	Date     string     `json:"date"`
	Type     ActionType `json:"type"`
	Quantity float64    `json:"quantity"`
	Price    float64    `json:"price"`
	Reason   string     `json:"reason"`
}

// AccountState is the mutable state of one simulation run.
type AccountState struct {
	Cash       float64 `json:"cash"`
	Positions  float64 `json:"positions"`
	TotalValue float64 `json:"totalValue"`
	Trades     []Trade `json:"trades"`
}

// Snapshot returns a copy of the account whose trade history is capped at
// its current length, so later appends to the live account never show
// through. Trade history is append-only.
func (a AccountState) Snapshot() AccountState {
	a.Trades = a.Trades[:len(a.Trades):len(a.Trades)]
	return a
}

// TradeStats summarises the fills of a run.
type TradeStats struct {
	TotalTrades   int     `json:"totalTrades"`
	BuyCount      int     `json:"buyCount"`
	SellCount     int     `json:"sellCount"`
	TotalInvested float64 `json:"totalInvested"`
	TotalProceeds float64 `json:"totalProceeds"`
}

// PerformanceMetrics summarises an equity curve. Returns and drawdown are
// percentages; MaxDrawdown is always <= 0.
type PerformanceMetrics struct {
	TotalReturn         float64    `json:"totalReturn"`
	AnnualizedReturn    float64    `json:"annualizedReturn"`
	MaxDrawdown         float64    `json:"maxDrawdown"`
	SharpeRatio         float64    `json:"sharpeRatio"`
	TradeStats          TradeStats `json:"tradeStats"`
	DCAAccelerationRate *float64   `json:"dcaAccelerationRate,omitempty"`
}

// DrawdownEvent is one underwater episode of an equity curve.
type DrawdownEvent struct {
	Rank          int     `json:"rank"`
	DepthPercent  float64 `json:"depthPercent"`
	PeakDate      string  `json:"peakDate"`
	PeakPrice     float64 `json:"peakPrice"`
	ValleyDate    string  `json:"valleyDate"`
	ValleyPrice   float64 `json:"valleyPrice"`
	RecoveryDate  *string `json:"recoveryDate"`
	IsRecovered   bool    `json:"isRecovered"`
	DaysToRecover int     `json:"daysToRecover"`
}

// MarketContext carries optional auxiliary series and benchmark tuning.
// VIX and TNX map a date to the index close on that day.
type MarketContext struct {
	VIX             map[string]float64 `json:"vixData,omitempty"`
	TNX             map[string]float64 `json:"tnxData,omitempty"`
	DCAAcceleration *float64           `json:"dcaAcceleration,omitempty"`
}

// Metadata identifies a backtest result.
type Metadata struct {
	Symbol string `json:"symbol"`
	Period string `json:"period"`
}

// Performance groups the strategy metrics with the comparison benchmarks.
type Performance struct {
	Strategy   PerformanceMetrics            `json:"strategy"`
	Benchmark  PerformanceMetrics            `json:"benchmark"`
	DCA        PerformanceMetrics            `json:"dca"`
	Scoring    PerformanceMetrics            `json:"scoring"`
	Additional map[string]PerformanceMetrics `json:"additional,omitempty"`
}

// Analysis holds post-hoc analytics of the strategy curve.
type Analysis struct {
	TopDrawdowns []DrawdownEvent `json:"topDrawdowns"`
}

// Charts holds series positionally aligned to Dates.
type Charts struct {
	Dates            []string             `json:"dates"`
	StrategyEquity   []float64            `json:"strategyEquity"`
	BenchmarkEquity  []float64            `json:"benchmarkEquity"`
	DCAEquity        []float64            `json:"dcaEquity"`
	ScoringEquity    []float64            `json:"scoringEquity"`
	UnderlyingPrice  []float64            `json:"underlyingPrice"`
	VIXData          []float64            `json:"vixData,omitempty"`
	TNXData          []float64            `json:"tnxData,omitempty"`
	AdditionalEquity map[string][]float64 `json:"additionalEquity,omitempty"`
}

// BacktestResult is the full output of one backtest.
type BacktestResult struct {
	Metadata    Metadata    `json:"metadata"`
	Performance Performance `json:"performance"`
	Analysis    Analysis    `json:"analysis"`
	Charts      Charts      `json:"charts"`
	Trades      []Trade     `json:"trades"`
}
