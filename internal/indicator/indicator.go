// Package indicator evaluates trigger conditions against a daily price
// history. Every check at index i reads only bars[0..i].
package indicator

import (
	"math"

	"github.com/digitalboy/Investment-Strategy-Designer/internal/domain"
)

// CheckTriggerCondition reports whether the trigger's condition holds at the
// close of bars[i]. vixHistory holds the volatility index values aligned with
// bars up to and including i; VIX conditions are false without it. Unknown
// condition types are never satisfied.
func CheckTriggerCondition(trigger domain.Trigger, bars domain.PriceSeries, i int, vixHistory []float64) bool {
	if i < 0 || i >= len(bars) {
		return false
	}
	switch c := trigger.Condition.(type) {
	case domain.DrawdownFromPeak:
		return drawdownFromPeak(c, bars, i)
	case domain.PriceStreak:
		return priceStreak(c, bars, i)
	case domain.NewHigh:
		return newHigh(c.Days, bars, i)
	case domain.NewLow:
		return newLow(c.Days, bars, i)
	case domain.PeriodReturn:
		return periodReturn(c, bars, i)
	case domain.RSI:
		return rsiCondition(c, bars, i)
	case domain.MACross:
		return maCross(c, bars, i)
	case domain.VIX:
		if len(vixHistory) == 0 {
			return false
		}
		return vixCondition(c, vixHistory)
	default:
		return false
	}
}

func high(b domain.PriceBar) float64 {
	if b.High == 0 {
		return b.Close
	}
	return b.High
}

func low(b domain.PriceBar) float64 {
	if b.Low == 0 {
		return b.Close
	}
	return b.Low
}

func drawdownFromPeak(c domain.DrawdownFromPeak, bars domain.PriceSeries, i int) bool {
	if c.Days < 0 {
		return false
	}
	start := max(0, i-c.Days)
	peak := math.Inf(-1)
	for _, b := range bars[start : i+1] {
		peak = max(peak, high(b))
	}
	if peak <= 0 {
		return false
	}
	drawdown := (peak - bars[i].Close) / peak * 100
	return drawdown >= c.Percentage
}

// priceStreak needs count prior bars. Weekly streaks are not supported and
// always evaluate to false.
func priceStreak(c domain.PriceStreak, bars domain.PriceSeries, i int) bool {
	if c.Unit != "" && c.Unit != "day" {
		return false
	}
	if c.Count <= 0 || i < c.Count {
		return false
	}
	for j := i; j > i-c.Count; j-- {
		prev, cur := bars[j-1].Close, bars[j].Close
		switch c.Direction {
		case domain.DirectionUp:
			if !(cur > prev) {
				return false
			}
		case domain.DirectionDown:
			if !(cur < prev) {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func newHigh(days int, bars domain.PriceSeries, i int) bool {
	start := max(0, i-days)
	if start >= i {
		return false
	}
	peak := math.Inf(-1)
	for _, b := range bars[start:i] {
		peak = max(peak, high(b))
	}
	return bars[i].Close > peak
}

func newLow(days int, bars domain.PriceSeries, i int) bool {
	start := max(0, i-days)
	if start >= i {
		return false
	}
	trough := math.Inf(1)
	for _, b := range bars[start:i] {
		trough = min(trough, low(b))
	}
	return bars[i].Close < trough
}

func periodReturn(c domain.PeriodReturn, bars domain.PriceSeries, i int) bool {
	if c.Days < 0 || i < c.Days {
		return false
	}
	startPrice := bars[i-c.Days].Close
	if startPrice == 0 {
		return false
	}
	ret := (bars[i].Close - startPrice) / startPrice * 100
	switch c.Direction {
	case domain.DirectionUp:
		return ret >= c.Percentage
	case domain.DirectionDown:
		return ret <= -c.Percentage
	}
	return false
}

func rsiCondition(c domain.RSI, bars domain.PriceSeries, i int) bool {
	rsi, ok := RSI(bars[:i+1].Closes(), i, c.Period)
	if !ok {
		return false
	}
	switch c.Operator {
	case domain.DirectionAbove:
		return rsi > c.Threshold
	case domain.DirectionBelow:
		return rsi < c.Threshold
	}
	return false
}

func maCross(c domain.MACross, bars domain.PriceSeries, i int) bool {
	if c.Period <= 0 || i < c.Period {
		return false
	}
	ma, ok := SMA(bars[:i+1].Closes(), i, c.Period)
	if !ok {
		return false
	}
	prev, cur := bars[i-1].Close, bars[i].Close
	switch c.Direction {
	case domain.DirectionAbove:
		return prev <= ma && cur > ma
	case domain.DirectionBelow:
		return prev >= ma && cur < ma
	}
	return false
}

func vixCondition(c domain.VIX, history []float64) bool {
	current := history[len(history)-1]
	mode := c.Mode
	if mode == "" {
		mode = domain.VIXModeThreshold
	}

	switch mode {
	case domain.VIXModeThreshold:
		if c.Threshold == nil {
			return false
		}
		switch c.Operator {
		case domain.DirectionAbove:
			return current > *c.Threshold
		case domain.DirectionBelow:
			return current < *c.Threshold
		}
		return false
	}

	synthetic := make(domain.PriceSeries, len(history))
	for j, v := range history {
		synthetic[j] = domain.PriceBar{Close: v}
	}
	last := len(synthetic) - 1

	switch mode {
	case domain.VIXModeStreak:
		if c.StreakDirection == "" || c.StreakCount <= 0 {
			return false
		}
		return priceStreak(domain.PriceStreak{Direction: c.StreakDirection, Count: c.StreakCount, Unit: "day"}, synthetic, last)
	case domain.VIXModeBreakout:
		if c.BreakoutDays <= 0 {
			return false
		}
		switch c.BreakoutType {
		case "high":
			return newHigh(c.BreakoutDays, synthetic, last)
		case "low":
			return newLow(c.BreakoutDays, synthetic, last)
		}
	}
	return false
}

// AlignToBars maps a date-keyed series onto bars, carrying the last known
// value forward and using 0 before the first one. It returns nil when values
// is empty.
func AlignToBars(bars domain.PriceSeries, values map[string]float64) []float64 {
	if len(values) == 0 {
		return nil
	}
	out := make([]float64, len(bars))
	last := 0.0
	for i, b := range bars {
		if v, ok := values[b.Date]; ok {
			last = v
		}
		out[i] = last
	}
	return out
}
