package monitor

import (
	"fmt"

	"github.com/digitalboy/Investment-Strategy-Designer/internal/domain"
)

func word(cond bool, yes, no string) string {
	if cond {
		return yes
	}
	return no
}

// DescribeCondition renders a trigger condition as a one-line sentence.
// currentVIX is shown for VIX conditions when non-nil.
func DescribeCondition(c domain.Condition, symbol string, currentVIX *float64) string {
	vixNow := "N/A"
	if currentVIX != nil {
		vixNow = fmt.Sprintf("%.2f", *currentVIX)
	}

	switch c := c.(type) {
	case domain.DrawdownFromPeak:
		return fmt.Sprintf("%s down more than %g%% from its %d-day high", symbol, c.Percentage, c.Days)
	case domain.PriceStreak:
		return fmt.Sprintf("%s %s %d days in a row", symbol, word(c.Direction == domain.DirectionUp, "up", "down"), c.Count)
	case domain.NewHigh:
		return fmt.Sprintf("%s at a new %d-day high", symbol, c.Days)
	case domain.NewLow:
		return fmt.Sprintf("%s at a new %d-day low", symbol, c.Days)
	case domain.PeriodReturn:
		return fmt.Sprintf("%s %s more than %g%% over %d days", symbol,
			word(c.Direction == domain.DirectionUp, "up", "down"), c.Percentage, c.Days)
	case domain.RSI:
		return fmt.Sprintf("%s RSI(%d) %s %g", symbol, c.Period,
			word(c.Operator == domain.DirectionAbove, "above", "below"), c.Threshold)
	case domain.MACross:
		return fmt.Sprintf("%s crossed %s its %d-day moving average", symbol,
			word(c.Direction == domain.DirectionAbove, "above", "below"), c.Period)
	case domain.VIX:
		switch c.Mode {
		case domain.VIXModeStreak:
			return fmt.Sprintf("VIX %s %d days in a row (now %s)",
				word(c.StreakDirection == domain.DirectionUp, "up", "down"), c.StreakCount, vixNow)
		case domain.VIXModeBreakout:
			return fmt.Sprintf("VIX at a new %d-day %s (now %s)",
				c.BreakoutDays, word(c.BreakoutType == "high", "high", "low"), vixNow)
		default:
			threshold := "?"
			if c.Threshold != nil {
				threshold = fmt.Sprintf("%g", *c.Threshold)
			}
			return fmt.Sprintf("VIX %s %s (now %s)",
				word(c.Operator == domain.DirectionAbove, "above", "below"), threshold, vixNow)
		}
	case domain.UnknownCondition:
		return fmt.Sprintf("unknown condition %q", c.Kind)
	default:
		return fmt.Sprintf("unknown condition %q", c.Type())
	}
}

// FormatActionValue renders a sizing value, e.g. "$500" or "50% (cashPercent)".
func FormatActionValue(v domain.SizingValue) string {
	if v.Type == domain.SizingFixedAmount {
		return fmt.Sprintf("$%g", v.Amount)
	}
	return fmt.Sprintf("%g%% (%s)", v.Amount, v.Type)
}
