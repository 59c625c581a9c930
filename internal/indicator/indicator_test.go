package indicator

import (
	"math"
	"testing"

	"github.com/digitalboy/Investment-Strategy-Designer/internal/domain"
)

func qqqBars() domain.PriceSeries {
	return domain.PriceSeries{
		{Date: "2023-01-01", Open: 300, High: 305, Low: 295, Close: 303, Volume: 1000000},
		{Date: "2023-01-02", Open: 303, High: 308, Low: 300, Close: 306, Volume: 1200000},
		{Date: "2023-01-03", Open: 306, High: 310, Low: 302, Close: 298, Volume: 1500000},
		{Date: "2023-01-04", Open: 298, High: 302, Low: 295, Close: 300, Volume: 1100000},
		{Date: "2023-01-05", Open: 300, High: 305, Low: 297, Close: 304, Volume: 1300000},
	}
}

func closeOnly(closes ...float64) domain.PriceSeries {
	out := make(domain.PriceSeries, len(closes))
	for i, c := range closes {
		out[i] = domain.PriceBar{Close: c}
	}
	return out
}

func trig(c domain.Condition) domain.Trigger {
	return domain.Trigger{Condition: c, Action: domain.Action{Type: domain.ActionBuy}}
}

func ptr(v float64) *float64 { return &v }

func TestCheckTriggerCondition(t *testing.T) {
	bars := qqqBars()
	closes := closeOnly(303, 306, 298, 300, 304)

	tests := []struct {
		name string
		cond domain.Condition
		bars domain.PriceSeries
		i    int
		vix  []float64
		want bool
	}{
		{"drawdown from high peak", domain.DrawdownFromPeak{Days: 5, Percentage: 2}, bars, 2, nil, true},
		{"drawdown from close peak", domain.DrawdownFromPeak{Days: 5, Percentage: 2}, closes, 2, nil, true},
		{"drawdown below threshold", domain.DrawdownFromPeak{Days: 5, Percentage: 2}, bars, 1, nil, false},
		{"drawdown deep threshold", domain.DrawdownFromPeak{Days: 5, Percentage: 3}, closes, 2, nil, false},
		{"drawdown negative window", domain.DrawdownFromPeak{Days: -3, Percentage: 1}, bars, 0, nil, false},
		{"drawdown negative window late", domain.DrawdownFromPeak{Days: -3, Percentage: 1}, bars, 2, nil, false},

		{"streak up", domain.PriceStreak{Direction: "up", Count: 2, Unit: "day"}, bars, 4, nil, true},
		{"streak broken", domain.PriceStreak{Direction: "up", Count: 3, Unit: "day"}, bars, 4, nil, false},
		{"streak down", domain.PriceStreak{Direction: "down", Count: 1}, bars, 2, nil, true},
		{"streak insufficient history", domain.PriceStreak{Direction: "up", Count: 2, Unit: "day"}, bars, 1, nil, false},
		{"streak weekly unsupported", domain.PriceStreak{Direction: "up", Count: 1, Unit: "week"}, bars, 4, nil, false},

		{"new high over highs", domain.NewHigh{Days: 3}, bars, 4, nil, false},
		{"new high over closes", domain.NewHigh{Days: 1}, closes, 1, nil, true},
		{"new high empty window", domain.NewHigh{Days: 5}, bars, 0, nil, false},
		{"new low over closes", domain.NewLow{Days: 2}, closes, 2, nil, true},
		{"new low over lows", domain.NewLow{Days: 2}, bars, 2, nil, false},

		{"period return up", domain.PeriodReturn{Days: 2, Percentage: 2, Direction: "up"}, bars, 4, nil, true},
		{"period return down short", domain.PeriodReturn{Days: 2, Percentage: 2, Direction: "down"}, bars, 2, nil, false},
		{"period return down", domain.PeriodReturn{Days: 2, Percentage: 1.5, Direction: "down"}, bars, 2, nil, true},
		{"period return insufficient", domain.PeriodReturn{Days: 3, Percentage: 0, Direction: "up"}, bars, 2, nil, false},

		{"rsi above", domain.RSI{Period: 4, Threshold: 50, Operator: "above"}, bars, 4, nil, true},
		{"rsi below", domain.RSI{Period: 4, Threshold: 50, Operator: "below"}, bars, 4, nil, false},
		{"rsi insufficient", domain.RSI{Period: 4, Threshold: 50, Operator: "above"}, bars, 3, nil, false},

		{"ma cross up", domain.MACross{Period: 3, Direction: "above"}, bars, 4, nil, true},
		{"ma no cross", domain.MACross{Period: 3, Direction: "above"}, bars, 3, nil, false},
		{"ma cross down", domain.MACross{Period: 2, Direction: "below"}, bars, 2, nil, true},
		{"ma insufficient", domain.MACross{Period: 3, Direction: "below"}, bars, 2, nil, false},

		{"vix above", domain.VIX{Mode: "threshold", Threshold: ptr(30), Operator: "above"}, bars, 2, []float64{20, 25, 31}, true},
		{"vix below", domain.VIX{Threshold: ptr(30), Operator: "below"}, bars, 2, []float64{20, 25, 31}, false},
		{"vix equal is not above", domain.VIX{Threshold: ptr(31), Operator: "above"}, bars, 2, []float64{20, 25, 31}, false},
		{"vix missing threshold", domain.VIX{Operator: "above"}, bars, 2, []float64{20, 25, 31}, false},
		{"vix without history", domain.VIX{Threshold: ptr(10), Operator: "above"}, bars, 2, nil, false},
		{"vix streak", domain.VIX{Mode: "streak", StreakDirection: "up", StreakCount: 2}, bars, 2, []float64{20, 25, 31}, true},
		{"vix streak zero count", domain.VIX{Mode: "streak", StreakDirection: "up"}, bars, 2, []float64{20, 25, 31}, false},
		{"vix breakout high", domain.VIX{Mode: "breakout", BreakoutType: "high", BreakoutDays: 2}, bars, 2, []float64{20, 25, 31}, true},
		{"vix breakout low", domain.VIX{Mode: "breakout", BreakoutType: "low", BreakoutDays: 2}, bars, 2, []float64{20, 25, 31}, false},

		{"unknown condition", domain.UnknownCondition{Kind: "moonPhase"}, bars, 4, nil, false},
		{"nil condition", nil, bars, 4, nil, false},
		{"index out of range", domain.NewHigh{Days: 1}, bars, 5, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CheckTriggerCondition(trig(tt.cond), tt.bars, tt.i, tt.vix)
			if got != tt.want {
				t.Errorf("CheckTriggerCondition() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNoLookAhead(t *testing.T) {
	conds := []domain.Condition{
		domain.DrawdownFromPeak{Days: 5, Percentage: 1},
		domain.PriceStreak{Direction: "down", Count: 1, Unit: "day"},
		domain.NewHigh{Days: 2},
		domain.NewLow{Days: 2},
		domain.PeriodReturn{Days: 1, Percentage: 1, Direction: "down"},
		domain.RSI{Period: 2, Threshold: 50, Operator: "below"},
		domain.MACross{Period: 2, Direction: "below"},
	}

	for _, c := range conds {
		for i := range 5 {
			base := qqqBars()
			want := CheckTriggerCondition(trig(c), base, i, nil)

			mutated := qqqBars()
			for j := i + 1; j < len(mutated); j++ {
				mutated[j].Close *= 3
				mutated[j].High *= 3
				mutated[j].Low /= 3
			}
			if got := CheckTriggerCondition(trig(c), mutated, i, nil); got != want {
				t.Errorf("%s at %d changed after mutating future bars: %v -> %v", c.Type(), i, want, got)
			}
		}
	}
}

func TestRSI(t *testing.T) {
	closes := []float64{303, 306, 298, 300, 304}
	got, ok := RSI(closes, 4, 4)
	if !ok {
		t.Fatal("RSI not available at index 4")
	}
	want := 100 - 100/(1+2.25/2.0)
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("RSI = %v, want %v", got, want)
	}

	rising := []float64{1, 2, 3, 4}
	if got, _ := RSI(rising, 3, 3); got != 100 {
		t.Errorf("RSI of rising series = %v, want 100", got)
	}
	if _, ok := RSI(closes, 3, 4); ok {
		t.Error("RSI should need period transitions")
	}
}

func TestMovingAverages(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}
	if got, ok := SMA(values, 4, 3); !ok || got != 4 {
		t.Errorf("SMA = %v, %v; want 4, true", got, ok)
	}
	if _, ok := SMA(values, 1, 3); ok {
		t.Error("SMA should need p values")
	}

	ema := EMA([]float64{10, 20}, 3)
	if ema[0] != 10 || ema[1] != 15 {
		t.Errorf("EMA = %v, want [10 15]", ema)
	}
	if EMA(nil, 3) != nil {
		t.Error("EMA(nil) should be nil")
	}
}

func TestSlope(t *testing.T) {
	if got := Slope([]float64{1, 3, 5, 7}); math.Abs(got-2) > 1e-12 {
		t.Errorf("Slope = %v, want 2", got)
	}
	if got := Slope([]float64{5}); got != 0 {
		t.Errorf("Slope of one point = %v, want 0", got)
	}
	if got := SlopeAt([]float64{9, 8, 1, 2, 3}, 4, 3); math.Abs(got-1) > 1e-12 {
		t.Errorf("SlopeAt = %v, want 1", got)
	}
	if got := SlopeAt([]float64{1, 2}, 1, 3); got != 0 {
		t.Errorf("SlopeAt before warmup = %v, want 0", got)
	}
}

func TestAlignToBars(t *testing.T) {
	bars := domain.PriceSeries{{Date: "2024-01-02"}, {Date: "2024-01-03"}, {Date: "2024-01-04"}, {Date: "2024-01-05"}}
	got := AlignToBars(bars, map[string]float64{"2024-01-03": 15, "2024-01-05": 18})
	want := []float64{0, 15, 15, 18}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("AlignToBars[%d] = %v, want %v", i, got[i], want[i])
		}
	}
	if AlignToBars(bars, nil) != nil {
		t.Error("AlignToBars(nil) should be nil")
	}
}
