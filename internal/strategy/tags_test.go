package strategy

import (
	"reflect"
	"testing"

	"github.com/digitalboy/Investment-Strategy-Designer/internal/domain"
)

func TestGenerateTagsFromConfig(t *testing.T) {
	cfg := domain.StrategyConfig{Triggers: []domain.Trigger{
		{
			Condition: domain.RSI{Period: 14, Threshold: 30, Operator: "below"},
			Action:    domain.Action{Type: domain.ActionBuy, Value: domain.SizingValue{Type: domain.SizingFixedAmount, Amount: 100}},
			Cooldown:  &domain.Cooldown{Days: 5},
		},
	}}

	got := GenerateTags(cfg, nil)
	want := []string{"RSI", "Technical", "Buy Only", "Fixed Amount", "Controlled Pace"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("GenerateTags() = %v, want %v", got, want)
	}
}

func TestGenerateTagsCapped(t *testing.T) {
	sizing := domain.SizingValue{Type: domain.SizingCashPercent, Amount: 10}
	cfg := domain.StrategyConfig{Triggers: []domain.Trigger{
		{Condition: domain.NewLow{Days: 20}, Action: domain.Action{Type: domain.ActionBuy, Value: sizing}},
		{Condition: domain.NewHigh{Days: 20}, Action: domain.Action{Type: domain.ActionSell, Value: sizing}},
		{Condition: domain.MACross{Period: 50}, Action: domain.Action{Type: domain.ActionSell, Value: sizing}},
	}}
	result := &domain.BacktestResult{
		Performance: domain.Performance{Strategy: domain.PerformanceMetrics{SharpeRatio: 3, MaxDrawdown: -5, AnnualizedReturn: 25}},
	}

	got := GenerateTags(cfg, result)
	if len(got) != MaxTags {
		t.Fatalf("got %d tags, want %d: %v", len(got), MaxTags, got)
	}
	want := []string{"Buy the Dip", "Contrarian", "Breakout", "Momentum", "Moving Average", "Technical"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("GenerateTags() = %v, want %v", got, want)
	}
}

func TestGenerateTagsFromResult(t *testing.T) {
	result := &domain.BacktestResult{
		Performance: domain.Performance{Strategy: domain.PerformanceMetrics{SharpeRatio: 1.6, MaxDrawdown: -12, AnnualizedReturn: 16}},
		Trades:      make([]domain.Trade, 20),
	}
	got := GenerateTags(domain.StrategyConfig{}, result)
	want := []string{"High Sharpe", "Moderate Risk", "Solid Return", "Medium Frequency", "Balanced"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("GenerateTags() = %v, want %v", got, want)
	}

	if got := GenerateTags(domain.StrategyConfig{}, nil); got == nil || len(got) != 0 {
		t.Errorf("GenerateTags(empty) = %#v, want empty slice", got)
	}
}
