package engine

import (
	"math"
	"testing"

	"github.com/digitalboy/Investment-Strategy-Designer/internal/domain"
)

func TestCalculateBuyQuantity(t *testing.T) {
	acct := domain.AccountState{Cash: 5000, Positions: 10, TotalValue: 6000}

	tests := []struct {
		name  string
		value domain.SizingValue
		price float64
		want  float64
	}{
		{"fixed amount", domain.SizingValue{Type: domain.SizingFixedAmount, Amount: 1000}, 100, 10},
		{"fixed amount clamped to cash", domain.SizingValue{Type: domain.SizingFixedAmount, Amount: 9000}, 100, 50},
		{"cash percent", domain.SizingValue{Type: domain.SizingCashPercent, Amount: 50}, 100, 25},
		{"total value percent tops up", domain.SizingValue{Type: domain.SizingTotalValuePercent, Amount: 50}, 100, 20},
		{"total value percent already above target", domain.SizingValue{Type: domain.SizingTotalValuePercent, Amount: 10}, 100, 0},
		{"position percent is not a buy sizing", domain.SizingValue{Type: domain.SizingPositionPercent, Amount: 50}, 100, 0},
		{"unknown sizing", domain.SizingValue{Type: "moonshot", Amount: 50}, 100, 0},
		{"negative amount", domain.SizingValue{Type: domain.SizingFixedAmount, Amount: -10}, 100, 0},
		{"zero price", domain.SizingValue{Type: domain.SizingFixedAmount, Amount: 1000}, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateBuyQuantity(tt.value, acct, tt.price)
			if math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("CalculateBuyQuantity() = %v, want %v", got, tt.want)
			}
			if got*tt.price > acct.Cash+1e-9 {
				t.Errorf("cost %v exceeds cash %v", got*tt.price, acct.Cash)
			}
		})
	}
}

func TestCalculateSellQuantity(t *testing.T) {
	acct := domain.AccountState{Cash: 5000, Positions: 10, TotalValue: 6000}

	tests := []struct {
		name  string
		value domain.SizingValue
		price float64
		want  float64
	}{
		{"fixed amount", domain.SizingValue{Type: domain.SizingFixedAmount, Amount: 500}, 100, 5},
		{"fixed amount beyond position is not clamped", domain.SizingValue{Type: domain.SizingFixedAmount, Amount: 5000}, 100, 50},
		{"position percent", domain.SizingValue{Type: domain.SizingPositionPercent, Amount: 30}, 100, 3},
		{"total value percent trims", domain.SizingValue{Type: domain.SizingTotalValuePercent, Amount: 10}, 100, 4},
		{"total value percent below target", domain.SizingValue{Type: domain.SizingTotalValuePercent, Amount: 50}, 100, 0},
		{"cash percent is not a sell sizing", domain.SizingValue{Type: domain.SizingCashPercent, Amount: 50}, 100, 0},
		{"negative amount", domain.SizingValue{Type: domain.SizingPositionPercent, Amount: -50}, 100, 0},
		{"zero price", domain.SizingValue{Type: domain.SizingFixedAmount, Amount: 500}, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateSellQuantity(tt.value, acct, tt.price)
			if math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("CalculateSellQuantity() = %v, want %v", got, tt.want)
			}
		})
	}
}
