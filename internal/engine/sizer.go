package engine

import (
	"github.com/digitalboy/Investment-Strategy-Designer/internal/domain"
)

// CalculateBuyQuantity converts a sizing instruction into a share count the
// account can afford at price. Spend is clamped to available cash; unknown
// sizing types and non-positive spend yield zero.
//
//   - fixedAmount: spend Amount.
//   - cashPercent: spend Amount% of cash.
//   - totalValuePercent: top the position up to Amount% of total value.
func CalculateBuyQuantity(v domain.SizingValue, acct domain.AccountState, price float64) float64 {
	if price <= 0 {
		return 0
	}

	var spend float64
	switch v.Type {
	case domain.SizingFixedAmount:
		spend = v.Amount
	case domain.SizingCashPercent:
		spend = acct.Cash * v.Amount / 100
	case domain.SizingTotalValuePercent:
		target := acct.TotalValue * v.Amount / 100
		spend = max(0, target-acct.Positions*price)
	default:
		return 0
	}

	spend = min(spend, acct.Cash)
	if spend <= 0 {
		return 0
	}
	return spend / price
}

// CalculateSellQuantity converts a sizing instruction into a share count to
// sell. The caller clamps the result to the shares actually held.
//
//   - fixedAmount: sell Amount worth of shares.
//   - positionPercent: sell Amount% of the position.
//   - totalValuePercent: trim the position down to Amount% of total value.
func CalculateSellQuantity(v domain.SizingValue, acct domain.AccountState, price float64) float64 {
	if price <= 0 {
		return 0
	}

	var qty float64
	switch v.Type {
	case domain.SizingFixedAmount:
		qty = v.Amount / price
	case domain.SizingPositionPercent:
		qty = acct.Positions * v.Amount / 100
	case domain.SizingTotalValuePercent:
		target := acct.TotalValue * v.Amount / 100
		qty = max(0, acct.Positions*price-target) / price
	default:
		return 0
	}
	return max(0, qty)
}
