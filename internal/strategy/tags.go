package strategy

import (
	"math"

	"github.com/digitalboy/Investment-Strategy-Designer/internal/domain"
)

// MaxTags caps the number of tags attached to a strategy.
const MaxTags = 6

var conditionTags = map[domain.ConditionType][]string{
	domain.ConditionRSI:              {"RSI", "Technical"},
	domain.ConditionDrawdownFromPeak: {"Drawdown", "Contrarian"},
	domain.ConditionPriceStreak:      {"Momentum", "Trend"},
	domain.ConditionMACross:          {"Moving Average", "Technical"},
	domain.ConditionNewHigh:          {"Breakout", "Momentum"},
	domain.ConditionNewLow:           {"Buy the Dip", "Contrarian"},
	domain.ConditionPeriodReturn:     {"Return Based", "Momentum"},
	domain.ConditionVIX:              {"VIX", "Sentiment"},
}

// tagSet keeps insertion order and drops duplicates.
type tagSet struct {
	seen map[string]bool
	tags []string
}

func (s *tagSet) add(tags ...string) {
	for _, t := range tags {
		if !s.seen[t] {
			s.seen[t] = true
			s.tags = append(s.tags, t)
		}
	}
}

// GenerateTags describes a strategy by its rules and, when result is not
// nil, by how its backtest performed. At most MaxTags tags are returned.
func GenerateTags(cfg domain.StrategyConfig, result *domain.BacktestResult) []string {
	s := &tagSet{seen: make(map[string]bool)}

	var buys, sells int
	var fixed, dynamic, cooldown bool
	kinds := make(map[domain.ConditionType]bool)
	for _, t := range cfg.Triggers {
		if t.Condition != nil {
			s.add(conditionTags[t.Condition.Type()]...)
			kinds[t.Condition.Type()] = true
		}
		switch t.Action.Type {
		case domain.ActionBuy:
			buys++
		case domain.ActionSell:
			sells++
		}
		switch t.Action.Value.Type {
		case domain.SizingFixedAmount:
			fixed = true
		case domain.SizingCashPercent, domain.SizingPositionPercent, domain.SizingTotalValuePercent:
			dynamic = true
		}
		if t.Cooldown != nil && t.Cooldown.Days > 0 {
			cooldown = true
		}
	}

	switch {
	case buys > 0 && sells > 0:
		s.add("Two-Way")
	case buys > 0:
		s.add("Buy Only")
	case sells > 0:
		s.add("Sell Only")
	}
	if len(kinds) >= 3 {
		s.add("Multi-Factor")
	}
	if dynamic {
		s.add("Dynamic Sizing")
	} else if fixed {
		s.add("Fixed Amount")
	}
	if cooldown {
		s.add("Controlled Pace")
	}

	if result != nil {
		addResultTags(s, result)
	}

	if len(s.tags) > MaxTags {
		return s.tags[:MaxTags]
	}
	if s.tags == nil {
		return []string{}
	}
	return s.tags
}

func addResultTags(s *tagSet, result *domain.BacktestResult) {
	m := result.Performance.Strategy
	dd := math.Abs(m.MaxDrawdown)

	switch {
	case m.SharpeRatio > 2:
		s.add("Excellent Sharpe")
	case m.SharpeRatio > 1.5:
		s.add("High Sharpe")
	}

	switch {
	case dd < 10:
		s.add("Low Drawdown")
	case dd < 20:
		s.add("Moderate Risk")
	}

	switch {
	case m.AnnualizedReturn > 20:
		s.add("High Return")
	case m.AnnualizedReturn > 10:
		s.add("Solid Return")
	}

	switch n := len(result.Trades); {
	case n > 50:
		s.add("High Frequency")
	case n < 10:
		s.add("Low Frequency")
	default:
		s.add("Medium Frequency")
	}

	switch {
	case m.AnnualizedReturn > 15 && dd < 15:
		s.add("Balanced")
	case m.AnnualizedReturn > 20:
		s.add("Aggressive")
	case dd < 10:
		s.add("Conservative")
	}
}
