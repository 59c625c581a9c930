package performance

import (
	"math"
	"sort"

	"github.com/digitalboy/Investment-Strategy-Designer/internal/domain"
)

// DefaultTopDrawdowns is the number of episodes reported by default.
const DefaultTopDrawdowns = 5

// minDrawdownDepth filters shallow episodes (percent).
const minDrawdownDepth = -1.0

// EquityPoint is one dated value of an equity curve.
type EquityPoint struct {
	Date  string
	Value float64
}

// Points zips dates and values into equity points. Extra entries on either
// side are dropped.
func Points(dates []string, values []float64) []EquityPoint {
	n := min(len(dates), len(values))
	out := make([]EquityPoint, n)
	for i := range n {
		out[i] = EquityPoint{Date: dates[i], Value: values[i]}
	}
	return out
}

// TopDrawdowns finds underwater episodes of the curve in one forward pass and
// returns the topN deepest, ranked from 1. Episodes shallower than 1% are
// dropped. Recovery is measured in bars.
func TopDrawdowns(curve []EquityPoint, topN int) []domain.DrawdownEvent {
	if len(curve) == 0 || topN <= 0 {
		return []domain.DrawdownEvent{}
	}

	var (
		events    []domain.DrawdownEvent
		current   *domain.DrawdownEvent
		peakIdx   int
		runMax    = math.Inf(-1)
		runMaxIdx int
	)

	for i, p := range curve {
		if p.Value >= runMax {
			if current != nil {
				date := p.Date
				current.RecoveryDate = &date
				current.IsRecovered = true
				current.DaysToRecover = i - peakIdx
				if current.DepthPercent < minDrawdownDepth {
					events = append(events, *current)
				}
				current = nil
			}
			runMax = p.Value
			runMaxIdx = i
			continue
		}

		if runMax <= 0 {
			continue
		}
		depth := (p.Value - runMax) / runMax * 100
		if current == nil {
			peakIdx = runMaxIdx
			current = &domain.DrawdownEvent{
				DepthPercent: depth,
				PeakDate:     curve[runMaxIdx].Date,
				PeakPrice:    runMax,
				ValleyDate:   p.Date,
				ValleyPrice:  p.Value,
			}
		} else if depth < current.DepthPercent {
			current.DepthPercent = depth
			current.ValleyDate = p.Date
			current.ValleyPrice = p.Value
		}
	}

	if current != nil {
		current.DaysToRecover = len(curve) - 1 - peakIdx
		if current.DepthPercent < minDrawdownDepth {
			events = append(events, *current)
		}
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].DepthPercent < events[j].DepthPercent
	})
	if len(events) > topN {
		events = events[:topN]
	}
	for i := range events {
		events[i].Rank = i + 1
	}
	if events == nil {
		return []domain.DrawdownEvent{}
	}
	return events
}
