// Package strategy defines the Benchmark interface for reference strategies
// and provides a Registry for managing multiple implementations.
package strategy

import (
	"sort"

	"github.com/digitalboy/Investment-Strategy-Designer/internal/domain"
)

// Benchmark is a reference strategy that a user-defined strategy is compared
// against.
type Benchmark interface {
	// Name returns the unique identifier for this benchmark.
	Name() string

	// Calculate simulates the benchmark over series and returns an equity
	// curve with exactly one value per entry of dates.
	Calculate(series domain.PriceSeries, dates []string, initialCapital float64, mctx domain.MarketContext) Result
}

// Result is the output of a benchmark simulation.
type Result struct {
	EquityCurve []float64
	Stats       domain.PerformanceMetrics
}

// Registry holds a named collection of benchmarks for lookup and enumeration.
type Registry struct {
	benchmarks map[string]Benchmark
}

// NewRegistry creates an empty benchmark Registry.
func NewRegistry() *Registry {
	return &Registry{
		benchmarks: make(map[string]Benchmark),
	}
}

// Register adds a benchmark to the registry, keyed by its Name().
func (r *Registry) Register(b Benchmark) {
	r.benchmarks[b.Name()] = b
}

// Get retrieves a benchmark by name. The second return value indicates
// whether the benchmark was found.
func (r *Registry) Get(name string) (Benchmark, bool) {
	b, ok := r.benchmarks[name]
	return b, ok
}

// List returns a sorted slice of all registered benchmark names.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.benchmarks))
	for name := range r.benchmarks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AlignCurve maps per-bar values onto dates. Each date takes the value of the
// latest bar on or before it; dates before the first bar take initial.
// series and dates must both be sorted.
func AlignCurve(series domain.PriceSeries, values []float64, dates []string, initial float64) []float64 {
	out := make([]float64, len(dates))
	last := initial
	j := 0
	for i, d := range dates {
		for j < len(series) && j < len(values) && series[j].Date <= d {
			last = values[j]
			j++
		}
		out[i] = last
	}
	return out
}
