// Package marketdata fetches daily price history from upstream providers and
// caches it in a local BarStore.
package marketdata

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/digitalboy/Investment-Strategy-Designer/internal/domain"
	"github.com/digitalboy/Investment-Strategy-Designer/internal/store"
	"github.com/digitalboy/Investment-Strategy-Designer/internal/util"
)

// ErrNoData is returned when no bars exist for the requested symbol and range.
var ErrNoData = errors.New("marketdata: no data")

// Provider fetches daily bars for a symbol within [start, end] (YYYY-MM-DD,
// empty bounds are open).
type Provider interface {
	Name() string
	FetchDaily(ctx context.Context, symbol, start, end string) (domain.PriceSeries, error)
}

// ---------------------------------------------------------------------------
// CachedProvider
// ---------------------------------------------------------------------------

// Compile-time interface check.
var _ Provider = (*CachedProvider)(nil)

// CachedProvider serves bars from a BarStore and falls back to an upstream
// Provider when the stored range does not cover the request within
// tolerance calendar days.
type CachedProvider struct {
	upstream  Provider
	store     store.BarStore
	tolerance int
	now       func() time.Time
	log       *slog.Logger
}

// NewCachedProvider wraps upstream with the given store. toleranceDays is how
// far the stored range may fall short of either bound before a refetch.
func NewCachedProvider(upstream Provider, s store.BarStore, toleranceDays int) *CachedProvider {
	return &CachedProvider{
		upstream:  upstream,
		store:     s,
		tolerance: toleranceDays,
		now:       time.Now,
		log:       slog.Default().With("component", "marketdata-cache"),
	}
}

// Name returns the upstream name with a cache marker.
func (c *CachedProvider) Name() string { return "cached-" + c.upstream.Name() }

// FetchDaily returns stored bars when they cover the request and otherwise
// refreshes the store from upstream first. Stale stored bars are returned if
// the upstream call fails.
func (c *CachedProvider) FetchDaily(ctx context.Context, symbol, start, end string) (domain.PriceSeries, error) {
	symbol = strings.ToUpper(symbol)
	cached, err := c.store.ReadBars(ctx, symbol, start, end)
	if err != nil {
		c.log.Warn("reading cached bars failed", "symbol", symbol, "err", err)
		cached = nil
	}
	if c.covers(cached, start, end) {
		return cached, nil
	}

	fresh, err := c.upstream.FetchDaily(ctx, symbol, start, end)
	if err != nil {
		if len(cached) > 0 {
			c.log.Warn("upstream fetch failed, serving cached bars",
				"symbol", symbol, "cached", len(cached), "err", err)
			return cached, nil
		}
		return nil, fmt.Errorf("fetching %s from %s: %w", symbol, c.upstream.Name(), err)
	}
	if len(fresh) == 0 {
		if len(cached) > 0 {
			return cached, nil
		}
		return nil, fmt.Errorf("%s %s..%s: %w", symbol, start, end, ErrNoData)
	}

	if err := c.store.WriteBars(ctx, symbol, fresh); err != nil {
		c.log.Warn("caching bars failed", "symbol", symbol, "err", err)
		return fresh.Between(start, end).Sorted(), nil
	}
	c.log.Info("cached bars", "symbol", symbol, "bars", len(fresh))

	out, err := c.store.ReadBars(ctx, symbol, start, end)
	if err != nil {
		return fresh.Between(start, end).Sorted(), nil
	}
	return out, nil
}

// covers reports whether bars span [start, end] within tolerance days. An
// open end bound is measured against today.
func (c *CachedProvider) covers(bars domain.PriceSeries, start, end string) bool {
	if len(bars) == 0 {
		return false
	}
	tol := time.Duration(c.tolerance) * 24 * time.Hour

	if start != "" {
		s, err := util.ParseDate(start)
		first, ferr := util.ParseDate(bars[0].Date)
		if err != nil || ferr != nil || first.Sub(s) > tol {
			return false
		}
	}

	e := c.now().UTC().Truncate(24 * time.Hour)
	if end != "" {
		parsed, err := util.ParseDate(end)
		if err != nil {
			return false
		}
		if parsed.Before(e) {
			e = parsed
		}
	}
	last, err := util.ParseDate(bars[len(bars)-1].Date)
	if err != nil {
		return false
	}
	return e.Sub(last) <= tol
}

// ---------------------------------------------------------------------------
// Market context
// ---------------------------------------------------------------------------

// Request describes the series needed for one backtest.
type Request struct {
	Symbol    string
	Start     string
	End       string
	VIXSymbol string
	TNXSymbol string
}

// LoadMarketContext fetches the primary series and the VIX and TNX series in
// parallel. The primary series is required; auxiliary failures are logged
// and leave the corresponding map nil.
func LoadMarketContext(ctx context.Context, p Provider, req Request) (domain.PriceSeries, domain.MarketContext, error) {
	var (
		wg       sync.WaitGroup
		series   domain.PriceSeries
		seriesEr error
		vix, tnx map[string]float64
	)
	log := slog.Default().With("component", "marketdata")

	aux := func(symbol string, dst *map[string]float64) {
		defer wg.Done()
		if symbol == "" {
			return
		}
		bars, err := p.FetchDaily(ctx, symbol, req.Start, req.End)
		if err != nil {
			log.Warn("auxiliary series unavailable", "symbol", symbol, "err", err)
			return
		}
		m := make(map[string]float64, len(bars))
		for _, b := range bars {
			m[b.Date] = b.Close
		}
		*dst = m
	}

	wg.Add(3)
	go func() {
		defer wg.Done()
		series, seriesEr = p.FetchDaily(ctx, req.Symbol, req.Start, req.End)
	}()
	go aux(req.VIXSymbol, &vix)
	go aux(req.TNXSymbol, &tnx)
	wg.Wait()

	if seriesEr != nil {
		return nil, domain.MarketContext{}, seriesEr
	}
	if len(series) == 0 {
		return nil, domain.MarketContext{}, fmt.Errorf("%s: %w", req.Symbol, ErrNoData)
	}
	return series, domain.MarketContext{VIX: vix, TNX: tnx}, nil
}
