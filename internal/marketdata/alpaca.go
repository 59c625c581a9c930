package marketdata

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"github.com/digitalboy/Investment-Strategy-Designer/internal/domain"
	"github.com/digitalboy/Investment-Strategy-Designer/internal/util"
)

// Compile-time interface check.
var _ Provider = (*AlpacaProvider)(nil)

// AlpacaProvider fetches split and dividend adjusted daily bars from the
// Alpaca market-data API.
type AlpacaProvider struct {
	client  *marketdata.Client
	feed    marketdata.Feed
	limiter *util.RateLimiter
	log     *slog.Logger
}

// NewAlpacaProvider creates an AlpacaProvider. dataURL and feed may be empty
// for the API defaults; rateLimitPerMin <= 0 disables throttling.
func NewAlpacaProvider(apiKey, apiSecret, dataURL, feed string, rateLimitPerMin int) *AlpacaProvider {
	opts := marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	}
	if dataURL != "" {
		opts.BaseURL = dataURL
	}

	p := &AlpacaProvider{
		client: marketdata.NewClient(opts),
		feed:   marketdata.Feed(feed),
		log:    slog.Default().With("provider", "alpaca"),
	}
	if rateLimitPerMin > 0 {
		p.limiter = util.NewRateLimiter(rateLimitPerMin, 1)
	}
	return p
}

// Name returns the provider identifier.
func (p *AlpacaProvider) Name() string { return "alpaca" }

// FetchDaily fetches daily bars for symbol, retrying transient failures.
func (p *AlpacaProvider) FetchDaily(ctx context.Context, symbol, start, end string) (domain.PriceSeries, error) {
	req := marketdata.GetBarsRequest{
		TimeFrame:  marketdata.OneDay,
		Adjustment: marketdata.All,
		Feed:       p.feed,
	}
	if start != "" {
		t, err := util.ParseDate(start)
		if err != nil {
			return nil, fmt.Errorf("parsing start date %q: %w", start, err)
		}
		req.Start = t
	}
	if end != "" {
		t, err := util.ParseDate(end)
		if err != nil {
			return nil, fmt.Errorf("parsing end date %q: %w", end, err)
		}
		// End is inclusive of the whole day.
		req.End = t.Add(24*time.Hour - time.Second)
	}

	var bars []marketdata.Bar
	err := util.Retry(ctx, 3, time.Second, func() error {
		if p.limiter != nil {
			if err := p.limiter.Wait(ctx); err != nil {
				return util.Permanent(err)
			}
		}
		var err error
		bars, err = p.client.GetBars(strings.ToUpper(symbol), req)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("GetBars %s: %w", symbol, err)
	}

	p.log.Debug("fetched bars", "symbol", symbol, "bars", len(bars))
	return toSeries(bars), nil
}

// toSeries converts Alpaca bars to a date-ordered PriceSeries keyed by the
// New York trading date.
func toSeries(bars []marketdata.Bar) domain.PriceSeries {
	et, err := time.LoadLocation("America/New_York")
	if err != nil {
		et = time.UTC
	}
	out := make(domain.PriceSeries, 0, len(bars))
	for _, b := range bars {
		out = append(out, domain.PriceBar{
			Date:   b.Timestamp.In(et).Format(domain.DateLayout),
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: int64(b.Volume),
		})
	}
	return out.Sorted()
}
