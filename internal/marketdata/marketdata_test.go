package marketdata

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"github.com/digitalboy/Investment-Strategy-Designer/internal/domain"
	"github.com/digitalboy/Investment-Strategy-Designer/internal/store"
)

type fakeProvider struct {
	mu    sync.Mutex
	data  map[string]domain.PriceSeries
	err   error
	calls map[string]int
}

func newFakeProvider(data map[string]domain.PriceSeries) *fakeProvider {
	return &fakeProvider{data: data, calls: map[string]int{}}
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) FetchDaily(_ context.Context, symbol, start, end string) (domain.PriceSeries, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[symbol]++
	if f.err != nil {
		return nil, f.err
	}
	return f.data[symbol].Between(start, end), nil
}

func (f *fakeProvider) count(symbol string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[symbol]
}

var qqq = domain.PriceSeries{
	{Date: "2024-01-02", Open: 400, High: 402, Low: 398, Close: 401},
	{Date: "2024-01-03", Open: 401, High: 405, Low: 400, Close: 404},
	{Date: "2024-01-04", Open: 404, High: 406, Low: 399, Close: 400},
	{Date: "2024-01-05", Open: 400, High: 403, Low: 397, Close: 402},
}

func newCached(t *testing.T, up Provider) *CachedProvider {
	t.Helper()
	c := NewCachedProvider(up, store.NewParquetStore(t.TempDir()), 4)
	c.now = func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) }
	return c
}

func TestCachedProviderFetchesOnceWhenCovered(t *testing.T) {
	up := newFakeProvider(map[string]domain.PriceSeries{"QQQ": qqq})
	c := newCached(t, up)
	ctx := context.Background()

	got, err := c.FetchDaily(ctx, "qqq", "2024-01-02", "2024-01-05")
	if err != nil {
		t.Fatalf("FetchDaily: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("got %d bars, want 4", len(got))
	}

	got, err = c.FetchDaily(ctx, "QQQ", "2024-01-03", "2024-01-05")
	if err != nil {
		t.Fatalf("FetchDaily (cached): %v", err)
	}
	if len(got) != 3 || got[0].Date != "2024-01-03" {
		t.Errorf("cached window = %+v", got)
	}
	if n := up.count("QQQ"); n != 1 {
		t.Errorf("upstream calls = %d, want 1", n)
	}
}

func TestCachedProviderRefetchesStaleTail(t *testing.T) {
	up := newFakeProvider(map[string]domain.PriceSeries{"QQQ": qqq})
	c := newCached(t, up)
	ctx := context.Background()

	if _, err := c.FetchDaily(ctx, "QQQ", "2024-01-02", "2024-01-05"); err != nil {
		t.Fatalf("FetchDaily: %v", err)
	}
	// The request ends well past the last stored bar.
	if _, err := c.FetchDaily(ctx, "QQQ", "2024-01-02", "2024-03-01"); err != nil {
		t.Fatalf("FetchDaily: %v", err)
	}
	if n := up.count("QQQ"); n != 2 {
		t.Errorf("upstream calls = %d, want 2", n)
	}
}

func TestCachedProviderServesStaleOnUpstreamError(t *testing.T) {
	up := newFakeProvider(map[string]domain.PriceSeries{"QQQ": qqq})
	c := newCached(t, up)
	ctx := context.Background()

	if _, err := c.FetchDaily(ctx, "QQQ", "2024-01-02", "2024-01-05"); err != nil {
		t.Fatalf("FetchDaily: %v", err)
	}
	up.err = errors.New("upstream down")
	got, err := c.FetchDaily(ctx, "QQQ", "2024-01-02", "2024-03-01")
	if err != nil {
		t.Fatalf("FetchDaily with stale cache: %v", err)
	}
	if len(got) != 4 {
		t.Errorf("got %d bars, want 4", len(got))
	}
}

func TestCachedProviderNoData(t *testing.T) {
	c := newCached(t, newFakeProvider(nil))
	_, err := c.FetchDaily(context.Background(), "NOPE", "2024-01-01", "2024-01-31")
	if !errors.Is(err, ErrNoData) {
		t.Errorf("err = %v, want ErrNoData", err)
	}
}

func TestLoadMarketContext(t *testing.T) {
	up := newFakeProvider(map[string]domain.PriceSeries{
		"QQQ":  qqq,
		"^VIX": {{Date: "2024-01-02", Close: 13.2}, {Date: "2024-01-04", Close: 14.1}},
	})

	series, mctx, err := LoadMarketContext(context.Background(), up, Request{
		Symbol: "QQQ", Start: "2024-01-01", End: "2024-01-31",
		VIXSymbol: "^VIX", TNXSymbol: "^TNX",
	})
	if err != nil {
		t.Fatalf("LoadMarketContext: %v", err)
	}
	if len(series) != 4 {
		t.Errorf("series has %d bars, want 4", len(series))
	}
	if mctx.VIX["2024-01-04"] != 14.1 || len(mctx.VIX) != 2 {
		t.Errorf("VIX = %v", mctx.VIX)
	}
	if len(mctx.TNX) != 0 {
		t.Errorf("TNX = %v, want empty", mctx.TNX)
	}
}

func TestLoadMarketContextPrimaryError(t *testing.T) {
	up := newFakeProvider(nil)
	_, _, err := LoadMarketContext(context.Background(), up, Request{Symbol: "QQQ"})
	if !errors.Is(err, ErrNoData) {
		t.Errorf("err = %v, want ErrNoData", err)
	}

	up.err = errors.New("boom")
	if _, _, err := LoadMarketContext(context.Background(), up, Request{Symbol: "QQQ"}); err == nil {
		t.Error("expected upstream error")
	}
}

func TestLatestFinished(t *testing.T) {
	et, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("no tzdata: %v", err)
	}
	days := []string{"2024-01-02", "2024-01-03", "2024-01-04", "2024-01-05"}

	tests := []struct {
		name string
		now  time.Time
		want string
	}{
		{"before cutoff", time.Date(2024, 1, 5, 16, 0, 0, 0, et), "2024-01-04"},
		{"after cutoff", time.Date(2024, 1, 5, 20, 30, 0, 0, et), "2024-01-05"},
		{"weekend", time.Date(2024, 1, 6, 10, 0, 0, 0, et), "2024-01-05"},
	}
	for _, tt := range tests {
		got, err := latestFinished(days, tt.now)
		if err != nil {
			t.Fatalf("%s: %v", tt.name, err)
		}
		if got != tt.want {
			t.Errorf("%s: latestFinished = %s, want %s", tt.name, got, tt.want)
		}
	}

	if _, err := latestFinished(nil, time.Now()); err == nil {
		t.Error("expected error for empty calendar")
	}
}

func TestToSeries(t *testing.T) {
	bars := []marketdata.Bar{
		{Timestamp: time.Date(2024, 1, 3, 5, 0, 0, 0, time.UTC), Open: 2, High: 3, Low: 1, Close: 2.5, Volume: 20},
		{Timestamp: time.Date(2024, 1, 2, 5, 0, 0, 0, time.UTC), Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 10},
	}
	got := toSeries(bars)
	if len(got) != 2 {
		t.Fatalf("got %d bars", len(got))
	}
	if got[0].Date != "2024-01-02" || got[1].Date != "2024-01-03" {
		t.Errorf("dates = %s, %s", got[0].Date, got[1].Date)
	}
	if got[1].Volume != 20 || got[1].Close != 2.5 {
		t.Errorf("bar = %+v", got[1])
	}
}
