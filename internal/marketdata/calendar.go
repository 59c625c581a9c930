package marketdata

import (
	"context"
	"fmt"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"

	"github.com/digitalboy/Investment-Strategy-Designer/internal/domain"
)

// Calendar reports the most recent US trading day whose session has ended.
type Calendar interface {
	LatestFinishedTradingDay(ctx context.Context) (string, error)
}

// Compile-time interface check.
var _ Calendar = (*AlpacaCalendar)(nil)

// AlpacaCalendar implements Calendar with the Alpaca trading calendar API.
type AlpacaCalendar struct {
	client *alpaca.Client
	now    func() time.Time
}

// NewAlpacaCalendar creates an AlpacaCalendar. baseURL may be empty for the
// live trading endpoint.
func NewAlpacaCalendar(apiKey, apiSecret, baseURL string) *AlpacaCalendar {
	return &AlpacaCalendar{
		client: alpaca.NewClient(alpaca.ClientOpts{
			APIKey:    apiKey,
			APISecret: apiSecret,
			BaseURL:   baseURL,
		}),
		now: time.Now,
	}
}

// LatestFinishedTradingDay returns the most recent trading day whose market
// session has ended (after 20:05 ET, so extended hours data has settled).
func (c *AlpacaCalendar) LatestFinishedTradingDay(_ context.Context) (string, error) {
	et, err := time.LoadLocation("America/New_York")
	if err != nil {
		return "", fmt.Errorf("loading ET timezone: %w", err)
	}

	now := c.now().In(et)
	calendar, err := c.client.GetCalendar(alpaca.GetCalendarRequest{
		Start: now.AddDate(0, 0, -7),
		End:   now,
	})
	if err != nil {
		return "", fmt.Errorf("GetCalendar: %w", err)
	}

	days := make([]string, 0, len(calendar))
	for _, d := range calendar {
		days = append(days, d.Date)
	}
	return latestFinished(days, now)
}

// latestFinished picks the last calendar day strictly before now's date, or
// now's date itself once the 20:05 cutoff has passed. now must be in ET.
func latestFinished(days []string, now time.Time) (string, error) {
	if len(days) == 0 {
		return "", fmt.Errorf("no trading days returned from calendar")
	}

	today := now.Format(domain.DateLayout)
	cutoff := time.Date(now.Year(), now.Month(), now.Day(), 20, 5, 0, 0, now.Location())

	for i := len(days) - 1; i >= 0; i-- {
		day := days[i]
		if day == today {
			if now.After(cutoff) {
				return day, nil
			}
			continue
		}
		if day < today {
			return day, nil
		}
	}
	return "", fmt.Errorf("could not determine latest finished trading day")
}
