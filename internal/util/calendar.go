package util

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/digitalboy/Investment-Strategy-Designer/internal/domain"
)

// ParseDate parses an ISO YYYY-MM-DD date in UTC.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(domain.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing date %q: %w", s, err)
	}
	return t, nil
}

// FormatDate renders t as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(domain.DateLayout)
}

// ISOWeekID returns the ISO-8601 week of an ISO date as "YYYY-Www". Dates
// that fail to parse return "".
func ISOWeekID(date string) string {
	t, err := time.Parse(domain.DateLayout, date)
	if err != nil {
		return ""
	}
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// TradingCalendar answers trading-day distance questions over the dates of a
// loaded price series.
type TradingCalendar struct {
	dates []string
	index map[string]int
}

// NewTradingCalendar builds a calendar from trading dates. The input need
// not be sorted; duplicates are dropped.
func NewTradingCalendar(dates []string) *TradingCalendar {
	sorted := make([]string, len(dates))
	copy(sorted, dates)
	sort.Strings(sorted)

	tc := &TradingCalendar{index: make(map[string]int, len(sorted))}
	for _, d := range sorted {
		if _, ok := tc.index[d]; ok {
			continue
		}
		tc.index[d] = len(tc.dates)
		tc.dates = append(tc.dates, d)
	}
	return tc
}

// Len returns the number of trading days in the calendar.
func (tc *TradingCalendar) Len() int {
	return len(tc.dates)
}

// Last returns the most recent trading day, or "" for an empty calendar.
func (tc *TradingCalendar) Last() string {
	if len(tc.dates) == 0 {
		return ""
	}
	return tc.dates[len(tc.dates)-1]
}

// IndexOf returns the position of date, or -1 when it is not a trading day.
func (tc *TradingCalendar) IndexOf(date string) int {
	if i, ok := tc.index[date]; ok {
		return i
	}
	return -1
}

// DaysBetween counts trading days from one date to another. Either date
// missing from the calendar gives math.MaxInt, so cooldowns never block on
// history that is no longer loaded.
func (tc *TradingCalendar) DaysBetween(from, to string) int {
	i, j := tc.IndexOf(from), tc.IndexOf(to)
	if i < 0 || j < 0 {
		return math.MaxInt
	}
	return j - i
}
