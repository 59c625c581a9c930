package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/parquet-go/parquet-go"

	"github.com/digitalboy/Investment-Strategy-Designer/internal/domain"
)

// Compile-time interface check.
var _ BarStore = (*ParquetStore)(nil)

// ParquetStore implements BarStore using Parquet files on disk.
type ParquetStore struct {
	DataDir string
}

// NewParquetStore creates a new ParquetStore rooted at the given data directory.
func NewParquetStore(dataDir string) *ParquetStore {
	return &ParquetStore{DataDir: dataDir}
}

// ---------------------------------------------------------------------------
// Parquet record types (on-disk schema)
// ---------------------------------------------------------------------------

// BarRecord is the Parquet schema for daily bar data.
type BarRecord struct {
	Date   string  `parquet:"date"` // YYYY-MM-DD
	Open   float64 `parquet:"open"`
	High   float64 `parquet:"high"`
	Low    float64 `parquet:"low"`
	Close  float64 `parquet:"close"`
	Volume int64   `parquet:"volume"`
}

func toRecord(b domain.PriceBar) BarRecord {
	return BarRecord{Date: b.Date, Open: b.Open, High: b.High, Low: b.Low, Close: b.Close, Volume: b.Volume}
}

func (r BarRecord) bar() domain.PriceBar {
	return domain.PriceBar{Date: r.Date, Open: r.Open, High: r.High, Low: r.Low, Close: r.Close, Volume: r.Volume}
}

// ---------------------------------------------------------------------------
// BarStore implementation
// ---------------------------------------------------------------------------

// WriteBars writes bars to Parquet files organized by symbol and year.
// Each symbol+year combination produces a separate file at:
//
//	<DataDir>/daily/<SYMBOL>/<YYYY>.parquet
func (s *ParquetStore) WriteBars(_ context.Context, symbol string, bars domain.PriceSeries) error {
	if len(bars) == 0 {
		return nil
	}

	groups := make(map[string][]BarRecord)
	for _, b := range bars {
		if len(b.Date) < 4 {
			return fmt.Errorf("bar for %s has invalid date %q", symbol, b.Date)
		}
		year := b.Date[:4]
		groups[year] = append(groups[year], toRecord(b))
	}

	for year, records := range groups {
		path := s.barPath(symbol, year)

		// Read existing records to merge.
		existing, _ := readParquetFile[BarRecord](path)
		merged := mergeBarRecords(existing, records)

		if err := writeParquetFile(path, merged); err != nil {
			return fmt.Errorf("writing bars for %s/%s: %w", symbol, year, err)
		}
	}
	return nil
}

// ReadBars reads bars for symbol within [start, end] from the year files
// that overlap the range.
func (s *ParquetStore) ReadBars(_ context.Context, symbol, start, end string) (domain.PriceSeries, error) {
	years, err := s.years(symbol)
	if err != nil {
		return nil, err
	}

	var bars domain.PriceSeries
	for _, year := range years {
		if len(start) >= 4 && year < start[:4] {
			continue
		}
		if len(end) >= 4 && year > end[:4] {
			continue
		}
		records, err := readParquetFile[BarRecord](s.barPath(symbol, year))
		if err != nil {
			return nil, fmt.Errorf("reading bars for %s/%s: %w", symbol, year, err)
		}
		for _, r := range records {
			bars = append(bars, r.bar())
		}
	}
	return bars.Between(start, end).Sorted(), nil
}

// ListSymbols lists all symbols that have bar data.
func (s *ParquetStore) ListSymbols(_ context.Context) ([]string, error) {
	dir := filepath.Join(s.DataDir, "daily")
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var symbols []string
	for _, e := range entries {
		if e.IsDir() {
			symbols = append(symbols, e.Name())
		}
	}
	sort.Strings(symbols)
	return symbols, nil
}

// years returns the sorted years with a file on disk for symbol.
func (s *ParquetStore) years(symbol string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.DataDir, "daily", strings.ToUpper(symbol)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var years []string
	for _, e := range entries {
		name := strings.TrimSuffix(e.Name(), ".parquet")
		if e.IsDir() || name == e.Name() {
			continue
		}
		if _, err := strconv.Atoi(name); err != nil {
			continue
		}
		years = append(years, name)
	}
	sort.Strings(years)
	return years, nil
}

// ---------------------------------------------------------------------------
// Path helpers
// ---------------------------------------------------------------------------

// barPath returns the filesystem path for a bar Parquet file.
// Layout: <dataDir>/daily/<SYMBOL>/<YYYY>.parquet
func (s *ParquetStore) barPath(symbol, year string) string {
	return filepath.Join(s.DataDir, "daily", strings.ToUpper(symbol), year+".parquet")
}

// ---------------------------------------------------------------------------
// Parquet file helpers
// ---------------------------------------------------------------------------

func writeParquetFile[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return parquet.WriteFile(path, records)
}

func readParquetFile[T any](path string) ([]T, error) {
	rows, err := parquet.ReadFile[T](path)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// mergeBarRecords deduplicates bar records by date, preferring new records
// over existing ones.
func mergeBarRecords(existing, incoming []BarRecord) []BarRecord {
	seen := make(map[string]BarRecord, len(existing)+len(incoming))
	for _, r := range existing {
		seen[r.Date] = r
	}
	for _, r := range incoming {
		seen[r.Date] = r
	}

	merged := make([]BarRecord, 0, len(seen))
	for _, r := range seen {
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Date < merged[j].Date
	})
	return merged
}
