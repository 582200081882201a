package feed

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"prop-trading-lab/internal/domain"
)

// Required CSV columns. Any further columns are treated as indicator
// values and attached to each bar under their header name.
var requiredColumns = []string{"timestamp", "open", "high", "low", "close"}

// LoadCSV reads a bar series from a CSV file and validates it.
// Expected header: timestamp,open,high,low,close[,indicator...].
// Timestamps are RFC 3339 or unix seconds.
func LoadCSV(seriesID, path string) (*Feed, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open bar csv: %w", err)
	}
	defer f.Close()

	return ReadCSV(seriesID, f)
}

// ReadCSV parses and validates a bar series from r.
func ReadCSV(seriesID string, r io.Reader) (*Feed, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}
	for _, name := range requiredColumns {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("csv missing required column %q", name)
		}
	}

	// Everything beyond OHLC and timestamp is an indicator column.
	var indicatorCols []string
	for _, name := range header {
		if !isRequiredColumn(name) {
			indicatorCols = append(indicatorCols, name)
		}
	}

	var bars []domain.Bar
	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line, err)
		}

		bar, err := parseBar(record, col, indicatorCols)
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %w", line, err)
		}
		bars = append(bars, bar)
	}

	return New(seriesID, bars)
}

func isRequiredColumn(name string) bool {
	for _, rc := range requiredColumns {
		if name == rc {
			return true
		}
	}
	return false
}

func parseBar(record []string, col map[string]int, indicatorCols []string) (domain.Bar, error) {
	ts, err := parseTimestamp(record[col["timestamp"]])
	if err != nil {
		return domain.Bar{}, err
	}

	var prices [4]float64
	for i, name := range []string{"open", "high", "low", "close"} {
		v, err := strconv.ParseFloat(record[col[name]], 64)
		if err != nil {
			return domain.Bar{}, fmt.Errorf("parse %s: %w", name, err)
		}
		prices[i] = v
	}

	bar := domain.Bar{
		Timestamp: ts,
		Open:      prices[0],
		High:      prices[1],
		Low:       prices[2],
		Close:     prices[3],
	}

	if len(indicatorCols) > 0 {
		bar.Indicators = make(map[string]float64, len(indicatorCols))
		for _, name := range indicatorCols {
			raw := record[col[name]]
			if raw == "" {
				continue // warm-up rows have empty indicator cells
			}
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return domain.Bar{}, fmt.Errorf("parse indicator %s: %w", name, err)
			}
			bar.Indicators[name] = v
		}
	}

	return bar, nil
}

// parseTimestamp accepts RFC 3339 or unix seconds.
func parseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	secs, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: want RFC3339 or unix seconds", s)
	}
	return time.Unix(secs, 0).UTC(), nil
}
