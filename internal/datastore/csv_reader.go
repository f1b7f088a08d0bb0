package datastore

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/your-org/shadow-trading-bot/pkg/logger"
)

// LoadPriceSeriesCSV reads a recorded price file into per-symbol series for
// replays. The file has a header and the columns time, symbol, price.
// Rows keep file order within each symbol.
func LoadPriceSeriesCSV(filePath string) (map[string][]float64, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open csv file: %w", err)
	}
	defer file.Close()
	return ReadPriceSeries(file)
}

// ReadPriceSeries is LoadPriceSeriesCSV over any reader. Malformed rows are
// skipped with a warning.
func ReadPriceSeries(r io.Reader) (map[string][]float64, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	series := make(map[string][]float64)
	// Read the header row
	if _, err := reader.Read(); err != nil {
		if err == io.EOF {
			return series, nil // Empty file is okay
		}
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv record: %w", err)
		}
		line++

		if len(record) != 3 {
			logger.Warnf("Skipping line %d: expected 3 columns, got %d", line, len(record))
			continue
		}
		if _, err := parseTime(record[0]); err != nil {
			logger.Warnf("Skipping line %d: %v", line, err)
			continue
		}
		symbol := strings.TrimSpace(record[1])
		if symbol == "" {
			logger.Warnf("Skipping line %d: empty symbol", line)
			continue
		}
		price, err := strconv.ParseFloat(strings.TrimSpace(record[2]), 64)
		if err != nil || price <= 0 {
			logger.Warnf("Skipping line %d: invalid price %q", line, record[2])
			continue
		}
		series[symbol] = append(series[symbol], price)
	}
	return series, nil
}

func parseTime(timeStr string) (time.Time, error) {
	// e.g., "2025-07-14 04:11:13.484971+00"
	const layout = "2006-01-02 15:04:05.999999-07"
	t, err := time.Parse(layout, timeStr)
	if err != nil {
		t, err = time.Parse(time.RFC3339, timeStr)
		if err != nil {
			return time.Time{}, fmt.Errorf("could not parse time '%s' with any known format", timeStr)
		}
	}
	return t, nil
}
