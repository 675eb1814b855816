package utils

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"fxSignalBot/internal/domain"
)

// WriteBarsToCSV dumps a bar series to a CSV file with a header row.
func WriteBarsToCSV(series domain.Series, symbol, interval, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	writer.Write([]string{"timestamp", "symbol", "interval", "open", "high", "low", "close"})

	for _, bar := range series {
		writer.Write([]string{
			bar.Timestamp.Format(time.RFC3339),
			symbol,
			interval,
			strconv.FormatFloat(bar.Open, 'f', -1, 64),
			strconv.FormatFloat(bar.High, 'f', -1, 64),
			strconv.FormatFloat(bar.Low, 'f', -1, 64),
			strconv.FormatFloat(bar.Close, 'f', -1, 64),
		})
	}
	return writer.Error()
}

// ReadBarsFromCSV reads a file written by WriteBarsToCSV back into a series.
func ReadBarsFromCSV(filename string) (domain.Series, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return nil, nil
	}

	series := make(domain.Series, 0, len(records)-1)
	for i, rec := range records[1:] {
		if len(rec) < 7 {
			return nil, fmt.Errorf("row %d: expected 7 columns, got %d", i+2, len(rec))
		}
		ts, err := time.Parse(time.RFC3339, rec[0])
		if err != nil {
			return nil, fmt.Errorf("row %d: parsing timestamp %q: %w", i+2, rec[0], err)
		}
		bar := domain.Bar{Timestamp: ts}
		for j, dest := range []*float64{&bar.Open, &bar.High, &bar.Low, &bar.Close} {
			v, err := strconv.ParseFloat(rec[3+j], 64)
			if err != nil {
				return nil, fmt.Errorf("row %d: parsing price %q: %w", i+2, rec[3+j], err)
			}
			*dest = v
		}
		series = append(series, bar)
	}
	return series, nil
}
