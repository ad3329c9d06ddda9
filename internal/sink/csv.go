package sink

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"weighstation/internal/models"
)

// CSVSink appends one row per record to a local file. The first write
// creates the file with a header row sized to the configured channel count.
type CSVSink struct {
	path string
}

func NewCSV(path string) *CSVSink {
	return &CSVSink{path: path}
}

func (s *CSVSink) Name() string { return "csv" }

func (s *CSVSink) Store(ctx context.Context, rec models.WeightRecord) error {
	_, statErr := os.Stat(s.path)
	exists := statErr == nil

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open csv %q: %w", s.path, err)
	}
	defer func() { _ = f.Close() }()

	w := csv.NewWriter(f)
	if !exists {
		header := make([]string, 0, len(rec.Weights)+1)
		header = append(header, "timestamp")
		for i := range rec.Weights {
			header = append(header, fmt.Sprintf("weight%d", i+1))
		}
		if err := w.Write(header); err != nil {
			return fmt.Errorf("write csv header: %w", err)
		}
	}

	row := make([]string, 0, len(rec.Weights)+1)
	row = append(row, rec.TakenAt.Format(time.RFC3339))
	for _, wv := range rec.Weights {
		if wv == nil {
			row = append(row, "")
			continue
		}
		row = append(row, strconv.FormatFloat(*wv, 'f', -1, 64))
	}
	if err := w.Write(row); err != nil {
		return fmt.Errorf("write csv row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

func (s *CSVSink) Close() error { return nil }
