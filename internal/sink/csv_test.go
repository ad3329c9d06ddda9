package sink

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"weighstation/internal/models"
)

func fptr(v float64) *float64 { return &v }

func readAll(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open csv: %v", err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	return rows
}

func TestCSVSink_HeaderOnFirstWriteOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weight.csv")
	s := NewCSV(path)
	ts := time.Date(2026, 8, 24, 10, 10, 0, 0, time.UTC)

	rec := models.WeightRecord{
		TakenAt: ts,
		Weights: []*float64{fptr(12.0), fptr(8.5), nil},
	}
	if err := s.Store(context.Background(), rec); err != nil {
		t.Fatalf("first Store() error = %v", err)
	}

	rec2 := rec
	rec2.TakenAt = ts.Add(10 * time.Minute)
	rec2.Weights = []*float64{fptr(12.1), fptr(8.5), fptr(3.0)}
	if err := s.Store(context.Background(), rec2); err != nil {
		t.Fatalf("second Store() error = %v", err)
	}

	rows := readAll(t, path)
	if len(rows) != 3 {
		t.Fatalf("rows: want header + 2 records, got %d", len(rows))
	}
	wantHeader := []string{"timestamp", "weight1", "weight2", "weight3"}
	for i, col := range wantHeader {
		if rows[0][i] != col {
			t.Errorf("header[%d]: want %q, got %q", i, col, rows[0][i])
		}
	}
	if rows[1][0] != "2026-08-24T10:10:00Z" {
		t.Errorf("timestamp: got %q", rows[1][0])
	}
	if rows[1][3] != "" {
		t.Errorf("nil slot must serialize empty, got %q", rows[1][3])
	}
	if rows[2][3] != "3" {
		t.Errorf("weight3: want 3, got %q", rows[2][3])
	}
}

func TestCSVSink_UnwritablePathReturnsError(t *testing.T) {
	s := NewCSV(filepath.Join(t.TempDir(), "missing", "weight.csv"))
	rec := models.WeightRecord{TakenAt: time.Now(), Weights: []*float64{fptr(1)}}
	if err := s.Store(context.Background(), rec); err == nil {
		t.Fatal("expected error for unwritable path")
	}
}
