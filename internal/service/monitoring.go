package service

import (
	"context"
	"time"

	"weighstation/internal/models"
	"weighstation/internal/repository"
)

type MonitoringService struct {
	records repository.RecordRepo
}

func NewMonitoringService(records repository.RecordRepo) *MonitoringService {
	return &MonitoringService{records: records}
}

// Latest returns the most recent persisted record. A zero record (ID 0,
// zero TakenAt) means no tick has completed yet; callers decide how to
// surface that.
func (s *MonitoringService) Latest(ctx context.Context) (models.WeightRecord, error) {
	rec, err := s.records.Latest(ctx)
	if err != nil {
		return models.WeightRecord{}, err
	}
	rec.TakenAt = toUTC(rec.TakenAt)
	return rec, nil
}

// toUTC normalizes non-zero time to UTC, preserving zero values.
func toUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}
