package sink

import (
	"context"

	"weighstation/internal/models"
	"weighstation/internal/repository"
)

// RepoSink keeps the latest record in the local database so the HTTP API and
// the websocket feed can serve it.
type RepoSink struct {
	records repository.RecordRepo
}

func NewRepo(records repository.RecordRepo) *RepoSink {
	return &RepoSink{records: records}
}

func (s *RepoSink) Name() string { return "db" }

func (s *RepoSink) Store(ctx context.Context, rec models.WeightRecord) error {
	return s.records.Save(ctx, rec)
}

func (s *RepoSink) Close() error { return nil }
