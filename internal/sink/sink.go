package sink

import (
	"context"

	"weighstation/internal/models"
)

// RecordSink receives each finished weight record. Implementations own their
// retry policy and must never block the polling loop beyond it: a failed
// store is logged and dropped for that tick.
type RecordSink interface {
	Name() string
	Store(ctx context.Context, rec models.WeightRecord) error
	Close() error
}
