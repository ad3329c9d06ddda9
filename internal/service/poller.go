package service

import (
	"context"
	"time"

	"weighstation/internal/logger"
	"weighstation/internal/models"
	"weighstation/internal/recovery"
	"weighstation/internal/repository"
	"weighstation/internal/scale"
	"weighstation/internal/sink"
)

// PollerService coordinates the configured scale channels into one
// synchronized record per 10-minute slot: sequential validated reads,
// last-known-good substitution on failure, sink fanout, and the fleet
// recovery decision.
type PollerService struct {
	scales   []*scale.Scale
	sinks    []sink.RecordSink
	events   repository.EventRepo
	rebooter recovery.Rebooter
	log      *logger.Logger

	// last successful value per slot, across ticks. Distinct from each
	// scale's internal validation baseline: this is the orchestrator's
	// own fallback memory.
	lastWeights []*float64

	now func() time.Time // test seam
}

func NewPollerService(scales []*scale.Scale, sinks []sink.RecordSink, events repository.EventRepo, rebooter recovery.Rebooter, log *logger.Logger) *PollerService {
	return &PollerService{
		scales:      scales,
		sinks:       sinks,
		events:      events,
		rebooter:    rebooter,
		log:         log,
		lastWeights: make([]*float64, len(scales)),
		now:         time.Now,
	}
}

// Run executes the synchronized reading loop until ctx is canceled.
// Cancellation takes effect between ticks and between channel reads, never
// mid-read.
func (s *PollerService) Run(ctx context.Context) {
	s.log.Infow("starting synchronized reading loop", "interval", slotInterval)
	for {
		wait := time.Until(nextSlot(s.now()))
		if wait < 0 {
			wait = 0
		}
		s.log.Infow("sleeping until next reading", "wait", wait.Round(time.Second))
		if !sleepCtx(ctx, wait) {
			return
		}
		s.pollOnce(ctx)
		if ctx.Err() != nil {
			return
		}
	}
}

// sleepCtx blocks for d or until ctx is canceled; reports false on cancel.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// pollOnce reads every channel in configured order and hands the finished
// record to the sinks. Returns the record it built.
func (s *PollerService) pollOnce(ctx context.Context) models.WeightRecord {
	takenAt := s.now().Truncate(time.Minute)
	weights := make([]*float64, len(s.scales))

	for i, sc := range s.scales {
		if ctx.Err() != nil {
			break
		}
		w, ok := sc.ValidatedWeight()
		if ok {
			v := w
			weights[i] = &v
			s.lastWeights[i] = &v
			continue
		}
		s.log.Errorw("scale returned no reading, using last value",
			"slot", i+1, "port", sc.Port(), "last", s.lastWeights[i])
		weights[i] = s.lastWeights[i]
		sc.MarkFailed()
		s.appendEvent(ctx, models.StationEvent{
			Type:        models.EventScaleError,
			Description: "scale returned no reading; substituted last value",
			Metadata:    map[string]any{"slot": i + 1, "port": sc.Port()},
		})
	}

	rec := models.WeightRecord{TakenAt: takenAt, Weights: weights}
	s.store(ctx, rec)

	if s.anyFailed() {
		s.log.Errorw("at least one scale failed after retries, requesting fleet recovery")
		s.appendEvent(ctx, models.StationEvent{
			Type:        models.EventReboot,
			Description: "scale channel exhausted its reconnect budget",
			Metadata:    map[string]any{"ports": s.failedPorts()},
		})
		if err := s.rebooter.Reboot(); err != nil {
			s.log.Errorw("reboot command failed", "err", err)
		}
	}
	return rec
}

// store fans the record out to every sink. A sink failure is logged and
// recorded, never escalated: the loop must survive persistence and upload
// outages.
func (s *PollerService) store(ctx context.Context, rec models.WeightRecord) {
	for _, snk := range s.sinks {
		if err := snk.Store(ctx, rec); err != nil {
			s.log.Errorw("sink store failed", "sink", snk.Name(), "err", err)
			s.appendEvent(ctx, models.StationEvent{
				Type:        models.EventSinkError,
				Description: "record store failed",
				Metadata:    map[string]any{"sink": snk.Name(), "err": err.Error()},
			})
			continue
		}
		s.log.Infow("record stored", "sink", snk.Name(), "taken_at", rec.TakenAt)
	}
}

func (s *PollerService) appendEvent(ctx context.Context, e models.StationEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.Append(ctx, e); err != nil {
		s.log.Warnw("event append failed", "type", e.Type, "err", err)
	}
}

func (s *PollerService) anyFailed() bool {
	for _, sc := range s.scales {
		if sc.Failed() {
			return true
		}
	}
	return false
}

func (s *PollerService) failedPorts() []string {
	var out []string
	for _, sc := range s.scales {
		if sc.Failed() {
			out = append(out, sc.Port())
		}
	}
	return out
}

// Close releases every scale channel. Called once on shutdown.
func (s *PollerService) Close() {
	for _, sc := range s.scales {
		if err := sc.Close(); err != nil {
			s.log.Warnw("closing scale failed", "port", sc.Port(), "err", err)
		}
	}
}
