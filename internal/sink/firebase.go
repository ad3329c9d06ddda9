package sink

import (
	"context"
	"fmt"
	"time"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/db"
	"google.golang.org/api/option"

	"weighstation/internal/config"
	"weighstation/internal/logger"
	"weighstation/internal/models"
)

const (
	uploadRetries        = 3
	uploadInitialBackoff = 5 * time.Second

	initRetries        = 3
	initInitialBackoff = 10 * time.Second

	// primary ref carries at most the first three scale slots; a fourth
	// scale goes to the secondary ref as its own record
	primarySlots = 3
)

// pushFunc pushes one payload under a database ref path.
type pushFunc func(ctx context.Context, ref string, payload map[string]any) error

// FirebaseSink uploads each record to the Firebase Realtime Database,
// splitting it across a primary and an optional secondary ref. Uploads are
// retried with exponential backoff; exhausting the retries drops the tick.
type FirebaseSink struct {
	primaryRef   string
	secondaryRef string
	push         pushFunc
	sleep        func(d time.Duration)
	log          *logger.Logger
}

// NewFirebase initializes the Realtime Database client, retrying transient
// startup failures with exponential backoff. The process cannot run without
// the remote store, so exhausting the budget is fatal to the caller.
func NewFirebase(ctx context.Context, cfg config.FirebaseConfig, log *logger.Logger) (*FirebaseSink, error) {
	var (
		client  *db.Client
		err     error
		backoff = initInitialBackoff
	)
	for attempt := 1; attempt <= initRetries; attempt++ {
		client, err = newDBClient(ctx, cfg)
		if err == nil {
			log.Infow("firebase initialized")
			break
		}
		log.Warnw("firebase setup attempt failed", "attempt", attempt, "err", err)
		if attempt < initRetries {
			log.Infow("retrying firebase setup", "in", backoff)
			time.Sleep(backoff)
			backoff *= 2
		}
	}
	if err != nil {
		return nil, fmt.Errorf("initialize firebase after %d attempts: %w", initRetries, err)
	}

	push := func(ctx context.Context, ref string, payload map[string]any) error {
		_, err := client.NewRef(ref).Push(ctx, payload)
		return err
	}
	return newFirebaseSink(cfg, push, time.Sleep, log), nil
}

func newDBClient(ctx context.Context, cfg config.FirebaseConfig) (*db.Client, error) {
	app, err := firebase.NewApp(ctx,
		&firebase.Config{DatabaseURL: cfg.DatabaseURL},
		option.WithCredentialsFile(cfg.CredentialsFile),
	)
	if err != nil {
		return nil, fmt.Errorf("firebase app: %w", err)
	}
	client, err := app.Database(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase database: %w", err)
	}
	return client, nil
}

func newFirebaseSink(cfg config.FirebaseConfig, push pushFunc, sleep func(time.Duration), log *logger.Logger) *FirebaseSink {
	return &FirebaseSink{
		primaryRef:   cfg.PrimaryRef,
		secondaryRef: cfg.SecondaryRef,
		push:         push,
		sleep:        sleep,
		log:          log,
	}
}

func (s *FirebaseSink) Name() string { return "firebase" }

func (s *FirebaseSink) Store(ctx context.Context, rec models.WeightRecord) error {
	var err error
	backoff := uploadInitialBackoff
	for attempt := 1; attempt <= uploadRetries; attempt++ {
		if err = s.upload(ctx, rec); err == nil {
			return nil
		}
		s.log.Warnw("firebase upload attempt failed", "attempt", attempt, "err", err)
		if attempt < uploadRetries {
			s.log.Infow("retrying firebase upload", "in", backoff)
			s.sleep(backoff)
			backoff *= 2
		}
	}
	return fmt.Errorf("firebase upload after %d attempts: %w", uploadRetries, err)
}

func (s *FirebaseSink) upload(ctx context.Context, rec models.WeightRecord) error {
	primary := map[string]any{"timestamp": rec.TakenAt.Format(time.RFC3339)}
	for i, w := range rec.Weights {
		if i >= primarySlots {
			break
		}
		primary[fmt.Sprintf("weight%d", i+1)] = w
	}
	if err := s.push(ctx, s.primaryRef, primary); err != nil {
		return err
	}
	s.log.Infow("firebase uploaded", "ref", s.primaryRef)

	if len(rec.Weights) > primarySlots {
		secondary := map[string]any{
			"timestamp": rec.TakenAt.Format(time.RFC3339),
			"weight1":   rec.Weights[primarySlots],
		}
		if err := s.push(ctx, s.secondaryRef, secondary); err != nil {
			return err
		}
		s.log.Infow("firebase uploaded", "ref", s.secondaryRef)
	}
	return nil
}

func (s *FirebaseSink) Close() error { return nil }
