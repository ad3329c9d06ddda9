package service

import (
	"context"
	"time"

	"weighstation/internal/config"
	"weighstation/internal/logger"
	"weighstation/internal/models"
	"weighstation/internal/recovery"
	"weighstation/internal/repository"
	"weighstation/internal/scale"
	"weighstation/internal/sink"
)

type Authorization interface {
	SignUp(username, password string) (int, error)
	GenerateToken(username, password string) (string, error)
	ParseToken(accessToken string) (int, error)
}

// Monitoring exposes the latest synchronized record.
type Monitoring interface {
	Latest(ctx context.Context) (models.WeightRecord, error)
}

// EventLog exposes append-only logs with filtering access.
type EventLog interface {
	List(ctx context.Context, f LogFilter) ([]models.StationEvent, error)
}

// Poller runs the synchronized reading loop until ctx is canceled. Close
// releases the serial handles on shutdown.
type Poller interface {
	Run(ctx context.Context)
	Close()
}

// Deps carries everything the services need beyond the repositories.
type Deps struct {
	Scales   []*scale.Scale
	Sinks    []sink.RecordSink
	Rebooter recovery.Rebooter
	Auth     config.AuthConfig
	Log      *logger.Logger
}

// Service aggregates all sub-services.
type Service struct {
	Monitoring
	EventLog
	Poller
	Authorization
}

// NewService wires the repository layer and station dependencies into
// concrete services.
func NewService(repos *repository.Repository, deps Deps) *Service {
	ttl := deps.Auth.TokenTTL
	if ttl == 0 {
		ttl = time.Hour
	}
	return &Service{
		Monitoring:    NewMonitoringService(repos.Records),
		EventLog:      NewEventLogService(repos.Events),
		Poller:        NewPollerService(deps.Scales, deps.Sinks, repos.Events, deps.Rebooter, deps.Log),
		Authorization: NewAuthService(repos.Auth, deps.Auth.SigningKey, ttl),
	}
}
