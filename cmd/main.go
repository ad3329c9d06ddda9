package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"weighstation/internal/config"
	"weighstation/internal/handlers"
	"weighstation/internal/logger"
	"weighstation/internal/recovery"
	"weighstation/internal/repository"
	"weighstation/internal/repository/db"
	"weighstation/internal/scale"
	"weighstation/internal/server"
	"weighstation/internal/service"
	"weighstation/internal/sink"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// load config.yml
	cfg, err := config.Load("configs")
	if err != nil {
		logger.Get(logger.InfoLevel, "").Fatalw("error reading config", "err", err)
	}

	// init logger
	log := logger.Get(cfg.Log.Level, cfg.Log.Path)

	// open DB
	database, err := db.InitDB(cfg.DB.Path)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err)
	}
	defer closeDB(database, log)

	// context for background goroutines
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// wire dependencies
	repos := repository.NewRepository(database)
	scales := buildScales(cfg, log)
	sinks := buildSinks(ctx, cfg, repos, log)
	services := service.NewService(repos, service.Deps{
		Scales:   scales,
		Sinks:    sinks,
		Rebooter: recovery.NewSystemRebooter(log),
		Auth:     cfg.Auth,
		Log:      log,
	})
	apiHandler := handlers.NewHandler(services, log)

	// start the synchronized reading loop
	go services.Poller.Run(ctx)

	// start HTTP server
	srv := &server.Server{}
	runHTTPServer(srv, cfg.Port, apiHandler, log)

	// graceful shutdown
	waitForShutdown(cancel, srv, services, sinks, log)
}

// buildScales constructs one channel controller per configured device and
// attempts the initial connection. A scale that cannot connect at startup is
// kept; the poll loop will retry and escalate if it stays dead.
func buildScales(cfg *config.Config, log *logger.Logger) []*scale.Scale {
	opts := scale.Options{
		BaudRate:            cfg.Scales.BaudRate,
		ReconnectAttempts:   cfg.Scales.ReconnectAttempts,
		ReconnectDelay:      cfg.Scales.ReconnectDelay,
		ReadAttempts:        cfg.Scales.ReadAttempts,
		ReadDelay:           cfg.Scales.ReadDelay,
		ValidationThreshold: cfg.Scales.ValidationThreshold,
		ValidationRetries:   cfg.Scales.ValidationRetries,
	}

	scales := make([]*scale.Scale, 0, len(cfg.Scales.Ports))
	for _, port := range cfg.Scales.Ports {
		s := scale.New(port, opts, log)
		if err := s.Connect(); err != nil {
			log.Errorw("initial scale connect failed", "port", port, "err", err)
		}
		scales = append(scales, s)
	}
	return scales
}

// buildSinks assembles the persistence fan-out: CSV and SQLite always, the
// remote stores only when enabled. A remote store that is enabled but cannot
// be initialized is fatal, matching the station's fail-fast startup.
func buildSinks(ctx context.Context, cfg *config.Config, repos *repository.Repository, log *logger.Logger) []sink.RecordSink {
	sinks := []sink.RecordSink{
		sink.NewCSV(cfg.CSV.Path),
		sink.NewRepo(repos.Records),
	}

	if cfg.Firebase.Enabled {
		fb, err := sink.NewFirebase(ctx, cfg.Firebase, log)
		if err != nil {
			log.Fatalw("failed to init firebase", "err", err)
		}
		sinks = append(sinks, fb)
	}

	if cfg.MQTT.Enabled {
		mq, err := sink.NewMQTT(cfg.MQTT)
		if err != nil {
			log.Fatalw("failed to init mqtt", "server", cfg.MQTT.Server, "err", err)
		}
		sinks = append(sinks, mq)
	}

	return sinks
}

func closeDB(database *sql.DB, log *logger.Logger) {
	if err := database.Close(); err != nil {
		log.Errorw("failed to close sqlite", "err", err)
	}
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, port string, handler *handlers.Handler, log *logger.Logger) {
	go func() {
		if err := srv.Run(port, handler.InitRoutes()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown listens for termination signals and performs graceful shutdown.
func waitForShutdown(cancel context.CancelFunc, srv *server.Server, services *service.Service, sinks []sink.RecordSink, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down station...")

	// stop the poll loop and release serial handles
	cancel()
	services.Poller.Close()

	for _, s := range sinks {
		if err := s.Close(); err != nil {
			log.Errorw("failed to close sink", "sink", s.Name(), "err", err)
		}
	}

	// allow in-flight requests to complete
	ctx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalw("server forced to shutdown", "err", err)
	}
}
