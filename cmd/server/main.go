package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"custodia/internal/audit"
	auditmetrics "custodia/internal/audit/metrics"
	"custodia/internal/breach"
	breachmetrics "custodia/internal/breach/metrics"
	"custodia/internal/consent"
	"custodia/internal/dsr"
	"custodia/internal/pia"
	"custodia/internal/platform/config"
	"custodia/internal/platform/httpserver"
	"custodia/internal/platform/logger"
	"custodia/internal/platform/metrics"
	"custodia/internal/platform/middleware"
	"custodia/internal/platform/postgres"
	platformredis "custodia/internal/platform/redis"
	"custodia/internal/report"
	"custodia/internal/retention"
	httptransport "custodia/internal/transport/http"
)

// main wires dependencies and owns the process lifecycle. Business logic
// lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	db, err := postgres.Open(cfg.DatabaseURL)
	if err != nil {
		log.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := postgres.Migrate(db); err != nil {
		log.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Audit pipeline. Batches that exhaust the retry budget are spilled
	// to the log as JSON so they can be replayed by hand.
	eventStore := audit.NewPostgresStore(db)
	recorder := audit.NewRecorder(eventStore,
		audit.WithLogger(log),
		audit.WithMetrics(auditmetrics.New()),
		audit.WithDeadLetter(5, func(batch []audit.Event) {
			for _, event := range batch {
				raw, err := json.Marshal(event)
				if err != nil {
					log.Error("dead-lettered audit event not serializable", "event_id", event.ID)
					continue
				}
				log.Error("dead-lettered audit event", "event", string(raw))
			}
		}),
	)

	consentOpts := []consent.ServiceOption{consent.WithLogger(log)}
	if redisClient != nil {
		consentOpts = append(consentOpts,
			consent.WithCache(consent.NewStatusCache(redisClient.Client, cfg.Redis.CacheTTL)))
	}
	consentStore := consent.NewPostgresStore(db)
	consentSvc := consent.NewService(consentStore, recorder, consentOpts...)

	dsrStore := dsr.NewPostgresStore(db)
	dsrSvc := dsr.NewService(dsrStore, recorder, dsr.PlatformSources(db),
		dsr.WithLogger(log), dsr.WithConsentEraser(consentSvc))

	var notifier breach.Notifier = breach.NewLogNotifier(log)
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaNotifier, err := breach.NewKafkaNotifier(ctx, cfg.Kafka.Brokers, cfg.Kafka.AlertTopic)
		if err != nil {
			log.Error("failed to connect breach alert sink, falling back to log alerts", "error", err)
		} else {
			defer kafkaNotifier.Close()
			notifier = kafkaNotifier
		}
	}
	breachStore := breach.NewPostgresStore(db)
	breachSvc := breach.NewService(breachStore, recorder, notifier,
		breach.WithLogger(log),
		breach.WithMetrics(breachmetrics.New()),
	)

	reportSvc := report.NewService(eventStore, consentStore, breachStore, dsrStore)
	piaSvc := pia.NewService(pia.NewPostgresStore(db), recorder, pia.WithLogger(log))

	sweeper := retention.NewSweeper(retention.NewPostgresPurger(db), recorder,
		retention.WithLogger(log))

	go func() {
		if err := recorder.Run(ctx, cfg.FlushInterval); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("audit flush loop stopped", "error", err)
		}
	}()
	go func() {
		if err := sweeper.Run(ctx, cfg.SweepInterval); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("retention sweep loop stopped", "error", err)
		}
	}()

	handlerOpts := []httptransport.HandlerOption{
		httptransport.WithHealthChecks(postgres.Health(db)),
	}
	if redisClient != nil {
		handlerOpts = append(handlerOpts, httptransport.WithHealthChecks(redisClient))
	}
	handler := httptransport.NewHandler(log, recorder, consentSvc, dsrSvc, breachSvc, reportSvc, piaSvc, handlerOpts...)
	router := httptransport.NewRouter(handler,
		middleware.NewHS256Validator(cfg.JWTSigningKey), metrics.New())

	srv := httpserver.New(cfg.Addr, router)
	go func() {
		log.Info("starting custodia", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}

	// Drain buffered audit events before the process exits.
	recorder.Close()
}
