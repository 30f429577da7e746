// main wires the stores, services, and handlers around the platform pieces
// and runs the HTTP server plus the receipt delivery worker until signalled.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	cataloghandler "cmms/internal/catalog/handler"
	catalogservice "cmms/internal/catalog/service"
	catalogstore "cmms/internal/catalog/store"
	checkinhandler "cmms/internal/checkin/handler"
	checkinservice "cmms/internal/checkin/service"
	"cmms/internal/eligibility/cache"
	enrollhandler "cmms/internal/enrollment/handler"
	enrollservice "cmms/internal/enrollment/service"
	enrollstore "cmms/internal/enrollment/store"
	eventhandler "cmms/internal/event/handler"
	eventservice "cmms/internal/event/service"
	eventstore "cmms/internal/event/store"
	"cmms/internal/notify"
	"cmms/internal/platform/config"
	"cmms/internal/platform/httpserver"
	"cmms/internal/platform/logger"
	"cmms/internal/platform/metrics"
	"cmms/internal/platform/postgres"
	platformredis "cmms/internal/platform/redis"
	reghandler "cmms/internal/registration/handler"
	regservice "cmms/internal/registration/service"
	regstore "cmms/internal/registration/store"
	reporthandler "cmms/internal/report/handler"
	reportservice "cmms/internal/report/service"
	rosterhandler "cmms/internal/roster/handler"
	rosterservice "cmms/internal/roster/service"
	rosterstore "cmms/internal/roster/store"
	teachinghandler "cmms/internal/teaching/handler"
	teachingservice "cmms/internal/teaching/service"
	httptransport "cmms/internal/transport/http"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		// the cache is advisory, the server runs without it
		log.Warn("redis unavailable, eligibility caching disabled", "error", err)
	}

	m := metrics.New()

	eventStore := eventstore.NewPostgres(pool)
	rosterStore := rosterstore.NewPostgres(pool)
	registrationStore := regstore.NewPostgres(pool)
	catalogStore := catalogstore.NewPostgres(pool)
	enrollmentStore := enrollstore.NewPostgres(pool)

	var snapshots enrollservice.SnapshotSource = rosterStore
	var invalidator teachingservice.SnapshotInvalidator
	if redisClient != nil {
		snapshotCache := cache.New(rosterStore, redisClient.Client, cfg.EligibilityCacheTTL, cache.WithLogger(log))
		snapshots = snapshotCache
		invalidator = snapshotCache
	}

	eventSvc := eventservice.New(eventStore, eventservice.WithLogger(log))
	rosterSvc := rosterservice.New(rosterStore, rosterservice.WithLogger(log))
	catalogSvc := catalogservice.New(catalogStore, catalogservice.WithLogger(log))

	regOpts := []regservice.Option{
		regservice.WithLogger(log),
		regservice.WithMetrics(m),
	}
	var receiptPublisher *notify.KafkaPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		receiptPublisher, err = notify.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		if err != nil {
			return err
		}
		defer receiptPublisher.Close()
		regOpts = append(regOpts, regservice.WithPublisher(receiptPublisher))
	}
	regSvc := regservice.New(registrationStore, eventStore, rosterSvc, regOpts...)

	enrollSvc := enrollservice.New(enrollmentStore, registrationStore, snapshots, catalogStore,
		enrollservice.WithLogger(log),
		enrollservice.WithMetrics(m))
	checkinSvc := checkinservice.New(registrationStore, eventStore, rosterStore,
		checkinservice.WithLogger(log),
		checkinservice.WithMetrics(m))

	teachingOpts := []teachingservice.Option{teachingservice.WithLogger(log)}
	if invalidator != nil {
		teachingOpts = append(teachingOpts, teachingservice.WithSnapshotInvalidator(invalidator))
	}
	teachingSvc := teachingservice.New(enrollmentStore, catalogStore, registrationStore, rosterStore, teachingOpts...)

	reportSvc := reportservice.New(eventStore, registrationStore, rosterStore, reportservice.WithLogger(log))

	checks := []httptransport.HealthCheck{pool.Ping}
	if redisClient != nil {
		checks = append(checks, redisClient.Health)
	}

	router := httptransport.NewRouter(cfg.JWTSigningKey, log, checks,
		eventhandler.New(eventSvc, log),
		rosterhandler.New(rosterSvc, log),
		reghandler.New(regSvc, log),
		cataloghandler.New(catalogSvc, log),
		enrollhandler.New(enrollSvc, log),
		checkinhandler.New(checkinSvc, log),
		teachinghandler.New(teachingSvc, log),
		reporthandler.New(reportSvc, log),
	)

	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if len(cfg.Kafka.Brokers) > 0 && cfg.Email.APIKey != "" {
		sender := notify.NewHTTPEmailSender(cfg.Email.BaseURL, cfg.Email.APIKey, cfg.Email.FromAddress)
		worker, err := notify.NewWorker(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.Group, sender, log, m)
		if err != nil {
			return err
		}
		g.Go(func() error {
			log.Info("starting receipt worker", "topic", cfg.Kafka.Topic, "group", cfg.Kafka.Group)
			if err := worker.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("shutdown complete")
	return nil
}
