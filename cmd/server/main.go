package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"exposure/internal/diagnosis/metrics"
	diagnosisservice "exposure/internal/diagnosis/service"
	"exposure/internal/platform/config"
	"exposure/internal/platform/httpserver"
	"exposure/internal/platform/logger"
	platformmetrics "exposure/internal/platform/metrics"
	platformredis "exposure/internal/platform/redis"
	"exposure/internal/platform/scheduler"
	roamingservice "exposure/internal/roaming/service"
	"exposure/internal/roaming/worker"
	httptransport "exposure/internal/transport/http"
	"exposure/pkg/platform/clock"
)

var version = "dev"

const (
	diagnosisRetentionJob      = "DiagnosisRetention"
	diagnosisRetentionInterval = time.Hour
)

// main wires high-level dependencies and keeps the process lifecycle small.
// Business logic lives in the internal domain packages.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("exposure stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	appMetrics := platformmetrics.New(version)
	clk := clock.Real{}

	store, closeStore, err := openDiagnosisStore(ctx, cfg.Storage, log)
	if err != nil {
		return fmt.Errorf("open diagnosis store: %w", err)
	}
	defer func() {
		if err := closeStore(); err != nil {
			log.Warn("closing diagnosis store", "error", err)
		}
	}()

	diagnoses, err := diagnosisservice.New(store, clk,
		diagnosisservice.WithLogger(log),
		diagnosisservice.WithMetrics(metrics.New(appMetrics.Registry)),
	)
	if err != nil {
		return err
	}
	defer diagnoses.Close()

	redisClient, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	checks := map[string]httptransport.Pinger{"diagnoses": store}
	if redisClient != nil {
		defer redisClient.Close()
		checks["redis"] = httptransport.PingFunc(redisClient.Health)
	}

	countryCodes, err := roamingservice.New(
		countryCodeStore(redisClient, log),
		roamingservice.StaticDetector(cfg.Roaming.DeviceCountry),
		clk,
		roamingservice.WithLogger(log),
		roamingservice.WithRetention(cfg.Roaming.Retention),
	)
	if err != nil {
		return err
	}

	jobs := scheduler.NewManager(
		scheduler.WithLogger(log),
		scheduler.WithMetrics(scheduler.NewMetrics(appMetrics.Registry)),
		scheduler.WithRunOnEnqueue(true),
	)
	defer jobs.Shutdown()

	countryWorker := worker.New(worker.ConfiguredEnablement(cfg.Roaming.Enabled), countryCodes, worker.WithLogger(log))
	if err := worker.Schedule(jobs, countryWorker, cfg.Roaming.CheckInterval, log); err != nil {
		return fmt.Errorf("schedule country check: %w", err)
	}
	if cfg.Storage.Retention > 0 {
		retention := cfg.Storage.Retention
		_, err := jobs.EnqueueUniquePeriodic(diagnosisRetentionJob, diagnosisRetentionInterval, scheduler.Keep,
			func(ctx context.Context) error {
				_, err := diagnoses.DeleteObsolete(ctx, retention)
				return err
			})
		if err != nil {
			return fmt.Errorf("schedule diagnosis retention: %w", err)
		}
	}

	router := httptransport.NewRouter(httptransport.NewHandler(checks, appMetrics, log), appMetrics.Registry)
	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return httpserver.Run(gctx, srv, log)
	})
	g.Go(func() error {
		<-gctx.Done()
		worker.Cancel(jobs, log)
		return nil
	})

	log.Info("exposure started", "version", version, "addr", cfg.Addr, "storage", cfg.Storage.Driver)
	return g.Wait()
}
