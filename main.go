package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/atelierhq/easel/internal/adapters/cache"
	"github.com/atelierhq/easel/internal/adapters/database"
	"github.com/atelierhq/easel/internal/adapters/jobarchive"
	"github.com/atelierhq/easel/internal/adapters/studioapi"
	"github.com/atelierhq/easel/internal/app"
	"github.com/atelierhq/easel/internal/config"
	"github.com/atelierhq/easel/internal/debounce"
	"github.com/atelierhq/easel/internal/domain"
	"github.com/atelierhq/easel/internal/jobstream"
	"github.com/atelierhq/easel/internal/logging"
	"github.com/atelierhq/easel/internal/lru"
	"github.com/atelierhq/easel/internal/ports"
	"github.com/atelierhq/easel/internal/ratelimiting"
	"github.com/atelierhq/easel/internal/reporting"
	"github.com/atelierhq/easel/internal/server"
	"github.com/atelierhq/easel/internal/telemetry"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	_ "golang.org/x/crypto/x509roots/fallback"
)

const archiveQuietPeriod = 2 * time.Second

func main() {
	instanceID := uuid.New().String()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil)).With("instanceID", instanceID)

	fail := func(msg string, args ...any) {
		logger.Error(msg, args...)
		os.Exit(1)
	}

	conf, err := config.ConfigFromEnv()
	if err != nil {
		fail("Failed to load config", "error", err.Error())
	}
	logger.Info("Loaded config", "config", conf.NonSensitiveString())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logging.AddToContext(ctx, logger)

	sentryMiddleware, flush, err := reporting.NewSentryMiddlewareOrMock(conf)
	if err != nil {
		fail("Failed to initialize Sentry", "error", err.Error())
	}
	defer flush()
	logger.Info("Initialized Sentry middleware")

	otelShutdown, err := telemetry.SetupOTelSDK(ctx, "easel")
	if err != nil {
		fail("Failed to initialize OpenTelemetry", "error", err.Error())
	}
	defer func() {
		if err := otelShutdown(context.Background()); err != nil {
			logger.Error("Failed to shut down OpenTelemetry", "error", err.Error())
		}
	}()

	httpClient := &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
		Timeout:   30 * time.Second,
	}

	limiter := ratelimiting.NewTokenBucketLimiter(
		ratelimiting.RefillPerSecond(8),
		ratelimiting.BurstSize(16),
	)

	api, err := studioapi.NewStudioAPIOrMock(conf, httpClient, limiter)
	if err != nil {
		fail("Failed to initialize Studio API client", "error", err.Error())
	}
	logger.Info("Initialized Studio API client")

	jobCache := cache.NewTTLCache[domain.Job](1 * time.Minute)
	getJob := app.BuildGetJobWithCache(jobCache, api)

	jobResults := lru.New[json.RawMessage](lru.DefaultMaxSize)
	getJobResult := app.BuildGetJobResult(jobResults, getJob)

	reconciler := jobstream.New(api)
	go reconciler.Run(ctx)
	logger.Info("Started job stream reconciler")

	if conf.ArchiveEnabled() {
		db, err := database.NewArchiveDatabase(conf)
		if err != nil {
			fail("Failed to initialize archive database", "error", err.Error())
		}
		logger.Info("Initialized archive database connection")

		schemaName := database.GetSchemaName(!conf.IsProduction())
		err = database.NewDatabaseMigrator(db, logger.With("component", "migrator")).Migrate(ctx, schemaName)
		if err != nil {
			fail("Failed to migrate archive database", "error", err.Error())
		}

		archive := jobarchive.NewPostgres(db, schemaName, time.Now)
		archiveJobs := app.BuildArchiveFinishedJobs(archive)

		// Stream updates come in bursts while jobs progress. Coalesce
		// them so each burst triggers a single sweep.
		debouncer := debounce.New[struct{}](archiveQuietPeriod)
		defer debouncer.Close()

		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case <-reconciler.Updates():
					debouncer.Notify(struct{}{})
				}
			}
		}()

		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case <-debouncer.C():
					if _, err := archiveJobs(ctx, reconciler.Snapshot()); err != nil {
						app.ReportArchiveFailure(ctx, err)
					}
				}
			}
		}()

		logger.Info("Started debounced job archiver")
	}

	mux := http.NewServeMux()
	mux.HandleFunc(
		"GET /jobs",
		ports.MakeListJobsHandler(
			reconciler.Snapshot,
			logger.With("port", "listjobs"),
			sentryMiddleware,
		),
	)
	mux.HandleFunc(
		"GET /jobs/{job_id}",
		ports.MakeGetJobHandler(
			getJob,
			logger.With("port", "getjob"),
			sentryMiddleware,
		),
	)
	mux.HandleFunc(
		"GET /jobs/{job_id}/result",
		ports.MakeGetJobResultHandler(
			getJobResult,
			logger.With("port", "getjobresult"),
			sentryMiddleware,
		),
	)
	mux.HandleFunc("GET /healthz", ports.MakeHealthzHandler())

	logger.Info("Init complete", "listenAddr", conf.ListenAddr())
	if err := server.Serve(ctx, conf.ListenAddr(), mux); err != nil {
		fail("Server failed", "error", err.Error())
	}
	logger.Info("Server shutdown")
}
