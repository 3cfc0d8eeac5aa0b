// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"workspace-assistant/internal/config"
	"workspace-assistant/internal/domain/ports/adapter"
	"workspace-assistant/internal/infra/adapters/llm"
	pg "workspace-assistant/internal/infra/db/postgres"
	httpapi "workspace-assistant/internal/infra/http"
	"workspace-assistant/internal/infra/logging"
	"workspace-assistant/internal/infra/metrics"
	red "workspace-assistant/internal/infra/redis"
	"workspace-assistant/internal/infra/scheduler"
	"workspace-assistant/internal/infra/tokens"
	"workspace-assistant/internal/infra/worker"
	"workspace-assistant/internal/usecase"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, no sampling)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("developer mode enabled")
	}

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit, cfg.LLM.DefaultProvider)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()
	poolStats := scheduler.NewScheduler("db_pool_stats", 15*time.Second, func(context.Context) error {
		st := pool.Stat()
		metrics.SetDBPoolStats(st.TotalConns(), st.IdleConns(), st.AcquiredConns())
		return nil
	}, logger)
	poolStats.Start(ctx)
	defer poolStats.Stop()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer func() { _ = redisClient.Close() }()
	bus := red.NewPubSub(redisClient, logger)

	var locker adapter.JobLocker
	if cfg.Worker.LockTTL > 0 {
		locker = red.NewLocker(redisClient)
	}

	// ---- Repositories ----
	txManager := pg.NewTxManager(pool)
	conversationRepo := pg.NewConversationRepo(pool)
	projectRepo := pg.NewProjectRepo(pool)
	messageRepo := pg.NewMessageRepo(pool)
	outboxRepo := pg.NewOutboxRepo(pool)

	// ---- LLM ----
	factory := llm.NewFactory(cfg.LLM)
	logger.Info().
		Strs("providers", factory.Names()).
		Str("default_provider", cfg.LLM.DefaultProvider).
		Str("default_model", cfg.LLM.DefaultModel).
		Msg("llm providers registered")

	estimator := tokens.NewEstimator(cfg.LLM.TokenEncoding, logger)

	// ---- Use cases ----
	builder := usecase.NewContextBuilder(conversationRepo, projectRepo, messageRepo, cfg.LLM.ContextWindowMessages, estimator)
	llmService := usecase.NewLLMService(builder, factory, cfg.LLM)
	responder := usecase.NewAssistantResponder(
		txManager,
		conversationRepo,
		messageRepo,
		outboxRepo,
		llmService,
		bus,
		locker,
		usecase.ResponderConfig{StreamTopic: cfg.PubSub.StreamTopic, LockTTL: cfg.Worker.LockTTL},
		logger,
	)

	// ---- Worker ----
	workers := worker.NewPool(cfg.Worker.Concurrency, logger)
	workers.Start(ctx)
	subscriber := worker.NewJobSubscriber(bus, cfg.PubSub.JobsTopic, workers, responder, logger)
	go subscriber.Run(ctx)

	// ---- Ops HTTP ----
	server := httpapi.NewServer(cfg.Admin.Port, map[string]httpapi.Pinger{
		"postgres": pool,
		"redis":    redisClient,
	}, prometheus.DefaultGatherer, logger)
	go func() {
		if err := server.Start(); err != nil {
			logger.Error().Err(err).Msg("ops http server stopped")
		}
	}()

	logger.Info().
		Str("jobs_topic", cfg.PubSub.JobsTopic).
		Str("stream_topic", cfg.PubSub.StreamTopic).
		Int("workers", cfg.Worker.Concurrency).
		Msg("assistant worker started")

	// ---- Graceful shutdown ----
	<-ctx.Done()
	logger.Info().Msg("shutdown requested")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("ops http shutdown")
	}
	workers.Wait()
	logger.Info().Msg("assistant worker stopped")
}
