// File: cmd/worker/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"whatsapp-ai-cs/internal/config"
	"whatsapp-ai-cs/internal/domain/ports/adapter"
	aiAdapters "whatsapp-ai-cs/internal/infra/adapters/ai"
	"whatsapp-ai-cs/internal/infra/adapters/erp"
	msgAdapters "whatsapp-ai-cs/internal/infra/adapters/messenger"
	pg "whatsapp-ai-cs/internal/infra/db/postgres"
	"whatsapp-ai-cs/internal/infra/logging"
	"whatsapp-ai-cs/internal/infra/metrics"
	red "whatsapp-ai-cs/internal/infra/redis"
	"whatsapp-ai-cs/internal/infra/worker"
	"whatsapp-ai-cs/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, noop delivery)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, int32(cfg.Worker.Concurrency+2))
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()
	if err := pg.EnsureSchema(ctx, pool); err != nil {
		log.Fatalf("schema: %v", err)
	}
	chatLogRepo := pg.NewChatLogRepo(pool)
	sysConfigRepo := pg.NewSystemConfigRepo(pool)

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	defer redisClient.Close()
	queue := red.NewJobQueue(redisClient, cfg.Queue.Lease)

	// ---- AI adapter (Gemini -> OpenAI) ----
	var ai adapter.ModelAdapter
	switch {
	case cfg.AI.GeminiKey != "":
		ai, err = aiAdapters.NewGeminiAdapter(ctx, cfg.AI.GeminiKey, cfg.AI.GeminiURL, cfg.AI.Model, cfg.AI.MaxOutTokens)
		if err != nil {
			log.Fatalf("gemini adapter: %v", err)
		}
		logger.Info().Str("model", cfg.AI.Model).Msg("AI adapter: Gemini")
	case cfg.AI.OpenAIKey != "":
		ai, err = aiAdapters.NewOpenAIAdapter(cfg.AI.OpenAIKey, cfg.AI.OpenAIURL, cfg.AI.Model)
		if err != nil {
			log.Fatalf("openai adapter: %v", err)
		}
		logger.Info().Str("model", cfg.AI.Model).Msg("AI adapter: OpenAI")
	case cfg.Runtime.Dev:
		ai = aiAdapters.NewNoopAdapter()
		logger.Warn().Msg("AI adapter: noop (dev mode, canned replies)")
	default:
		log.Fatalf("no AI provider configured: set ai.gemini_key or ai.openai_key in %s", *cfgPath)
	}

	// ---- ERP + delivery ----
	erpClient := erp.NewJubelioClient(cfg.ERP.BaseURL, cfg.ERP.Timeout)
	var messenger adapter.MessengerAdapter
	if cfg.Messenger.Key != "" {
		messenger, err = msgAdapters.NewWooWaAdapter(cfg.Messenger.Key, cfg.Messenger.BaseURL)
		if err != nil {
			log.Fatalf("messenger: %v", err)
		}
	} else {
		logger.Warn().Msg("messenger.key not set; replies are logged, not sent")
		messenger = msgAdapters.NewNoopAdapter(logger)
	}

	// ---- Use cases ----
	tools := usecase.NewToolDispatcher(erpClient, logger)
	convUC := usecase.NewConversationUseCase(
		chatLogRepo, sysConfigRepo, ai, tools,
		cfg.AI.HistoryLimit, cfg.AI.MaxRounds, logger,
	)

	// ---- Worker pool + processor ----
	var locker worker.ContactLocker
	if cfg.Worker.SerializePerContact {
		locker = red.NewLocker(redisClient)
		logger.Info().Msg("per-contact serialization enabled")
	}
	workerPool := worker.NewPool(cfg.Worker.Concurrency, logger)
	workerPool.Start(ctx)
	processor := worker.NewChatJobProcessor(
		queue, convUC, messenger, locker,
		cfg.Queue.Lease, cfg.Queue.PollInterval, logger,
	)
	go func() {
		if err := processor.Run(ctx, workerPool); err != nil && ctx.Err() == nil {
			logger.Error().Err(err).Msg("processor stopped")
		}
	}()

	// ---- Metrics endpoint ----
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	metricsSrv := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Worker.MetricsPort), Handler: mux}
	go func() {
		logger.Info().Str("addr", metricsSrv.Addr).Msg("worker metrics listening")
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("metrics server error")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")
	cancel()
	workerPool.Stop()
	_ = metricsSrv.Close()
}
