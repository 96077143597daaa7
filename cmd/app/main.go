// File: cmd/app/main.go
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
	"time"

	"whatsapp-ai-cs/internal/config"
	"whatsapp-ai-cs/internal/domain/model"
	pg "whatsapp-ai-cs/internal/infra/db/postgres"
	"whatsapp-ai-cs/internal/infra/logging"
	"whatsapp-ai-cs/internal/infra/media"
	"whatsapp-ai-cs/internal/infra/metrics"
	red "whatsapp-ai-cs/internal/infra/redis"
	"whatsapp-ai-cs/internal/infra/web"
	"whatsapp-ai-cs/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, no redaction)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("dev mode enabled")
	}
	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 10)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()
	if err := pg.EnsureSchema(ctx, pool); err != nil {
		log.Fatalf("schema: %v", err)
	}

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	defer redisClient.Close()
	queue := red.NewJobQueue(redisClient, cfg.Queue.Lease)

	// ---- Media store ----
	mediaStore, err := media.NewStore(cfg.Media.Dir, cfg.Media.PublicPrefix)
	if err != nil {
		log.Fatalf("media store: %v", err)
	}

	// ---- Use cases ----
	var whitelist []string
	if cfg.Whitelist.Enabled {
		whitelist = cfg.Whitelist.Numbers
	}
	policy := model.RetryPolicy{MaxAttempts: cfg.Queue.MaxAttempts, Backoff: cfg.Queue.Backoff}
	intakeUC := usecase.NewIntakeUseCase(queue, mediaStore, policy, whitelist, logger)

	chatLogRepo := pg.NewChatLogRepo(pool)
	sysConfigRepo := pg.NewSystemConfigRepo(pool)
	historyUC := usecase.NewHistoryUseCase(chatLogRepo, sysConfigRepo)

	// ---- HTTP server ----
	auth := web.NewAuthManager(cfg.Admin.SessionSecret, !cfg.Runtime.Dev, cfg.Admin.SessionTTL)
	srv := web.NewServer(intakeUC, historyUC, queue, auth, cfg.Admin.APIKey, mediaStore.Dir(), logger)
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      srv.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("gateway listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = server.Shutdown(shutdownCtx)
	cancel()
}
