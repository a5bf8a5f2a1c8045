package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/virtual-dev/presence-service/config"
	"github.com/virtual-dev/presence-service/internal/llm"
	"github.com/virtual-dev/presence-service/internal/metrics"
	"github.com/virtual-dev/presence-service/internal/postgres"
	"github.com/virtual-dev/presence-service/internal/service"
	httpx "github.com/virtual-dev/presence-service/internal/transport/http"
	"github.com/virtual-dev/presence-service/internal/transport/ws"
	"github.com/virtual-dev/presence-service/pkg/logger"
)

func main() {
	// --- config ---
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger.Init(logger.Config{
		Env:       logger.Env(cfg.Logging.Env),
		Service:   cfg.Logging.Service,
		Version:   cfg.Logging.Version,
		Backend:   logger.Backend(cfg.Logging.Backend),
		FilePath:  cfg.Logging.File,
		AddSource: cfg.Logging.AddSource,
		Debug:     cfg.Logging.Debug,
	})
	slog.Info("starting presence-service",
		"env", cfg.Logging.Env, "version", cfg.Logging.Version)

	// --- postgres ---
	ctx := context.Background()
	db, err := postgres.New(ctx, cfg.Postgres.DSN)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer db.Close()

	// --- repos ---
	sessionRepo := postgres.NewSessionRepository(db.Pool, cfg.World.SessionTTL)
	chatRepo := postgres.NewChatRepository(db.Pool)
	npcRepo := postgres.NewNPCRepository(db.Pool)

	// --- services ---
	sessionSvc := service.NewSessionService(sessionRepo, cfg.World.MapWidth, cfg.World.MapHeight)
	tracker := service.NewProximityTracker(cfg.World.ProximityRadius)
	chatSvc := service.NewChatService(chatRepo)
	provider := llm.NewClient(cfg.NPC.BaseURL, os.Getenv("ANTHROPIC_API_KEY"),
		cfg.NPC.Model, cfg.NPC.MaxTokens, cfg.NPC.Timeout)
	if !provider.Configured() {
		slog.Warn("ANTHROPIC_API_KEY not set, npc chat disabled")
	}
	npcSvc := service.NewNPCService(npcRepo, provider)

	// --- metrics, WS hub & server ---
	m := metrics.New()
	hub := ws.NewHub()
	wsServer := ws.NewServer(hub, sessionSvc, tracker, chatSvc, npcSvc, m)

	// --- HTTP ---
	handler := httpx.NewHandler(wsServer, sessionSvc, npcSvc, chatSvc, sessionRepo, m)
	router := httpx.NewRouter(handler, wsServer, cfg.HTTP.CORSOrigin, cfg.Admin.Token)
	httpSrv := &http.Server{
		Addr:        cfg.HTTP.Addr,
		Handler:     router,
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http listen", "addr", cfg.HTTP.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// --- graceful shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal", "sig", sig)
	case err := <-errCh:
		slog.Error("server error", "err", err)
	}

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = httpSrv.Shutdown(ctxShutdown)
	slog.Info("stopped")
}
