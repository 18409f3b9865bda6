package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"focus/backend/internal/config"
	"focus/backend/internal/db"
	"focus/backend/internal/handler"
	"focus/backend/internal/repository"
	"focus/backend/internal/router"
	"focus/backend/internal/service"
	"focus/backend/internal/surface"
	"focus/backend/internal/syncchan"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx := context.Background()

	database, err := db.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer database.Close()

	if err := db.RunMigrations(database, db.MigrationSource(cfg.MigrationsDir)); err != nil {
		log.Fatalf("run migrations: %v", err)
	}

	taskRepo := repository.NewTaskRepository(database)
	settingsRepo := repository.NewSettingsRepository(database)

	bus, err := newBus(ctx, cfg)
	if err != nil {
		log.Fatalf("open sync channel: %v", err)
	}
	defer bus.Close()

	board, err := service.NewBoardService(ctx, taskRepo)
	if err != nil {
		log.Fatalf("load tasks: %v", err)
	}

	tokens := surface.NewTokenIssuer(cfg.SurfaceSecret, cfg.SurfaceTokenTTL)
	// The floating host has no availability check; FLOATING_SURFACE decides.
	ctrl, err := surface.NewController(ctx, surface.Config{
		Bus:           bus,
		Floating:      surface.NewFloatingHost(cfg.FloatingSurface, nil),
		Window:        surface.NewWindowHost(cfg.PopupsAllowed),
		Tokens:        tokens,
		StatusRefresh: cfg.StatusRefresh,
		SyncEvery:     cfg.StateSyncTicks,
	}, board.ApplyCompletion, board.ApplyStateChange)
	if err != nil {
		log.Fatalf("start surface controller: %v", err)
	}
	board.AttachController(ctrl)
	defer board.Close()

	settingsService := service.NewSettingsService(settingsRepo)
	historyService := service.NewHistoryService(nil)

	engine := router.New(
		tokens,
		handler.NewTaskHandler(board),
		handler.NewFocusHandler(board),
		handler.NewSurfaceHandler(ctrl, board),
		handler.NewSettingsHandler(settingsService, historyService),
		cfg.CORSOrigins,
	)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("backend listening on :%s (sync transport %s)", cfg.Port, cfg.SyncTransport)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("run server: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("shutting down")

	// Open event streams only end when their surface closes, so close the
	// surface before draining the server.
	board.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown server: %v", err)
	}

	// The listener drains the final flush into the store before the database
	// closes.
	if err := ctrl.Close(); err != nil {
		log.Printf("close surface controller: %v", err)
	}
	select {
	case <-ctrl.Done():
	case <-shutdownCtx.Done():
		log.Println("sync listener did not drain before shutdown deadline")
	}
}

func newBus(ctx context.Context, cfg config.Config) (syncchan.Bus, error) {
	if cfg.SyncTransport == config.SyncTransportRedis {
		return syncchan.NewRedisBus(ctx, cfg.RedisAddr, cfg.SyncChannel)
	}
	return syncchan.NewBroadcast(256), nil
}
