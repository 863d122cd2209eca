package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Fedecaff/mapa-emergencias-sub000/internal/api"
	"github.com/Fedecaff/mapa-emergencias-sub000/internal/config"
	"github.com/Fedecaff/mapa-emergencias-sub000/internal/db"
	"github.com/Fedecaff/mapa-emergencias-sub000/internal/kafka"
	"github.com/Fedecaff/mapa-emergencias-sub000/internal/logging"
	"github.com/Fedecaff/mapa-emergencias-sub000/internal/providers"
	"github.com/Fedecaff/mapa-emergencias-sub000/internal/realtime"
)

func main() {
	// Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Logging.Dir, cfg.Logging.Level)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}

	// Connect to database
	dbConn, err := db.New(cfg.DB.DSN)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	defer dbConn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Real-time core
	registry := realtime.NewRegistry(cfg.WS.MaxConnsPerUser, logger)
	dispatcher := realtime.NewDispatcher(registry, logger)
	wsHandler := realtime.NewWSHandler(registry, dbConn, logger, cfg.WS.AuthTimeout, cfg.WS.WriteTimeout)

	// Optional Telegram escalation for high-priority alerts
	var escalator api.Escalator
	if cfg.Telegram.Enabled {
		escalator = providers.NewTelegramEscalator(cfg, logger)
		logger.Infof("Telegram escalation enabled for chat %d", cfg.Telegram.ChatID)
	}

	// Optional external alert feed
	if cfg.Kafka.Enabled {
		consumer := kafka.NewConsumer(cfg, dbConn, dispatcher, logger)
		defer consumer.Close()
		go consumer.Start(ctx)
	}

	// Start API server
	handler := api.NewHandler(dbConn, dbConn, dispatcher, escalator, logger)
	router := api.NewRouter(handler, wsHandler.Handle, logger, cfg)
	go func() {
		logger.Infof("Starting API server on %s", cfg.API.Port)
		if err := router.Run(cfg.API.Port); err != nil {
			logger.Errorf("API server failed: %v", err)
			cancel()
		}
	}()

	// Graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	select {
	case <-c:
	case <-ctx.Done():
	}
	logger.Infof("Shutting down...")
	cancel()
}
