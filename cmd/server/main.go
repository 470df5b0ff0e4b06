package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wallet-performance/internal/api"
	"github.com/wallet-performance/internal/app"
	"github.com/wallet-performance/internal/config"
	"github.com/wallet-performance/internal/logging"
)

func main() {
	fmt.Println("Wallet Performance API Server")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logLevel, err := logging.ParseLogLevel(cfg.Logging.Level)
	if err != nil {
		log.Printf("%v, using info", err)
		logLevel = logging.LevelInfo
	}
	logFormat, err := logging.ParseLogFormat(cfg.Logging.Format)
	if err != nil {
		log.Printf("%v, using text", err)
		logFormat = logging.FormatText
	}
	logging.InitGlobalLogger(logLevel, logFormat)

	logger := logging.GetGlobalLogger()
	logger.WithFields(map[string]interface{}{
		"level":  logLevel,
		"format": logFormat,
	}).Info("Structured logging initialized")

	logger.Info("Initializing services...")
	services, err := app.Build(cfg, app.Options{})
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize services")
	}
	defer services.Close()

	logger.WithFields(map[string]interface{}{
		"holdingsSource":   cfg.Solana.HoldingsSource,
		"priceInterval":    cfg.Pacing.PriceInterval.String(),
		"metadataInterval": cfg.Pacing.MetadataInterval.String(),
		"lookback":         cfg.Window.Lookback.String(),
	}).Info("Services initialized")

	// A full wallet run paces every price call, so writes get a generous timeout
	serverConfig := &api.ServerConfig{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    5 * time.Minute,
		IdleTimeout:     60 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		RequestsPerIP:   cfg.Server.RequestsPerIP,
		Burst:           1,
	}

	server := api.NewServer(serverConfig, services.Performance, services.Holdings, services.Diagnostics)

	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	logger.WithFields(map[string]interface{}{
		"host": cfg.Server.Host,
		"port": cfg.Server.Port,
	}).Info("Server started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), serverConfig.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	logger.Info("Server exited")
}
