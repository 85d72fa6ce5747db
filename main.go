// main.go
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"tutor-booking/cmd"
	"tutor-booking/internal/data/repository"
	"tutor-booking/internal/wire"
	"tutor-booking/pkg/database"
	"tutor-booking/pkg/gateway"
	"tutor-booking/pkg/utils"

	"go.uber.org/zap"
)

func main() {
	// Load config
	config, err := utils.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger, err := utils.InitLogger(config.App.LogPath, config.App.Debug)
	if err != nil {
		log.Printf("Failed to init logger: %v. Using standard log.", err)
		logger, _ = zap.NewProduction()
	}
	defer logger.Sync()

	logger.Info("Starting application",
		zap.String("app", config.App.Name),
		zap.String("port", config.App.Port),
		zap.Bool("debug", config.App.Debug),
	)

	// Connect to database
	db, err := database.InitDB(config.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	logger.Info("Database connected successfully")

	// Initialize all repositories
	repos := repository.NewRepository(db, logger)

	// Payment gateway client
	gw := gateway.NewClient(gateway.Config{
		BaseURL:     config.Gateway.BaseURL,
		APIKey:      config.Gateway.APIKey,
		ChecksumKey: config.Gateway.ChecksumKey,
		Timeout:     config.Gateway.Timeout(),
	}, logger)

	// Wire all dependencies
	app := wire.Wiring(repos, gw, config, logger)

	// Run the expiry sweep until shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go app.Scheduler.Start(ctx)

	// Start server
	logger.Info("Starting HTTP server", zap.String("port", config.App.Port))

	cmd.APIServer(app.Router, config.App.Port)
}
