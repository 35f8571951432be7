package main

import (
	"context"

	"github.com/tim-schilling/publicworks/internal/config"
	"github.com/tim-schilling/publicworks/internal/db"
	"github.com/tim-schilling/publicworks/internal/debug"
	"github.com/tim-schilling/publicworks/internal/web"
)

func main() {
	log := debug.Logger()

	if _, err := config.LoadEnv(); err != nil {
		log.Fatalf("Failed to load environment files: %v", err)
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if err := debug.SetLevel(cfg.LogLevel); err != nil {
		log.Fatalf("Invalid log level: %v", err)
	}

	log.Info("=== Public Works Dashboard API ===")
	log.Infof("Server: http://%s", cfg.Address())
	log.Infof("Database: %s (%s)", cfg.Database.Name, cfg.Database.Driver)

	ctx := context.Background()
	conn, err := db.NewConnection(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	log.Info("Database connected successfully")

	log.Infof("Features enabled: export=%v metrics=%v", cfg.ExportEnabled, cfg.MetricsEnabled)

	if err := web.NewServer(cfg, conn.Store()).Start(ctx); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
