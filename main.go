package main

import (
	"context"
	"log"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"shrimp/adapters/inference"
	"shrimp/adapters/postgres"
	"shrimp/app"
	"shrimp/domain/schema"
	"shrimp/internal/config"
	"shrimp/ui"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := initDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	sch, err := schema.Load(cfg.Schema.File)
	if err != nil {
		log.Fatalf("Failed to load schema artifact: %v", err)
	}
	log.Printf("[main] schema artifact %s: %d input columns, %d output columns, %d clients",
		sch.Version, sch.InputWidth(), sch.OutputWidth(), len(sch.Clients))

	store := postgres.NewTransactionStore(db)
	uploads := postgres.NewUploadStore(db)
	model := inference.NewClient(cfg.Model.URL, cfg.Model.Timeout)

	predictionService := app.NewPredictionService(store, model, sch)
	uploadService := app.NewUploadService(uploads, predictionService)
	historyService := app.NewHistoryService(store)

	// Surface client drift at startup instead of on the first prediction.
	if err := predictionService.VerifyClientSnapshot(context.Background()); err != nil {
		log.Fatalf("Client snapshot verification failed: %v", err)
	}

	httpApp := ui.NewApp(predictionService, uploadService, historyService)
	if err := httpApp.Start(cfg.Server.Port); err != nil {
		log.Fatalf("HTTP server stopped: %v", err)
	}
}

func initDatabase(cfg *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)

	if err := postgres.NewMigrator(db).Up(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
