package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"

	"gitworth/internal/analyzer/blame"
	"gitworth/internal/app"
	"gitworth/internal/config"
	"gitworth/internal/gitlocal"
	"gitworth/internal/progress/pgnotify"
	queuepg "gitworth/internal/queue/pg"
	storepg "gitworth/internal/store/postgres"
	"gitworth/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("connect to database: %v", err)
	}
	defer pool.Close()

	projects, err := storepg.New(ctx, pool)
	if err != nil {
		log.Fatalf("init project store: %v", err)
	}
	jobQueue, err := queuepg.New(ctx, pool, queuepg.Config{})
	if err != nil {
		log.Fatalf("init job queue: %v", err)
	}
	cacheStore, err := app.BuildCache(cfg)
	if err != nil {
		log.Fatalf("init cache: %v", err)
	}
	workspace, err := gitlocal.NewWorkspace(cfg.ReposRoot)
	if err != nil {
		log.Fatalf("init workspace: %v", err)
	}

	publisher := pgnotify.NewPublisher(pool, pgnotify.DefaultChannel)
	pipeline := worker.NewPipeline(projects, workspace, blame.New(), cacheStore, publisher, cfg.TTL)
	consumer := worker.NewConsumer(jobQueue, pipeline, cfg.WorkerSlots)

	log.Printf("Starting %d worker slots (repos root %s)", cfg.WorkerSlots, cfg.ReposRoot)
	if err := consumer.Run(ctx); err != nil {
		log.Fatalf("worker pool: %v", err)
	}
	log.Print("Worker pool drained, exiting")
}
