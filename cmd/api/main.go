package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"gitworth/internal/app"
	"gitworth/internal/config"
	"gitworth/internal/githubapi"
	progressmemory "gitworth/internal/progress/memory"
	"gitworth/internal/progress/pgnotify"
	queuepg "gitworth/internal/queue/pg"
	"gitworth/internal/server"
	"gitworth/internal/server/handler"
	"gitworth/internal/service/appraise"
	storepg "gitworth/internal/store/postgres"
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

	// Worker progress arrives over Postgres NOTIFY and fans out to websocket
	// subscribers through the in-process hub.
	hub := progressmemory.New()
	listener := pgnotify.NewListener(pool, pgnotify.DefaultChannel, hub)
	go func() {
		if err := listener.Run(ctx); err != nil {
			log.Printf("progress listener stopped: %v", err)
		}
	}()

	svc := appraise.New(projects, cacheStore, jobQueue, appraise.Config{SizeLimit: cfg.SizeLimit})
	h := handler.New(svc, hub, projects, githubapi.New(cfg.GitHubToken), cacheStore)
	srv := server.New(cfg.Port, server.NewMux(h))

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}()

	if err := srv.Start(); err != nil {
		log.Fatalf("server: %v", err)
	}
}
