package main

import (
	"context"
	"log"
	"time"

	"github.com/mind-engage/mindengage-grading/internal/app"
	"github.com/mind-engage/mindengage-grading/internal/config"
	"github.com/mind-engage/mindengage-grading/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.RedisAddr == "" {
		log.Fatal("REDIS_ADDR is required for the grading worker")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	svc, err := app.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("startup: %v", err)
	}
	defer svc.Close()

	srv := &worker.Server{Store: svc.Store, Grader: svc.Grader, Concurrency: cfg.GradeConcurrency}
	log.Printf("grading worker on redis %s (db=%s, sandbox=%v)", cfg.RedisAddr, cfg.DBDriver, cfg.Sandbox.Enabled)
	if err := worker.Run(cfg.RedisAddr, srv, cfg.GradeConcurrency); err != nil {
		log.Fatalf("worker: %v", err)
	}
}
