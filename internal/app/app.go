// Package app assembles the grading engine and its backing services from config.
package app

import (
	"context"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/mind-engage/mindengage-grading/internal/cache"
	"github.com/mind-engage/mindengage-grading/internal/config"
	"github.com/mind-engage/mindengage-grading/internal/db"
	"github.com/mind-engage/mindengage-grading/internal/grading"
	"github.com/mind-engage/mindengage-grading/internal/results"
	"github.com/mind-engage/mindengage-grading/internal/sandbox"
)

// Services holds what the server and the worker share.
type Services struct {
	DB     *sqlx.DB
	Store  *results.Store
	Grader grading.Grader
	Redis  *redis.Client // nil when RedisAddr is empty

	closers []func() error
}

func (s *Services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			log.Printf("close: %v", err)
		}
	}
}

// Ready pings the database and, when configured, Redis.
func (s *Services) Ready(ctx context.Context) error {
	if err := s.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("db: %w", err)
	}
	if s.Redis != nil {
		if err := s.Redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

func Open(ctx context.Context, cfg config.Config) (*Services, error) {
	s := &Services{}
	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}
	s.DB = dbh
	s.closers = append(s.closers, dbh.Close)
	s.Store = results.NewStore(dbh)

	grader, err := NewGrader(ctx, cfg, s)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.Grader = grader
	return s, nil
}

// NewGrader builds the engine, with the docker sandbox when enabled and the
// Redis result cache when an address is configured. s may be nil.
func NewGrader(ctx context.Context, cfg config.Config, s *Services) (grading.Grader, error) {
	opts := []grading.Option{
		grading.WithConcurrency(cfg.GradeConcurrency),
		grading.WithSandboxTimeout(cfg.Sandbox.Timeout),
	}
	if cfg.Sandbox.Enabled {
		d, err := sandbox.NewDocker(sandbox.Options{
			Images:      cfg.Sandbox.Images,
			MemoryBytes: cfg.Sandbox.Memory,
			CPUs:        cfg.Sandbox.CPUs,
		})
		if err != nil {
			return nil, err
		}
		if err := d.Ping(ctx); err != nil {
			log.Printf("sandbox: %v (code questions will fail until docker is reachable)", err)
		}
		opts = append(opts, grading.WithSandbox(d))
		if s != nil {
			s.closers = append(s.closers, d.Close)
		}
	}
	var g grading.Grader = grading.NewEngine(opts...)

	if cfg.RedisAddr != "" && s != nil {
		s.Redis = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		s.closers = append(s.closers, s.Redis.Close)
		g = cache.NewCachedGrader(g, s.Redis, cfg.CacheTTL)
	}
	return g, nil
}
