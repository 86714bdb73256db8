package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/hibiken/asynq"

	api "github.com/mind-engage/mindengage-grading/internal/api/http"
	"github.com/mind-engage/mindengage-grading/internal/app"
	auth "github.com/mind-engage/mindengage-grading/internal/auth/middleware"
	"github.com/mind-engage/mindengage-grading/internal/config"
	"github.com/mind-engage/mindengage-grading/internal/omr"
	"github.com/mind-engage/mindengage-grading/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	svc, err := app.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("startup: %v", err)
	}
	defer svc.Close()

	bs, err := storage.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("blob store: %v", err)
	}

	deps := api.Deps{
		Grader:      svc.Grader,
		Concurrency: cfg.GradeConcurrency,
		Store:       svc.Store,
		Blobs:       bs,
	}
	if cfg.RedisAddr != "" {
		q := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
		defer q.Close()
		deps.Queue = q
	}
	if cfg.OMRBaseURL != "" {
		deps.OMR = omr.New(cfg.OMRBaseURL, 0)
	}

	authSvc := auth.NewAuthService(cfg.HMACSecret)

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(2 * time.Minute))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins(),
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if cfg.EnableLocalAuth {
		r.Post("/auth/login", auth.LoginHandler(authSvc, auth.Logins{
			AdminUser:     cfg.AdminUser,
			AdminPassHash: cfg.AdminPassHash,
			DevLogins:     cfg.Mode == config.ModeOffline,
		}))
	}
	api.Health(r, svc.Ready)

	// Protected API (JWT → role in context → RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(authSvc))
		api.Mount(pr, deps)
	})

	log.Printf("listening on %s (mode=%s, db=%s, blobs=%s, sandbox=%v)",
		cfg.HTTPAddr, cfg.Mode, cfg.DBDriver, cfg.BlobDriver, cfg.Sandbox.Enabled)
	log.Fatal(http.ListenAndServe(cfg.HTTPAddr, r))
}
