package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"campus-maintenance-system/pkg/auth"
	"campus-maintenance-system/pkg/config"
	"campus-maintenance-system/pkg/database"
	"campus-maintenance-system/pkg/middleware"
	"campus-maintenance-system/pkg/response"
	"campus-maintenance-system/pkg/users"
)

func main() {
	cfg := config.Load()
	middleware.ServiceName = "auth-service"
	middleware.RegisterMetrics()
	response.ShowErrorDetails = !cfg.IsProduction()

	var (
		repo users.Repository
		db   pinger
	)
	if cfg.StoreDriver == "memory" {
		log.Println("[WARN] Using in-memory user store, data is lost on restart")
		repo = users.NewMemoryRepository()
	} else {
		gdb, err := database.ConnectPostgres(cfg.PostgresDSN)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		gormRepo := users.NewGormRepository(gdb)

		log.Println("[INFO] Running auto migration...")
		if err := gormRepo.Migrate(); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		log.Println("[OK] Migration success")
		repo, db = gormRepo, gormRepo
	}

	h := &authHandler{
		users:  repo,
		tokens: auth.NewTokenManager(cfg.JWTSecret, cfg.JWTDuration),
		db:     db,
	}

	port := config.GetEnv("AUTH_PORT", "8081")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           middleware.CORS(cfg.CORSOrigins)(h.routes()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("[INFO] Auth Service running on port %s", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("[WARN] Graceful shutdown failed: %v", err)
	}
	log.Println("[INFO] Auth Service stopped")
}
