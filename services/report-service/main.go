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
	"campus-maintenance-system/pkg/queue"
	"campus-maintenance-system/pkg/response"
	"campus-maintenance-system/pkg/storage"
	"campus-maintenance-system/pkg/users"
	"campus-maintenance-system/services/report-service/maintenance"
	"campus-maintenance-system/services/report-service/store"
	"campus-maintenance-system/services/report-service/store/memstore"
	"campus-maintenance-system/services/report-service/store/mongostore"

	"go.mongodb.org/mongo-driver/mongo"
)

type mongoPinger struct{ db *mongo.Database }

func (p mongoPinger) Ping(ctx context.Context) error {
	return p.db.Client().Ping(ctx, nil)
}

func main() {
	cfg := config.Load()
	middleware.ServiceName = "report-service"
	middleware.RegisterMetrics()
	response.ShowErrorDetails = !cfg.IsProduction()

	var (
		stores   store.Stores
		userRepo users.Repository
		db       pinger
	)
	if cfg.StoreDriver == "memory" {
		log.Println("[WARN] Using in-memory stores, data is lost on restart")
		stores = memstore.New().Stores()
		userRepo = users.NewMemoryRepository()
	} else {
		mdb, err := database.ConnectMongo(cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			log.Fatalf("[ERROR] Failed to connect to MongoDB: %v", err)
		}
		defer database.DisconnectMongo(mdb)

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := mongostore.EnsureIndexes(ctx, mdb); err != nil {
			log.Fatalf("[ERROR] Failed to create indexes: %v", err)
		}
		cancel()
		if cfg.MongoTransactions {
			log.Println("[INFO] Multi-document transactions enabled")
		}
		stores = mongostore.New(mdb, cfg.MongoTransactions)
		db = mongoPinger{mdb}

		gdb, err := database.ConnectPostgres(cfg.PostgresDSN)
		if err != nil {
			log.Fatalf("[ERROR] Failed to connect to user database: %v", err)
		}
		userRepo = users.NewGormRepository(gdb)
	}

	var publisher maintenance.EventPublisher = queue.NoopPublisher{}
	conn, ch, err := queue.ConnectRabbitMQ(cfg.RabbitMQURI)
	if err != nil {
		log.Printf("[WARN] RabbitMQ unavailable, events will not be published: %v", err)
	} else {
		defer conn.Close()
		defer ch.Close()
		if err := queue.DeclareExchange(ch, cfg.Exchange); err != nil {
			log.Fatalf("[ERROR] Failed to declare exchange: %v", err)
		}
		publisher = queue.NewPublisher(ch, cfg.Exchange)
		log.Println("[OK] Connected to RabbitMQ")
	}

	photos, err := storage.New(context.Background(), cfg)
	if err != nil {
		log.Printf("[WARN] Photo storage unavailable, uploads disabled: %v", err)
	}

	var limiter middleware.Limiter = middleware.NewMemoryLimiter(cfg.RateLimitMax, cfg.RateLimitWindow)
	if cfg.RateLimitBackend == "redis" {
		rdb, err := database.ConnectRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			log.Printf("[WARN] Redis unavailable, falling back to in-memory rate limit: %v", err)
		} else {
			defer rdb.Close()
			limiter = middleware.NewRedisLimiter(rdb, cfg.RateLimitMax, cfg.RateLimitWindow)
		}
	}

	a := &api{
		svc: maintenance.New(maintenance.Deps{
			Stores: stores,
			Users:  maintenance.NewUserDirectory(userRepo),
			Events: publisher,
			Photos: photos,
		}),
		photos:  photos,
		tokens:  auth.NewTokenManager(cfg.JWTSecret, cfg.JWTDuration),
		limiter: limiter,
		origins: cfg.CORSOrigins,
		db:      db,
	}

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           a.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("[INFO] Report Service running on port %s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("[ERROR] Server failed: %v", err)
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
	log.Println("[INFO] Report Service stopped")
}
