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
	"campus-maintenance-system/pkg/events"
	"campus-maintenance-system/pkg/middleware"
	"campus-maintenance-system/pkg/queue"
)

func main() {
	cfg := config.Load()
	middleware.ServiceName = "notification-service"
	middleware.RegisterMetrics()

	var presence Presence
	rdb, err := database.ConnectRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Printf("[WARN] Redis unavailable, presence tracking disabled: %v", err)
	} else {
		defer rdb.Close()
		presence = NewRedisPresence(rdb, config.GetDuration("PRESENCE_TTL", 2*time.Minute))
	}

	hub := NewHub(presence)

	conn, ch, err := queue.ConnectRabbitMQ(cfg.RabbitMQURI)
	if err != nil {
		log.Fatalf("[ERROR] Failed to connect to RabbitMQ: %v", err)
	}
	defer conn.Close()
	defer ch.Close()
	log.Println("[OK] Connected to RabbitMQ")

	msgs, err := queue.ConsumeMessages(ch, cfg.Exchange, "notification_push",
		events.NotificationCreated, events.MessageSent)
	if err != nil {
		log.Fatalf("[ERROR] Failed to consume events: %v", err)
	}
	go consume(hub, msgs)
	log.Println("[INFO] Listening for notification and message events")

	s := newServer(hub, auth.NewTokenManager(cfg.JWTSecret, cfg.JWTDuration), cfg.CORSOrigins)
	port := config.GetEnv("NOTIFICATION_PORT", "8084")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           middleware.CORS(cfg.CORSOrigins)(s.routes()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("[INFO] Notification Service running on port %s", port)
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
	log.Println("[INFO] Notification Service stopped")
}
