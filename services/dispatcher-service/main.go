package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"campus-maintenance-system/pkg/config"
	"campus-maintenance-system/pkg/events"
	"campus-maintenance-system/pkg/queue"
)

func main() {
	cfg := config.Load()

	conn, ch, err := queue.ConnectRabbitMQ(cfg.RabbitMQURI)
	if err != nil {
		log.Fatalf("[ERROR] Failed to connect to RabbitMQ: %v", err)
	}
	defer conn.Close()
	defer ch.Close()
	log.Println("[OK] Dispatcher Service connected to RabbitMQ")

	queueName := config.GetEnv("DISPATCH_QUEUE", "report_dispatch")
	msgs, err := queue.ConsumeMessages(ch, cfg.Exchange, queueName, events.ReportCreated)
	if err != nil {
		log.Fatalf("[ERROR] Failed to consume queue: %v", err)
	}

	go func() {
		for d := range msgs {
			r, err := route(d.Body)
			if err != nil {
				log.Printf("[WARN] Skipping message: %v", err)
				continue
			}
			logRouting(r)
		}
	}()

	log.Printf("[INFO] Waiting for reports in queue '%s'", queueName)
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Println("[INFO] Dispatcher Service stopped")
}
