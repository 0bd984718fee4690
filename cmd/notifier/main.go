package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/example/marketplace-orders/internal/config"
	"github.com/example/marketplace-orders/internal/infrastructure/kafka"
	"github.com/example/marketplace-orders/internal/infrastructure/rabbitmq"
	"github.com/example/marketplace-orders/internal/notification"
)

// The notifier relays customer notifications from the order event bus to
// the RabbitMQ push exchange. Run it instead of setting AMQP_URL on the API
// instances, otherwise each notification is pushed twice.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadNotifier(getEnv("ENV_FILE", ".env"))
	if err != nil {
		log.Fatalf("[Notifier] Invalid configuration: %v", err)
	}

	log.Println("[Notifier] ========================================")
	log.Println("[Notifier] Marketplace Orders - Notification Relay")
	log.Println("[Notifier] ========================================")
	log.Printf("[Notifier] Kafka: %v", cfg.KafkaBrokers)
	log.Printf("[Notifier] Topic: %s", cfg.KafkaTopic)
	log.Printf("[Notifier] Group: %s", cfg.GroupID)
	log.Printf("[Notifier] Exchange: %s", cfg.NotificationsExchange)

	conn, err := rabbitmq.Connect(cfg.AMQPURL)
	if err != nil {
		log.Fatalf("[Notifier] Failed to connect to RabbitMQ: %v", err)
	}
	defer conn.Close()

	publisher, err := rabbitmq.NewNotificationPublisher(conn, cfg.NotificationsExchange)
	if err != nil {
		log.Fatalf("[Notifier] Failed to declare exchange: %v", err)
	}
	defer publisher.Close()
	log.Println("[Notifier] Connected to RabbitMQ")

	handler := notification.NewHandler(publisher)

	consumer := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.GroupID)
	defer consumer.Close()

	log.Println("[Notifier] Starting event consumer...")
	if err := consumer.Consume(ctx, handler.HandleEvent); err != nil && ctx.Err() == nil {
		log.Printf("[Notifier] Consumer error: %v", err)
	}
	log.Println("[Notifier] Shutting down...")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
