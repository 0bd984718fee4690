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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/example/marketplace-orders/internal/api"
	"github.com/example/marketplace-orders/internal/auth"
	"github.com/example/marketplace-orders/internal/broadcast"
	"github.com/example/marketplace-orders/internal/catalog"
	"github.com/example/marketplace-orders/internal/command"
	"github.com/example/marketplace-orders/internal/config"
	"github.com/example/marketplace-orders/internal/delivery"
	"github.com/example/marketplace-orders/internal/infrastructure/kafka"
	"github.com/example/marketplace-orders/internal/infrastructure/rabbitmq"
	"github.com/example/marketplace-orders/internal/infrastructure/store"
	"github.com/example/marketplace-orders/internal/metrics"
	"github.com/example/marketplace-orders/internal/query"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(getEnv("ENV_FILE", ".env"))
	if err != nil {
		log.Fatalf("[API] Invalid configuration: %v", err)
	}

	log.Println("[API] ========================================")
	log.Println("[API] Marketplace Orders")
	log.Println("[API] ========================================")
	log.Printf("[API] Instance: %s", cfg.InstanceID)
	log.Printf("[API] Kafka: %v (topic %s)", cfg.KafkaBrokers, cfg.KafkaTopic)
	log.Printf("[API] Strict status transitions: %v", cfg.StrictStatus)
	log.Printf("[API] Operational window: %s", cfg.Window)

	// Initialize PostgreSQL connection
	db, err := store.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("[API] Failed to connect to PostgreSQL: %v", err)
	}
	defer db.Close()
	log.Println("[API] Connected to PostgreSQL")

	if cfg.RunMigrations {
		if err := store.ApplyMigrations(ctx, db); err != nil {
			log.Fatalf("[API] Migrations failed: %v", err)
		}
	}

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// Broadcast: local hub, optionally fanned out through Kafka
	hub := broadcast.NewHub(m)
	var rooms broadcast.Broadcaster = hub
	var relay *kafka.Consumer
	var bus *broadcast.BusBroadcaster
	if len(cfg.KafkaBrokers) > 0 {
		producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer producer.Close()
		bus = broadcast.NewBusBroadcaster(producer, hub, cfg.InstanceID)
		rooms = bus

		relay = kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, "orders-relay-"+cfg.InstanceID)
		defer relay.Close()
	} else {
		log.Println("[API] KAFKA_BROKERS not set, broadcasting to local clients only")
	}

	var sink broadcast.NotificationSink
	if cfg.AMQPURL != "" {
		conn, err := rabbitmq.Connect(cfg.AMQPURL)
		if err != nil {
			log.Fatalf("[API] Failed to connect to RabbitMQ: %v", err)
		}
		defer conn.Close()
		publisher, err := rabbitmq.NewNotificationPublisher(conn, cfg.NotificationsExchange)
		if err != nil {
			log.Fatalf("[API] Failed to declare notification exchange: %v", err)
		}
		defer publisher.Close()
		sink = publisher
		log.Printf("[API] Forwarding user notifications to exchange %s", cfg.NotificationsExchange)
	}

	// Initialize handlers
	orders := store.NewPostgresOrderStore(db)
	cmdHandler := command.NewHandler(
		orders,
		command.NewValidator(catalog.NewPostgresGateway(db), cfg.EnforceOptions),
		store.NewPostgresDeliveryCompanies(db),
		broadcast.NewOrderEvents(rooms, sink),
		cfg.StrictStatus,
	).WithMetrics(m)
	queryHandler := query.NewHandler(orders, cfg.Window)
	coordinator := delivery.NewCoordinator(cmdHandler, queryHandler)

	jwtService := auth.NewJWTService(cfg.JWTSecret, cfg.JWTAccessTTL)
	router := api.NewRouter(api.RouterConfig{
		Handlers:   api.NewHandlers(cmdHandler, queryHandler, coordinator),
		WebSocket:  api.NewWebSocketHandler(hub, queryHandler, cfg.AllowedOrigins),
		JWTService: jwtService,
		Metrics:    m,
		Gatherer:   reg,
	})

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Printf("[API] Server started on %s", cfg.HTTPAddr)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if relay != nil {
		g.Go(func() error {
			log.Println("[API] Starting Kafka relay...")
			err := relay.Consume(gctx, bus.HandleMessage)
			if gctx.Err() != nil {
				return nil
			}
			return err
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Println("[API] Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatalf("[API] Exited with error: %v", err)
	}
	log.Println("[API] Stopped")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
