/**
 * @description
 * This is the main entry point for the momo-service. It is responsible for
 * initializing all components of the service: configuration, the transfer
 * ledger (in-memory by default, PostgreSQL when a database is configured),
 * the disbursement API client, the message broker producer, the core
 * application service, and the HTTP server. It wires everything together and
 * starts the service.
 *
 * @dependencies
 * - log, net/http: Standard Go libraries for logging and HTTP server functionality.
 * - github.com/jackc/pgx/v5: PostgreSQL driver.
 * - github.com/joho/godotenv: For loading .env files during local development.
 * - internal/api, internal/app, internal/config, internal/store: Internal packages for the service.
 * - pkg/momoclient: Client for the provider's disbursement API.
 * - pkg/rabbitmq: Client for RabbitMQ.
 */

package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/susupay/momo-service/internal/api"
	"github.com/susupay/momo-service/internal/app"
	"github.com/susupay/momo-service/internal/config"
	"github.com/susupay/momo-service/internal/store"
	"github.com/susupay/momo-service/pkg/momoclient"
	"github.com/susupay/momo-service/pkg/rabbitmq"
)

func main() {
	// Load .env for local development; in deployed environments the variables
	// come from the platform.
	if err := godotenv.Load(); err != nil {
		log.Println("level=info component=bootstrap msg=\"no .env file found; relying on environment\"")
	}

	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"config load failed\" err=%v", err)
	}
	if strings.TrimSpace(cfg.MomoConsumerKey) == "" || strings.TrimSpace(cfg.MomoConsumerSecret) == "" || strings.TrimSpace(cfg.MomoSubscriptionKey) == "" {
		log.Println("level=warn component=bootstrap msg=\"provider credentials incomplete; real provider calls will fail\" env=MOMO_CONSUMER_KEY,MOMO_CONSUMER_SECRET,MOMO_SUBSCRIPTION_KEY")
	}

	log.Printf("level=info component=bootstrap msg=\"starting momo-service\" port=%s environment=%s platform_phone=%s", cfg.ServerPort, cfg.MomoTargetEnvironment, cfg.PlatformPhone)

	// The ledger is in-memory unless a database is configured, in which case
	// transfer records survive restarts.
	var repository store.Repository = store.NewMemoryRepository()
	if strings.TrimSpace(cfg.DatabaseURL) != "" {
		dbpool, poolErr := pgxpool.New(context.Background(), cfg.DatabaseURL)
		if poolErr != nil {
			log.Fatalf("level=fatal component=bootstrap msg=\"database connection failed\" err=%v", poolErr)
		}
		defer dbpool.Close()
		repository = store.NewPostgresRepository(dbpool)
		log.Println("level=info component=bootstrap msg=\"database connected; using postgres ledger\"")
	} else {
		log.Println("level=info component=bootstrap msg=\"no database configured; using in-memory ledger\"")
	}

	// Initialize the RabbitMQ producer to publish transfer status events.
	// A missing or unreachable broker degrades to a no-op publisher.
	var eventProducer rabbitmq.Publisher = &rabbitmq.EventProducerFallback{}
	if strings.TrimSpace(cfg.RabbitMQURL) != "" {
		producer, rmqErr := rabbitmq.NewEventProducer(cfg.RabbitMQURL, cfg.TransferEventExchange)
		if rmqErr != nil {
			log.Printf("level=warn component=bootstrap msg=\"rabbitmq producer unavailable; using fallback\" err=%v", rmqErr)
		} else {
			defer producer.Close()
			eventProducer = producer
			log.Println("level=info component=bootstrap msg=\"rabbitmq producer connected\"")
		}
	}

	// Initialize the client for the provider's disbursement API.
	momoClient := momoclient.NewClient(
		cfg.MomoBaseURL,
		cfg.MomoConsumerKey,
		cfg.MomoConsumerSecret,
		cfg.MomoSubscriptionKey,
		cfg.MomoTargetEnvironment,
	)

	// Initialize the core application service with its dependencies.
	transferService := app.NewService(repository, momoClient, eventProducer, cfg.PlatformPhone, cfg.MomoCurrency)

	// Initialize the API handlers and router.
	transferHandlers := api.NewTransferHandlers(transferService, cfg.MomoTargetEnvironment)
	router := api.TransferRoutes(transferHandlers)

	server := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}

	go func() {
		log.Printf("level=info component=http msg=\"server listening\" addr=%s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("level=fatal component=http msg=\"server stopped unexpectedly\" err=%v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Println("level=info component=http msg=\"shutdown started\"")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("level=error component=http msg=\"shutdown failed\" err=%v", err)
	}

	log.Println("level=info component=http msg=\"shutdown complete\"")
}
