/**
 * @description
 * This is the main entry point for the tip-service. It is responsible for
 * initializing all components of the service, including configuration, database
 * connection, external API clients, the message broker, the notification hub,
 * repositories, the core application service, and the HTTP server. It wires
 * everything together and starts the service.
 *
 * @dependencies
 * - log, net/http: Standard Go libraries for logging and HTTP server functionality.
 * - github.com/jackc/pgx/v5: PostgreSQL driver.
 * - internal/api, internal/app, internal/config, internal/notify, internal/store: Internal packages.
 * - pkg/razorpay, pkg/streamlabs, pkg/rabbitmq: Clients for external services.
 */

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/tippay/tip-service/internal/api"
	"github.com/tippay/tip-service/internal/app"
	"github.com/tippay/tip-service/internal/config"
	"github.com/tippay/tip-service/internal/notify"
	"github.com/tippay/tip-service/internal/store"
	tiprabbit "github.com/tippay/tip-service/pkg/rabbitmq"
	"github.com/tippay/tip-service/pkg/razorpay"
	"github.com/tippay/tip-service/pkg/streamlabs"
)

func main() {
	// Load application configuration from environment variables.
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"config load failed\" err=%v", err)
	}
	if strings.TrimSpace(cfg.GatewayWebhookSecret) == "" {
		log.Fatalf("level=fatal component=bootstrap msg=\"webhook secret must be configured\" env=GATEWAY_WEBHOOK_SECRET")
	}
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		log.Fatalf("level=fatal component=bootstrap msg=\"jwt secret must be configured\" env=JWT_SECRET")
	}

	log.Printf("level=info component=bootstrap msg=\"starting tip-service\" port=%s", cfg.ServerPort)

	// Establish a connection pool to the PostgreSQL database.
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"database url parse failed\" err=%v", err)
	}

	poolConfig.MaxConns = 50
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = 30 * time.Minute
	poolConfig.MaxConnIdleTime = 5 * time.Minute

	// Disable prepared statement caching to prevent conflicts behind poolers.
	poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	dbpool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"database connection failed\" err=%v", err)
	}
	defer dbpool.Close()
	log.Println("level=info component=bootstrap msg=\"database connected\"")

	// Initialize the RabbitMQ producer. A missing broker degrades to direct
	// in-process dispatch of payout and alert work.
	var producer tiprabbit.Publisher
	rabbitProducer, err := tiprabbit.NewEventProducer(cfg.RabbitMQURL)
	if err != nil {
		log.Printf("level=warn component=bootstrap msg=\"rabbitmq producer unavailable; using direct dispatch\" err=%v", err)
	} else {
		producer = rabbitProducer
		defer rabbitProducer.Close()
		log.Println("level=info component=bootstrap msg=\"rabbitmq producer connected\"")
	}

	// Initialize the clients for the payment gateway and the alert service.
	gatewayClient := razorpay.NewClient(cfg.GatewayAPIBaseURL, cfg.GatewayKeyID, cfg.GatewayKeySecret, cfg.GatewayWebhookSecret)
	alertClient := streamlabs.NewClient(cfg.AlertServiceBaseURL)

	var redisClient *redis.Client
	if cfg.OrderRateLimitPerMin > 0 {
		if strings.TrimSpace(cfg.RedisURL) == "" {
			log.Println("level=warn component=bootstrap msg=\"redis url missing; order rate limiting disabled\" env=REDIS_URL")
		} else {
			redisOptions, parseErr := redis.ParseURL(cfg.RedisURL)
			if parseErr != nil {
				log.Printf("level=warn component=bootstrap msg=\"redis url parse failed; order rate limiting disabled\" err=%v", parseErr)
			} else {
				redisClient = redis.NewClient(redisOptions)
				pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancelPing()
				if pingErr := redisClient.Ping(pingCtx).Err(); pingErr != nil {
					log.Printf("level=warn component=bootstrap msg=\"redis ping failed; order rate limiting disabled\" err=%v", pingErr)
					redisClient.Close()
					redisClient = nil
				} else {
					defer redisClient.Close()
					log.Println("level=info component=bootstrap msg=\"redis connected\"")
				}
			}
		}
	}

	// Initialize the data access layer, the notification hub, and the core
	// application service.
	repository := store.NewPostgresRepository(dbpool)
	hub := notify.NewHub()

	tipService := app.NewService(
		repository,
		gatewayClient,
		alertClient,
		hub,
		producer,
		cfg.GatewayKeyID,
		cfg.TipEventExchange,
		cfg.CommissionBps,
	)
	if redisClient != nil {
		tipService.SetRateLimiter(
			app.NewRedisRateLimiter(redisClient, cfg.RedisRateLimitPrefix),
			cfg.OrderRateLimitPerMin,
		)
	}

	// Wire up the consumer for settled-tip events when the broker is available.
	if producer != nil {
		rabbitConsumer, consumerErr := tiprabbit.NewConsumer(cfg.RabbitMQURL)
		if consumerErr != nil {
			log.Printf("level=warn component=bootstrap msg=\"rabbitmq consumer unavailable\" err=%v", consumerErr)
		} else {
			defer rabbitConsumer.Close()
			bindings := map[string]func([]byte) bool{
				"tip.completed": tipService.HandleTipCompletedMessage,
			}
			if err := rabbitConsumer.ConsumeWithBindings(cfg.TipEventExchange, cfg.TipEventQueue, bindings); err != nil {
				log.Fatalf("level=fatal component=bootstrap msg=\"tip consumer start failed\" err=%v", err)
			}
			log.Println("level=info component=bootstrap msg=\"tip consumer started\"")
		}
	}

	// Initialize the API handlers and set up the HTTP router.
	tipHandlers := api.NewTipHandlers(tipService, hub, gatewayClient)
	router := api.TipRoutes(tipHandlers, cfg.JWTSecret, splitOrigins(cfg.AllowedOrigins))

	serverAddr := fmt.Sprintf(":%s", cfg.ServerPort)
	log.Printf("level=info component=http msg=\"server listening\" addr=%s", serverAddr)

	server := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	go func() {
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

func splitOrigins(raw string) []string {
	var origins []string
	for _, origin := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	if len(origins) == 0 {
		origins = []string{"https://*", "http://*"}
	}
	return origins
}
