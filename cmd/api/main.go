package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"
	goredis "github.com/redis/go-redis/v9"

	"github.com/luiseel/money/internal/command"
	"github.com/luiseel/money/internal/config"
	"github.com/luiseel/money/internal/events"
	"github.com/luiseel/money/internal/handler"
	"github.com/luiseel/money/internal/middleware"
	"github.com/luiseel/money/internal/query"
	redisClient "github.com/luiseel/money/internal/redis"
	"github.com/luiseel/money/internal/repository"
)

func main() {
	middleware.MustInitJWTSecret()
	cfg := config.Load()

	// Database connection (write store)
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}

	// Redis connection (read model store + event streaming), optional
	var rdb *goredis.Client
	if cfg.RedisAddr != "" {
		redis, err := redisClient.NewClient(redisClient.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			PoolSize: cfg.RedisPoolSize,
		})
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redis.Close()
		rdb = redis.Client
	} else {
		log.Printf("REDIS_ADDR not set, running without read model cache and events")
	}

	// --- CQRS wiring ---
	publisher := events.NewPublisher(rdb)

	userWriteRepo := repository.NewUserWriteRepository(db)
	userReadRepo := repository.NewUserReadRepository(db, rdb)
	txWriteRepo := repository.NewTransactionWriteRepository(db)
	txReadRepo := repository.NewTransactionReadRepository(db, rdb)

	userCommandSvc := command.NewUserCommandService(userWriteRepo, userReadRepo, publisher)
	userQuerySvc := query.NewUserQueryService(userReadRepo)
	txCommandSvc := command.NewTransactionCommandService(txWriteRepo, txReadRepo, userQuerySvc, publisher)
	txQuerySvc := query.NewTransactionQueryService(txReadRepo, userQuerySvc)

	userHandler := handler.NewUserHandler(userCommandSvc)
	transactionHandler := handler.NewTransactionHandler(txCommandSvc, txQuerySvc)

	// Setup router
	router := gin.Default()
	router.Use(middleware.LoggingMiddleware())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Identity-provider webhook; signature check only when a secret is configured
	webhook := router.Group("/v1/users")
	if cfg.WebhookSecret != "" {
		webhook.Use(middleware.WebhookVerificationMiddleware(cfg.WebhookSecret))
	} else {
		log.Printf("WEBHOOK_SECRET not set, webhook signature verification disabled")
	}
	webhook.POST("/webhook", userHandler.HandleLifecycleEvent)

	// Transaction routes
	v1 := router.Group("/v1/transactions", middleware.AuthMiddleware())
	{
		v1.GET("", transactionHandler.ListTransactions)
		v1.POST("", transactionHandler.CreateTransaction)
		v1.GET("/:transactionId", transactionHandler.GetTransaction)
		v1.DELETE("/:transactionId", transactionHandler.DeleteTransaction)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Optional second ingestion path for identity lifecycle events
	if cfg.IdentityEventsStream != "" && rdb != nil {
		go func() {
			subscriber := events.NewSubscriber(rdb, events.SubscriberConfig{
				Group:    "money-api-group",
				Consumer: "money-api-1",
				Stream:   cfg.IdentityEventsStream,
				Handler:  userCommandSvc.HandleIdentityEvent,
			})
			if err := subscriber.Start(ctx); err != nil {
				log.Printf("Subscriber stopped: %v", err)
			}
		}()
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		log.Println("Shutting down...")
		cancel()
	}()

	log.Printf("Money API starting on port %s", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
