package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"ms-raffle/internal/auth"
	"ms-raffle/internal/checkout"
	"ms-raffle/internal/checkout/checkout_api"
	"ms-raffle/internal/checkout/receipt"
	"ms-raffle/internal/config"
	"ms-raffle/internal/database/migrations"
	"ms-raffle/internal/kafka"
	"ms-raffle/internal/logger"
	"ms-raffle/internal/models"
	"ms-raffle/internal/payment"
	handlers "ms-raffle/internal/payment/handler"
	"ms-raffle/internal/payment/services"
	"ms-raffle/internal/payment/storage"
	"ms-raffle/internal/winners"
	winnersdb "ms-raffle/internal/winners/db"
	winnersredis "ms-raffle/internal/winners/redis"
	"ms-raffle/internal/winners/winners_api"
)

func verifyConnections(ctx context.Context, cfg *config.Config, logger *logger.Logger) (*bun.DB, *redis.Client) {
	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		dsn = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
			cfg.Database.Host, cfg.Database.Port, cfg.Database.Username, cfg.Database.Password, cfg.Database.Database)
	}

	var sqldb *sql.DB
	var err error
	maxRetries := 5

	for i := 0; i < maxRetries; i++ {
		logger.Info("DATABASE", fmt.Sprintf("Attempting to connect to PostgreSQL (attempt %d/%d)", i+1, maxRetries))
		sqldb, err = sql.Open("postgres", dsn)
		if err != nil {
			logger.Error("DATABASE", fmt.Sprintf("Failed to open PostgreSQL: %v", err))
			time.Sleep(2 * time.Second)
			continue
		}

		err = sqldb.Ping()
		if err == nil {
			break
		}

		logger.Error("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL: %v", err))
		if i < maxRetries-1 {
			time.Sleep(2 * time.Second)
		}
	}

	if err != nil {
		logger.Fatal("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL after %d attempts: %v", maxRetries, err))
	}

	logger.Info("DATABASE", "✅ PostgreSQL connection successful")

	sqldb.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.Database.MaxLifetime)

	bunDB := bun.NewDB(sqldb, pgdialect.New())

	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Addr,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal("DATABASE", fmt.Sprintf("Redis connection error: %v", err))
	}

	logger.Info("DATABASE", fmt.Sprintf("✅ Redis connection successful to %s (DB: %d)", cfg.Redis.Addr, redisClient.Options().DB))
	return bunDB, redisClient
}

func runMigrations(bunDB *bun.DB, logger *logger.Logger) {
	opts := migrations.DefaultOptions()
	if !opts.AutoMigrate {
		return
	}
	runner := migrations.NewRunner(bunDB, opts)
	if err := runner.RunMigrations(); err != nil {
		logger.Fatal("DATABASE", fmt.Sprintf("Migration failed: %v", err))
	}
	logger.Info("DATABASE", "Schema migrations applied")
}

func paymentRouter(stripeHandler *handlers.StripeHandler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.POST("/payment/validate-card", stripeHandler.ValidateCard)
	router.POST("/payment/process", stripeHandler.ProcessPayment)
	router.GET("/payment/:paymentId", stripeHandler.GetPayment)
	router.GET("/payments/user/:userId", stripeHandler.ListPayments)

	return router
}

func main() {
	logger := logger.NewLogger()
	defer logger.Close()

	logger.Info("APP", "Starting Raffle Engine initialization")

	if err := godotenv.Load(); err != nil {
		logger.Warn("CONFIG", ".env file not found, using environment variables")
	} else {
		logger.Info("CONFIG", "Loaded environment variables from .env file")
	}

	cfg := config.Load()
	ctx := context.Background()

	logger.Info("APP", "Verifying database connections")
	bunDB, redisClient := verifyConnections(ctx, cfg, logger)
	defer bunDB.Close()
	defer redisClient.Close()

	runMigrations(bunDB, logger)

	var kafkaProducer *kafka.Producer
	var publisher checkout.KafkaPublisher
	if cfg.Kafka.Enabled {
		kafkaProducer = kafka.NewProducer(cfg.Kafka.Brokers)
		kafkaProducer.MockMode = cfg.Kafka.MockMode
		logger.Info("KAFKA", "Kafka producer initialized successfully")

		if cfg.Kafka.MockMode {
			logger.Warn("KAFKA", "Mock mode enabled, events will be logged instead of sent")
		} else {
			requiredTopics := []string{
				cfg.Kafka.Topics.EntryCreated,
				cfg.Kafka.Topics.PrizeClaimed,
				cfg.Kafka.Topics.CompetitionSoldOut,
				kafka.TopicPaymentSucceeded,
				kafka.TopicPaymentFailed,
			}
			if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, requiredTopics); err != nil {
				logger.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
			} else {
				logger.Info("KAFKA", "Required topics ensured successfully")
			}
		}
		publisher = kafkaProducer
	} else {
		logger.Warn("KAFKA", "Kafka disabled, purchase events will not be streamed")
	}

	paymentStore, err := storage.NewPostgreSQLStoreWithDB(bunDB.DB, logger)
	if err != nil {
		logger.Fatal("DATABASE", fmt.Sprintf("Failed to initialize payment storage: %v", err))
	}

	verifier := payment.NewVerifier(paymentStore, logger)
	checkoutService := checkout.NewService(bunDB, verifier, publisher, logger)
	receipts := receipt.NewGenerator(cfg.Raffle.ReceiptSecret)

	generationLock := winnersredis.NewLock(redisClient, uuid.NewString(), cfg.Raffle.GenerationLockTTL)
	generator := winners.NewGenerator(&winnersdb.DB{Bun: bunDB}, generationLock, logger)

	checkoutHandler := &checkout_api.Handler{
		CheckoutService: checkoutService,
		Receipts:        receipts,
		Logger:          logger,
	}
	winnersHandler := &winners_api.Handler{
		Generator: generator,
		Logger:    logger,
	}

	logger.Info("HTTP", "Setting up router and middleware")
	r := chi.NewRouter()

	// --- Public Routes ---
	r.Get("/api/competitions/{competitionId}", checkoutHandler.GetCompetition)
	logger.Info("ROUTER", "Public competition endpoint registered at /api/competitions/{competitionId}")

	// --- Protected Routes ---
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware())
		logger.Info("AUTH", "JWT middleware applied to protected API routes")

		r.Route("/api", func(r chi.Router) {
			r.Post("/competitions/{competitionId}/purchase", checkoutHandler.Purchase)
			r.Post("/checkout", checkoutHandler.Checkout)
			r.Get("/my/entries", checkoutHandler.MyEntries)
			r.Get("/entries/{entryId}/receipt", checkoutHandler.EntryReceipt)
			logger.Info("ROUTER", "Checkout routes registered under /api")

			r.Route("/admin/competitions/{competitionId}", func(r chi.Router) {
				r.Post("/winning-tickets", winnersHandler.Generate)
				r.Post("/activate", checkoutHandler.Activate)
			})
			logger.Info("ROUTER", "Admin routes registered under /api/admin")
		})
	})

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("HTTP", fmt.Sprintf("🚀 Raffle Engine running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	// The payment surface runs on its own port so the card capture path can be
	// firewalled separately from the public purchase API.
	var paymentServer *http.Server
	stripeService, err := services.NewStripeService(cfg.Stripe.SecretKey, logger)
	if err != nil {
		logger.Warn("STRIPE", fmt.Sprintf("Stripe disabled: %v (card purchases will be rejected)", err))
	} else {
		stripeHandler := handlers.NewStripeHandler(stripeService, paymentStore, kafkaProducer, cfg.Stripe.Currency, logger)
		paymentServer = &http.Server{
			Addr:    cfg.Server.PaymentPort,
			Handler: paymentRouter(stripeHandler),
		}
		go func() {
			logger.Info("HTTP", fmt.Sprintf("🚀 Payment service running on %s", cfg.Server.PaymentPort))
			if err := paymentServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Fatal("HTTP", fmt.Sprintf("Payment server error: %v", err))
			}
		}()
	}

	if cfg.Kafka.Enabled && !cfg.Kafka.MockMode {
		// Entry audit trail: every committed purchase is logged from the
		// stream the fulfillment side consumes, so discrepancies show up in
		// one place.
		consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topics.EntryCreated, cfg.Kafka.GroupID)
		defer consumer.Close()
		go consumer.Start(func(entry models.Entry) {
			logger.LogPurchase("STREAM", entry.ID, fmt.Sprintf("entry for competition %s confirmed on stream (%d tickets)",
				entry.CompetitionID, entry.Quantity))
		})
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	logger.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-stop

	logger.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	ctxShutdown, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		logger.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	} else {
		logger.Info("HTTP", "✅ Raffle Engine shutdown complete")
	}
	if paymentServer != nil {
		if err := paymentServer.Shutdown(ctxShutdown); err != nil {
			logger.Error("HTTP", fmt.Sprintf("Payment server shutdown failed: %v", err))
		}
	}
}
