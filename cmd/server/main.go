package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/cellboard/cellboard/internal/config"
	"github.com/cellboard/cellboard/internal/content"
	"github.com/cellboard/cellboard/internal/database"
	"github.com/cellboard/cellboard/internal/engine"
	"github.com/cellboard/cellboard/internal/feed"
	"github.com/cellboard/cellboard/internal/handler"
	"github.com/cellboard/cellboard/internal/payment"
	"github.com/cellboard/cellboard/internal/queue"
	"github.com/cellboard/cellboard/internal/repository"
	"github.com/cellboard/cellboard/internal/router"
	"github.com/cellboard/cellboard/internal/worker"
)

func main() {
	// .env is optional; in containers the environment is injected directly.
	_ = godotenv.Load()

	cfg := config.Load()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer db.Close()

	gridStore := repository.NewGridStore(db)

	rdb := config.NewRedisClient()
	if rdb == nil {
		logger.Warn("redis unavailable, rate limiting and response caching disabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	kafkaFeed := feed.NewKafkaPublisher(cfg.KafkaBrokers, 1024)
	kafkaFeed.Start(ctx)

	payClient := payment.NewClient(cfg.PaymentBaseURL, cfg.PaymentAPIKey)
	events := queue.NewPublisher(cfg.RabbitURL)

	taskClient := worker.NewClient(config.AsynqRedisOpt())
	defer taskClient.Close()

	eng := engine.New(gridStore, engine.Options{
		HoldTTL:       cfg.HoldTTL,
		PerCellCents:  cfg.PricePerCellCents,
		Currency:      cfg.Currency,
		Charger:       payClient,
		Refunder:      payClient,
		Feed:          kafkaFeed,
		Events:        events,
		RefundRetries: taskClient,
		Logger:        logger,
		ReapBatchSize: cfg.ReapBatchSize,
	})

	// Background: expiry sweeps and refund retries over asynq, plus the
	// purchase journal consumer on RabbitMQ.
	go worker.Run(config.AsynqRedisOpt(), worker.NewHandlers(eng, payClient, logger))
	go func() {
		if err := queue.StartPurchaseConsumer(cfg.RabbitURL); err != nil {
			logger.Error("purchase consumer stopped", "err", err)
		}
	}()

	contentStore, err := content.NewDisk(cfg.ContentDir)
	if err != nil {
		log.Fatalf("content storage init failed: %v", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())

	router.RegisterRoutes(e)
	router.RegisterGrid(e, handler.NewGridHandler(gridStore), config.LoadCacheConfig(), rdb)
	router.RegisterHolds(e, handler.NewHoldHandler(eng), config.LoadRateLimitConfig(), rdb)
	router.RegisterPayments(e, handler.NewWebhookHandler(eng, cfg.WebhookSecret))
	router.RegisterSubmissions(e, handler.NewSubmissionHandler(eng, gridStore, contentStore))
	router.RegisterAdmin(e, handler.NewAdminHandler(eng, gridStore, cfg.JWTSecret, cfg.AdminKeyHash, cfg.AccessTTLMin), cfg.JWTSecret)

	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		_ = e.Shutdown(context.Background())
		kafkaFeed.WaitClosed()
	}()

	if err := e.Start(":" + cfg.Port); err != nil {
		logger.Info("server stopped", "err", err)
	}
}
