package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/agrilink/agrilink-platform/internal/api/router"
	appconfig "github.com/agrilink/agrilink-platform/internal/config"
	"github.com/agrilink/agrilink-platform/internal/events"
	"github.com/agrilink/agrilink-platform/internal/farmers"
	"github.com/agrilink/agrilink-platform/internal/grading"
	"github.com/agrilink/agrilink-platform/internal/http/handlers"
	"github.com/agrilink/agrilink-platform/internal/ingest"
	"github.com/agrilink/agrilink-platform/internal/listing"
	"github.com/agrilink/agrilink-platform/internal/media"
	"github.com/agrilink/agrilink-platform/internal/messaging"
	"github.com/agrilink/agrilink-platform/internal/observability/metrics"
	gradingworker "github.com/agrilink/agrilink-platform/internal/worker/grading"
	"github.com/agrilink/agrilink-platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting agrilink-platform API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Postgres is optional in development; without it the service still
	// answers farmers but listings are not persisted.
	var pool *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		var err error
		pool, err = pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to create pgx pool", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
	} else {
		logger.Warn("DATABASE_URL not set; running without persistence")
	}

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		opts := &redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		}
		if cfg.RedisTLS {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		redisClient = redis.NewClient(opts)
		defer redisClient.Close()
	}

	messagingMetrics := metrics.NewMessagingMetrics(nil)

	var storage media.Storage
	switch cfg.MediaStorage {
	case "s3":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			logger.Error("failed to load AWS config", "error", err)
			os.Exit(1)
		}
		s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			if cfg.AWSEndpointOverride != "" {
				o.BaseEndpoint = &cfg.AWSEndpointOverride
				o.UsePathStyle = true
			}
		})
		storage = media.NewS3Storage(s3Client, cfg.S3Bucket, cfg.S3Prefix)
	default:
		storage = media.NewLocalStorage(cfg.UploadsDir)
	}

	retriever := media.NewRetriever(storage, cfg.MediaFetchTimeout, logger)
	if len(cfg.TwilioAccounts) > 0 {
		// Twilio media URLs require the owning account's credentials.
		retriever = retriever.WithBasicAuth(cfg.TwilioAccounts[0].AccountSID, cfg.TwilioAccounts[0].AuthToken)
	}

	var farmerRepo farmers.Repository
	if pool != nil {
		farmerRepo = farmers.NewPostgresRepository(pool)
	} else {
		farmerRepo = farmers.NewInMemoryRepository()
	}

	var accounts []*messaging.TwilioAccount
	for i, acct := range cfg.TwilioAccounts {
		name := "twilio-" + strconv.Itoa(i+1)
		accounts = append(accounts, messaging.NewTwilioAccount(name, acct.AccountSID, acct.AuthToken, acct.WhatsAppNumber, logger))
	}
	dispatcher := messaging.NewDispatcher(accounts, logger)
	logger.Info("messaging dispatcher ready", "accounts", dispatcher.Accounts())

	greenClient := messaging.NewGreenClient(cfg.GreenAPIURL, cfg.GreenAPIIDInstance, cfg.GreenAPITokenInstance, logger)

	var listingStore *listing.Store
	var processed ingest.ProcessedMarker
	if pool != nil {
		listingStore = listing.NewStore(pool)
		processed = events.NewProcessedStore(pool)
	}

	tasks := ingest.NewTasks(cfg.WorkerCount, cfg.TaskQueueSize, logger)
	tasks.Start(ctx)

	grader := grading.NewClient(cfg.GradingServiceURL, cfg.GradingTimeout, logger)

	pipeline := ingest.NewPipeline(ingest.Deps{
		Farmers:      farmerRepo,
		WelcomeGuard: farmers.NewWelcomeGuard(redisClient),
		Retriever:    retriever,
		Listings:     listingStore,
		Grader:       grader,
		Twilio:       dispatcher,
		Green:        greenClient,
		Tasks:        tasks,
		Processed:    processed,
		Metrics:      messagingMetrics,
		Logger:       logger,
	}, ingest.Config{
		DefaultCountryCode: cfg.DefaultCountryCode,
		FallbackGrade:      cfg.GradingFallbackGrade,
		FallbackScore:      cfg.GradingFallbackScore,
		DedupEnabled:       cfg.WebhookDedup && pool != nil,
	})

	twilioWebhook := handlers.NewTwilioWebhookHandler(handlers.TwilioWebhookConfig{
		Pipeline: pipeline,
		Logger:   logger,
		Metrics:  messagingMetrics,
		BaseURL:  cfg.PublicBaseURL,
	})
	greenWebhook := handlers.NewGreenWebhookHandler(handlers.GreenWebhookConfig{
		Pipeline: pipeline,
		Logger:   logger,
		Metrics:  messagingMetrics,
		BaseURL:  cfg.PublicBaseURL,
	})

	uploadsDir := ""
	if cfg.MediaStorage == "local" {
		uploadsDir = cfg.UploadsDir
	}
	r := router.New(&router.Config{
		Logger:         logger,
		TwilioWebhook:  twilioWebhook,
		GreenWebhook:   greenWebhook,
		MetricsHandler: promhttp.Handler(),
		UploadsDir:     uploadsDir,
	})

	if pool != nil {
		sweeper := gradingworker.NewSweeper(listingStore, grader, cfg.PublicBaseURL, logger).
			WithFallback(cfg.GradingFallbackGrade, cfg.GradingFallbackScore).
			WithInterval(cfg.GradeSweepInterval).
			WithMaxAge(cfg.GradeSweepMaxAge).
			WithMetrics(messagingMetrics)
		go sweeper.Run(ctx)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}
	tasks.Close()
	cancel()
	logger.Info("stopped")
}
