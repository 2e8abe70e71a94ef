// cmd/relay-server/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"autoparts-relay/internal/advisor"
	"autoparts-relay/internal/analytics"
	"autoparts-relay/internal/common/aws"
	"autoparts-relay/internal/common/config"
	"autoparts-relay/internal/common/database"
	"autoparts-relay/internal/common/logger"
	"autoparts-relay/internal/common/observability"
	"autoparts-relay/internal/feed"
	dn "autoparts-relay/internal/jobs/dispatch-notification"
	es "autoparts-relay/internal/jobs/expire-subscriptions"
	pp "autoparts-relay/internal/jobs/publish-posts"
	rl "autoparts-relay/internal/jobs/review-listing"
	ul "autoparts-relay/internal/jobs/unfeature-listings"
	"autoparts-relay/internal/server"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting relay server...",
		zap.String("app", cfg.App.Name),
		zap.String("version", cfg.App.Version),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Redis with retry ---
	var redisClient *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redisClient, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redisClient.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redisClient.Close()
	zapLog.Info("Redis connected successfully")

	// --- Init Elasticsearch with retry (optional) ---
	var indexer analytics.Indexer
	if cfg.Database.Elasticsearch.Enabled {
		var esClient *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return esClient.Ping()
		}, 10, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		indexer = analytics.NewESIndexer(esClient, cfg.Database.Elasticsearch.EventIndex)
		zapLog.Info("Elasticsearch connected successfully")
	}

	// --- Init AWS clients ---
	sesClient, snsClient, err := aws.NewClients(ctx, cfg.Notifications.AWS.Region)
	if err != nil {
		zapLog.Fatal("aws clients failed", zap.Error(err))
	}
	zapLog.Info("AWS clients initialized")

	feedAdapter := feed.NewAdapter(redisClient.GetClient(), cfg.Feed.ChannelPrefix, log)

	handlers := &server.Handlers{
		ExpireSubscriptions: es.NewHandler(
			&es.Config{
				RetentionDays: 30,
				Timeout:       config.GetDuration(config.GetJobConfig(cfg, es.JobName).Timeout),
			},
			pg.GetDB(), log,
		),
		UnfeatureListings: ul.NewHandler(
			&ul.Config{
				Timeout: config.GetDuration(config.GetJobConfig(cfg, ul.JobName).Timeout),
			},
			pg.GetDB(), log,
		),
		PublishPosts: pp.NewHandler(
			&pp.Config{
				Timeout: config.GetDuration(config.GetJobConfig(cfg, pp.JobName).Timeout),
			},
			pg.GetDB(), log,
		),
		DispatchNotification: dn.NewHandler(
			&dn.Config{
				EmailEnabled: cfg.Notifications.Email.Enabled,
				SMSEnabled:   cfg.Notifications.SMS.Enabled,
				FromEmail:    cfg.Notifications.Email.FromEmail,
				AWSRegion:    cfg.Notifications.AWS.Region,
				Timeout:      30 * time.Second,
			},
			pg.GetDB(), log, sesClient, snsClient, feedAdapter,
		),
		ReviewListing: rl.NewHandler(
			&rl.Config{
				GenAIBaseURL: cfg.APIs.GenAI.BaseURL,
				APIKey:       cfg.APIs.GenAI.APIKey,
				MaxRetries:   cfg.APIs.GenAI.MaxRetries,
				Timeout:      config.GetDuration(cfg.APIs.GenAI.Timeout),
			},
			pg.GetDB(), log,
		),
		Advisor: advisor.NewGateway(
			&advisor.Config{
				BaseURL: cfg.APIs.Advisor.BaseURL,
				APIKey:  cfg.APIs.Advisor.APIKey,
				Timeout: config.GetDuration(cfg.APIs.Advisor.Timeout),
			},
			log,
		),
		Analytics: analytics.NewRecorder(pg.GetDB(), indexer, log),
	}

	srv := server.NewServer(cfg, log, obs, handlers)
	httpServer := &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:     srv.Router(),
		ReadTimeout: config.GetDuration(cfg.Server.ReadTimeout),
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.Int("port", cfg.Server.Port))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Fatal("http server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zapLog.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("graceful shutdown failed", zap.Error(err))
	}
	zapLog.Info("Server stopped")
}
