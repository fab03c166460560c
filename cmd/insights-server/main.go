// cmd/insights-server/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"sellerqi-insights/internal/cache"
	"sellerqi-insights/internal/common/aws"
	"sellerqi-insights/internal/common/config"
	"sellerqi-insights/internal/common/database"
	"sellerqi-insights/internal/common/logger"
	"sellerqi-insights/internal/common/observability"
	"sellerqi-insights/internal/fetch"
	"sellerqi-insights/internal/notify"
	"sellerqi-insights/internal/reports"
	"sellerqi-insights/internal/search"
	"sellerqi-insights/internal/server"
	"sellerqi-insights/internal/service"
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

	zapLog.Info("Starting insights server...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init Redis with retry ---
	var redisClient *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redisClient, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redisClient.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis initialization")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redisClient.Close()
	zapLog.Info("Redis connected successfully")

	categoryCache := cache.New(redisClient.GetClient(), cfg.Cache.JanitorExpiry(), log)
	fetcher := fetch.NewClient(cfg.Upstream, log)

	// --- Init Elasticsearch (optional) ---
	var indexer *search.Indexer
	if len(cfg.Database.Elasticsearch.Addresses) > 0 {
		var esClient *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return esClient.Ping()
		}, 5, 2*time.Second, zapLog, "Elasticsearch initialization")
		if err != nil {
			zapLog.Warn("elasticsearch unavailable, search disabled", zap.Error(err))
		} else {
			indexer = search.NewIndexer(esClient.Client, cfg.Database.Elasticsearch.IssueIndex, log)
			zapLog.Info("Elasticsearch connected successfully")
		}
	}

	// --- Init PostgreSQL (optional) ---
	var reportStore *reports.Store
	if cfg.Database.Postgres.Host != "" {
		var pg *database.PostgresClient
		err = retryWithBackoff(func() error {
			var err error
			pg, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			return pg.Ping(ctx)
		}, 5, 2*time.Second, zapLog, "PostgreSQL initialization")
		if err != nil {
			zapLog.Warn("postgres unavailable, export history disabled", zap.Error(err))
		} else {
			defer pg.Close()
			reportStore = reports.NewStore(pg.DB, log)
			zapLog.Info("PostgreSQL connected successfully")
		}
	}

	// --- Init alert channels (optional) ---
	var notifier *notify.Notifier
	if cfg.Alerts.IssueThreshold > 0 {
		var emailSender notify.EmailSender
		var smsSender notify.SMSSender

		if cfg.Alerts.Email.Enabled {
			sesClient, err := aws.NewSESClient(ctx, cfg.Alerts.AWS.Region)
			if err != nil {
				zapLog.Warn("ses unavailable, email alerts disabled", zap.Error(err))
			} else {
				emailSender = sesClient
			}
		}
		if cfg.Alerts.SMS.Enabled {
			snsClient, err := aws.NewSNSClient(ctx, cfg.Alerts.AWS.Region)
			if err != nil {
				zapLog.Warn("sns unavailable, sms alerts disabled", zap.Error(err))
			} else {
				smsSender = snsClient
			}
		}
		notifier = notify.NewNotifier(cfg.Alerts, emailSender, smsSender, log)
	}

	svc := service.New(cfg, fetcher, categoryCache, indexer, notifier, reportStore, log)
	httpServer := server.New(cfg, svc, log).HTTPServer()

	// --- pprof Server ---
	go func() {
		zapLog.Info("pprof server listening on :6060")
		if err := http.ListenAndServe("localhost:6060", nil); err != nil {
			zapLog.Error("pprof server failed", zap.Error(err))
		}
	}()

	// --- API Server ---
	go func() {
		zapLog.Info("API server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Fatal("API server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, draining requests...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Millisecond)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error shutting down API server", zap.Error(err))
	}

	zapLog.Info("Insights server stopped")
}
