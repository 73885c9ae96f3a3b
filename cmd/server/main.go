// Package main is the entry point for the safescan HTTP server. It wires the
// scan pipeline together from configuration: components whose credentials are
// absent are simply not constructed and the pipeline degrades accordingly.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/brightpath/safescan/internal/config"
	"github.com/brightpath/safescan/internal/review"
	"github.com/brightpath/safescan/internal/scan"
	"github.com/brightpath/safescan/internal/scan/clamav"
	"github.com/brightpath/safescan/internal/scan/imagesafety"
	"github.com/brightpath/safescan/internal/scan/reputation"
	"github.com/brightpath/safescan/internal/scan/vision"
	"github.com/brightpath/safescan/internal/server"
	"github.com/brightpath/safescan/pkg/logger"
	"github.com/brightpath/safescan/pkg/metrics"
	"github.com/brightpath/safescan/pkg/redis"
)

func main() {
	// Missing .env is fine in containerized deployments.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(logger.Config{
		Environment: cfg.AppEnv,
		LogLevel:    cfg.LogLevel,
		ServiceName: cfg.AppName,
	})
	defer func() {
		if err := log.Sync(); err != nil {
			log.Warn("Failed to sync logger", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Reputation client: only with an API key; the scanner falls back to
	// offline heuristics without it.
	var reputationClient *reputation.Client
	if cfg.ReputationAPIKey != "" {
		api := reputation.NewHTTPAPI(cfg.ReputationBaseURL, cfg.ReputationAPIKey, log)
		reputationClient = reputation.NewClient(api, log)
	} else {
		log.Warn("REPUTATION_API_KEY not set, running without reputation scanning")
	}

	// Local AV daemon is optional.
	var localEngine scan.LocalEngine
	if cfg.ClamdAddr != "" {
		localEngine = clamav.New(cfg.ClamdAddr, log)
		log.Info("local AV engine enabled", zap.String("addr", cfg.ClamdAddr))
	}

	scanner := scan.NewScanner(log, reputationClient, localEngine, cfg.MaxFileSizeBytes)

	// Verdict cache is optional; cache failures only cost a rescan.
	var fileScanner scan.FileScanner = scanner
	if cfg.RedisHost != "" {
		redisClient, err := redis.NewClient(redis.Config{
			Host:         cfg.RedisHost,
			Port:         cfg.RedisPort,
			Password:     cfg.RedisPassword,
			DB:           cfg.RedisDB,
			PoolSize:     cfg.RedisPoolSize,
			MinIdleConns: cfg.RedisMinIdleConns,
			MaxRetries:   cfg.RedisMaxRetries,
		}, log)
		if err != nil {
			log.Warn("Redis unavailable, verdict caching disabled", zap.Error(err))
		} else {
			defer redisClient.Close()
			cache := redis.NewCache(redisClient, "safescan", "scan")
			fileScanner = scan.NewCachedScanner(scanner, cache, log)
			log.Info("verdict cache enabled")
		}
	}

	// Visual classifier is optional; without it the image check runs on
	// local heuristics alone.
	var classifier imagesafety.Classifier
	if cfg.VisionEndpoint != "" {
		classifier = vision.NewClient(cfg.VisionEndpoint, cfg.VisionAPIKey, log)
		log.Info("visual classifier enabled")
	}
	scorer := imagesafety.NewScorer(classifier, log)

	// Review queue needs Postgres.
	var reviews *review.Service
	if cfg.DatabaseURL != "" {
		repo, err := review.NewPostgresRepository(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal("Failed to connect to review database", zap.Error(err))
		}
		defer repo.Close()
		reviews = review.NewService(log, repo)
	} else {
		log.Warn("DATABASE_URL not set, review queue disabled")
	}

	go metrics.Serve(":"+cfg.MetricsPort, log)

	mux := http.NewServeMux()
	server.Register(mux, server.Deps{
		Log:     log,
		Scanner: fileScanner,
		Scorer:  scorer,
		Reviews: reviews,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Server listening", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutdown signal received")
	case err := <-errCh:
		log.Error("Server failed", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Graceful shutdown failed", zap.Error(err))
	}
	log.Info("Server stopped")
}
