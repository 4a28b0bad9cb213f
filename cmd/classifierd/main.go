// classifierd is the classification engine's entrypoint: it wires the
// item cache, tagger cache, and classification engine to a durable
// Postgres store and serves the HTTP control surface described in
// SPEC_FULL.md and DESIGN.md.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/peerworks/classifierd/pkg/api"
	"github.com/peerworks/classifierd/pkg/config"
	"github.com/peerworks/classifierd/pkg/corpus"
	"github.com/peerworks/classifierd/pkg/database"
	"github.com/peerworks/classifierd/pkg/engine"
	"github.com/peerworks/classifierd/pkg/itemcache"
	"github.com/peerworks/classifierd/pkg/perflog"
	"github.com/peerworks/classifierd/pkg/tagger"
	"github.com/peerworks/classifierd/pkg/taggercache"
	"github.com/peerworks/classifierd/pkg/tokenizer"
)

const (
	tokenDictionaryCacheSize = 100_000
	tokenizerUserAgent       = "classifierd"
	maxConcurrentTaggerFetch = 4
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir", getEnv("CONFIG_DIR", "./deploy/config"), "Path to configuration directory")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		slog.Warn("could not load .env file, continuing with existing environment", "path", envPath, "error", err)
	}

	ginMode := getEnv("GIN_MODE", "release")
	gin.SetMode(ginMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("starting classifierd", "config_dir", *configDir)

	cfg, err := config.Initialize(ctx, *configDir)
	if err != nil {
		slog.Error("failed to initialize configuration", "error", err)
		os.Exit(1)
	}

	perfLogger, err := perflog.Open(cfg.PerformanceLog)
	if err != nil {
		slog.Error("failed to open performance log", "path", cfg.PerformanceLog, "error", err)
		os.Exit(1)
	}

	dbConfig, err := database.LoadConfigFromEnv()
	if err != nil {
		slog.Error("failed to load database config", "error", err)
		os.Exit(1)
	}

	dbClient, err := database.NewClient(ctx, dbConfig)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			slog.Error("error closing database client", "error", err)
		}
	}()
	slog.Info("connected to postgres and applied pending migrations")

	dict, err := corpus.NewDictionary(dbClient.DB(), tokenDictionaryCacheSize)
	if err != nil {
		slog.Error("failed to build token dictionary", "error", err)
		os.Exit(1)
	}

	tokenizerClient := tokenizer.New(getEnv("TOKENIZER_URL", ""), 30*time.Second, tokenizerUserAgent, dict)

	itemCacheCfg := itemcache.DefaultConfig()
	itemCacheCfg.LoadItemsSince = cfg.LoadItemsSince
	itemCacheCfg.MinTokens = cfg.MinTokens
	itemCacheCfg.UpdateWait = cfg.CacheUpdateWaitTime

	items := itemcache.New(dbClient.DB(), dict, tokenizerClient, itemCacheCfg)
	if err := items.Load(ctx); err != nil {
		slog.Error("failed to load item cache", "error", err)
		os.Exit(1)
	}
	slog.Info("item cache loaded", "resident_items", items.Size())

	fetcher := tagger.NewFetcher(30*time.Second, tokenizerUserAgent)
	uploader := tagger.NewUploader(30*time.Second, tokenizerUserAgent, cfg.Credentials)

	taggerCache := taggercache.New(items.FetchItem, fetcher, items, items.BackgroundPool, maxConcurrentTaggerFetch)

	engineCfg := engine.DefaultConfig()
	engineCfg.WorkerCount = cfg.WorkerThreads
	engineCfg.PositiveThreshold = cfg.PositiveThreshold
	engineCfg.TagIndexURL = cfg.TagIndexURL
	engineCfg.PerfLog = perfLogger

	eng := engine.New(engineCfg, taggerCache, items, uploader)

	items.SetUpdateCallback(eng.OnItemsAdded)
	items.StartFeatureExtractor(ctx)
	items.StartUpdater(ctx)
	items.StartPurger(ctx)

	eng.Start(ctx)

	addr := ":" + strconv.Itoa(cfg.HTTPPort)
	server := api.NewServer(addr, eng, dbClient, cfg.AllowedIP)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- err
		}
		close(serverErrCh)
	}()

	slog.Info("classifierd ready", "http_addr", addr)

	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	case err := <-serverErrCh:
		if err != nil {
			slog.Error("http server failed", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("error during http shutdown", "error", err)
	}

	eng.Stop()
	items.Close()

	slog.Info("classifierd stopped cleanly")
}
