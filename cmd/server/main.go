package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/iconidentify/tweetframe/internal/api"
	"github.com/iconidentify/tweetframe/internal/api/handler"
	"github.com/iconidentify/tweetframe/internal/cache"
	"github.com/iconidentify/tweetframe/internal/capture"
	"github.com/iconidentify/tweetframe/internal/config"
	"github.com/iconidentify/tweetframe/internal/downloader"
	"github.com/iconidentify/tweetframe/internal/render"
	"github.com/iconidentify/tweetframe/internal/service"
	"github.com/iconidentify/tweetframe/pkg/fxtwitter"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "Path to config file")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("tweetframe %s (built %s)\n", Version, BuildTime)
		os.Exit(0)
	}

	// Setup logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("starting tweetframe",
		"version", Version,
		"build_time", BuildTime,
	)

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize dependencies
	resolver := fxtwitter.NewClient(cfg.Resolver, logger)
	treeCache := cache.New(cfg.Cache, logger)
	posts := service.NewPostService(resolver, treeCache, logger)

	renderer, err := render.NewCardRenderer()
	if err != nil {
		logger.Error("failed to build card renderer", "error", err)
		os.Exit(1)
	}

	pool := capture.NewPool(cfg.Capture, logger)
	snapshotter := capture.NewSnapshotter(pool, cfg.Capture, logger)
	fetcher := downloader.NewHTTPFetcher(cfg.Capture.DownloadTimeout, cfg.Capture.UserAgent, logger)
	composer, err := capture.NewComposer(cfg.Capture, fetcher, logger)
	if err != nil {
		logger.Error("failed to initialize composer", "error", err)
		os.Exit(1)
	}
	pipeline := capture.NewPipeline(snapshotter, composer, logger)

	// Initialize handlers
	healthHandler := handler.NewHealthHandler("tweetframe", Version)
	tweetHandler := handler.NewTweetHandler(posts, logger)
	captureHandler := handler.NewCaptureHandler(posts, renderer, pipeline, logger)

	// Setup router
	router := api.NewRouter(healthHandler, tweetHandler, captureHandler, logger)

	// Setup HTTP server
	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting HTTP server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	// Graceful shutdown: stop accepting requests, then drain the browsers.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	pool.Shutdown()

	logger.Info("shutdown complete")
}
