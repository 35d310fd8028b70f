package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/aviation-impact-accelerator/aia-analysis-contrail-avoidance/internal/airports"
	"github.com/aviation-impact-accelerator/aia-analysis-contrail-avoidance/internal/api"
	"github.com/aviation-impact-accelerator/aia-analysis-contrail-avoidance/internal/config"
	"github.com/aviation-impact-accelerator/aia-analysis-contrail-avoidance/internal/ingest"
	"github.com/aviation-impact-accelerator/aia-analysis-contrail-avoidance/internal/pipeline"
	"github.com/aviation-impact-accelerator/aia-analysis-contrail-avoidance/internal/segmentation"
	"github.com/aviation-impact-accelerator/aia-analysis-contrail-avoidance/internal/storage/sqlite"
	"github.com/aviation-impact-accelerator/aia-analysis-contrail-avoidance/internal/websocket"
	"github.com/aviation-impact-accelerator/aia-analysis-contrail-avoidance/pkg/logger"
)

var (
	// Version is injected at build time
	Version = "dev"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "Path to configuration file (optional - will search in configs/ and root directory)")
	flag.Parse()

	// Load configuration with fallback logic
	cfg, err := config.LoadWithFallback(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Create logger
	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting flight segmenter",
		logger.String("version", Version),
		logger.String("config_path", *configPath),
	)

	// Discover input batch files. Sorted paths give the stable,
	// caller-specified order the chunk loop depends on.
	pattern := filepath.Join(cfg.Ingest.InputDir, cfg.Ingest.FilePattern)
	files, err := filepath.Glob(pattern)
	if err != nil {
		log.Error("Failed to list input files", logger.Error(err), logger.String("pattern", pattern))
		os.Exit(1)
	}
	sort.Strings(files)
	if len(files) == 0 {
		log.Error("No input files found", logger.String("pattern", pattern))
		os.Exit(1)
	}
	log.Info("Discovered input files",
		logger.Int("files", len(files)),
		logger.String("pattern", pattern))

	// Load the airports database if the regional output filter needs it
	var airportDB *airports.DB
	if cfg.Airports.DBPath != "" {
		airportDB, err = airports.Load(cfg.Airports.DBPath, log)
		if err != nil {
			log.Error("Failed to load airports database", logger.Error(err))
			os.Exit(1)
		}
	}

	// Create the day-partitioned output store
	store, err := sqlite.NewPartitionStore(cfg.Output.Dir, cfg.Output.FilePrefix, log)
	if err != nil {
		log.Error("Failed to create partition store", logger.Error(err))
		os.Exit(1)
	}
	defer store.Close()

	// Create the WebSocket progress hub if the server is enabled
	var wsServer *websocket.Server
	if cfg.Server.Enabled {
		wsServer = websocket.NewServer(log)
		go wsServer.Run()
	}

	segCfg := segmentation.Config{
		SoftGap:              cfg.Segmentation.SoftGap(),
		LongGroundGap:        cfg.Segmentation.LongGroundGap(),
		HardGap:              cfg.Segmentation.HardGap(),
		MaxJumpKM:            cfg.Segmentation.MaxJumpKM,
		SameHeadingDeg:       cfg.Segmentation.SameHeadingDeg,
		MinConsecutivePoints: cfg.Segmentation.MinConsecutivePoints,
		LookbackHorizon:      cfg.Segmentation.LookbackHorizon(),
	}

	reader := ingest.NewReader(log)
	segmenter := segmentation.New(segCfg, log)

	var broadcaster pipeline.Broadcaster
	if wsServer != nil {
		broadcaster = wsServer
	}
	runner := pipeline.NewRunner(cfg, reader, segmenter, store, airportDB, broadcaster, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Cancel the chunk loop on SIGINT/SIGTERM; cancellation is honored at
	// chunk boundaries only.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("Received shutdown signal, stopping after current chunk")
		cancel()
	}()

	// Start the status/results HTTP server if enabled
	var server *http.Server
	if cfg.Server.Enabled {
		router := api.NewRouter(runner, store, wsServer, log)
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		server = &http.Server{
			Addr:         addr,
			Handler:      router.Routes(),
			ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSecs) * time.Second,
			WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSecs) * time.Second,
		}
		go func() {
			log.Info("Starting HTTP server", logger.String("addr", addr))
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("HTTP server error", logger.String("addr", addr), logger.Error(err))
			}
		}()
	}

	// Run the segmentation pipeline
	runErr := runner.Run(ctx, files)
	if runErr != nil {
		log.Error("Segmentation run failed", logger.Error(runErr))
	}

	// With the server enabled, keep serving results until interrupted
	if server != nil && ctx.Err() == nil {
		log.Info("Run finished, serving results until interrupted",
			logger.String("addr", server.Addr))
		<-ctx.Done()
	}

	if server != nil {
		log.Info("Shutting down HTTP server...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down HTTP server", logger.Error(err))
		}
	}

	if runErr != nil {
		os.Exit(1)
	}
}
