package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/glebarez/sqlite"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/jmylchreest/locastarr/internal/config"
	"github.com/jmylchreest/locastarr/internal/geo"
	"github.com/jmylchreest/locastarr/internal/guide"
	internalhttp "github.com/jmylchreest/locastarr/internal/http"
	"github.com/jmylchreest/locastarr/internal/http/handlers"
	"github.com/jmylchreest/locastarr/internal/locast"
	"github.com/jmylchreest/locastarr/internal/models"
	"github.com/jmylchreest/locastarr/internal/observability"
	"github.com/jmylchreest/locastarr/internal/repository"
	"github.com/jmylchreest/locastarr/internal/session"
	"github.com/jmylchreest/locastarr/internal/version"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the locastarr server",
	Long: `Start the locastarr HTTP server and guide refresher.

The server provides:
- M3U playlist of the local station lineup at /locast
- Per-station stream resolution at /station/{id}
- The XMLTV programme guide at /guide.xml
- REST API for refresh control and history
- Health check endpoint and Prometheus metrics
- OpenAPI documentation at /docs`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
	serveCmd.Flags().Int("port", 8080, "Port to listen on")
	serveCmd.Flags().String("database", "", "Refresh-history database file path")
	serveCmd.Flags().String("guide-output", "", "Path the XMLTV document is written to")

	mustBindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	mustBindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	mustBindPFlag("database.path", serveCmd.Flags().Lookup("database"))
	mustBindPFlag("guide.output_path", serveCmd.Flags().Lookup("guide-output"))
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := slog.Default()

	cfg, err := config.FromViper(viper.GetViper())
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	metrics := observability.NewMetrics()

	// Scope the session: coordinates first, then market, then credentials.
	// Failures here are fatal; the process has nothing to serve without a
	// scoped, authenticated session.
	startupCtx := context.Background()

	coords := geo.NewResolver(cfg.Geo, logger).Resolve(startupCtx)

	client := locast.New(cfg.Source.APIURL(), cfg.Source.Timeout, logger).
		WithMetrics(metrics)

	store := session.NewFileStore(cfg.Session.StorePath)
	sessions := session.NewManager(cfg.Session, cfg.Source.BaseURL, coords.Latitude, coords.Longitude, client, store, logger)

	if err := sessions.Initialize(); err != nil {
		return fmt.Errorf("initializing session: %w", err)
	}
	if err := sessions.ResolveMarket(startupCtx); err != nil {
		return fmt.Errorf("resolving market: %w", err)
	}
	if err := sessions.EnsureAuthenticated(startupCtx); err != nil {
		return fmt.Errorf("authenticating: %w", err)
	}

	logger.Info("session established",
		slog.String("dma", sessions.DMA()),
		slog.String("location", sessions.LocationName()),
	)

	// Refresh-history database.
	db, err := initDatabase(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	if err := db.AutoMigrate(&models.RefreshRun{}); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}
	runRepo := repository.NewRefreshRunRepository(db)

	// Guide pipeline.
	loc, err := cfg.Guide.Location()
	if err != nil {
		return fmt.Errorf("loading guide timezone: %w", err)
	}

	schedule, err := cron.ParseStandard(cfg.Guide.Schedule)
	if err != nil {
		return fmt.Errorf("parsing guide schedule: %w", err)
	}

	fetcher := guide.NewFetcher(client, sessions, loc)
	translator := guide.NewTranslator(loc)

	refresher := guide.NewRefresher(fetcher, translator, cfg.Guide.OutputPath, schedule, logger).
		WithRunRepository(runRepo).
		WithRetention(cfg.Guide.HistoryRetention).
		WithMetrics(metrics)
	if cfg.Guide.HandoffSocket != "" {
		refresher = refresher.WithHandoff(guide.NewSocketHandoff(cfg.Guide.HandoffSocket, cfg.Source.Timeout))
	}

	// HTTP server and handlers.
	server := internalhttp.NewServer(cfg.Server, logger, version.Version)

	playlistHandler := handlers.NewPlaylistHandler(fetcher).
		WithLogger(logger)
	playlistHandler.RegisterRoutes(server.Router())

	guideHandler := handlers.NewGuideHandler(refresher).
		WithRunRepository(runRepo).
		WithLogger(logger)
	guideHandler.RegisterFileServer(server.Router())
	guideHandler.Register(server.API())

	healthHandler := handlers.NewHealthHandler(version.Version).
		WithSessionManager(sessions).
		WithRefresher(refresher).
		WithDB(db)
	healthHandler.Register(server.API())

	server.Router().Handle("/metrics", promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{}))

	// Graceful shutdown.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Info("received shutdown signal", slog.String("signal", sig.String()))
		cancel()
	}()

	go refresher.Run(ctx)

	logger.Info("starting locastarr server",
		slog.String("host", cfg.Server.Host),
		slog.Int("port", cfg.Server.Port),
		slog.String("version", version.Version),
	)

	return server.ListenAndServe(ctx)
}

func initDatabase(path string) (*gorm.DB, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	return db, nil
}
