package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wayline-lab/wayline/internal/catalog"
	corecfg "github.com/wayline-lab/wayline/internal/core/config"
	"github.com/wayline-lab/wayline/internal/core/grid"
	"github.com/wayline-lab/wayline/internal/core/storage"
	"github.com/wayline-lab/wayline/internal/core/storage/postgres"
	"github.com/wayline-lab/wayline/internal/core/window"
	"github.com/wayline-lab/wayline/internal/migrations"
	"github.com/wayline-lab/wayline/internal/server"
	"github.com/wayline-lab/wayline/internal/session"
	"github.com/wayline-lab/wayline/internal/source"
	"github.com/wayline-lab/wayline/internal/view"

	v1 "github.com/wayline-lab/wayline/internal/api/v1"
)

func main() {
	configPath := flag.String("config", "wayline.yaml", "Path to configuration file")
	flag.Parse()

	// 0. Initialize Logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// 1. Load Configuration
	cfg, err := corecfg.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	slog.Info("Loaded config", "config", cfg)

	loc, err := cfg.Timeline.Location()
	if err != nil {
		slog.Error("Failed to resolve timezone", "error", err)
		os.Exit(1)
	}

	// 2. Initialize Storage (PostgreSQL, optional)
	var (
		store storage.ItineraryStore
		db    *sql.DB
	)
	if cfg.Database.Enabled() {
		dbAdapter, err := postgres.NewAdapter(
			cfg.Database.DSN,
			cfg.Database.MaxOpenConns,
			cfg.Database.MaxIdleConns,
		)
		if err != nil {
			slog.Error("Failed to initialize database", "error", err)
			os.Exit(1)
		}
		defer dbAdapter.Close()

		// 2.1. Run Database Migrations
		if err := migrations.RunMigrations(dbAdapter.DB(), cfg.Database.AutoMigrate); err != nil {
			slog.Error("Failed to run database migrations", "error", err)
			os.Exit(1)
		}

		store = dbAdapter
		db = dbAdapter.DB()
	} else {
		slog.Info("Itinerary store disabled: no database DSN configured")
	}

	// 3. Initialize the session engine
	registry := session.NewRegistry()
	sessionOpts := session.Options{
		Calendar:    grid.NewCalendar(loc),
		DefaultFade: time.Duration(cfg.Timeline.FadeHours * float64(time.Hour)),
		Window: window.Config{
			ChunkWeeks:   cfg.Timeline.ChunkWeeks,
			MaxChunks:    cfg.Timeline.MaxChunks,
			RowHeightPx:  cfg.Timeline.RowHeightPx,
			EdgeBufferPx: cfg.Timeline.EdgeBufferPx,
			Throttle:     time.Duration(cfg.Timeline.ThrottleMs) * time.Millisecond,
		},
	}

	// 4. Initialize the optional file itinerary source
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Source.Path != "" {
		publish := sourcePublisher(ctx, cfg.Source.Name, store, registry)

		doc, err := source.LoadDocument(cfg.Source.Path)
		if err != nil {
			slog.Error("Failed to load itinerary source", "path", cfg.Source.Path, "error", err)
			os.Exit(1)
		}
		publish(doc)

		if cfg.Source.RefreshCron != "" {
			refresher, err := source.NewRefresher(cfg.Source.RefreshCron, cfg.Source.Path, publish)
			if err != nil {
				slog.Error("Failed to schedule source refresh", "error", err)
				os.Exit(1)
			}
			refresher.Start()
			defer refresher.Stop()
		}
	}

	// 5. Initialize HTTP services
	viewSvc := view.NewService(registry, store, sessionOpts, cfg.Server.MaxBodySizeMB)
	catalogSvc := catalog.NewService(store, cfg.Server.MaxBodySizeMB)

	// 6. Initialize Server
	srv := server.New(fmtAddr(cfg.Server.Host, cfg.Server.Port), db, cfg.Server.Mode)
	viewSvc.RegisterRoutes(srv.Engine)
	catalogSvc.RegisterRoutes(srv.Engine)

	// Signal handler triggers the shutdown sequence below.
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		slog.Info("Signal received, shutting down...")
		cancel()
	}()

	// HTTP server blocks until ctx is cancelled.
	if err := srv.Run(ctx); err != nil {
		slog.Error("Server stopped with error", "error", err)
	}

	slog.Info("Shutdown complete")
}

// sourcePublisher propagates a freshly loaded source document: into the
// store under the configured name when persistence is enabled, and into
// every live session so open views pick up the new data.
func sourcePublisher(ctx context.Context, name string, store storage.ItineraryStore, registry *session.Registry) func(*v1.Document) {
	return func(doc *v1.Document) {
		if store != nil {
			if err := store.SaveItinerary(ctx, name, doc); err != nil {
				slog.Error("Failed to persist source itinerary", "name", name, "error", err)
			}
		}
		registry.Each(func(s *session.Session) {
			if _, err := s.Replace(doc); err != nil {
				slog.Warn("Session rejected refreshed document", "session_id", s.ID(), "error", err)
			}
		})
		slog.Info("Itinerary source published", "name", name, "events", len(doc.Events))
	}
}

func fmtAddr(host string, port int) string {
	return fmt.Sprintf("%s:%d", host, port)
}
