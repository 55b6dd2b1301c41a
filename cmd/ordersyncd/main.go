// ordersyncd keeps one worker's order queues synchronized with the
// warehouse backend: it loads a REST snapshot, subscribes to the push
// stream, and maintains the available/working/history sets for the
// configured role. Optionally journals accepted events to PostgreSQL.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/warehousehq/ordersync/internal/api"
	"github.com/warehousehq/ordersync/internal/auth"
	"github.com/warehousehq/ordersync/internal/config"
	"github.com/warehousehq/ordersync/internal/connection"
	"github.com/warehousehq/ordersync/internal/database"
	"github.com/warehousehq/ordersync/internal/engine"
	"github.com/warehousehq/ordersync/internal/journal"
	"github.com/warehousehq/ordersync/internal/model"
	"github.com/warehousehq/ordersync/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/ordersyncd.local.yaml", "path to config file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	logger.Info("starting ordersyncd",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"instance_id", cfg.Instance.ID,
		"role", cfg.Engine.Role,
		"worker_id", cfg.Engine.WorkerID,
		"rest_url", cfg.API.RestURL,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Resolve credentials
	creds, err := auth.LoadCredentials(cfg.API.Token, cfg.API.TokenFile)
	if err != nil {
		logger.Error("failed to load credentials", "error", err)
		os.Exit(1)
	}

	// REST client
	apiClient := api.NewClient(
		cfg.API.RestURL,
		creds,
		api.WithLogger(logger),
		api.WithTimeout(cfg.API.Timeout),
		api.WithRetries(cfg.API.MaxRetries, time.Second),
	)

	// Optional audit journal
	var pool *pgxpool.Pool
	var jw *journal.Writer
	if cfg.Journal.Enabled {
		logger.Info("connecting to journal database",
			"host", cfg.Journal.Database.Host,
			"port", cfg.Journal.Database.Port,
			"database", cfg.Journal.Database.Name,
		)
		pool, err = database.Connect(ctx, cfg.Journal.Database)
		if err != nil {
			logger.Error("failed to connect to journal database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		jw = journal.NewWriter(journal.Config{
			BatchSize:     cfg.Journal.BatchSize,
			FlushInterval: cfg.Journal.FlushInterval,
		}, pool, logger)
		if err := jw.Start(ctx); err != nil {
			logger.Error("failed to start journal", "error", err)
			os.Exit(1)
		}
	}

	// Connection manager: the single shared transport session
	connMgr := connection.NewManager(connection.ManagerConfig{
		WSURL:             cfg.API.WSURL,
		HeartbeatInterval: cfg.Connection.HeartbeatInterval,
		ReconnectDelay:    cfg.Connection.ReconnectDelay,
		MaxReconnects:     cfg.Connection.MaxReconnects,
		WriteTimeout:      cfg.Connection.WriteTimeout,
		HandshakeTimeout:  cfg.Connection.HandshakeTimeout,
		BufferSize:        cfg.Connection.BufferSize,
		DedupWindow:       cfg.Dedup.Window,
	}, creds, logger)

	// Reconciliation engine for this worker's role
	eng := engine.New(engine.Config{
		Role:              model.Role(cfg.Engine.Role),
		WorkerID:          cfg.Engine.WorkerID,
		NotificationLimit: cfg.Engine.NotificationLimit,
		RefreshInterval:   cfg.Engine.RefreshInterval,
	}, apiClient, logger)

	unregEngine := connMgr.RegisterListener(eng.HandleEvent)
	defer unregEngine()
	if jw != nil {
		unregJournal := connMgr.RegisterListener(jw.Record)
		defer unregJournal()
	}

	if err := connMgr.Connect(ctx); err != nil {
		logger.Error("failed to open transport", "error", err)
		os.Exit(1)
	}

	eng.Start(ctx)

	// Health server
	healthServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Health.Port),
		Handler: createHealthHandler(cfg.Health.Path, connMgr, eng, pool),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting health server", "port", cfg.Health.Port, "path", cfg.Health.Path)
		if err := healthServer.ListenAndServe(); err != http.ErrServerClosed {
			return fmt.Errorf("health server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return healthServer.Shutdown(shutdownCtx)
	})

	logger.Info("ordersyncd running",
		"instance_id", cfg.Instance.ID,
		"health_url", fmt.Sprintf("http://localhost:%d%s", cfg.Health.Port, cfg.Health.Path),
	)

	// Wait for shutdown
	<-ctx.Done()

	logger.Info("shutting down...")

	eng.Stop()
	connMgr.Disconnect()
	if jw != nil {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
		jw.Stop(stopCtx)
		stopCancel()
	}

	if err := g.Wait(); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	logger.Info("ordersyncd stopped")
}

// createHealthHandler creates the HTTP handler for health checks.
func createHealthHandler(path string, connMgr connection.Manager, eng *engine.Engine, pool *pgxpool.Pool) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		health := struct {
			Status     string                 `json:"status"`
			Components map[string]interface{} `json:"components"`
		}{
			Status:     "healthy",
			Components: make(map[string]interface{}),
		}

		// Transport
		connStats := connMgr.Stats()
		connComponent := map[string]interface{}{
			"status":     string(connMgr.Status()),
			"listeners":  connStats.Listeners,
			"accepted":   connStats.Accepted,
			"reconnects": connStats.Reconnects,
		}
		if err := connMgr.Err(); err != nil {
			connComponent["error"] = err.Error()
		}
		health.Components["connection"] = connComponent
		if !connMgr.IsConnected() {
			health.Status = "degraded"
		}

		// Engine
		sets := eng.Sets()
		engComponent := map[string]interface{}{
			"state":     string(eng.State()),
			"available": len(sets.Available),
			"working":   len(sets.Working),
			"history":   len(sets.History),
		}
		if err := eng.Err(); err != nil {
			engComponent["error"] = err.Error()
			health.Status = "degraded"
		}
		health.Components["engine"] = engComponent

		// Journal database
		if pool != nil {
			if err := pool.Ping(ctx); err != nil {
				health.Status = "unhealthy"
				health.Components["journal_db"] = map[string]string{
					"status": "disconnected",
					"error":  err.Error(),
				}
			} else {
				health.Components["journal_db"] = "connected"
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if health.Status == "unhealthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(health)
	})

	mux.HandleFunc("/debug/queues", func(w http.ResponseWriter, r *http.Request) {
		sets := eng.Sets()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"available":     sets.Available,
			"working":       sets.Working,
			"history":       sets.History,
			"notifications": eng.Notifications(),
		})
	})

	return mux
}
