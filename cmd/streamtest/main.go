// streamtest connects to the warehouse push stream and prints accepted
// events to the console.
// Usage: go run ./cmd/streamtest --config configs/ordersyncd.local.yaml
//
// The bearer token comes from the config file (api.token supports ${VAR}
// expansion, api.token_file takes precedence).
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warehousehq/ordersync/internal/auth"
	"github.com/warehousehq/ordersync/internal/config"
	"github.com/warehousehq/ordersync/internal/connection"
	"github.com/warehousehq/ordersync/internal/event"
)

func main() {
	configPath := flag.String("config", "configs/ordersyncd.example.yaml", "path to config file")
	verbose := flag.Bool("verbose", false, "print full event JSON")
	flag.Parse()

	// Setup logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	// Load config
	cfg, err := config.LoadWithDefaults(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()

	// Load credentials
	creds, err := auth.LoadCredentials(cfg.API.Token, cfg.API.TokenFile)
	if err != nil {
		logger.Error("failed to load credentials", "error", err)
		logger.Info("set api.token (or the WMS_TOKEN environment variable) in the config")
		os.Exit(1)
	}

	// Connection manager
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

	unreg := connMgr.RegisterListener(func(ev event.Event) {
		printEvent(ev, *verbose)
	})
	defer unreg()

	if err := connMgr.Connect(ctx); err != nil {
		logger.Error("failed to open transport", "error", err)
		os.Exit(1)
	}

	// Stats printer
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				stats := connMgr.Stats()
				logger.Info("stats",
					"status", connMgr.Status(),
					"accepted", stats.Accepted,
					"deduplicated", stats.Deduplicated,
					"parse_errors", stats.ParseErrors,
					"reconnects", stats.Reconnects,
				)
			}
		}
	}()

	logger.Info("streaming started - press Ctrl+C to stop", "url", cfg.API.WSURL)

	// Wait for shutdown
	<-ctx.Done()

	logger.Info("shutting down...")
	connMgr.Disconnect()
	logger.Info("shutdown complete")
}

func printEvent(ev event.Event, verbose bool) {
	if verbose {
		data, _ := json.MarshalIndent(ev, "", "  ")
		fmt.Printf("[EVENT] %s\n", data)
		return
	}

	switch ev.Type {
	case event.TypeStatusChange:
		fmt.Printf("[STATUS] order=%s %s -> %s ts=%d\n",
			ev.OrderID, ev.OldStatus, ev.NewStatus, ev.ServerTS)
	case event.TypeAssignment:
		fmt.Printf("[ASSIGN] order=%s worker=%s ts=%d\n",
			ev.OrderID, ev.WorkerID, ev.ServerTS)
	case event.TypeBulkUpdate:
		fmt.Printf("[BULK] orders=%d detail=%q ts=%d\n",
			len(ev.OrderIDs), ev.Detail, ev.ServerTS)
	}
}
