// monitor keeps a set of Yamcs parameter subscriptions alive across
// reconnects, logs received values and optionally archives them.
// Usage: go run ./cmd/monitor --config configs/monitor.example.yaml
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

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yamcs-studio/yamcs-ws/internal/api"
	"github.com/yamcs-studio/yamcs-ws/internal/archive"
	"github.com/yamcs-studio/yamcs-ws/internal/auth"
	"github.com/yamcs-studio/yamcs-ws/internal/config"
	"github.com/yamcs-studio/yamcs-ws/internal/connection"
	"github.com/yamcs-studio/yamcs-ws/internal/database"
	"github.com/yamcs-studio/yamcs-ws/internal/registry"
	"github.com/yamcs-studio/yamcs-ws/internal/router"
	"github.com/yamcs-studio/yamcs-ws/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/monitor.example.yaml", "path to config file")
	debug := flag.Bool("debug", false, "log every received value")
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	logger.Info("starting monitor",
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

	wsURL, err := cfg.Server.WebSocketURL()
	if err != nil {
		logger.Error("invalid server url", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"instance_id", cfg.Instance.ID,
		"server_url", cfg.Server.URL,
		"ws_url", wsURL,
		"yamcs_instance", cfg.Server.Instance,
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

	creds, err := auth.LoadCredentials(cfg.Server.Username, cfg.Server.Password, cfg.Server.PasswordFile, cfg.Server.Token)
	if err != nil {
		logger.Error("failed to load credentials", "error", err)
		os.Exit(1)
	}

	userAgent := cfg.Server.UserAgent
	if userAgent == "" {
		userAgent = version.UserAgent()
	}

	// Create API client
	apiClient := api.NewClient(
		cfg.Server.URL,
		creds,
		api.WithLogger(logger),
		api.WithTimeout(cfg.Server.Timeout),
		api.WithRetries(cfg.Server.MaxRetries, time.Second),
		api.WithUserAgent(userAgent),
	)

	// Check the server. A server that is down is not fatal: the client
	// keeps retrying until it comes up.
	if info, err := apiClient.GetServerInfo(ctx); err != nil {
		logger.Warn("server not reachable", "error", err)
	} else {
		logger.Info("server reachable",
			"yamcs_version", info.YamcsVersion,
			"server_id", info.ServerID,
		)
	}

	ids, err := resolveSubscriptions(ctx, apiClient, cfg, logger)
	if err != nil {
		logger.Error("failed to resolve subscriptions", "error", err)
		os.Exit(1)
	}

	// Create WebSocket client
	clientCfg := connection.ClientConfig{
		URL:              wsURL,
		UserAgent:        userAgent,
		Header:           creds.Header(),
		MergeWindow:      cfg.Client.MergeWindow,
		ReconnectDelay:   cfg.Client.ReconnectDelay,
		HandshakeTimeout: cfg.Client.HandshakeTimeout,
		WriteTimeout:     cfg.Client.WriteTimeout,
		CloseTimeout:     cfg.Client.CloseTimeout,
		PingInterval:     cfg.Client.PingInterval,
		BufferSize:       cfg.Client.BufferSize,
		QueueSize:        cfg.Client.QueueSize,
	}
	client := connection.NewClient(clientCfg, logger)

	subs := registry.New(client, logger)
	client.AddStateListener(subs)

	rtr := router.NewRouter(client.Messages(), client, logger)
	rtr.AddListener(subs)
	rtr.AddListener(newValueLogger(logger))

	// Optional archive
	var (
		pool   *pgxpool.Pool
		writer *archive.ParameterWriter
	)
	if cfg.Archive.Enabled {
		pool, writer, err = startArchive(ctx, cfg, client.ID(), logger)
		if err != nil {
			logger.Error("failed to start archive", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		rtr.AddListener(writer)
	}

	// Start health server early so we can watch the connection come up
	healthServer := &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.Health.Port),
		Handler: newHealthHandler(cfg.Health.Path, healthSources{
			client:   client,
			router:   rtr,
			registry: subs,
			writer:   writer,
			db:       pingerOrNil(pool),
		}),
	}

	go func() {
		logger.Info("starting health server", "port", cfg.Health.Port)
		if err := healthServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("health server error", "error", err)
		}
	}()

	if err := rtr.Start(ctx); err != nil {
		logger.Error("failed to start router", "error", err)
		os.Exit(1)
	}
	if err := client.Start(ctx); err != nil {
		logger.Error("failed to start client", "error", err)
		os.Exit(1)
	}

	subs.Subscribe(ids...)
	if cfg.Subscriptions.CommandHistory {
		subs.SubscribeCommandHistory()
	}

	if err := client.Connect(ctx); err != nil {
		logger.Warn("initial connection failed, retrying in background",
			"error", err,
			"reconnect_delay", cfg.Client.ReconnectDelay,
		)
	}

	logger.Info("monitor running",
		"instance_id", cfg.Instance.ID,
		"parameters", subs.Len(),
		"health_url", fmt.Sprintf("http://localhost:%d%s", cfg.Health.Port, cfg.Health.Path),
	)

	// Wait for shutdown
	<-ctx.Done()

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := client.Stop(shutdownCtx); err != nil {
		logger.Warn("client stop failed", "error", err)
	}
	if err := rtr.Stop(shutdownCtx); err != nil {
		logger.Warn("router stop failed", "error", err)
	}
	if writer != nil {
		writer.Stop(shutdownCtx)
	}
	healthServer.Shutdown(shutdownCtx)

	logger.Info("monitor stopped")
}

// startArchive connects to the database, creates the schema and starts the writer.
func startArchive(ctx context.Context, cfg *config.MonitorConfig, session uuid.UUID, logger *slog.Logger) (*pgxpool.Pool, *archive.ParameterWriter, error) {
	db := cfg.Archive.Database
	logger.Info("connecting to database",
		"host", db.Host,
		"port", db.Port,
		"database", db.Name,
	)

	pool, err := database.Connect(ctx, db)
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}

	if err := database.EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, err
	}

	writer := archive.NewParameterWriter(archive.WriterConfig{
		MonitorID:     cfg.Instance.ID,
		BatchSize:     cfg.Archive.BatchSize,
		FlushInterval: cfg.Archive.FlushInterval,
	}, session, pool, logger)

	if err := writer.Start(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("start writer: %w", err)
	}

	logger.Info("database connected")
	return pool, writer, nil
}

func pingerOrNil(pool *pgxpool.Pool) pinger {
	if pool == nil {
		return nil
	}
	return pool
}
