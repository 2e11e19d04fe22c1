// streamtest connects to a Yamcs WebSocket and streams decoded frames to console.
// Usage: go run ./cmd/streamtest --url ws://localhost:8090/simulator/_websocket /YSS/SIMULATOR/BatteryVoltage1
//
// Optional environment variables:
//
//	YAMCS_USERNAME - Username for basic authentication
//	YAMCS_PASSWORD - Password for basic authentication
//	YAMCS_TOKEN    - Bearer token, instead of username/password
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

	"golang.org/x/sync/errgroup"

	"github.com/yamcs-studio/yamcs-ws/internal/auth"
	"github.com/yamcs-studio/yamcs-ws/internal/connection"
	"github.com/yamcs-studio/yamcs-ws/internal/protocol"
	"github.com/yamcs-studio/yamcs-ws/internal/registry"
	"github.com/yamcs-studio/yamcs-ws/internal/router"
	"github.com/yamcs-studio/yamcs-ws/internal/version"
)

func main() {
	wsURL := flag.String("url", "ws://localhost:8090/simulator/_websocket", "Yamcs WebSocket URL")
	namespace := flag.String("namespace", "", "namespace for parameter names given as arguments")
	cmdHistory := flag.Bool("cmdhistory", false, "also subscribe to command history")
	verbose := flag.Bool("verbose", false, "print full message JSON")
	duration := flag.Duration("duration", 0, "stop after this long (0 runs until interrupted)")
	flag.Parse()

	// Setup logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if *duration > 0 {
		ctx, cancel = context.WithTimeout(ctx, *duration)
		defer cancel()
	}

	// Handle signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()

	creds, err := auth.LoadCredentials(os.Getenv("YAMCS_USERNAME"), os.Getenv("YAMCS_PASSWORD"), "", os.Getenv("YAMCS_TOKEN"))
	if err != nil {
		logger.Error("failed to load credentials", "error", err)
		os.Exit(1)
	}

	cfg := connection.DefaultClientConfig()
	cfg.URL = *wsURL
	cfg.UserAgent = version.UserAgent()
	cfg.Header = creds.Header()

	client := connection.NewClient(cfg, logger)
	subs := registry.New(client, logger)
	client.AddStateListener(subs)

	rtr := router.NewRouter(client.Messages(), client, logger)
	rtr.AddListener(subs)

	printer := &consolePrinter{verbose: *verbose}
	rtr.AddListener(printer)

	if err := rtr.Start(ctx); err != nil {
		logger.Error("failed to start router", "error", err)
		os.Exit(1)
	}
	if err := client.Start(ctx); err != nil {
		logger.Error("failed to start client", "error", err)
		os.Exit(1)
	}

	for _, name := range flag.Args() {
		subs.Subscribe(protocol.NamedObjectID{Name: name, Namespace: *namespace})
	}
	if *cmdHistory {
		subs.SubscribeCommandHistory()
	}

	logger.Info("connecting", "url", *wsURL, "parameters", subs.Len())
	if err := client.Connect(ctx); err != nil {
		logger.Warn("initial connection failed, retrying", "error", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	// Stats printer
	g.Go(func() error {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				routerStats := rtr.Stats()
				connStats := client.Stats()
				logger.Info("stats",
					"state", connStats.State,
					"dials", connStats.Dials,
					"sent", connStats.Sent,
					"merged", connStats.Merged,
					"dropped", connStats.Dropped,
					"pending_acks", connStats.PendingAcks,
					"router_received", routerStats.MessagesReceived,
					"parameter_batches", routerStats.ParameterBatches,
					"parse_errors", routerStats.ParseErrors,
				)
			}
		}
	})

	logger.Info("streaming started - press Ctrl+C to stop")

	// Wait for shutdown
	g.Wait()

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	logger.Info("shutting down...")
	client.Stop(shutdownCtx)
	rtr.Stop(shutdownCtx)

	logger.Info("shutdown complete")
}

// consolePrinter writes decoded events to stdout.
type consolePrinter struct {
	router.NopListener
	verbose bool
}

func (p *consolePrinter) OnParameterData(b router.ParameterBatch) {
	for _, pv := range b.Values {
		if p.verbose {
			data, _ := json.MarshalIndent(pv, "", "  ")
			fmt.Printf("[PARAMETER] %s\n", data)
			continue
		}
		fmt.Printf("[PARAMETER] id=%s type=%s value=%s monitoring=%s seq=%d\n",
			pv.ID, valueType(pv.EngValue), pv.EngValue.Text(), pv.MonitoringResult, b.Seq)
	}
}

func (p *consolePrinter) OnCommandHistory(c router.CommandHistory) {
	if p.verbose {
		data, _ := json.MarshalIndent(c.Entry, "", "  ")
		fmt.Printf("[CMDHISTORY] %s\n", data)
		return
	}
	for _, a := range c.Entry.Attr {
		fmt.Printf("[CMDHISTORY] command=%s %s=%s\n", c.Entry.CommandID, a.Name, a.Value.Text())
	}
}

func (p *consolePrinter) OnInvalidIdentification(ids []protocol.NamedObjectID) {
	for _, id := range ids {
		fmt.Printf("[INVALID] id=%s\n", id)
	}
}

func (p *consolePrinter) OnException(seq int32, exc protocol.Exception) {
	fmt.Printf("[EXCEPTION] seq=%d type=%s msg=%s\n", seq, exc.Type, exc.Message())
}

func valueType(v *protocol.Value) string {
	if v == nil {
		return "-"
	}
	return v.Type
}
