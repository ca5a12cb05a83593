package main

import (
	"board-lab/infrastructure/ws"
	"board-lab/internal"
	"board-lab/observability"
	"board-lab/repositories"
	"board-lab/runtime"
	"board-lab/runtime/workers"
	"board-lab/sink"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/mama165/sdk-go/logs"
)

const shutdownTimeout = 5 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the server lifecycle, and centralizes error reporting.
// Every deferred cleanup runs before the process exits.
func run() error {
	// 1. Configuration & Logger
	config, err := internal.LoadConfig()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Journal (in-memory BadgerDB)
	db, err := repositories.OpenInMemory()
	if err != nil {
		return fmt.Errorf("journal opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing journal...")
		_ = db.Close()
	}()
	journal := repositories.NewJournalRepository(db, log, config.JournalLimit)

	// 3. Setup Supervision & Orchestration
	monitoring := observability.NewMonitoringManager(log)
	orchestrator := runtime.NewOrchestrator(
		log,
		workers.NewSupervisor(log, config.RestartInterval),
		runtime.NewRegistry(),
		runtime.NewRoomRegistry(),
		monitoring,
		runtime.Settings{
			NumWorkers:    config.NumberOfWorkers,
			BufferSize:    config.BufferSize,
			SinkTimeout:   config.SinkTimeout,
			ReplayHistory: config.ReplayHistory,
			StatsInterval: config.StatsInterval,
		},
	)
	orchestrator.Add(sink.NewJournalSink(journal, log), monitoring)

	// 4. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 5. Start the Engine
	engineDone := make(chan struct{})
	go func() {
		defer close(engineDone)
		orchestrator.Start(ctx)
	}()

	errChan := make(chan error, 3)

	// 6. WebSocket Server
	router := mux.NewRouter()
	router.Handle("/ws", ws.NewServer(log, orchestrator, ws.Settings{
		ConnectionBufferSize: config.ConnectionBufferSize,
		DispatchTimeout:      config.DispatchTimeout,
		WriteTimeout:         config.WriteTimeout,
		PongTimeout:          config.PongTimeout,
		MaxMessageSize:       int64(config.MaxMessageSize),
	}))
	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info("Starting WebSocket server", "address", httpServer.Addr, "at", time.Now().UTC())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("websocket server error: %w", err)
		}
	}()

	// 7. Debug Server
	var debugServer *http.Server
	if config.DebugPort > 0 {
		debug := internal.NewDebugServer(log, orchestrator, monitoring, journal, config.DispatchTimeout)
		debugServer = &http.Server{
			Addr:              fmt.Sprintf("%s:%d", config.Host, config.DebugPort),
			Handler:           debug.Router(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			log.Info("Starting debug server", "address", debugServer.Addr)
			if err := debugServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- fmt.Errorf("debug server error: %w", err)
			}
		}()
	}

	// 8. gRPC Health Server
	opsAddress := fmt.Sprintf("%s:%d", config.Host, config.OpsPort)
	listener, err := net.Listen("tcp", opsAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", opsAddress, err)
	}
	healthServer := internal.NewHealthServer(log)
	go func() {
		if err := healthServer.Serve(listener); err != nil {
			errChan <- fmt.Errorf("gRPC health server error: %w", err)
		}
	}()
	healthServer.SetServing(true)

	// 9. Wait for Stop or Error
	var runErr error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case runErr = <-errChan:
		log.Error("Server failure, shutting down", "error", runErr)
	}

	// 10. Final Cleanup
	healthServer.SetServing(false)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("WebSocket server shutdown failed", "error", err)
	}
	if debugServer != nil {
		_ = debugServer.Shutdown(shutdownCtx)
	}
	stop()
	orchestrator.Stop()
	<-engineDone
	healthServer.Stop()
	log.Info("Program stopped cleanly")

	return runErr
}
