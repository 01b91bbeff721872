package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"go.temporal.io/sdk/client"
	tlog "go.temporal.io/sdk/log"
	"go.temporal.io/sdk/worker"

	"github.com/leowmjw/go-keyframe-schedule/pkg/http"
	"github.com/leowmjw/go-keyframe-schedule/pkg/loader"
	"github.com/leowmjw/go-keyframe-schedule/pkg/temporal"
)

func main() {
	var (
		httpAddr     = flag.String("http-addr", ":8080", "HTTP server address")
		temporalAddr = flag.String("temporal-addr", "localhost:7233", "Temporal server address")
		namespace    = flag.String("namespace", "default", "Temporal namespace")
		taskQueue    = flag.String("task-queue", temporal.DefaultTaskQueue, "Temporal task queue")
		logLevel     = flag.String("log-level", "info", "Log level (debug, info, warn, error)")
		preload      = flag.String("schedules", "", "Optional schedule file or HCL directory to register at startup")
	)
	flag.Parse()

	// Setup logger
	var logHandler slog.Handler
	switch *logLevel {
	case "debug":
		logHandler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	case "warn":
		logHandler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn})
	case "error":
		logHandler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError})
	default:
		logHandler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	logger := slog.New(logHandler)
	slog.SetDefault(logger)

	logger.Info("Starting keyframe schedule service",
		"http_addr", *httpAddr,
		"temporal_addr", *temporalAddr,
		"namespace", *namespace,
		"task_queue", *taskQueue,
	)

	store := temporal.NewMemoryStore()
	if *preload != "" {
		if err := preloadSchedule(context.Background(), store, *preload, logger); err != nil {
			logger.Error("Failed to preload schedule", "path", *preload, "error", err)
			os.Exit(1)
		}
	}

	// Create Temporal client
	temporalClient, err := client.Dial(client.Options{
		HostPort:  *temporalAddr,
		Namespace: *namespace,
		Logger:    tlog.NewStructuredLogger(logger),
	})
	if err != nil {
		logger.Error("Failed to create Temporal client", "error", err)
		os.Exit(1)
	}
	defer temporalClient.Close()

	// Create activities
	activities := temporal.NewActivitiesImpl(logger, store)

	// Create and start Temporal worker
	w := worker.New(temporalClient, *taskQueue, worker.Options{})
	temporal.Register(w, activities)

	// Start worker in background
	go func() {
		logger.Info("Starting Temporal worker", "task_queue", *taskQueue)
		if err := w.Run(worker.InterruptCh()); err != nil {
			logger.Error("Temporal worker failed", "error", err)
			os.Exit(1)
		}
	}()

	// Create and start HTTP server
	server := http.NewServer(logger, temporalClient, store, *httpAddr).WithTaskQueue(*taskQueue)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start server in background
	go func() {
		if err := server.Start(ctx); err != nil {
			logger.Error("HTTP server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	<-sigChan
	logger.Info("Received shutdown signal, stopping services...")

	// Cancel context to stop HTTP server
	cancel()

	logger.Info("Keyframe schedule service stopped")
}

// preloadSchedule registers the schedule at path under its declared name,
// or the file name when the document has none
func preloadSchedule(ctx context.Context, store temporal.ScheduleStore, path string, logger *slog.Logger) error {
	def, err := loader.LoadPath(path)
	if err != nil {
		return err
	}

	name := def.Name
	if name == "" {
		name = scheduleNameFromPath(path)
	}
	if err := store.PutSchedule(ctx, name, *def); err != nil {
		return err
	}

	logger.Info("Preloaded schedule", "schedule", name, "path", path, "keyframes", len(def.Frames))
	return nil
}

func scheduleNameFromPath(path string) string {
	base := filepath.Base(filepath.Clean(path))
	return strings.TrimSuffix(base, filepath.Ext(base))
}
