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

	"github.com/prometheus/client_golang/prometheus/promhttp"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/your-org/discid/internal/config"
	"github.com/your-org/discid/internal/encoder"
	"github.com/your-org/discid/internal/matcher"
	"github.com/your-org/discid/internal/models"
	"github.com/your-org/discid/internal/observability"
	"github.com/your-org/discid/internal/queue"
	"github.com/your-org/discid/internal/storage"
)

// staleAfter is how long a disc may sit in "pending" upload_status before
// the reaper cancels it. A pending disc means its owner started a
// registration and never confirmed it: the row and its blobs are just as
// abandoned as if the client had crashed mid-upload.
const staleAfter = 1 * time.Hour

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	observability.SetupLogger(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("starting discid reaper worker", "stale_after", staleAfter.String())

	ort.SetSharedLibraryPath(getONNXLibPath())
	if err := ort.InitializeEnvironment(); err != nil {
		slog.Error("init onnx runtime", "error", err)
		os.Exit(1)
	}
	defer ort.DestroyEnvironment()

	db, err := storage.NewPostgresStore(cfg.Database)
	if err != nil {
		slog.Error("connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	blobs, err := storage.NewBlobStore(*cfg)
	if err != nil {
		slog.Error("connect to blob store", "error", err)
		os.Exit(1)
	}

	producer, err := queue.NewProducer(cfg.NATS.URL)
	if err != nil {
		slog.Error("connect to nats producer", "error", err)
		os.Exit(1)
	}
	defer producer.Close()

	if err := producer.EnsureStream(context.Background()); err != nil {
		slog.Warn("ensure nats stream", "error", err)
	}

	registry, err := encoder.NewRegistry(cfg.Encoder)
	if err != nil {
		slog.Error("encoder registry init failed", "error", err)
		os.Exit(1)
	}
	defer registry.Close()

	m := matcher.New(*cfg, db, blobs, registry, producer)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go runReapLoop(ctx, db, m)

	// Metrics endpoint
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		})
		slog.Info("worker metrics listening", "addr", ":8082")
		if err := http.ListenAndServe(":8082", mux); err != nil {
			slog.Error("metrics server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down reaper worker...")
	cancel()
	time.Sleep(2 * time.Second)
	slog.Info("reaper worker stopped")
}

func runReapLoop(ctx context.Context, db *storage.PostgresStore, m *matcher.Matcher) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	reapStalePending(ctx, db, m)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			reapStalePending(ctx, db, m)
		}
	}
}

func reapStalePending(ctx context.Context, db *storage.PostgresStore, m *matcher.Matcher) {
	pending, err := db.ListDiscs(ctx, models.DiscFilter{UploadStatus: models.UploadStatusPending, Limit: 1000})
	if err != nil {
		slog.Error("reap: list pending discs", "error", err)
		return
	}

	cutoff := time.Now().Add(-staleAfter)
	reaped := 0
	for _, disc := range pending {
		if disc.CreatedAt.After(cutoff) {
			continue
		}
		if err := m.Cancel(ctx, disc.ID); err != nil {
			slog.Warn("reap: cancel stale disc failed", "disc_id", disc.ID, "error", err)
			continue
		}
		reaped++
	}
	if reaped > 0 {
		slog.Info("reaped stale pending discs", "count", reaped)
	}
}

func getONNXLibPath() string {
	if v := os.Getenv("ONNXRUNTIME_SHARED_LIBRARY_PATH"); v != "" {
		return v
	}
	return "libonnxruntime.so"
}
