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

	"github.com/nats-io/nats.go/jetstream"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/your-org/discid/internal/api"
	"github.com/your-org/discid/internal/api/ws"
	"github.com/your-org/discid/internal/config"
	"github.com/your-org/discid/internal/encoder"
	"github.com/your-org/discid/internal/matcher"
	"github.com/your-org/discid/internal/observability"
	"github.com/your-org/discid/internal/queue"
	"github.com/your-org/discid/internal/storage"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	observability.SetupLogger(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("starting discid API service", "port", cfg.Server.Port)

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
	if minio, ok := blobs.(*storage.MinIOStore); ok {
		if err := minio.EnsureBucket(context.Background()); err != nil {
			slog.Warn("ensure minio bucket", "error", err)
		}
	}

	producer, err := queue.NewProducer(cfg.NATS.URL)
	if err != nil {
		slog.Error("connect to nats", "error", err)
		os.Exit(1)
	}
	defer producer.Close()

	if err := producer.EnsureStream(context.Background()); err != nil {
		slog.Warn("ensure nats stream", "error", err)
	}

	// Live event feed: a dedicated consumer rebroadcasts domain events over
	// the WebSocket hub so dashboards see registrations/searches as they
	// happen.
	hub := ws.NewHub()
	go hub.Run()

	consumer, err := queue.NewConsumer(cfg.NATS.URL)
	if err != nil {
		slog.Error("create event consumer", "error", err)
		os.Exit(1)
	}
	defer consumer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err = consumer.ConsumeEvents(ctx, "api-ws-feed", func(ctx context.Context, msg jetstream.Msg) error {
		var evt queue.Event
		if err := json.Unmarshal(msg.Data(), &evt); err != nil {
			return err
		}
		hub.BroadcastEvent(&evt)
		return nil
	})
	if err != nil {
		slog.Warn("start event consumer", "error", err)
	}

	ort.SetSharedLibraryPath(getONNXLibPath())
	if err := ort.InitializeEnvironment(); err != nil {
		slog.Error("onnx runtime init failed", "error", err)
		os.Exit(1)
	}
	defer ort.DestroyEnvironment()

	registry, err := encoder.NewRegistry(cfg.Encoder)
	if err != nil {
		slog.Error("encoder registry init failed", "error", err)
		os.Exit(1)
	}
	defer registry.Close()

	m := matcher.New(*cfg, db, blobs, registry, producer)

	router := api.NewRouter(api.RouterConfig{
		APIKey:   cfg.Server.APIKey,
		DB:       db,
		Blobs:    blobs,
		Producer: producer,
		Matcher:  m,
		Hub:      hub,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("API server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down API server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("API server stopped")
}

func getONNXLibPath() string {
	if v := os.Getenv("ONNXRUNTIME_SHARED_LIBRARY_PATH"); v != "" {
		return v
	}
	return "libonnxruntime.so"
}
