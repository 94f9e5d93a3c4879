// Package main runs the CreditFlow editing server: the workflow HTTP API plus
// health and Prometheus endpoints.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/flowgraph/creditflow/internal/adapters/httpapi"
	"github.com/flowgraph/creditflow/internal/adapters/repository/memory"
	"github.com/flowgraph/creditflow/internal/adapters/repository/sqlite"
	"github.com/flowgraph/creditflow/internal/app/store"
	"github.com/flowgraph/creditflow/internal/core/draft"
	"github.com/flowgraph/creditflow/internal/infrastructure/config"
	"github.com/flowgraph/creditflow/internal/infrastructure/logging"
	"github.com/flowgraph/creditflow/internal/infrastructure/metrics"
	"github.com/flowgraph/creditflow/pkg/serialization"
	"github.com/flowgraph/creditflow/pkg/validation"
)

func main() {
	configPath := flag.String("config", os.Getenv("CREDITFLOW_CONFIG"), "path to a YAML config file")
	flag.Parse()

	cfg, err := config.NewLoader().WithConfigPath(*configPath).Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "creditflow-server: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "creditflow-server: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server stopped", zap.Error(err))
		os.Exit(1)
	}
}

// draftStore is a draft.Saver that owns resources.
type draftStore interface {
	draft.Saver
	io.Closer
}

// app holds the wired components behind the server.
type app struct {
	handler http.Handler
	drafts  draftStore
}

func newApp(cfg *config.Config, logger *zap.Logger, reg *prometheus.Registry) (*app, error) {
	format, err := serialization.ParseFormat(cfg.Export.Format)
	if err != nil {
		return nil, err
	}
	serializer, err := draftSerializer(cfg.Drafts)
	if err != nil {
		return nil, err
	}

	rec := metrics.NewRecorder(reg)
	st := store.New(store.Config{
		HistoryLimit: cfg.History.Limit,
		Format:       format,
		Logger:       logger,
		Metrics:      rec,
	})
	drafts, err := newDraftStore(cfg.Drafts, serializer, logger, rec)
	if err != nil {
		return nil, err
	}

	api := httpapi.NewHandler(st, drafts, logger, rec, httpapi.WithValidation(&validation.Config{
		MaxErrors:    cfg.Validation.MaxErrors,
		MaxBodyBytes: cfg.Validation.MaxBodyBytes,
	}))

	mux := http.NewServeMux()
	mux.Handle("/api/", api)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprint(w, "ok")
	})
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	return &app{
		handler: httpapi.Chain(mux, httpapi.Recovery(logger), httpapi.RequestLogger(logger)),
		drafts:  drafts,
	}, nil
}

func newDraftStore(cfg config.DraftsConfig, serializer *serialization.Serializer, logger *zap.Logger, rec *metrics.Recorder) (draftStore, error) {
	if cfg.Backend == "sqlite" {
		return sqlite.OpenMemory(context.Background(), sqlite.DraftSaverConfig{
			Serializer: serializer,
			Logger:     logger,
			Metrics:    rec,
		})
	}
	return memory.NewDraftSaver(memory.DraftSaverConfig{
		DefaultTTL:  cfg.TTL,
		MaxMemoryMB: cfg.MaxMemoryMB,
		Serializer:  serializer,
		Logger:      logger,
		Metrics:     rec,
	}), nil
}

func draftSerializer(cfg config.DraftsConfig) (*serialization.Serializer, error) {
	codec, err := serialization.CodecByName(cfg.Codec)
	if err != nil {
		return nil, err
	}
	compression, err := serialization.ParseCompression(cfg.Compression)
	if err != nil {
		return nil, err
	}
	key, err := cfg.Key()
	if err != nil {
		return nil, err
	}
	return serialization.NewSerializer(serialization.SerializationConfig{
		Codec:       codec,
		Compression: compression,
		EncryptKey:  key,
	}), nil
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	a, err := newApp(cfg, logger, reg)
	if err != nil {
		return err
	}
	defer func() { _ = a.drafts.Close() }()

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      a.handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting CreditFlow server", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down", zap.Duration("timeout", cfg.Server.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
