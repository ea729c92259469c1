package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"housing-predictor/internal/api"
	"housing-predictor/internal/cfg"
	"housing-predictor/internal/format"
	"housing-predictor/internal/metrics"
	"housing-predictor/internal/ml"
	"housing-predictor/internal/pipeline"
	"housing-predictor/internal/storage"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	c, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	zerolog.SetGlobalLevel(c.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.New()
	mw := metrics.NewWrapper(m)

	// The server starts answering immediately; until the model is loaded
	// predictions report model unavailable.
	handle := ml.NewHandle(c.ModelPath, mw)
	var wg sync.WaitGroup
	startModelLoader(ctx, &wg, handle, c.ModelWaitTimeout)

	assembler := pipeline.New(
		ml.NewAdapter(handle, mw),
		format.New(c.PriceMultiplier, c.ExchangeRate, c.TargetTransform),
		mw,
	)

	opts := api.Options{
		Assembler:      assembler,
		Model:          handle,
		Metrics:        mw,
		RequestTimeout: c.RequestTimeout,
	}
	if store := initializeStorage(c); store != nil {
		defer store.Close()
		opts.Journal = store
	}

	server := api.New(opts)
	go func() {
		if err := server.Start(c.Addr()); err != nil {
			log.Error().Err(err).Msg("API server failed")
			cancel()
		}
	}()

	waitForShutdown(ctx, cancel, server, &wg)
}

// initializeStorage opens the journal if DATA_PATH is configured
func initializeStorage(c cfg.Settings) *storage.Store {
	if c.DataPath == "" {
		return nil
	}
	store, err := storage.New(c.DataPath)
	if err != nil {
		log.Warn().Err(err).Msg("journal initialization failed, continuing without persistence")
		return nil
	}
	log.Info().Str("data_path", c.DataPath).Msg("Prediction journal enabled")
	return store
}

func startModelLoader(ctx context.Context, wg *sync.WaitGroup, handle *ml.Handle, timeout time.Duration) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := handle.Load(ctx, timeout); err != nil {
			log.Error().Err(err).Msg("Model unavailable, serving errors until restart")
		}
	}()
}

// waitForShutdown waits for shutdown signals and handles graceful shutdown
func waitForShutdown(ctx context.Context, cancel context.CancelFunc, server *api.Server, wg *sync.WaitGroup) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		log.Info().Msg("shutdown signal received")
	case <-ctx.Done():
		log.Info().Msg("context canceled")
	}

	log.Info().Msg("shutting down gracefully...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("API server shutdown failed")
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info().Msg("all goroutines stopped")
	case <-shutdownCtx.Done():
		log.Warn().Msg("shutdown timeout, forcing exit")
	}
}
