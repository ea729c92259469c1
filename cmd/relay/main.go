package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"housing-predictor/internal/cfg"
	"housing-predictor/internal/metrics"
	"housing-predictor/internal/relay"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	c, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	if err := c.ValidateRelay(); err != nil {
		log.Fatal().Err(err).Msg("relay config invalid")
	}
	zerolog.SetGlobalLevel(c.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := relay.NewClient(c.Relay.PredictorURL, c.RequestTimeout)
	if loaded, err := client.ModelLoaded(ctx); err != nil {
		log.Warn().Err(err).Str("predictor_url", c.Relay.PredictorURL).Msg("Prediction service not reachable yet")
	} else if !loaded {
		log.Warn().Str("predictor_url", c.Relay.PredictorURL).Msg("Prediction service has no model loaded yet")
	}

	telegram := relay.NewTelegram(c.Relay.APIURL, c.Relay.BotToken, c.Relay.PollTimeout)
	r := relay.New(client, telegram, metrics.NewWrapper(metrics.New()))

	if c.Relay.MetricsPort != 0 {
		startMetricsServer(ctx, c.Relay.MetricsPort)
	}

	if err := r.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("relay stopped")
	}
}

// startMetricsServer exposes the relay counters on /metrics
func startMetricsServer(ctx context.Context, port int) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("Starting relay metrics server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("relay metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()
}
