// Package api exposes the prediction pipeline over HTTP and a WebSocket chat
// socket. Routing uses gorilla/mux; every route shares the request id,
// access log, recovery and metrics middleware.
package api

import (
	"context"
	"net/http"
	"time"

	"housing-predictor/internal/metrics"
	"housing-predictor/internal/ml"
	"housing-predictor/internal/pipeline"
	"housing-predictor/internal/storage"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

// ModelState reports the model lifecycle. *ml.Handle implements it.
type ModelState interface {
	State() ml.State
	Path() string
	Metadata() (ml.ModelMetadata, bool)
}

// Journal records served predictions. *storage.Store implements it.
type Journal interface {
	Append(entry storage.Entry) (storage.Entry, error)
	Recent(limit int) ([]storage.Entry, error)
}

// MetricsInterface defines metrics methods needed by the HTTP layer
type MetricsInterface interface {
	ObserveHTTP(route string, code int, elapsed time.Duration)
	WSConnections() metrics.MetricsGauge
	ErrorsTotal() metrics.MetricsCounter
}

// Options configures a Server. Journal, Metrics and Gatherer are optional;
// leave Journal nil (not a typed nil pointer) to disable the journal.
type Options struct {
	Assembler *pipeline.Assembler
	Model     ModelState
	Journal   Journal
	Metrics   MetricsInterface
	Gatherer  prometheus.Gatherer

	RequestTimeout time.Duration
	MaxFrameBytes  int64
}

// Server serves the prediction API.
type Server struct {
	assembler *pipeline.Assembler
	model     ModelState
	journal   Journal
	metrics   MetricsInterface
	gatherer  prometheus.Gatherer

	upgrader      websocket.Upgrader
	maxFrameBytes int64
	timeout       time.Duration

	router *mux.Router
	server *http.Server
}

const (
	defaultRequestTimeout = 10 * time.Second
	defaultMaxFrameBytes  = 4096
	maxBodyBytes          = 1 << 16
)

// New creates a server and registers its routes.
func New(opts Options) *Server {
	s := &Server{
		assembler:     opts.Assembler,
		model:         opts.Model,
		journal:       opts.Journal,
		metrics:       opts.Metrics,
		gatherer:      opts.Gatherer,
		upgrader:      websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		maxFrameBytes: opts.MaxFrameBytes,
		timeout:       opts.RequestTimeout,
	}
	if s.maxFrameBytes <= 0 {
		s.maxFrameBytes = defaultMaxFrameBytes
	}
	if s.timeout <= 0 {
		s.timeout = defaultRequestTimeout
	}

	r := mux.NewRouter()
	r.Use(s.withRequestID, s.withAccessLog, s.withRecovery)

	r.HandleFunc("/", s.handleRoot).Methods(http.MethodGet)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/predict", s.handlePredict).Methods(http.MethodPost)
	r.HandleFunc("/predict-from-string", s.handlePredictFromString).Methods(http.MethodPost)
	r.HandleFunc("/predictions/recent", s.handleRecent).Methods(http.MethodGet)
	r.Handle("/metrics", s.metricsHandler()).Methods(http.MethodGet)
	r.HandleFunc("/ws", s.handleWebSocket).Methods(http.MethodGet)

	s.router = r
	return s
}

// Handler returns the routed handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on addr and blocks until the server stops.
func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       s.timeout,
		WriteTimeout:      s.timeout,
		IdleTimeout:       120 * time.Second,
	}

	log.Info().Str("addr", addr).Msg("Starting prediction API")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
