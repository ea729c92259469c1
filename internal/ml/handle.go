package ml

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// State is the lifecycle position of a Handle.
type State int

const (
	StateLoading State = iota
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "loading"
	}
}

// DefaultPollInterval is how often Load checks for the artifact to appear.
const DefaultPollInterval = 2 * time.Second

// Handle owns the load-once model. Loading happens at most once; until it
// completes every reader gets a ModelUnavailableError instead of blocking.
type Handle struct {
	path    string
	metrics MetricsInterface

	once sync.Once
	done chan struct{}

	// Written once before done is closed, read-only afterwards.
	scorer   Scorer
	metadata ModelMetadata
	err      error

	poll time.Duration
	open func(path string) (Scorer, ModelMetadata, error)
}

// NewHandle creates a handle for the artifact at path. Call Load to populate it.
func NewHandle(path string, metrics MetricsInterface) *Handle {
	return &Handle{
		path:    path,
		metrics: metrics,
		done:    make(chan struct{}),
		poll:    DefaultPollInterval,
		open:    openArtifact,
	}
}

// Ready returns a handle that already holds s. Useful for injecting stubs.
func Ready(s Scorer) *Handle {
	h := &Handle{done: make(chan struct{}), scorer: s, metadata: ModelMetadata{Kind: "custom", Version: "unknown"}}
	if md, ok := s.(interface{ Metadata() ModelMetadata }); ok {
		h.metadata = md.Metadata()
	}
	h.once.Do(func() {})
	close(h.done)
	return h
}

func openArtifact(path string) (Scorer, ModelMetadata, error) {
	m, err := Open(path)
	if err != nil {
		return nil, ModelMetadata{}, err
	}
	return m, m.Metadata(), nil
}

// Load waits up to timeout for the artifact to exist and decode. Only the
// first call does any work; later calls return the first call's result once
// it is known.
func (h *Handle) Load(ctx context.Context, timeout time.Duration) error {
	h.once.Do(func() {
		defer close(h.done)

		start := time.Now()
		scorer, md, err := h.load(ctx, timeout)
		if err != nil {
			h.err = err
			log.Error().Err(err).Str("model_path", h.path).Msg("Failed to load model")
			if h.metrics != nil {
				h.metrics.MLModelLoadedSet(false)
			}
			return
		}

		h.scorer = scorer
		h.metadata = md
		log.Info().
			Str("model_path", h.path).
			Str("kind", md.Kind).
			Str("version", md.Version).
			Dur("elapsed", time.Since(start)).
			Msg("Model loaded successfully")

		if h.metrics != nil {
			h.metrics.MLModelLoadedSet(true)
			if info, err := os.Stat(h.path); err == nil {
				h.metrics.MLModelAgeSet(time.Since(info.ModTime()).Seconds())
			}
		}
	})

	select {
	case <-h.done:
		return h.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// load polls until the artifact exists and decodes. A file that is present
// but unreadable counts as not ready, since a trainer may still be writing it.
func (h *Handle) load(ctx context.Context, timeout time.Duration) (Scorer, ModelMetadata, error) {
	log.Info().Str("model_path", h.path).Dur("timeout", timeout).Msg("Waiting for model")

	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(h.poll)
	defer ticker.Stop()

	var lastErr error
	for {
		_, err := os.Stat(h.path)
		switch {
		case err == nil:
			scorer, md, openErr := h.open(h.path)
			if openErr == nil {
				return scorer, md, nil
			}
			lastErr = openErr
		case os.IsNotExist(err):
			lastErr = nil
		default:
			return nil, ModelMetadata{}, fmt.Errorf("failed to stat model file: %w", err)
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			if lastErr != nil {
				return nil, ModelMetadata{}, fmt.Errorf("%w after %v: %w", errArtifactTimeout, timeout, lastErr)
			}
			return nil, ModelMetadata{}, fmt.Errorf("%w after %v. Run training first", errArtifactTimeout, timeout)
		}
		if lastErr != nil {
			log.Debug().Err(lastErr).Str("model_path", h.path).Dur("remaining", remaining).Msg("Model not readable yet")
		} else {
			log.Debug().Str("model_path", h.path).Dur("remaining", remaining).Msg("Model not found yet")
		}

		select {
		case <-ctx.Done():
			return nil, ModelMetadata{}, ctx.Err()
		case <-ticker.C:
		case <-time.After(remaining):
		}
	}
}

var errArtifactTimeout = errors.New("model artifact was not ready in time")

// Scorer returns the loaded model without blocking.
func (h *Handle) Scorer() (Scorer, error) {
	if h == nil {
		return nil, &ModelUnavailableError{Reason: "no model configured"}
	}
	select {
	case <-h.done:
	default:
		return nil, &ModelUnavailableError{Reason: "model is still loading"}
	}
	if h.err != nil {
		return nil, &ModelUnavailableError{Reason: "model failed to load", Err: h.err}
	}
	return h.scorer, nil
}

// State reports the lifecycle position without blocking.
func (h *Handle) State() State {
	if h == nil {
		return StateFailed
	}
	select {
	case <-h.done:
		if h.err != nil {
			return StateFailed
		}
		return StateReady
	default:
		return StateLoading
	}
}

// Path returns the artifact path the handle was created with.
func (h *Handle) Path() string {
	if h == nil {
		return ""
	}
	return h.path
}

// Metadata returns the loaded model's metadata, or false while not ready.
func (h *Handle) Metadata() (ModelMetadata, bool) {
	if h.State() != StateReady {
		return ModelMetadata{}, false
	}
	return h.metadata, true
}
