package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"housing-predictor/internal/features"
	"housing-predictor/internal/ml"
	"housing-predictor/internal/pipeline"
	"housing-predictor/internal/storage"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Journal sources
const (
	SourcePredict    = "predict"
	SourceFromString = "predict-from-string"
	SourceWebSocket  = "ws"
)

// StringRequest is the /predict-from-string body.
type StringRequest struct {
	Input *string `json:"input"`
}

type rootResponse struct {
	Msg         string `json:"msg"`
	ModelLoaded bool   `json:"model_loaded"`
}

// HealthResponse is the /health body.
type HealthResponse struct {
	Status       string `json:"status"`
	ModelLoaded  bool   `json:"model_loaded"`
	ModelPath    string `json:"model_path"`
	ModelVersion string `json:"model_version,omitempty"`
	ModelKind    string `json:"model_kind,omitempty"`
}

type recentResponse struct {
	Entries []storage.Entry `json:"entries"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, rootResponse{
		Msg:         "Housing Price Predictor API",
		ModelLoaded: s.modelState() == ml.StateReady,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{}
	if s.model != nil {
		resp.ModelPath = s.model.Path()
	}

	status := http.StatusServiceUnavailable
	switch s.modelState() {
	case ml.StateReady:
		status = http.StatusOK
		resp.Status = "healthy"
		resp.ModelLoaded = true
		if md, ok := s.model.Metadata(); ok {
			resp.ModelVersion = md.Version
			resp.ModelKind = md.Kind
		}
	case ml.StateLoading:
		resp.Status = "loading"
	default:
		resp.Status = "unavailable"
	}

	s.writeJSON(w, r, status, resp)
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req features.Named
	if err := decodeBody(w, r, &req); err != nil {
		s.writeResult(w, r, http.StatusUnprocessableEntity, invalidBody(err))
		return
	}

	result := s.assembler.FromNamed(req)
	s.record(r, SourcePredict, namedInput(req), result)

	status := statusFor(result)
	if result.Stage == pipeline.StageParse {
		// Missing or non-finite fields are a structural problem with the body.
		status = http.StatusUnprocessableEntity
	}
	s.writeResult(w, r, status, result)
}

func (s *Server) handlePredictFromString(w http.ResponseWriter, r *http.Request) {
	var req StringRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeResult(w, r, http.StatusUnprocessableEntity, invalidBody(err))
		return
	}
	if req.Input == nil {
		s.writeResult(w, r, http.StatusUnprocessableEntity, invalidBody(fmt.Errorf("field %q is required", "input")))
		return
	}

	result := s.assembler.FromString(*req.Input)
	s.record(r, SourceFromString, *req.Input, result)
	s.writeResult(w, r, statusFor(result), result)
}

func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		s.writeResult(w, r, http.StatusNotFound, errorResult("Prediction journal is not configured"))
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.writeResult(w, r, http.StatusBadRequest, errorResult(fmt.Sprintf("limit must be a non-negative integer, got %q", v)))
			return
		}
		limit = n
	}

	entries, err := s.journal.Recent(limit)
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("Failed to read journal")
		s.countError()
		s.writeResult(w, r, http.StatusInternalServerError, errorResult("Failed to read prediction journal"))
		return
	}
	s.writeJSON(w, r, http.StatusOK, recentResponse{Entries: entries})
}

func (s *Server) metricsHandler() http.Handler {
	if s.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})
}

func (s *Server) modelState() ml.State {
	if s.model == nil {
		return ml.StateFailed
	}
	return s.model.State()
}

// record journals a served request. Journal failures are logged and counted
// but never change the response.
func (s *Server) record(r *http.Request, source, input string, result pipeline.Result) {
	if s.journal == nil {
		return
	}

	entry := storage.Entry{
		Source:  source,
		Input:   input,
		Status:  result.Status,
		Message: result.Message,
	}
	if result.Prediction != nil {
		entry.EUR = result.EUR
		entry.USD = result.USD
	}

	if _, err := s.journal.Append(entry); err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Msg("Failed to journal prediction")
		s.countError()
	}
}

func (s *Server) countError() {
	if s.metrics != nil {
		s.metrics.ErrorsTotal().Inc()
	}
}

// statusFor maps the failing stage to an HTTP status code.
func statusFor(result pipeline.Result) int {
	switch result.Stage {
	case pipeline.StageNone:
		return http.StatusOK
	case pipeline.StageParse:
		return http.StatusBadRequest
	case pipeline.StageModelUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return err
	}
	return nil
}

func invalidBody(err error) pipeline.Result {
	return errorResult("Invalid request body: " + err.Error())
}

func errorResult(message string) pipeline.Result {
	return pipeline.Result{Status: pipeline.StatusError, Message: message}
}

func namedInput(n features.Named) string {
	data, err := json.Marshal(n)
	if err != nil {
		return ""
	}
	return string(data)
}

func (s *Server) writeResult(w http.ResponseWriter, r *http.Request, status int, result pipeline.Result) {
	s.writeJSON(w, r, status, result)
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Int("status", status).Msg("Failed to encode response")
		s.countError()
	}
}
