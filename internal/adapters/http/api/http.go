// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	service "github.com/okian/talentscore/internal/app"
	"github.com/okian/talentscore/internal/domain/assessment"
	"github.com/okian/talentscore/internal/domain/signal"
)

// MaxBodyBytes caps every request body.
const MaxBodyBytes = 8 << 20

// Dependencies required by HTTP handlers.
type Dependencies interface {
	AnalyzeVideo(ctx context.Context, req service.VideoRequest) (service.VideoResult, error)
	AnalyzeAudio(ctx context.Context, w signal.Waveform) signal.AudioReport
	AnalyzeAudioSource(ctx context.Context, locator string) signal.AudioReport
	AnalyzeMovement(ctx context.Context, frames []signal.LandmarkFrame, capFrames int) signal.MovementReport
	AnalyzeExpression(ctx context.Context, frames []signal.LandmarkFrame, capFrames int) signal.ExpressionReport
	SubmitBatch(ctx context.Context, reqs []assessment.Request) (service.BatchReceipt, error)
	Health(ctx context.Context) (string, map[string]string)
}

// Server wires HTTP routes for the analysis API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	analyzeHandler *AnalyzeHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:  NewHealthHandler(deps),
		statsHandler:   NewStatsHandler(statsProvider),
		analyzeHandler: NewAnalyzeHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/health", MetricsMiddleware(s.healthHandler.HandleHealth, "health"))
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleMetrics, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/analyze/video", MetricsMiddleware(s.analyzeHandler.HandleVideo, "analyze_video"))
	mux.HandleFunc("/analyze/audio", MetricsMiddleware(s.analyzeHandler.HandleAudio, "analyze_audio"))
	mux.HandleFunc("/analyze/movement", MetricsMiddleware(s.analyzeHandler.HandleMovement, "analyze_movement"))
	mux.HandleFunc("/analyze/expression", MetricsMiddleware(s.analyzeHandler.HandleExpression, "analyze_expression"))
	mux.HandleFunc("/analyze/batch", MetricsMiddleware(s.analyzeHandler.HandleBatch, "analyze_batch"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// decodeJSON reads one JSON document of at most MaxBodyBytes into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fmt.Errorf("body exceeds %d bytes", tooLarge.Limit)
		}
		if errors.Is(err, io.EOF) {
			return errors.New("empty body")
		}
		return err
	}
	return nil
}
