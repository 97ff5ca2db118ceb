package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"

	service "github.com/okian/talentscore/internal/app"
	"github.com/okian/talentscore/internal/domain/assessment"
	"github.com/okian/talentscore/internal/domain/orchestrator"
	"github.com/okian/talentscore/internal/domain/signal"
)

// AnalyzeHandler serves the /analyze routes.
type AnalyzeHandler struct {
	deps Dependencies
}

// NewAnalyzeHandler creates a new analyze handler.
func NewAnalyzeHandler(deps Dependencies) *AnalyzeHandler {
	return &AnalyzeHandler{deps: deps}
}

// videoRequest mirrors the OpenAPI schema for POST /analyze/video.
type videoRequest struct {
	VideoID      string                       `json:"videoId"`
	VideoURL     string                       `json:"videoUrl"`
	Duration     assessment.Optional[float64] `json:"duration"`
	CategoryID   string                       `json:"categoryId"`
	ThumbnailURL string                       `json:"thumbnailUrl"`
	AudioURL     string                       `json:"audioUrl"`
	Signals      *signal.Bundle               `json:"signals"`
}

func (v videoRequest) toRequest() assessment.Request {
	return assessment.Request{
		VideoID:          v.VideoID,
		VideoLocator:     v.VideoURL,
		Duration:         v.Duration,
		CategoryHint:     v.CategoryID,
		ThumbnailLocator: v.ThumbnailURL,
	}
}

type videoResponse struct {
	assessment.Assessment
	Signals *orchestrator.Signals `json:"signals,omitempty"`
}

type audioRequest struct {
	SampleRate int       `json:"sampleRate"`
	Samples    []float64 `json:"samples"`
	AudioURL   string    `json:"audioUrl"`
}

type framesRequest struct {
	Frames    []signal.LandmarkFrame `json:"frames"`
	CapFrames int                    `json:"capFrames"`
}

type batchRequest struct {
	Videos []videoRequest `json:"videos"`
}

// HandleVideo handles POST /analyze/video.
func (h *AnalyzeHandler) HandleVideo(w http.ResponseWriter, r *http.Request) {
	const op = "api.analyze_video"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req videoRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if req.AudioURL != "" {
		if err := checkRemoteURL(req.AudioURL); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
			return
		}
	}
	in := service.VideoRequest{Request: req.toRequest(), AudioLocator: req.AudioURL}
	if req.Signals != nil {
		in.Bundle = *req.Signals
	}
	res, err := h.deps.AnalyzeVideo(r.Context(), in)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRequest) {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
			return
		}
		writeError(w, http.StatusInternalServerError, "internal", WrapKind(op, ErrUnavailable, err))
		return
	}
	out := videoResponse{Assessment: res.Assessment}
	if res.Signals != (orchestrator.Signals{}) {
		out.Signals = &res.Signals
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleAudio handles POST /analyze/audio.
func (h *AnalyzeHandler) HandleAudio(w http.ResponseWriter, r *http.Request) {
	const op = "api.analyze_audio"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req audioRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if req.AudioURL != "" && len(req.Samples) == 0 {
		if err := checkRemoteURL(req.AudioURL); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
			return
		}
		writeJSON(w, http.StatusOK, h.deps.AnalyzeAudioSource(r.Context(), req.AudioURL))
		return
	}
	if req.SampleRate <= 0 || req.SampleRate > signal.MaxAudioSampleRate {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest,
			fmt.Errorf("sampleRate must be between 1 and %d", signal.MaxAudioSampleRate)))
		return
	}
	writeJSON(w, http.StatusOK, h.deps.AnalyzeAudio(r.Context(), signal.Waveform{Samples: req.Samples, SampleRate: req.SampleRate}))
}

// HandleMovement handles POST /analyze/movement.
func (h *AnalyzeHandler) HandleMovement(w http.ResponseWriter, r *http.Request) {
	const op = "api.analyze_movement"
	req, ok := h.frames(w, r, op)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.deps.AnalyzeMovement(r.Context(), req.Frames, req.CapFrames))
}

// HandleExpression handles POST /analyze/expression.
func (h *AnalyzeHandler) HandleExpression(w http.ResponseWriter, r *http.Request) {
	const op = "api.analyze_expression"
	req, ok := h.frames(w, r, op)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.deps.AnalyzeExpression(r.Context(), req.Frames, req.CapFrames))
}

func (h *AnalyzeHandler) frames(w http.ResponseWriter, r *http.Request, op string) (framesRequest, bool) {
	var req framesRequest
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return req, false
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return req, false
	}
	if req.CapFrames < 0 {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("capFrames must not be negative")))
		return req, false
	}
	return req, true
}

// HandleBatch handles POST /analyze/batch.
func (h *AnalyzeHandler) HandleBatch(w http.ResponseWriter, r *http.Request) {
	const op = "api.analyze_batch"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req batchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if len(req.Videos) == 0 {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("videos must not be empty")))
		return
	}
	reqs := make([]assessment.Request, len(req.Videos))
	for i, v := range req.Videos {
		reqs[i] = v.toRequest()
	}
	receipt, err := h.deps.SubmitBatch(r.Context(), reqs)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", WrapKind(op, ErrUnavailable, err))
		return
	}
	writeJSON(w, http.StatusAccepted, receipt)
}

// checkRemoteURL accepts absolute http and https URLs only.
func checkRemoteURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("audioUrl: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("audioUrl must be an http or https URL")
	}
	return nil
}
