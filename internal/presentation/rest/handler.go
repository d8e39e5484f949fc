package rest

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/AyushPandey510/Phis-Shield/internal/application/dto"
	"github.com/AyushPandey510/Phis-Shield/internal/application/usecase"
)

// Handler exposes the assessment use cases over REST for browser-extension
// backends and other HTTP integrations.
type Handler struct {
	assessTarget   *usecase.AssessTarget
	getAssessment  *usecase.GetAssessment
	recordFeedback *usecase.RecordFeedback
	logger         *slog.Logger
}

// NewHandler creates a new REST API handler.
func NewHandler(
	assessTarget *usecase.AssessTarget,
	getAssessment *usecase.GetAssessment,
	recordFeedback *usecase.RecordFeedback,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		assessTarget:   assessTarget,
		getAssessment:  getAssessment,
		recordFeedback: recordFeedback,
		logger:         logger,
	}
}

// RegisterRoutes registers all REST API routes on the given ServeMux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/assessments", h.CreateAssessment)
	mux.HandleFunc("GET /api/v1/assessments/{digest}", h.GetAssessment)
	mux.HandleFunc("POST /api/v1/feedback", h.RecordFeedback)
}

// CreateAssessment runs the full assessment pipeline for the posted target.
func (h *Handler) CreateAssessment(w http.ResponseWriter, r *http.Request) {
	var req dto.AssessTargetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.assessTarget.Execute(r.Context(), req)
	if err != nil {
		if errors.Is(err, usecase.ErrInvalidTarget) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("failed to assess target",
			"kind", req.Kind,
			"error", err.Error(),
		)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetAssessment returns the cached assessment for a target digest.
func (h *Handler) GetAssessment(w http.ResponseWriter, r *http.Request) {
	digest := r.PathValue("digest")

	resp, err := h.getAssessment.Execute(r.Context(), dto.GetAssessmentRequest{
		TargetDigest: digest,
	})
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrInvalidTarget):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, usecase.ErrAssessmentNotFound):
			writeError(w, http.StatusNotFound, err.Error())
		default:
			h.logger.Error("failed to get assessment",
				"target_digest", digest,
				"error", err.Error(),
			)
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// RecordFeedback accepts a user verdict on a previous assessment. The record
// is acknowledged with 202; it feeds future retraining, not this response.
func (h *Handler) RecordFeedback(w http.ResponseWriter, r *http.Request) {
	var req dto.RecordFeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.recordFeedback.Execute(r.Context(), req)
	if err != nil {
		if errors.Is(err, usecase.ErrInvalidFeedback) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("failed to record feedback",
			"target_kind", req.TargetKind,
			"error", err.Error(),
		)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusAccepted, resp)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorResponse{Error: msg})
}
