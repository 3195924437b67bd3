// Package handlers implements the HTTP surface of the volumetry service.
// It is thin glue over the analysis service: decode the request, run the
// analysis, map error kinds to status codes.
package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"volumetry/internal/analysis"
	"volumetry/pkg/volumetry"
)

type Handler struct {
	svc *analysis.Service
}

func New(svc *analysis.Service) *Handler {
	return &Handler{svc: svc}
}

// Routes registers the API endpoints on mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /analyze", h.HandleAnalyze)
	mux.HandleFunc("GET /studies/{code}/metrics", h.HandleStudyMetrics)
	mux.HandleFunc("GET /healthcheck", h.HandleHealthcheck)
}

// AnalyzeRequest is the body of POST /analyze.
type AnalyzeRequest struct {
	StudyCode string `json:"study_code"`
	Filename  string `json:"filename"`
}

// AnalyzeResponse reports the outcome of an analysis request.
type AnalyzeResponse struct {
	StudyCode    string `json:"study_code"`
	Status       string `json:"status"`
	Message      string `json:"message"`
	MetricsSaved bool   `json:"metrics_saved"`
}

// HandleAnalyze runs the volumetry analysis for one study and responds
// once the metrics are persisted.
func (h *Handler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.StudyCode == "" || req.Filename == "" {
		h.writeError(w, "study_code and filename are required", http.StatusBadRequest)
		return
	}

	summary, err := h.svc.ProcessStudy(req.StudyCode, req.Filename)
	if err != nil {
		h.writeKindError(w, err)
		return
	}

	h.writeJSON(w, AnalyzeResponse{
		StudyCode:    req.StudyCode,
		Status:       "success",
		Message:      fmt.Sprintf("Study %s processed successfully", req.StudyCode),
		MetricsSaved: summary.MetricsSaved,
	})
}

// HandleStudyMetrics returns the saved metrics of one study.
func (h *Handler) HandleStudyMetrics(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")

	metrics, err := h.svc.StudyMetrics(code)
	if err != nil {
		h.writeKindError(w, err)
		return
	}
	h.writeJSON(w, metrics)
}

// HandleHealthcheck reports liveness.
func (h *Handler) HandleHealthcheck(w http.ResponseWriter, r *http.Request) {
	if _, err := w.Write([]byte("OK")); err != nil {
		slog.Error("Unable to write healthcheck", "err", err)
	}
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	slog.Error(message)
	http.Error(w, message, code)
}

// writeKindError maps analysis error kinds onto HTTP status codes: missing
// inputs are 404, unparseable inputs are 400, everything else is an
// internal failure.
func (h *Handler) writeKindError(w http.ResponseWriter, err error) {
	switch {
	case volumetry.IsKind(err, volumetry.KindNotFound):
		h.writeError(w, fmt.Sprintf("File not found: %v", err), http.StatusNotFound)
	case volumetry.IsKind(err, volumetry.KindCorruptInput):
		h.writeError(w, fmt.Sprintf("Invalid input: %v", err), http.StatusBadRequest)
	default:
		h.writeError(w, fmt.Sprintf("Internal server error: %v", err), http.StatusInternalServerError)
	}
}
