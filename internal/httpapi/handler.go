// Package httpapi serves the JSON API used by the mobile client.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/abhisek/deepread/internal/auth"
	"github.com/abhisek/deepread/internal/concepts"
	"github.com/abhisek/deepread/internal/depth"
	"github.com/abhisek/deepread/internal/practice"
	"github.com/abhisek/deepread/internal/questiongen"
	"github.com/abhisek/deepread/internal/rubric"
)

// Deps are the services behind the API.
type Deps struct {
	Concepts  *concepts.Service
	Questions questiongen.Generator
	Evaluator rubric.Evaluator

	// Sessions and Auth enable the practice endpoints. Both must be set.
	Sessions *Registry
	Auth     *auth.Verifier

	// Persister receives flushed practice responses. Optional.
	Persister practice.Persister

	Logger *zap.Logger
}

// Handler implements every endpoint.
type Handler struct {
	deps Deps
	log  *zap.Logger
}

// NewHandler returns a handler over deps.
func NewHandler(deps Deps) *Handler {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{deps: deps, log: log}
}

func jsonResponse(w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func errorResponse(w http.ResponseWriter, message string, status int) {
	jsonResponse(w, map[string]string{"error": message}, status)
}

// decode reads a JSON body. It reports false after writing a 400.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		errorResponse(w, "Invalid JSON body", http.StatusBadRequest)
		return false
	}
	return true
}

// Health answers liveness checks.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, map[string]string{"status": "Server is running"}, http.StatusOK)
}

// ExtractConcepts handles POST /extract-concepts.
func (h *Handler) ExtractConcepts(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BookName string `json:"bookName"`
	}
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.BookName) == "" {
		errorResponse(w, "Missing bookName in request body", http.StatusBadRequest)
		return
	}

	ex, err := h.deps.Concepts.Extract(r.Context(), req.BookName)
	if err != nil {
		errorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}
	jsonResponse(w, map[string]any{
		"concepts": ex.Concepts,
		"source":   ex.Source,
	}, http.StatusOK)
}

// AssignDepthTargets handles POST /assign-depth-targets.
func (h *Handler) AssignDepthTargets(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BookName string   `json:"bookName"`
		Concepts []string `json:"concepts"`
	}
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.BookName) == "" || len(req.Concepts) == 0 {
		errorResponse(w, "Request must include bookName and an array of concepts", http.StatusBadRequest)
		return
	}

	a, err := h.deps.Concepts.AssignDepths(r.Context(), req.BookName, req.Concepts)
	if err != nil {
		errorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}
	jsonResponse(w, map[string]any{
		"conceptsWithDepth": a.Concepts,
		"source":            a.Source,
	}, http.StatusOK)
}

// GenerateQuestions handles POST /generate-questions.
func (h *Handler) GenerateQuestions(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Concept         string   `json:"concept"`
		DepthTarget     int      `json:"depth_target"`
		BookTitle       string   `json:"book_title"`
		RelatedConcepts []string `json:"related_concepts"`
		MentalModels    []string `json:"mental_models_pool"`
	}
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Concept) == "" || req.DepthTarget == 0 || strings.TrimSpace(req.BookTitle) == "" {
		errorResponse(w, "Request must include concept, depth_target, and book_title", http.StatusBadRequest)
		return
	}
	if !depth.Valid(req.DepthTarget) {
		errorResponse(w, depth.ErrInvalidLevel.Error(), http.StatusBadRequest)
		return
	}

	batch, err := h.deps.Questions.Generate(r.Context(), questiongen.Input{
		Concept:         req.Concept,
		Level:           req.DepthTarget,
		BookTitle:       req.BookTitle,
		RelatedConcepts: req.RelatedConcepts,
		MentalModels:    req.MentalModels,
	})
	if err != nil {
		h.log.Warn("question generation failed", zap.Error(err))
		batch = &questiongen.Batch{
			Questions: questiongen.Fallback(req.Concept, req.DepthTarget),
			Source:    questiongen.SourceFallback,
		}
	}
	jsonResponse(w, map[string]any{
		"questions": batch.Questions,
		"source":    batch.Source,
	}, http.StatusOK)
}

// evaluationResponse is the EvaluationResult plus its derived verdicts.
type evaluationResponse struct {
	*rubric.Result
	Passed         bool              `json:"passed"`
	Label          string            `json:"label"`
	DifficultyNext rubric.Difficulty `json:"difficulty_next"`
}

// EvaluateInsight handles POST /evaluate-insight.
func (h *Handler) EvaluateInsight(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserResponse    string `json:"userResponse"`
		OriginalInsight string `json:"originalInsight"`
		DepthTarget     int    `json:"depthTarget"`
	}
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.UserResponse) == "" || strings.TrimSpace(req.OriginalInsight) == "" || req.DepthTarget == 0 {
		jsonResponse(w, map[string]any{
			"error":    "Missing required parameters",
			"required": []string{"userResponse", "originalInsight", "depthTarget"},
		}, http.StatusBadRequest)
		return
	}

	res, err := h.deps.Evaluator.Evaluate(r.Context(), req.UserResponse, req.OriginalInsight, req.DepthTarget)
	if err != nil {
		h.log.Warn("evaluation failed", zap.Int("level", req.DepthTarget), zap.Error(err))
		status := http.StatusInternalServerError
		if errors.Is(err, rubric.ErrEvaluationUnavailable) {
			status = http.StatusBadGateway
		}
		jsonResponse(w, map[string]string{
			"error":   "Error calling evaluation service",
			"details": err.Error(),
		}, status)
		return
	}
	jsonResponse(w, evaluationResponse{
		Result:         res,
		Passed:         res.Passed(),
		Label:          res.Label(),
		DifficultyNext: rubric.DifficultyHint(res.SimplifiedScore),
	}, http.StatusOK)
}
