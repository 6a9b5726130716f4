package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/abhisek/deepread/internal/auth"
	"github.com/abhisek/deepread/internal/practice"
)

type practiceResponse struct {
	Session practice.Snapshot `json:"session"`

	// Warning carries a non-fatal persistence failure.
	Warning string `json:"warning,omitempty"`
}

func warning(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// practiceError maps session errors onto status codes.
func (h *Handler) practiceError(w http.ResponseWriter, err error) {
	var incomplete *practice.IncompleteAnswersError
	switch {
	case errors.As(err, &incomplete):
		jsonResponse(w, map[string]any{
			"error":      incomplete.Error(),
			"unanswered": incomplete.Unanswered,
			"indices":    incomplete.Indices,
		}, http.StatusUnprocessableEntity)
	case errors.Is(err, ErrSessionNotFound):
		errorResponse(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, practice.ErrSessionClosed):
		errorResponse(w, err.Error(), http.StatusGone)
	case errors.Is(err, practice.ErrWrongPhase), errors.Is(err, practice.ErrNoQuestions):
		errorResponse(w, err.Error(), http.StatusConflict)
	case errors.Is(err, practice.ErrAnswerIndex):
		errorResponse(w, err.Error(), http.StatusBadRequest)
	default:
		h.log.Error("practice request failed", zap.Error(err))
		errorResponse(w, "Unexpected server error", http.StatusInternalServerError)
	}
}

// session resolves the {id} route variable for the caller.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*practice.Session, bool) {
	id, err := auth.FromContext(r.Context())
	if err != nil {
		errorResponse(w, err.Error(), http.StatusUnauthorized)
		return nil, false
	}
	s, err := h.deps.Sessions.Get(id.UserID, mux.Vars(r)["id"])
	if err != nil {
		h.practiceError(w, err)
		return nil, false
	}
	return s, true
}

type createPracticeRequest struct {
	Concept         string   `json:"concept"`
	DepthTarget     int      `json:"depth_target"`
	BookTitle       string   `json:"book_title"`
	BookID          string   `json:"book_id"`
	InsightID       string   `json:"insight_id"`
	Insight         string   `json:"insight"`
	RelatedConcepts []string `json:"related_concepts"`
	MentalModels    []string `json:"mental_models_pool"`
}

// CreatePractice handles POST /practice. The session starts with its
// first batch loaded.
func (h *Handler) CreatePractice(w http.ResponseWriter, r *http.Request) {
	id, err := auth.FromContext(r.Context())
	if err != nil {
		errorResponse(w, err.Error(), http.StatusUnauthorized)
		return
	}
	var req createPracticeRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Concept) == "" || req.DepthTarget == 0 || req.BookID == "" || req.InsightID == "" {
		errorResponse(w, "Request must include concept, depth_target, book_id, and insight_id", http.StatusBadRequest)
		return
	}

	keys := practice.Keys{UserID: id.UserID, BookID: req.BookID, InsightID: req.InsightID}
	if err := keys.Validate(); err != nil {
		errorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	s, err := practice.New(practice.Config{
		Concept:         req.Concept,
		DepthTarget:     req.DepthTarget,
		BookTitle:       req.BookTitle,
		Insight:         req.Insight,
		RelatedConcepts: req.RelatedConcepts,
		MentalModels:    req.MentalModels,
		Keys:            keys,
	}, practice.Deps{
		Generator: h.deps.Questions,
		Evaluator: h.deps.Evaluator,
		Persister: h.deps.Persister,
		Logger:    h.log,
	})
	if err != nil {
		errorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.Load(r.Context()); err != nil {
		h.practiceError(w, err)
		return
	}

	h.deps.Sessions.Add(id.UserID, s)
	h.log.Info("practice session started",
		zap.String("session", s.ID()), zap.String("concept", req.Concept), zap.Int("target", req.DepthTarget))
	jsonResponse(w, practiceResponse{Session: s.Snapshot()}, http.StatusCreated)
}

// ListPractice handles GET /practice.
func (h *Handler) ListPractice(w http.ResponseWriter, r *http.Request) {
	id, err := auth.FromContext(r.Context())
	if err != nil {
		errorResponse(w, err.Error(), http.StatusUnauthorized)
		return
	}
	sessions := h.deps.Sessions.List(id.UserID)
	out := make([]practice.Snapshot, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, s.Snapshot())
	}
	jsonResponse(w, map[string]any{"sessions": out}, http.StatusOK)
}

// GetPractice handles GET /practice/{id}.
func (h *Handler) GetPractice(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	jsonResponse(w, practiceResponse{Session: s.Snapshot()}, http.StatusOK)
}

// SetAnswer handles PUT /practice/{id}/answers/{index}.
func (h *Handler) SetAnswer(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	index, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		errorResponse(w, "Invalid answer index", http.StatusBadRequest)
		return
	}
	var req struct {
		Answer string `json:"answer"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := s.SetAnswer(index, req.Answer); err != nil {
		h.practiceError(w, err)
		return
	}
	jsonResponse(w, practiceResponse{Session: s.Snapshot()}, http.StatusOK)
}

// SubmitPractice handles POST /practice/{id}/submit. Evaluation outlives
// a dropped connection so its results are not replaced by placeholders.
func (h *Handler) SubmitPractice(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := s.Submit(context.WithoutCancel(r.Context())); err != nil {
		h.practiceError(w, err)
		return
	}
	jsonResponse(w, practiceResponse{Session: s.Snapshot()}, http.StatusOK)
}

// ContinuePractice handles POST /practice/{id}/continue.
func (h *Handler) ContinuePractice(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	progress, err := s.Continue(context.WithoutCancel(r.Context()))
	if err != nil {
		h.practiceError(w, err)
		return
	}
	jsonResponse(w, practiceResponse{
		Session: s.Snapshot(),
		Warning: warning(progress.FlushErr),
	}, http.StatusOK)
}

// ClosePractice handles DELETE /practice/{id}: the session is closed, its
// pending responses flushed and it is forgotten.
func (h *Handler) ClosePractice(w http.ResponseWriter, r *http.Request) {
	id, err := auth.FromContext(r.Context())
	if err != nil {
		errorResponse(w, err.Error(), http.StatusUnauthorized)
		return
	}
	s, err := h.deps.Sessions.Remove(id.UserID, mux.Vars(r)["id"])
	if err != nil {
		h.practiceError(w, err)
		return
	}
	flushErr := s.Close(context.WithoutCancel(r.Context()))
	jsonResponse(w, practiceResponse{
		Session: s.Snapshot(),
		Warning: warning(flushErr),
	}, http.StatusOK)
}
