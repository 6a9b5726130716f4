package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

// NewRouter wires every endpoint. The practice endpoints are mounted only
// when the handler has a session registry and a token verifier.
func NewRouter(h *Handler, allowedOrigins []string) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/test", h.Health).Methods(http.MethodGet)
	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)

	r.HandleFunc("/extract-concepts", h.ExtractConcepts).Methods(http.MethodPost)
	r.HandleFunc("/assign-depth-targets", h.AssignDepthTargets).Methods(http.MethodPost)
	r.HandleFunc("/generate-questions", h.GenerateQuestions).Methods(http.MethodPost)
	r.HandleFunc("/evaluate-insight", h.EvaluateInsight).Methods(http.MethodPost)

	if h.deps.Sessions != nil && h.deps.Auth != nil {
		p := r.PathPrefix("/practice").Subrouter()
		p.Use(h.deps.Auth.Require)
		p.HandleFunc("", h.CreatePractice).Methods(http.MethodPost)
		p.HandleFunc("", h.ListPractice).Methods(http.MethodGet)
		p.HandleFunc("/{id}", h.GetPractice).Methods(http.MethodGet)
		p.HandleFunc("/{id}/answers/{index:[0-9]+}", h.SetAnswer).Methods(http.MethodPut)
		p.HandleFunc("/{id}/submit", h.SubmitPractice).Methods(http.MethodPost)
		p.HandleFunc("/{id}/continue", h.ContinuePractice).Methods(http.MethodPost)
		p.HandleFunc("/{id}", h.ClosePractice).Methods(http.MethodDelete)
	}

	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	})

	return c.Handler(r)
}
