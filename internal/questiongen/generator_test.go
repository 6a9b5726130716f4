package questiongen

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/abhisek/deepread/internal/llm"
)

func testInput() Input {
	return Input{
		Concept:         "Sunk cost fallacy",
		Level:           2,
		BookTitle:       "Thinking, Fast and Slow",
		RelatedConcepts: []string{"Loss aversion", "Anchoring"},
		MentalModels:    []string{"Opportunity cost"},
	}
}

func questionsJSON(qs ...string) json.RawMessage {
	b, _ := json.Marshal(map[string]any{"questions": qs})
	return b
}

func TestGenerate_LLM(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{
		Content: questionsJSON("Q one?", "Q two?", "Q three?", "Q four?"),
	})
	gen := New(mock, DefaultConfig(), nil)

	batch, err := gen.Generate(context.Background(), testInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if batch.Source != SourceLLM || batch.Cause != nil {
		t.Fatalf("expected llm batch, got %+v", batch)
	}
	if diff := cmp.Diff([]string{"Q one?", "Q two?", "Q three?"}, batch.Questions); diff != "" {
		t.Errorf("questions mismatch (-want +got):\n%s", diff)
	}

	req := mock.Calls[0]
	if req.Schema != QuestionsSchema || req.MaxTokens != 1000 || req.Temperature != 0.7 {
		t.Errorf("unexpected request settings: schema=%v max=%d temp=%v", req.Schema, req.MaxTokens, req.Temperature)
	}
	if !strings.Contains(req.System, "Level 5: Critique - Evaluate flaws or limitations") {
		t.Errorf("system prompt missing level descriptions:\n%s", req.System)
	}
	user := req.Messages[0].Content
	for _, want := range []string{
		`concept "Sunk cost fallacy" from the book "Thinking, Fast and Slow" at depth level 2`,
		"Related concepts: Loss aversion, Anchoring",
		"Mental models pool: Opportunity cost",
	} {
		if !strings.Contains(user, want) {
			t.Errorf("user message missing %q:\n%s", want, user)
		}
	}
}

func TestGenerate_OmitsEmptyContext(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Content: questionsJSON("a?", "b?", "c?")})
	in := testInput()
	in.RelatedConcepts, in.MentalModels = nil, nil

	if _, err := New(mock, DefaultConfig(), nil).Generate(context.Background(), in); err != nil {
		t.Fatal(err)
	}
	user := mock.Calls[0].Messages[0].Content
	if strings.Contains(user, "Related concepts") || strings.Contains(user, "Mental models") {
		t.Errorf("empty context should be omitted:\n%s", user)
	}
}

func TestGenerate_Fallbacks(t *testing.T) {
	tests := []struct {
		name string
		resp llm.MockResponse
	}{
		{"provider error", llm.MockResponse{Err: &llm.ErrProviderUnavailable{Err: errors.New("down")}}},
		{"unparsable", llm.MockResponse{Content: json.RawMessage(`{"questions":`)}},
		{"too few", llm.MockResponse{Content: questionsJSON("only one?", "two?")}},
		{"blank questions", llm.MockResponse{Content: questionsJSON("a?", "  ", "b?")}},
		{"duplicates", llm.MockResponse{Content: questionsJSON("a?", "A?", "b?")}},
		{"oversized", llm.MockResponse{Content: questionsJSON("a?", strings.Repeat("x", 501), "b?")}},
		{"empty list", llm.MockResponse{Content: questionsJSON()}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := New(llm.NewMockProvider(tt.resp), DefaultConfig(), nil)
			batch, err := gen.Generate(context.Background(), testInput())
			if err != nil {
				t.Fatalf("fallback must not surface an error: %v", err)
			}
			if batch.Source != SourceFallback {
				t.Fatalf("source = %q, want fallback", batch.Source)
			}
			if !errors.Is(batch.Cause, ErrGenerationUnavailable) {
				t.Errorf("cause = %v, want ErrGenerationUnavailable", batch.Cause)
			}
			if diff := cmp.Diff(Fallback("Sunk cost fallacy", 2), batch.Questions); diff != "" {
				t.Errorf("fallback questions mismatch:\n%s", diff)
			}
		})
	}
}

func TestGenerate_SkipsInvalidWhenEnoughRemain(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Content: questionsJSON("a?", "", "b?", "  c?  ")})
	batch, _ := New(mock, DefaultConfig(), nil).Generate(context.Background(), testInput())
	if batch.Source != SourceLLM {
		t.Fatalf("source = %q, cause = %v", batch.Source, batch.Cause)
	}
	if diff := cmp.Diff([]string{"a?", "b?", "c?"}, batch.Questions); diff != "" {
		t.Errorf("questions mismatch:\n%s", diff)
	}
}
