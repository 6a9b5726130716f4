package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/abhisek/deepread/internal/llm"
)

func TestDegradedToCoversEveryPurpose(t *testing.T) {
	for _, p := range []string{llm.PurposeConcepts, llm.PurposeDepth, llm.PurposeQuestions, llm.PurposeEvaluation} {
		assert.NotEmpty(t, degradedTo[p], p)
	}
}

func TestFailureRate(t *testing.T) {
	assert.Zero(t, failureRate(0, 0))
	assert.InDelta(t, 25.0, failureRate(1, 4), 1e-9)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "gpt", truncate("gpt-4o-mini", 3))
	assert.Equal(t, "déj", truncate("déjà vu", 3))
	assert.Equal(t, "short", truncate("short", 10))
}
