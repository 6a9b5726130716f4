// Package questiongen produces batches of open-ended practice questions for
// a concept at a depth level.
package questiongen

import (
	"context"
	"errors"
)

// BatchSize is the number of questions in every batch.
const BatchSize = 3

// ErrGenerationUnavailable wraps the reason a batch fell back to templates.
var ErrGenerationUnavailable = errors.New("question generation unavailable")

// Generator produces question batches.
type Generator interface {
	// Generate always returns a full batch. Generation failures are
	// recorded on Batch.Cause and replaced with Fallback questions.
	Generate(ctx context.Context, input Input) (*Batch, error)
}
