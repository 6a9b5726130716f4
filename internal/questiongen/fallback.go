package questiongen

import (
	"fmt"

	"github.com/abhisek/deepread/internal/depth"
)

// Fallback returns the template batch for a concept and level. It is a pure
// function of its arguments.
func Fallback(concept string, level int) []string {
	verb := depth.Verb(level)
	return []string{
		fmt.Sprintf("Can you %s the concept of %s?", verb, concept),
		fmt.Sprintf("What is an example where you would %s %s?", verb, concept),
		fmt.Sprintf("Why is it important to %s %s?", verb, concept),
	}
}

func fallbackBatch(input Input, cause error) *Batch {
	return &Batch{
		Questions: Fallback(input.Concept, input.Level),
		Source:    SourceFallback,
		Cause:     fmt.Errorf("%w: %w", ErrGenerationUnavailable, cause),
	}
}
