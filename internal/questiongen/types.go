package questiongen

// Input holds the context for one question batch.
type Input struct {
	// Concept is the idea being practiced, e.g. "Sunk cost fallacy".
	Concept string

	// Level is the depth level the questions target.
	Level int

	BookTitle string

	// RelatedConcepts and MentalModels are optional prompt context.
	RelatedConcepts []string
	MentalModels    []string
}

// Source records where a batch came from.
type Source string

const (
	SourceLLM      Source = "llm"
	SourceFallback Source = "fallback"
)

// Batch is an ordered set of BatchSize questions. Order is presentation
// order.
type Batch struct {
	Questions []string
	Source    Source

	// Cause is set when Source is SourceFallback and wraps
	// ErrGenerationUnavailable.
	Cause error
}
