package questiongen

// Config controls the behavior of the LLMGenerator.
type Config struct {
	// Validators run in order on every generated question; a question
	// failing any of them is dropped.
	Validators []Validator

	MaxTokens   int
	Temperature float64
}

// DefaultConfig returns the standard validator chain and the sampling
// settings the question prompt was tuned with.
func DefaultConfig() Config {
	return Config{
		Validators:  []Validator{&StructuralValidator{}},
		MaxTokens:   1000,
		Temperature: 0.7,
	}
}
