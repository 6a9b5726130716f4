package questiongen

import "fmt"

// Validator checks one generated question.
// Implementations should be stateless and safe for concurrent use.
type Validator interface {
	Name() string
	Validate(question string, input Input) *ValidationError
}

// ValidationError describes why a question was rejected.
type ValidationError struct {
	Validator string
	Message   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validator %q: %s", e.Validator, e.Message)
}

// MaxQuestionLength bounds a question, in characters.
const MaxQuestionLength = 500

// StructuralValidator rejects blank and oversized questions.
type StructuralValidator struct{}

func (v *StructuralValidator) Name() string { return "structural" }

func (v *StructuralValidator) Validate(q string, _ Input) *ValidationError {
	if q == "" {
		return &ValidationError{Validator: v.Name(), Message: "question is empty"}
	}
	if len([]rune(q)) > MaxQuestionLength {
		return &ValidationError{
			Validator: v.Name(),
			Message:   fmt.Sprintf("question exceeds %d characters", MaxQuestionLength),
		}
	}
	return nil
}

// DuplicateValidator rejects a question identical to an earlier one in the
// same batch. It is stateful and must not be shared between batches.
type DuplicateValidator struct {
	seen map[string]bool
}

func (v *DuplicateValidator) Name() string { return "duplicate" }

func (v *DuplicateValidator) Validate(q string, _ Input) *ValidationError {
	if v.seen == nil {
		v.seen = make(map[string]bool)
	}
	key := normalize(q)
	if v.seen[key] {
		return &ValidationError{Validator: v.Name(), Message: "question repeats an earlier one"}
	}
	v.seen[key] = true
	return nil
}
