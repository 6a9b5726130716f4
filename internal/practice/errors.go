package practice

import (
	"errors"
	"fmt"
)

var (
	// ErrIncompleteAnswers matches *IncompleteAnswersError.
	ErrIncompleteAnswers = errors.New("incomplete answers")

	// ErrInvalidTarget is returned by New for depth targets outside 1..6.
	ErrInvalidTarget = errors.New("depth target must be between 1 and 6")

	// ErrWrongPhase matches *PhaseError.
	ErrWrongPhase = errors.New("operation not allowed in this phase")

	// ErrSessionClosed is returned by operations on a closed session.
	ErrSessionClosed = errors.New("practice session closed")

	// ErrIdentityMissing is returned when responses are flushed without a
	// signed-in user. Nothing is persisted.
	ErrIdentityMissing = errors.New("no signed-in user")

	// ErrPersistenceRejected matches *FlushError and malformed keys.
	ErrPersistenceRejected = errors.New("practice responses not saved")

	// ErrNoQuestions is returned when answers are set before Load.
	ErrNoQuestions = errors.New("questions not loaded")

	// ErrAnswerIndex is returned by SetAnswer for an index outside the
	// current batch.
	ErrAnswerIndex = errors.New("answer index out of range")
)

// IncompleteAnswersError lists the blank answer slots of a rejected submit.
type IncompleteAnswersError struct {
	Unanswered int
	Indices    []int
}

func (e *IncompleteAnswersError) Error() string {
	if e.Unanswered == 1 {
		return "1 question is unanswered"
	}
	return fmt.Sprintf("%d questions are unanswered", e.Unanswered)
}

func (e *IncompleteAnswersError) Is(target error) bool {
	return target == ErrIncompleteAnswers
}

// PhaseError reports an operation attempted in the wrong phase.
type PhaseError struct {
	Op    string
	Phase Phase
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("%s not allowed while %s", e.Op, e.Phase)
}

func (e *PhaseError) Is(target error) bool {
	return target == ErrWrongPhase || (target == ErrSessionClosed && e.Phase == Closed)
}

// FlushError reports the log entries that failed to persist.
type FlushError struct {
	// Failed holds log indices in ascending order.
	Failed []int
	Total  int
	Errs   []error
}

func (e *FlushError) Error() string {
	msg := fmt.Sprintf("%d of %d practice responses not saved", len(e.Failed), e.Total)
	if len(e.Errs) > 0 {
		msg += ": " + e.Errs[0].Error()
	}
	return msg
}

func (e *FlushError) Is(target error) bool {
	return target == ErrPersistenceRejected
}

func (e *FlushError) Unwrap() []error {
	return e.Errs
}
