package rubric

import (
	"errors"
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/abhisek/deepread/internal/depth"
)

var (
	// ErrEvaluationUnavailable wraps every failure to score an answer.
	// Callers recover per answer with Placeholder.
	ErrEvaluationUnavailable = errors.New("evaluation unavailable")

	// ErrEmptyAnswer is returned before any scoring call for blank answers.
	ErrEmptyAnswer = errors.New("answer text is empty")
)

// PassThreshold is the inclusive simplified score needed to pass.
const PassThreshold = 3.0

// MaxExplanation is the longest explanation kept, in runes.
const MaxExplanation = 280

// PlaceholderExplanation marks a result substituted for a failed evaluation.
const PlaceholderExplanation = "Error evaluating answer"

// Result is the scored evaluation of one answer.
type Result struct {
	// Factors maps factor name to a 0..10 score.
	Factors map[string]float64 `json:"factors"`

	// EvalScore is the weighted score, 0..1.
	EvalScore float64 `json:"eval_score"`

	// SimplifiedScore is EvalScore on the 0..5 scale shown to learners.
	SimplifiedScore float64 `json:"simplified_score"`

	Explanation string `json:"explanation"`

	// Cause is set on placeholder results.
	Cause error `json:"-"`
}

// Passed reports whether the result clears PassThreshold.
func (r *Result) Passed() bool {
	return Passed(r.SimplifiedScore)
}

// Label returns the learner-facing verdict for the result.
func (r *Result) Label() string {
	return Label(r.SimplifiedScore)
}

// IsPlaceholder reports whether r stands in for a failed evaluation.
func (r *Result) IsPlaceholder() bool {
	return r.Cause != nil
}

// Placeholder builds the zero-score result used when evaluation fails.
func Placeholder(err error) *Result {
	if err == nil {
		err = ErrEvaluationUnavailable
	}
	return &Result{
		Factors:     map[string]float64{},
		Explanation: PlaceholderExplanation,
		Cause:       err,
	}
}

// MissingFactorError reports a factor absent from the scorer's output.
type MissingFactorError struct {
	Factor depth.Factor
}

func (e *MissingFactorError) Error() string {
	return fmt.Sprintf("missing score for factor %q", e.Factor)
}

func (e *MissingFactorError) Unwrap() error {
	return ErrEvaluationUnavailable
}

// Score computes a Result from raw factor scores. Scores are clamped to
// 0..10 and factors outside the set are ignored. Every factor in the set
// must be present.
func Score(factors depth.FactorSet, scores map[string]float64, explanation string) (*Result, error) {
	res := &Result{
		Factors:     make(map[string]float64, len(factors)),
		Explanation: truncateRunes(explanation, MaxExplanation),
	}

	var sum float64
	for _, w := range factors {
		s, ok := scores[string(w.Factor)]
		if !ok {
			return nil, &MissingFactorError{Factor: w.Factor}
		}
		s = clamp(s, 0, 10)
		res.Factors[string(w.Factor)] = s
		sum += s / 10 * w.Weight
	}

	res.EvalScore = round6(clamp(sum, 0, 1))
	res.SimplifiedScore = round6(res.EvalScore * 5)
	return res, nil
}

// Passed reports whether a simplified score passes. The threshold is
// inclusive.
func Passed(score float64) bool {
	return score >= PassThreshold
}

// Label returns "Passed" or "Needs Improvement".
func Label(score float64) string {
	if Passed(score) {
		return "Passed"
	}
	return "Needs Improvement"
}

// Difficulty is the hint recorded for the next attempt at a concept.
type Difficulty string

const (
	Easier Difficulty = "easier"
	Same   Difficulty = "same"
	Harder Difficulty = "harder"
)

// DifficultyHint derives the next-difficulty hint from a simplified score.
func DifficultyHint(score float64) Difficulty {
	switch {
	case score < 2:
		return Easier
	case score > 4:
		return Harder
	default:
		return Same
	}
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

// round6 drops float noise so weighted sums like 0.6*5 land exactly on 3.
func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
