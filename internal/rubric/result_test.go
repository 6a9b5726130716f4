package rubric

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/deepread/internal/depth"
)

func uniform(level int, score float64) map[string]float64 {
	out := map[string]float64{}
	for _, w := range depth.Factors(level) {
		out[string(w.Factor)] = score
	}
	return out
}

func TestScore_WeightedSum(t *testing.T) {
	scores := map[string]float64{
		"accuracy":      10,
		"understanding": 5,
		"clarity":       0,
		"relevance":     10,
	}
	res, err := Score(depth.Factors(1), scores, "ok")
	require.NoError(t, err)

	// 1.0*.4 + .5*.3 + 0*.2 + 1.0*.1
	assert.InDelta(t, 0.65, res.EvalScore, 1e-9)
	assert.InDelta(t, 3.25, res.SimplifiedScore, 1e-9)
	assert.Equal(t, scores, res.Factors)
}

func TestScore_UniformScoresHitThresholdExactly(t *testing.T) {
	for _, lvl := range depth.All() {
		res, err := Score(depth.Factors(int(lvl)), uniform(int(lvl), 6), "")
		require.NoError(t, err)
		assert.Equal(t, 3.0, res.SimplifiedScore, "level %d", lvl)
		assert.True(t, res.Passed(), "level %d", lvl)
	}
}

func TestScore_SimplifiedIsFiveTimesEval(t *testing.T) {
	for _, lvl := range depth.All() {
		for _, s := range []float64{0, 1.5, 3, 4.2, 7.7, 9.9, 10} {
			res, err := Score(depth.Factors(int(lvl)), uniform(int(lvl), s), "")
			require.NoError(t, err)
			assert.GreaterOrEqual(t, res.SimplifiedScore, 0.0)
			assert.LessOrEqual(t, res.SimplifiedScore, 5.0)
			assert.InDelta(t, res.EvalScore*5, res.SimplifiedScore, 1e-6)
		}
	}
}

func TestScore_ClampsAndIgnoresExtras(t *testing.T) {
	scores := uniform(3, 14)
	scores["context_fit"] = -2
	scores["creativity"] = 10

	res, err := Score(depth.Factors(3), scores, "")
	require.NoError(t, err)
	assert.Equal(t, 10.0, res.Factors["relevance"])
	assert.Equal(t, 0.0, res.Factors["context_fit"])
	assert.NotContains(t, res.Factors, "creativity")
	assert.InDelta(t, 0.65, res.EvalScore, 1e-9)
}

func TestScore_MissingFactor(t *testing.T) {
	scores := uniform(6, 8)
	delete(scores, "creativity")

	_, err := Score(depth.Factors(6), scores, "")
	var missing *MissingFactorError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, depth.Creativity, missing.Factor)
	assert.ErrorIs(t, err, ErrEvaluationUnavailable)
}

func TestScore_TruncatesExplanationByRune(t *testing.T) {
	long := strings.Repeat("é", 300)
	res, err := Score(depth.Factors(2), uniform(2, 5), long)
	require.NoError(t, err)
	assert.Equal(t, MaxExplanation, len([]rune(res.Explanation)))
}

func TestPassedAndLabel(t *testing.T) {
	tests := []struct {
		score float64
		pass  bool
		label string
	}{
		{0, false, "Needs Improvement"},
		{2.5, false, "Needs Improvement"},
		{2.999999, false, "Needs Improvement"},
		{3, true, "Passed"},
		{4, true, "Passed"},
		{5, true, "Passed"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.pass, Passed(tt.score), "score %v", tt.score)
		assert.Equal(t, tt.label, Label(tt.score), "score %v", tt.score)
	}
}

func TestDifficultyHint(t *testing.T) {
	tests := []struct {
		score float64
		want  Difficulty
	}{
		{0, Easier},
		{1.99, Easier},
		{2, Same},
		{3, Same},
		{4, Same},
		{4.01, Harder},
		{5, Harder},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DifficultyHint(tt.score), "score %v", tt.score)
	}
}

func TestPlaceholder(t *testing.T) {
	cause := errors.New("timeout")
	res := Placeholder(cause)

	assert.Zero(t, res.EvalScore)
	assert.Zero(t, res.SimplifiedScore)
	assert.Equal(t, "Error evaluating answer", res.Explanation)
	assert.Equal(t, "Needs Improvement", res.Label())
	assert.True(t, res.IsPlaceholder())
	assert.NotNil(t, res.Factors)

	assert.ErrorIs(t, Placeholder(nil).Cause, ErrEvaluationUnavailable)
}
