package depth

// Factor names a scored dimension of an answer.
type Factor string

const (
	Accuracy      Factor = "accuracy"
	Understanding Factor = "understanding"
	Clarity       Factor = "clarity"
	Relevance     Factor = "relevance"
	ContextFit    Factor = "context_fit"
	Depth         Factor = "depth"
	Creativity    Factor = "creativity"
)

// Weight pairs a factor with its share of the final score.
type Weight struct {
	Factor Factor
	Weight float64
}

// FactorSet is the ordered list of weighted factors for one level.
// Weights in a set sum to 1.0.
type FactorSet []Weight

// Names returns the factor names in order.
func (fs FactorSet) Names() []Factor {
	out := make([]Factor, len(fs))
	for i, w := range fs {
		out[i] = w.Factor
	}
	return out
}

// Total returns the sum of all weights.
func (fs FactorSet) Total() float64 {
	var sum float64
	for _, w := range fs {
		sum += w.Weight
	}
	return sum
}

var factorSets = map[Level]FactorSet{
	Recall: {
		{Accuracy, 0.40},
		{Understanding, 0.30},
		{Clarity, 0.20},
		{Relevance, 0.10},
	},
	Reframe: {
		{Understanding, 0.30},
		{Clarity, 0.30},
		{Accuracy, 0.20},
		{Relevance, 0.20},
	},
	Apply: {
		{ContextFit, 0.35},
		{Relevance, 0.20},
		{Understanding, 0.20},
		{Clarity, 0.15},
		{Depth, 0.10},
	},
	Contrast: {
		{Understanding, 0.25},
		{Depth, 0.25},
		{Relevance, 0.20},
		{Clarity, 0.15},
		{Accuracy, 0.15},
	},
	Critique: {
		{Depth, 0.30},
		{Understanding, 0.25},
		{Clarity, 0.20},
		{ContextFit, 0.15},
		{Relevance, 0.10},
	},
	Remix: {
		{Creativity, 0.30},
		{Depth, 0.25},
		{Understanding, 0.20},
		{ContextFit, 0.15},
		{Clarity, 0.10},
	},
}

// Factors returns the rubric for a level. Levels outside 1..6 get
// Reframe's rubric. The returned slice is a copy.
func Factors(n int) FactorSet {
	fs, ok := factorSets[Level(n)]
	if !ok {
		fs = factorSets[Reframe]
	}
	out := make(FactorSet, len(fs))
	copy(out, fs)
	return out
}
