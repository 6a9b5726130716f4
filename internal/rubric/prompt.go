package rubric

import (
	"fmt"
	"strings"

	"github.com/abhisek/deepread/internal/depth"
)

// buildSystemPrompt lists the level's factors and their weights.
func buildSystemPrompt(level int, factors depth.FactorSet) string {
	names := make([]string, len(factors))
	for i, w := range factors {
		names[i] = string(w.Factor)
	}

	var b strings.Builder
	b.WriteString("You are an evaluation assistant for learning responses.\n\n")
	fmt.Fprintf(&b, "You are evaluating a user's answer to a prompt at cognitive depth level %d (%s).\n\n",
		level, depth.DisplayName(level))
	fmt.Fprintf(&b, "For this depth level, evaluate ONLY these factors: %s.\n\n", strings.Join(names, ", "))

	b.WriteString("Score each factor on a scale of 0-10:\n")
	for _, n := range names {
		fmt.Fprintf(&b, "- %s: Score out of 10\n", n)
	}

	b.WriteString("\nThese weights are applied to your scores:\n")
	for _, w := range factors {
		fmt.Fprintf(&b, "- %s: %.0f%%\n", w.Factor, w.Weight*100)
	}

	fmt.Fprintf(&b, "\nAlso give a brief explanation (under %d characters) focusing on strengths and weaknesses.", MaxExplanation)
	return b.String()
}

func buildUserMessage(promptContext, answer string) string {
	return fmt.Sprintf("Insight:\n%s\n\nUser's Response:\n%s", promptContext, answer)
}
