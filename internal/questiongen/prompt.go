package questiongen

import (
	"fmt"
	"strings"

	"github.com/abhisek/deepread/internal/depth"
)

func systemPrompt() string {
	var b strings.Builder
	b.WriteString("You are an expert educational content designer who creates practice questions to help students understand concepts deeply.\n\n")
	b.WriteString("Each depth level corresponds to a specific cognitive level:\n")
	for _, l := range depth.All() {
		fmt.Fprintf(&b, "Level %d: %s - %s\n", l, l, depth.Description(int(l)))
	}
	fmt.Fprintf(&b, "\nYour task is to generate %d thought-provoking, open-ended questions for the requested concept at the specified depth level. ", BatchSize)
	b.WriteString("These questions should help students truly understand and internalize the concept.")
	return b.String()
}

// buildUserMessage constructs the user message for one batch.
func buildUserMessage(input Input) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Generate %d practice questions for the concept %q from the book %q at depth level %d.\n",
		BatchSize, input.Concept, input.BookTitle, input.Level)

	if len(input.RelatedConcepts) > 0 {
		fmt.Fprintf(&b, "\nRelated concepts: %s\n", strings.Join(input.RelatedConcepts, ", "))
	}
	if len(input.MentalModels) > 0 {
		fmt.Fprintf(&b, "\nMental models pool: %s\n", strings.Join(input.MentalModels, ", "))
	}

	b.WriteString("\nThe questions should:\n")
	fmt.Fprintf(&b, "1. Match the cognitive depth level %d\n", input.Level)
	b.WriteString("2. Be open-ended, encouraging deep thinking\n")
	b.WriteString("3. Be specific to this concept, not generic\n")
	b.WriteString("4. Include context relevant to the book when possible")

	return b.String()
}
