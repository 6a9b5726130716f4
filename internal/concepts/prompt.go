package concepts

import (
	"fmt"
	"strings"

	"github.com/abhisek/deepread/internal/depth"
)

const extractSystemPrompt = `You are an expert in educational content design. Your task is to break down non-fiction books into specific, teachable concepts. Extract named principles, methods, frameworks, and key ideas that could each be taught as a standalone lesson. Identify precise terminology from the book, not vague categories.`

func buildExtractMessage(bookTitle string) string {
	return fmt.Sprintf(`Extract ALL specific learning concepts from the book %q.

Follow these guidelines:
1. Identify precise named principles, theories, methods, models, and key ideas
2. Use the actual terminology from the book
3. Combine related ideas into meaningful concept pairs when appropriate
4. Be specific enough that each concept could be the title of a focused lesson
5. Avoid overly broad categories
6. Be comprehensive - include ALL teachable concepts from the book

Format the output as a numbered list with ONLY the concept names. Do not include descriptions, explanations, or any other text besides the numbered concepts.`, bookTitle)
}

const depthSystemPrompt = "You are an expert instructional designer."

// depthScale is the learner-facing gloss of each level used when assigning
// targets.
var depthScale = map[depth.Level]string{
	depth.Recall:   "Just remember the definition",
	depth.Reframe:  "Explain it in your own words",
	depth.Apply:    "Use it in a real-world situation",
	depth.Contrast: "Compare it with other ideas",
	depth.Critique: "Evaluate its limitations or flaws",
	depth.Remix:    "Combine it with other models or frameworks to create something new",
}

func buildDepthMessage(bookTitle string, names []string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "For each of the following concepts from the book %q, assign a depth_target (a number between %d and %d) that reflects how deeply the user should understand the concept.\n\n",
		bookTitle, depth.Min, depth.Max)

	b.WriteString("Use this scale:\n\n")
	for _, l := range depth.All() {
		fmt.Fprintf(&b, "%d = %s: %s\n", l, l, depthScale[l])
	}

	b.WriteString("\nYour job is to decide how far a learner should go to truly digest each concept: not just understand it, but internalize it.\n\n")
	b.WriteString("Return one entry per concept, using the concept name exactly as given.\n\n")
	b.WriteString("Here are the concepts:\n")
	for i, n := range names {
		fmt.Fprintf(&b, "%d. %s\n", i+1, n)
	}

	return strings.TrimRight(b.String(), "\n")
}
