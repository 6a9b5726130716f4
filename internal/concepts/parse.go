package concepts

import (
	"regexp"
	"strings"
)

// ListKind tags how a free-text concept list was recognized.
type ListKind int

const (
	// Failure means no items could be recovered.
	Failure ListKind = iota
	Numbered
	Comma
	Lines
)

func (k ListKind) String() string {
	switch k {
	case Numbered:
		return "numbered"
	case Comma:
		return "comma"
	case Lines:
		return "lines"
	default:
		return "failure"
	}
}

// ListResult is the outcome of ParseList.
type ListResult struct {
	Kind  ListKind
	Items []string
}

// OK reports whether any items were parsed.
func (r ListResult) OK() bool {
	return r.Kind != Failure
}

var (
	numberMarker = regexp.MustCompile(`\d\.`)
	numberPrefix = regexp.MustCompile(`^\d+[.)]\s*`)
	bulletPrefix = regexp.MustCompile(`^[•\-*]\s*`)
	lineBreaks   = regexp.MustCompile(`[\n\r]+`)
)

// ParseList recovers concept names from model output. A multi-line text
// with numbering is read as a numbered list, otherwise a text with commas
// as a comma list, otherwise one item per line with bullets and numbers
// stripped.
func ParseList(text string) ListResult {
	text = strings.TrimSpace(text)

	var (
		kind  ListKind
		items []string
	)
	switch {
	case strings.Contains(text, "\n") && numberMarker.MatchString(text):
		kind = Numbered
		for _, line := range strings.Split(text, "\n") {
			items = appendItem(items, numberPrefix.ReplaceAllString(strings.TrimSpace(line), ""))
		}
	case strings.Contains(text, ","):
		kind = Comma
		for _, part := range strings.Split(text, ",") {
			items = appendItem(items, part)
		}
	default:
		kind = Lines
		for _, line := range lineBreaks.Split(text, -1) {
			line = bulletPrefix.ReplaceAllString(strings.TrimSpace(line), "")
			items = appendItem(items, numberPrefix.ReplaceAllString(line, ""))
		}
	}

	if len(items) == 0 {
		return ListResult{Kind: Failure}
	}
	return ListResult{Kind: kind, Items: items}
}

func appendItem(items []string, s string) []string {
	if s = strings.TrimSpace(s); s != "" {
		items = append(items, s)
	}
	return items
}
