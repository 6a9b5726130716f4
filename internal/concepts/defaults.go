package concepts

import "strings"

// Defaults supplies concepts when extraction fails.
type Defaults interface {
	// Concepts returns the fallback list for a book title. It never
	// returns an empty list.
	Concepts(bookTitle string) []string
}

// DefaultKey is the Table entry used for unknown titles.
const DefaultKey = "default"

// Table is a Defaults keyed by lowercase book title. It must contain a
// DefaultKey entry.
type Table map[string][]string

func (t Table) Concepts(bookTitle string) []string {
	list, ok := t[strings.ToLower(strings.TrimSpace(bookTitle))]
	if !ok {
		list = t[DefaultKey]
	}
	return append([]string(nil), list...)
}

// Builtin is the fallback table shipped with deepread.
var Builtin = Table{
	"thinking, fast and slow": {
		"System 1 vs System 2 thinking",
		"Cognitive biases",
		"Heuristics",
		"Prospect theory",
		"Loss aversion",
		"Anchoring effect",
		"Availability heuristic",
		"Overconfidence",
		"Sunk cost fallacy",
		"Decision making under uncertainty",
	},
	"1984": {
		"Totalitarianism",
		"Government surveillance",
		"Thought control",
		"Dystopian society",
		"Historical revisionism",
		"Manipulation of language",
		"Psychological control",
		"Political propaganda",
		"Individual freedom",
		"Resistance against authority",
	},
	"to kill a mockingbird": {
		"Racial injustice",
		"Moral growth",
		"Social inequality",
		"Courage",
		"Empathy",
		"Childhood innocence",
		"Legal system",
		"Prejudice",
		"Small-town life",
		"Family relationships",
	},
	"the great gatsby": {
		"American Dream",
		"Wealth inequality",
		"Social class",
		"Love and obsession",
		"Disillusionment",
		"Morality",
		"Symbolism",
		"Jazz Age",
		"Materialism",
		"Identity",
	},
	DefaultKey: {
		"Character development",
		"Plot structure",
		"Setting and atmosphere",
		"Themes and motifs",
		"Narrative perspective",
		"Literary devices",
		"Cultural context",
		"Historical significance",
		"Symbolism",
		"Author's style",
	},
}
