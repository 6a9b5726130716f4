// Package depth defines the six cognitive depth levels a learner works
// through for a concept, along with the rubric factor weights used to score
// answers at each level.
package depth

import (
	"errors"
	"fmt"
)

// Level is a cognitive depth level from 1 (Recall) to 6 (Remix).
type Level int

const (
	Recall   Level = 1
	Reframe  Level = 2
	Apply    Level = 3
	Contrast Level = 4
	Critique Level = 5
	Remix    Level = 6
)

const (
	// Min and Max bound the depth scale.
	Min = Recall
	Max = Remix

	// DefaultTarget is used when a depth target is missing or unusable.
	DefaultTarget = 3
)

// ErrInvalidLevel is returned for levels outside 1..6.
var ErrInvalidLevel = errors.New("invalid depth level")

type levelInfo struct {
	name        string
	verb        string
	description string
}

var levels = map[Level]levelInfo{
	Recall:   {"Recall", "recall or identify", "Recognize or identify the idea"},
	Reframe:  {"Reframe", "explain in your own words", "Explain it in their own words"},
	Apply:    {"Apply", "apply in a real-life context", "Use it in real-life context"},
	Contrast: {"Contrast", "compare with other ideas", "Compare it with other ideas"},
	Critique: {"Critique", "evaluate critically", "Evaluate flaws or limitations"},
	Remix:    {"Remix", "combine with other models", "Combine it with other models"},
}

// Valid reports whether n is on the depth scale.
func Valid(n int) bool {
	return n >= int(Min) && n <= int(Max)
}

// NameOf returns the level name, or ErrInvalidLevel.
func NameOf(n int) (string, error) {
	info, ok := levels[Level(n)]
	if !ok {
		return "", fmt.Errorf("%w: %d", ErrInvalidLevel, n)
	}
	return info.name, nil
}

// DisplayName is NameOf with a "Level N" default for unknown levels.
func DisplayName(n int) string {
	if name, err := NameOf(n); err == nil {
		return name
	}
	return fmt.Sprintf("Level %d", n)
}

// Verb returns the cognitive verb phrase for a level. Unknown levels use
// Reframe's verb.
func Verb(n int) string {
	if info, ok := levels[Level(n)]; ok {
		return info.verb
	}
	return levels[Reframe].verb
}

// Description returns the short meaning of a level as shown to the model.
func Description(n int) string {
	if info, ok := levels[Level(n)]; ok {
		return info.description
	}
	return ""
}

// String implements fmt.Stringer.
func (l Level) String() string {
	return DisplayName(int(l))
}

// Clamp returns n when it is a valid level and def otherwise.
func Clamp(n, def int) int {
	if Valid(n) {
		return n
	}
	return def
}

// All returns the levels in ascending order.
func All() []Level {
	return []Level{Recall, Reframe, Apply, Contrast, Critique, Remix}
}
