package theme

import (
	"strings"
	"testing"

	"charm.land/lipgloss/v2"
)

func TestScoreBar(t *testing.T) {
	tests := []struct {
		score  float64
		filled int
	}{
		{0, 0},
		{2.4, 2},
		{3, 3},
		{4.6, 5},
		{9, 5},
		{-1, 0},
	}
	for _, tt := range tests {
		bar := ScoreBar(tt.score)
		if got := strings.Count(bar, "■"); got != tt.filled {
			t.Errorf("ScoreBar(%v) filled = %d, want %d", tt.score, got, tt.filled)
		}
		if got := lipgloss.Width(bar); got != 5 {
			t.Errorf("ScoreBar(%v) width = %d, want 5", tt.score, got)
		}
	}
}

func TestLevelBadge(t *testing.T) {
	if got := LevelBadge(3, "Apply"); !strings.Contains(got, "Level 3 · Apply") {
		t.Errorf("LevelBadge = %q", got)
	}
}
