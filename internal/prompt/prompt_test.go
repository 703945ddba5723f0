package prompt

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ashureev/leetmentor/internal/domain"
)

func TestHintApproachDiscussion(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "What would be the simplest approach?", Hint(domain.PhaseApproachDiscussion, "Array", 1))
	assert.Equal(t, Hint(domain.PhaseApproachDiscussion, "Array", 3), Hint(domain.PhaseApproachDiscussion, "Array", 99))
	assert.Equal(t, Hint(domain.PhaseApproachDiscussion, "Array", 1), Hint(domain.PhaseApproachDiscussion, "Array", 0))
}

func TestHintIgnoresCategory(t *testing.T) {
	t.Parallel()

	for level := 1; level <= 3; level++ {
		assert.Equal(t,
			Hint(domain.PhaseImplementation, "Array", level),
			Hint(domain.PhaseImplementation, "Graph", level))
	}
}

func TestHintUnknownPhaseUsesProblemUnderstanding(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Hint(domain.PhaseProblemUnderstanding, "", 2), Hint(domain.Phase("whiteboard"), "", 2))
}

func TestPhaseInstruction(t *testing.T) {
	t.Parallel()

	for _, phase := range domain.Phases {
		assert.NotEmpty(t, PhaseInstruction(phase), phase)
	}
	assert.Equal(t, PhaseInstruction(domain.PhaseProblemUnderstanding), PhaseInstruction(domain.Phase("bogus")))
}

func TestGuidanceLookup(t *testing.T) {
	t.Parallel()

	tests := []struct {
		category string
		want     string
	}{
		{"Array, Hash Table", "Array"},
		{"Hash Table, Array", "Hash Table"},
		{"Linked List, Recursion", "LinkedList"},
		{"dynamic programming", "Dynamic Programming"},
		{"Math, Binary Tree", "Tree"},
		{"Heap (Priority Queue)", "Heap"},
		{"Bit Manipulation", "Array"},
		{"Bit Manipulation, Math, Greedy", "Array"},
		{"Sorting, Two Pointers", "Array"},
		{"", "Array"},
		{"Algorithm", "Array"},
	}
	for _, tt := range tests {
		t.Run(tt.category, func(t *testing.T) {
			t.Parallel()
			_, key := Guidance(tt.category)
			assert.Equal(t, tt.want, key)
		})
	}
}

func TestBuildSystemPrompt(t *testing.T) {
	t.Parallel()

	got := BuildSystemPrompt(domain.ProblemInfo{
		Title:      "Number of Islands",
		Difficulty: domain.DifficultyMedium,
		Category:   "Graph, Matrix",
	})

	assert.Contains(t, got, "Socratic")
	assert.Contains(t, got, "Level 5")
	assert.Contains(t, got, "- Title: Number of Islands")
	assert.Contains(t, got, "- Difficulty: Medium")
	assert.Contains(t, got, "- Category: Graph, Matrix")
	assert.Contains(t, got, "## Graph Guidance")
	assert.Contains(t, got, "Topological sort")
	assert.False(t, strings.HasSuffix(got, "\n"))
}

func TestBuildSystemPromptUnknownCategoryFallsBackToArray(t *testing.T) {
	t.Parallel()

	got := BuildSystemPrompt(domain.FallbackProblemInfo("", time.Time{}))
	assert.Contains(t, got, "## Array Guidance")
	assert.Contains(t, got, "- Title: Unknown Problem")
}

func TestTaskPromptsTruncateInput(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("x", MaxPromptInput+50)
	got := SummarizePrompt(long)
	assert.Contains(t, got, truncatedMarker)
	assert.NotContains(t, got, strings.Repeat("x", MaxPromptInput+1))

	code := AnalyzeCodePrompt("return 1", "")
	assert.Contains(t, code, "time and space complexities")
	assert.Contains(t, code, "return 1")
	assert.Contains(t, AnalyzeCodePrompt("x", "Why does it fail?"), "Question: Why does it fail?")
}

func TestTruncateRunes(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "héllo", Truncate("héllo", 5))
	assert.Equal(t, "hé"+truncatedMarker, Truncate("héllo", 2))
	assert.Equal(t, "abc", Truncate("abc", 0))
}
