// Package domain contains core domain types for the leetmentor application.
package domain

import (
	"strings"
	"time"
)

const (
	// DefaultProblemTitle is used when no title could be read from the page.
	DefaultProblemTitle = "Unknown Problem"
	// DefaultCategory is used when the page exposes no topic tags.
	DefaultCategory = "Algorithm"
)

// Difficulty is the problem difficulty shown on the page.
type Difficulty string

// Known difficulties.
const (
	DifficultyEasy    Difficulty = "Easy"
	DifficultyMedium  Difficulty = "Medium"
	DifficultyHard    Difficulty = "Hard"
	DifficultyUnknown Difficulty = "Unknown"
)

// ParseDifficulty maps free text such as "text-difficulty-easy" or "Medium" to a Difficulty.
func ParseDifficulty(text string) Difficulty {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "easy"):
		return DifficultyEasy
	case strings.Contains(lower, "medium"):
		return DifficultyMedium
	case strings.Contains(lower, "hard"):
		return DifficultyHard
	default:
		return DifficultyUnknown
	}
}

// Valid reports whether d is one of the four known values.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard, DifficultyUnknown:
		return true
	}
	return false
}

// RelatedProblem is an entry of the "Similar Questions" block.
type RelatedProblem struct {
	Title      string     `json:"title"`
	URL        string     `json:"url"`
	Difficulty Difficulty `json:"difficulty"`
}

// ProblemInfo is a snapshot of a coding-problem page.
// String fields are never absent and slices are never nil.
type ProblemInfo struct {
	Title           string           `json:"title"`
	Difficulty      Difficulty       `json:"difficulty"`
	Category        string           `json:"category"`
	Statement       string           `json:"statement"`
	Examples        []string         `json:"examples"`
	Constraints     []string         `json:"constraints"`
	RelatedProblems []RelatedProblem `json:"related_problems"`
	UserCode        string           `json:"user_code"`
	URL             string           `json:"url"`
	CapturedAt      time.Time        `json:"captured_at"`
}

// FallbackProblemInfo returns the record used when nothing could be extracted.
func FallbackProblemInfo(url string, at time.Time) ProblemInfo {
	return ProblemInfo{
		Title:           DefaultProblemTitle,
		Difficulty:      DifficultyUnknown,
		Category:        DefaultCategory,
		Statement:       "",
		Examples:        []string{},
		Constraints:     []string{},
		RelatedProblems: []RelatedProblem{},
		UserCode:        "",
		URL:             url,
		CapturedAt:      at,
	}
}

// Normalize fills absent values of a caller-supplied record with the documented defaults.
func (p ProblemInfo) Normalize(at time.Time) ProblemInfo {
	p.Title = strings.TrimSpace(p.Title)
	if p.Title == "" {
		p.Title = DefaultProblemTitle
	}
	if !p.Difficulty.Valid() {
		p.Difficulty = ParseDifficulty(string(p.Difficulty))
	}
	if strings.TrimSpace(p.Category) == "" {
		p.Category = DefaultCategory
	}
	if p.Examples == nil {
		p.Examples = []string{}
	}
	if p.Constraints == nil {
		p.Constraints = []string{}
	}
	if p.RelatedProblems == nil {
		p.RelatedProblems = []RelatedProblem{}
	}
	if p.CapturedAt.IsZero() {
		p.CapturedAt = at
	}
	return p
}

// Categories splits the joined category string into its tags.
func (p ProblemInfo) Categories() []string {
	parts := strings.Split(p.Category, ",")
	tags := make([]string, 0, len(parts))
	for _, part := range parts {
		if tag := strings.TrimSpace(part); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

// Clone returns a copy that shares no slices with p.
func (p ProblemInfo) Clone() ProblemInfo {
	p.Examples = append([]string{}, p.Examples...)
	p.Constraints = append([]string{}, p.Constraints...)
	p.RelatedProblems = append([]RelatedProblem{}, p.RelatedProblems...)
	return p
}
