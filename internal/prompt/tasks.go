package prompt

import (
	"fmt"
	"strings"
)

// MaxPromptInput caps the runes of page text or code placed into a task prompt.
const MaxPromptInput = 20000

const truncatedMarker = "\n[truncated]"

// SummarizePrompt asks for a concise summary of a problem page.
func SummarizePrompt(pageText string) string {
	return fmt.Sprintf(`Summarize the following coding problem for a candidate preparing for interviews.
Cover the task, the inputs and outputs, the key constraints and any tricky edge cases.
Do not describe a solution. Use at most eight bullet points.

Problem page:
%s`, Truncate(strings.TrimSpace(pageText), MaxPromptInput))
}

// AnalyzeCodePrompt asks for a review of candidate code, optionally focused by a question.
func AnalyzeCodePrompt(code, question string) string {
	question = strings.TrimSpace(question)
	if question == "" {
		question = "Is this code correct, and what are its time and space complexities?"
	}
	return fmt.Sprintf(`You are reviewing a candidate's solution during a coding interview.
Answer the question below about the code. Point out bugs and missed edge cases,
but guide with questions instead of rewriting the solution.

Question: %s

Code:
%s`, question, Truncate(code, MaxPromptInput))
}

// Truncate cuts s to at most limit runes and marks the cut.
func Truncate(s string, limit int) string {
	runes := []rune(s)
	if limit <= 0 || len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + truncatedMarker
}
