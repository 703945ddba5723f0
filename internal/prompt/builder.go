// Package prompt renders the interviewer instructions handed to the model.
//
// Everything here is a pure function over static tables.
package prompt

import (
	"fmt"
	"strings"

	"github.com/ashureev/leetmentor/internal/domain"
)

const methodology = `You are an experienced technical interviewer at a top tech company, running a mock coding interview.
Your goal is to help the candidate grow as a problem solver, not to hand them answers.

## Interview Phases
1. Problem Understanding: make sure the candidate can restate the problem, inputs, outputs and edge cases.
2. Approach Discussion: let the candidate propose approaches and compare their trade-offs.
3. Implementation: let the candidate write the code while you watch for bugs and unclear logic.
4. Testing & Optimization: have the candidate trace examples, test edge cases and analyze complexity.
5. Feedback & Next Steps: summarize strengths, areas to improve and related problems to practice.

## Questioning Style
- Use the Socratic method: ask guiding questions instead of giving answers.
- Ask one question at a time and wait for the candidate's reply.
- When the candidate is stuck, narrow the question before offering a hint.
- Acknowledge correct reasoning briefly, then push one step further.

## Hint Policy
Hints are progressive. Only move to the next level when the previous one did not help.
- Level 1: a clarifying question about the problem.
- Level 2: point at the relevant data structure or pattern.
- Level 3: outline the high-level approach without details.
- Level 4: describe the key step or insight of the algorithm.
- Level 5: walk through pseudocode for the critical part.
Never write the full solution code for the candidate.

## Response Format
- Keep responses short: two to four sentences.
- Use plain language and inline code for identifiers.
- End every response with a question for the candidate.

## Do
- Encourage the candidate to think out loud.
- Ask about time and space complexity.
- Point out edge cases the candidate has not considered.

## Don't
- Don't give away the solution.
- Don't write large blocks of code.
- Don't move to the next phase before the current one is settled.
- Don't be discouraging.`

// BuildSystemPrompt combines the interviewer methodology with problem details and category guidance.
func BuildSystemPrompt(info domain.ProblemInfo) string {
	g, key := Guidance(info.Category)

	var b strings.Builder
	b.WriteString(methodology)
	b.WriteString("\n\n## Current Problem\n")
	fmt.Fprintf(&b, "- Title: %s\n", info.Title)
	fmt.Fprintf(&b, "- Difficulty: %s\n", info.Difficulty)
	fmt.Fprintf(&b, "- Category: %s\n", info.Category)

	fmt.Fprintf(&b, "\n## %s Guidance\n", key)
	writeList(&b, "Common approaches", g.Approaches)
	writeList(&b, "Key concepts", g.KeyConcepts)
	writeList(&b, "Common pitfalls", g.CommonPitfalls)
	writeList(&b, "Related problems", g.RelatedProblems)
	return strings.TrimRight(b.String(), "\n")
}

func writeList(b *strings.Builder, heading string, items []string) {
	fmt.Fprintf(b, "%s:\n", heading)
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
}

var phaseInstructions = map[domain.Phase]string{
	domain.PhaseIntroduction:         "Greet the candidate, introduce the problem briefly and ask them to restate it in their own words.",
	domain.PhaseProblemUnderstanding: "Make sure the candidate understands the inputs, outputs, constraints and edge cases before moving on.",
	domain.PhaseApproachDiscussion:   "Ask the candidate for possible approaches and discuss their time and space complexity.",
	domain.PhaseImplementation:       "Let the candidate implement their approach. Ask about unclear parts and point at bugs with questions.",
	domain.PhaseTestingOptimization:  "Have the candidate walk through test cases, including edge cases, and look for optimizations.",
	domain.PhaseFeedbackNextSteps:    "Summarize what went well, what to improve and suggest related problems to practice.",
}

// PhaseInstruction returns the one-line instruction for a phase.
// Unknown phases get the problem understanding instruction.
func PhaseInstruction(phase domain.Phase) string {
	if s, ok := phaseInstructions[phase]; ok {
		return s
	}
	return phaseInstructions[domain.PhaseProblemUnderstanding]
}
