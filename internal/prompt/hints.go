package prompt

import "github.com/ashureev/leetmentor/internal/domain"

var hints = map[domain.Phase][]string{
	domain.PhaseIntroduction: {
		"Take a moment to read the problem statement carefully.",
		"Can you restate the problem in your own words?",
		"What are the inputs and what should the output look like?",
	},
	domain.PhaseProblemUnderstanding: {
		"What are the inputs and outputs of this problem?",
		"Can you walk through the first example by hand?",
		"What edge cases should we consider, such as empty input or duplicates?",
	},
	domain.PhaseApproachDiscussion: {
		"What would be the simplest approach?",
		"Which data structure could speed up the lookups in your approach?",
		"Can you trade extra space for a better time complexity?",
	},
	domain.PhaseImplementation: {
		"Start by writing the function signature and the main loop.",
		"How will you handle the edge cases in your code?",
		"Check your loop boundaries and index updates.",
	},
	domain.PhaseTestingOptimization: {
		"Try tracing your code with the first example.",
		"What happens with the smallest possible input?",
		"What are the time and space complexities, and can either be improved?",
	},
	domain.PhaseFeedbackNextSteps: {
		"What part of this problem was the hardest for you?",
		"Which pattern from this problem could you reuse elsewhere?",
		"Try a related problem to practice the same technique.",
	},
}

// Hint returns the level-th hint for a phase, with level clamped to the available hints.
// Unknown phases use the problem understanding hints. The category does not change the
// result yet.
func Hint(phase domain.Phase, category string, level int) string {
	list, ok := hints[phase]
	if !ok {
		list = hints[domain.PhaseProblemUnderstanding]
	}
	return list[min(max(level, 1), len(list))-1]
}
