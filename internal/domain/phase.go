package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownPhase is returned when a phase name is not one of the six interview phases.
var ErrUnknownPhase = errors.New("unknown interview phase")

// Phase is a stage of a simulated coding interview.
type Phase string

// Interview phases in canonical order.
const (
	PhaseIntroduction         Phase = "introduction"
	PhaseProblemUnderstanding Phase = "problem_understanding"
	PhaseApproachDiscussion   Phase = "approach_discussion"
	PhaseImplementation       Phase = "implementation"
	PhaseTestingOptimization  Phase = "testing_optimization"
	PhaseFeedbackNextSteps    Phase = "feedback_next_steps"
)

// Phases lists every phase in canonical order.
var Phases = []Phase{
	PhaseIntroduction,
	PhaseProblemUnderstanding,
	PhaseApproachDiscussion,
	PhaseImplementation,
	PhaseTestingOptimization,
	PhaseFeedbackNextSteps,
}

// ParsePhase validates a phase name.
func ParsePhase(s string) (Phase, error) {
	p := Phase(strings.TrimSpace(s))
	if p.Index() < 0 {
		return "", fmt.Errorf("%w: %q", ErrUnknownPhase, s)
	}
	return p, nil
}

// Index returns the position of p in canonical order, or -1.
func (p Phase) Index() int {
	for i, candidate := range Phases {
		if candidate == p {
			return i
		}
	}
	return -1
}

// Next returns the following phase. The terminal phase and unknown values return themselves.
func (p Phase) Next() Phase {
	i := p.Index()
	if i < 0 || i == len(Phases)-1 {
		return p
	}
	return Phases[i+1]
}

// String implements fmt.Stringer.
func (p Phase) String() string {
	return string(p)
}

// IsForwardTransition reports whether moving from -> to keeps or advances canonical order.
func IsForwardTransition(from, to Phase) bool {
	return to.Index() >= from.Index()
}
