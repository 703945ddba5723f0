package domain

import (
	"time"
)

const (
	// MaxHints is the number of hints a candidate may receive in one session.
	MaxHints = 5
	// MaxSessionDuration ends a session that has been running for too long.
	MaxSessionDuration = 30 * time.Minute
)

// Role identifies the author of a session message.
type Role string

// Message roles.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of the mentor conversation.
type Message struct {
	ID          string    `json:"id"`
	Role        Role      `json:"role"`
	Content     string    `json:"content"`
	At          time.Time `json:"at"`
	PhaseAtTime Phase     `json:"phase_at_time"`
}

// PhaseTransition records a phase change and why it happened.
type PhaseTransition struct {
	From   Phase     `json:"from"`
	To     Phase     `json:"to"`
	At     time.Time `json:"at"`
	Reason string    `json:"reason"`
}

// InterviewSession is the state of one mentor-mode interview.
type InterviewSession struct {
	ID               string            `json:"id"`
	Problem          ProblemInfo       `json:"problem"`
	SystemPrompt     string            `json:"system_prompt"`
	History          []Message         `json:"history"`
	Phase            Phase             `json:"phase"`
	HintsGiven       int               `json:"hints_given"`
	StartedAt        time.Time         `json:"started_at"`
	LastActivityAt   time.Time         `json:"last_activity_at"`
	PhaseTransitions []PhaseTransition `json:"phase_transitions"`
}

// Clone returns a deep copy of the session.
func (s *InterviewSession) Clone() InterviewSession {
	out := *s
	out.Problem = s.Problem.Clone()
	out.History = append([]Message{}, s.History...)
	out.PhaseTransitions = append([]PhaseTransition{}, s.PhaseTransitions...)
	return out
}

// SessionSummary is the immutable record produced when a session completes.
type SessionSummary struct {
	ID              string            `json:"id"`
	ProblemTitle    string            `json:"problem_title"`
	Difficulty      Difficulty        `json:"difficulty"`
	Category        string            `json:"category"`
	ProblemURL      string            `json:"problem_url"`
	FinalPhase      Phase             `json:"final_phase"`
	HintsUsed       int               `json:"hints_used"`
	TotalMessages   int               `json:"total_messages"`
	DurationMinutes int               `json:"duration_minutes"`
	StartedAt       time.Time         `json:"started_at"`
	EndedAt         time.Time         `json:"ended_at"`
	Transitions     []PhaseTransition `json:"transitions"`
}

// StoredSummary is a session summary persisted for a user's browser tab.
type StoredSummary struct {
	UserID  string         `json:"user_id"`
	TabID   string         `json:"tab_id"`
	Summary SessionSummary `json:"summary"`
}
