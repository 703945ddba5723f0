// Package interview tracks the live mock-interview session of one browser tab.
package interview

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/ashureev/leetmentor/internal/domain"
)

// InactiveMessage is reported by Status when no session is live.
const InactiveMessage = "No active session"

const startedAtLayout = "2006-01-02 15:04:05"

const contextInstruction = "Respond as the interviewer to the candidate's latest message. " +
	"Keep your response short (two to four sentences) and end with a question."

// Status is a human-readable snapshot of the tracker.
type Status struct {
	Active       bool         `json:"active"`
	ID           string       `json:"id,omitempty"`
	ProblemTitle string       `json:"problem_title,omitempty"`
	Phase        domain.Phase `json:"phase,omitempty"`
	HintsUsed    string       `json:"hints_used,omitempty"`
	MessageCount int          `json:"message_count"`
	Duration     string       `json:"duration,omitempty"`
	StartedAt    string       `json:"started_at,omitempty"`
	Message      string       `json:"message,omitempty"`
}

// Stats are message and hint counters of the live session.
type Stats struct {
	UserMessages      int          `json:"user_messages"`
	AssistantMessages int          `json:"assistant_messages"`
	TotalMessages     int          `json:"total_messages"`
	HintsGiven        int          `json:"hints_given"`
	Phase             domain.Phase `json:"phase"`
	ElapsedMinutes    int          `json:"elapsed_minutes"`
}

// Tracker owns at most one InterviewSession.
// Mutating calls without a live session are ignored.
type Tracker struct {
	mu      sync.Mutex
	session *domain.InterviewSession
	now     func() time.Time
	newID   func() string
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		t.now = now
	}
}

// WithIDGenerator overrides how session and message ids are generated.
func WithIDGenerator(newID func() string) Option {
	return func(t *Tracker) {
		t.newID = newID
	}
}

// New creates an empty Tracker.
func New(opts ...Option) *Tracker {
	t := &Tracker{
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start begins a new session, discarding any unfinished one.
func (t *Tracker) Start(info domain.ProblemInfo, systemPrompt string) domain.InterviewSession {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	t.session = &domain.InterviewSession{
		ID:               t.newID(),
		Problem:          info.Clone(),
		SystemPrompt:     systemPrompt,
		History:          []domain.Message{},
		Phase:            domain.PhaseIntroduction,
		HintsGiven:       0,
		StartedAt:        now,
		LastActivityAt:   now,
		PhaseTransitions: []domain.PhaseTransition{},
	}
	return t.session.Clone()
}

// AddMessage appends a message tagged with the current phase.
func (t *Tracker) AddMessage(role domain.Role, content string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.session == nil {
		return
	}
	now := t.now()
	t.session.History = append(t.session.History, domain.Message{
		ID:          t.newID(),
		Role:        role,
		Content:     content,
		At:          now,
		PhaseAtTime: t.session.Phase,
	})
	t.session.LastActivityAt = now
}

// UpdatePhase moves the session to phase. Any phase may follow any other.
func (t *Tracker) UpdatePhase(phase domain.Phase, reason string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.session == nil {
		return
	}
	t.session.PhaseTransitions = append(t.session.PhaseTransitions, domain.PhaseTransition{
		From:   t.session.Phase,
		To:     phase,
		At:     t.now(),
		Reason: reason,
	})
	t.session.Phase = phase
}

// IncrementHints counts a hint, up to domain.MaxHints, and returns the new count.
func (t *Tracker) IncrementHints() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.session == nil {
		return 0
	}
	t.session.HintsGiven = min(t.session.HintsGiven+1, domain.MaxHints)
	return t.session.HintsGiven
}

// ShouldEnd reports whether the session reached feedback, ran out of hints or ran too long.
func (t *Tracker) ShouldEnd() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.session == nil {
		return false
	}
	return t.session.Phase == domain.PhaseFeedbackNextSteps ||
		t.session.HintsGiven >= domain.MaxHints ||
		t.now().Sub(t.session.StartedAt) > domain.MaxSessionDuration
}

// Status returns a snapshot for display.
func (t *Tracker) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.session
	if s == nil {
		return Status{Active: false, Message: InactiveMessage}
	}
	return Status{
		Active:       true,
		ID:           s.ID,
		ProblemTitle: s.Problem.Title,
		Phase:        s.Phase,
		HintsUsed:    fmt.Sprintf("%d/%d", s.HintsGiven, domain.MaxHints),
		MessageCount: len(s.History),
		Duration:     fmt.Sprintf("%d minutes", t.elapsedMinutes()),
		StartedAt:    s.StartedAt.Format(startedAtLayout),
	}
}

// BuildContext renders the prompt for the next model turn, or "" without a session.
func (t *Tracker) BuildContext() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.session
	if s == nil {
		return ""
	}

	var b strings.Builder
	b.WriteString(s.SystemPrompt)
	b.WriteString("\n\n")

	if len(s.History) > 0 {
		b.WriteString("## Conversation History\n")
		for _, msg := range s.History {
			fmt.Fprintf(&b, "%s: %s\n", speaker(msg.Role), msg.Content)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Current Session State\n")
	fmt.Fprintf(&b, "- Phase: %s\n", s.Phase)
	fmt.Fprintf(&b, "- Hints used: %d/%d\n", s.HintsGiven, domain.MaxHints)
	fmt.Fprintf(&b, "- Duration: %d minutes\n", t.elapsedMinutes())
	b.WriteString("\n")
	b.WriteString(contextInstruction)
	return b.String()
}

func speaker(role domain.Role) string {
	if role == domain.RoleUser {
		return "Candidate"
	}
	return "Interviewer"
}

// Complete ends the session and returns its summary, or nil without a session.
func (t *Tracker) Complete() *domain.SessionSummary {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.session == nil {
		return nil
	}
	return t.complete()
}

// CompleteIdle completes the session only if it has gone without a message for longer than idle.
func (t *Tracker) CompleteIdle(now time.Time, idle time.Duration) *domain.SessionSummary {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.session == nil || now.Sub(t.session.LastActivityAt) <= idle {
		return nil
	}
	return t.complete()
}

// complete must be called with mu held and a live session.
func (t *Tracker) complete() *domain.SessionSummary {
	s := t.session
	summary := &domain.SessionSummary{
		ID:              s.ID,
		ProblemTitle:    s.Problem.Title,
		Difficulty:      s.Problem.Difficulty,
		Category:        s.Problem.Category,
		ProblemURL:      s.Problem.URL,
		FinalPhase:      s.Phase,
		HintsUsed:       s.HintsGiven,
		TotalMessages:   len(s.History),
		DurationMinutes: t.elapsedMinutes(),
		StartedAt:       s.StartedAt,
		EndedAt:         t.now(),
		Transitions:     append([]domain.PhaseTransition{}, s.PhaseTransitions...),
	}
	t.session = nil
	return summary
}

// Reset discards the session without a summary.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.session = nil
}

// Stats returns counters for the live session, or nil without one.
func (t *Tracker) Stats() *Stats {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.session
	if s == nil {
		return nil
	}
	users := lo.CountBy(s.History, func(m domain.Message) bool {
		return m.Role == domain.RoleUser
	})
	return &Stats{
		UserMessages:      users,
		AssistantMessages: len(s.History) - users,
		TotalMessages:     len(s.History),
		HintsGiven:        s.HintsGiven,
		Phase:             s.Phase,
		ElapsedMinutes:    t.elapsedMinutes(),
	}
}

// Session returns a copy of the live session.
func (t *Tracker) Session() (domain.InterviewSession, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.session == nil {
		return domain.InterviewSession{}, false
	}
	return t.session.Clone(), true
}

// Active reports whether a session is live.
func (t *Tracker) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.session != nil
}

// IdleFor reports how long the live session has gone without a message.
func (t *Tracker) IdleFor(now time.Time) (time.Duration, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.session == nil {
		return 0, false
	}
	return now.Sub(t.session.LastActivityAt), true
}

// elapsedMinutes must be called with mu held.
func (t *Tracker) elapsedMinutes() int {
	return int(t.now().Sub(t.session.StartedAt).Minutes())
}
