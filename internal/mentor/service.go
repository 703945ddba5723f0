// Package mentor runs guided mock interviews for the browser extension.
package mentor

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ashureev/leetmentor/internal/agent"
	"github.com/ashureev/leetmentor/internal/domain"
	"github.com/ashureev/leetmentor/internal/extractor"
	"github.com/ashureev/leetmentor/internal/interview"
	"github.com/ashureev/leetmentor/internal/prompt"
	"github.com/ashureev/leetmentor/internal/store"
)

var (
	// ErrNoActiveSession is returned when a tab has no live interview.
	ErrNoActiveSession = errors.New("no active session")
	// ErrNoProblemSource is returned when a start request carries no page, URL or problem.
	ErrNoProblemSource = errors.New("no problem source: provide html, url or problem")
	// ErrRendererDisabled is returned for URL-only starts when no page renderer is configured.
	ErrRendererDisabled = errors.New("page renderer disabled")
	// ErrAIUnavailable is returned when no model processor is configured.
	ErrAIUnavailable = errors.New("AI provider not configured")
	// ErrEmptyMessage is returned for blank chat messages.
	ErrEmptyMessage = errors.New("message is required")
)

// Renderer returns the rendered HTML of a page.
type Renderer interface {
	Render(ctx context.Context, pageURL string) (string, error)
}

// StartRequest describes the problem a new interview is about.
// Problem wins over HTML, and HTML wins over URL.
type StartRequest struct {
	HTML    string              `json:"html,omitempty"`
	URL     string              `json:"url,omitempty"`
	Problem *domain.ProblemInfo `json:"problem,omitempty"`
}

// rendersURL reports whether the problem will be loaded through the renderer.
func (r StartRequest) rendersURL() bool {
	return r.Problem == nil && strings.TrimSpace(r.HTML) == "" && strings.TrimSpace(r.URL) != ""
}

// StartResult is the outcome of Start.
type StartResult struct {
	Problem     domain.ProblemInfo         `json:"problem"`
	Status      interview.Status           `json:"status"`
	Instruction string                     `json:"instruction"`
	Fields      map[string]extractor.Trace `json:"fields,omitempty"`
}

// ChatChunk is one piece of a streamed interviewer reply.
type ChatChunk struct {
	Content string `json:"content"`
}

// HintResult is a hint handed to the candidate.
type HintResult struct {
	Hint      string       `json:"hint"`
	Level     int          `json:"level"`
	Phase     domain.Phase `json:"phase"`
	HintsUsed string       `json:"hints_used"`
	ShouldEnd bool         `json:"should_end"`
}

// PhaseResult is the outcome of a phase change.
type PhaseResult struct {
	Status      interview.Status `json:"status"`
	Instruction string           `json:"instruction"`
	Backward    bool             `json:"backward"`
	ShouldEnd   bool             `json:"should_end"`
}

// Service coordinates extraction, prompting, tracking and persistence.
type Service struct {
	registry  *Registry
	extractor *extractor.Extractor
	renderer  Renderer
	processor agent.Processor
	repo      store.Repository
	convLog   ConversationLogger
	logger    *slog.Logger
	now       func() time.Time

	hooksMu  sync.Mutex
	onReaped []func(Key)
}

// Option configures a Service.
type Option func(*Service)

// WithRenderer enables URL-only starts.
func WithRenderer(r Renderer) Option {
	return func(s *Service) { s.renderer = r }
}

// WithProcessor sets the model used for chat.
func WithProcessor(p agent.Processor) Option {
	return func(s *Service) { s.processor = p }
}

// WithConversationLogger records conversation events.
func WithConversationLogger(l ConversationLogger) Option {
	return func(s *Service) { s.convLog = l }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a Service.
func NewService(registry *Registry, ex *extractor.Extractor, repo store.Repository, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		registry:  registry,
		extractor: ex,
		repo:      repo,
		convLog:   noopConversationLogger{},
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start begins a new interview for key, replacing any unfinished one.
func (s *Service) Start(ctx context.Context, key Key, req StartRequest) (*StartResult, error) {
	info, fields, err := s.resolveProblem(ctx, req)
	if err != nil {
		return nil, err
	}

	systemPrompt := prompt.BuildSystemPrompt(info)
	var (
		session  domain.InterviewSession
		status   interview.Status
		replaced bool
	)
	s.registry.Update(key, func(tracker *interview.Tracker) {
		replaced = tracker.Active()
		session = tracker.Start(info, systemPrompt)
		status = tracker.Status()
	})
	if replaced {
		s.logger.Info("Replacing unfinished interview", "key", key.String())
	}

	s.logger.Info("Interview started",
		"user_id", key.UserID,
		"tab_id", key.TabID,
		"session_id", session.ID,
		"title", info.Title,
		"difficulty", info.Difficulty,
	)
	s.logEvent(key, ChannelHTTP, "internal", EventSessionStart, "", map[string]any{
		"session_id": session.ID,
		"title":      info.Title,
		"url":        info.URL,
	})

	return &StartResult{
		Problem:     info,
		Status:      status,
		Instruction: prompt.PhaseInstruction(session.Phase),
		Fields:      fields,
	}, nil
}

func (s *Service) resolveProblem(ctx context.Context, req StartRequest) (domain.ProblemInfo, map[string]extractor.Trace, error) {
	switch {
	case req.Problem != nil:
		info := req.Problem.Normalize(s.now())
		if info.URL == "" {
			info.URL = req.URL
		}
		return info, nil, nil
	case strings.TrimSpace(req.HTML) != "":
		report := s.extractor.ExtractReport(strings.NewReader(req.HTML), req.URL)
		return report.Info, report.Fields, nil
	case req.rendersURL():
		if s.renderer == nil {
			return domain.ProblemInfo{}, nil, ErrRendererDisabled
		}
		html, err := s.renderer.Render(ctx, req.URL)
		if err != nil {
			return domain.ProblemInfo{}, nil, fmt.Errorf("render %s: %w", req.URL, err)
		}
		report := s.extractor.ExtractReport(strings.NewReader(html), req.URL)
		return report.Info, report.Fields, nil
	default:
		return domain.ProblemInfo{}, nil, ErrNoProblemSource
	}
}

// Chat records the candidate message, streams the interviewer reply and records it.
func (s *Service) Chat(ctx context.Context, key Key, channel, message string) iter.Seq2[*ChatChunk, error] {
	return func(yield func(*ChatChunk, error) bool) {
		message = strings.TrimSpace(message)
		if message == "" {
			yield(nil, ErrEmptyMessage)
			return
		}
		tracker, ok := s.activeTracker(key)
		if !ok {
			yield(nil, ErrNoActiveSession)
			return
		}
		if s.processor == nil {
			yield(nil, ErrAIUnavailable)
			return
		}

		tracker.AddMessage(domain.RoleUser, message)
		s.logEvent(key, channel, "outbound", EventUserMessage, message, nil)

		var reply strings.Builder
		chunks := 0
		var streamErr error
		for text, err := range s.processor.Stream(ctx, tracker.BuildContext()) {
			if err != nil {
				streamErr = err
				break
			}
			chunks++
			reply.WriteString(text)
			if !yield(&ChatChunk{Content: text}, nil) {
				streamErr = context.Canceled
				break
			}
		}

		content := strings.TrimSpace(reply.String())
		if content == "" && streamErr == nil {
			streamErr = agent.ErrEmptyResponse
		}
		if content != "" {
			tracker.AddMessage(domain.RoleAssistant, content)
		}
		s.logEvent(key, channel, "inbound", EventAssistantMessage, content, map[string]any{
			"stream_chunks": chunks,
			"partial":       streamErr != nil,
			"stream_error":  errString(streamErr),
			"processor":     s.processor.Name(),
		})

		if streamErr != nil && !errors.Is(streamErr, context.Canceled) {
			s.logger.Error("Interviewer stream failed", "key", key.String(), "error", streamErr)
			yield(nil, fmt.Errorf("interviewer reply: %w", streamErr))
		}
	}
}

// Hint counts a hint and returns the static hint for the current phase.
func (s *Service) Hint(key Key) (*HintResult, error) {
	tracker, ok := s.activeTracker(key)
	if !ok {
		return nil, ErrNoActiveSession
	}
	level := tracker.IncrementHints()
	session, ok := tracker.Session()
	if level == 0 || !ok {
		return nil, ErrNoActiveSession
	}

	hint := prompt.Hint(session.Phase, session.Problem.Category, level)
	tracker.AddMessage(domain.RoleAssistant, hint)
	s.logEvent(key, ChannelHTTP, "inbound", EventHint, hint, map[string]any{"level": level})

	return &HintResult{
		Hint:      hint,
		Level:     level,
		Phase:     session.Phase,
		HintsUsed: tracker.Status().HintsUsed,
		ShouldEnd: tracker.ShouldEnd(),
	}, nil
}

// AdvancePhase moves the interview to the named phase. Backward moves are applied but logged.
func (s *Service) AdvancePhase(key Key, phaseName, reason string) (*PhaseResult, error) {
	next, err := domain.ParsePhase(phaseName)
	if err != nil {
		return nil, err
	}
	return s.moveTo(key, func(domain.Phase) domain.Phase { return next }, reason)
}

// NextPhase moves the interview one phase forward in canonical order.
func (s *Service) NextPhase(key Key, reason string) (*PhaseResult, error) {
	return s.moveTo(key, domain.Phase.Next, reason)
}

func (s *Service) moveTo(key Key, target func(domain.Phase) domain.Phase, reason string) (*PhaseResult, error) {
	tracker, ok := s.activeTracker(key)
	if !ok {
		return nil, ErrNoActiveSession
	}
	session, ok := tracker.Session()
	if !ok {
		return nil, ErrNoActiveSession
	}

	from := session.Phase
	to := target(from)
	backward := !domain.IsForwardTransition(from, to)
	if backward {
		s.logger.Warn("Interview phase moved backwards",
			"key", key.String(), "from", from, "to", to, "reason", reason)
	}
	tracker.UpdatePhase(to, reason)
	s.logEvent(key, ChannelHTTP, "internal", EventPhaseChange, "", map[string]any{
		"from": from, "to": to, "reason": reason, "backward": backward,
	})

	return &PhaseResult{
		Status:      tracker.Status(),
		Instruction: prompt.PhaseInstruction(to),
		Backward:    backward,
		ShouldEnd:   tracker.ShouldEnd(),
	}, nil
}

// Status reports the interview of key. Unknown keys report an inactive status.
func (s *Service) Status(key Key) interview.Status {
	if tracker, ok := s.registry.Lookup(key); ok {
		return tracker.Status()
	}
	return interview.Status{Active: false, Message: interview.InactiveMessage}
}

// ShouldEnd reports whether the interview of key should wrap up.
func (s *Service) ShouldEnd(key Key) bool {
	tracker, ok := s.registry.Lookup(key)
	return ok && tracker.ShouldEnd()
}

// Stats returns counters for the interview of key.
func (s *Service) Stats(key Key) (*interview.Stats, error) {
	tracker, ok := s.activeTracker(key)
	if !ok {
		return nil, ErrNoActiveSession
	}
	stats := tracker.Stats()
	if stats == nil {
		return nil, ErrNoActiveSession
	}
	return stats, nil
}

// Context returns the prompt that the next chat turn would send.
func (s *Service) Context(key Key) (string, error) {
	tracker, ok := s.activeTracker(key)
	if !ok {
		return "", ErrNoActiveSession
	}
	text := tracker.BuildContext()
	if text == "" {
		return "", ErrNoActiveSession
	}
	return text, nil
}

// Problem returns the problem of the live interview of key.
func (s *Service) Problem(key Key) (domain.ProblemInfo, bool) {
	tracker, ok := s.registry.Lookup(key)
	if !ok {
		return domain.ProblemInfo{}, false
	}
	session, ok := tracker.Session()
	return session.Problem, ok
}

// Complete ends the interview of key and persists its summary.
// A failed save is logged and the summary is still returned.
func (s *Service) Complete(ctx context.Context, key Key) (*domain.SessionSummary, error) {
	tracker, ok := s.registry.Lookup(key)
	if !ok {
		return nil, ErrNoActiveSession
	}
	summary := tracker.Complete()
	if summary == nil {
		return nil, ErrNoActiveSession
	}
	s.persist(ctx, key, ChannelHTTP, summary)
	return summary, nil
}

func (s *Service) persist(ctx context.Context, key Key, channel string, summary *domain.SessionSummary) {
	if err := s.repo.SaveSummary(ctx, domain.StoredSummary{UserID: key.UserID, TabID: key.TabID, Summary: *summary}); err != nil {
		s.logger.Warn("Failed to persist session summary", "key", key.String(), "session_id", summary.ID, "error", err)
	}
	s.logEvent(key, channel, "internal", EventSessionComplete, "", map[string]any{
		"session_id":     summary.ID,
		"final_phase":    summary.FinalPhase,
		"hints_used":     summary.HintsUsed,
		"total_messages": summary.TotalMessages,
		"duration_min":   summary.DurationMinutes,
	})
	s.logger.Info("Interview completed",
		"key", key.String(),
		"session_id", summary.ID,
		"final_phase", summary.FinalPhase,
		"messages", summary.TotalMessages,
	)
}

// Reset discards the interview of key without a summary.
func (s *Service) Reset(key Key) {
	if tracker, ok := s.registry.Lookup(key); ok {
		tracker.Reset()
		s.logEvent(key, ChannelHTTP, "internal", EventSessionReset, "", nil)
	}
}

// History returns the user's completed interviews, newest first.
func (s *Service) History(ctx context.Context, userID string, limit int) ([]domain.StoredSummary, error) {
	summaries, err := s.repo.ListSummaries(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list summaries: %w", err)
	}
	return summaries, nil
}

// ReapIdle completes and persists interviews idle for longer than idle.
// Trackers without a live session are dropped. It returns the number of completed interviews.
// Complete and Reset leave their tracker registered; it is dropped here.
func (s *Service) ReapIdle(ctx context.Context, idle time.Duration) int {
	now := s.now()
	reaped := 0
	s.registry.Range(func(key Key, tracker *interview.Tracker) bool {
		if ctx.Err() != nil {
			return false
		}
		if summary := tracker.CompleteIdle(now, idle); summary != nil {
			s.persist(ctx, key, ChannelReaper, summary)
			s.notifyReaped(key)
			reaped++
		}
		s.registry.DeleteInactive(key, tracker)
		return true
	})
	return reaped
}

// OnReaped registers fn to run after an idle interview is completed by ReapIdle.
func (s *Service) OnReaped(fn func(Key)) {
	s.hooksMu.Lock()
	defer s.hooksMu.Unlock()
	s.onReaped = append(s.onReaped, fn)
}

func (s *Service) notifyReaped(key Key) {
	s.hooksMu.Lock()
	hooks := append([]func(Key){}, s.onReaped...)
	s.hooksMu.Unlock()
	for _, fn := range hooks {
		fn(key)
	}
}

func (s *Service) activeTracker(key Key) (*interview.Tracker, bool) {
	tracker, ok := s.registry.Lookup(key)
	if !ok || !tracker.Active() {
		return nil, false
	}
	return tracker, true
}

func (s *Service) logEvent(key Key, channel, direction, eventType, content string, meta map[string]any) {
	s.convLog.Log(ConversationLogEvent{
		Timestamp:  s.now().UTC().Format(time.RFC3339Nano),
		UserID:     key.UserID,
		TabID:      key.TabID,
		Channel:    channel,
		Direction:  direction,
		EventType:  eventType,
		ContentRaw: content,
		Content:    cleanForReadability(content),
		Meta:       meta,
	})
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
