package mentor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/ashureev/leetmentor/internal/agent"
	"github.com/ashureev/leetmentor/internal/api"
	"github.com/ashureev/leetmentor/internal/browser"
	"github.com/ashureev/leetmentor/internal/config"
	"github.com/ashureev/leetmentor/internal/domain"
	"github.com/ashureev/leetmentor/internal/identity"
	"github.com/ashureev/leetmentor/internal/interview"
	"github.com/ashureev/leetmentor/internal/news"
	"github.com/ashureev/leetmentor/internal/videos"
)

// defaultMaxRequestBodySize is the default maximum allowed request body size (2MB).
const defaultMaxRequestBodySize = 2 << 20

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
	defaultVideoResults = 5
)

// NewsSource returns the latest AI news.
type NewsSource interface {
	Latest(ctx context.Context) ([]domain.NewsItem, error)
}

// VideoSearcher searches walkthrough videos.
type VideoSearcher interface {
	Enabled() bool
	Search(ctx context.Context, query string, max int) ([]domain.Video, error)
}

// Deps are the optional collaborators of a Handler.
type Deps struct {
	AI     *agent.Service
	News   NewsSource
	Videos VideoSearcher
}

// Handler serves the mentor HTTP API.
type Handler struct {
	svc         *Service
	ai          *agent.Service
	news        NewsSource
	videos      VideoSearcher
	rateLimiter *RateLimiter
	ws          *WebSocketHandler
	maxBody     int64
	keepalive   time.Duration
}

// NewHandler creates the mentor handler.
func NewHandler(svc *Service, deps Deps, cfg *config.Config) *Handler {
	rateLimitRequests := 20
	rateLimitWindow := time.Minute
	maxBody := int64(defaultMaxRequestBodySize)
	keepalive := 10 * time.Second
	var origins []string
	isDev := true

	if cfg != nil {
		rateLimitRequests = cfg.RateLimit.RequestsPerWindow
		rateLimitWindow = cfg.RateLimit.WindowDuration
		if cfg.SSE.MaxRequestBodySize > 0 {
			maxBody = cfg.SSE.MaxRequestBodySize
		}
		if cfg.SSE.KeepaliveInterval > 0 {
			keepalive = cfg.SSE.KeepaliveInterval
		}
		origins = cfg.AllowedOrigins
		isDev = cfg.IsDevelopment()
	}

	h := &Handler{
		svc:         svc,
		ai:          deps.AI,
		news:        deps.News,
		videos:      deps.Videos,
		rateLimiter: NewRateLimiter(rateLimitRequests, rateLimitWindow),
		maxBody:     maxBody,
		keepalive:   keepalive,
	}
	h.ws = NewWebSocketHandler(svc, h.rateLimiter, origins, isDev)
	return h
}

// RegisterRoutes registers mentor routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/mentor", func(r chi.Router) {
		r.Post("/start", h.HandleStart)
		r.Post("/chat", h.HandleChat)
		r.Post("/hint", h.HandleHint)
		r.Post("/phase", h.HandlePhase)
		r.Post("/next", h.HandleNext)
		r.Post("/complete", h.HandleComplete)
		r.Post("/reset", h.HandleReset)
		r.Get("/status", h.HandleStatus)
		r.Get("/stats", h.HandleStats)
		r.Get("/context", h.HandleContext)
		r.Get("/history", h.HandleHistory)
	})
	r.Post("/api/summarize", h.HandleSummarize)
	r.Post("/api/analyze", h.HandleAnalyze)
	r.Get("/api/news", h.HandleNews)
	r.Get("/api/videos", h.HandleVideos)
	r.Get("/ws/mentor", h.ws.ServeHTTP)
}

// Close releases handler resources.
func (h *Handler) Close() {
	h.rateLimiter.Stop()
	if h.ai != nil {
		h.ai.Close()
	}
}

type chatRequest struct {
	Message string `json:"message"`
}

type phaseRequest struct {
	Phase  string `json:"phase"`
	Reason string `json:"reason"`
}

type summarizeRequest struct {
	Text string `json:"text"`
}

type analyzeRequest struct {
	Code     string `json:"code"`
	Question string `json:"question"`
}

type doneEvent struct {
	Status    interview.Status `json:"status"`
	ShouldEnd bool             `json:"should_end"`
}

// requestKey returns the caller's session key, writing 401 when there is no user.
func requestKey(w http.ResponseWriter, r *http.Request) (Key, bool) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return Key{}, false
	}
	return Key{UserID: userID, TabID: identity.TabIDFromContext(r.Context())}, true
}

// decodeBody decodes a JSON body limited to maxBody bytes. An empty body leaves v untouched.
func (h *Handler) decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		api.Error(w, http.StatusRequestEntityTooLarge, "request body too large")
		return false
	}
	api.Error(w, http.StatusBadRequest, "invalid request body")
	return false
}

func (h *Handler) allow(w http.ResponseWriter, key Key) bool {
	// Rate-limit by userID only so clients cannot bypass throttling by opening tabs.
	if !h.rateLimiter.Allow(key.UserID) {
		api.Error(w, http.StatusTooManyRequests, "rate limit exceeded")
		return false
	}
	return true
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrNoActiveSession):
		return http.StatusConflict
	case errors.Is(err, ErrNoProblemSource),
		errors.Is(err, ErrEmptyMessage),
		errors.Is(err, domain.ErrUnknownPhase),
		errors.Is(err, agent.ErrEmptyInput),
		errors.Is(err, videos.ErrEmptyQuery),
		errors.Is(err, browser.ErrInvalidURL):
		return http.StatusBadRequest
	case errors.Is(err, ErrRendererDisabled),
		errors.Is(err, ErrAIUnavailable),
		errors.Is(err, videos.ErrMissingAPIKey),
		errors.Is(err, news.ErrNoFeed):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		slog.Error("Mentor request failed",
			"path", r.URL.Path,
			"request_id", chiMiddleware.GetReqID(r.Context()),
			"error", err,
		)
	}
	api.Error(w, status, err.Error())
}

// HandleStart handles POST /api/mentor/start requests.
func (h *Handler) HandleStart(w http.ResponseWriter, r *http.Request) {
	key, ok := requestKey(w, r)
	if !ok {
		return
	}
	var req StartRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	// Rendering a URL drives the headless browser.
	if req.rendersURL() && !h.allow(w, key) {
		return
	}

	result, err := h.svc.Start(r.Context(), key, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.JSON(w, http.StatusOK, result)
}

// HandleChat handles POST /api/mentor/chat requests and streams the reply as SSE.
func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	key, ok := requestKey(w, r)
	if !ok {
		return
	}
	var req chatRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	if req.Message == "" {
		api.Error(w, http.StatusBadRequest, ErrEmptyMessage.Error())
		return
	}
	if !h.svc.Status(key).Active {
		writeError(w, r, ErrNoActiveSession)
		return
	}
	if !h.allow(w, key) {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		api.Error(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	slog.Info("Mentor chat request",
		"user_id", key.UserID,
		"tab_id", key.TabID,
		"message_length", len(req.Message),
		"request_id", chiMiddleware.GetReqID(r.Context()),
	)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	type streamEvent struct {
		chunk *ChatChunk
		err   error
	}
	events := make(chan streamEvent)
	go func() {
		defer close(events)
		for chunk, err := range h.svc.Chat(ctx, key, ChannelHTTP, req.Message) {
			select {
			case events <- streamEvent{chunk: chunk, err: err}:
			case <-ctx.Done():
				return
			}
		}
	}()

	keepalive := time.NewTicker(h.keepalive)
	defer keepalive.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Mentor chat stream disconnected", "user_id", key.UserID, "tab_id", key.TabID)
			return
		case <-keepalive.C:
			if err := writeSSE(w, "ping", `{"status":"alive"}`); err != nil {
				slog.Warn("failed to write SSE keepalive ping", "error", err, "user_id", key.UserID)
				return
			}
			flusher.Flush()
		case ev, open := <-events:
			if !open {
				h.writeDone(w, key)
				flusher.Flush()
				return
			}
			if ev.err != nil {
				if err := writeSSEJSON(w, "error", map[string]string{"error": ev.err.Error()}); err != nil {
					slog.Warn("failed to write SSE error event", "error", err)
				}
				flusher.Flush()
				return
			}
			if err := writeSSEJSON(w, "message", ev.chunk); err != nil {
				slog.Warn("failed to write SSE message event", "error", err)
				return
			}
			flusher.Flush()
		}
	}
}

func (h *Handler) writeDone(w io.Writer, key Key) {
	done := doneEvent{Status: h.svc.Status(key), ShouldEnd: h.svc.ShouldEnd(key)}
	if err := writeSSEJSON(w, "done", done); err != nil {
		slog.Warn("failed to write SSE done event", "error", err)
	}
}

// HandleHint handles POST /api/mentor/hint requests.
func (h *Handler) HandleHint(w http.ResponseWriter, r *http.Request) {
	key, ok := requestKey(w, r)
	if !ok {
		return
	}
	hint, err := h.svc.Hint(key)
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.JSON(w, http.StatusOK, hint)
}

// HandlePhase handles POST /api/mentor/phase requests.
func (h *Handler) HandlePhase(w http.ResponseWriter, r *http.Request) {
	key, ok := requestKey(w, r)
	if !ok {
		return
	}
	var req phaseRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	result, err := h.svc.AdvancePhase(key, req.Phase, req.Reason)
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.JSON(w, http.StatusOK, result)
}

// HandleNext handles POST /api/mentor/next requests.
func (h *Handler) HandleNext(w http.ResponseWriter, r *http.Request) {
	key, ok := requestKey(w, r)
	if !ok {
		return
	}
	var req phaseRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	result, err := h.svc.NextPhase(key, req.Reason)
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.JSON(w, http.StatusOK, result)
}

// HandleComplete handles POST /api/mentor/complete requests.
func (h *Handler) HandleComplete(w http.ResponseWriter, r *http.Request) {
	key, ok := requestKey(w, r)
	if !ok {
		return
	}
	summary, err := h.svc.Complete(r.Context(), key)
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.JSON(w, http.StatusOK, summary)
}

// HandleReset handles POST /api/mentor/reset requests.
func (h *Handler) HandleReset(w http.ResponseWriter, r *http.Request) {
	key, ok := requestKey(w, r)
	if !ok {
		return
	}
	h.svc.Reset(key)
	api.JSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// HandleStatus handles GET /api/mentor/status requests.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	key, ok := requestKey(w, r)
	if !ok {
		return
	}
	api.JSON(w, http.StatusOK, h.svc.Status(key))
}

// HandleStats handles GET /api/mentor/stats requests.
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	key, ok := requestKey(w, r)
	if !ok {
		return
	}
	stats, err := h.svc.Stats(key)
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.JSON(w, http.StatusOK, stats)
}

// HandleContext handles GET /api/mentor/context requests.
func (h *Handler) HandleContext(w http.ResponseWriter, r *http.Request) {
	key, ok := requestKey(w, r)
	if !ok {
		return
	}
	text, err := h.svc.Context(key)
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.JSON(w, http.StatusOK, map[string]string{"context": text})
}

// HandleHistory handles GET /api/mentor/history requests.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	key, ok := requestKey(w, r)
	if !ok {
		return
	}
	limit := queryInt(r, "limit", defaultHistoryLimit)
	limit = min(max(limit, 1), maxHistoryLimit)

	summaries, err := h.svc.History(r.Context(), key.UserID, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.JSON(w, http.StatusOK, map[string]any{"summaries": summaries})
}

// HandleSummarize handles POST /api/summarize requests.
func (h *Handler) HandleSummarize(w http.ResponseWriter, r *http.Request) {
	key, ok := requestKey(w, r)
	if !ok {
		return
	}
	if h.ai == nil {
		writeError(w, r, ErrAIUnavailable)
		return
	}
	var req summarizeRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	if !h.allow(w, key) {
		return
	}
	summary, err := h.ai.Summarize(r.Context(), req.Text)
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.JSON(w, http.StatusOK, map[string]string{"summary": summary})
}

// HandleAnalyze handles POST /api/analyze requests.
func (h *Handler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	key, ok := requestKey(w, r)
	if !ok {
		return
	}
	if h.ai == nil {
		writeError(w, r, ErrAIUnavailable)
		return
	}
	var req analyzeRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	if !h.allow(w, key) {
		return
	}
	analysis, err := h.ai.AnalyzeCode(r.Context(), req.Code, req.Question)
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.JSON(w, http.StatusOK, map[string]string{"analysis": analysis})
}

// HandleNews handles GET /api/news requests.
func (h *Handler) HandleNews(w http.ResponseWriter, r *http.Request) {
	if h.news == nil {
		writeError(w, r, news.ErrNoFeed)
		return
	}
	items, err := h.news.Latest(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.JSON(w, http.StatusOK, map[string]any{"items": items})
}

// HandleVideos handles GET /api/videos requests.
// Without a q parameter the query is built from the tab's current problem.
func (h *Handler) HandleVideos(w http.ResponseWriter, r *http.Request) {
	key, ok := requestKey(w, r)
	if !ok {
		return
	}
	if h.videos == nil || !h.videos.Enabled() {
		writeError(w, r, videos.ErrMissingAPIKey)
		return
	}

	query := r.URL.Query().Get("q")
	if query == "" {
		problem, ok := h.svc.Problem(key)
		if !ok {
			api.Error(w, http.StatusBadRequest, "q is required without an active session")
			return
		}
		query = videos.QueryFor(problem)
	}

	results, err := h.videos.Search(r.Context(), query, queryInt(r, "max", defaultVideoResults))
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.JSON(w, http.StatusOK, map[string]any{"query": query, "videos": results})
}

func queryInt(r *http.Request, name string, fallback int) int {
	if v, err := strconv.Atoi(r.URL.Query().Get(name)); err == nil {
		return v
	}
	return fallback
}

func writeSSE(w io.Writer, event, data string) error {
	_, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	return err
}

func writeSSEJSON(w io.Writer, event string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event, err)
	}
	return writeSSE(w, event, string(data))
}
