package mentor

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashureev/leetmentor/internal/agent"
	"github.com/ashureev/leetmentor/internal/browser"
	"github.com/ashureev/leetmentor/internal/config"
	"github.com/ashureev/leetmentor/internal/domain"
	"github.com/ashureev/leetmentor/internal/identity"
	"github.com/ashureev/leetmentor/internal/news"
	"github.com/ashureev/leetmentor/internal/videos"
)

const testUserHeader = "X-Test-User"

type fakeNews struct {
	items []domain.NewsItem
	err   error
}

func (f fakeNews) Latest(context.Context) ([]domain.NewsItem, error) { return f.items, f.err }

type fakeVideos struct {
	queries []string
}

func (f *fakeVideos) Enabled() bool { return true }

func (f *fakeVideos) Search(_ context.Context, query string, max int) ([]domain.Video, error) {
	f.queries = append(f.queries, query)
	return []domain.Video{{ID: "abc", Title: query}}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		AppEnv:    "development",
		RateLimit: config.RateLimitConfig{RequestsPerWindow: 100, WindowDuration: time.Minute},
		SSE:       config.SSEConfig{KeepaliveInterval: time.Second, MaxRequestBodySize: 1 << 16},
	}
}

type handlerFixture struct {
	serviceFixture
	handler *Handler
	router  http.Handler
}

func newHandlerFixture(t *testing.T, cfg *config.Config, deps Deps, opts ...Option) handlerFixture {
	t.Helper()
	f := newFixture(t, opts...)
	h := NewHandler(f.svc, deps, cfg)
	t.Cleanup(h.Close)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if user := req.Header.Get(testUserHeader); user != "" {
				tab := req.Header.Get(identity.TabHeaderName)
				if tab == "" {
					tab = identity.DefaultTabIDValue
				}
				req = req.WithContext(identity.WithIdentity(req.Context(), user, tab))
			}
			next.ServeHTTP(w, req)
		})
	})
	h.RegisterRoutes(r)
	return handlerFixture{serviceFixture: f, handler: h, router: r}
}

func (f handlerFixture) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(testUserHeader, testKey.UserID)
	req.Header.Set(identity.TabHeaderName, testKey.TabID)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f handlerFixture) start(t *testing.T) {
	t.Helper()
	rec := f.do(http.MethodPost, "/api/mentor/start",
		`{"problem":{"title":"1. Two Sum","difficulty":"Easy","category":"Array, Hash Table"}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHandleStartAndStatus(t *testing.T) {
	f := newHandlerFixture(t, testConfig(), Deps{})
	f.start(t)

	rec := f.do(http.MethodGet, "/api/mentor/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	status := decode[map[string]any](t, rec)
	assert.Equal(t, true, status["active"])
	assert.Equal(t, "1. Two Sum", status["problem_title"])
	assert.Equal(t, "0/5", status["hints_used"])
}

func TestHandleStartWithoutSource(t *testing.T) {
	f := newHandlerFixture(t, testConfig(), Deps{})
	rec := f.do(http.MethodPost, "/api/mentor/start", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleStartInvalidJSON(t *testing.T) {
	f := newHandlerFixture(t, testConfig(), Deps{})
	rec := f.do(http.MethodPost, "/api/mentor/start", `{"problem":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleStartBodyTooLarge(t *testing.T) {
	cfg := testConfig()
	cfg.SSE.MaxRequestBodySize = 32
	f := newHandlerFixture(t, cfg, Deps{})

	rec := f.do(http.MethodPost, "/api/mentor/start", `{"html":"`+strings.Repeat("x", 256)+`"}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestHandleUnauthorized(t *testing.T) {
	f := newHandlerFixture(t, testConfig(), Deps{})
	req := httptest.NewRequest(http.MethodGet, "/api/mentor/status", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandleChatStreamsSSE(t *testing.T) {
	f := newHandlerFixture(t, testConfig(), Deps{})
	f.start(t)

	rec := f.do(http.MethodPost, "/api/mentor/chat", `{"message":"Can I assume the input is sorted?"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	body := rec.Body.String()
	assert.Contains(t, body, "event: message\ndata: {\"content\":\"What \"}")
	assert.Contains(t, body, "event: done")
	assert.Contains(t, body, `"message_count":2`)
}

func TestHandleChatWithoutSession(t *testing.T) {
	f := newHandlerFixture(t, testConfig(), Deps{})
	rec := f.do(http.MethodPost, "/api/mentor/chat", `{"message":"hello"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandleChatRequiresMessage(t *testing.T) {
	f := newHandlerFixture(t, testConfig(), Deps{})
	f.start(t)
	rec := f.do(http.MethodPost, "/api/mentor/chat", `{"message":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleChatRateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit.RequestsPerWindow = 1
	f := newHandlerFixture(t, cfg, Deps{})
	f.start(t)

	first := f.do(http.MethodPost, "/api/mentor/chat", `{"message":"one"}`)
	require.Equal(t, http.StatusOK, first.Code)
	second := f.do(http.MethodPost, "/api/mentor/chat", `{"message":"two"}`)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}

func TestHandleHintAndPhase(t *testing.T) {
	f := newHandlerFixture(t, testConfig(), Deps{})

	rec := f.do(http.MethodPost, "/api/mentor/hint", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	f.start(t)
	rec = f.do(http.MethodPost, "/api/mentor/phase", `{"phase":"approach_discussion"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(http.MethodPost, "/api/mentor/hint", "")
	require.Equal(t, http.StatusOK, rec.Code)
	hint := decode[HintResult](t, rec)
	assert.Equal(t, "What would be the simplest approach?", hint.Hint)

	rec = f.do(http.MethodPost, "/api/mentor/phase", `{"phase":"lunch"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodPost, "/api/mentor/next", "")
	require.Equal(t, http.StatusOK, rec.Code)
	result := decode[PhaseResult](t, rec)
	assert.Equal(t, domain.PhaseImplementation, result.Status.Phase)
}

func TestHandleCompleteAndHistory(t *testing.T) {
	f := newHandlerFixture(t, testConfig(), Deps{})
	f.start(t)

	rec := f.do(http.MethodPost, "/api/mentor/complete", "")
	require.Equal(t, http.StatusOK, rec.Code)
	summary := decode[domain.SessionSummary](t, rec)
	assert.Equal(t, "1. Two Sum", summary.ProblemTitle)

	rec = f.do(http.MethodPost, "/api/mentor/complete", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(http.MethodGet, "/api/mentor/history?limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	history := decode[struct {
		Summaries []domain.StoredSummary `json:"summaries"`
	}](t, rec)
	assert.Len(t, history.Summaries, 1)
}

func TestHandleResetStatsContext(t *testing.T) {
	f := newHandlerFixture(t, testConfig(), Deps{})
	f.start(t)

	rec := f.do(http.MethodGet, "/api/mentor/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(http.MethodGet, "/api/mentor/context", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, decode[map[string]string](t, rec)["context"], "## Current Session State")

	rec = f.do(http.MethodPost, "/api/mentor/reset", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(http.MethodGet, "/api/mentor/stats", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandleSummarize(t *testing.T) {
	f := newHandlerFixture(t, testConfig(), Deps{})
	rec := f.do(http.MethodPost, "/api/summarize", `{"text":"a page"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	ai := agent.NewService(&fakeProcessor{chunks: []string{"A short summary."}})
	f = newHandlerFixture(t, testConfig(), Deps{AI: ai})
	rec = f.do(http.MethodPost, "/api/summarize", `{"text":"a page"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "A short summary.", decode[map[string]string](t, rec)["summary"])

	rec = f.do(http.MethodPost, "/api/analyze", `{"code":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleNews(t *testing.T) {
	f := newHandlerFixture(t, testConfig(), Deps{News: fakeNews{items: []domain.NewsItem{{Title: "headline"}}}})
	rec := f.do(http.MethodGet, "/api/news", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "headline")

	f = newHandlerFixture(t, testConfig(), Deps{News: fakeNews{err: news.ErrNoFeed}})
	rec = f.do(http.MethodGet, "/api/news", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHandleVideosUsesCurrentProblem(t *testing.T) {
	searcher := &fakeVideos{}
	f := newHandlerFixture(t, testConfig(), Deps{Videos: searcher})

	rec := f.do(http.MethodGet, "/api/videos", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	f.start(t)
	rec = f.do(http.MethodGet, "/api/videos", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"1. Two Sum leetcode easy solution explained"}, searcher.queries)

	rec = f.do(http.MethodGet, "/api/videos?q=graphs", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "graphs", searcher.queries[1])
}

func TestHandleVideosDisabled(t *testing.T) {
	f := newHandlerFixture(t, testConfig(), Deps{Videos: videos.NewClient("")})
	rec := f.do(http.MethodGet, "/api/videos?q=x", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{ErrNoActiveSession, http.StatusConflict},
		{domain.ErrUnknownPhase, http.StatusBadRequest},
		{ErrNoProblemSource, http.StatusBadRequest},
		{ErrRendererDisabled, http.StatusServiceUnavailable},
		{ErrAIUnavailable, http.StatusServiceUnavailable},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}

func TestHandleStartRejectsDisallowedHost(t *testing.T) {
	renderer := browser.NewRenderer(config.BrowserConfig{AllowedHosts: []string{"leetcode.com"}}, nil)
	t.Cleanup(func() { _ = renderer.Close() })
	f := newHandlerFixture(t, testConfig(), Deps{}, WithRenderer(renderer))

	for _, target := range []string{
		"http://169.254.169.254/latest/meta-data/",
		"http://localhost:8080/admin",
	} {
		rec := f.do(http.MethodPost, "/api/mentor/start", `{"url":"`+target+`"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
	assert.False(t, f.svc.Status(testKey).Active)
}

func TestHandleStartRateLimitsRenderedURLs(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit.RequestsPerWindow = 1
	f := newHandlerFixture(t, cfg, Deps{}, WithRenderer(&fakeRenderer{html: `<div class="text-title-large">1. Two Sum</div>`}))

	body := `{"url":"https://leetcode.com/problems/two-sum/"}`
	require.Equal(t, http.StatusOK, f.do(http.MethodPost, "/api/mentor/start", body).Code)
	assert.Equal(t, http.StatusTooManyRequests, f.do(http.MethodPost, "/api/mentor/start", body).Code)

	// Starts that carry the problem do not touch the browser and are not limited.
	f.start(t)
	f.start(t)
}
