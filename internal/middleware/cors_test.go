package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func corsResponse(allowed []string, method, origin string) *httptest.ResponseRecorder {
	h := CORS(allowed)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	req := httptest.NewRequest(method, "/api/mentor/status", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCORSExtensionPattern(t *testing.T) {
	t.Parallel()

	rec := corsResponse([]string{"chrome-extension://*"}, http.MethodGet, "chrome-extension://abcdef")
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "chrome-extension://abcdef", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "X-Mentor-Tab-ID")
}

func TestCORSWildcardHasNoCredentials(t *testing.T) {
	t.Parallel()

	rec := corsResponse([]string{"*"}, http.MethodGet, "https://evil.example")
	assert.Equal(t, "https://evil.example", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCORSRejectsUnknownOrigin(t *testing.T) {
	t.Parallel()

	rec := corsResponse([]string{"https://leetcode.com"}, http.MethodGet, "https://other.example")
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	t.Parallel()

	rec := corsResponse([]string{"https://leetcode.com"}, http.MethodOptions, "https://leetcode.com")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://leetcode.com", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestOriginAllowed(t *testing.T) {
	t.Parallel()

	allowed := []string{"http://localhost:3000", "chrome-extension://*"}
	assert.True(t, OriginAllowed(allowed, "http://localhost:3000"))
	assert.True(t, OriginAllowed(allowed, "chrome-extension://abcdef"))
	assert.False(t, OriginAllowed(allowed, "https://evil.example"))
	assert.False(t, OriginAllowed(allowed, ""))
	assert.True(t, OriginAllowed([]string{"*"}, "https://anything.example"))
}
