package browser

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/go-rod/rod/lib/launcher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashureev/leetmentor/internal/config"
)

func TestCheckURL(t *testing.T) {
	allowed := []string{"leetcode.com", "leetcode.cn"}
	tests := []struct {
		name    string
		url     string
		wantErr error
	}{
		{"https", "https://leetcode.com/problems/two-sum/", nil},
		{"subdomain", "https://www.leetcode.cn/problems/two-sum/", nil},
		{"host case", "https://LeetCode.com/problems/two-sum/", nil},
		{"empty", "", ErrInvalidURL},
		{"relative", "/problems/two-sum/", ErrInvalidURL},
		{"file scheme", "file:///etc/passwd", ErrInvalidURL},
		{"javascript", "javascript:alert(1)", ErrInvalidURL},
		{"localhost", "http://localhost:8080/problems/x", ErrHostNotAllowed},
		{"metadata address", "http://169.254.169.254/latest/meta-data/", ErrHostNotAllowed},
		{"suffix lookalike", "https://evilleetcode.com/problems/x", ErrHostNotAllowed},
		{"allowed name in path", "https://example.com/leetcode.com", ErrHostNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckURL(tt.url, allowed)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
			assert.ErrorIs(t, err, ErrInvalidURL)
		})
	}
}

func TestRenderRejectsDisallowedHostWithoutLaunching(t *testing.T) {
	r := NewRenderer(config.BrowserConfig{Headless: true}, nil)
	_, err := r.Render(context.Background(), "http://169.254.169.254/")
	require.ErrorIs(t, err, ErrHostNotAllowed)

	r.mu.Lock()
	defer r.mu.Unlock()
	assert.Nil(t, r.browser)
}

func TestRenderRejectsInvalidURLWithoutLaunching(t *testing.T) {
	r := NewRenderer(config.BrowserConfig{Headless: true}, nil)
	_, err := r.Render(context.Background(), "not a url")
	require.ErrorIs(t, err, ErrInvalidURL)

	r.mu.Lock()
	defer r.mu.Unlock()
	assert.Nil(t, r.browser)
}

func TestRenderAfterClose(t *testing.T) {
	r := NewRenderer(config.BrowserConfig{}, nil)
	require.NoError(t, r.Close())

	_, err := r.Render(context.Background(), "https://leetcode.com/problems/two-sum/")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestNewRendererDefaults(t *testing.T) {
	r := NewRenderer(config.BrowserConfig{}, nil)
	assert.Equal(t, defaultNavTimeout, r.cfg.NavTimeout)
	assert.Equal(t, []string{"leetcode.com", "leetcode.cn"}, r.cfg.AllowedHosts)
}

func TestRenderClosesPageWhenDescriptionMissing(t *testing.T) {
	bin, ok := launcher.LookPath()
	if !ok {
		t.Skip("no Chrome binary available")
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><body><p>no description here</p></body></html>`))
	}))
	defer srv.Close()

	r := NewRenderer(config.BrowserConfig{
		Bin:          bin,
		Headless:     true,
		NavTimeout:   2 * time.Second,
		AllowedHosts: []string{"127.0.0.1"},
	}, nil)
	defer func() { _ = r.Close() }()

	browser, err := r.ensureBrowser()
	require.NoError(t, err)
	before, err := browser.Pages()
	require.NoError(t, err)

	html, err := r.Render(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Contains(t, html, "no description here")

	after, err := browser.Pages()
	require.NoError(t, err)
	assert.Len(t, after, len(before), "rendered tab must be closed")
}

func TestEnsureBrowserCleansUpStaleLaunch(t *testing.T) {
	bin, ok := launcher.LookPath()
	if !ok {
		t.Skip("no Chrome binary available")
	}
	r := NewRenderer(config.BrowserConfig{Bin: bin, Headless: true}, nil)
	defer func() { _ = r.Close() }()

	first, err := r.ensureBrowser()
	require.NoError(t, err)
	r.mu.Lock()
	oldPID := r.launcher.PID()
	r.mu.Unlock()

	require.NoError(t, first.Close())
	_, err = r.ensureBrowser()
	require.NoError(t, err)

	r.mu.Lock()
	newPID := r.launcher.PID()
	r.mu.Unlock()
	assert.NotEqual(t, oldPID, newPID)

	proc, err := os.FindProcess(oldPID)
	require.NoError(t, err)
	assert.Error(t, proc.Signal(syscall.Signal(0)), "previous Chrome must be gone")
}
