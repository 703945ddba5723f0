// Package browser renders problem pages in headless Chrome for URL-only requests.
package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/ashureev/leetmentor/internal/config"
)

// descriptionSelector matches the problem description container on current and legacy layouts.
const descriptionSelector = `[data-track-load="description_content"], div.elfjS, .question-content`

const defaultNavTimeout = 20 * time.Second

var (
	// ErrInvalidURL is returned for URLs that are not absolute http(s) URLs.
	ErrInvalidURL = errors.New("invalid page URL")
	// ErrHostNotAllowed is returned for URLs outside the configured hosts. It wraps ErrInvalidURL.
	ErrHostNotAllowed = fmt.Errorf("%w: host not allowed", ErrInvalidURL)
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("renderer closed")
)

// Renderer loads pages in a shared browser, one tab per request.
type Renderer struct {
	cfg    config.BrowserConfig
	logger *slog.Logger

	mu       sync.Mutex
	browser  *rod.Browser
	launcher *launcher.Launcher
	closed   bool
}

// NewRenderer creates a Renderer. The browser is started on first use.
func NewRenderer(cfg config.BrowserConfig, logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.NavTimeout <= 0 {
		cfg.NavTimeout = defaultNavTimeout
	}
	if len(cfg.AllowedHosts) == 0 {
		cfg.AllowedHosts = strings.Split(config.DefaultBrowserAllowedHosts, ",")
	}
	return &Renderer{cfg: cfg, logger: logger}
}

// Render returns the HTML of pageURL after the description has loaded.
// A description that never appears is logged and the page is returned as is.
func (r *Renderer) Render(ctx context.Context, pageURL string) (string, error) {
	if err := CheckURL(pageURL, r.cfg.AllowedHosts); err != nil {
		return "", err
	}
	browser, err := r.ensureBrowser()
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, r.cfg.NavTimeout)
	defer cancel()

	tab, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return "", fmt.Errorf("open page: %w", err)
	}
	// tab keeps the browser context so the close still runs after ctx expires.
	defer func() {
		if err := tab.Close(); err != nil {
			r.logger.Warn("Failed to close page", "url", pageURL, "error", err)
		}
	}()

	page := tab.Context(ctx)
	if err := page.Navigate(pageURL); err != nil {
		return "", fmt.Errorf("navigate %s: %w", pageURL, err)
	}
	if err := page.WaitLoad(); err != nil {
		return "", fmt.Errorf("wait load: %w", err)
	}
	if _, err := page.Element(descriptionSelector); err != nil {
		r.logger.Warn("Problem description did not appear", "url", pageURL, "error", err)
		if ctx.Err() != nil {
			// Element waiting consumed the deadline; read the page with a fresh one.
			fresh, cancelFresh := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancelFresh()
			page = page.Context(fresh)
		}
	}

	html, err := page.HTML()
	if err != nil {
		return "", fmt.Errorf("read page html: %w", err)
	}
	r.logger.Info("Page rendered", "url", pageURL, "bytes", len(html))
	return html, nil
}

func (r *Renderer) ensureBrowser() (*rod.Browser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrClosed
	}
	if r.browser != nil {
		if _, err := r.browser.Version(); err == nil {
			return r.browser, nil
		}
		r.logger.Warn("Stale browser connection detected, reconnecting")
		_ = r.browser.Close()
		r.browser = nil
	}
	if r.launcher != nil {
		r.launcher.Cleanup()
		r.launcher = nil
	}

	controlURL := r.cfg.DebuggerURL
	if controlURL == "" {
		l := launcher.New().Headless(r.cfg.Headless)
		if r.cfg.Bin != "" {
			l = l.Bin(r.cfg.Bin)
		}
		launched, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("launch chrome: %w", err)
		}
		r.launcher = l
		controlURL = launched
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect to chrome: %w", err)
	}
	r.browser = browser
	r.logger.Info("Headless browser connected", "launched", r.launcher != nil)
	return browser, nil
}

// Close shuts down the browser and any process it launched.
func (r *Renderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true
	var err error
	if r.browser != nil {
		err = r.browser.Close()
		r.browser = nil
	}
	if r.launcher != nil {
		r.launcher.Cleanup()
		r.launcher = nil
	}
	return err
}

// CheckURL reports whether pageURL is an absolute http(s) URL on one of allowedHosts
// or their subdomains.
func CheckURL(pageURL string, allowedHosts []string) error {
	u, err := url.Parse(pageURL)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidURL, pageURL)
	}
	host := strings.ToLower(u.Hostname())
	for _, allowed := range allowedHosts {
		allowed = strings.ToLower(strings.TrimSpace(allowed))
		if allowed != "" && (host == allowed || strings.HasSuffix(host, "."+allowed)) {
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrHostNotAllowed, host)
}
