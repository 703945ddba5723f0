// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port            string
	AppEnv          string
	DBPath          string
	AllowedOrigins  []string
	Agent           AgentConfig
	Session         SessionConfig
	RateLimit       RateLimitConfig
	SSE             SSEConfig
	News            NewsConfig
	YouTubeAPIKey   string
	Browser         BrowserConfig
	ConversationLog ConversationLogConfig
}

// AgentConfig selects the generative-AI provider.
type AgentConfig struct {
	Provider         string
	Model            string
	GoogleAPIKey     string
	OpenAIAPIKey     string
	OpenRouterAPIKey string
	AnthropicAPIKey  string
	MaxTokens        int
}

// SessionConfig controls interview session lifetime.
type SessionConfig struct {
	IdleTTL          time.Duration
	ReaperInterval   time.Duration
	SummaryRetention time.Duration
}

// RateLimitConfig throttles model-backed requests per user.
type RateLimitConfig struct {
	RequestsPerWindow int
	WindowDuration    time.Duration
}

// SSEConfig controls server-sent event streams.
type SSEConfig struct {
	KeepaliveInterval  time.Duration
	MaxRequestBodySize int64
}

// NewsConfig controls the AI news feed.
type NewsConfig struct {
	FeedURL  string
	CacheTTL time.Duration
	Limit    int
}

// DefaultBrowserAllowedHosts are the problem sites the renderer loads by default.
const DefaultBrowserAllowedHosts = "leetcode.com,leetcode.cn"

// BrowserConfig controls the headless page renderer.
type BrowserConfig struct {
	Enabled     bool
	Bin         string
	DebuggerURL string
	Headless    bool
	NavTimeout  time.Duration

	// AllowedHosts lists the hosts the renderer may load, subdomains included.
	AllowedHosts []string
}

// ConversationLogConfig controls JSON conversation logging.
type ConversationLogConfig struct {
	Enabled       bool
	Dir           string
	GlobalEnabled bool
	GlobalPath    string
	QueueSize     int
}

// DefaultNewsFeedURL searches Hacker News for recent AI stories.
const DefaultNewsFeedURL = "https://hn.algolia.com/api/v1/search_by_date?query=AI&tags=story&hitsPerPage=30"

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	queueSize := getEnvInt("CONVERSATION_LOG_QUEUE_SIZE", 1000)
	if queueSize <= 0 {
		queueSize = 1000
	}

	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		AppEnv:         getEnv("APP_ENV", "development"),
		DBPath:         getEnv("DB_PATH", "./data/mentor.db"),
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "*")),
		Agent: AgentConfig{
			Provider:         getEnv("AGENT_PROVIDER", "gemini"),
			Model:            getEnv("AGENT_MODEL", ""),
			GoogleAPIKey:     getEnv("GOOGLE_API_KEY", ""),
			OpenAIAPIKey:     getEnv("OPENAI_API_KEY", ""),
			OpenRouterAPIKey: getEnv("OPENROUTER_API_KEY", ""),
			AnthropicAPIKey:  getEnv("ANTHROPIC_API_KEY", ""),
			MaxTokens:        getEnvInt("AGENT_MAX_TOKENS", 1024),
		},
		Session: SessionConfig{
			IdleTTL:          getEnvDuration("SESSION_IDLE_TTL", 30*time.Minute),
			ReaperInterval:   getEnvDuration("REAPER_INTERVAL", 5*time.Minute),
			SummaryRetention: getEnvDuration("SUMMARY_RETENTION", 720*time.Hour),
		},
		RateLimit: RateLimitConfig{
			RequestsPerWindow: getEnvInt("RATE_LIMIT_REQUESTS", 20),
			WindowDuration:    getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),
		},
		SSE: SSEConfig{
			KeepaliveInterval:  getEnvDuration("SSE_KEEPALIVE_INTERVAL", 10*time.Second),
			MaxRequestBodySize: int64(getEnvInt("MAX_REQUEST_BODY_BYTES", 2<<20)),
		},
		News: NewsConfig{
			FeedURL:  getEnv("NEWS_FEED_URL", DefaultNewsFeedURL),
			CacheTTL: getEnvDuration("NEWS_CACHE_TTL", time.Hour),
			Limit:    getEnvInt("NEWS_LIMIT", 10),
		},
		YouTubeAPIKey: getEnv("YOUTUBE_API_KEY", ""),
		Browser: BrowserConfig{
			Enabled:      getEnvBool("BROWSER_ENABLED", false),
			Bin:          getEnv("BROWSER_BIN", ""),
			DebuggerURL:  getEnv("BROWSER_DEBUGGER_URL", ""),
			Headless:     getEnvBool("BROWSER_HEADLESS", true),
			NavTimeout:   getEnvDuration("BROWSER_NAV_TIMEOUT", 20*time.Second),
			AllowedHosts: splitList(strings.ToLower(getEnv("BROWSER_ALLOWED_HOSTS", DefaultBrowserAllowedHosts))),
		},
		ConversationLog: ConversationLogConfig{
			Enabled:       getEnvBool("CONVERSATION_LOG_ENABLED", true),
			Dir:           getEnv("CONVERSATION_LOG_DIR", "./data/logs/conversations"),
			GlobalEnabled: getEnvBool("CONVERSATION_LOG_GLOBAL_ENABLED", false),
			GlobalPath:    getEnv("CONVERSATION_LOG_GLOBAL_PATH", "./data/logs/conversations/all.ndjson"),
			QueueSize:     queueSize,
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.RateLimit.RequestsPerWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be > 0")
	}
	if c.RateLimit.WindowDuration <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be > 0")
	}
	if c.Session.IdleTTL <= 0 {
		return fmt.Errorf("SESSION_IDLE_TTL must be > 0")
	}
	if c.Session.ReaperInterval <= 0 {
		return fmt.Errorf("REAPER_INTERVAL must be > 0")
	}
	if c.SSE.KeepaliveInterval <= 0 {
		return fmt.Errorf("SSE_KEEPALIVE_INTERVAL must be > 0")
	}
	if c.SSE.MaxRequestBodySize <= 0 {
		return fmt.Errorf("MAX_REQUEST_BODY_BYTES must be > 0")
	}
	if c.Browser.Enabled && c.Browser.NavTimeout <= 0 {
		return fmt.Errorf("BROWSER_NAV_TIMEOUT must be > 0")
	}
	if c.Browser.Enabled && len(c.Browser.AllowedHosts) == 0 {
		return fmt.Errorf("BROWSER_ALLOWED_HOSTS must not be empty")
	}
	if c.ConversationLog.Dir == "" {
		return fmt.Errorf("CONVERSATION_LOG_DIR cannot be empty")
	}
	if c.ConversationLog.GlobalPath == "" {
		return fmt.Errorf("CONVERSATION_LOG_GLOBAL_PATH cannot be empty")
	}
	if c.ConversationLog.QueueSize <= 0 {
		return fmt.Errorf("CONVERSATION_LOG_QUEUE_SIZE must be > 0")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	env := strings.ToLower(c.AppEnv)
	return env == "" || env == "development" || env == "dev" || env == "local"
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}

func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
