// Package middleware provides HTTP middleware for the mentor API.
package middleware

import (
	"net/http"
	"path"
	"strings"

	"github.com/ashureev/leetmentor/internal/identity"
)

var allowedHeaders = strings.Join([]string{"Content-Type", "Last-Event-ID", identity.TabHeaderName}, ", ")

// CORS returns middleware that handles CORS headers.
// Origins may be exact, "*", or glob patterns such as "chrome-extension://*".
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			allowed, explicit := matchOrigin(allowedOrigins, origin)
			if allowed {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", allowedHeaders)
				w.Header().Add("Vary", "Origin")
				// Only allow credentials for explicit origins, not wildcard matches.
				// Setting Allow-Credentials with a wildcard-echoed origin enables CSRF.
				if explicit {
					w.Header().Set("Access-Control-Allow-Credentials", "true")
				}
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// matchOrigin reports whether origin is allowed and whether it matched something other than "*".
func matchOrigin(allowedOrigins []string, origin string) (allowed, explicit bool) {
	if origin == "" {
		return false, false
	}
	for _, o := range allowedOrigins {
		switch {
		case o == "*":
			allowed = true
		case o == origin:
			return true, true
		case strings.Contains(o, "*"):
			if ok, _ := path.Match(o, origin); ok {
				return true, true
			}
		}
	}
	return allowed, false
}

// OriginAllowed reports whether origin matches the allowed list.
func OriginAllowed(allowedOrigins []string, origin string) bool {
	allowed, _ := matchOrigin(allowedOrigins, origin)
	return allowed
}
