package middleware

import (
	"net/http"
	"regexp"
	"strings"
)

// NewCorsMiddleware allows cross origin requests from the given origin patterns.
// A pattern may contain * wildcards, a single * allows any origin.
func NewCorsMiddleware(origins []string) func(http.Handler) http.Handler {
	patterns := make([]*regexp.Regexp, 0, len(origins))
	for _, origin := range origins {
		if pattern := compileOrigin(origin); pattern != nil {
			patterns = append(patterns, pattern)
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" {
				for _, pattern := range patterns {
					if pattern.MatchString(origin) {
						w.Header().Set("Access-Control-Allow-Origin", origin)
						w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
						w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Last-Event-ID")
						w.Header().Add("Vary", "Origin")
						break
					}
				}
			}

			// preflight
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func compileOrigin(origin string) *regexp.Regexp {
	if origin == "" {
		return nil
	}

	pattern := regexp.QuoteMeta(origin)
	pattern = strings.ReplaceAll(pattern, "\\*", ".*")

	compiled, err := regexp.Compile("^" + pattern + "$")
	if err != nil {
		return nil
	}
	return compiled
}
