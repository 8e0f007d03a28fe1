package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// CORSPolicy describes which browser origins may call the wizard and admin
// routes. The sheet endpoint sets its own wildcard headers.
type CORSPolicy struct {
	Origins []string
	Methods []string
	Headers []string
	MaxAge  time.Duration
}

// DefaultCORSPolicy allows origins with the methods and headers the wizard
// client sends.
func DefaultCORSPolicy(origins []string) CORSPolicy {
	return CORSPolicy{
		Origins: origins,
		Methods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		Headers: []string{"Authorization", "Content-Type"},
		MaxAge:  10 * time.Minute,
	}
}

// CORS applies DefaultCORSPolicy(allowedOrigins).
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	return DefaultCORSPolicy(allowedOrigins).Middleware()
}

// Allows reports whether origin passes the policy. "*" matches any origin.
func (p CORSPolicy) Allows(origin string) bool {
	origin = strings.TrimSpace(origin)
	if origin == "" {
		return false
	}
	for _, o := range p.Origins {
		o = strings.TrimSpace(o)
		if o == "*" || strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}

// Middleware echoes allowed origins back and answers preflights with 204.
// Disallowed origins get no CORS headers and pass through untouched.
func (p CORSPolicy) Middleware() func(http.Handler) http.Handler {
	methods := strings.Join(p.Methods, ", ")
	headers := strings.Join(p.Headers, ", ")
	maxAge := strconv.Itoa(int(p.MaxAge / time.Second))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := strings.TrimSpace(r.Header.Get("Origin"))
			if !p.Allows(origin) {
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Add("Vary", "Origin")
			h.Set("Access-Control-Allow-Methods", methods)
			h.Set("Access-Control-Allow-Headers", headers)
			if p.MaxAge > 0 {
				h.Set("Access-Control-Max-Age", maxAge)
			}

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
