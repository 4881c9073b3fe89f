// Package origin validates the request's declared Origin against an
// allow-list and produces the cross-origin response headers.
package origin

import (
	"net/http"
)

const (
	allowedMethods        = "POST, GET, OPTIONS"
	defaultAllowedHeaders = "Content-Type, Authorization, x-vercel-ai-ui-message-stream, User-Agent"
)

// Gate holds the configured allow-list. In strict mode, requests without an
// Origin header are only permitted on health routes; otherwise absent origins
// are treated as same-origin or non-browser clients and allowed everywhere.
type Gate struct {
	allowed map[string]struct{}
	strict  bool
	backend string
}

// New creates a Gate. backend is echoed in the X-Chat-Backend header on every
// response so callers can tell which deployment served them.
func New(origins []string, strict bool, backend string) *Gate {
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}
	return &Gate{allowed: allowed, strict: strict, backend: backend}
}

// Allows reports whether a request with the given Origin header may proceed.
// healthRoute marks requests to the status endpoints, which stay reachable
// without an origin even in strict mode.
func (g *Gate) Allows(origin string, healthRoute bool) bool {
	if origin == "" {
		if g.strict {
			return healthRoute
		}
		return true
	}
	_, ok := g.allowed[origin]
	return ok
}

// ApplyHeaders writes the cross-origin headers for the given request onto w.
// The allow-origin echo and Vary marker are only added for allow-listed
// origins.
func (g *Gate) ApplyHeaders(w http.ResponseWriter, r *http.Request) {
	h := w.Header()
	h.Set("Access-Control-Allow-Methods", allowedMethods)

	requested := r.Header.Get("Access-Control-Request-Headers")
	if requested == "" {
		requested = defaultAllowedHeaders
	}
	h.Set("Access-Control-Allow-Headers", requested)

	origin := r.Header.Get("Origin")
	if _, ok := g.allowed[origin]; ok && origin != "" {
		h.Set("Access-Control-Allow-Origin", origin)
		h.Set("Vary", "Origin")
	}
	h.Set("X-Chat-Backend", g.backend)
}

func isHealthRoute(r *http.Request) bool {
	return r.Method == http.MethodGet && (r.URL.Path == "/" || r.URL.Path == "/healthz")
}

// Middleware applies the cross-origin headers before any other branching,
// rejects disallowed origins with 403, and short-circuits OPTIONS preflight
// requests with 204.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		g.ApplyHeaders(w, r)

		if !g.Allows(r.Header.Get("Origin"), isHealthRoute(r)) {
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"error":"Origin not allowed."}`))
			return
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
