package origin

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

const siteOrigin = "https://example.github.io"

func newTestGate(strict bool) *Gate {
	return New([]string{siteOrigin, "http://localhost:4321"}, strict, "server")
}

// ---------------------------------------------------------------------------
// Allows
// ---------------------------------------------------------------------------

func TestAllows(t *testing.T) {
	cases := []struct {
		name        string
		strict      bool
		origin      string
		healthRoute bool
		want        bool
	}{
		{"listed origin", false, siteOrigin, false, true},
		{"listed origin strict", true, siteOrigin, false, true},
		{"unlisted origin", false, "https://evil.example.com", false, false},
		{"unlisted origin strict", true, "https://evil.example.com", false, false},
		{"absent origin permissive", false, "", false, true},
		{"absent origin strict chat", true, "", false, false},
		{"absent origin strict health", true, "", true, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g := newTestGate(tc.strict)
			require.Equal(t, tc.want, g.Allows(tc.origin, tc.healthRoute))
		})
	}
}

// ---------------------------------------------------------------------------
// ApplyHeaders
// ---------------------------------------------------------------------------

func TestApplyHeaders_ListedOrigin(t *testing.T) {
	g := newTestGate(false)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/chat", nil)
	req.Header.Set("Origin", siteOrigin)

	g.ApplyHeaders(rec, req)

	h := rec.Header()
	require.Equal(t, siteOrigin, h.Get("Access-Control-Allow-Origin"))
	require.Equal(t, "Origin", h.Get("Vary"))
	require.Equal(t, "POST, GET, OPTIONS", h.Get("Access-Control-Allow-Methods"))
	require.Equal(t, defaultAllowedHeaders, h.Get("Access-Control-Allow-Headers"))
	require.Equal(t, "server", h.Get("X-Chat-Backend"))
}

func TestApplyHeaders_UnlistedOriginGetsNoEcho(t *testing.T) {
	g := newTestGate(false)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/chat", nil)
	req.Header.Set("Origin", "https://evil.example.com")

	g.ApplyHeaders(rec, req)

	require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	require.Empty(t, rec.Header().Get("Vary"))
	require.Equal(t, "server", rec.Header().Get("X-Chat-Backend"))
}

func TestApplyHeaders_EchoesRequestedHeaders(t *testing.T) {
	g := newTestGate(false)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/chat", nil)
	req.Header.Set("Origin", siteOrigin)
	req.Header.Set("Access-Control-Request-Headers", "Content-Type, X-Custom")

	g.ApplyHeaders(rec, req)

	require.Equal(t, "Content-Type, X-Custom", rec.Header().Get("Access-Control-Allow-Headers"))
}

// ---------------------------------------------------------------------------
// Middleware
// ---------------------------------------------------------------------------

func nextRecorder(called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		*called = true
		w.WriteHeader(http.StatusOK)
	})
}

func TestMiddleware_AllowedOriginPassesThrough(t *testing.T) {
	g := newTestGate(false)
	called := false
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/chat", nil)
	req.Header.Set("Origin", siteOrigin)

	g.Middleware(nextRecorder(&called)).ServeHTTP(rec, req)

	require.True(t, called)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, siteOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestMiddleware_DisallowedOriginRejected(t *testing.T) {
	g := newTestGate(false)
	called := false
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/chat", nil)
	req.Header.Set("Origin", "https://evil.example.com")

	g.Middleware(nextRecorder(&called)).ServeHTTP(rec, req)

	require.False(t, called)
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.JSONEq(t, `{"error":"Origin not allowed."}`, rec.Body.String())
	// rejections still carry cross-origin and backend headers
	require.Equal(t, "server", rec.Header().Get("X-Chat-Backend"))
}

func TestMiddleware_PreflightShortCircuits(t *testing.T) {
	g := newTestGate(false)
	called := false
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/chat", nil)
	req.Header.Set("Origin", siteOrigin)

	g.Middleware(nextRecorder(&called)).ServeHTTP(rec, req)

	require.False(t, called)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, siteOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestMiddleware_StrictModeHealthStaysReachable(t *testing.T) {
	g := newTestGate(true)

	called := false
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	g.Middleware(nextRecorder(&called)).ServeHTTP(rec, req)
	require.True(t, called)

	called = false
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/chat", nil)
	g.Middleware(nextRecorder(&called)).ServeHTTP(rec, req)
	require.False(t, called)
	require.Equal(t, http.StatusForbidden, rec.Code)
}
