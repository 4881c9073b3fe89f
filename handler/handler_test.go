package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"profile-chat/internal/domain"
	"profile-chat/internal/integrations/openrouter"
	"profile-chat/internal/origin"
	"profile-chat/internal/ratelimit"
	"profile-chat/internal/usecase"
)

const testOrigin = "https://example.github.io"

// fakeChat is a scripted ChatStreamer.
type fakeChat struct {
	gotQuestion string
	gotInbound  []domain.ChatMessage
	body        string
	err         error
}

func (f *fakeChat) Stream(_ context.Context, question string, inbound []domain.ChatMessage) (*openrouter.Stream, error) {
	f.gotQuestion = question
	f.gotInbound = inbound
	if f.err != nil {
		return nil, f.err
	}
	return &openrouter.Stream{
		Body:     io.NopCloser(strings.NewReader(f.body)),
		Attempts: 1,
	}, nil
}

type testEnv struct {
	handler *Handler
	router  http.Handler
	chat    *fakeChat
}

func newTestEnv(t *testing.T, chat *fakeChat, max int) *testEnv {
	t.Helper()
	limiter, err := ratelimit.New(ratelimit.NewMemoryStore(0), max, time.Minute)
	require.NoError(t, err)

	gate := origin.New([]string{testOrigin}, false, "server")
	h, err := New(gate, limiter, chat, "server", false)
	require.NoError(t, err)
	h.now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }

	return &testEnv{handler: h, router: h.Routes(), chat: chat}
}

func chatRequest(t *testing.T, body string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(body))
	req.Header.Set("Origin", testOrigin)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("CF-Connecting-IP", "203.0.113.9")
	return req
}

// ---------------------------------------------------------------------------
// New
// ---------------------------------------------------------------------------

func TestNew_Validation(t *testing.T) {
	limiter, err := ratelimit.New(ratelimit.NewMemoryStore(0), 20, time.Minute)
	require.NoError(t, err)
	gate := origin.New(nil, false, "server")

	_, err = New(nil, limiter, &fakeChat{}, "server", false)
	require.Error(t, err)
	_, err = New(gate, nil, &fakeChat{}, "server", false)
	require.Error(t, err)
	_, err = New(gate, limiter, nil, "server", false)
	require.Error(t, err)
	_, err = New(gate, limiter, &fakeChat{}, "  ", false)
	require.Error(t, err)
}

// ---------------------------------------------------------------------------
// status endpoints
// ---------------------------------------------------------------------------

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t, &fakeChat{}, 20)

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "server", rec.Header().Get("X-Chat-Backend"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, true, body["ok"])
	require.Equal(t, "server", body["backend"])
}

func TestIndexEndpoint(t *testing.T) {
	env := newTestEnv(t, &fakeChat{}, 20)

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "profile-chat", body["service"])
	require.Equal(t, "ok", body["status"])
}

func TestUnknownRouteAndMethod(t *testing.T) {
	env := newTestEnv(t, &fakeChat{}, 20)

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/chat", nil))
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

// ---------------------------------------------------------------------------
// origin handling
// ---------------------------------------------------------------------------

func TestChat_DisallowedOrigin(t *testing.T) {
	env := newTestEnv(t, &fakeChat{}, 20)

	req := chatRequest(t, `{"question":"hi"}`)
	req.Header.Set("Origin", "https://evil.example.com")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	require.JSONEq(t, `{"error":"Origin not allowed."}`, rec.Body.String())
	require.Empty(t, env.chat.gotQuestion, "rejected requests must not reach the upstream")
}

func TestChat_PreflightAllowed(t *testing.T) {
	env := newTestEnv(t, &fakeChat{}, 20)

	req := httptest.NewRequest(http.MethodOptions, "/chat", nil)
	req.Header.Set("Origin", testOrigin)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, testOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
}

// ---------------------------------------------------------------------------
// request validation
// ---------------------------------------------------------------------------

func TestChat_InvalidJSON(t *testing.T) {
	env := newTestEnv(t, &fakeChat{}, 20)

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, chatRequest(t, `{"question":`))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.JSONEq(t, `{"error":"Invalid JSON body."}`, rec.Body.String())
}

func TestChat_MissingQuestion(t *testing.T) {
	env := newTestEnv(t, &fakeChat{}, 20)

	cases := []string{
		`{}`,
		`{"question":"   "}`,
		`{"messages":[{"role":"assistant","content":"hello"}]}`,
	}
	for _, body := range cases {
		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, chatRequest(t, body))
		require.Equal(t, http.StatusBadRequest, rec.Code, "body=%s", body)
		require.JSONEq(t, `{"error":"Missing question."}`, rec.Body.String())
	}
}

// ---------------------------------------------------------------------------
// rate limiting
// ---------------------------------------------------------------------------

func TestChat_RateLimited(t *testing.T) {
	env := newTestEnv(t, &fakeChat{body: "data: [DONE]\n\n"}, 2)

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, chatRequest(t, `{"question":"hi"}`))
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i+1)
	}

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, chatRequest(t, `{"question":"hi"}`))

	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, "60", rec.Header().Get("Retry-After"))
	require.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	require.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	require.NotEmpty(t, rec.Header().Get("X-RateLimit-Reset"))

	var body usecase.ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, usecase.ErrorWorkerRateLimit, body.ErrorCode)
	require.Equal(t, "server", body.Source)
	require.Equal(t, 60, body.RetryAfterSeconds)
}

func TestChat_RateLimitIsPerClient(t *testing.T) {
	env := newTestEnv(t, &fakeChat{body: "data: [DONE]\n\n"}, 1)

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, chatRequest(t, `{"question":"hi"}`))
	require.Equal(t, http.StatusOK, rec.Code)

	req := chatRequest(t, `{"question":"hi"}`)
	req.Header.Set("CF-Connecting-IP", "198.51.100.7")
	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

// ---------------------------------------------------------------------------
// upstream failures
// ---------------------------------------------------------------------------

func TestChat_UpstreamQuotaExceeded(t *testing.T) {
	env := newTestEnv(t, &fakeChat{err: &openrouter.Failure{Status: http.StatusPaymentRequired, Attempts: 1}}, 20)

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, chatRequest(t, `{"question":"hi"}`))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var body usecase.ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, usecase.ErrorQuotaExceeded, body.ErrorCode)
}

func TestChat_UpstreamRateLimitForwardsRetryAfter(t *testing.T) {
	env := newTestEnv(t, &fakeChat{err: &openrouter.Failure{
		Status:        http.StatusTooManyRequests,
		RetryAfter:    8 * time.Second,
		HasRetryAfter: true,
		Attempts:      2,
	}}, 20)

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, chatRequest(t, `{"question":"hi"}`))

	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, "8", rec.Header().Get("Retry-After"))
	var body usecase.ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, usecase.ErrorRateLimit, body.ErrorCode)
}

// ---------------------------------------------------------------------------
// streaming happy path
// ---------------------------------------------------------------------------

func TestChat_StreamsTranslatedResponse(t *testing.T) {
	upstream := "data: {\"choices\":[{\"delta\":{\"content\":\"Hello\"},\"finish_reason\":null}]}\n\n" +
		"data: {\"choices\":[{\"delta\":{},\"finish_reason\":\"stop\"}]}\n\n" +
		"data: [DONE]\n\n"
	chat := &fakeChat{body: upstream}
	env := newTestEnv(t, chat, 20)

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, chatRequest(t, `{"question":"who are you?"}`))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "text/event-stream; charset=utf-8", rec.Header().Get("Content-Type"))
	require.Equal(t, "v1", rec.Header().Get("x-vercel-ai-ui-message-stream"))
	require.Equal(t, "no-cache, no-transform", rec.Header().Get("Cache-Control"))

	out := rec.Body.String()
	require.Contains(t, out, `"type":"start"`)
	require.Contains(t, out, `"delta":"Hello"`)
	require.Contains(t, out, `"type":"finish"`)
	require.True(t, strings.HasSuffix(out, "data: [DONE]\n\n"))

	require.Equal(t, "who are you?", chat.gotQuestion)
	require.Empty(t, chat.gotInbound)
}

func TestChat_ForwardsConversationAndCoercesParts(t *testing.T) {
	chat := &fakeChat{body: "data: [DONE]\n\n"}
	env := newTestEnv(t, chat, 20)

	body := `{"messages":[
		{"role":"user","content":"hi"},
		{"role":"assistant","parts":[{"type":"text","text":"hello "},{"type":"text","text":"there"}]},
		{"role":"tool","content":"ignored"},
		{"role":"user","parts":[{"type":"text","text":"what are your strengths?"},{"type":"image","text":"ignored"}]}
	]}`
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, chatRequest(t, body))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "what are your strengths?", chat.gotQuestion)
	require.Equal(t, []domain.ChatMessage{
		{Role: domain.RoleUser, Content: "hi"},
		{Role: domain.RoleAssistant, Content: "hello there"},
		{Role: domain.RoleUser, Content: "what are your strengths?"},
	}, chat.gotInbound)
}

// ---------------------------------------------------------------------------
// clientIP
// ---------------------------------------------------------------------------

func TestClientIP(t *testing.T) {
	cases := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"cloudflare header wins", map[string]string{
			"CF-Connecting-IP": "203.0.113.9", "X-Forwarded-For": "198.51.100.7"}, "203.0.113.9"},
		{"first forwarded hop", map[string]string{
			"X-Forwarded-For": " 198.51.100.7 , 10.0.0.1"}, "198.51.100.7"},
		{"no headers", nil, "unknown"},
		{"blank forwarded", map[string]string{"X-Forwarded-For": "  "}, "unknown"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/chat", nil)
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}
			require.Equal(t, tc.want, clientIP(req))
		})
	}
}
