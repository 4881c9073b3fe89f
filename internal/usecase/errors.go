package usecase

import (
	"encoding/json"
	"errors"
	"net/http"

	"profile-chat/internal/integrations/openrouter"
)

// ErrorCode is the stable, provider-agnostic error taxonomy exposed to the
// front end. WorkerRateLimit marks throttling by this service, as opposed to
// the upstream provider's own rate limit.
type ErrorCode string

const (
	ErrorWorkerRateLimit ErrorCode = "WORKER_RATE_LIMIT"
	ErrorRateLimit       ErrorCode = "OPENROUTER_RATE_LIMIT"
	ErrorTimeout         ErrorCode = "OPENROUTER_TIMEOUT"
	ErrorRequestFailed   ErrorCode = "OPENROUTER_REQUEST_FAILED"
	ErrorQuotaExceeded   ErrorCode = "OPENROUTER_QUOTA_EXCEEDED"
	ErrorUpstream        ErrorCode = "OPENROUTER_UPSTREAM_ERROR"
)

// ErrorBody is the JSON error shape; debug-only fields are omitted in
// production mode so upstream implementation detail never reaches clients.
type ErrorBody struct {
	Error             string    `json:"error"`
	ErrorCode         ErrorCode `json:"errorCode,omitempty"`
	Source            string    `json:"source,omitempty"`
	RetryAfterSeconds int       `json:"retryAfterSeconds,omitempty"`
	UpstreamStatus    int       `json:"upstreamStatus,omitempty"`
	UpstreamCode      any       `json:"upstreamCode,omitempty"`
	Detail            string    `json:"detail,omitempty"`
	Attempts          int       `json:"attempts,omitempty"`
}

// NormalizedError pairs the response status with its body. RetryAfterSeconds
// is non-zero only when the upstream provided a delay worth forwarding as a
// Retry-After header.
type NormalizedError struct {
	HTTPStatus        int
	Body              ErrorBody
	RetryAfterSeconds int
}

// upstreamErrorEnvelope matches the `{"error":{"message":...,"code":...}}`
// shape OpenRouter returns for application-level failures.
type upstreamErrorEnvelope struct {
	Error struct {
		Message string `json:"message"`
		Code    any    `json:"code"`
	} `json:"error"`
}

func extractUpstreamError(detail string) (message string, code any) {
	var parsed upstreamErrorEnvelope
	if err := json.Unmarshal([]byte(detail), &parsed); err != nil {
		return "", nil
	}
	return parsed.Error.Message, parsed.Error.Code
}

// Normalize maps a terminal upstream failure into the stable error taxonomy.
// Any error that is not a *openrouter.Failure is treated as a configuration
// problem (e.g. missing credentials) and reported as a 500.
func Normalize(err error, debug bool) NormalizedError {
	var failure *openrouter.Failure
	if !errors.As(err, &failure) {
		body := ErrorBody{
			Error:     "Missing OpenRouter credentials.",
			ErrorCode: ErrorRequestFailed,
			Source:    "openrouter",
		}
		if debug && err != nil {
			body.Detail = err.Error()
		}
		return NormalizedError{HTTPStatus: http.StatusInternalServerError, Body: body}
	}

	if failure.Status == 0 {
		return normalizeNoResponse(failure, debug)
	}
	return normalizeUpstreamStatus(failure, debug)
}

func normalizeNoResponse(f *openrouter.Failure, debug bool) NormalizedError {
	status := http.StatusBadGateway
	code := ErrorRequestFailed
	message := "Upstream request failed."
	if f.TimedOut {
		status = http.StatusGatewayTimeout
		code = ErrorTimeout
		message = "Upstream timeout."
	}

	body := ErrorBody{Error: message, ErrorCode: code, Source: "openrouter"}
	if debug {
		if f.TimedOut {
			body.Error = "OpenRouter timeout."
		} else {
			body.Error = "OpenRouter request failed."
		}
		body.Detail = f.TransportErr
		body.Attempts = f.Attempts
	}
	return NormalizedError{HTTPStatus: status, Body: body}
}

func normalizeUpstreamStatus(f *openrouter.Failure, debug bool) NormalizedError {
	status := http.StatusBadGateway
	message := "Upstream error."
	code := ErrorUpstream

	switch f.Status {
	case http.StatusTooManyRequests:
		status = http.StatusTooManyRequests
		message = "Upstream rate limit exceeded."
		code = ErrorRateLimit
	case http.StatusPaymentRequired:
		status = http.StatusServiceUnavailable
		message = "Upstream quota exceeded."
		code = ErrorQuotaExceeded
	}

	retryAfter := f.RetryAfterSeconds()
	body := ErrorBody{
		Error:             message,
		ErrorCode:         code,
		Source:            "openrouter",
		RetryAfterSeconds: retryAfter,
	}
	if debug {
		body.UpstreamStatus = f.Status
		body.Attempts = f.Attempts
		detail, upstreamCode := extractUpstreamError(f.Detail)
		if detail == "" {
			detail = f.Detail
		}
		body.Detail = detail
		body.UpstreamCode = upstreamCode
	}

	headerRetryAfter := 0
	if status == http.StatusTooManyRequests {
		headerRetryAfter = retryAfter
	}
	return NormalizedError{HTTPStatus: status, Body: body, RetryAfterSeconds: headerRetryAfter}
}
