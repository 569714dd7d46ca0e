package apierrors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

// maxErrorBodyLen limits upstream error text carried in messages.
const maxErrorBodyLen = 500

// FromTransport classifies a failure that happened before any HTTP response arrived.
func FromTransport(err error) *GatewayError {
	if isTimeout(err) {
		return &GatewayError{Kind: KindTimeout, Message: "request timed out: " + err.Error()}
	}
	return &GatewayError{Kind: KindNetwork, Message: "connection failed: " + err.Error()}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "timed out") ||
		strings.Contains(msg, "deadline exceeded")
}

// FromStatus classifies a non-2xx HTTP response.
func FromStatus(statusCode int, body []byte) *GatewayError {
	msg := UpstreamMessage(body)
	if msg == "" {
		msg = http.StatusText(statusCode)
	}
	detail := fmt.Sprintf("upstream returned HTTP %d: %s", statusCode, msg)

	var kind Kind
	switch {
	case statusCode == http.StatusBadRequest && strings.Contains(strings.ToLower(msg), "model parameter"):
		kind = KindConfiguration
	case statusCode == http.StatusBadRequest:
		kind = KindBadRequest
	case statusCode == http.StatusUnauthorized:
		kind = KindAuthentication
	case statusCode == http.StatusTooManyRequests:
		kind = KindRateLimit
	case statusCode == http.StatusInternalServerError,
		statusCode == http.StatusBadGateway,
		statusCode == http.StatusServiceUnavailable,
		statusCode == http.StatusGatewayTimeout:
		kind = KindServiceUnavailable
	default:
		kind = KindAPIError
	}
	return &GatewayError{Kind: kind, Message: detail, StatusCode: statusCode}
}

// FromDecode reports a body that could not be decoded as JSON.
func FromDecode(err error) *GatewayError {
	return &GatewayError{Kind: KindParseError, Message: "failed to decode response: " + err.Error()}
}

// UpstreamMessage extracts a human-readable message from a provider error body.
// Checked paths: error.message, message, error (string). Falls back to the raw body.
func UpstreamMessage(body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return ""
	}
	if gjson.Valid(trimmed) {
		for _, path := range []string{"error.message", "message", "error"} {
			r := gjson.Get(trimmed, path)
			if r.Type == gjson.String && strings.TrimSpace(r.Str) != "" {
				return truncate(strings.TrimSpace(r.Str))
			}
		}
		// Google wraps errors in a list on some endpoints.
		if r := gjson.Get(trimmed, "0.error.message"); r.Type == gjson.String {
			return truncate(r.Str)
		}
	}
	return truncate(trimmed)
}

func truncate(s string) string {
	if len(s) > maxErrorBodyLen {
		return s[:maxErrorBodyLen] + "... (truncated)"
	}
	return s
}
