// Package gateway types - wire types for the widget-facing HTTP and WebSocket API.
//
// DESIGN: One request shape and one response shape serve both transports:
//   - POST /v1/chat:   ChatRequest body → ChatResponse body
//   - GET /v1/chat/ws: each text frame is a ChatRequest, each answer a ChatResponse
//
// Errors travel as the canonical GatewayError encoding (kind, message, retryable).
package gateway

import (
	"net/http"

	"github.com/compresr/chat-gateway/internal/apierrors"
	"github.com/compresr/chat-gateway/internal/store"
)

// HeaderRequestID carries the request ID in both directions.
const HeaderRequestID = "X-Request-ID"

const (
	// MaxRequestBodySize limits a chat request body or WebSocket frame.
	MaxRequestBodySize = 64 * 1024

	// MaxRateLimitBuckets bounds the per-IP rate limiter map.
	MaxRateLimitBuckets = 10000

	// DefaultExchangeLimit and MaxExchangeLimit bound GET /v1/exchanges.
	DefaultExchangeLimit = 50
	MaxExchangeLimit     = 500
)

// ChatRequest is the widget's chat message.
type ChatRequest struct {
	ID           string `json:"id,omitempty"` // WebSocket only: echoed back for correlation
	Provider     string `json:"provider"`
	Message      string `json:"message"`
	SystemPrompt string `json:"system_prompt,omitempty"`
	Model        string `json:"model,omitempty"`
}

// ChatResponse carries either a reply or an error.
type ChatResponse struct {
	ID        string                  `json:"id,omitempty"`
	Reply     string                  `json:"reply,omitempty"`
	Model     string                  `json:"model,omitempty"`
	DebugInfo string                  `json:"debug_info,omitempty"`
	Error     *apierrors.GatewayError `json:"error,omitempty"`
	RequestID string                  `json:"request_id"`
}

// ErrorResponse is returned for failures outside the chat exchange (rate limit, panics, routing).
type ErrorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// ExchangesResponse lists recent exchange log rows.
type ExchangesResponse struct {
	Exchanges []store.Exchange `json:"exchanges"`
	Count     int              `json:"count"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

// kindStatus maps an error kind to the HTTP status sent to the widget.
var kindStatus = map[apierrors.Kind]int{
	apierrors.KindBadRequest:         http.StatusBadRequest,
	apierrors.KindConfiguration:      http.StatusInternalServerError,
	apierrors.KindAuthentication:     http.StatusBadGateway,
	apierrors.KindTimeout:            http.StatusGatewayTimeout,
	apierrors.KindNetwork:            http.StatusBadGateway,
	apierrors.KindRateLimit:          http.StatusTooManyRequests,
	apierrors.KindServiceUnavailable: http.StatusServiceUnavailable,
	apierrors.KindParseError:         http.StatusBadGateway,
	apierrors.KindAPIError:           http.StatusBadGateway,
	apierrors.KindUnknown:            http.StatusInternalServerError,
}

// StatusForKind returns the HTTP status for an error kind.
func StatusForKind(kind apierrors.Kind) int {
	if status, ok := kindStatus[kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}
