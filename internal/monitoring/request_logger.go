// Package monitoring - request_logger.go logs the request lifecycle.
//
// DESIGN: Structured logging for request tracing at DEBUG level:
//   - LogIncoming:  Chat request received from the widget
//   - LogOutgoing:  Provider request about to be sent (redacted URL, no body)
//   - LogExchange:  Provider exchange finished (reply or classified error)
//   - LogResponse:  HTTP response sent back to the widget
package monitoring

import (
	"net/http"
	"time"
)

// RequestLogger logs request lifecycle events.
type RequestLogger struct {
	logger *Logger
}

// NewRequestLogger creates a new request logger.
func NewRequestLogger(logger *Logger) *RequestLogger {
	return &RequestLogger{logger: logger}
}

// RequestInfo contains incoming request information.
type RequestInfo struct {
	RequestID  string
	Method     string
	Path       string
	RemoteAddr string
	BodySize   int
	StartTime  time.Time
}

// NewRequestInfo creates RequestInfo from an HTTP request.
func NewRequestInfo(r *http.Request, requestID string, bodySize int) *RequestInfo {
	return &RequestInfo{
		RequestID:  requestID,
		Method:     r.Method,
		Path:       r.URL.Path,
		RemoteAddr: r.RemoteAddr,
		BodySize:   bodySize,
		StartTime:  time.Now(),
	}
}

// LogIncoming logs an incoming request.
func (rl *RequestLogger) LogIncoming(info *RequestInfo) {
	rl.logger.Debug().
		Str("request_id", info.RequestID).
		Str("method", info.Method).
		Str("path", info.Path).
		Int("body_size", info.BodySize).
		Msg("incoming")
}

// OutgoingRequestInfo contains outgoing provider request information.
type OutgoingRequestInfo struct {
	RequestID string
	Provider  string
	TargetURL string // must already be redacted
	Model     string
	ModelNote string
	BodySize  int
}

// LogOutgoing logs an outgoing provider request.
func (rl *RequestLogger) LogOutgoing(info *OutgoingRequestInfo) {
	event := rl.logger.Debug().
		Str("request_id", info.RequestID).
		Str("provider", info.Provider).
		Str("url", info.TargetURL).
		Str("model", info.Model).
		Int("body_size", info.BodySize)
	if info.ModelNote != "" {
		event = event.Str("model_note", info.ModelNote)
	}
	event.Msg("outgoing")
}

// LogExchange logs the outcome of a provider exchange.
func (rl *RequestLogger) LogExchange(event *ExchangeEvent) {
	e := rl.logger.Debug().
		Str("request_id", event.RequestID).
		Str("provider", event.Provider).
		Bool("success", event.Success).
		Int64("latency_ms", event.LatencyMs)
	if !event.Success {
		e = e.Str("kind", event.ErrorKind).Bool("retryable", event.Retryable)
	}
	e.Msg("exchange")
}

// ResponseInfo contains response information.
type ResponseInfo struct {
	RequestID  string
	StatusCode int
	Latency    time.Duration
}

// LogResponse logs a response.
func (rl *RequestLogger) LogResponse(info *ResponseInfo) {
	rl.logger.Debug().
		Str("request_id", info.RequestID).
		Int("status", info.StatusCode).
		Dur("latency", info.Latency).
		Msg("response")
}
