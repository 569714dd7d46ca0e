// Package apierrors defines the canonical failure value returned by the gateway.
//
// DESIGN: Every adapter failure (missing credential, transport failure,
// non-2xx status, malformed body, empty content) is converted into a single
// GatewayError with a Kind. Retryability is a pure function of Kind:
//
//   - Timeout, Network, RateLimit, ServiceUnavailable, Unknown → retryable
//   - everything else                                           → not retryable
//
// Callers decide retry policy from Retryable(), never from Message text.
package apierrors

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Kind classifies a gateway failure.
type Kind string

const (
	KindConfiguration      Kind = "configuration"
	KindAuthentication     Kind = "authentication"
	KindTimeout            Kind = "timeout"
	KindNetwork            Kind = "network"
	KindRateLimit          Kind = "rate_limit"
	KindServiceUnavailable Kind = "service_unavailable"
	KindParseError         Kind = "parse_error"
	KindBadRequest         Kind = "bad_request"
	KindAPIError           Kind = "api_error"
	KindUnknown            Kind = "unknown"
)

// Kinds lists every Kind in taxonomy order.
var Kinds = []Kind{
	KindConfiguration,
	KindAuthentication,
	KindTimeout,
	KindNetwork,
	KindRateLimit,
	KindServiceUnavailable,
	KindParseError,
	KindBadRequest,
	KindAPIError,
	KindUnknown,
}

var retryableKinds = map[Kind]bool{
	KindTimeout:            true,
	KindNetwork:            true,
	KindRateLimit:          true,
	KindServiceUnavailable: true,
	KindUnknown:            true,
}

// Retryable reports whether re-issuing a request that failed with kind might succeed.
func Retryable(kind Kind) bool {
	return retryableKinds[kind]
}

// GatewayError is the canonical failure value.
type GatewayError struct {
	Kind       Kind
	Message    string
	DebugInfo  string // configuration-class diagnostics, e.g. the model actually sent
	Provider   string
	StatusCode int // upstream HTTP status, 0 when no response was received
}

// New creates a GatewayError.
func New(kind Kind, format string, args ...any) *GatewayError {
	return &GatewayError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Error implements error.
func (e *GatewayError) Error() string {
	if e.Provider != "" {
		return fmt.Sprintf("%s: %s: %s", e.Provider, e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Retryable is derived from Kind and cannot be set independently.
func (e *GatewayError) Retryable() bool {
	return Retryable(e.Kind)
}

// WithProvider returns e tagged with the provider name.
func (e *GatewayError) WithProvider(provider string) *GatewayError {
	e.Provider = provider
	return e
}

// WithDebug attaches debug info unless some is already present.
func (e *GatewayError) WithDebug(info string) *GatewayError {
	if e.DebugInfo == "" {
		e.DebugInfo = info
	}
	return e
}

type wireError struct {
	Kind       Kind   `json:"kind"`
	Message    string `json:"message"`
	Retryable  bool   `json:"retryable"`
	DebugInfo  string `json:"debug_info,omitempty"`
	Provider   string `json:"provider,omitempty"`
	StatusCode int    `json:"status_code,omitempty"`
}

// MarshalJSON encodes the error with its derived retryable flag.
func (e *GatewayError) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireError{
		Kind:       e.Kind,
		Message:    e.Message,
		Retryable:  e.Retryable(),
		DebugInfo:  e.DebugInfo,
		Provider:   e.Provider,
		StatusCode: e.StatusCode,
	})
}

// As extracts a GatewayError from err. Any other non-nil error is wrapped as Unknown.
func As(err error) *GatewayError {
	if err == nil {
		return nil
	}
	var ge *GatewayError
	if errors.As(err, &ge) {
		return ge
	}
	return &GatewayError{Kind: KindUnknown, Message: err.Error()}
}

// Missing reports a required credential or setting that is not configured.
func Missing(setting string) *GatewayError {
	return &GatewayError{Kind: KindConfiguration, Message: setting + " is not configured"}
}
