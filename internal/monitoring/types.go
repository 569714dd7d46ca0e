// Package monitoring - types.go defines shared types.
//
// DESIGN: These types are used by dispatch/, gateway/ and monitoring/.
// Defined here ONCE to avoid duplication and circular imports.
//
// TYPES:
//   - ExchangeEvent: Telemetry data for each provider exchange
//   - Config types:  TelemetryConfig, LoggerConfig, AlertConfig
package monitoring

import "time"

// =============================================================================
// EVENT TYPES - Structured data for telemetry recording
// =============================================================================

// ExchangeEvent captures one Dispatch call. Never carries message text or credentials.
type ExchangeEvent struct {
	RequestID  string    `json:"request_id"`
	Timestamp  time.Time `json:"timestamp"`
	Provider   string    `json:"provider"`
	Fallback   bool      `json:"fallback,omitempty"` // unknown provider id resolved to openai
	Model      string    `json:"model,omitempty"`
	ModelNote  string    `json:"model_note,omitempty"`
	Success    bool      `json:"success"`
	ErrorKind  string    `json:"error_kind,omitempty"`
	Retryable  bool      `json:"retryable,omitempty"`
	StatusCode int       `json:"status_code,omitempty"`
	Error      string    `json:"error,omitempty"`
	ReplyBytes int       `json:"reply_bytes,omitempty"`
	LatencyMs  int64     `json:"latency_ms"`
}

// =============================================================================
// CONFIG TYPES
// =============================================================================

// TelemetryConfig contains telemetry configuration.
type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	LogPath     string `yaml:"log_path"`
	LogToStdout bool   `yaml:"log_to_stdout"`
}

// LoggerConfig contains logging configuration.
type LoggerConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
	Output string `yaml:"output"` // stdout, stderr, or file path
}

// AlertConfig contains alert thresholds.
type AlertConfig struct {
	HighLatencyThreshold time.Duration `yaml:"high_latency_threshold"`
}
