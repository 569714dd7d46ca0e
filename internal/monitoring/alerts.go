// Package monitoring - alerts.go flags anomalies and errors.
//
// DESIGN: AlertManager logs notable events at appropriate levels:
//   - FlagHighLatency:      Warn when an exchange exceeds threshold
//   - FlagProviderError:    Warn on classified provider failures
//   - FlagProviderFallback: Warn when an unknown provider id falls back to openai
//   - FlagPanic:            Error on recovered panics
package monitoring

import "time"

// AlertManager flags anomalies and errors.
type AlertManager struct {
	logger               *Logger
	highLatencyThreshold time.Duration
}

// NewAlertManager creates a new alert manager.
func NewAlertManager(logger *Logger, cfg AlertConfig) *AlertManager {
	threshold := cfg.HighLatencyThreshold
	if threshold == 0 {
		threshold = 5 * time.Second
	}
	return &AlertManager{logger: logger, highLatencyThreshold: threshold}
}

// FlagHighLatency logs when exchange latency exceeds threshold.
func (am *AlertManager) FlagHighLatency(requestID string, latency time.Duration, provider string) bool {
	if latency < am.highLatencyThreshold {
		return false
	}
	am.logger.Warn().
		Str("request_id", requestID).
		Dur("latency", latency).
		Str("provider", provider).
		Msg("high_latency")
	return true
}

// FlagProviderError logs a classified provider failure.
// Configuration and authentication failures need an operator, so they log at error level.
func (am *AlertManager) FlagProviderError(requestID, provider, kind string, statusCode int, retryable bool, msg string) {
	event := am.logger.Warn()
	if kind == "configuration" || kind == "authentication" {
		event = am.logger.Error()
	}
	event.
		Str("request_id", requestID).
		Str("provider", provider).
		Str("kind", kind).
		Int("status", statusCode).
		Bool("retryable", retryable).
		Str("error", msg).
		Msg("provider_error")
}

// FlagProviderFallback logs an unrecognized provider identifier.
func (am *AlertManager) FlagProviderFallback(requestID, requested, used string) {
	am.logger.Warn().
		Str("request_id", requestID).
		Str("requested", requested).
		Str("used", used).
		Msg("provider_fallback")
}

// FlagPanic logs recovered panic.
func (am *AlertManager) FlagPanic(requestID string, panicValue interface{}, stack string) {
	am.logger.Error().
		Str("request_id", requestID).
		Interface("panic", panicValue).
		Str("stack", stack).
		Msg("panic_recovered")
}
