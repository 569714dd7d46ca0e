// Package monitoring - telemetry.go records exchange events to a JSONL file.
//
// DESIGN: Tracker appends one ExchangeEvent per line, immediately after each
// Dispatch, so the file can be tailed in real time.
package monitoring

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"
)

// Tracker handles telemetry event recording to file and stdout.
type Tracker struct {
	config       TelemetryConfig
	logPath      string
	eventCount   int
	failureCount int
	mu           sync.Mutex
}

// NewTracker creates a new telemetry tracker.
func NewTracker(cfg TelemetryConfig) (*Tracker, error) {
	t := &Tracker{
		config: cfg,
	}

	if !cfg.Enabled || cfg.LogPath == "" {
		return t, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.LogPath), 0750); err != nil {
		return nil, err
	}
	if _, err := os.Stat(cfg.LogPath); os.IsNotExist(err) {
		f, err := os.Create(cfg.LogPath)
		if err != nil {
			return nil, err
		}
		f.Close()
	}
	t.logPath = cfg.LogPath

	return t, nil
}

// appendJSONL appends a single JSON object as a line to the file.
func appendJSONL(path string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.Write(data)
	return err
}

// RecordExchange records an exchange event.
func (t *Tracker) RecordExchange(event *ExchangeEvent) {
	if t == nil || !t.config.Enabled {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.config.LogToStdout {
		log.Info().
			Str("request_id", event.RequestID).
			Str("provider", event.Provider).
			Bool("success", event.Success).
			Str("kind", event.ErrorKind).
			Int64("latency_ms", event.LatencyMs).
			Msg("telemetry")
	}

	if t.logPath == "" {
		return
	}
	if err := appendJSONL(t.logPath, event); err != nil {
		log.Error().Err(err).Str("path", t.logPath).Msg("telemetry: failed to write exchange event")
		return
	}
	t.eventCount++
	if !event.Success {
		t.failureCount++
	}
}

// Close logs a session summary.
func (t *Tracker) Close() error {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.logPath != "" && t.eventCount > 0 {
		log.Info().
			Str("path", t.logPath).
			Int("events", t.eventCount).
			Int("failures", t.failureCount).
			Msg("telemetry: session complete")
	}

	return nil
}
