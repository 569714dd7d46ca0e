package monitoring

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsCollector(t *testing.T) {
	mc := NewMetricsCollector([]string{"timeout", "rate_limit"}, []string{"openai", "google"})

	mc.RecordDispatch("openai", "", 10*time.Millisecond)
	mc.RecordDispatch("openai", "timeout", 30*time.Millisecond)
	mc.RecordDispatch("google", "rate_limit", 5*time.Millisecond)
	mc.RecordDispatch("mystery", "mystery_kind", 0)
	mc.RecordFallback()

	stats := mc.Stats()
	assert.Equal(t, int64(4), stats["requests"])
	assert.Equal(t, int64(1), stats["successes"])
	assert.Equal(t, int64(1), stats["fallbacks"])
	assert.Equal(t, int64(45), stats["latency_ms_total"])
	assert.Equal(t, int64(1), stats["errors.timeout"])
	assert.Equal(t, int64(1), stats["errors.rate_limit"])
	assert.Equal(t, int64(2), stats["provider.openai"])
	assert.Equal(t, int64(1), stats["provider.google"])
	_, ok := stats["provider.mystery"]
	assert.False(t, ok)
}

func TestTracker_WritesJSONL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "telemetry.jsonl")
	tr, err := NewTracker(TelemetryConfig{Enabled: true, LogPath: path})
	require.NoError(t, err)

	tr.RecordExchange(&ExchangeEvent{RequestID: "r1", Provider: "openai", Success: true, LatencyMs: 12})
	tr.RecordExchange(&ExchangeEvent{RequestID: "r2", Provider: "azure", ErrorKind: "timeout", Retryable: true})
	require.NoError(t, tr.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var events []ExchangeEvent
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var ev ExchangeEvent
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &ev))
		events = append(events, ev)
	}
	require.Len(t, events, 2)
	assert.Equal(t, "r1", events[0].RequestID)
	assert.Equal(t, "timeout", events[1].ErrorKind)
	assert.True(t, events[1].Retryable)
}

func TestTracker_Disabled(t *testing.T) {
	tr, err := NewTracker(TelemetryConfig{})
	require.NoError(t, err)
	tr.RecordExchange(&ExchangeEvent{RequestID: "ignored"})

	var nilTracker *Tracker
	nilTracker.RecordExchange(&ExchangeEvent{})
	assert.NoError(t, nilTracker.Close())
}

func TestAlertManager(t *testing.T) {
	var buf bytes.Buffer
	logger := NewFromZerolog(zerolog.New(&buf))
	am := NewAlertManager(logger, AlertConfig{HighLatencyThreshold: time.Second})

	assert.False(t, am.FlagHighLatency("r1", 10*time.Millisecond, "openai"))
	assert.Empty(t, buf.String())

	assert.True(t, am.FlagHighLatency("r1", 2*time.Second, "openai"))
	assert.Contains(t, buf.String(), "high_latency")

	buf.Reset()
	am.FlagProviderError("r2", "anthropic", "authentication", 401, false, "bad key")
	assert.Contains(t, buf.String(), `"level":"error"`)
	assert.Contains(t, buf.String(), "provider_error")

	buf.Reset()
	am.FlagProviderFallback("r3", "mistral", "openai")
	assert.Contains(t, buf.String(), `"requested":"mistral"`)
}

func TestRequestIDContext(t *testing.T) {
	ctx := WithRequestIDContext(context.Background(), "abc")
	assert.Equal(t, "abc", RequestIDFromContext(ctx))
	assert.Equal(t, "", RequestIDFromContext(context.Background()))
}
