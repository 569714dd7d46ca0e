package apierrors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromStatus_Mapping(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		kind      Kind
		retryable bool
	}{
		{"400 model parameter", 400, `{"error":{"message":"Invalid value for the Model Parameter"}}`, KindConfiguration, false},
		{"400 other", 400, `{"error":{"message":"messages must not be empty"}}`, KindBadRequest, false},
		{"401", 401, `{"error":{"message":"Incorrect API key"}}`, KindAuthentication, false},
		{"429", 429, `{"error":{"message":"slow down"}}`, KindRateLimit, true},
		{"500", 500, ``, KindServiceUnavailable, true},
		{"502", 502, `bad gateway`, KindServiceUnavailable, true},
		{"503", 503, `{"message":"overloaded"}`, KindServiceUnavailable, true},
		{"504", 504, ``, KindServiceUnavailable, true},
		{"418 unknown", 418, `{"error":"teapot"}`, KindAPIError, false},
		{"403 unlisted", 403, ``, KindAPIError, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ge := FromStatus(tt.status, []byte(tt.body))
			assert.Equal(t, tt.kind, ge.Kind)
			assert.Equal(t, tt.retryable, ge.Retryable())
			assert.Equal(t, tt.status, ge.StatusCode)
			assert.Contains(t, ge.Message, fmt.Sprintf("HTTP %d", tt.status))
		})
	}
}

func TestFromStatus_Deterministic(t *testing.T) {
	body := []byte(`{"error":{"message":"boom"}}`)
	for _, status := range []int{400, 401, 429, 500, 418} {
		first := FromStatus(status, body)
		for i := 0; i < 10; i++ {
			assert.Equal(t, first.Kind, FromStatus(status, body).Kind)
		}
	}
}

func TestRetryable_PureFunctionOfKind(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for _, kind := range Kinds {
		want := Retryable(kind)
		for i := 0; i < 100; i++ {
			ge := &GatewayError{
				Kind:       kind,
				Message:    fmt.Sprintf("random message %d", rng.Int()),
				DebugInfo:  fmt.Sprintf("debug %d", rng.Int()),
				StatusCode: rng.Intn(600),
			}
			require.Equal(t, want, ge.Retryable(), "kind %s", kind)
		}
	}
}

func TestRetryable_Table(t *testing.T) {
	assert.True(t, Retryable(KindTimeout))
	assert.True(t, Retryable(KindNetwork))
	assert.True(t, Retryable(KindRateLimit))
	assert.True(t, Retryable(KindServiceUnavailable))
	assert.True(t, Retryable(KindUnknown))

	assert.False(t, Retryable(KindConfiguration))
	assert.False(t, Retryable(KindAuthentication))
	assert.False(t, Retryable(KindParseError))
	assert.False(t, Retryable(KindBadRequest))
	assert.False(t, Retryable(KindAPIError))
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o failure" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestFromTransport(t *testing.T) {
	assert.Equal(t, KindTimeout, FromTransport(context.DeadlineExceeded).Kind)
	assert.Equal(t, KindTimeout, FromTransport(fmt.Errorf("post: %w", context.DeadlineExceeded)).Kind)
	assert.Equal(t, KindTimeout, FromTransport(timeoutErr{}).Kind)
	assert.Equal(t, KindTimeout, FromTransport(errors.New("Client.Timeout exceeded while awaiting headers")).Kind)
	assert.Equal(t, KindNetwork, FromTransport(errors.New("dial tcp: lookup nowhere.invalid: no such host")).Kind)
	assert.True(t, FromTransport(errors.New("connection refused")).Retryable())
}

func TestUpstreamMessage(t *testing.T) {
	assert.Equal(t, "nested", UpstreamMessage([]byte(`{"error":{"message":"nested"}}`)))
	assert.Equal(t, "top", UpstreamMessage([]byte(`{"message":"top"}`)))
	assert.Equal(t, "plain", UpstreamMessage([]byte(`{"error":"plain"}`)))
	assert.Equal(t, "listed", UpstreamMessage([]byte(`[{"error":{"message":"listed"}}]`)))
	assert.Equal(t, "not json", UpstreamMessage([]byte(`not json`)))
	assert.Equal(t, "", UpstreamMessage(nil))

	long := make([]byte, 2000)
	for i := range long {
		long[i] = 'x'
	}
	assert.Contains(t, UpstreamMessage(long), "(truncated)")
}

func TestGatewayError_JSON(t *testing.T) {
	ge := FromStatus(http.StatusTooManyRequests, nil).WithProvider("openai")
	data, err := json.Marshal(ge)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "rate_limit", decoded["kind"])
	assert.Equal(t, true, decoded["retryable"])
	assert.Equal(t, "openai", decoded["provider"])
}

func TestAs(t *testing.T) {
	assert.Nil(t, As(nil))

	ge := Missing("openai api_key")
	wrapped := fmt.Errorf("dispatch: %w", ge)
	assert.Same(t, ge, As(wrapped))
	assert.Equal(t, KindConfiguration, As(wrapped).Kind)

	other := As(errors.New("strange"))
	assert.Equal(t, KindUnknown, other.Kind)
	assert.True(t, other.Retryable())
}
