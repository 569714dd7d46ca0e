package dispatch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compresr/chat-gateway/internal/adapters"
	"github.com/compresr/chat-gateway/internal/apierrors"
	"github.com/compresr/chat-gateway/internal/config"
	"github.com/compresr/chat-gateway/internal/monitoring"
	"github.com/compresr/chat-gateway/internal/store"
)

const (
	openAIOK    = `{"choices":[{"message":{"role":"assistant","content":"  hi from %s \n"}}]}`
	anthropicOK = `{"content":[{"type":"text","text":" hi from anthropic "}]}`
	googleOK    = `{"candidates":[{"content":{"parts":[{"text":"hi from google\n"}]}}]}`
)

// upstream serves all five provider shapes from one server, routed by path.
type upstream struct {
	srv   *httptest.Server
	calls atomic.Int64
	empty atomic.Bool
}

func newUpstream(t *testing.T) *upstream {
	t.Helper()
	u := &upstream{}
	u.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u.calls.Add(1)
		_, _ = io.Copy(io.Discard, r.Body)
		w.Header().Set("Content-Type", "application/json")
		if u.empty.Load() {
			switch {
			case strings.HasSuffix(r.URL.Path, ":generateContent"):
				_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"  "}]}}]}`))
			case r.URL.Path == "/v1/messages":
				_, _ = w.Write([]byte(`{"content":[{"type":"text","text":""}]}`))
			default:
				_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"\n"}}]}`))
			}
			return
		}
		switch {
		case strings.HasSuffix(r.URL.Path, ":generateContent"):
			_, _ = w.Write([]byte(googleOK))
		case r.URL.Path == "/v1/messages":
			_, _ = w.Write([]byte(anthropicOK))
		case strings.HasPrefix(r.URL.Path, "/openai/deployments/"):
			_, _ = fmt.Fprintf(w, openAIOK, "azure")
		case r.URL.Path == "/custom/chat":
			_, _ = fmt.Fprintf(w, openAIOK, "custom")
		default:
			_, _ = fmt.Fprintf(w, openAIOK, "openai")
		}
	}))
	t.Cleanup(u.srv.Close)
	return u
}

// providers points every provider at base with credentials set.
func providers(base string) config.ProvidersConfig {
	p := config.ProvidersConfig{
		OpenAI:    config.ProviderSettings{APIKey: "sk-openai", Endpoint: base + "/v1/chat/completions", Model: "gpt-4o-mini"},
		Anthropic: config.ProviderSettings{APIKey: "sk-ant", Endpoint: base + "/v1/messages"},
		Google:    config.ProviderSettings{APIKey: "g-key", Endpoint: base + "/v1beta/models"},
		Azure:     config.ProviderSettings{APIKey: "az-key", Endpoint: base},
		Custom:    config.ProviderSettings{Endpoint: base + "/custom/chat"},
	}
	p.ApplyDefaults()
	return p
}

func newDispatcher(t *testing.T, base string, client adapters.HTTPDoer, opts Options) *Dispatcher {
	t.Helper()
	return New(adapters.NewRegistry(providers(base), client), opts)
}

func gatewayErr(t *testing.T, err error) *apierrors.GatewayError {
	t.Helper()
	require.Error(t, err)
	var ge *apierrors.GatewayError
	require.True(t, errors.As(err, &ge), "expected *GatewayError, got %T", err)
	return ge
}

func TestDispatch_AllProvidersSucceed(t *testing.T) {
	u := newUpstream(t)
	d := newDispatcher(t, u.srv.URL, nil, Options{})

	want := map[adapters.Provider]string{
		adapters.ProviderOpenAI:    "hi from openai",
		adapters.ProviderAnthropic: "hi from anthropic",
		adapters.ProviderGoogle:    "hi from google",
		adapters.ProviderAzure:     "hi from azure",
		adapters.ProviderCustom:    "hi from custom",
	}
	for provider, text := range want {
		t.Run(string(provider), func(t *testing.T) {
			reply, err := d.Dispatch(context.Background(), &adapters.ChatRequest{Provider: provider, UserMessage: "hello"})
			require.NoError(t, err)
			assert.Equal(t, text, reply.Text)
			assert.NotEmpty(t, reply.Model)
		})
	}

	stats := d.Metrics().Stats()
	assert.Equal(t, int64(5), stats["requests"])
	assert.Equal(t, int64(5), stats["successes"])
}

func TestDispatch_EmptyContentIsAPIError(t *testing.T) {
	u := newUpstream(t)
	u.empty.Store(true)
	d := newDispatcher(t, u.srv.URL, nil, Options{})

	for _, provider := range adapters.Providers {
		t.Run(string(provider), func(t *testing.T) {
			reply, err := d.Dispatch(context.Background(), &adapters.ChatRequest{Provider: provider, UserMessage: "hello"})
			assert.Nil(t, reply)
			ge := gatewayErr(t, err)
			assert.Equal(t, apierrors.KindAPIError, ge.Kind)
			assert.False(t, ge.Retryable())
		})
	}
}

// blockingTransport never answers until released, ignoring the request context.
type blockingTransport struct {
	release chan struct{}
}

func (b *blockingTransport) RoundTrip(*http.Request) (*http.Response, error) {
	<-b.release
	return nil, errors.New("released")
}

func TestDispatch_TimeoutAbandonsCall(t *testing.T) {
	bt := &blockingTransport{release: make(chan struct{})}
	t.Cleanup(func() { close(bt.release) })

	d := newDispatcher(t, "http://upstream.invalid", &http.Client{Transport: bt}, Options{Timeout: 50 * time.Millisecond})

	for _, provider := range adapters.Providers {
		t.Run(string(provider), func(t *testing.T) {
			start := time.Now()
			_, err := d.Dispatch(context.Background(), &adapters.ChatRequest{Provider: provider, UserMessage: "hello"})
			ge := gatewayErr(t, err)
			assert.Equal(t, apierrors.KindTimeout, ge.Kind)
			assert.True(t, ge.Retryable())
			assert.Less(t, time.Since(start), 2*time.Second)
		})
	}
}

func TestDispatch_CallerCancellation(t *testing.T) {
	bt := &blockingTransport{release: make(chan struct{})}
	t.Cleanup(func() { close(bt.release) })
	d := newDispatcher(t, "http://upstream.invalid", &http.Client{Transport: bt}, Options{Timeout: time.Minute})

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	_, err := d.DispatchMessage(ctx, "openai", "hello", "", "")
	ge := gatewayErr(t, err)
	assert.Equal(t, apierrors.KindTimeout, ge.Kind)
	assert.Contains(t, ge.Message, "cancelled")
}

func TestDispatch_ModelSubstitutionVisible(t *testing.T) {
	u := newUpstream(t)
	d := newDispatcher(t, u.srv.URL, nil, Options{})

	reply, err := d.DispatchMessage(context.Background(), "openai", "hello", "", "gpt-99-ultra")
	require.NoError(t, err)
	assert.Equal(t, adapters.SafeOpenAIModel, reply.Model)
	assert.Contains(t, reply.DebugInfo, "gpt-99-ultra")

	reply, err = d.DispatchMessage(context.Background(), "openai", "hello", "", "gpt-4o")
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", reply.Model)
	assert.Empty(t, reply.DebugInfo)
}

func TestDispatch_ModelRejectionCarriesModelSent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid model parameter"}}`))
	}))
	t.Cleanup(srv.Close)
	d := newDispatcher(t, srv.URL, nil, Options{})

	_, err := d.DispatchMessage(context.Background(), "custom", "hello", "", "my-model")
	ge := gatewayErr(t, err)
	assert.Equal(t, apierrors.KindConfiguration, ge.Kind)
	assert.Equal(t, http.StatusBadRequest, ge.StatusCode)
	assert.Contains(t, ge.DebugInfo, "model sent: my-model")
}

func TestDispatch_UnknownProviderFallsBackToOpenAI(t *testing.T) {
	u := newUpstream(t)
	var buf bytes.Buffer
	logger := monitoring.NewFromZerolog(zerolog.New(&buf))
	d := newDispatcher(t, u.srv.URL, nil, Options{Logger: logger})

	reply, err := d.DispatchMessage(context.Background(), "mistral", "hello", "", "")
	require.NoError(t, err)
	assert.Equal(t, "hi from openai", reply.Text)
	assert.Contains(t, buf.String(), `"requested":"mistral"`)
	assert.Equal(t, int64(1), d.Metrics().Stats()["fallbacks"])
}

func TestDispatch_DefaultProvider(t *testing.T) {
	u := newUpstream(t)
	d := newDispatcher(t, u.srv.URL, nil, Options{DefaultProvider: "anthropic"})

	reply, err := d.DispatchMessage(context.Background(), "", "hello", "", "")
	require.NoError(t, err)
	assert.Equal(t, "hi from anthropic", reply.Text)
	assert.Zero(t, d.Metrics().Stats()["fallbacks"])
}

func TestDispatch_EmptyMessageIsBadRequest(t *testing.T) {
	u := newUpstream(t)
	d := newDispatcher(t, u.srv.URL, nil, Options{})

	_, err := d.DispatchMessage(context.Background(), "openai", "   ", "", "")
	ge := gatewayErr(t, err)
	assert.Equal(t, apierrors.KindBadRequest, ge.Kind)
	assert.Zero(t, u.calls.Load())
}

func TestDispatch_MissingCredentialMakesNoRequest(t *testing.T) {
	u := newUpstream(t)
	p := providers(u.srv.URL)
	p.OpenAI.APIKey = ""
	p.Anthropic.APIKey = ""
	p.Google.APIKey = ""
	p.Azure.APIKey = ""
	p.Custom.Endpoint = ""
	d := New(adapters.NewRegistry(p, nil), Options{})

	for _, provider := range adapters.Providers {
		t.Run(string(provider), func(t *testing.T) {
			_, err := d.Dispatch(context.Background(), &adapters.ChatRequest{Provider: provider, UserMessage: "hello"})
			ge := gatewayErr(t, err)
			assert.Equal(t, apierrors.KindConfiguration, ge.Kind)
			assert.False(t, ge.Retryable())
		})
	}
	assert.Zero(t, u.calls.Load())
}

// panicAdapter panics while building the request.
type panicAdapter struct{}

func (panicAdapter) Name() string                { return "openai" }
func (panicAdapter) Provider() adapters.Provider { return adapters.ProviderOpenAI }
func (panicAdapter) BuildRequest(*adapters.ChatRequest) (*adapters.RawRequest, error) {
	panic("boom")
}
func (panicAdapter) Send(context.Context, *adapters.RawRequest) (*adapters.RawResponse, error) {
	return nil, nil
}
func (panicAdapter) Parse(*adapters.RawResponse) (*adapters.Reply, error) { return nil, nil }

func TestDispatch_PanicBecomesUnknown(t *testing.T) {
	reg := adapters.NewEmptyRegistry()
	reg.Register(panicAdapter{})
	var buf bytes.Buffer
	d := New(reg, Options{Logger: monitoring.NewFromZerolog(zerolog.New(&buf))})

	_, err := d.DispatchMessage(context.Background(), "openai", "hello", "", "")
	ge := gatewayErr(t, err)
	assert.Equal(t, apierrors.KindUnknown, ge.Kind)
	assert.True(t, ge.Retryable())
	assert.Contains(t, ge.Message, "boom")
	assert.Contains(t, buf.String(), "panic")
}

func TestDispatch_UnregisteredProviderIsUnknown(t *testing.T) {
	d := New(adapters.NewEmptyRegistry(), Options{})
	_, err := d.DispatchMessage(context.Background(), "google", "hello", "", "")
	assert.Equal(t, apierrors.KindUnknown, gatewayErr(t, err).Kind)
}

func TestDispatch_RecordsExchanges(t *testing.T) {
	u := newUpstream(t)
	st := store.NewMemoryStore(time.Hour)
	t.Cleanup(func() { st.Close() })
	d := newDispatcher(t, u.srv.URL, nil, Options{Store: st})

	ctx := monitoring.WithRequestIDContext(context.Background(), "req-1")
	_, err := d.DispatchMessage(ctx, "google", "hello", "", "")
	require.NoError(t, err)
	_, err = d.DispatchMessage(context.Background(), "google", "", "", "")
	require.Error(t, err)

	rows, err := st.Recent(0)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "bad_request", rows[0].ErrorKind)
	assert.NotEmpty(t, rows[0].RequestID)
	assert.Equal(t, "req-1", rows[1].RequestID)
	assert.True(t, rows[1].Success)
	assert.Equal(t, config.DefaultGoogleModel, rows[1].Model)
}

func TestDispatch_Concurrent(t *testing.T) {
	u := newUpstream(t)
	d := newDispatcher(t, u.srv.URL, nil, Options{})

	var wg sync.WaitGroup
	errs := make(chan error, 50)
	for i := 0; i < 50; i++ {
		provider := adapters.Providers[i%len(adapters.Providers)]
		wg.Add(1)
		go func() {
			defer wg.Done()
			reply, err := d.Dispatch(context.Background(), &adapters.ChatRequest{Provider: provider, UserMessage: "hello"})
			if err != nil {
				errs <- err
				return
			}
			if reply.Text != "hi from "+string(provider) {
				errs <- fmt.Errorf("%s: unexpected reply %q", provider, reply.Text)
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
	assert.Equal(t, int64(50), u.calls.Load())
	assert.Equal(t, int64(50), d.Metrics().Stats()["successes"])
}
