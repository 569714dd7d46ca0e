// Package adapters provides provider-specific chat-completion exchanges.
//
// DESIGN: The gateway talks to five structurally different backends
// (OpenAI, Anthropic, Google, Azure OpenAI, custom OpenAI-compatible).
// Each adapter implements the same three steps:
//
//   - BuildRequest: ChatRequest → RawRequest (URL, auth headers, JSON body)
//   - Send:         RawRequest  → RawResponse (one attempt, no retry)
//   - Parse:        RawResponse → Reply, or a classified *apierrors.GatewayError
//
// FLOW:
//  1. Dispatcher resolves the provider and gets the adapter from the Registry
//  2. Dispatcher calls BuildRequest; missing credentials fail here, before any I/O
//  3. Dispatcher calls Send under its timeout
//  4. Dispatcher calls Parse; non-2xx statuses and bad bodies become GatewayErrors
//
// Adapters hold only their settings and an HTTP client. They are stateless
// and safe for concurrent use. To add a provider: implement Adapter and
// register it in the Registry.
package adapters

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/compresr/chat-gateway/internal/apierrors"
	"github.com/compresr/chat-gateway/internal/config"
)

// maxResponseSize prevents OOM on unexpectedly large API responses (10MB).
const maxResponseSize = 10 * 1024 * 1024

// HTTPDoer sends HTTP requests. *http.Client satisfies it.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// defaultClient has no timeout of its own; the dispatcher's context bounds each call.
var defaultClient HTTPDoer = &http.Client{}

// Adapter defines the unified interface for one provider's request/response protocol.
type Adapter interface {
	// Name returns the adapter identifier (e.g., "openai", "anthropic")
	Name() string

	// Provider returns the provider type for this adapter
	Provider() Provider

	// BuildRequest builds the provider request. Returns a Configuration
	// GatewayError when a required credential is missing.
	BuildRequest(req *ChatRequest) (*RawRequest, error)

	// Send performs exactly one HTTP exchange. Only transport failures are
	// errors; any HTTP status is returned as a RawResponse.
	Send(ctx context.Context, raw *RawRequest) (*RawResponse, error)

	// Parse classifies the status and extracts the reply text.
	Parse(resp *RawResponse) (*Reply, error)
}

// BaseAdapter provides common functionality for all adapters.
type BaseAdapter struct {
	name     string
	provider Provider
	settings config.ProviderSettings
	client   HTTPDoer
}

func newBaseAdapter(provider Provider, settings config.ProviderSettings, client HTTPDoer) BaseAdapter {
	if client == nil {
		client = defaultClient
	}
	if settings.MaxTokens == 0 {
		settings.MaxTokens = config.DefaultMaxTokens
	}
	return BaseAdapter{
		name:     string(provider),
		provider: provider,
		settings: settings,
		client:   client,
	}
}

// Name returns the adapter name.
func (a *BaseAdapter) Name() string {
	return a.name
}

// Provider returns the provider type.
func (a *BaseAdapter) Provider() Provider {
	return a.provider
}

// Send performs one HTTP exchange. Transport errors are classified as
// Timeout or Network with the API key scrubbed from the message.
func (a *BaseAdapter) Send(ctx context.Context, raw *RawRequest) (*RawResponse, error) {
	req, err := http.NewRequestWithContext(ctx, raw.Method, raw.URL, bytes.NewReader(raw.Body))
	if err != nil {
		// err may quote the URL, which can carry the key.
		return nil, apierrors.New(apierrors.KindConfiguration, "invalid %s request URL", a.name).WithProvider(a.name)
	}
	req.Header = raw.Header.Clone()

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, apierrors.FromTransport(a.scrub(err)).WithProvider(a.name)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, apierrors.FromTransport(a.scrub(err)).WithProvider(a.name)
	}

	return &RawResponse{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}

// parseAt is the Parse step shared by every adapter: status first, then
// navigate-or-fail on path.
func (a *BaseAdapter) parseAt(resp *RawResponse, path string) (*Reply, error) {
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apierrors.FromStatus(resp.StatusCode, []byte(a.scrubString(string(resp.Body)))).WithProvider(a.name)
	}
	reply, ge := extractText(resp.Body, path)
	if ge != nil {
		return nil, ge.WithProvider(a.name)
	}
	return reply, nil
}

// scrubbedError hides secrets in the message but keeps the cause for errors.Is/As.
type scrubbedError struct {
	msg string
	err error
}

func (e *scrubbedError) Error() string { return e.msg }
func (e *scrubbedError) Unwrap() error { return e.err }

func (a *BaseAdapter) scrub(err error) error {
	msg := a.scrubString(err.Error())
	if msg == err.Error() {
		return err
	}
	return &scrubbedError{msg: msg, err: err}
}

func (a *BaseAdapter) scrubString(s string) string {
	if a.settings.APIKey == "" {
		return s
	}
	s = strings.ReplaceAll(s, a.settings.APIKey, "[REDACTED]")
	return strings.ReplaceAll(s, url.QueryEscape(a.settings.APIKey), "[REDACTED]")
}
