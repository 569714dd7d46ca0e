package adapters

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/compresr/chat-gateway/internal/config"
)

// Provider identifies a backend chat-completion service.
type Provider string

const (
	ProviderOpenAI    Provider = config.ProviderOpenAI
	ProviderAnthropic Provider = config.ProviderAnthropic
	ProviderGoogle    Provider = config.ProviderGoogle
	ProviderAzure     Provider = config.ProviderAzure
	ProviderCustom    Provider = config.ProviderCustom
)

// Providers lists the supported providers.
var Providers = []Provider{ProviderOpenAI, ProviderAnthropic, ProviderGoogle, ProviderAzure, ProviderCustom}

var providerAliases = map[string]Provider{
	"openai":          ProviderOpenAI,
	"anthropic":       ProviderAnthropic,
	"claude":          ProviderAnthropic,
	"google":          ProviderGoogle,
	"gemini":          ProviderGoogle,
	"azure":           ProviderAzure,
	"azure_openai":    ProviderAzure,
	"custom":          ProviderCustom,
	"custom_endpoint": ProviderCustom,
}

// ParseProvider maps a provider identifier to a Provider.
// Unknown identifiers fall back to OpenAI with ok=false.
func ParseProvider(s string) (p Provider, ok bool) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.ReplaceAll(key, "-", "_")
	if p, ok := providerAliases[key]; ok {
		return p, true
	}
	return ProviderOpenAI, false
}

// ChatRequest is one user message to send to a provider.
type ChatRequest struct {
	Provider     Provider
	UserMessage  string
	SystemPrompt string // empty: OpenAI uses DefaultPersona, others send no system instruction
	Model        string // empty: adapter's configured default
}

// Reply is the canonical success value. Text is trimmed and never empty.
type Reply struct {
	Text      string `json:"reply"`
	Model     string `json:"model,omitempty"`      // model or deployment identifier actually sent
	DebugInfo string `json:"debug_info,omitempty"` // e.g. model substitution note
}

// RawRequest is a fully built provider request.
type RawRequest struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte

	// Model is the model or deployment identifier placed in the request.
	Model string
	// ModelNote records a model substitution, empty when the requested model was used.
	ModelNote string
}

// RedactedURL returns URL with credential query parameters masked, safe for logs.
func (r *RawRequest) RedactedURL() string {
	u, err := url.Parse(r.URL)
	if err != nil {
		return "(invalid url)"
	}
	q := u.Query()
	for _, k := range []string{"key", "api_key", "api-key"} {
		if q.Has(k) {
			q.Set(k, "REDACTED")
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// RawResponse is the provider's HTTP response, any status.
type RawResponse struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// chatMessage is the role/content pair used by OpenAI-style and Anthropic bodies.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func jsonHeader() http.Header {
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	h.Set("Accept", "application/json")
	return h
}
