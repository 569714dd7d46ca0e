package adapters

import (
	"encoding/json"
	"net/http"

	"github.com/tidwall/sjson"

	"github.com/compresr/chat-gateway/internal/apierrors"
	"github.com/compresr/chat-gateway/internal/config"
)

// anthropicRequest is the Messages API body. The optional top-level "system"
// field is patched in only when a system prompt is present.
type anthropicRequest struct {
	Model     string        `json:"model"`
	MaxTokens int           `json:"max_tokens"`
	Messages  []chatMessage `json:"messages"`
}

// AnthropicAdapter handles the Anthropic Messages API.
//
//	POST /v1/messages
//	x-api-key: <key>, anthropic-version: 2023-06-01
//	{"model", "max_tokens", "system"?, "messages": [{role, content}]}
//	→ content[0].text
type AnthropicAdapter struct {
	BaseAdapter
}

// NewAnthropicAdapter creates a new Anthropic adapter.
func NewAnthropicAdapter(settings config.ProviderSettings, client HTTPDoer) *AnthropicAdapter {
	if settings.Endpoint == "" {
		settings.Endpoint = config.DefaultAnthropicEndpoint
	}
	if settings.Model == "" {
		settings.Model = config.DefaultAnthropicModel
	}
	if settings.APIVersion == "" {
		settings.APIVersion = config.DefaultAnthropicVersion
	}
	return &AnthropicAdapter{BaseAdapter: newBaseAdapter(ProviderAnthropic, settings, client)}
}

// BuildRequest builds a Messages API request.
func (a *AnthropicAdapter) BuildRequest(req *ChatRequest) (*RawRequest, error) {
	if a.settings.APIKey == "" {
		return nil, apierrors.Missing("anthropic api_key").WithProvider(a.name)
	}

	model := req.Model
	if model == "" {
		model = a.settings.Model
	}

	body, err := json.Marshal(&anthropicRequest{
		Model:     model,
		MaxTokens: a.settings.MaxTokens,
		Messages:  []chatMessage{{Role: "user", Content: req.UserMessage}},
	})
	if err == nil && req.SystemPrompt != "" {
		body, err = sjson.SetBytes(body, "system", req.SystemPrompt)
	}
	if err != nil {
		return nil, apierrors.New(apierrors.KindUnknown, "failed to marshal anthropic request: %v", err).WithProvider(a.name)
	}

	header := jsonHeader()
	header.Set("x-api-key", a.settings.APIKey)
	header.Set("anthropic-version", a.settings.APIVersion)

	return &RawRequest{
		Method: http.MethodPost,
		URL:    a.settings.Endpoint,
		Header: header,
		Body:   body,
		Model:  model,
	}, nil
}

// Parse extracts content[0].text.
func (a *AnthropicAdapter) Parse(resp *RawResponse) (*Reply, error) {
	return a.parseAt(resp, pathAnthropicText)
}

var _ Adapter = (*AnthropicAdapter)(nil)
