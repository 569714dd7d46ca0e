package adapters

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/compresr/chat-gateway/internal/apierrors"
	"github.com/compresr/chat-gateway/internal/config"
)

// DefaultPersona is the OpenAI system prompt used when the caller sends none.
const DefaultPersona = "You are a helpful assistant. Answer the visitor's question clearly and concisely."

// openAIChatRequest is the Chat Completions body shared by the OpenAI, Azure
// and custom adapters. Azure leaves Model empty: the deployment in the URL implies it.
type openAIChatRequest struct {
	Model       string        `json:"model,omitempty"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

func chatMessages(system, user string) []chatMessage {
	if system == "" {
		return []chatMessage{{Role: "user", Content: user}}
	}
	return []chatMessage{
		{Role: "system", Content: system},
		{Role: "user", Content: user},
	}
}

// OpenAIAdapter handles the OpenAI Chat Completions API.
//
//	POST /v1/chat/completions
//	Authorization: Bearer <key>
//	{"model", "messages": [{role, content}], "max_tokens", "temperature"}
//	→ choices[0].message.content
type OpenAIAdapter struct {
	BaseAdapter
}

// NewOpenAIAdapter creates a new OpenAI adapter. A nil client uses a shared default.
func NewOpenAIAdapter(settings config.ProviderSettings, client HTTPDoer) *OpenAIAdapter {
	if settings.Endpoint == "" {
		settings.Endpoint = config.DefaultOpenAIEndpoint
	}
	return &OpenAIAdapter{BaseAdapter: newBaseAdapter(ProviderOpenAI, settings, client)}
}

// BuildRequest validates the model against the allow-list and builds the request.
func (a *OpenAIAdapter) BuildRequest(req *ChatRequest) (*RawRequest, error) {
	if a.settings.APIKey == "" {
		return nil, apierrors.Missing("openai api_key").WithProvider(a.name)
	}

	model, note := ResolveOpenAIModel(req.Model, a.settings.Model)

	system := req.SystemPrompt
	if system == "" {
		system = DefaultPersona
	}

	body, err := json.Marshal(&openAIChatRequest{
		Model:       model,
		Messages:    chatMessages(system, req.UserMessage),
		MaxTokens:   a.settings.MaxTokens,
		Temperature: a.settings.Temp(),
	})
	if err != nil {
		return nil, apierrors.New(apierrors.KindUnknown, "failed to marshal openai request: %v", err).WithProvider(a.name)
	}

	header := jsonHeader()
	header.Set("Authorization", fmt.Sprintf("Bearer %s", a.settings.APIKey))

	return &RawRequest{
		Method:    http.MethodPost,
		URL:       a.settings.Endpoint,
		Header:    header,
		Body:      body,
		Model:     model,
		ModelNote: note,
	}, nil
}

// Parse extracts choices[0].message.content.
func (a *OpenAIAdapter) Parse(resp *RawResponse) (*Reply, error) {
	return a.parseAt(resp, pathChoiceContent)
}

var _ Adapter = (*OpenAIAdapter)(nil)
