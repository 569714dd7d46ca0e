package adapters

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/compresr/chat-gateway/internal/apierrors"
	"github.com/compresr/chat-gateway/internal/config"
)

type googlePart struct {
	Text string `json:"text"`
}

type googleContent struct {
	Parts []googlePart `json:"parts"`
}

type googleGenerationConfig struct {
	MaxOutputTokens int     `json:"maxOutputTokens"`
	Temperature     float64 `json:"temperature"`
}

type googleRequest struct {
	Contents         []googleContent        `json:"contents"`
	GenerationConfig googleGenerationConfig `json:"generationConfig"`
}

// GoogleAdapter handles the Google Generative Language generateContent API.
// There is no system role: a system prompt is prefixed to the user text.
// The model is a URL path segment and the key a query parameter.
//
//	POST /v1beta/models/{model}:generateContent?key=<key>
//	{"contents": [{"parts": [{"text"}]}], "generationConfig": {maxOutputTokens, temperature}}
//	→ candidates[0].content.parts[0].text
type GoogleAdapter struct {
	BaseAdapter
}

// NewGoogleAdapter creates a new Google adapter.
func NewGoogleAdapter(settings config.ProviderSettings, client HTTPDoer) *GoogleAdapter {
	if settings.Endpoint == "" {
		settings.Endpoint = config.DefaultGoogleEndpoint
	}
	if settings.Model == "" {
		settings.Model = config.DefaultGoogleModel
	}
	return &GoogleAdapter{BaseAdapter: newBaseAdapter(ProviderGoogle, settings, client)}
}

// BuildRequest builds a generateContent request.
func (a *GoogleAdapter) BuildRequest(req *ChatRequest) (*RawRequest, error) {
	if a.settings.APIKey == "" {
		return nil, apierrors.Missing("google api_key").WithProvider(a.name)
	}

	model := req.Model
	if model == "" {
		model = a.settings.Model
	}

	text := req.UserMessage
	if req.SystemPrompt != "" {
		text = req.SystemPrompt + "\n\n" + req.UserMessage
	}

	body, err := json.Marshal(&googleRequest{
		Contents: []googleContent{{Parts: []googlePart{{Text: text}}}},
		GenerationConfig: googleGenerationConfig{
			MaxOutputTokens: a.settings.MaxTokens,
			Temperature:     a.settings.Temp(),
		},
	})
	if err != nil {
		return nil, apierrors.New(apierrors.KindUnknown, "failed to marshal google request: %v", err).WithProvider(a.name)
	}

	endpoint := strings.TrimRight(a.settings.Endpoint, "/") + "/" + url.PathEscape(model) +
		":generateContent?key=" + url.QueryEscape(a.settings.APIKey)

	return &RawRequest{
		Method: http.MethodPost,
		URL:    endpoint,
		Header: jsonHeader(),
		Body:   body,
		Model:  model,
	}, nil
}

// Parse extracts candidates[0].content.parts[0].text.
func (a *GoogleAdapter) Parse(resp *RawResponse) (*Reply, error) {
	return a.parseAt(resp, pathGoogleCandidate)
}

var _ Adapter = (*GoogleAdapter)(nil)
