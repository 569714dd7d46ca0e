package adapters

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"

	"github.com/tidwall/sjson"

	"github.com/compresr/chat-gateway/internal/apierrors"
	"github.com/compresr/chat-gateway/internal/config"
)

// CustomAdapter handles any OpenAI-compatible endpoint (Ollama, vLLM, LM Studio,
// proxies). The bearer token is optional. Fields in settings.ExtraBody are
// merged into the request body, overriding built-in fields of the same name.
type CustomAdapter struct {
	BaseAdapter
	extraKeys []string // sorted ExtraBody keys, for a stable body
}

// NewCustomAdapter creates a new custom endpoint adapter.
func NewCustomAdapter(settings config.ProviderSettings, client HTTPDoer) *CustomAdapter {
	if settings.Model == "" {
		settings.Model = config.DefaultCustomModel
	}
	keys := make([]string, 0, len(settings.ExtraBody))
	for k := range settings.ExtraBody {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return &CustomAdapter{
		BaseAdapter: newBaseAdapter(ProviderCustom, settings, client),
		extraKeys:   keys,
	}
}

// BuildRequest builds an OpenAI-compatible request to the configured endpoint.
func (a *CustomAdapter) BuildRequest(req *ChatRequest) (*RawRequest, error) {
	if a.settings.Endpoint == "" {
		return nil, apierrors.Missing("custom endpoint").WithProvider(a.name)
	}

	model := req.Model
	if model == "" {
		model = a.settings.Model
	}

	body, err := json.Marshal(&openAIChatRequest{
		Model:       model,
		Messages:    chatMessages(req.SystemPrompt, req.UserMessage),
		MaxTokens:   a.settings.MaxTokens,
		Temperature: a.settings.Temp(),
	})
	for _, k := range a.extraKeys {
		if err != nil {
			break
		}
		body, err = sjson.SetBytes(body, k, a.settings.ExtraBody[k])
	}
	if err != nil {
		return nil, apierrors.New(apierrors.KindConfiguration, "failed to build custom request: %v", err).WithProvider(a.name)
	}

	header := jsonHeader()
	if a.settings.APIKey != "" {
		header.Set("Authorization", fmt.Sprintf("Bearer %s", a.settings.APIKey))
	}

	return &RawRequest{
		Method: http.MethodPost,
		URL:    a.settings.Endpoint,
		Header: header,
		Body:   body,
		Model:  model,
	}, nil
}

// Parse extracts choices[0].message.content.
func (a *CustomAdapter) Parse(resp *RawResponse) (*Reply, error) {
	return a.parseAt(resp, pathChoiceContent)
}

var _ Adapter = (*CustomAdapter)(nil)
