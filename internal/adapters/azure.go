package adapters

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/compresr/chat-gateway/internal/apierrors"
	"github.com/compresr/chat-gateway/internal/config"
)

// AzureAdapter handles Azure OpenAI deployments. The deployment name is a
// URL path segment and doubles as the model identifier, so the body carries
// no "model" field. A model hint on the request selects the deployment.
//
//	POST {endpoint}/openai/deployments/{deployment}/chat/completions?api-version=V
//	api-key: <key>
//	{"messages": [{role, content}], "max_tokens", "temperature"}
//	→ choices[0].message.content
type AzureAdapter struct {
	BaseAdapter
}

// NewAzureAdapter creates a new Azure OpenAI adapter.
func NewAzureAdapter(settings config.ProviderSettings, client HTTPDoer) *AzureAdapter {
	if settings.Deployment == "" {
		settings.Deployment = config.DefaultAzureDeployment
	}
	if settings.APIVersion == "" {
		settings.APIVersion = config.DefaultAzureAPIVersion
	}
	return &AzureAdapter{BaseAdapter: newBaseAdapter(ProviderAzure, settings, client)}
}

// BuildRequest builds a deployment chat completions request.
func (a *AzureAdapter) BuildRequest(req *ChatRequest) (*RawRequest, error) {
	if a.settings.APIKey == "" {
		return nil, apierrors.Missing("azure api_key").WithProvider(a.name)
	}
	if a.settings.Endpoint == "" {
		return nil, apierrors.Missing("azure endpoint").WithProvider(a.name)
	}

	deployment := req.Model
	if deployment == "" {
		deployment = a.settings.Deployment
	}

	body, err := json.Marshal(&openAIChatRequest{
		Messages:    chatMessages(req.SystemPrompt, req.UserMessage),
		MaxTokens:   a.settings.MaxTokens,
		Temperature: a.settings.Temp(),
	})
	if err != nil {
		return nil, apierrors.New(apierrors.KindUnknown, "failed to marshal azure request: %v", err).WithProvider(a.name)
	}

	endpoint := strings.TrimRight(a.settings.Endpoint, "/") +
		"/openai/deployments/" + url.PathEscape(deployment) +
		"/chat/completions?api-version=" + url.QueryEscape(a.settings.APIVersion)

	header := jsonHeader()
	header.Set("api-key", a.settings.APIKey)

	return &RawRequest{
		Method: http.MethodPost,
		URL:    endpoint,
		Header: header,
		Body:   body,
		Model:  deployment,
	}, nil
}

// Parse extracts choices[0].message.content.
func (a *AzureAdapter) Parse(resp *RawResponse) (*Reply, error) {
	return a.parseAt(resp, pathChoiceContent)
}

var _ Adapter = (*AzureAdapter)(nil)
