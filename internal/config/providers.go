// Provider configuration - credentials, endpoints and default models.
//
// DESIGN: Each provider gets one ProviderSettings value. Adapters receive
// their settings at construction and never read global state, so an adapter
// is a pure function of (settings, request).
package config

import (
	"fmt"
	"net/url"
)

// Provider names as they appear in config files and requests.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGoogle    = "google"
	ProviderAzure     = "azure"
	ProviderCustom    = "custom"
)

// ProviderNames lists the supported providers.
var ProviderNames = []string{ProviderOpenAI, ProviderAnthropic, ProviderGoogle, ProviderAzure, ProviderCustom}

// Tuning defaults shared by all providers.
const (
	DefaultMaxTokens   = 1000
	DefaultTemperature = 0.7
)

// Default endpoints and model identifiers.
const (
	DefaultOpenAIEndpoint    = "https://api.openai.com/v1/chat/completions"
	DefaultAnthropicEndpoint = "https://api.anthropic.com/v1/messages"
	DefaultAnthropicModel    = "claude-3-haiku-20240307"
	DefaultAnthropicVersion  = "2023-06-01"
	DefaultGoogleEndpoint    = "https://generativelanguage.googleapis.com/v1beta/models"
	DefaultGoogleModel       = "gemini-1.5-flash"
	DefaultAzureDeployment   = "gpt-35-turbo"
	DefaultAzureAPIVersion   = "2024-02-15-preview"
	DefaultCustomModel       = "custom-model"
)

// ProviderSettings holds everything one adapter needs.
// Not every field applies to every provider.
type ProviderSettings struct {
	APIKey      string         `yaml:"api_key"`
	Endpoint    string         `yaml:"endpoint"`
	Model       string         `yaml:"model"`       // Default model (Azure: unused, see Deployment)
	Deployment  string         `yaml:"deployment"`  // Azure deployment name, doubles as model id
	APIVersion  string         `yaml:"api_version"` // Azure api-version query / Anthropic version header
	MaxTokens   int            `yaml:"max_tokens"`
	Temperature *float64       `yaml:"temperature"`
	ExtraBody   map[string]any `yaml:"extra_body"` // Custom endpoint: merged into request body
}

// Temp returns the configured temperature or the default.
func (s ProviderSettings) Temp() float64 {
	if s.Temperature == nil {
		return DefaultTemperature
	}
	return *s.Temperature
}

// ProvidersConfig holds settings for all five providers.
type ProvidersConfig struct {
	OpenAI    ProviderSettings `yaml:"openai"`
	Anthropic ProviderSettings `yaml:"anthropic"`
	Google    ProviderSettings `yaml:"google"`
	Azure     ProviderSettings `yaml:"azure"`
	Custom    ProviderSettings `yaml:"custom"`
}

// Get returns the settings for a provider name. Unknown names return false.
func (p *ProvidersConfig) Get(name string) (ProviderSettings, bool) {
	switch name {
	case ProviderOpenAI:
		return p.OpenAI, true
	case ProviderAnthropic:
		return p.Anthropic, true
	case ProviderGoogle:
		return p.Google, true
	case ProviderAzure:
		return p.Azure, true
	case ProviderCustom:
		return p.Custom, true
	}
	return ProviderSettings{}, false
}

// ApplyDefaults fills endpoints, models and tuning values that were left empty.
// The OpenAI model is left alone: it is resolved against an allow-list per request.
func (p *ProvidersConfig) ApplyDefaults() {
	for _, s := range []*ProviderSettings{&p.OpenAI, &p.Anthropic, &p.Google, &p.Azure, &p.Custom} {
		if s.MaxTokens == 0 {
			s.MaxTokens = DefaultMaxTokens
		}
	}
	if p.OpenAI.Endpoint == "" {
		p.OpenAI.Endpoint = DefaultOpenAIEndpoint
	}
	if p.Anthropic.Endpoint == "" {
		p.Anthropic.Endpoint = DefaultAnthropicEndpoint
	}
	if p.Anthropic.Model == "" {
		p.Anthropic.Model = DefaultAnthropicModel
	}
	if p.Anthropic.APIVersion == "" {
		p.Anthropic.APIVersion = DefaultAnthropicVersion
	}
	if p.Google.Endpoint == "" {
		p.Google.Endpoint = DefaultGoogleEndpoint
	}
	if p.Google.Model == "" {
		p.Google.Model = DefaultGoogleModel
	}
	if p.Azure.Deployment == "" {
		p.Azure.Deployment = DefaultAzureDeployment
	}
	if p.Azure.APIVersion == "" {
		p.Azure.APIVersion = DefaultAzureAPIVersion
	}
	if p.Custom.Model == "" {
		p.Custom.Model = DefaultCustomModel
	}
}

// Validate checks settings that are wrong rather than merely missing.
// Missing credentials are not a load-time error: the adapter reports them
// as a Configuration failure when that provider is actually used.
func (p *ProvidersConfig) Validate() error {
	for _, name := range ProviderNames {
		s, _ := p.Get(name)
		if s.Endpoint != "" {
			u, err := url.Parse(s.Endpoint)
			if err != nil || u.Scheme == "" || u.Host == "" {
				return fmt.Errorf("providers.%s.endpoint is not a valid URL: %q", name, s.Endpoint)
			}
		}
		if s.MaxTokens < 0 {
			return fmt.Errorf("providers.%s.max_tokens must not be negative", name)
		}
		if t := s.Temp(); t < 0 || t > 2 {
			return fmt.Errorf("providers.%s.temperature must be between 0 and 2", name)
		}
	}
	return nil
}

// Configured reports whether the provider has the credentials it needs to send a request.
func (p *ProvidersConfig) Configured(name string) bool {
	s, ok := p.Get(name)
	if !ok {
		return false
	}
	switch name {
	case ProviderAzure:
		return s.APIKey != "" && s.Endpoint != ""
	case ProviderCustom:
		return s.Endpoint != ""
	default:
		return s.APIKey != ""
	}
}
