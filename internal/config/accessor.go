// Accessor - opaque key/value lookups for provider settings.
//
// Keys are "<provider>.<field>", e.g. "openai.api_key", "azure.deployment".
// EnvAccessor maps a key to an environment variable by upper-casing it and
// replacing dots with underscores ("openai.api_key" -> OPENAI_API_KEY).
package config

import (
	"os"
	"strconv"
	"strings"
)

// Accessor supplies configuration values by key.
type Accessor interface {
	Lookup(key string) (string, bool)
}

// MapAccessor is an in-memory Accessor.
type MapAccessor map[string]string

// Lookup implements Accessor.
func (m MapAccessor) Lookup(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

// EnvAccessor reads values from the process environment.
type EnvAccessor struct {
	Prefix string // optional, e.g. "CHAT_" -> CHAT_OPENAI_API_KEY
}

// Lookup implements Accessor.
func (e EnvAccessor) Lookup(key string) (string, bool) {
	name := e.Prefix + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
	v, ok := os.LookupEnv(name)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// ProvidersFromAccessor builds a ProvidersConfig from key/value lookups and applies defaults.
func ProvidersFromAccessor(acc Accessor) ProvidersConfig {
	var p ProvidersConfig
	p.OpenAI = settingsFromAccessor(acc, ProviderOpenAI)
	p.Anthropic = settingsFromAccessor(acc, ProviderAnthropic)
	p.Google = settingsFromAccessor(acc, ProviderGoogle)
	p.Azure = settingsFromAccessor(acc, ProviderAzure)
	p.Custom = settingsFromAccessor(acc, ProviderCustom)
	p.ApplyDefaults()
	return p
}

func settingsFromAccessor(acc Accessor, provider string) ProviderSettings {
	get := func(field string) string {
		v, _ := acc.Lookup(provider + "." + field)
		return strings.TrimSpace(v)
	}

	s := ProviderSettings{
		APIKey:     get("api_key"),
		Endpoint:   get("endpoint"),
		Model:      get("model"),
		Deployment: get("deployment"),
		APIVersion: get("api_version"),
	}
	if n, err := strconv.Atoi(get("max_tokens")); err == nil {
		s.MaxTokens = n
	}
	if f, err := strconv.ParseFloat(get("temperature"), 64); err == nil {
		s.Temperature = &f
	}
	return s
}
