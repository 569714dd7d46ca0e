package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validYAML = `
server:
  port: 18090
  read_timeout: 10s
  write_timeout: 60s
gateway:
  timeout: 20s
providers:
  openai:
    api_key: ${TEST_OPENAI_KEY}
    model: gpt-4o-mini
  anthropic:
    api_key: ${TEST_ANTHROPIC_KEY:-fallback-key}
  azure:
    api_key: az-key
    endpoint: https://example.openai.azure.com
    deployment: chat-prod
  custom:
    endpoint: http://localhost:11434/v1/chat/completions
    extra_body:
      top_p: 0.9
monitoring:
  log_level: debug
`

func TestLoadFromBytes(t *testing.T) {
	t.Setenv("TEST_OPENAI_KEY", "sk-test")

	cfg, err := LoadFromBytes([]byte(validYAML))
	require.NoError(t, err)

	assert.Equal(t, 18090, cfg.Server.Port)
	assert.Equal(t, 20*time.Second, cfg.Gateway.Timeout)
	assert.Equal(t, ProviderOpenAI, cfg.Gateway.DefaultProvider)
	assert.Equal(t, "sk-test", cfg.Providers.OpenAI.APIKey)
	assert.Equal(t, "fallback-key", cfg.Providers.Anthropic.APIKey)
	assert.Equal(t, DefaultAnthropicModel, cfg.Providers.Anthropic.Model)
	assert.Equal(t, DefaultAnthropicVersion, cfg.Providers.Anthropic.APIVersion)
	assert.Equal(t, "chat-prod", cfg.Providers.Azure.Deployment)
	assert.Equal(t, DefaultAzureAPIVersion, cfg.Providers.Azure.APIVersion)
	assert.Equal(t, DefaultMaxTokens, cfg.Providers.Google.MaxTokens)
	assert.Equal(t, DefaultTemperature, cfg.Providers.Google.Temp())
	assert.Equal(t, 0.9, cfg.Providers.Custom.ExtraBody["top_p"])
	assert.Equal(t, "memory", cfg.Store.Type)
}

func TestLoadFromBytes_DefaultTimeout(t *testing.T) {
	cfg, err := LoadFromBytes([]byte(`
server: {port: 8080, read_timeout: 1s, write_timeout: 1s}
`))
	require.NoError(t, err)
	assert.Equal(t, DefaultTimeout, cfg.Gateway.Timeout)
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"missing port", `server: {read_timeout: 1s, write_timeout: 1s}`, "server.port is required"},
		{"bad port", `server: {port: 70000, read_timeout: 1s, write_timeout: 1s}`, "invalid server.port"},
		{"missing read timeout", `server: {port: 80, write_timeout: 1s}`, "server.read_timeout is required"},
		{"sqlite without path", `
server: {port: 80, read_timeout: 1s, write_timeout: 1s}
store: {type: sqlite}`, "store.path is required"},
		{"unknown store", `
server: {port: 80, read_timeout: 1s, write_timeout: 1s}
store: {type: redis}`, "unknown store.type"},
		{"bad endpoint", `
server: {port: 80, read_timeout: 1s, write_timeout: 1s}
providers: {custom: {endpoint: "not a url"}}`, "providers.custom.endpoint"},
		{"bad temperature", `
server: {port: 80, read_timeout: 1s, write_timeout: 1s}
providers: {openai: {temperature: 3}}`, "providers.openai.temperature"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromBytes([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_File(t *testing.T) {
	_, err := Load("")
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`server: {port: 80, read_timeout: 1s, write_timeout: 1s}`), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 80, cfg.Server.Port)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CHAT_GATEWAY_TELEMETRY_LOG", "/tmp/telemetry.jsonl")

	cfg, err := LoadFromBytes([]byte(`server: {port: 80, read_timeout: 1s, write_timeout: 1s}`))
	require.NoError(t, err)
	assert.True(t, cfg.Monitoring.TelemetryEnabled)
	assert.Equal(t, "/tmp/telemetry.jsonl", cfg.Monitoring.TelemetryPath)
}

func TestProvidersFromAccessor(t *testing.T) {
	acc := MapAccessor{
		"openai.api_key":       "sk-1",
		"azure.api_key":        "az",
		"azure.endpoint":       "https://x.openai.azure.com",
		"azure.deployment":     "my-deploy",
		"google.temperature":   "0.2",
		"anthropic.max_tokens": "256",
	}

	p := ProvidersFromAccessor(acc)
	assert.Equal(t, "sk-1", p.OpenAI.APIKey)
	assert.Equal(t, "my-deploy", p.Azure.Deployment)
	assert.Equal(t, 0.2, p.Google.Temp())
	assert.Equal(t, 256, p.Anthropic.MaxTokens)
	assert.Equal(t, DefaultGoogleModel, p.Google.Model)

	assert.True(t, p.Configured(ProviderOpenAI))
	assert.True(t, p.Configured(ProviderAzure))
	assert.False(t, p.Configured(ProviderAnthropic))
	assert.False(t, p.Configured(ProviderCustom))
	assert.False(t, p.Configured("mystery"))
}

func TestEnvAccessor(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "from-env")
	t.Setenv("CHAT_AZURE_DEPLOYMENT", "prefixed")

	v, ok := EnvAccessor{}.Lookup("openai.api_key")
	assert.True(t, ok)
	assert.Equal(t, "from-env", v)

	v, ok = EnvAccessor{Prefix: "CHAT_"}.Lookup("azure.deployment")
	assert.True(t, ok)
	assert.Equal(t, "prefixed", v)

	_, ok = EnvAccessor{}.Lookup("nothing.here")
	assert.False(t, ok)
}
