package adapters

import (
	"fmt"
	"strings"
)

// SafeOpenAIModel replaces any OpenAI model identifier that is not on the allow-list.
const SafeOpenAIModel = "gpt-3.5-turbo"

// OpenAIModels is the allow-list of OpenAI model identifiers known to work
// with the chat completions endpoint.
var OpenAIModels = []string{
	"gpt-4o-mini",
	"gpt-4o",
	"gpt-4-turbo",
	"gpt-4",
	"gpt-3.5-turbo",
}

// ResolveOpenAIModel picks the model to send: the hint, else the configured
// default, validated against OpenAIModels. Empty or unknown identifiers are
// replaced by SafeOpenAIModel and note describes the substitution.
// A local substitution is preferred over a remote 400 for a bad model parameter.
func ResolveOpenAIModel(hint, configured string) (model, note string) {
	requested := strings.TrimSpace(hint)
	if requested == "" {
		requested = strings.TrimSpace(configured)
	}

	for _, m := range OpenAIModels {
		if requested == m {
			return requested, ""
		}
	}

	if requested == "" {
		return SafeOpenAIModel, fmt.Sprintf("no model configured; using %s", SafeOpenAIModel)
	}
	return SafeOpenAIModel, fmt.Sprintf("model %q is not supported; using %s", requested, SafeOpenAIModel)
}
