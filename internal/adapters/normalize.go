package adapters

import (
	"errors"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/compresr/chat-gateway/internal/apierrors"
)

// Response extraction paths per provider shape.
const (
	pathChoiceContent   = "choices.0.message.content"
	pathAnthropicText   = "content.0.text"
	pathGoogleCandidate = "candidates.0.content.parts.0.text"
)

var errInvalidJSON = errors.New("response body is not valid JSON")

// extractText runs the navigate-or-fail sequence on a 2xx body:
//  1. decode failure      → ParseError
//  2. missing/non-string  → ApiError "invalid response structure"
//  3. blank after trimming → ApiError "empty response"
func extractText(body []byte, path string) (*Reply, *apierrors.GatewayError) {
	if !gjson.ValidBytes(body) {
		return nil, apierrors.FromDecode(errInvalidJSON)
	}

	r := gjson.GetBytes(body, path)
	if !r.Exists() || r.Type != gjson.String {
		return nil, apierrors.New(apierrors.KindAPIError, "invalid response structure")
	}

	text := strings.TrimSpace(r.Str)
	if text == "" {
		return nil, apierrors.New(apierrors.KindAPIError, "empty response")
	}
	return &Reply{Text: text}, nil
}
