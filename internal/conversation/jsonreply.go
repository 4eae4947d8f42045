package conversation

import (
	"encoding/json"
	"errors"
	"strings"
)

var errNoJSONObject = errors.New("conversation: reply contains no JSON object")

// decodeJSONReply unmarshals the first {...} span of a model reply into v.
// Models sometimes wrap JSON in prose or markdown fences.
func decodeJSONReply(text string, v any) error {
	content := strings.TrimSpace(text)
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return errNoJSONObject
	}
	return json.Unmarshal([]byte(content[start:end+1]), v)
}
