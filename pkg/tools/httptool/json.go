package httptool

import (
	"bytes"
	"encoding/json"
)

// decodeJSON tries to interpret a response body as JSON; non-JSON bodies are
// not an error, they just produce no structured payload.
func decodeJSON(body []byte) (any, bool) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, false
	}
	if trimmed[0] != '{' && trimmed[0] != '[' && trimmed[0] != '"' {
		return nil, false
	}
	var decoded any
	if err := json.Unmarshal(trimmed, &decoded); err != nil {
		return nil, false
	}
	return decoded, true
}
