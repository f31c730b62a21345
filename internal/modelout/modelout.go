// Package modelout parses structured payloads out of model text output.
package modelout

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExtractJSON pulls a JSON value out of model output that may be wrapped in
// markdown code fences. The fence markers are stripped wherever they appear
// in the text, not just at the edges; models occasionally emit them
// mid-response. Any valid JSON value round-trips, including arrays and
// scalars. A payload that still fails to parse is reported as a value with an
// "error" key rather than an error, so agent flows that feed the result
// straight back to the model keep moving.
func ExtractJSON(text string) any {
	cleaned := strings.ReplaceAll(text, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	cleaned = strings.TrimSpace(cleaned)

	var out any
	if err := json.Unmarshal([]byte(cleaned), &out); err != nil {
		return map[string]any{
			"error": fmt.Sprintf("failed to parse model output as JSON: %v", err),
		}
	}
	return out
}
