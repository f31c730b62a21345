package modelout

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestExtractJSON(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want any
	}{
		{
			name: "fenced",
			in:   "```json\n{\"severity\": \"high\", \"score\": 7}\n```",
			want: map[string]any{"severity": "high", "score": float64(7)},
		},
		{
			name: "bare",
			in:   `{"ok": true}`,
			want: map[string]any{"ok": true},
		},
		{
			name: "fenced array",
			in:   "```json\n[1, 2]\n```",
			want: []any{float64(1), float64(2)},
		},
		{
			name: "fenced number",
			in:   "```json\n5\n```",
			want: float64(5),
		},
		{
			name: "fenced string",
			in:   "```json\n\"text\"\n```",
			want: "text",
		},
		{
			name: "fenced bool",
			in:   "```json\ntrue\n```",
			want: true,
		},
		{
			name: "fence with surrounding prose",
			in:   "Here is the analysis:\n```json\n{\"tweet_1\": {\"relevance\": 8}}\n```\nLet me know if you need more.",
			want: map[string]any{"error": "failed to parse model output as JSON: invalid character 'H' looking for beginning of value"},
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if diff := cmp.Diff(c.want, ExtractJSON(c.in)); diff != "" {
				t.Errorf("ExtractJSON mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestExtractJSONNotJSON(t *testing.T) {
	v := ExtractJSON("I could not produce the analysis.")
	got, ok := v.(map[string]any)
	if !ok {
		t.Fatalf("want error map, got %T", v)
	}
	if _, ok := got["error"]; !ok {
		t.Errorf("want error key, got %v", got)
	}
}

func TestExtractJSONStripsFencesAnywhere(t *testing.T) {
	// Fence markers are removed even inside string values. Documented
	// behavior: the stripping is positional-blind.
	got, ok := ExtractJSON("{\"note\": \"```json fences vanish\"}").(map[string]any)
	if !ok {
		t.Fatal("want object result")
	}
	if got["note"] != " fences vanish" {
		t.Errorf("note = %q, want fence marker stripped from the value", got["note"])
	}
}
