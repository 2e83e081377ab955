package vision

import (
	"strings"
	"testing"
)

func TestExtractionPrompt(t *testing.T) {
	// The instruction protocol the sanitizer depends on: flat JSON object,
	// no prose, empty object fallback, full token domain.
	checks := []struct {
		name string
		want string
	}{
		{"asks for JSON only", "Respond ONLY with a JSON object"},
		{"empty object fallback", "respond: {}"},
		{"no prose", "only the raw JSON"},
		{"multiple-choice tokens", "a, b, c, d, e"},
		{"true/false tokens", "v (true) or f (false)"},
	}

	for _, tt := range checks {
		t.Run(tt.name, func(t *testing.T) {
			if !strings.Contains(extractionPrompt, tt.want) {
				t.Errorf("prompt should contain %q", tt.want)
			}
		})
	}
}

func TestNewGeminiRequiresKey(t *testing.T) {
	if _, err := NewGemini(t.Context(), "", "gemini-1.5-flash"); err == nil {
		t.Error("expected an error for an empty API key")
	}
	if _, err := NewGemini(t.Context(), "   ", "gemini-1.5-flash"); err == nil {
		t.Error("expected an error for a blank API key")
	}
}
