package tokens

import (
	"strings"
	"testing"
)

func TestCount(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		minTokens int
		maxTokens int
	}{
		{
			name:      "empty string",
			text:      "",
			minTokens: 0,
			maxTokens: 0,
		},
		{
			name:      "single word",
			text:      "hello",
			minTokens: 1,
			maxTokens: 2,
		},
		{
			name:      "simple sentence",
			text:      "The quick brown fox jumps over the lazy dog.",
			minTokens: 8,
			maxTokens: 12,
		},
		{
			name:      "longer prompt",
			text:      strings.Repeat("This is a test sentence. ", 100),
			minTokens: 500,
			maxTokens: 700,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Count(tt.text)
			if got < tt.minTokens || got > tt.maxTokens {
				t.Errorf("Count() = %d, want between %d and %d",
					got, tt.minTokens, tt.maxTokens)
			}
		})
	}
}

func TestCount_Consistency(t *testing.T) {
	// Budget enforcement needs a stable count per prompt.
	text := "What is the capital of France, and why is it Paris?"

	first := Count(text)
	for i := 0; i < 10; i++ {
		if got := Count(text); got != first {
			t.Errorf("Count() inconsistent: got %d, want %d", got, first)
		}
	}
}
