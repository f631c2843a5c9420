package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "plain JSON",
			input:    `{"causa_raiz_predicha": "Red"}`,
			expected: `{"causa_raiz_predicha": "Red"}`,
		},
		{
			name:     "JSON in markdown code block",
			input:    "Análisis:\n```json\n{\"causa_raiz_predicha\": \"Red\"}\n```\nFin.",
			expected: `{"causa_raiz_predicha": "Red"}`,
		},
		{
			name:     "JSON in plain code block",
			input:    "Análisis:\n```\n{\"causa_raiz_predicha\": \"Red\"}\n```",
			expected: `{"causa_raiz_predicha": "Red"}`,
		},
		{
			name:     "upper-case JSON tag",
			input:    "```JSON\n{\"causa_raiz_predicha\": \"Red\"}\n```",
			expected: `{"causa_raiz_predicha": "Red"}`,
		},
		{
			name:     "mixed-case tag after non-ASCII text",
			input:    "Análisis técnico:\n```Json\n{\"a\": 1}\n```",
			expected: `{"a": 1}`,
		},
		{
			name:     "json block preferred over earlier plain block",
			input:    "```\nnot this\n```\n```json\n{\"a\": 1}\n```",
			expected: `{"a": 1}`,
		},
		{
			name:     "unclosed json block",
			input:    "```json\n{\"a\": 1}\n",
			expected: `{"a": 1}`,
		},
		{
			name:     "surrounding whitespace",
			input:    "\n\n  {\"a\": 1}  \n",
			expected: `{"a": 1}`,
		},
		{
			name:     "no JSON",
			input:    "No JSON here",
			expected: "No JSON here",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExtractJSON(tt.input))
		})
	}
}
