package classifier

import "strings"

const (
	fence   = "```"
	jsonTag = "json"
)

// ExtractJSON strips markdown fences from a model answer. The body of the first
// ```json block (tag matched in any case) wins; otherwise the body of the
// first plain ``` block; otherwise the whole text. The result is trimmed.
func ExtractJSON(text string) string {
	// ASCII lowering keeps byte offsets aligned with text.
	if i := strings.Index(asciiLower(text), fence+jsonTag); i >= 0 {
		return fenceBody(text[i+len(fence)+len(jsonTag):])
	}
	if i := strings.Index(text, fence); i >= 0 {
		return fenceBody(text[i+len(fence):])
	}
	return strings.TrimSpace(text)
}

// fenceBody returns s up to the closing fence, or all of s if unclosed.
func fenceBody(s string) string {
	if end := strings.Index(s, fence); end >= 0 {
		s = s[:end]
	}
	return strings.TrimSpace(s)
}

func asciiLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if 'A' <= c && c <= 'Z' {
			b[i] = c + 'a' - 'A'
		}
	}
	return string(b)
}
