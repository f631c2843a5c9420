package triage

// Excerpt shortens s to at most max runes, marking the cut with "...".
func Excerpt(s string, max int) string {
	runes := []rune(s)
	if max <= 0 || len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}

// TopKeywords returns at most n detected keywords in model order.
func (r ClassificationResult) TopKeywords(n int) []string {
	if n < 0 || len(r.Keywords) <= n {
		return r.Keywords
	}
	return r.Keywords[:n]
}

// LowConfidence reports whether the result falls below threshold.
func (r ClassificationResult) LowConfidence(threshold float64) bool {
	return r.Confidence < threshold
}
