// Package triage holds the incident and classification types shared by the
// loader, the classification chain and the persistence layer.
package triage

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Sentinel labels for classifications that did not produce a usable answer.
const (
	LabelParseError = "Error de Procesamiento"
	LabelError      = "Error"
	LabelUnknown    = "Desconocido"

	// ModelVersionError marks results produced without a model response.
	ModelVersionError = "error"
)

// Response keys expected from the model.
const (
	KeyRootCause    = "causa_raiz_predicha"
	KeyConfidence   = "confianza"
	KeyReasoning    = "razonamiento"
	KeyKeywords     = "keywords_detectadas"
	KeyAlternatives = "causas_alternativas"
)

// IncidentRecord is one ticket read from the input file.
type IncidentRecord struct {
	TicketID  string    `json:"ticket_id" yaml:"ticket_id"`
	Summary   string    `json:"resumen" yaml:"resumen"`
	Notes     string    `json:"notas" yaml:"notas"`
	CreatedAt time.Time `json:"fecha_creacion" yaml:"fecha_creacion"`
	Row       int       `json:"-" yaml:"-"` // 0-based data row after the header, blank rows included
}

// AlternativeCause is a secondary root cause suggested by the model.
type AlternativeCause struct {
	Cause       string  `json:"causa" yaml:"causa"`
	Probability float64 `json:"probabilidad" yaml:"probabilidad"`
}

// ClassificationResult is the outcome of one classification attempt. Failed
// attempts still produce a complete value carrying a sentinel label.
type ClassificationResult struct {
	TicketID     string             `json:"ticket_id" yaml:"ticket_id"`
	RootCause    string             `json:"causa_raiz_predicha" yaml:"causa_raiz_predicha"`
	Confidence   float64            `json:"confianza" yaml:"confianza"` // nominally 0.0-1.0, not clamped
	Reasoning    string             `json:"razonamiento" yaml:"razonamiento"`
	Keywords     []string           `json:"keywords_detectadas" yaml:"keywords_detectadas"`
	Alternatives []AlternativeCause `json:"causas_alternativas" yaml:"causas_alternativas"`
	ProcessingMS int64              `json:"tiempo_procesamiento_ms" yaml:"tiempo_procesamiento_ms"`
	ModelVersion string             `json:"modelo_version" yaml:"modelo_version"`
}

// IsError reports whether the result carries one of the sentinel labels.
func (r ClassificationResult) IsError() bool {
	return r.RootCause == LabelParseError || r.RootCause == LabelError
}

// ParseErrorResult is returned when the model answered but the answer could
// not be decoded.
func ParseErrorResult(ticketID string, err error, elapsed time.Duration, model string) ClassificationResult {
	return ClassificationResult{
		TicketID:     ticketID,
		RootCause:    LabelParseError,
		Confidence:   0.0,
		Reasoning:    fmt.Sprintf("Error al parsear respuesta del modelo: %v", err),
		Keywords:     []string{},
		Alternatives: []AlternativeCause{},
		ProcessingMS: elapsed.Milliseconds(),
		ModelVersion: model,
	}
}

// ErrorResult is the minimal result substituted when a classification failed
// outright.
func ErrorResult(ticketID string, err error) ClassificationResult {
	return ClassificationResult{
		TicketID:     ticketID,
		RootCause:    LabelError,
		Confidence:   0.0,
		Reasoning:    fmt.Sprintf("Error: %v", err),
		Keywords:     []string{},
		Alternatives: []AlternativeCause{},
		ProcessingMS: 0,
		ModelVersion: ModelVersionError,
	}
}

// DecodeFields builds a result from a decoded JSON object. Every field is
// optional: a missing or mistyped field falls back to its zero value (the label
// falls back to LabelUnknown) instead of failing the whole decode.
func DecodeFields(ticketID string, fields map[string]any) ClassificationResult {
	r := ClassificationResult{
		TicketID:     ticketID,
		RootCause:    stringArg(fields, KeyRootCause),
		Confidence:   floatArg(fields, KeyConfidence),
		Reasoning:    stringArg(fields, KeyReasoning),
		Keywords:     stringsArg(fields, KeyKeywords),
		Alternatives: []AlternativeCause{},
	}
	if r.RootCause == "" {
		r.RootCause = LabelUnknown
	}

	if raw, ok := fields[KeyAlternatives].([]any); ok {
		for _, item := range raw {
			if m, ok := item.(map[string]any); ok {
				r.Alternatives = append(r.Alternatives, AlternativeCause{
					Cause:       stringArg(m, "causa"),
					Probability: floatArg(m, "probabilidad"),
				})
			}
		}
	}
	return r
}

// stringArg extracts a string, returning "" if absent or not a string.
func stringArg(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

// floatArg extracts a number. Numeric strings such as "0.9" are accepted.
func floatArg(args map[string]any, key string) float64 {
	switch v := args[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

// stringsArg extracts a list of strings, skipping non-string entries.
func stringsArg(args map[string]any, key string) []string {
	out := []string{}
	raw, ok := args[key].([]any)
	if !ok {
		return out
	}
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
