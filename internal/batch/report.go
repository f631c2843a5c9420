package batch

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kamilpajak/incident-triage/pkg/triage"
)

// Report formats.
const (
	FormatYAML = "yaml"
	FormatJSON = "json"
)

// Report is the file written for a run with --report.
type Report struct {
	BatchID       string                        `json:"batch_id" yaml:"batch_id"`
	RunID         string                        `json:"run_id" yaml:"run_id"`
	Model         string                        `json:"model" yaml:"model"`
	GeneratedAt   time.Time                     `json:"generated_at" yaml:"generated_at"`
	DryRun        bool                          `json:"dry_run" yaml:"dry_run"`
	Aborted       bool                          `json:"aborted,omitempty" yaml:"aborted,omitempty"`
	Total         int                           `json:"total" yaml:"total"`
	Processed     int                           `json:"processed" yaml:"processed"`
	Failed        int                           `json:"failed" yaml:"failed"`
	LowConfidence int                           `json:"low_confidence" yaml:"low_confidence"`
	AvgLatencyMS  float64                       `json:"avg_latency_ms" yaml:"avg_latency_ms"`
	Results       []triage.ClassificationResult `json:"results" yaml:"results"`
	Errors        []RowError                    `json:"errors,omitempty" yaml:"errors,omitempty"`
}

// RowError records a record that could not be classified.
type RowError struct {
	TicketID string `json:"ticket_id" yaml:"ticket_id"`
	Row      int    `json:"row" yaml:"row"`
	Error    string `json:"error" yaml:"error"`
}

// NewReport builds the report of s.
func NewReport(s *Summary, generatedAt time.Time) Report {
	r := Report{
		BatchID:       s.BatchID,
		RunID:         s.RunID,
		Model:         s.Model,
		GeneratedAt:   generatedAt,
		DryRun:        s.DryRun,
		Aborted:       s.Aborted,
		Total:         s.Total,
		Processed:     s.Processed,
		Failed:        s.Failed,
		LowConfidence: s.LowConfidence,
		AvgLatencyMS:  s.AvgLatencyMS,
		Results:       s.Results(),
	}
	for _, o := range s.Outcomes {
		if o.Err != nil {
			r.Errors = append(r.Errors, RowError{TicketID: o.Record.TicketID, Row: o.Record.Row, Error: o.Err.Error()})
		}
	}
	return r
}

// WriteReport writes the report of s to dir/<batch id>.<format> and returns
// the path.
func WriteReport(dir, format string, s *Summary) (string, error) {
	format = strings.ToLower(format)
	var (
		data []byte
		err  error
		ext  string
	)
	report := NewReport(s, time.Now())
	switch format {
	case FormatYAML, "yml":
		data, err = yaml.Marshal(report)
		ext = ".yaml"
	case FormatJSON:
		data, err = json.MarshalIndent(report, "", "  ")
		ext = ".json"
	default:
		return "", fmt.Errorf("unknown report format %q (want yaml or json)", format)
	}
	if err != nil {
		return "", fmt.Errorf("failed to encode report: %w", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create report dir: %w", err)
	}
	path := filepath.Join(dir, s.BatchID+ext)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	return path, nil
}

// ReadReport reads a report written by WriteReport.
func ReadReport(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var r Report
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, &r)
	} else {
		err = yaml.Unmarshal(data, &r)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode report: %w", err)
	}
	return &r, nil
}
