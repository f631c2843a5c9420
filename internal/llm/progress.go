package llm

import (
	"fmt"
	"io"
)

// Progress event types.
const (
	EventClassify = "classify" // model request started
	EventDone     = "done"     // model answered and the answer was parsed
	EventError    = "error"    // model request failed
	EventInfo     = "info"
)

// ProgressEvent represents a single progress update during a batch.
type ProgressEvent struct {
	Type      string `json:"type"`
	Ticket    string `json:"ticket,omitempty"`
	Step      int    `json:"step,omitempty"` // 1-based row being processed
	Total     int    `json:"total,omitempty"`
	Message   string `json:"message,omitempty"`
	ElapsedMS int64  `json:"elapsed_ms,omitempty"`
}

// ProgressEmitter receives progress events during classification.
type ProgressEmitter interface {
	Emit(event ProgressEvent)
}

// Emit sends ev to e if e is set.
func Emit(e ProgressEmitter, ev ProgressEvent) {
	if e != nil {
		e.Emit(ev)
	}
}

// TextEmitter formats progress events as human-readable text for CLI output.
type TextEmitter struct {
	W io.Writer
}

// Emit writes a formatted progress line to the underlying writer.
func (e *TextEmitter) Emit(ev ProgressEvent) {
	switch ev.Type {
	case EventClassify:
		fmt.Fprintf(e.W, "[%d/%d] Classifying %s...\n", ev.Step, ev.Total, ev.Ticket)
	case EventDone:
		fmt.Fprintf(e.W, "[%d/%d] %s classified (%s)\n", ev.Step, ev.Total, ev.Ticket, FormatDuration(ev.ElapsedMS))
	case EventInfo:
		fmt.Fprintf(e.W, "  %s\n", ev.Message)
	case EventError:
		fmt.Fprintf(e.W, "Error: %s\n", ev.Message)
	}
}

// FormatDuration renders milliseconds as "850ms" or "1.5s".
func FormatDuration(ms int64) string {
	if ms < 1000 {
		return fmt.Sprintf("%dms", ms)
	}
	return fmt.Sprintf("%.1fs", float64(ms)/1000)
}
