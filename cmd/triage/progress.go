package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/mattn/go-isatty"

	"github.com/kamilpajak/incident-triage/internal/llm"
)

// progressEmitter is an llm.ProgressEmitter that must be closed when the
// batch ends.
type progressEmitter interface {
	llm.ProgressEmitter
	Close()
}

// newProgress animates a spinner on terminals and falls back to plain lines
// for pipes and files.
func newProgress(w io.Writer) progressEmitter {
	if f, ok := w.(*os.File); ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		return newSpinnerEmitter(f)
	}
	return textProgress{&llm.TextEmitter{W: w}}
}

type textProgress struct {
	*llm.TextEmitter
}

func (textProgress) Close() {}

// spinnerEmitter shows a spinner while a model call is in flight.
type spinnerEmitter struct {
	s    *spinner.Spinner
	text *llm.TextEmitter
}

func newSpinnerEmitter(w io.Writer) *spinnerEmitter {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(w))
	return &spinnerEmitter{s: s, text: &llm.TextEmitter{W: w}}
}

func (e *spinnerEmitter) Emit(ev llm.ProgressEvent) {
	if ev.Type == llm.EventClassify {
		e.s.Suffix = fmt.Sprintf(" [%d/%d] Classifying %s...", ev.Step, ev.Total, ev.Ticket)
		e.s.Start()
		return
	}
	e.s.Stop()
	e.text.Emit(ev)
}

func (e *spinnerEmitter) Close() {
	e.s.Stop()
}
