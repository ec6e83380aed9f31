// Package rendering exports a tailored CV and cover letter as markdown, JSON, LaTeX, PDF or DOCX.
package rendering

import "fmt"

// RenderError is a failure producing one export format. A nil Cause means the request
// itself was bad, such as an unknown format.
type RenderError struct {
	Format  string
	Message string
	Cause   error
}

func (e *RenderError) Error() string {
	msg := fmt.Sprintf("rendering %s: %s", e.Format, e.Message)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *RenderError) Unwrap() error { return e.Cause }

// CompilationError is a pdflatex failure; LogOutput carries the compiler transcript
type CompilationError struct {
	Message   string
	LogOutput string
	Cause     error
}

func (e *CompilationError) Error() string {
	if e.Cause == nil {
		return "pdflatex: " + e.Message
	}
	return fmt.Sprintf("pdflatex: %s: %v", e.Message, e.Cause)
}

func (e *CompilationError) Unwrap() error { return e.Cause }
