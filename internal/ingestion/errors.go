package ingestion

import "fmt"

// UnsupportedTypeError rejects a file whose type cannot be parsed
type UnsupportedTypeError struct {
	Filename string
	MimeType string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("unsupported file type for %q (%s): expected .pdf, .docx, .txt or .md", e.Filename, e.MimeType)
}

// ParseError means a file of a supported type could not be read
type ParseError struct {
	Filename string
	Format   Format
	Message  string
	Cause    error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("failed to parse %s file %q: %s: %v", e.Format, e.Filename, e.Message, e.Cause)
	}
	return fmt.Sprintf("failed to parse %s file %q: %s", e.Format, e.Filename, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}
