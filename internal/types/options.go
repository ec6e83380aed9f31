package types

// Strictness controls how far the generator may infer, reword or inject keywords
type Strictness string

// Strictness levels
const (
	StrictnessConservative Strictness = "conservative"
	StrictnessModerate     Strictness = "moderate"
	StrictnessAggressive   Strictness = "aggressive"
)

// IsValid reports whether s is a known strictness level
func (s Strictness) IsValid() bool {
	switch s {
	case StrictnessConservative, StrictnessModerate, StrictnessAggressive:
		return true
	}
	return false
}

// OutputFormat is an export format
type OutputFormat string

// Export formats
const (
	FormatMarkdown OutputFormat = "markdown"
	FormatDOCX     OutputFormat = "docx"
	FormatPDF      OutputFormat = "pdf"
	FormatJSON     OutputFormat = "json"
	FormatLaTeX    OutputFormat = "latex"
)

// IsValid reports whether f is a supported export format
func (f OutputFormat) IsValid() bool {
	switch f {
	case FormatMarkdown, FormatDOCX, FormatPDF, FormatJSON, FormatLaTeX:
		return true
	}
	return false
}

// TailorOptions configures one tailoring request
type TailorOptions struct {
	Strictness          Strictness   `json:"strictness_level"`
	GenerateCoverLetter bool         `json:"generate_cover_letter"`
	OutputFormat        OutputFormat `json:"output_format"`
	UserNotes           string       `json:"user_notes,omitempty"`
}

// DefaultTailorOptions returns moderate strictness with a cover letter and markdown output
func DefaultTailorOptions() TailorOptions {
	return TailorOptions{
		Strictness:          StrictnessModerate,
		GenerateCoverLetter: true,
		OutputFormat:        FormatMarkdown,
	}
}

// WithDefaults fills empty fields from DefaultTailorOptions
func (o TailorOptions) WithDefaults() TailorOptions {
	d := DefaultTailorOptions()
	if o.Strictness == "" {
		o.Strictness = d.Strictness
	}
	if o.OutputFormat == "" {
		o.OutputFormat = d.OutputFormat
	}
	return o
}
