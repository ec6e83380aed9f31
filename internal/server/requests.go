package server

import (
	"github.com/jonathan/cv-tailor/internal/types"
)

// TailorRequest is the body of POST /api/tailor and /api/tailor/stream. Either
// job_description or job_url must be given.
type TailorRequest struct {
	JobDescription string         `json:"job_description" validate:"omitempty,min=50"`
	JobURL         string         `json:"job_url" validate:"omitempty,url"`
	OriginalCV     string         `json:"original_cv" validate:"required,min=100"`
	Options        OptionsRequest `json:"options"`
}

// OptionsRequest mirrors types.TailorOptions with request validation
type OptionsRequest struct {
	Strictness          string `json:"strictness_level" validate:"omitempty,oneof=conservative moderate aggressive"`
	GenerateCoverLetter *bool  `json:"generate_cover_letter"`
	OutputFormat        string `json:"output_format" validate:"omitempty,oneof=markdown docx pdf json latex"`
	UserNotes           string `json:"user_notes" validate:"max=2000"`
}

// tailorOptions applies defaults; an unset cover letter flag means true
func (o OptionsRequest) tailorOptions(defaultStrictness types.Strictness) types.TailorOptions {
	opts := types.TailorOptions{
		Strictness:          types.Strictness(o.Strictness),
		GenerateCoverLetter: true,
		OutputFormat:        types.OutputFormat(o.OutputFormat),
		UserNotes:           o.UserNotes,
	}
	if o.GenerateCoverLetter != nil {
		opts.GenerateCoverLetter = *o.GenerateCoverLetter
	}
	if opts.Strictness == "" {
		opts.Strictness = defaultStrictness
	}
	return opts.WithDefaults()
}

// ExtractJobRequest is the body of POST /api/extract-job
type ExtractJobRequest struct {
	JobDescription string `json:"job_description" validate:"omitempty,min=50"`
	JobURL         string `json:"job_url" validate:"omitempty,url"`
}

// ExtractCVRequest is the body of POST /api/extract-cv
type ExtractCVRequest struct {
	CVText string `json:"cv_text" validate:"required,min=100"`
}

// ExportRequest is the body of POST /api/export/{format}: a finished result
type ExportRequest struct {
	TailoredCV  types.TailoredCV   `json:"tailored_cv"`
	CoverLetter *types.CoverLetter `json:"cover_letter"`
}
