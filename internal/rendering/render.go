package rendering

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/jonathan/cv-tailor/internal/types"
)

// Document is a rendered export ready to be written or served
type Document struct {
	Format      types.OutputFormat `json:"format"`
	Filename    string             `json:"filename"`
	ContentType string             `json:"content_type"`
	Data        []byte             `json:"-"`
	Pages       int                `json:"pages,omitempty"` // PDF only
}

type jsonExport struct {
	TailoredCV  types.TailoredCV   `json:"tailored_cv"`
	CoverLetter *types.CoverLetter `json:"cover_letter"`
}

var contentTypes = map[types.OutputFormat]string{
	types.FormatMarkdown: "text/markdown; charset=utf-8",
	types.FormatJSON:     "application/json",
	types.FormatLaTeX:    "application/x-tex",
	types.FormatPDF:      "application/pdf",
	types.FormatDOCX:     "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

var extensions = map[types.OutputFormat]string{
	types.FormatMarkdown: ".md",
	types.FormatJSON:     ".json",
	types.FormatLaTeX:    ".tex",
	types.FormatPDF:      ".pdf",
	types.FormatDOCX:     ".docx",
}

// Render exports cv and the optional letter in the requested format. It depends only on its
// arguments; PDF output additionally requires pdflatex.
func Render(ctx context.Context, cv types.TailoredCV, letter *types.CoverLetter, format types.OutputFormat) (*Document, error) {
	if !format.IsValid() {
		return nil, &RenderError{Format: string(format), Message: "unsupported export format"}
	}

	doc := &Document{
		Format:      format,
		Filename:    Filename(cv.Header.Name, format),
		ContentType: contentTypes[format],
	}

	switch format {
	case types.FormatMarkdown:
		doc.Data = []byte(Markdown(cv, letter))
	case types.FormatJSON:
		data, err := json.MarshalIndent(jsonExport{TailoredCV: cv, CoverLetter: letter}, "", "  ")
		if err != nil {
			return nil, &RenderError{Format: string(format), Message: "failed to marshal export", Cause: err}
		}
		doc.Data = data
	case types.FormatLaTeX:
		tex, err := LaTeX(cv, letter)
		if err != nil {
			return nil, err
		}
		doc.Data = []byte(tex)
	case types.FormatPDF:
		tex, err := LaTeX(cv, letter)
		if err != nil {
			return nil, err
		}
		pdf, err := CompileLaTeX(ctx, tex)
		if err != nil {
			return nil, err
		}
		pages, err := PageCount(pdf)
		if err != nil {
			return nil, err
		}
		doc.Data = pdf
		doc.Pages = pages
	case types.FormatDOCX:
		data, err := DOCX(cv, letter)
		if err != nil {
			return nil, err
		}
		doc.Data = data
	}
	return doc, nil
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Filename builds a download name such as "jane_doe_cv.pdf"
func Filename(name string, format types.OutputFormat) string {
	slug := strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(name), "_"), "_")
	if slug == "" {
		slug = "tailored"
	}
	return fmt.Sprintf("%s_cv%s", slug, extensions[format])
}
