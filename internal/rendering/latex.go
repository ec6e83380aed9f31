package rendering

import (
	_ "embed"
	"strings"
	"text/template"

	"github.com/jonathan/cv-tailor/internal/types"
)

//go:embed templates/cv.tex
var cvTemplate string

// Template actions use << >> so they cannot collide with LaTeX braces
var latexTemplate = template.Must(template.New("cv").Delims("<<", ">>").Parse(cvTemplate))

// TemplateData is the escaped view of a CV passed to the LaTeX template
type TemplateData struct {
	Name           string
	Title          string
	Contact        string
	Summary        string
	Experience     []experienceSection
	Skills         []skillLine
	Education      []educationSection
	Certifications []string
	Projects       []projectSection
	Letter         []string
}

type experienceSection struct {
	Title   string
	Company string
	Meta    string
	Bullets []string
}

type skillLine struct {
	Label  string
	Skills string
}

type educationSection struct {
	Degree      string
	Institution string
	Year        string
	Highlights  []string
}

type projectSection struct {
	Name         string
	Description  string
	Technologies string
}

// LaTeX renders the CV and optional cover letter as a LaTeX document
func LaTeX(cv types.TailoredCV, letter *types.CoverLetter) (string, error) {
	var out strings.Builder
	if err := latexTemplate.Execute(&out, buildTemplateData(cv, letter)); err != nil {
		return "", &RenderError{Format: string(types.FormatLaTeX), Message: "failed to execute template", Cause: err}
	}
	return out.String(), nil
}

func buildTemplateData(cv types.TailoredCV, letter *types.CoverLetter) *TemplateData {
	data := &TemplateData{
		Name:    EscapeLaTeX(cv.Header.Name),
		Title:   EscapeLaTeX(cv.Header.Title),
		Contact: escapeAll(contactParts(cv.Header), ` $|$ `),
		Summary: EscapeLaTeX(cv.Summary),
	}

	for _, exp := range cv.Experience {
		section := experienceSection{
			Title:   EscapeLaTeX(exp.Title),
			Company: EscapeLaTeX(exp.Company),
			Meta:    EscapeLaTeX(experienceMeta(exp)),
		}
		for _, b := range exp.Bullets {
			section.Bullets = append(section.Bullets, EscapeLaTeX(b.Text))
		}
		data.Experience = append(data.Experience, section)
	}

	for _, g := range skillGroups(cv.Skills) {
		data.Skills = append(data.Skills, skillLine{Label: EscapeLaTeX(g.label), Skills: escapeAll(g.skills, ", ")})
	}

	for _, edu := range cv.Education {
		section := educationSection{
			Degree:      EscapeLaTeX(degreeLine(edu)),
			Institution: EscapeLaTeX(edu.Institution),
			Year:        EscapeLaTeX(edu.Year),
		}
		for _, h := range edu.Highlights {
			section.Highlights = append(section.Highlights, EscapeLaTeX(h))
		}
		data.Education = append(data.Education, section)
	}

	for _, cert := range cv.Certifications {
		data.Certifications = append(data.Certifications, EscapeLaTeX(certificationLine(cert)))
	}

	for _, p := range cv.Projects {
		data.Projects = append(data.Projects, projectSection{
			Name:         EscapeLaTeX(p.Name),
			Description:  EscapeLaTeX(p.Description),
			Technologies: escapeAll(p.Technologies, ", "),
		})
	}

	for _, p := range letterParagraphs(letter) {
		data.Letter = append(data.Letter, EscapeLaTeX(p))
	}
	return data
}

func escapeAll(values []string, sep string) string {
	escaped := make([]string, len(values))
	for i, v := range values {
		escaped[i] = EscapeLaTeX(v)
	}
	return strings.Join(escaped, sep)
}
