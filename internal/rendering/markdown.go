package rendering

import (
	"fmt"
	"strings"

	"github.com/jonathan/cv-tailor/internal/types"
)

// Markdown renders the CV, followed by the cover letter when one is given
func Markdown(cv types.TailoredCV, letter *types.CoverLetter) string {
	var b strings.Builder
	line := func(format string, args ...any) {
		fmt.Fprintf(&b, format, args...)
		b.WriteString("\n")
	}

	line("# %s", cv.Header.Name)
	if cv.Header.Title != "" {
		line("**%s**", cv.Header.Title)
	}
	line("")
	if parts := contactParts(cv.Header); len(parts) > 0 {
		line("%s", strings.Join(parts, " | "))
		line("")
	}

	if cv.Summary != "" {
		line("## Summary")
		line("%s", cv.Summary)
		line("")
	}

	if len(cv.Experience) > 0 {
		line("## Experience")
		line("")
		for _, exp := range cv.Experience {
			line("### %s", exp.Title)
			if meta := experienceMeta(exp); meta != "" {
				line("**%s** | %s", exp.Company, meta)
			} else {
				line("**%s**", exp.Company)
			}
			line("")
			for _, bullet := range exp.Bullets {
				line("- %s", bullet.Text)
			}
			line("")
		}
	}

	if groups := skillGroups(cv.Skills); len(groups) > 0 {
		line("## Skills")
		line("")
		for _, g := range groups {
			line("**%s:** %s", g.label, strings.Join(g.skills, ", "))
		}
		line("")
	}

	if len(cv.Education) > 0 {
		line("## Education")
		line("")
		for _, edu := range cv.Education {
			if edu.Year != "" {
				line("**%s** (%s)", degreeLine(edu), edu.Year)
			} else {
				line("**%s**", degreeLine(edu))
			}
			line("%s", edu.Institution)
			for _, h := range edu.Highlights {
				line("- %s", h)
			}
			line("")
		}
	}

	if len(cv.Certifications) > 0 {
		line("## Certifications")
		line("")
		for _, cert := range cv.Certifications {
			line("- %s", certificationLine(cert))
		}
		line("")
	}

	if len(cv.Projects) > 0 {
		line("## Projects")
		line("")
		for _, p := range cv.Projects {
			line("### %s", p.Name)
			line("%s", p.Description)
			if len(p.Technologies) > 0 {
				line("*Technologies: %s*", strings.Join(p.Technologies, ", "))
			}
			line("")
		}
	}

	if paragraphs := letterParagraphs(letter); len(paragraphs) > 0 {
		line("---")
		line("")
		line("# Cover Letter")
		line("")
		line("%s", strings.Join(paragraphs, "\n\n"))
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}
