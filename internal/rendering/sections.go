package rendering

import (
	"sort"
	"strings"

	"github.com/jonathan/cv-tailor/internal/types"
)

// contactOrder is the display order of known contact fields; others follow alphabetically
var contactOrder = []string{"email", "phone", "location", "linkedin", "website"}

func contactParts(h types.Header) []string {
	var parts []string
	seen := make(map[string]bool)
	for _, key := range contactOrder {
		seen[key] = true
		if v := strings.TrimSpace(h.Contact[key]); v != "" {
			parts = append(parts, v)
		}
	}

	var rest []string
	for key := range h.Contact {
		if !seen[key] {
			rest = append(rest, key)
		}
	}
	sort.Strings(rest)
	for _, key := range rest {
		if v := strings.TrimSpace(h.Contact[key]); v != "" {
			parts = append(parts, v)
		}
	}
	return parts
}

func degreeLine(edu types.TailoredEducation) string {
	switch {
	case edu.Degree != "" && edu.Field != "":
		return edu.Degree + " in " + edu.Field
	case edu.Degree != "":
		return edu.Degree
	}
	return edu.Field
}

func certificationLine(cert types.TailoredCertification) string {
	line := cert.Name
	if cert.Issuer != "" {
		line += " - " + cert.Issuer
	}
	if cert.Date != "" {
		line += " (" + cert.Date + ")"
	}
	return line
}

func experienceMeta(exp types.TailoredExperience) string {
	parts := []string{}
	if exp.Dates != "" {
		parts = append(parts, exp.Dates)
	}
	if exp.Location != "" {
		parts = append(parts, exp.Location)
	}
	return strings.Join(parts, " | ")
}

type skillGroup struct {
	label  string
	skills []string
}

func skillGroups(s types.TailoredSkills) []skillGroup {
	var groups []skillGroup
	for _, g := range []skillGroup{
		{"Core", s.Primary},
		{"Additional", s.Secondary},
		{"Tools & Technologies", s.Tools},
	} {
		if len(g.skills) > 0 {
			groups = append(groups, g)
		}
	}
	return groups
}

// letterParagraphs splits the letter's full text into paragraphs
func letterParagraphs(letter *types.CoverLetter) []string {
	if letter == nil {
		return nil
	}
	text := letter.FullText
	if strings.TrimSpace(text) == "" {
		text = strings.Join(letter.Parts(), "\n\n")
	}
	var out []string
	for _, p := range strings.Split(text, "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
