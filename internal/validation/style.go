package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/jonathan/cv-tailor/internal/types"
)

// MaxBulletChars is the length above which a bullet is reported as too long to scan
const MaxBulletChars = 220

// ClichePhrases are filler phrases reviewers discount. They are reported, never rejected.
var ClichePhrases = []string{
	"results-driven",
	"detail-oriented",
	"team player",
	"self-starter",
	"go-getter",
	"hard-working",
	"think outside the box",
	"proven track record",
	"synergy",
	"best of breed",
	"rockstar",
	"ninja",
}

// StyleWarnings reports filler phrases and overlong bullets in cv. A phrase that already
// appears in the original CV is left alone.
func StyleWarnings(cv types.TailoredCV, facts *types.CVFacts) []string {
	var source string
	if facts != nil {
		source = strings.Join(facts.OriginalTexts(), "\n")
	}

	var warnings []string
	check := func(field, text string) {
		for _, phrase := range ClichePhrases {
			if containsTerm(text, phrase) && !containsTerm(source, phrase) {
				warnings = append(warnings, fmt.Sprintf("%s uses the filler phrase %q", field, phrase))
				break // one per field
			}
		}
	}

	check("summary", cv.Summary)
	for i, exp := range cv.Experience {
		for j, b := range exp.Bullets {
			field := fmt.Sprintf("experience[%d].bullets[%d]", i, j)
			check(field, b.Text)
			if n := utf8.RuneCountInString(b.Text); n > MaxBulletChars {
				warnings = append(warnings, fmt.Sprintf("%s has %d characters, maximum is %d", field, n, MaxBulletChars))
			}
		}
	}
	for i, p := range cv.Projects {
		check(fmt.Sprintf("projects[%d].description", i), p.Description)
	}
	return warnings
}
