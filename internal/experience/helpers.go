package experience

import (
	"math"
	"strings"

	"github.com/jonathan/cv-tailor/internal/types"
)

// TotalYears sums experience durations, rounded to one decimal
func TotalYears(facts *types.CVFacts) float64 {
	months := 0
	for _, exp := range facts.Experience {
		if exp.DurationMonths != nil {
			months += *exp.DurationMonths
		}
	}
	return math.Round(float64(months)/12*10) / 10
}

// RelevantYears sums the durations of experiences whose title or bullets mention any keyword,
// rounded to one decimal
func RelevantYears(facts *types.CVFacts, keywords []string) float64 {
	if len(keywords) == 0 {
		return 0
	}
	months := 0
	for _, exp := range facts.Experience {
		if exp.DurationMonths == nil {
			continue
		}
		if MentionsAny(exp, keywords) {
			months += *exp.DurationMonths
		}
	}
	return math.Round(float64(months)/12*10) / 10
}

func experienceText(exp types.Experience) string {
	parts := []string{exp.Title}
	for _, r := range exp.Responsibilities {
		parts = append(parts, r.OriginalText)
		parts = append(parts, r.ExtractedFacts.Technologies...)
	}
	for _, a := range exp.Achievements {
		parts = append(parts, a.OriginalText)
	}
	return strings.ToLower(strings.Join(parts, " \n "))
}

// MentionsAny reports whether the experience's title or bullets mention any keyword,
// case-insensitively
func MentionsAny(exp types.Experience, keywords []string) bool {
	lowerText := experienceText(exp)
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" && strings.Contains(lowerText, kw) {
			return true
		}
	}
	return false
}

// AllSkills returns explicit and inferred skills plus technologies named in responsibilities
// and projects, deduplicated case-insensitively in that order
func AllSkills(facts *types.CVFacts) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(s string) {
		key := strings.ToLower(strings.TrimSpace(s))
		if key == "" || seen[key] {
			return
		}
		seen[key] = true
		out = append(out, strings.TrimSpace(s))
	}

	for _, s := range facts.Skills.ExplicitlyListed {
		add(s)
	}
	for _, s := range facts.Skills.InferredFromExperience {
		add(s.Skill)
	}
	for _, exp := range facts.Experience {
		for _, r := range exp.Responsibilities {
			for _, tech := range r.ExtractedFacts.Technologies {
				add(tech)
			}
		}
	}
	for _, p := range facts.Projects {
		for _, tech := range p.Technologies {
			add(tech)
		}
	}
	return out
}

// Corpus returns the lower-cased text of every original sentence, title, company and stated
// skill, for substring grounding checks. Inferred skills are left out.
func Corpus(facts *types.CVFacts) string {
	parts := append([]string(nil), facts.OriginalTexts()...)
	for _, exp := range facts.Experience {
		parts = append(parts, exp.Company, exp.Title)
	}
	inferred := make(map[string]bool)
	for _, s := range facts.Skills.InferredFromExperience {
		inferred[strings.ToLower(strings.TrimSpace(s.Skill))] = true
	}
	for _, s := range AllSkills(facts) {
		if !inferred[strings.ToLower(s)] || containsSkill(facts.Skills.ExplicitlyListed, s) {
			parts = append(parts, s)
		}
	}
	for _, e := range facts.Education {
		parts = append(parts, e.Institution, e.Degree, e.Field)
	}
	for _, c := range facts.Certifications {
		parts = append(parts, c.Name, c.Issuer)
	}
	for _, p := range facts.Projects {
		parts = append(parts, p.Name)
	}
	return strings.ToLower(strings.Join(parts, "\n"))
}

// MostRecentTitle returns the title of the first listed experience, or ""
func MostRecentTitle(facts *types.CVFacts) string {
	if len(facts.Experience) == 0 {
		return ""
	}
	return facts.Experience[0].Title
}

func containsSkill(skills []string, skill string) bool {
	for _, s := range skills {
		if strings.EqualFold(strings.TrimSpace(s), skill) {
			return true
		}
	}
	return false
}
