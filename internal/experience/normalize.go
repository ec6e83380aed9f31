package experience

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jonathan/cv-tailor/internal/parsing"
	"github.com/jonathan/cv-tailor/internal/types"
	"github.com/jonathan/cv-tailor/internal/validation"
)

// minEvidenceLength guards substring matching of evidence sentences against trivial fragments
const minEvidenceLength = 12

// Normalize applies all post-extraction steps to facts in place. rawText is the CV the facts
// were extracted from; now resolves "present" end dates.
func Normalize(facts *types.CVFacts, rawText string, now time.Time) error {
	if facts == nil {
		return &NormalizationError{Message: "no CV facts"}
	}

	AssignExperienceIDs(facts)
	ComputeDurations(facts, now)
	NormalizeSkills(facts)
	FilterInferredSkills(facts, rawText)
	NormalizeAchievements(facts)
	FilterSummaryClaims(facts)
	normalizeCertifications(facts)
	ensureSlices(facts)
	return nil
}

// AssignExperienceIDs gives every experience a unique ID of the form exp_N
func AssignExperienceIDs(facts *types.CVFacts) {
	used := make(map[string]bool, len(facts.Experience))
	next := 1
	for i := range facts.Experience {
		id := strings.TrimSpace(facts.Experience[i].ID)
		if id == "" || used[id] || strings.Contains(id, "/") {
			for {
				id = fmt.Sprintf("exp_%d", next)
				next++
				if !used[id] {
					break
				}
			}
		}
		used[id] = true
		facts.Experience[i].ID = id
	}
}

// ComputeDurations fills DurationMonths from start and end dates where it is missing
func ComputeDurations(facts *types.CVFacts, now time.Time) {
	for i := range facts.Experience {
		exp := &facts.Experience[i]
		if exp.DurationMonths != nil {
			continue
		}
		if months, ok := durationMonths(exp.StartDate, exp.EndDate, now); ok {
			exp.DurationMonths = &months
		}
	}
}

func durationMonths(start, end string, now time.Time) (int, bool) {
	sy, sm, ok := parseYearMonth(start)
	if !ok {
		return 0, false
	}
	var ey, em int
	switch strings.ToLower(strings.TrimSpace(end)) {
	case "present", "current", "now", "ongoing":
		ey, em = now.Year(), int(now.Month())
	default:
		if ey, em, ok = parseYearMonth(end); !ok {
			return 0, false
		}
	}
	months := (ey-sy)*12 + (em - sm)
	if months < 0 {
		return 0, false
	}
	return months, true
}

// parseYearMonth accepts "YYYY-MM" and "YYYY"
func parseYearMonth(s string) (year, month int, ok bool) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse("2006-01", s); err == nil {
		return t.Year(), int(t.Month()), true
	}
	if len(s) == 4 {
		if y, err := strconv.Atoi(s); err == nil {
			return y, 1, true
		}
	}
	return 0, 0, false
}

// NormalizeSkills canonicalizes explicitly listed skills and technologies and removes duplicates
func NormalizeSkills(facts *types.CVFacts) {
	facts.Skills.ExplicitlyListed = parsing.NormalizeKeywords(facts.Skills.ExplicitlyListed)
	for i := range facts.Experience {
		for j := range facts.Experience[i].Responsibilities {
			ef := &facts.Experience[i].Responsibilities[j].ExtractedFacts
			ef.Technologies = parsing.NormalizeKeywords(ef.Technologies)
		}
	}
	for i := range facts.Projects {
		facts.Projects[i].Technologies = parsing.NormalizeKeywords(facts.Projects[i].Technologies)
	}
}

// FilterInferredSkills keeps only inferred skills whose evidence is a sentence of the CV (or an
// experience ID) and that do not duplicate an explicitly listed skill
func FilterInferredSkills(facts *types.CVFacts, rawText string) {
	explicit := make(map[string]bool, len(facts.Skills.ExplicitlyListed))
	for _, s := range facts.Skills.ExplicitlyListed {
		explicit[strings.ToLower(s)] = true
	}

	sentences := make([]string, 0)
	for _, t := range facts.OriginalTexts() {
		sentences = append(sentences, foldText(t))
	}
	raw := foldText(rawText)

	kept := make([]types.InferredSkill, 0, len(facts.Skills.InferredFromExperience))
	seen := make(map[string]bool)
	for _, inf := range facts.Skills.InferredFromExperience {
		name := parsing.NormalizeSkillName(inf.Skill)
		key := strings.ToLower(name)
		if name == "" || explicit[key] || seen[key] {
			continue
		}
		if !evidenceExists(facts, inf.EvidenceSource, sentences, raw) {
			continue
		}
		seen[key] = true
		kept = append(kept, types.InferredSkill{Skill: name, EvidenceSource: strings.TrimSpace(inf.EvidenceSource)})
	}
	facts.Skills.InferredFromExperience = kept
}

func evidenceExists(facts *types.CVFacts, evidence string, sentences []string, raw string) bool {
	evidence = strings.TrimSpace(evidence)
	if evidence == "" {
		return false
	}
	if _, ok := facts.FindExperience(evidence); ok {
		return true
	}
	folded := foldText(evidence)
	for _, s := range sentences {
		if s == folded {
			return true
		}
		if len(folded) >= minEvidenceLength && strings.Contains(s, folded) {
			return true
		}
	}
	return len(folded) >= minEvidenceLength && strings.Contains(raw, folded)
}

// NormalizeAchievements recomputes Quantified from the text and drops metrics whose numbers
// are not in the achievement sentence
func NormalizeAchievements(facts *types.CVFacts) {
	for i := range facts.Experience {
		for j := range facts.Experience[i].Achievements {
			a := &facts.Experience[i].Achievements[j]
			numbers := validation.NewNumberSet(a.OriginalText)
			a.Quantified = len(numbers) > 0
			if a.Metrics == nil {
				continue
			}
			values := validation.ExtractNumbers(a.Metrics.Value)
			if !a.Quantified || len(values) == 0 || len(numbers.Missing(a.Metrics.Value)) > 0 {
				a.Metrics = nil
			}
		}
	}
}

// FilterSummaryClaims drops summary claims that carry numbers the summary does not state
func FilterSummaryClaims(facts *types.CVFacts) {
	summary := facts.ProfessionalSummary
	if summary == nil {
		return
	}
	numbers := validation.NewNumberSet(summary.OriginalText)
	kept := make([]string, 0, len(summary.ExtractedClaims))
	for _, claim := range summary.ExtractedClaims {
		if strings.TrimSpace(claim) == "" || len(numbers.Missing(claim)) > 0 {
			continue
		}
		kept = append(kept, claim)
	}
	summary.ExtractedClaims = kept
}

func normalizeCertifications(facts *types.CVFacts) {
	for i := range facts.Certifications {
		c := &facts.Certifications[i]
		c.Name = strings.TrimSpace(c.Name)
		switch c.Status {
		case types.CertCompleted, types.CertInProgress, types.CertExpired:
		default:
			c.Status = types.CertCompleted
		}
	}
}

func ensureSlices(facts *types.CVFacts) {
	if facts.Experience == nil {
		facts.Experience = []types.Experience{}
	}
	for i := range facts.Experience {
		if facts.Experience[i].Responsibilities == nil {
			facts.Experience[i].Responsibilities = []types.ResponsibilityFact{}
		}
		if facts.Experience[i].Achievements == nil {
			facts.Experience[i].Achievements = []types.Achievement{}
		}
	}
	if facts.Skills.ExplicitlyListed == nil {
		facts.Skills.ExplicitlyListed = []string{}
	}
	if facts.Education == nil {
		facts.Education = []types.Education{}
	}
	if facts.Certifications == nil {
		facts.Certifications = []types.Certification{}
	}
	if facts.Projects == nil {
		facts.Projects = []types.Project{}
	}
	if facts.Languages == nil {
		facts.Languages = []types.Language{}
	}
}

// foldText lowercases, collapses whitespace and trims trailing sentence punctuation
func foldText(s string) string {
	s = strings.ToLower(strings.Join(strings.Fields(s), " "))
	return strings.TrimRight(s, ".;:! ")
}
