package validation

import (
	"strconv"
	"strings"

	"github.com/jonathan/cv-tailor/internal/scoring"
	"github.com/jonathan/cv-tailor/internal/types"
)

// GroundedSet is everything the CV states: entities, skills, numbers and the text itself.
// Generated content is checked against it; it is read-only once built.
type GroundedSet struct {
	name            string
	companies       map[string]bool
	titles          map[string]map[string]bool
	skills          map[string]bool
	inferred        map[string]string
	includeInferred bool
	institutions    map[string]bool
	degrees         map[string]bool
	certifications  map[string]bool
	projects        map[string]bool
	numbers         NumberSet
	corpus          scoring.TokenSet
	texts           []string
	phrases         [][]string
}

// BuildGroundedSet collects the grounded facts of a CV. Inferred skills count as grounded
// only when includeInferred is set; they stay known either way so callers can tell an
// inference from an invention.
func BuildGroundedSet(facts *types.CVFacts, includeInferred bool) *GroundedSet {
	g := &GroundedSet{
		name:            fold(facts.PersonalInfo.Name),
		companies:       make(map[string]bool),
		titles:          make(map[string]map[string]bool),
		skills:          make(map[string]bool),
		inferred:        make(map[string]string),
		includeInferred: includeInferred,
		institutions:    make(map[string]bool),
		degrees:         make(map[string]bool),
		certifications:  make(map[string]bool),
		projects:        make(map[string]bool),
	}

	texts := facts.OriginalTexts()
	months := 0
	for _, exp := range facts.Experience {
		company := fold(exp.Company)
		g.companies[company] = true
		if g.titles[company] == nil {
			g.titles[company] = make(map[string]bool)
		}
		g.titles[company][fold(exp.Title)] = true
		for _, r := range exp.Responsibilities {
			addAll(g.skills, r.ExtractedFacts.Technologies)
		}
		for _, a := range exp.Achievements {
			if a.Metrics != nil {
				texts = append(texts, a.Metrics.Value)
			}
		}
		texts = append(texts, exp.Company, exp.Title, exp.StartDate, exp.EndDate)
		if exp.DurationMonths != nil {
			months += *exp.DurationMonths
		}
	}
	addAll(g.skills, facts.Skills.ExplicitlyListed)
	for _, s := range facts.Skills.InferredFromExperience {
		g.inferred[fold(s.Skill)] = s.EvidenceSource
	}
	for _, e := range facts.Education {
		g.institutions[fold(e.Institution)] = true
		if e.Degree != "" {
			g.degrees[fold(e.Degree)] = true
		}
		texts = append(texts, e.Institution, e.Degree, e.Field, e.GraduationYear)
	}
	for _, c := range facts.Certifications {
		g.certifications[fold(c.Name)] = true
		texts = append(texts, c.Name, c.Issuer, c.Date)
	}
	for _, p := range facts.Projects {
		g.projects[fold(p.Name)] = true
		addAll(g.skills, p.Technologies)
		texts = append(texts, p.Name)
	}
	texts = append(texts, facts.Skills.ExplicitlyListed...)

	// whole years of experience may be stated even though no sentence does
	numberTexts := append([]string(nil), texts...)
	if months >= 12 {
		numberTexts = append(numberTexts, strconv.Itoa(months/12))
	}
	g.numbers = NewNumberSet(numberTexts...)
	texts = append(texts, g.keys(g.skills)...)
	g.corpus = scoring.NewTokenSet(strings.Join(texts, "\n"))
	for _, text := range texts {
		if toks := scoring.Tokens(text); len(toks) > 0 {
			g.texts = append(g.texts, text)
			g.phrases = append(g.phrases, toks)
		}
	}
	return g
}

func (g *GroundedSet) keys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func fold(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func addAll(set map[string]bool, values []string) {
	for _, v := range values {
		if key := fold(v); key != "" {
			set[key] = true
		}
	}
}

// HasName reports whether name is the candidate's name
func (g *GroundedSet) HasName(name string) bool { return fold(name) == g.name }

// HasCompany reports whether the CV lists an experience at company
func (g *GroundedSet) HasCompany(company string) bool { return g.companies[fold(company)] }

// HasTitle reports whether title was held at company
func (g *GroundedSet) HasTitle(company, title string) bool {
	return g.titles[fold(company)][fold(title)]
}

// Listed reports whether skill is explicitly listed or named as a technology
func (g *GroundedSet) Listed(skill string) bool { return g.skills[fold(skill)] }

// HasSkill reports whether skill is listed, named as a technology, or (when allowed) inferred
func (g *GroundedSet) HasSkill(skill string) bool {
	key := fold(skill)
	if g.skills[key] {
		return true
	}
	_, inferred := g.inferred[key]
	return inferred && g.includeInferred
}

// Inferred returns the evidence sentence of an inferred skill
func (g *GroundedSet) Inferred(skill string) (string, bool) {
	evidence, ok := g.inferred[fold(skill)]
	return evidence, ok
}

// InferredAllowed reports whether inferred skills count as grounded
func (g *GroundedSet) InferredAllowed() bool { return g.includeInferred }

// HasInstitution reports whether the CV lists institution
func (g *GroundedSet) HasInstitution(institution string) bool {
	return g.institutions[fold(institution)]
}

// HasDegree reports whether the CV lists degree
func (g *GroundedSet) HasDegree(degree string) bool { return g.degrees[fold(degree)] }

// HasCertification reports whether the CV lists the certification by name
func (g *GroundedSet) HasCertification(name string) bool {
	return g.certifications[fold(name)]
}

// HasProject reports whether the CV lists the project by name
func (g *GroundedSet) HasProject(name string) bool { return g.projects[fold(name)] }

// Numbers returns every number stated anywhere in the CV
func (g *GroundedSet) Numbers() NumberSet { return g.numbers }

// Mentions reports whether the CV text mentions term, ignoring case and inflection. A term
// of several words must appear as a phrase within one CV sentence or field.
func (g *GroundedSet) Mentions(term string) bool {
	run := scoring.Tokens(term)
	if len(run) == 1 {
		return g.corpus[run[0]]
	}
	for _, toks := range g.phrases {
		if scoring.ContainsRun(toks, run) {
			return true
		}
	}
	return false
}

// States reports whether term appears word for word somewhere in the CV
func (g *GroundedSet) States(term string) bool {
	for _, text := range g.texts {
		if containsTerm(text, term) {
			return true
		}
	}
	return false
}

// Supports reports whether a skill or keyword is grounded either as a listed skill or in the text
func (g *GroundedSet) Supports(term string) bool {
	return g.HasSkill(term) || g.Mentions(term)
}
