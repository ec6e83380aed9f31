package rewriting

import (
	"slices"
	"strings"

	"github.com/jonathan/cv-tailor/internal/types"
)

// Skill list limits
const (
	maxPrimarySkills   = 10
	maxSecondarySkills = 10
	maxToolSkills      = 15
	maxProjects        = 5
)

type skillEntry struct {
	name     string
	evidence string
	listed   bool // in the CV's skills section
	inferred bool
	tier     types.KeywordTier
}

// skillPool returns the candidate skills in CV order: the skills section, then technologies
// named in experience and projects, then inferred skills when the policy allows them
func (g *generator) skillPool() []skillEntry {
	var pool []skillEntry
	seen := make(map[string]bool)
	add := func(e skillEntry) {
		key := strings.ToLower(strings.TrimSpace(e.name))
		if key == "" || seen[key] {
			return
		}
		seen[key] = true
		e.name = strings.TrimSpace(e.name)
		e.tier = g.skillTier(e.name)
		pool = append(pool, e)
	}

	for _, s := range g.facts.Skills.ExplicitlyListed {
		add(skillEntry{name: s, listed: true})
	}
	for _, exp := range g.facts.Experience {
		for _, r := range exp.Responsibilities {
			for _, tech := range r.ExtractedFacts.Technologies {
				add(skillEntry{name: tech, evidence: r.OriginalText})
			}
		}
	}
	for _, p := range g.facts.Projects {
		for _, tech := range p.Technologies {
			add(skillEntry{name: tech, evidence: "project " + p.Name})
		}
	}
	if g.policy.InferredSkills {
		for _, s := range g.facts.Skills.InferredFromExperience {
			add(skillEntry{name: s.Skill, evidence: s.EvidenceSource, inferred: true})
		}
	}
	return pool
}

// skillTier places a skill by the priority of the job keyword it matches
func (g *generator) skillTier(skill string) types.KeywordTier {
	if tier := g.reqs.ATSKeywords.Priority(skill); tier != "" {
		return tier
	}
	for _, req := range g.reqs.MustHave {
		if containsFold(req.Keywords, skill) {
			return types.TierHigh
		}
	}
	for _, req := range g.reqs.NiceToHave {
		if containsFold(req.Keywords, skill) {
			return types.TierMedium
		}
	}
	return ""
}

// skills splits the skill pool into primary, secondary and tools. Within a group stated
// skills come before inferred ones, so inferred skills never push a stated skill out.
func (g *generator) skills() (types.TailoredSkills, []types.ChangeLogEntry) {
	pool := g.skillPool()
	var primary, secondary, tools []skillEntry
	for _, e := range pool {
		switch e.tier {
		case types.TierHigh:
			primary = append(primary, e)
		case types.TierMedium, types.TierContextual:
			secondary = append(secondary, e)
		default:
			tools = append(tools, e)
		}
	}

	var changes []types.ChangeLogEntry
	var shown []skillEntry
	place := func(group []skillEntry, limit int) []string {
		slices.SortStableFunc(group, func(a, b skillEntry) int { return boolRank(a.inferred) - boolRank(b.inferred) })
		names := []string{}
		for i, e := range group {
			if i >= limit {
				if e.listed {
					changes = append(changes, types.ChangeLogEntry{
						Section:       "skills",
						ChangeType:    types.ChangeRemove,
						Original:      types.StringPtr(e.name),
						Justification: "Less relevant to the " + g.reqs.JobTitle + " role than the skills kept",
						Confidence:    types.ConfidenceHigh,
					})
				}
				continue
			}
			names = append(names, e.name)
			shown = append(shown, e)
		}
		return names
	}
	out := types.TailoredSkills{
		Primary:   place(primary, maxPrimarySkills),
		Secondary: place(secondary, maxSecondarySkills),
		Tools:     place(tools, maxToolSkills),
	}

	for _, e := range shown {
		switch {
		case e.inferred:
			changes = append(changes, types.ChangeLogEntry{
				Section:        "skills",
				ChangeType:     types.ChangeAddKeyword,
				New:            e.name,
				Justification:  "Inferred from: " + e.evidence,
				Confidence:     types.ConfidenceLow,
				RequiresReview: true,
			})
		case !e.listed:
			changes = append(changes, types.ChangeLogEntry{
				Section:       "skills",
				ChangeType:    types.ChangeAddKeyword,
				New:           e.name,
				Justification: "Named in: " + e.evidence,
				Confidence:    types.ConfidenceHigh,
			})
		}
	}

	if before, after := listedOrder(pool, shown); !slices.Equal(before, after) {
		changes = append(changes, types.ChangeLogEntry{
			Section:       "skills",
			ChangeType:    types.ChangeReorder,
			Original:      types.StringPtr(strings.Join(before, ", ")),
			New:           strings.Join(after, ", "),
			Justification: "Skills grouped by relevance to the " + g.reqs.JobTitle + " role",
			Confidence:    types.ConfidenceHigh,
		})
	}
	return out, changes
}

// listedOrder returns the shown skills of the CV's skills section in CV order and in display order
func listedOrder(pool, shown []skillEntry) (before, after []string) {
	kept := make(map[string]bool)
	for _, e := range shown {
		if e.listed {
			kept[e.name] = true
			after = append(after, e.name)
		}
	}
	for _, e := range pool {
		if kept[e.name] {
			before = append(before, e.name)
		}
	}
	return before, after
}

func boolRank(b bool) int {
	if b {
		return 1
	}
	return 0
}

func containsFold(values []string, target string) bool {
	return slices.ContainsFunc(values, func(v string) bool {
		return strings.EqualFold(strings.TrimSpace(v), strings.TrimSpace(target))
	})
}

func (g *generator) education() []types.TailoredEducation {
	out := make([]types.TailoredEducation, 0, len(g.facts.Education))
	for _, e := range g.facts.Education {
		out = append(out, types.TailoredEducation{
			Institution: e.Institution,
			Degree:      e.Degree,
			Field:       e.Field,
			Year:        e.GraduationYear,
			Highlights:  slices.Clone(e.Achievements),
		})
	}
	return out
}

// certifications drops expired certifications
func (g *generator) certifications() ([]types.TailoredCertification, []types.ChangeLogEntry) {
	out := []types.TailoredCertification{}
	var changes []types.ChangeLogEntry
	for _, c := range g.facts.Certifications {
		if c.Status == types.CertExpired {
			changes = append(changes, types.ChangeLogEntry{
				Section:       "certifications",
				ChangeType:    types.ChangeRemove,
				Original:      types.StringPtr(c.Name),
				Justification: "Certification has expired",
				Confidence:    types.ConfidenceHigh,
			})
			continue
		}
		out = append(out, types.TailoredCertification{Name: c.Name, Issuer: c.Issuer, Date: c.Date})
	}
	return out, changes
}

// projects keeps the most relevant projects, ordered by relevance when the policy reorders
func (g *generator) projects() ([]types.TailoredProject, []types.ChangeLogEntry) {
	type ranked struct {
		idx  int
		p    types.Project
		hits int
	}
	all := make([]ranked, 0, len(g.facts.Projects))
	for i, p := range g.facts.Projects {
		text := p.Name + "\n" + p.Description + "\n" + strings.Join(p.Technologies, ", ")
		_, hits := scoreBullet(text, g.jobKeywords)
		all = append(all, ranked{idx: i, p: p, hits: hits})
	}

	var changes []types.ChangeLogEntry
	ordered := slices.Clone(all)
	// relevance decides which projects survive the cut even when order is kept
	slices.SortStableFunc(ordered, func(a, b ranked) int { return b.hits - a.hits })
	keep := make(map[int]bool)
	for i, r := range ordered {
		if i < maxProjects {
			keep[r.idx] = true
			continue
		}
		changes = append(changes, types.ChangeLogEntry{
			Section:       "projects",
			ChangeType:    types.ChangeRemove,
			Original:      types.StringPtr(r.p.Name),
			Justification: "Less relevant to the " + g.reqs.JobTitle + " role than the projects kept",
			Confidence:    types.ConfidenceHigh,
		})
	}
	if !g.policy.ReorderExperience {
		ordered = all
	}

	out := []types.TailoredProject{}
	var before, after []string
	for _, r := range all {
		if keep[r.idx] {
			before = append(before, r.p.Name)
		}
	}
	for _, r := range ordered {
		if !keep[r.idx] {
			continue
		}
		after = append(after, r.p.Name)
		out = append(out, types.TailoredProject{
			Name:         r.p.Name,
			Description:  r.p.Description,
			Technologies: slices.Clone(r.p.Technologies),
		})
	}
	if !slices.Equal(before, after) {
		changes = append(changes, types.ChangeLogEntry{
			Section:       "projects",
			ChangeType:    types.ChangeReorder,
			Original:      types.StringPtr(strings.Join(before, ", ")),
			New:           strings.Join(after, ", "),
			Justification: "Most relevant projects first",
			Confidence:    types.ConfidenceHigh,
		})
	}
	return out, changes
}
