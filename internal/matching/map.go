// Package matching builds the requirement to evidence matrix and the match score.
package matching

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/jonathan/cv-tailor/internal/experience"
	"github.com/jonathan/cv-tailor/internal/scoring"
	"github.com/jonathan/cv-tailor/internal/types"
)

// bucketWeights scale evidence scores by requirement priority
var bucketWeights = map[types.Bucket]float64{
	types.BucketMustHave:   1.0,
	types.BucketNiceToHave: 0.85,
	types.BucketInferred:   0.7,
}

const (
	strongMatchThreshold = 80
	maxStrongestMatches  = 5
	maxCriticalGaps      = 5

	yearsMetScore     = 90
	yearsPartialScore = 60
)

// Map classifies the best CV evidence for every requirement, must-have first. It is a pure
// function of its inputs: the same requirements and facts always give the same mapping.
func Map(reqs *types.JobRequirements, facts *types.CVFacts, judge scoring.Judge) *types.Mapping {
	if judge == nil {
		judge = scoring.Heuristic{}
	}
	candidates := Candidates(facts)

	mapping := &types.Mapping{Entries: []types.MappingEntry{}}
	for _, group := range reqs.Buckets() {
		for _, req := range group.Requirements {
			mapping.Entries = append(mapping.Entries, mapRequirement(req, group.Bucket, facts, candidates, judge))
		}
	}
	mapping.Summary = summarize(mapping.Entries, reqs, facts)
	return mapping
}

// Candidates lists every piece of CV content that can serve as evidence, in CV order
func Candidates(facts *types.CVFacts) []scoring.Candidate {
	var out []scoring.Candidate
	for i, s := range facts.Skills.ExplicitlyListed {
		out = append(out, scoring.Candidate{SourceType: types.SourceSkill, SourceID: fmt.Sprintf("skill_%d", i), Text: s})
	}
	for i, s := range facts.Skills.InferredFromExperience {
		out = append(out, scoring.Candidate{
			SourceType: types.SourceSkill,
			SourceID:   fmt.Sprintf("inferred_skill_%d", i),
			Text:       fmt.Sprintf("%s (from: %s)", s.Skill, s.EvidenceSource),
			MatchText:  s.Skill,
			Inferred:   true,
		})
	}
	for _, exp := range facts.Experience {
		for j, r := range exp.Responsibilities {
			out = append(out, scoring.Candidate{
				SourceType: types.SourceExperience,
				SourceID:   types.BulletSourceID(exp.ID, types.SourceResponsibility, j),
				Text:       r.OriginalText,
				MatchText:  r.OriginalText + " " + strings.Join(r.ExtractedFacts.Technologies, " "),
			})
		}
		for j, a := range exp.Achievements {
			out = append(out, scoring.Candidate{
				SourceType: types.SourceExperience,
				SourceID:   types.BulletSourceID(exp.ID, types.SourceAchievement, j),
				Text:       a.OriginalText,
			})
		}
	}
	for i, p := range facts.Projects {
		text := p.Name
		if p.Description != "" {
			text += ": " + p.Description
		}
		out = append(out, scoring.Candidate{
			SourceType: types.SourceProject,
			SourceID:   fmt.Sprintf("project_%d", i),
			Text:       text,
			MatchText:  strings.Join(append([]string{text}, append(p.Technologies, p.Outcomes...)...), " "),
		})
	}
	for i, c := range facts.Certifications {
		if c.Status == types.CertExpired {
			continue
		}
		text := c.Name
		if c.Issuer != "" {
			text += " (" + c.Issuer + ")"
		}
		out = append(out, scoring.Candidate{SourceType: types.SourceCertification, SourceID: fmt.Sprintf("cert_%d", i), Text: text})
	}
	for i, e := range facts.Education {
		parts := []string{e.Degree, e.Field, e.Institution}
		out = append(out, scoring.Candidate{
			SourceType: types.SourceEducation,
			SourceID:   fmt.Sprintf("edu_%d", i),
			Text:       strings.Join(nonEmpty(parts), ", "),
		})
	}
	return out
}

func nonEmpty(values []string) []string {
	out := values[:0:0]
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}

// eligible restricts credential requirements to credential evidence
func eligible(category types.RequirementCategory, source types.SourceType) bool {
	switch category {
	case types.CategoryCertification:
		return source == types.SourceCertification
	case types.CategoryEducation:
		return source == types.SourceEducation
	}
	return true
}

func mapRequirement(req types.Requirement, bucket types.Bucket, facts *types.CVFacts, candidates []scoring.Candidate, judge scoring.Judge) types.MappingEntry {
	var (
		best    *scoring.Candidate
		verdict scoring.Verdict
	)
	for i := range candidates {
		c := candidates[i]
		if !eligible(req.Category, c.SourceType) {
			continue
		}
		v := judge.ClassifyEvidence(req, c)
		if v.MatchType == types.MatchGap {
			continue
		}
		if best == nil || v.MatchType.Rank() > verdict.MatchType.Rank() ||
			(v.MatchType == verdict.MatchType && v.Score > verdict.Score) {
			best, verdict = &candidates[i], v
		}
	}

	if req.YearsRequired != nil && *req.YearsRequired > 0 && req.Category != types.CategoryCertification && req.Category != types.CategoryEducation {
		if c, v, ok := yearsEvidence(req, facts); ok {
			best, verdict = c, v
		} else if best != nil && verdict.MatchType == types.MatchDirect {
			// the skill is there but the years are not
			verdict = scoring.Verdict{MatchType: types.MatchPartial, Score: yearsPartialScore}
		}
	}

	entry := types.MappingEntry{Requirement: req, Bucket: bucket, MatchType: types.MatchGap}
	if best != nil {
		relevance := bounded(float64(verdict.Score) * bucketWeights[bucket])
		entry.MatchType = verdict.MatchType
		entry.RelevanceScore = relevance
		entry.Evidence = &types.EvidenceItem{
			SourceType:     best.SourceType,
			SourceID:       best.SourceID,
			OriginalText:   best.Text,
			RelevanceScore: relevance,
			MatchType:      verdict.MatchType,
			Inferred:       best.Inferred,
		}
	}
	entry.Gap = analyzeGap(req, bucket, entry)
	return entry
}

// yearsEvidence compares relevant (or, without keywords, total) years of experience with the
// requirement. It reports false when the CV shows no relevant years at all.
func yearsEvidence(req types.Requirement, facts *types.CVFacts) (*scoring.Candidate, scoring.Verdict, bool) {
	required := *req.YearsRequired
	years := experience.TotalYears(facts)
	if len(req.Keywords) > 0 {
		years = experience.RelevantYears(facts, req.Keywords)
	}
	if years <= 0 {
		return nil, scoring.Verdict{}, false
	}

	exp := facts.Experience[0]
	for _, e := range facts.Experience {
		if e.DurationMonths != nil && (len(req.Keywords) == 0 || experience.MentionsAny(e, req.Keywords)) {
			exp = e
			break
		}
	}
	c := &scoring.Candidate{
		SourceType: types.SourceExperience,
		SourceID:   exp.ID,
		Text:       fmt.Sprintf("%.1f years of relevant experience, including %s at %s", years, exp.Title, exp.Company),
	}
	if years >= required {
		return c, scoring.Verdict{MatchType: types.MatchDirect, Score: yearsMetScore}, true
	}
	c.Text = fmt.Sprintf("%.1f of %.0f required years, including %s at %s", years, required, exp.Title, exp.Company)
	return c, scoring.Verdict{MatchType: types.MatchPartial, Score: yearsPartialScore}, true
}

func bounded(v float64) int {
	return int(math.Max(0, math.Min(100, math.Round(v))))
}

func analyzeGap(req types.Requirement, bucket types.Bucket, entry types.MappingEntry) types.GapAnalysis {
	subject := req.Description
	switch entry.MatchType {
	case types.MatchDirect:
		return types.GapAnalysis{Severity: types.GapNone}
	case types.MatchPartial:
		return types.GapAnalysis{
			HasGap:   true,
			Severity: types.GapMinor,
			MitigationOptions: []types.Mitigation{{
				Strategy:   types.MitigateReframe,
				Suggestion: fmt.Sprintf("Lead with %q where it supports %s", entry.Evidence.OriginalText, subject),
			}},
		}
	case types.MatchTransferable:
		return types.GapAnalysis{
			Severity: types.GapNone,
			MitigationOptions: []types.Mitigation{
				{Strategy: types.MitigateReframe, Suggestion: fmt.Sprintf("Frame %q in terms of %s", entry.Evidence.OriginalText, subject)},
				{Strategy: types.MitigateAdjacent, Suggestion: fmt.Sprintf("Show how the underlying capability carries over to %s", subject)},
			},
		}
	case types.MatchLearningPotential:
		severity := types.GapMinor
		if bucket == types.BucketMustHave {
			severity = types.GapModerate
		}
		return types.GapAnalysis{
			HasGap:   true,
			Severity: severity,
			MitigationOptions: []types.Mitigation{
				{Strategy: types.MitigateAdjacent, Suggestion: fmt.Sprintf("Point to %q as adjacent experience", entry.Evidence.OriginalText)},
				{Strategy: types.MitigateLearning, Suggestion: fmt.Sprintf("Mention learning %s only if it is true", subject), RequiresUserConfirmation: true},
			},
		}
	}

	severity := types.GapMinor
	if bucket == types.BucketMustHave {
		severity = types.GapModerate
		if req.Specificity == types.SpecificityExact || req.Category == types.CategoryCertification {
			severity = types.GapCritical
		}
	}
	options := []types.Mitigation{{
		Strategy:   types.MitigateAcknowledge,
		Suggestion: fmt.Sprintf("Do not claim %s; address it openly if it comes up", subject),
	}}
	if req.Category == types.CategoryTechnicalSkill || req.Category == types.CategorySoftSkill {
		options = append(options, types.Mitigation{
			Strategy:                 types.MitigateLearning,
			Suggestion:               fmt.Sprintf("Mention current learning of %s only if it is true", subject),
			RequiresUserConfirmation: true,
		})
	}
	return types.GapAnalysis{HasGap: true, Severity: severity, MitigationOptions: options}
}

func summarize(entries []types.MappingEntry, reqs *types.JobRequirements, facts *types.CVFacts) types.MappingSummary {
	summary := types.MappingSummary{
		MustHaveCoverage:   coverage(entries, types.BucketMustHave),
		NiceToHaveCoverage: coverage(entries, types.BucketNiceToHave),
		InferredCoverage:   coverage(entries, types.BucketInferred),
		StrongestMatches:   []string{},
		CriticalGaps:       []string{},
	}
	summary.Score = bounded(component(summary.MustHaveCoverage, 70) + component(summary.NiceToHaveCoverage, 30))

	strong := make([]types.MappingEntry, 0, len(entries))
	for _, e := range entries {
		if e.MatchType != types.MatchGap && e.RelevanceScore >= strongMatchThreshold {
			strong = append(strong, e)
		}
		if e.Bucket == types.BucketMustHave && e.MatchType == types.MatchGap && len(summary.CriticalGaps) < maxCriticalGaps {
			summary.CriticalGaps = append(summary.CriticalGaps, e.Requirement.Description)
		}
	}
	sort.SliceStable(strong, func(i, j int) bool { return strong[i].RelevanceScore > strong[j].RelevanceScore })
	for i := 0; i < len(strong) && i < maxStrongestMatches; i++ {
		summary.StrongestMatches = append(summary.StrongestMatches, strong[i].Requirement.Description)
	}

	summary.KeywordCoverage = keywordCoverage(reqs, facts)
	return summary
}

// coverage counts non-gap entries of one bucket; an empty bucket has ratio 0
func coverage(entries []types.MappingEntry, bucket types.Bucket) types.Coverage {
	var c types.Coverage
	for _, e := range entries {
		if e.Bucket != bucket {
			continue
		}
		c.Total++
		if e.MatchType != types.MatchGap {
			c.Matched++
		}
	}
	if c.Total > 0 {
		c.Ratio = float64(c.Matched) / float64(c.Total)
	}
	return c
}

// component is a bucket's share of a score; a bucket with no requirements earns all of it
func component(c types.Coverage, weight float64) float64 {
	if c.Total == 0 {
		return weight
	}
	return c.Ratio * weight
}

// keywordCoverage partitions job keywords into those the CV states, those an inferred skill or
// related wording could address, and those it does not support at all
func keywordCoverage(reqs *types.JobRequirements, facts *types.CVFacts) types.KeywordCoverage {
	kc := types.KeywordCoverage{PresentInCV: []string{}, MissingButAddressable: []string{}, GenuinelyMissing: []string{}}
	corpus := scoring.NewTokenSet(experience.Corpus(facts))
	inferred := make(map[string]bool)
	for _, s := range facts.Skills.InferredFromExperience {
		inferred[strings.ToLower(s.Skill)] = true
	}

	for _, kw := range reqs.AllKeywords() {
		switch {
		case corpus.HasTerm(kw):
			kc.PresentInCV = append(kc.PresentInCV, kw)
		case inferred[strings.ToLower(kw)] || sharesWord(corpus, kw):
			kc.MissingButAddressable = append(kc.MissingButAddressable, kw)
		default:
			kc.GenuinelyMissing = append(kc.GenuinelyMissing, kw)
		}
	}
	return kc
}

func sharesWord(corpus scoring.TokenSet, kw string) bool {
	for _, w := range scoring.ContentWords(kw) {
		if corpus[w] {
			return true
		}
	}
	return false
}
