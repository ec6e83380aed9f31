// Package scoring holds the judgment calls of the pipeline: how strongly a piece of CV
// evidence supports a requirement, and whether a rewritten bullet drifted from its source.
package scoring

import (
	"fmt"
	"slices"
	"strings"

	"github.com/jonathan/cv-tailor/internal/types"
)

// Candidate is one piece of CV content considered as evidence for a requirement
type Candidate struct {
	SourceType types.SourceType
	SourceID   string
	// Text is shown to the user as the evidence
	Text string
	// MatchText, when set, is matched instead of Text (e.g. a sentence plus its technologies)
	MatchText string
	// Inferred marks skills inferred from experience rather than listed
	Inferred bool
}

func (c Candidate) matchText() string {
	if c.MatchText != "" {
		return c.MatchText
	}
	return c.Text
}

// Verdict is the judge's classification of one candidate
type Verdict struct {
	MatchType types.MatchType
	// Score is the 0-100 strength of the evidence before bucket weighting
	Score int
}

// RewriteVerdict is the judge's view of a rewritten sentence
type RewriteVerdict struct {
	Borderline bool
	Category   types.BorderlineCategory
	Risk       types.RiskLevel
	Reason     string
}

// Judge classifies evidence and rewrites. Implementations must be deterministic.
type Judge interface {
	ClassifyEvidence(req types.Requirement, c Candidate) Verdict
	ClassifyRewrite(original, rewritten string) RewriteVerdict
}

// Evidence scores
const (
	directBase         = 70
	allTermsBonus      = 20
	experienceBonus    = 10
	certificationBonus = 5
	partialScore       = 60
	transferableScore  = 50
	learningScore      = 30

	// minRetention is the share of a sentence's content words a rewrite must keep
	minRetention = 0.6
)

// leadershipVerbs claim more scope than the sentence they rewrite unless already present
var leadershipVerbs = []string{
	"led", "lead", "managed", "owned", "directed", "headed", "spearheaded", "architected",
	"oversaw", "supervised", "championed",
}

// Heuristic is the default Judge: keyword hits, content-word overlap and scope-escalation verbs
type Heuristic struct{}

// ClassifyEvidence matches requirement keywords (or, when there are none, the description's
// content words) against the candidate text:
//   - at least half the terms hit: direct (inferred skills are at most transferable)
//   - some terms hit: partial
//   - no term hits but two shared content words: transferable
//   - one shared content word: learning potential
//   - otherwise: gap
func (Heuristic) ClassifyEvidence(req types.Requirement, c Candidate) Verdict {
	text := NewTokenSet(c.matchText())
	terms := req.Keywords
	if len(terms) == 0 {
		terms = ContentWords(req.Description)
	}

	hits := 0
	for _, term := range terms {
		if text.HasTerm(term) {
			hits++
		}
	}

	if hits > 0 {
		if c.Inferred {
			return Verdict{MatchType: types.MatchTransferable, Score: transferableScore}
		}
		if hits*2 < len(terms) {
			return Verdict{MatchType: types.MatchPartial, Score: partialScore}
		}
		score := directBase
		if hits == len(terms) {
			score += allTermsBonus
		}
		switch c.SourceType {
		case types.SourceExperience:
			score += experienceBonus
		case types.SourceCertification:
			score += certificationBonus
		}
		return Verdict{MatchType: types.MatchDirect, Score: min(score, 100)}
	}

	shared := 0
	for _, w := range ContentWords(req.Description + " " + strings.Join(req.Keywords, " ")) {
		if text[w] {
			shared++
		}
	}
	switch {
	case shared >= 2:
		return Verdict{MatchType: types.MatchTransferable, Score: transferableScore}
	case shared == 1:
		return Verdict{MatchType: types.MatchLearningPotential, Score: learningScore}
	}
	return Verdict{MatchType: types.MatchGap}
}

// ClassifyRewrite flags a rewrite that introduces a leadership verb the original does not
// use (high risk) or keeps less than 60% of the original's content words (medium risk)
func (Heuristic) ClassifyRewrite(original, rewritten string) RewriteVerdict {
	if strings.EqualFold(strings.Join(strings.Fields(original), " "), strings.Join(strings.Fields(rewritten), " ")) {
		return RewriteVerdict{}
	}

	origWords := make(map[string]bool)
	for _, w := range splitWords(original) {
		origWords[w] = true
	}
	for _, w := range splitWords(rewritten) {
		if slices.Contains(leadershipVerbs, w) && !origWords[w] {
			return RewriteVerdict{
				Borderline: true,
				Category:   types.BorderlineReframed,
				Risk:       types.RiskHigh,
				Reason:     fmt.Sprintf("scope escalation: %q does not appear in the original", w),
			}
		}
	}

	words := ContentWords(original)
	if len(words) == 0 {
		return RewriteVerdict{}
	}
	rewrittenSet := NewTokenSet(rewritten)
	kept := 0
	for _, w := range words {
		if rewrittenSet[w] {
			kept++
		}
	}
	if float64(kept)/float64(len(words)) < minRetention {
		return RewriteVerdict{
			Borderline: true,
			Category:   types.BorderlineReframed,
			Risk:       types.RiskMedium,
			Reason:     fmt.Sprintf("significant rewording: %d of %d original terms kept", kept, len(words)),
		}
	}
	return RewriteVerdict{}
}
