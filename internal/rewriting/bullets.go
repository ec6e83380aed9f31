package rewriting

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/jonathan/cv-tailor/internal/llm"
	"github.com/jonathan/cv-tailor/internal/prompts"
	"github.com/jonathan/cv-tailor/internal/schemas"
	"github.com/jonathan/cv-tailor/internal/scoring"
	"github.com/jonathan/cv-tailor/internal/types"
	"github.com/sirupsen/logrus"
)

const (
	// maxBullets is the number of bullets kept per experience
	maxBullets = 6
	// baseBulletScore is the score of a bullet that mentions no job keyword
	baseBulletScore = 50
)

// candidate is an original responsibility or achievement sentence
type candidate struct {
	SourceID string `json:"source_id"`
	Text     string `json:"text"`
	score    int
	hits     int
}

// bulletRewrite is one rewritten bullet as returned by the LLM
type bulletRewrite struct {
	SourceID          string   `json:"source_id"`
	Rewritten         string   `json:"rewritten"`
	KeywordsUsed      []string `json:"keywords_used"`
	ChangeType        string   `json:"change_type"`
	TargetRequirement *string  `json:"target_requirement"`
	Explanation       *string  `json:"explanation"`
}

type bulletRewrites struct {
	Bullets []bulletRewrite `json:"bullets"`
}

// scoreBullet rates a sentence by job relevance: keyword hits first, then quantification
func scoreBullet(text string, keywords []string) (score, hits int) {
	tokens := scoring.NewTokenSet(text)
	for _, kw := range keywords {
		if tokens.HasTerm(kw) {
			hits++
		}
	}
	score = baseBulletScore + 10*hits
	if strings.ContainsAny(text, "0123456789") {
		score += 5
	}
	if strings.ContainsAny(text, "%$") {
		score += 5
	}
	return score, hits
}

// selectBullets keeps the highest scoring sentences of an experience in their original order
func selectBullets(exp types.Experience, keywords []string) (kept, dropped []candidate) {
	var all []candidate
	add := func(kind types.SourceKind, i int, text string) {
		if strings.TrimSpace(text) == "" {
			return
		}
		c := candidate{SourceID: types.BulletSourceID(exp.ID, kind, i), Text: text}
		c.score, c.hits = scoreBullet(text, keywords)
		all = append(all, c)
	}
	for i, r := range exp.Responsibilities {
		add(types.SourceResponsibility, i, r.OriginalText)
	}
	for i, a := range exp.Achievements {
		add(types.SourceAchievement, i, a.OriginalText)
	}
	if len(all) <= maxBullets {
		return all, nil
	}

	ranked := slices.Clone(all)
	slices.SortStableFunc(ranked, func(a, b candidate) int { return cmp.Compare(b.score, a.score) })
	keep := make(map[string]bool, maxBullets)
	for _, c := range ranked[:maxBullets] {
		keep[c.SourceID] = true
	}
	for _, c := range all {
		if keep[c.SourceID] {
			kept = append(kept, c)
		} else {
			dropped = append(dropped, c)
		}
	}
	return kept, dropped
}

// rewriteBullets asks the LLM to rewrite the kept bullets of one experience. Replies for
// unknown source IDs are ignored; the first reply per source ID wins.
func (g *generator) rewriteBullets(ctx context.Context, exp types.Experience, bullets []candidate) (map[string]bulletRewrite, error) {
	payload, err := json.MarshalIndent(bullets, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode bullets: %w", err)
	}
	prompt, err := prompts.Render("generation.json", "bullet-rewrites", map[string]string{
		"JobTitle":          g.reqs.JobTitle,
		"Title":             exp.Title,
		"Company":           exp.Company,
		"ReframingGuidance": prompts.MustGet("generation.json", "reframing-"+g.policy.Reframing),
		"KeywordGuidance":   prompts.MustGet("generation.json", "keywords-"+g.policy.Keywords),
		"Keywords":          strings.Join(g.allowed, ", "),
		"Requirements":      g.requirementLines(),
		"Bullets":           string(payload),
		"UserNotes":         g.notes,
	})
	if err != nil {
		return nil, err
	}

	reply, err := llm.Extract[bulletRewrites](ctx, g.client, llm.Request{
		Name:   "bullet rewrites",
		Prompt: prompt,
		Schema: schemas.BulletRewrites,
		Tier:   llm.TierAdvanced,
		Logger: g.log.WithField("experience", exp.ID),
	})
	if err != nil {
		return nil, err
	}

	known := make(map[string]bool, len(bullets))
	for _, b := range bullets {
		known[b.SourceID] = true
	}
	out := make(map[string]bulletRewrite, len(reply.Bullets))
	for _, r := range reply.Bullets {
		if _, seen := out[r.SourceID]; seen || !known[r.SourceID] {
			continue
		}
		out[r.SourceID] = r
	}
	return out, nil
}

// applyRewrite decides the final text of one bullet. A rewrite is discarded when it is a
// no-op, when it loses a must-have keyword the original stated, or when it introduces a job
// keyword the policy does not allow.
func (g *generator) applyRewrite(c candidate, r bulletRewrite, ok bool) (types.Bullet, *types.ChangeLogEntry) {
	text := strings.TrimSpace(r.Rewritten)
	if !ok || text == "" || r.ChangeType == "unchanged" || text == c.Text {
		return g.bullet(c.Text, c.SourceID, nil), nil
	}
	if lost := g.lostKeywords(c.Text, text); len(lost) > 0 {
		g.log.WithFields(logrus.Fields{
			"source_id": c.SourceID,
			"lost":      lost,
		}).Debug("Kept original bullet, rewrite dropped required keywords")
		return g.bullet(c.Text, c.SourceID, nil), nil
	}
	if added := g.disallowedKeywords(c.Text, text); len(added) > 0 {
		g.log.WithFields(logrus.Fields{
			"source_id": c.SourceID,
			"added":     added,
		}).Debug("Kept original bullet, rewrite added keywords outside the allowed set")
		return g.bullet(c.Text, c.SourceID, nil), nil
	}

	changeType := types.ChangeRewrite
	confidence := types.ConfidenceMedium
	switch r.ChangeType {
	case string(types.ChangeAddKeyword):
		changeType, confidence = types.ChangeAddKeyword, types.ConfidenceHigh
	case string(types.ChangeQuantify):
		changeType, confidence = types.ChangeQuantify, types.ConfidenceHigh
	}

	return g.bullet(text, c.SourceID, r.KeywordsUsed), &types.ChangeLogEntry{
		Section:       "experience",
		ChangeType:    changeType,
		Original:      types.StringPtr(c.Text),
		New:           text,
		Justification: g.justify(c.Text, text, r.TargetRequirement, r.Explanation),
		Confidence:    confidence,
	}
}

// bullet builds an output bullet whose KeywordsUsed lists only allowed keywords the text
// actually contains
func (g *generator) bullet(text, sourceID string, claimed []string) types.Bullet {
	tokens := scoring.NewTokenSet(text)
	used := []string{}
	seen := make(map[string]bool)
	for _, kw := range append(slices.Clone(claimed), g.allowed...) {
		key := strings.ToLower(strings.TrimSpace(kw))
		if key == "" || seen[key] || !g.isAllowed(kw) || !tokens.HasTerm(kw) {
			continue
		}
		seen[key] = true
		used = append(used, kw)
	}
	return types.Bullet{Text: text, KeywordsUsed: used, SourceID: sourceID}
}

func (g *generator) isAllowed(kw string) bool {
	return slices.ContainsFunc(g.allowed, func(a string) bool { return strings.EqualFold(a, strings.TrimSpace(kw)) })
}

// lostKeywords returns must-have keywords stated by original but missing from rewritten
func (g *generator) lostKeywords(original, rewritten string) []string {
	before, after := scoring.NewTokenSet(original), scoring.NewTokenSet(rewritten)
	var lost []string
	for _, kw := range g.mustKeywords {
		if before.HasTerm(kw) && !after.HasTerm(kw) {
			lost = append(lost, kw)
		}
	}
	return lost
}

// disallowedKeywords returns job keywords rewritten names that are neither allowed nor
// stated by original
func (g *generator) disallowedKeywords(original, rewritten string) []string {
	var added []string
	for _, kw := range g.jobKeywords {
		if g.isAllowed(kw) || !scoring.MentionsPhrase(rewritten, kw) || scoring.MentionsPhrase(original, kw) {
			continue
		}
		added = append(added, kw)
	}
	return added
}

// justify names the requirement a rewrite targets. The LLM's own target is used when it
// names a real requirement; otherwise the requirement the new text serves best is chosen.
func (g *generator) justify(original, rewritten string, target, explanation *string) string {
	req := ""
	if target != nil {
		req = g.findRequirement(*target)
	}
	if req == "" {
		req = g.bestRequirement(rewritten)
	}
	if req == "" {
		req = g.bestRequirement(original)
	}

	var j string
	if req != "" {
		j = "Targets requirement: " + req
	} else {
		j = "Improves relevance to the " + g.reqs.JobTitle + " role"
	}
	if explanation != nil && strings.TrimSpace(*explanation) != "" {
		j += " (" + strings.TrimSpace(*explanation) + ")"
	}
	return j
}

func (g *generator) findRequirement(target string) string {
	target = strings.TrimSpace(target)
	for _, e := range g.mapping.Entries {
		if strings.EqualFold(e.Requirement.Description, target) {
			return e.Requirement.Description
		}
	}
	return ""
}

// bestRequirement returns the requirement whose keywords text mentions most, preferring
// must-haves on ties
func (g *generator) bestRequirement(text string) string {
	tokens := scoring.NewTokenSet(text)
	best, bestHits := "", 0
	for _, e := range g.mapping.Entries {
		hits := 0
		for _, kw := range e.Requirement.Keywords {
			if tokens.HasTerm(kw) {
				hits++
			}
		}
		if hits > bestHits {
			best, bestHits = e.Requirement.Description, hits
		}
	}
	return best
}

// requirementLines lists must-have and nice-to-have requirements for prompts
func (g *generator) requirementLines() string {
	var b strings.Builder
	for _, group := range g.reqs.Buckets() {
		if group.Bucket == types.BucketInferred && g.policy.level < 2 {
			continue
		}
		for _, req := range group.Requirements {
			fmt.Fprintf(&b, "- [%s] %s", group.Bucket, req.Description)
			if len(req.Keywords) > 0 {
				fmt.Fprintf(&b, " (keywords: %s)", strings.Join(req.Keywords, ", "))
			}
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
