// Package rewriting builds the tailored CV draft from the fact inventory, the job requirements
// and the requirement mapping.
package rewriting

import (
	"strings"

	"github.com/jonathan/cv-tailor/internal/types"
)

// Policy is what a strictness level permits the generator to do
type Policy struct {
	Strictness        types.Strictness
	InferredSkills    bool   // list evidence-backed inferred skills
	RewriteBullets    bool   // send bullets to the LLM; otherwise they are kept verbatim
	ReorderExperience bool   // most relevant experience and projects first
	Reframing         string // generation.json reframing-* key suffix
	Keywords          string // generation.json keywords-* key suffix
	Gaps              string // generation.json gaps-* key suffix
	level             int
}

// PolicyFor returns the policy of a strictness level; unknown levels get the moderate policy
func PolicyFor(s types.Strictness) Policy {
	switch s {
	case types.StrictnessConservative:
		return Policy{
			Strictness: s,
			Reframing:  "minimal",
			Keywords:   "direct",
			Gaps:       "acknowledge",
		}
	case types.StrictnessAggressive:
		return Policy{
			Strictness:        s,
			InferredSkills:    true,
			RewriteBullets:    true,
			ReorderExperience: true,
			Reframing:         "extensive",
			Keywords:          "maximize",
			Gaps:              "creative",
			level:             2,
		}
	}
	return Policy{
		Strictness:        types.StrictnessModerate,
		InferredSkills:    true,
		RewriteBullets:    true,
		ReorderExperience: true,
		Reframing:         "balanced",
		Keywords:          "natural",
		Gaps:              "all",
		level:             1,
	}
}

// AllowedKeywords returns the job keywords the policy lets the generator surface. Each level
// extends the one below it, so a stricter level never allows a keyword a looser one forbids.
//
//   - conservative: keywords of directly matched requirements and keywords the CV already states
//   - moderate: adds keywords of must-have and nice-to-have requirements with any evidence and
//     addressable high and medium priority keywords
//   - aggressive: adds inferred requirements and the contextual tier
func AllowedKeywords(p Policy, reqs *types.JobRequirements, mapping *types.Mapping) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(values ...string) {
		for _, v := range values {
			key := strings.ToLower(strings.TrimSpace(v))
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, strings.TrimSpace(v))
		}
	}

	kc := mapping.Summary.KeywordCoverage
	for _, e := range mapping.Entries {
		if e.MatchType == types.MatchDirect {
			add(e.Requirement.Keywords...)
		}
	}
	add(kc.PresentInCV...)
	if p.level < 1 {
		return out
	}

	addressable := make(map[string]bool, len(kc.MissingButAddressable))
	for _, kw := range kc.MissingButAddressable {
		addressable[strings.ToLower(kw)] = true
	}
	addTier := func(tier []string) {
		for _, kw := range tier {
			if addressable[strings.ToLower(kw)] {
				add(kw)
			}
		}
	}

	for _, e := range mapping.Entries {
		if e.Bucket != types.BucketInferred && e.MatchType != types.MatchGap {
			add(e.Requirement.Keywords...)
		}
	}
	addTier(reqs.ATSKeywords.HighPriority)
	addTier(reqs.ATSKeywords.MediumPriority)
	if p.level < 2 {
		return out
	}

	for _, e := range mapping.Entries {
		if e.Bucket == types.BucketInferred && e.MatchType != types.MatchGap {
			add(e.Requirement.Keywords...)
		}
	}
	addTier(reqs.ATSKeywords.Contextual)
	return out
}
