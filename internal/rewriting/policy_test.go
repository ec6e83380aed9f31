package rewriting

import (
	"testing"

	"github.com/jonathan/cv-tailor/internal/types"
	"github.com/stretchr/testify/assert"
)

func TestPolicyFor(t *testing.T) {
	tests := []struct {
		strictness types.Strictness
		inferred   bool
		rewrite    bool
		reorder    bool
		reframing  string
	}{
		{types.StrictnessConservative, false, false, false, "minimal"},
		{types.StrictnessModerate, true, true, true, "balanced"},
		{types.StrictnessAggressive, true, true, true, "extensive"},
		{"", true, true, true, "balanced"},
	}

	for _, tt := range tests {
		t.Run(string(tt.strictness), func(t *testing.T) {
			p := PolicyFor(tt.strictness)
			assert.Equal(t, tt.inferred, p.InferredSkills)
			assert.Equal(t, tt.rewrite, p.RewriteBullets)
			assert.Equal(t, tt.reorder, p.ReorderExperience)
			assert.Equal(t, tt.reframing, p.Reframing)
		})
	}
}

func TestAllowedKeywords(t *testing.T) {
	reqs := &types.JobRequirements{ATSKeywords: types.ATSKeywords{
		HighPriority:   []string{"Terraform"},
		MediumPriority: []string{"Docker"},
		Contextual:     []string{"Helm"},
	}}
	entry := func(bucket types.Bucket, kw string, mt types.MatchType) types.MappingEntry {
		return types.MappingEntry{Bucket: bucket, Requirement: types.Requirement{Keywords: []string{kw}}, MatchType: mt}
	}
	mapping := &types.Mapping{
		Entries: []types.MappingEntry{
			entry(types.BucketMustHave, "Go", types.MatchDirect),
			entry(types.BucketMustHave, "Rust", types.MatchPartial),
			entry(types.BucketNiceToHave, "gRPC", types.MatchLearningPotential),
			entry(types.BucketNiceToHave, "Kafka", types.MatchGap),
			entry(types.BucketInferred, "mentoring", types.MatchTransferable),
		},
		Summary: types.MappingSummary{KeywordCoverage: types.KeywordCoverage{
			PresentInCV:           []string{"go", "SQL"},
			MissingButAddressable: []string{"Terraform", "Docker", "Helm"},
			GenuinelyMissing:      []string{"Kafka"},
		}},
	}

	conservative := AllowedKeywords(PolicyFor(types.StrictnessConservative), reqs, mapping)
	moderate := AllowedKeywords(PolicyFor(types.StrictnessModerate), reqs, mapping)
	aggressive := AllowedKeywords(PolicyFor(types.StrictnessAggressive), reqs, mapping)

	assert.Equal(t, []string{"Go", "SQL"}, conservative)
	assert.Equal(t, []string{"Go", "SQL", "Rust", "gRPC", "Terraform", "Docker"}, moderate)
	assert.Equal(t, []string{"Go", "SQL", "Rust", "gRPC", "Terraform", "Docker", "mentoring", "Helm"}, aggressive)
	assert.Subset(t, moderate, conservative)
	assert.Subset(t, aggressive, moderate)
	assert.NotContains(t, aggressive, "Kafka")
}
