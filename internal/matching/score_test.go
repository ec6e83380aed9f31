package matching

import (
	"testing"

	"github.com/jonathan/cv-tailor/internal/types"
	"github.com/stretchr/testify/assert"
)

func outputWithBullets(texts []string, keywords []string, borderline int) *types.TailoredOutput {
	out := &types.TailoredOutput{}
	exp := types.TailoredExperience{SourceID: "exp_1"}
	for _, text := range texts {
		exp.Bullets = append(exp.Bullets, types.Bullet{Text: text, KeywordsUsed: keywords})
	}
	out.CV.Experience = []types.TailoredExperience{exp}
	for i := 0; i < borderline; i++ {
		out.BorderlineItems = append(out.BorderlineItems, types.BorderlineItem{Content: "x"})
	}
	return out
}

func TestScoreMatch(t *testing.T) {
	mapping := &types.Mapping{Summary: types.MappingSummary{
		MustHaveCoverage:   types.Coverage{Matched: 3, Total: 4, Ratio: 0.75},
		NiceToHaveCoverage: types.Coverage{Matched: 1, Total: 2, Ratio: 0.5},
		CriticalGaps:       []string{"PMP certification"},
	}}
	output := outputWithBullets(
		[]string{"Increased sales by 15%", "Cut costs by $2M", "Served 1,000 customers", "Built APIs"},
		[]string{"Go"}, 4)

	score := ScoreMatch(mapping, output)

	assert.Equal(t, 61, score.Score)
	assert.Equal(t, 53, score.Breakdown.MustHaveComponent)
	assert.Equal(t, 15, score.Breakdown.NiceToHaveComponent)
	assert.Equal(t, []types.ScoreAdjustment{
		{Reason: "3 quantified achievements", Points: 5},
		{Reason: "keyword integration in 4 bullets", Points: 3},
	}, score.Breakdown.Bonuses)
	assert.Equal(t, []types.ScoreAdjustment{
		{Reason: "1 critical gaps", Points: -10},
		{Reason: "4 items requiring review", Points: -5},
	}, score.Breakdown.Penalties)
	assert.Equal(t, "Good match: meets core requirements with some gaps. Critical gaps: PMP certification", score.Explanation)
}

func TestScoreMatch_EmptyBucketsEarnFullCredit(t *testing.T) {
	score := ScoreMatch(&types.Mapping{}, &types.TailoredOutput{})
	assert.Equal(t, 100, score.Score)
	assert.Empty(t, score.Breakdown.Bonuses)
	assert.Equal(t, "Strong match: meets most requirements", score.Explanation)
}

func TestScoreMatch_ClampsAtZero(t *testing.T) {
	mapping := &types.Mapping{Summary: types.MappingSummary{
		MustHaveCoverage:   types.Coverage{Matched: 0, Total: 5},
		NiceToHaveCoverage: types.Coverage{Matched: 0, Total: 2},
		CriticalGaps:       []string{"a", "b", "c", "d", "e"},
	}}

	score := ScoreMatch(mapping, &types.TailoredOutput{})
	assert.Equal(t, 0, score.Score)
	assert.Equal(t, -30, score.Breakdown.Penalties[0].Points)
	assert.Equal(t, "Weak match: consider whether this role is appropriate. Critical gaps: a, b, c", score.Explanation)
}

func TestScoreWarnings(t *testing.T) {
	assert.Empty(t, ScoreWarnings(&types.MatchScore{Score: 70}, 2))
	assert.Len(t, ScoreWarnings(&types.MatchScore{Score: 40}, 6), 2)
	assert.Len(t, ScoreWarnings(nil, 6), 1)
}
