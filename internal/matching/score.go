package matching

import (
	"fmt"
	"strings"

	"github.com/jonathan/cv-tailor/internal/types"
	"github.com/jonathan/cv-tailor/internal/validation"
)

// Score adjustments
const (
	quantifiedBonus        = 5
	minQuantifiedBullets   = 3
	keywordBonus           = 3
	criticalGapPenalty     = 10
	maxCriticalGapPenalty  = 30
	borderlinePenalty      = 5
	maxBorderlineNoPenalty = 3

	lowScoreWarning       = 50
	manyBorderlineWarning = 5
	explainedCriticalGaps = 3
)

// ScoreMatch combines mapping coverage with bonuses for quantified, keyword-bearing bullets and
// penalties for critical gaps and review load into a 0-100 score.
func ScoreMatch(mapping *types.Mapping, output *types.TailoredOutput) *types.MatchScore {
	must := component(mapping.Summary.MustHaveCoverage, 70)
	nice := component(mapping.Summary.NiceToHaveCoverage, 30)
	breakdown := types.ScoreBreakdown{
		MustHaveComponent:   bounded(must),
		NiceToHaveComponent: bounded(nice),
		Bonuses:             []types.ScoreAdjustment{},
		Penalties:           []types.ScoreAdjustment{},
	}
	score := bounded(must + nice)

	quantified, withKeywords := 0, 0
	for _, exp := range output.CV.Experience {
		for _, b := range exp.Bullets {
			if len(validation.ExtractNumbers(b.Text)) > 0 {
				quantified++
			}
			if len(b.KeywordsUsed) > 0 {
				withKeywords++
			}
		}
	}
	if quantified >= minQuantifiedBullets {
		breakdown.Bonuses = append(breakdown.Bonuses, types.ScoreAdjustment{
			Reason: fmt.Sprintf("%d quantified achievements", quantified), Points: quantifiedBonus,
		})
		score += quantifiedBonus
	}
	if withKeywords > 0 {
		breakdown.Bonuses = append(breakdown.Bonuses, types.ScoreAdjustment{
			Reason: fmt.Sprintf("keyword integration in %d bullets", withKeywords), Points: keywordBonus,
		})
		score += keywordBonus
	}

	if gaps := len(mapping.Summary.CriticalGaps); gaps > 0 {
		penalty := min(gaps*criticalGapPenalty, maxCriticalGapPenalty)
		breakdown.Penalties = append(breakdown.Penalties, types.ScoreAdjustment{
			Reason: fmt.Sprintf("%d critical gaps", gaps), Points: -penalty,
		})
		score -= penalty
	}
	if n := len(output.BorderlineItems); n > maxBorderlineNoPenalty {
		breakdown.Penalties = append(breakdown.Penalties, types.ScoreAdjustment{
			Reason: fmt.Sprintf("%d items requiring review", n), Points: -borderlinePenalty,
		})
		score -= borderlinePenalty
	}

	score = max(0, min(100, score))
	return &types.MatchScore{
		Score:       score,
		Breakdown:   breakdown,
		Explanation: explain(score, mapping.Summary.CriticalGaps),
	}
}

func explain(score int, criticalGaps []string) string {
	var explanation string
	switch {
	case score >= 80:
		explanation = "Strong match: meets most requirements"
	case score >= 60:
		explanation = "Good match: meets core requirements with some gaps"
	case score >= 40:
		explanation = "Partial match: significant gaps but transferable experience"
	default:
		explanation = "Weak match: consider whether this role is appropriate"
	}
	if len(criticalGaps) > 0 {
		gaps := criticalGaps[:min(len(criticalGaps), explainedCriticalGaps)]
		explanation += ". Critical gaps: " + strings.Join(gaps, ", ")
	}
	return explanation
}

// ScoreWarnings returns the warnings a score and review load call for
func ScoreWarnings(score *types.MatchScore, borderlineItems int) []string {
	var warnings []string
	if score != nil && score.Score < lowScoreWarning {
		warnings = append(warnings, fmt.Sprintf("low match score: %d is below %d, consider whether the role is appropriate", score.Score, lowScoreWarning))
	}
	if borderlineItems > manyBorderlineWarning {
		warnings = append(warnings, fmt.Sprintf("many borderline items: %d items require review", borderlineItems))
	}
	return warnings
}
