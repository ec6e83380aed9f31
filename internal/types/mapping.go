package types

import "fmt"

// MatchType classifies how a requirement relates to the available evidence
type MatchType string

// Match types, strongest first
const (
	MatchDirect            MatchType = "direct"
	MatchTransferable      MatchType = "transferable"
	MatchPartial           MatchType = "partial"
	MatchLearningPotential MatchType = "learning_potential"
	MatchGap               MatchType = "gap"
)

// Rank orders match types by strength; higher is stronger
func (m MatchType) Rank() int {
	switch m {
	case MatchDirect:
		return 4
	case MatchPartial:
		return 3
	case MatchTransferable:
		return 2
	case MatchLearningPotential:
		return 1
	}
	return 0
}

// SourceType names the CVFacts section evidence came from
type SourceType string

// Evidence source types
const (
	SourceExperience    SourceType = "experience"
	SourceSkill         SourceType = "skill"
	SourceProject       SourceType = "project"
	SourceCertification SourceType = "certification"
	SourceEducation     SourceType = "education"
)

// EvidenceItem points at the CV content supporting a requirement
type EvidenceItem struct {
	SourceType     SourceType `json:"source_type"`
	SourceID       string     `json:"source_id"`
	OriginalText   string     `json:"original_text"`
	RelevanceScore int        `json:"relevance_score"`
	MatchType      MatchType  `json:"match_type"`
	Inferred       bool       `json:"inferred,omitempty"`
}

// GapSeverity grades a missing or weak requirement
type GapSeverity string

// Gap severities
const (
	GapCritical GapSeverity = "critical"
	GapModerate GapSeverity = "moderate"
	GapMinor    GapSeverity = "minor"
	GapNone     GapSeverity = "none"
)

// MitigationStrategy is a way to address a gap without inventing facts
type MitigationStrategy string

// Mitigation strategies
const (
	MitigateReframe     MitigationStrategy = "reframe_existing"
	MitigateLearning    MitigationStrategy = "highlight_learning"
	MitigateAdjacent    MitigationStrategy = "show_adjacent"
	MitigateAcknowledge MitigationStrategy = "acknowledge_gap"
)

// Mitigation is one suggested way to address a gap
type Mitigation struct {
	Strategy                 MitigationStrategy `json:"strategy"`
	Suggestion               string             `json:"suggestion"`
	RequiresUserConfirmation bool               `json:"requires_user_confirmation"`
}

// GapAnalysis describes what is missing for a requirement
type GapAnalysis struct {
	HasGap            bool         `json:"has_gap"`
	Severity          GapSeverity  `json:"gap_severity"`
	MitigationOptions []Mitigation `json:"mitigation_options,omitempty"`
}

// MappingEntry is one row of the requirement to evidence matrix
type MappingEntry struct {
	Requirement    Requirement   `json:"requirement"`
	Bucket         Bucket        `json:"bucket"`
	Evidence       *EvidenceItem `json:"evidence"`
	MatchType      MatchType     `json:"match_type"`
	RelevanceScore int           `json:"relevance_score"`
	Gap            GapAnalysis   `json:"gap_analysis"`
}

// Coverage is a matched/total count for one requirement bucket
type Coverage struct {
	Matched int     `json:"matched"`
	Total   int     `json:"total"`
	Ratio   float64 `json:"ratio"`
}

// String renders coverage as "X/Y"
func (c Coverage) String() string {
	return fmt.Sprintf("%d/%d", c.Matched, c.Total)
}

// KeywordCoverage partitions job keywords by how the CV covers them
type KeywordCoverage struct {
	PresentInCV           []string `json:"present_in_cv"`
	MissingButAddressable []string `json:"missing_but_addressable"`
	GenuinelyMissing      []string `json:"genuinely_missing"`
}

// MappingSummary holds the aggregates derived from mapping entries
type MappingSummary struct {
	Score              int             `json:"score"`
	MustHaveCoverage   Coverage        `json:"must_have_coverage"`
	NiceToHaveCoverage Coverage        `json:"nice_to_have_coverage"`
	InferredCoverage   Coverage        `json:"inferred_coverage"`
	StrongestMatches   []string        `json:"strongest_matches"`
	CriticalGaps       []string        `json:"critical_gaps"`
	KeywordCoverage    KeywordCoverage `json:"keyword_coverage"`
}

// Mapping is the requirement to evidence matrix with its aggregates
type Mapping struct {
	Entries []MappingEntry `json:"entries"`
	Summary MappingSummary `json:"summary"`
}

// EntriesFor returns entries of one bucket in order
func (m *Mapping) EntriesFor(bucket Bucket) []MappingEntry {
	var out []MappingEntry
	for _, e := range m.Entries {
		if e.Bucket == bucket {
			out = append(out, e)
		}
	}
	return out
}
