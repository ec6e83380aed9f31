package scoring

import (
	"testing"

	"github.com/jonathan/cv-tailor/internal/types"
	"github.com/stretchr/testify/assert"
)

func TestHeuristic_ClassifyEvidence(t *testing.T) {
	tests := []struct {
		name      string
		req       types.Requirement
		candidate Candidate
		wantType  types.MatchType
		wantScore int
	}{
		{
			name:      "outcome verb supports growth requirement",
			req:       types.Requirement{Description: "Sales growth experience", Keywords: []string{"sales growth"}},
			candidate: Candidate{SourceType: types.SourceExperience, Text: "Increased sales by 15%"},
			wantType:  types.MatchDirect,
			wantScore: 100,
		},
		{
			name:      "listed skill",
			req:       types.Requirement{Description: "Go", Keywords: []string{"Go"}},
			candidate: Candidate{SourceType: types.SourceSkill, Text: "Go"},
			wantType:  types.MatchDirect,
			wantScore: 90,
		},
		{
			name:      "half the keywords",
			req:       types.Requirement{Description: "Cloud stack", Keywords: []string{"AWS", "Terraform"}},
			candidate: Candidate{SourceType: types.SourceProject, Text: "Infra on AWS"},
			wantType:  types.MatchDirect,
			wantScore: 70,
		},
		{
			name:      "few keywords",
			req:       types.Requirement{Description: "Platform tooling", Keywords: []string{"Go", "Kubernetes", "Terraform"}},
			candidate: Candidate{SourceType: types.SourceSkill, Text: "Go"},
			wantType:  types.MatchPartial,
			wantScore: 60,
		},
		{
			name:      "inferred skill is at most transferable",
			req:       types.Requirement{Description: "API design", Keywords: []string{"API design"}},
			candidate: Candidate{SourceType: types.SourceSkill, Text: "API design", Inferred: true},
			wantType:  types.MatchTransferable,
			wantScore: 50,
		},
		{
			name:      "shared description words",
			req:       types.Requirement{Description: "Design distributed payment systems", Keywords: []string{"Kafka"}},
			candidate: Candidate{SourceType: types.SourceExperience, Text: "Built payment systems for retail"},
			wantType:  types.MatchTransferable,
			wantScore: 50,
		},
		{
			name:      "one shared word",
			req:       types.Requirement{Description: "Mentor junior engineers", Keywords: []string{"mentoring"}},
			candidate: Candidate{SourceType: types.SourceExperience, Text: "Onboarded junior staff"},
			wantType:  types.MatchLearningPotential,
			wantScore: 30,
		},
		{
			name:      "match text used over display text",
			req:       types.Requirement{Description: "gRPC", Keywords: []string{"gRPC"}},
			candidate: Candidate{SourceType: types.SourceExperience, Text: "Built payment APIs", MatchText: "Built payment APIs gRPC"},
			wantType:  types.MatchDirect,
			wantScore: 100,
		},
		{
			name:      "nothing in common",
			req:       types.Requirement{Description: "PMP certification", Keywords: []string{"PMP"}},
			candidate: Candidate{SourceType: types.SourceExperience, Text: "Organised conferences"},
			wantType:  types.MatchGap,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Heuristic{}.ClassifyEvidence(tt.req, tt.candidate)
			assert.Equal(t, tt.wantType, got.MatchType)
			assert.Equal(t, tt.wantScore, got.Score)
		})
	}
}

func TestHeuristic_ClassifyRewrite(t *testing.T) {
	tests := []struct {
		name       string
		original   string
		rewritten  string
		borderline bool
		risk       types.RiskLevel
	}{
		{"unchanged", "Built payment APIs in Go", "built  payment APIs in Go", false, ""},
		{"light rewrite", "Built payment APIs in Go", "Built payment APIs in Go serving partner banks", false, ""},
		{"scope escalation", "Assisted the team with the migration to Kubernetes", "Led the migration to Kubernetes", true, types.RiskHigh},
		{"leadership verb already present", "Led the migration to Kubernetes", "Led the Kubernetes migration end to end", false, ""},
		{"facts dropped", "Maintained the billing service for enterprise customers", "Delivered a reliable invoicing platform", true, types.RiskMedium},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Heuristic{}.ClassifyRewrite(tt.original, tt.rewritten)
			assert.Equal(t, tt.borderline, got.Borderline)
			assert.Equal(t, tt.risk, got.Risk)
			if tt.borderline {
				assert.Equal(t, types.BorderlineReframed, got.Category)
				assert.NotEmpty(t, got.Reason)
			}
		})
	}
}

func TestMentionsTerm(t *testing.T) {
	assert.True(t, MentionsTerm("Led a team of five", "team leadership"))
	assert.True(t, MentionsTerm("Deployed services with Node.js", "node.js"))
	assert.False(t, MentionsTerm("Built payment APIs", "payments platform"))
	assert.False(t, MentionsTerm("anything", "the"))
}

func TestMentionsPhrase(t *testing.T) {
	tests := []struct {
		name string
		text string
		term string
		want bool
	}{
		{name: "inflected phrase", text: "Migrated billing to Kubernetes clusters", term: "kubernetes cluster", want: true},
		{name: "stopwords ignored", text: "Assisted with the migration to Kubernetes", term: "migration to kubernetes", want: true},
		{name: "scattered words", text: "Learned to operate machine tooling", term: "Machine Learning", want: false},
		{name: "wrong order", text: "Managed projects for professional services clients", term: "Project Management Professional", want: false},
		{name: "stopwords only", text: "the and of", term: "the", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MentionsPhrase(tt.text, tt.term))
		})
	}
}

func TestContentWords(t *testing.T) {
	assert.Equal(t, []string{"build", "payment", "api"}, ContentWords("Built the payment APIs in Go, payment"))
}
