package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCategoryFor(t *testing.T) {
	tests := []struct {
		step string
		want string
	}{
		{StepJobRequirements, CategoryExtraction},
		{StepCVFacts, CategoryExtraction},
		{StepMapping, CategoryAnalysis},
		{StepTailoredOutput, CategoryGeneration},
		{StepCoverLetter, CategoryGeneration},
		{StepResult, CategoryGeneration},
	}

	for _, tt := range tests {
		t.Run(tt.step, func(t *testing.T) {
			assert.Equal(t, tt.want, CategoryFor(tt.step))
		})
	}
}

func TestSchemaIsEmbedded(t *testing.T) {
	assert.Contains(t, schema, "CREATE TABLE IF NOT EXISTS tailoring_runs")
	assert.Contains(t, schema, "UNIQUE (run_id, step)")
}

func TestRunType(t *testing.T) {
	run := Run{
		Company:  "Acme",
		JobTitle: "Backend Engineer",
		Status:   StatusRunning,
	}

	assert.Equal(t, "Acme", run.Company)
	assert.Equal(t, StatusRunning, run.Status)
	assert.Nil(t, run.CompletedAt)
	assert.Nil(t, run.Error)
}
