package db

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Run statuses
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// Artifact steps, one per pipeline stage output
const (
	StepJobRequirements = "job_requirements"
	StepCVFacts         = "cv_facts"
	StepMapping         = "mapping"
	StepTailoredOutput  = "tailored_output"
	StepCoverLetter     = "cover_letter"
	StepResult          = "result"
)

// Artifact categories
const (
	CategoryExtraction = "extraction"
	CategoryAnalysis   = "analysis"
	CategoryGeneration = "generation"
)

// CategoryFor returns the category an artifact step is stored under
func CategoryFor(step string) string {
	switch step {
	case StepJobRequirements, StepCVFacts:
		return CategoryExtraction
	case StepMapping:
		return CategoryAnalysis
	}
	return CategoryGeneration
}

// Run represents a tailoring run record
type Run struct {
	ID          uuid.UUID  `json:"id"`
	JobTitle    string     `json:"job_title"`
	Company     string     `json:"company"`
	Strictness  string     `json:"strictness"`
	Status      string     `json:"status"`
	Error       *string    `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Artifact represents one stored stage output
type Artifact struct {
	ID        uuid.UUID       `json:"id"`
	RunID     uuid.UUID       `json:"run_id"`
	Step      string          `json:"step"`
	Category  string          `json:"category"`
	Content   json.RawMessage `json:"content"`
	CreatedAt time.Time       `json:"created_at"`
}
