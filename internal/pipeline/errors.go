package pipeline

import "fmt"

// Pipeline stages, as reported in StageError
const (
	StageJobExtraction = "job_extraction"
	StageCVExtraction  = "cv_extraction"
	StageGeneration    = "generation"
	StageValidation    = "validation"
	StageCoverLetter   = "cover_letter"
)

// StageError records which stage of a run failed
type StageError struct {
	Stage string
	Cause error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Cause)
}

func (e *StageError) Unwrap() error {
	return e.Cause
}
