package types

// ViolationKind classifies a hard grounding failure
type ViolationKind string

// Violation kinds
const (
	ViolationCompany     ViolationKind = "company"
	ViolationTitle       ViolationKind = "title"
	ViolationMetric      ViolationKind = "metric"
	ViolationCredential  ViolationKind = "credential"
	ViolationSkill       ViolationKind = "skill"
	ViolationUntraceable ViolationKind = "untraceable"
)

// Violation is one field of generated output that is not grounded in the CV
type Violation struct {
	Field   string        `json:"field"`
	Kind    ViolationKind `json:"kind"`
	Value   string        `json:"value"`
	Message string        `json:"message"`
}

// ErrorCode is the machine-readable failure code surfaced to callers
type ErrorCode string

// Error codes
const (
	CodeFabricationDetected ErrorCode = "FABRICATION_DETECTED"
	CodeInvalidFileType     ErrorCode = "INVALID_FILE_TYPE"
	CodeParseFailure        ErrorCode = "PARSE_FAILURE"
	CodeExtractionFailed    ErrorCode = "EXTRACTION_FAILED"
	CodeProcessingError     ErrorCode = "PROCESSING_ERROR"
	CodeValidationError     ErrorCode = "VALIDATION_ERROR"
)
