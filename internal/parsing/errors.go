package parsing

// ValidationError reports job requirements that are missing or malformed after extraction
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "job requirements: " + e.Message
	}
	return "job requirements: " + e.Field + ": " + e.Message
}
