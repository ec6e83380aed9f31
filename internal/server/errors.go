package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jonathan/cv-tailor/internal/fetch"
	"github.com/jonathan/cv-tailor/internal/ingestion"
	"github.com/jonathan/cv-tailor/internal/llm"
	"github.com/jonathan/cv-tailor/internal/pipeline"
	"github.com/jonathan/cv-tailor/internal/rendering"
	"github.com/jonathan/cv-tailor/internal/types"
	"github.com/jonathan/cv-tailor/internal/validation"
)

// Codes used only at the HTTP boundary
const (
	codeRateLimited types.ErrorCode = "RATE_LIMITED"
	codeNotFound    types.ErrorCode = "NOT_FOUND"
)

// ErrorBody is the JSON error payload of every failed request
type ErrorBody struct {
	Code    types.ErrorCode `json:"code"`
	Message string          `json:"message"`
	Details []string        `json:"details,omitempty"`
}

// RequestError rejects a request at the boundary
type RequestError struct {
	Message string
	Details []string
}

func (e *RequestError) Error() string {
	if len(e.Details) > 0 {
		return fmt.Sprintf("%s: %s", e.Message, strings.Join(e.Details, "; "))
	}
	return e.Message
}

// newValidationError converts validator errors into a RequestError listing every field
func newValidationError(err error) *RequestError {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return &RequestError{Message: "invalid request", Details: []string{err.Error()}}
	}
	details := make([]string, 0, len(validationErrors))
	for _, fe := range validationErrors {
		if fe.Param() != "" {
			details = append(details, fmt.Sprintf("%s: %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			details = append(details, fmt.Sprintf("%s: %s", fe.Field(), fe.Tag()))
		}
	}
	return &RequestError{Message: "invalid request", Details: details}
}

// Classify maps an error to its HTTP status and error body
func Classify(err error) (int, ErrorBody) {
	var (
		reqErr     *RequestError
		fabErr     *validation.FabricationError
		typeErr    *ingestion.UnsupportedTypeError
		parseErr   *ingestion.ParseError
		renderErr  *rendering.RenderError
		extractErr *llm.ExtractionError
		fetchErr   *fetch.Error
		stageErr   *pipeline.StageError
		apiErr     *llm.APIError
	)

	switch {
	case errors.As(err, &reqErr):
		return http.StatusBadRequest, ErrorBody{Code: types.CodeValidationError, Message: reqErr.Message, Details: reqErr.Details}
	case errors.As(err, &fabErr):
		return http.StatusUnprocessableEntity, ErrorBody{
			Code:    types.CodeFabricationDetected,
			Message: "Generated content contains claims not supported by the CV",
			Details: fabErr.Details(),
		}
	case errors.As(err, &typeErr):
		return http.StatusUnsupportedMediaType, ErrorBody{Code: types.CodeInvalidFileType, Message: typeErr.Error()}
	case errors.As(err, &parseErr):
		return http.StatusBadRequest, ErrorBody{Code: types.CodeParseFailure, Message: parseErr.Error()}
	case errors.As(err, &renderErr) && renderErr.Cause == nil:
		return http.StatusBadRequest, ErrorBody{Code: types.CodeValidationError, Message: renderErr.Error()}
	case errors.As(err, &extractErr), errors.As(err, &fetchErr):
		return http.StatusBadGateway, ErrorBody{Code: types.CodeExtractionFailed, Message: err.Error()}
	case errors.As(err, &stageErr) && (stageErr.Stage == pipeline.StageJobExtraction || stageErr.Stage == pipeline.StageCVExtraction):
		return http.StatusBadGateway, ErrorBody{Code: types.CodeExtractionFailed, Message: err.Error()}
	case errors.As(err, &apiErr):
		return http.StatusBadGateway, ErrorBody{Code: types.CodeProcessingError, Message: err.Error()}
	}
	return http.StatusInternalServerError, ErrorBody{Code: types.CodeProcessingError, Message: err.Error()}
}
