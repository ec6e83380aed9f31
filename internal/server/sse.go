package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/jonathan/cv-tailor/internal/pipeline"
	"github.com/jonathan/cv-tailor/internal/types"
)

// StreamEvent is one SSE message of a streamed tailoring run
type StreamEvent struct {
	Step     int                 `json:"step"`
	Total    int                 `json:"total"`
	Message  string              `json:"message"`
	Complete bool                `json:"complete"`
	Result   *types.TailorResult `json:"result,omitempty"`
	Error    *ErrorBody          `json:"error,omitempty"`
}

// streamEventFrom converts a progress event, classifying a terminal error
func streamEventFrom(e pipeline.ProgressEvent) StreamEvent {
	ev := StreamEvent{
		Step:     e.Step,
		Total:    e.Total,
		Message:  e.Message,
		Complete: e.Complete,
		Result:   e.Result,
	}
	if e.Err != nil {
		_, body := Classify(e.Err)
		ev.Error = &body
	}
	return ev
}

// SSEWriter helps write Server-Sent Events
type SSEWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewSSEWriter creates a new SSE writer
func NewSSEWriter(w http.ResponseWriter) (*SSEWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming not supported")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	return &SSEWriter{w: w, flusher: flusher}, nil
}

// WriteData sends an unnamed SSE message
func (s *SSEWriter) WriteData(data any) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", jsonData); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// WriteError sends a terminal error message as the final step of a run of total steps
func (s *SSEWriter) WriteError(err error, total int) error {
	_, body := Classify(err)
	return s.WriteData(StreamEvent{Step: total, Total: total, Complete: true, Error: &body})
}
