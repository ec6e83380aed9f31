package pipeline

import (
	"sync"

	"github.com/jonathan/cv-tailor/internal/types"
)

// ProgressEvent represents a progress update during a run
type ProgressEvent struct {
	Step     int                 `json:"step"`
	Total    int                 `json:"total"`
	Message  string              `json:"message"`
	Complete bool                `json:"complete"`
	Result   *types.TailorResult `json:"result,omitempty"`
	Err      error               `json:"-"`
}

// ProgressCallback is called when pipeline progress occurs
type ProgressCallback func(event ProgressEvent)

// TotalSteps returns the number of progress steps a run with opts reports
func TotalSteps(opts types.TailorOptions) int {
	if opts.GenerateCoverLetter {
		return 7
	}
	return 6
}

// Stepper emits numbered progress events. Steps never go backwards, only the final event
// reaches Total, and nothing is emitted once the run has finished or been stopped.
type Stepper struct {
	mu      sync.Mutex
	step    int
	total   int
	stopped bool
	emit    ProgressCallback
}

// NewStepper returns a stepper over total steps. A nil callback discards events.
func NewStepper(total int, emit ProgressCallback) *Stepper {
	return &Stepper{total: total, emit: emit}
}

// Advance moves to the next step and reports message
func (s *Stepper) Advance(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	if s.step < s.total-1 {
		s.step++
	}
	s.send(ProgressEvent{Step: s.step, Total: s.total, Message: message})
}

// Complete emits the final event carrying the result
func (s *Stepper) Complete(result *types.TailorResult) {
	s.finish(ProgressEvent{Message: "Tailoring complete", Complete: true, Result: result})
}

// Fail emits the final event carrying err
func (s *Stepper) Fail(err error) {
	s.finish(ProgressEvent{Message: err.Error(), Complete: true, Err: err})
}

// Stop suppresses all further events. It waits for an event being delivered to return.
func (s *Stepper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
}

func (s *Stepper) finish(event ProgressEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.stopped = true
	s.step = s.total
	event.Step, event.Total = s.total, s.total
	s.send(event)
}

func (s *Stepper) send(event ProgressEvent) {
	if s.emit != nil {
		s.emit(event)
	}
}
