// Package validation checks generated content against the facts of the CV it was built from.
package validation

import (
	"fmt"
	"strings"

	"github.com/jonathan/cv-tailor/internal/types"
)

// FabricationError rejects a whole output because at least one field is not grounded in the CV.
type FabricationError struct {
	Violations []types.Violation
}

func (e *FabricationError) Error() string {
	return fmt.Sprintf("fabrication detected in %d field(s): %s", len(e.Violations), strings.Join(e.Details(), "; "))
}

// Details lists each offending field with its reason, in detection order.
func (e *FabricationError) Details() []string {
	out := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		out = append(out, fmt.Sprintf("%s: %s", v.Field, v.Message))
	}
	return out
}
