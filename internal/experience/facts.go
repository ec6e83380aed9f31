package experience

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/jonathan/cv-tailor/internal/types"
)

// LoadCVFacts loads previously extracted CV facts from a JSON file
func LoadCVFacts(path string) (*types.CVFacts, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Message: "failed to read file", Cause: err}
	}

	var facts types.CVFacts
	if err := json.Unmarshal(content, &facts); err != nil {
		return nil, &LoadError{Path: path, Message: "failed to unmarshal JSON", Cause: err}
	}

	return &facts, nil
}

// SaveCVFacts writes CV facts as indented JSON
func SaveCVFacts(path string, facts *types.CVFacts) error {
	data, err := json.MarshalIndent(facts, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal CV facts: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
