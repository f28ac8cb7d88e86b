package rules

import (
	"encoding/json"
	"fmt"
	"os"
)

// Load reads the rules registry from a JSON file. An empty path returns
// the built-in defaults. Fields absent from the file fall back to their
// default values, so a partial file only overrides what it names.
func Load(path string) (*Rules, error) {
	r := Defaults()
	if path == "" {
		return r, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules config: %w", err)
	}
	if err := json.Unmarshal(data, r); err != nil {
		return nil, fmt.Errorf("failed to parse rules config: %w", err)
	}
	if err := r.Validate(); err != nil {
		return nil, fmt.Errorf("invalid rules config: %w", err)
	}
	return r, nil
}
