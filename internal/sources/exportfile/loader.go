package exportfile

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Loader handles loading and parsing of a bookmark export file.
type Loader struct {
	filePath string
}

// NewLoader creates a new export file loader.
func NewLoader(filePath string) *Loader {
	return &Loader{
		filePath: filePath,
	}
}

// Load reads and parses the export file.
func (l *Loader) Load() (*Export, error) {
	data, err := os.ReadFile(l.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read export file: %w", err)
	}

	var export Export
	if err := yaml.Unmarshal(data, &export); err != nil {
		return nil, fmt.Errorf("failed to parse export yaml: %w", err)
	}

	return &export, nil
}
