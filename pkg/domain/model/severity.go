package model

import (
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

// Severity represents a configured severity label
type Severity struct {
	ID    string `yaml:"id" json:"id"`       // Label as it appears in the data (e.g. "P1", "Critical")
	Name  string `yaml:"name" json:"name"`   // Display name
	Level int    `yaml:"level" json:"level"` // Importance level (0-99), higher is more severe
}

// Validate validates the severity
func (s *Severity) Validate() error {
	if s.ID == "" {
		return goerr.New("severity ID is required")
	}
	if s.Name == "" {
		return goerr.New("severity name is required")
	}
	if s.Level < 0 || s.Level > 99 {
		return goerr.New("severity level must be between 0 and 99",
			goerr.V("level", s.Level))
	}
	return nil
}

// Matches reports whether a raw data label refers to this severity
func (s *Severity) Matches(label string) bool {
	label = strings.TrimSpace(label)
	return strings.EqualFold(label, s.ID) || strings.EqualFold(label, s.Name)
}

// SeveritiesConfig represents the severities configuration
type SeveritiesConfig struct {
	Severities []Severity `yaml:"severities"`
}

// Validate validates the severities configuration
func (c *SeveritiesConfig) Validate() error {
	idMap := make(map[string]bool)
	for i, sev := range c.Severities {
		if err := sev.Validate(); err != nil {
			return goerr.Wrap(err, "invalid severity at index",
				goerr.V("index", i),
				goerr.V("id", sev.ID))
		}

		key := strings.ToLower(sev.ID)
		if idMap[key] {
			return goerr.New("duplicate severity ID",
				goerr.V("id", sev.ID))
		}
		idMap[key] = true
	}

	return nil
}

// FindSeverity finds the severity a data label refers to
func (c *SeveritiesConfig) FindSeverity(label string) *Severity {
	for _, sev := range c.Severities {
		if sev.Matches(label) {
			result := sev
			return &result
		}
	}
	return nil
}

// LevelOf returns the level of a data label, or -1 when the label is not configured
func (c *SeveritiesConfig) LevelOf(label string) int {
	if sev := c.FindSeverity(label); sev != nil {
		return sev.Level
	}
	return -1
}
