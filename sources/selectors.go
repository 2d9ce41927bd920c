package sources

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrMissingSelectors is returned when a website source has no usable
// selectors.
var ErrMissingSelectors = errors.New("website sources need item, title and link selectors")

// Selectors describe how to pull news items out of a website's listing
// page. Item matches one entry; the others are evaluated inside it.
type Selectors struct {
	Item       string `json:"item" yaml:"item"`
	Title      string `json:"title" yaml:"title"`
	Link       string `json:"link" yaml:"link"`
	Summary    string `json:"summary,omitempty" yaml:"summary,omitempty"`
	Date       string `json:"date,omitempty" yaml:"date,omitempty"`
	DateFormat string `json:"date_format,omitempty" yaml:"date_format,omitempty"` // Go time layout; defaults to 2006-01-02
}

// Validate checks the required selectors are present.
func (s *Selectors) Validate() error {
	if s == nil || s.Item == "" || s.Title == "" || s.Link == "" {
		return ErrMissingSelectors
	}
	return nil
}

// Layout returns the date layout to parse with.
func (s *Selectors) Layout() string {
	if s.DateFormat == "" {
		return "2006-01-02"
	}
	return s.DateFormat
}

// LoadSelectors reads selectors from a YAML (or JSON) file and validates
// them.
func LoadSelectors(path string) (*Selectors, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read selectors file: %w", err)
	}

	var sel Selectors
	if err := yaml.Unmarshal(data, &sel); err != nil {
		return nil, fmt.Errorf("failed to parse selectors file: %w", err)
	}
	if err := sel.Validate(); err != nil {
		return nil, err
	}

	return &sel, nil
}
