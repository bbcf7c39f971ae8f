package company

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed roster.yaml
var defaultRoster []byte

type rosterFile struct {
	Companies []Company `yaml:"companies"`
}

// DefaultRoster returns the embedded S&P 500 roster.
func DefaultRoster() ([]Company, error) {
	return ParseRoster(defaultRoster)
}

// LoadRoster reads a roster from a YAML file. An empty path selects the embedded roster.
func LoadRoster(path string) ([]Company, error) {
	if path == "" {
		return DefaultRoster()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read roster %s: %w", path, err)
	}

	companies, err := ParseRoster(data)
	if err != nil {
		return nil, fmt.Errorf("roster %s: %w", path, err)
	}
	return companies, nil
}

// ParseRoster decodes a roster document. Every entry needs a ticker;
// entries keep their document order.
func ParseRoster(data []byte) ([]Company, error) {
	var doc rosterFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse roster: %w", err)
	}

	if len(doc.Companies) == 0 {
		return nil, fmt.Errorf("roster has no companies")
	}

	for i := range doc.Companies {
		c := &doc.Companies[i]
		c.Name = strings.TrimSpace(c.Name)
		c.Ticker = strings.TrimSpace(c.Ticker)
		if c.Ticker == "" {
			return nil, fmt.Errorf("roster entry %d (%q) has no ticker", i+1, c.Name)
		}
		if c.Name == "" {
			c.Name = c.Ticker
		}
	}

	return doc.Companies, nil
}
