package abtest

import (
	"errors"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Catalog is the static list of experiments and goals.
// Order matters: assignment ties resolve to the earliest experiment.
type Catalog struct {
	Experiments []string `env:"AB_EXPERIMENTS" envSeparator:"," yaml:"experiments"`
	Goals       []string `env:"AB_GOALS" envSeparator:"," yaml:"goals"`
}

// NewCatalog returns a normalized catalog.
func NewCatalog(experiments, goals []string) Catalog {
	return Catalog{Experiments: experiments, Goals: goals}.Normalize()
}

// LoadCatalogFile reads a YAML catalog:
//
//	experiments: [big-logo, small-buttons]
//	goals: [pricing/order, signup]
func LoadCatalogFile(path string) (Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, errors.Join(ErrInvalidCatalog, err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes a YAML catalog document.
func ParseCatalog(data []byte) (Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Catalog{}, errors.Join(ErrInvalidCatalog, err)
	}
	return c.Normalize(), nil
}

// Normalize trims names, drops empty entries and duplicates, keeping first occurrence order.
func (c Catalog) Normalize() Catalog {
	return Catalog{
		Experiments: uniqueNames(c.Experiments),
		Goals:       uniqueNames(c.Goals),
	}
}

// Validate reports ErrNoExperiments or ErrNoGoals for an incomplete catalog.
func (c Catalog) Validate() error {
	if len(c.Experiments) == 0 {
		return ErrNoExperiments
	}
	if len(c.Goals) == 0 {
		return ErrNoGoals
	}
	return nil
}

// HasExperiment reports whether name is a configured experiment.
func (c Catalog) HasExperiment(name string) bool {
	return slices.Contains(c.Experiments, name)
}

// HasGoal reports whether name is a configured goal.
func (c Catalog) HasGoal(name string) bool {
	return slices.Contains(c.Goals, name)
}

// Pairs returns the number of (experiment, goal) rows the catalog implies.
func (c Catalog) Pairs() int {
	return len(c.Experiments) * len(c.Goals)
}

func uniqueNames(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" || slices.Contains(out, s) {
			continue
		}
		out = append(out, s)
	}
	return out
}
