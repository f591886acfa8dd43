// Package knowledge holds the treatment and prevention guidance attached to
// each diagnosis.
package knowledge

import (
	_ "embed"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/MeKo-Tech/leafscan/internal/disease"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Entry is the guidance for one label.
type Entry struct {
	Treatments []string        `yaml:"treatments" json:"treatments"`
	Prevention []string        `yaml:"prevention" json:"prevention"`
	Urgency    disease.Urgency `yaml:"urgency" json:"urgency"`
}

// Recommendations is the guidance selected for a concrete diagnosis.
type Recommendations struct {
	Treatments []string        `json:"treatments"`
	Prevention []string        `json:"prevention"`
	Urgency    disease.Urgency `json:"urgency"`
}

const (
	urgentNotice       = "URGENT: Immediate action required"
	mildTreatmentLimit = 2
	lowConfidence      = 0.5
)

var fallback = Entry{
	Treatments: []string{
		"Consult with a plant care expert",
		"Monitor plant closely",
		"Ensure proper care conditions",
	},
	Prevention: []string{
		"Maintain good plant hygiene",
		"Provide proper growing conditions",
		"Regular monitoring and inspection",
	},
	Urgency: disease.UrgencyMedium,
}

// CatalogError reports an invalid catalog.
type CatalogError struct {
	Source   string
	Unknown  []string
	Problems []string
}

func (e *CatalogError) Error() string {
	var parts []string
	if len(e.Unknown) > 0 {
		parts = append(parts, "unknown labels: "+strings.Join(e.Unknown, ", "))
	}
	parts = append(parts, e.Problems...)
	return fmt.Sprintf("invalid catalog %s: %s", e.Source, strings.Join(parts, "; "))
}

// Catalog maps labels to guidance. It is read-only after construction.
type Catalog struct {
	entries map[disease.Label]Entry
	source  string
}

var defaultOnce = sync.OnceValue(func() *Catalog {
	c, err := Parse(defaultCatalog, "embedded")
	if err != nil {
		panic(err)
	}
	return c
})

// Default returns the embedded catalog.
func Default() *Catalog {
	return defaultOnce()
}

// Load reads a replacement catalog from a YAML file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from configuration
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data, path)
}

// Parse decodes and validates catalog YAML.
func Parse(data []byte, source string) (*Catalog, error) {
	var raw map[string]Entry
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", source, err)
	}

	cerr := &CatalogError{Source: source}
	entries := make(map[disease.Label]Entry, len(raw))
	for _, key := range slices.Sorted(maps.Keys(raw)) {
		e := raw[key]
		label, err := disease.Parse(key)
		if err != nil {
			cerr.Unknown = append(cerr.Unknown, key)
			continue
		}
		if len(e.Treatments) == 0 {
			cerr.Problems = append(cerr.Problems, fmt.Sprintf("%s has no treatments", label))
		}
		if len(e.Prevention) == 0 {
			cerr.Problems = append(cerr.Problems, fmt.Sprintf("%s has no prevention", label))
		}
		if e.Urgency == "" {
			e.Urgency = fallback.Urgency
		} else if _, err := disease.ParseUrgency(string(e.Urgency)); err != nil {
			cerr.Problems = append(cerr.Problems, fmt.Sprintf("%s: %v", label, err))
		}
		if _, dup := entries[label]; dup {
			cerr.Problems = append(cerr.Problems, fmt.Sprintf("%s is defined twice", label))
		}
		entries[label] = e
	}
	if len(cerr.Unknown) > 0 || len(cerr.Problems) > 0 {
		return nil, cerr
	}
	return &Catalog{entries: entries, source: source}, nil
}

// Source names where the catalog was loaded from.
func (c *Catalog) Source() string {
	return c.source
}

// Len is the number of labels with explicit guidance.
func (c *Catalog) Len() int {
	return len(c.entries)
}

func (c *Catalog) entry(l disease.Label) Entry {
	if e, ok := c.entries[l]; ok {
		return e
	}
	return fallback
}

// Has reports whether l has explicit guidance.
func (c *Catalog) Has(l disease.Label) bool {
	_, ok := c.entries[l]
	return ok
}

// TreatmentsFor returns treatments adjusted for severity.
func (c *Catalog) TreatmentsFor(l disease.Label, sev disease.Severity) []string {
	base := c.entry(l).Treatments
	switch sev {
	case disease.SeveritySevere:
		return append([]string{urgentNotice}, base...)
	case disease.SeverityMild:
		return slices.Clone(base[:min(mildTreatmentLimit, len(base))])
	default:
		return slices.Clone(base)
	}
}

// PreventionFor returns the prevention tips for l.
func (c *Catalog) PreventionFor(l disease.Label) []string {
	return slices.Clone(c.entry(l).Prevention)
}

// UrgencyFor returns the urgency of l, lowered when confidence is weak.
func (c *Catalog) UrgencyFor(l disease.Label, confidence float64) disease.Urgency {
	if confidence < lowConfidence {
		return disease.UrgencyLow
	}
	return c.entry(l).Urgency
}

// Recommend bundles the guidance for a diagnosis.
func (c *Catalog) Recommend(l disease.Label, sev disease.Severity, confidence float64) Recommendations {
	return Recommendations{
		Treatments: c.TreatmentsFor(l, sev),
		Prevention: c.PreventionFor(l),
		Urgency:    c.UrgencyFor(l, confidence),
	}
}
