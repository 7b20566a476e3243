package protocol

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Protocol priorities. Report entries are tracked but carry no pass/fail weight.
const (
	Priority1      = "1"
	Priority2      = "2"
	Priority3      = "3"
	PriorityReport = "Report"
)

// FallbackPriority is used for any index the catalog does not cover.
const FallbackPriority = Priority3

type Entry struct {
	StructureID  string `yaml:"structure_id" json:"structure_id"`
	DVHObjective string `yaml:"dvh_objective" json:"dvh_objective"`
	Evaluator    string `yaml:"evaluator" json:"evaluator"`
	Variation    string `yaml:"variation" json:"variation"`
	Priority     string `yaml:"priority" json:"priority"`
}

// Catalog is the ordered list of evaluated structures. Entry i describes the
// i-th tracked metric.
type Catalog struct {
	Entries []Entry `yaml:"entries" json:"entries"`
}

func Load(path string) (Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return DefaultCatalog(), err
	}

	var cat Catalog
	if err := yaml.Unmarshal(content, &cat); err != nil {
		return Catalog{}, fmt.Errorf("parsing protocol catalog: %w", err)
	}
	if len(cat.Entries) == 0 {
		return Catalog{}, errors.New("protocol catalog empty")
	}
	for i := range cat.Entries {
		cat.Entries[i].Priority = strings.TrimSpace(cat.Entries[i].Priority)
	}
	if err := cat.Validate(); err != nil {
		return Catalog{}, err
	}
	return cat, nil
}

func (c Catalog) Validate() error {
	for i, e := range c.Entries {
		if !ValidPriority(e.Priority) {
			return fmt.Errorf("protocol entry %d (%s): unknown priority %q", i, e.StructureID, e.Priority)
		}
	}
	return nil
}

func ValidPriority(p string) bool {
	switch p {
	case Priority1, Priority2, Priority3, PriorityReport:
		return true
	}
	return false
}

func (c Catalog) Len() int {
	return len(c.Entries)
}

func (c Catalog) At(i int) (Entry, bool) {
	if i < 0 || i >= len(c.Entries) {
		return Entry{}, false
	}
	return c.Entries[i], true
}

// PriorityAt returns the priority of entry i, or FallbackPriority when i is
// outside the catalog.
func (c Catalog) PriorityAt(i int) string {
	if e, ok := c.At(i); ok && e.Priority != "" {
		return e.Priority
	}
	return FallbackPriority
}

func DefaultCatalog() Catalog {
	return Catalog{Entries: []Entry{
		{StructureID: "PTV", DVHObjective: "D95%[%]", Evaluator: ">=", Variation: "93", Priority: Priority1},
		{StructureID: "PTV", DVHObjective: "Min[%]", Evaluator: ">=", Variation: "85", Priority: Priority2},
		{StructureID: "PTV", DVHObjective: "D99%[Gy]", Evaluator: ">=", Variation: "", Priority: PriorityReport},
		{StructureID: "SpinalCord", DVHObjective: "D0.03cc[Gy]", Evaluator: "<=", Variation: "50", Priority: Priority1},
		{StructureID: "Heart", DVHObjective: "V50Gy[%]", Evaluator: "<=", Variation: "30", Priority: Priority2},
		{StructureID: "Heart", DVHObjective: "Mean[Gy]", Evaluator: "<=", Variation: "26", Priority: Priority2},
		{StructureID: "Lungs-GTV", DVHObjective: "V20Gy[%]", Evaluator: "<=", Variation: "37", Priority: Priority1},
		{StructureID: "Lungs-GTV", DVHObjective: "V5Gy[%]", Evaluator: "<=", Variation: "", Priority: Priority3},
		{StructureID: "Lungs-GTV", DVHObjective: "Mean[Gy]", Evaluator: "<=", Variation: "20", Priority: Priority1},
		{StructureID: "Esophagus", DVHObjective: "D0.03cc[Gy]", Evaluator: "<=", Variation: "", Priority: Priority3},
		{StructureID: "Esophagus", DVHObjective: "Mean[Gy]", Evaluator: "<=", Variation: "34", Priority: Priority2},
		{StructureID: "Esophagus", DVHObjective: "V60Gy[%]", Evaluator: "<=", Variation: "17", Priority: Priority3},
		{StructureID: "Esophagus", DVHObjective: "V60Gy[cc]", Evaluator: "<=", Variation: "", Priority: PriorityReport},
		{StructureID: "BrachialPlexus", DVHObjective: "D0.03cc[Gy]", Evaluator: "<=", Variation: "66", Priority: Priority2},
	}}
}
