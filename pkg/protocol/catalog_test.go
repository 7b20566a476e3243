package protocol

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/synaptica-ai/planscore/pkg/common/models"
)

func TestDefaultCatalogAlignsWithTrackedMetrics(t *testing.T) {
	cat := DefaultCatalog()
	require.Equal(t, len(models.TrackedMetrics), cat.Len())
	require.NoError(t, cat.Validate())
	assert.Equal(t, "PTV", cat.Entries[0].StructureID)
	assert.Equal(t, "BrachialPlexus", cat.Entries[13].StructureID)
}

func TestPriorityAtFallsBack(t *testing.T) {
	cat := Catalog{Entries: []Entry{{StructureID: "PTV", Priority: Priority1}, {StructureID: "Cord"}}}

	assert.Equal(t, Priority1, cat.PriorityAt(0))
	assert.Equal(t, FallbackPriority, cat.PriorityAt(1))
	assert.Equal(t, FallbackPriority, cat.PriorityAt(2))
	assert.Equal(t, FallbackPriority, cat.PriorityAt(-1))

	_, ok := cat.At(5)
	assert.False(t, ok)
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "protocol.yaml")
	content := `entries:
  - structure_id: PTV
    dvh_objective: D95%[%]
    evaluator: ">="
    variation: "93"
    priority: "1"
  - structure_id: Heart
    dvh_objective: Mean[Gy]
    evaluator: "<="
    priority: Report
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cat, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 2, cat.Len())
	assert.Equal(t, "D95%[%]", cat.Entries[0].DVHObjective)
	assert.Equal(t, PriorityReport, cat.PriorityAt(1))
}

func TestLoadRejectsUnknownPriority(t *testing.T) {
	path := filepath.Join(t.TempDir(), "protocol.yaml")
	require.NoError(t, os.WriteFile(path, []byte("entries:\n  - structure_id: PTV\n    priority: \"7\"\n"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadEmptyAndMissing(t *testing.T) {
	cat, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultCatalog(), cat)

	cat, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
	assert.Equal(t, DefaultCatalog().Len(), cat.Len())

	path := filepath.Join(t.TempDir(), "empty.yaml")
	require.NoError(t, os.WriteFile(path, []byte("entries: []\n"), 0o600))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestLoadTrimsPriorities(t *testing.T) {
	path := filepath.Join(t.TempDir(), "protocol.yaml")
	content := "entries:\n  - structure_id: PTV\n    priority: \"2 \"\n  - structure_id: Cord\n    priority: \" Report\"\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cat, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Priority2, cat.PriorityAt(0))
	assert.Equal(t, PriorityReport, cat.PriorityAt(1))

	// Built in code, the same value is rejected rather than rendered at the fallback.
	raw := Catalog{Entries: []Entry{{StructureID: "PTV", Priority: "2 "}}}
	assert.Error(t, raw.Validate())
}
