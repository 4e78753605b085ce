package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mkDevice builds a panel-family device: every device SPAN's integration
// owns (panel, circuits, battery, solar, ...) carries its own identifier in
// the panel-integration domain, which is how BuildTrees recognizes
// membership and how CircuitNodeID later extracts a circuit's node-id.
func mkDevice(id, localID, via, model string) *Device {
	return &Device{ID: id, Model: model, ViaDeviceID: via, Identifiers: []Identifier{{Domain: "span_ebus", LocalID: localID}}}
}

func mkPanel(id, serial string) *Device {
	return mkDevice(id, serial, "", ModelPanel)
}

func TestBuildTrees_ClassifiesChildrenByModel(t *testing.T) {
	panel := mkPanel("dev-panel", "SN-001")
	battery := mkDevice("dev-battery", "SN-001_battery", "dev-panel", ModelBattery)
	solar := mkDevice("dev-solar", "SN-001_solar", "dev-panel", ModelSolar)
	ev := mkDevice("dev-ev", "SN-001_ev", "dev-panel", ModelEVCharger)
	siteMetering := mkDevice("dev-site", "SN-001_site", "dev-panel", ModelSiteMetering)
	circuit1 := mkDevice("dev-c1", "SN-001_1", "dev-panel", ModelCircuit)
	circuit2 := mkDevice("dev-c2", "SN-001_2", "dev-panel", "Unrecognized Model")

	trees, warnings := BuildTrees(
		[]*Device{panel, battery, solar, ev, siteMetering, circuit1, circuit2},
		nil, "span_ebus",
	)
	require.Empty(t, warnings)
	require.Len(t, trees, 1)
	tree := trees[0]

	assert.Same(t, battery, tree.Battery)
	assert.Same(t, solar, tree.Solar)
	assert.Same(t, ev, tree.EVCharger)
	assert.Same(t, siteMetering, tree.SiteMetering)
	require.Len(t, tree.Circuits, 2, "an unrecognized model falls back to Circuit")
}

func TestBuildTrees_IgnoresDevicesOutsidePanelIntegration(t *testing.T) {
	panel := mkPanel("dev-panel", "SN-001")
	other := &Device{ID: "dev-other", Identifiers: []Identifier{{Domain: "powerwall", LocalID: "x"}}}
	trees, _ := BuildTrees([]*Device{panel, other}, nil, "span_ebus")
	require.Len(t, trees, 1)
	assert.Empty(t, trees[0].Circuits)
}

func TestBuildTrees_DaisyChainedSubPanelIsItsOwnRoot(t *testing.T) {
	root := mkPanel("dev-root", "SN-ROOT")
	sub := mkPanel("dev-sub", "SN-SUB")
	sub.ViaDeviceID = "dev-root"
	circuitOnSub := mkDevice("dev-c1", "SN-SUB_1", "dev-sub", ModelCircuit)

	trees, warnings := BuildTrees([]*Device{root, sub, circuitOnSub}, nil, "span_ebus")
	require.Empty(t, warnings)
	require.Len(t, trees, 2, "a device whose model is ModelPanel is always a tree root, even with a via-device")

	panelIDs := PanelDeviceIDSet(trees)
	for _, tree := range trees {
		if tree.Panel.ID == "dev-sub" {
			assert.False(t, tree.IsRoot(panelIDs), "sub-panel's via-device resolves to another panel device")
			require.Len(t, tree.Circuits, 1)
		}
		if tree.Panel.ID == "dev-root" {
			assert.True(t, tree.IsRoot(panelIDs))
		}
	}
}

func TestBuildTrees_CycleAbortsAffectedTreeWithWarning(t *testing.T) {
	panel := mkPanel("dev-panel", "SN-001")
	// A malformed registry dump can contain the same device ID twice under
	// the same via-parent (e.g. a duplicate identifier record); the walk
	// then visits "dev-dup" a second time and must abort rather than loop.
	dup1 := mkDevice("dev-dup", "SN-001_dup", "dev-panel", ModelCircuit)
	dup2 := mkDevice("dev-dup", "SN-001_dup", "dev-panel", ModelCircuit)

	trees, warnings := BuildTrees([]*Device{panel, dup1, dup2}, nil, "span_ebus")
	assert.Empty(t, trees, "a tree whose walk hits a cycle is dropped entirely")
	require.NotEmpty(t, warnings)
}

func TestBuildTrees_NoPanelDevicesReturnsNil(t *testing.T) {
	trees, warnings := BuildTrees(nil, nil, "span_ebus")
	assert.Nil(t, trees)
	assert.Nil(t, warnings)
}

func TestAttachEntities_GroupsByDeviceID(t *testing.T) {
	panel := mkPanel("dev-panel", "SN-001")
	circuit := mkDevice("dev-c1", "SN-001_1", "dev-panel", ModelCircuit)
	entities := []Entity{
		{EntityID: "sensor.a", UniqueID: "u1", DeviceID: "dev-c1", Platform: "span_ebus"},
		{EntityID: "sensor.b", UniqueID: "u2", DeviceID: "dev-panel", Platform: "span_ebus"},
		{EntityID: "sensor.c", UniqueID: "u3", DeviceID: "", Platform: "span_ebus"},
	}
	trees, _ := BuildTrees([]*Device{panel, circuit}, entities, "span_ebus")
	require.Len(t, trees, 1)
	assert.Len(t, trees[0].Circuits[0].Entities, 1)
	assert.Len(t, trees[0].Panel.Entities, 1)
}

func TestPanelTree_Serial(t *testing.T) {
	tree := &PanelTree{Panel: mkPanel("dev-panel", "SN-001")}
	serial, ok := tree.Serial("span_ebus")
	require.True(t, ok)
	assert.Equal(t, "SN-001", serial)

	_, ok = tree.Serial("powerwall")
	assert.False(t, ok)
}
