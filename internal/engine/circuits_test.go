package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/electrification-bus/hass-atlas/internal/registry"
)

func TestCircuitNodeID_SplitsOnFirstUnderscore(t *testing.T) {
	circuit := circuitDevice("dev-c1", "SN-1", "7", "dev-panel")
	id, ok := CircuitNodeID(circuit, testPanelIntegration)
	require.True(t, ok)
	assert.Equal(t, "7", id)
}

func TestCircuitNodeID_NoUnderscoreOrNoIdentifier(t *testing.T) {
	noUnderscore := &registry.Device{Identifiers: []registry.Identifier{{Domain: "span_ebus", LocalID: "SN-1"}}}
	_, ok := CircuitNodeID(noUnderscore, testPanelIntegration)
	assert.False(t, ok)

	noIdentifier := &registry.Device{}
	_, ok = CircuitNodeID(noIdentifier, testPanelIntegration)
	assert.False(t, ok)
}

func TestClassifyCircuits_PlainLoadSuppressesReturnEnergy(t *testing.T) {
	panel := panelDevice("dev-panel", "SN-1")
	circuit := circuitDevice("dev-c1", "SN-1", "1", "dev-panel")
	trees, _ := registry.BuildTrees([]*registry.Device{panel, circuit}, nil, testPanelIntegration)

	roles := ClassifyCircuits(trees, nil, testPanelIntegration)
	require.Len(t, roles, 1)
	assert.Equal(t, RoleLoad, roles[0].Role)
	assert.True(t, roles[0].SkipReturnEnergy)
	assert.False(t, roles[0].SkipConsumption)
}

func TestClassifyCircuits_PVFeedInPanelKeepsBothDirections(t *testing.T) {
	panel := panelDevice("dev-panel", "SN-1")
	pvFeed := circuitDevice("dev-c1", "SN-1", "7", "dev-panel")
	trees, _ := registry.BuildTrees([]*registry.Device{panel, pvFeed}, nil, testPanelIntegration)
	topo := PanelTopology{Serial: "SN-1", Solar: SubsystemTopology{Position: PositionInPanel, FeedCircuitNodeID: "7"}}

	roles := ClassifyCircuits(trees, []PanelTopology{topo}, testPanelIntegration)
	require.Len(t, roles, 1)
	assert.Equal(t, RolePVFeed, roles[0].Role)
	assert.False(t, roles[0].SkipReturnEnergy)
	assert.False(t, roles[0].SkipConsumption)
}

func TestClassifyCircuits_PVFeedUpstreamSuppressesReturnEnergy(t *testing.T) {
	panel := panelDevice("dev-panel", "SN-1")
	pvFeed := circuitDevice("dev-c1", "SN-1", "7", "dev-panel")
	trees, _ := registry.BuildTrees([]*registry.Device{panel, pvFeed}, nil, testPanelIntegration)
	topo := PanelTopology{Serial: "SN-1", Solar: SubsystemTopology{Position: PositionUpstream, FeedCircuitNodeID: "7"}}

	roles := ClassifyCircuits(trees, []PanelTopology{topo}, testPanelIntegration)
	require.Len(t, roles, 1)
	assert.Equal(t, RolePVFeed, roles[0].Role)
	assert.True(t, roles[0].SkipReturnEnergy)
}

func TestClassifyCircuits_BESSFeedInPanelSkipsConsumption(t *testing.T) {
	panel := panelDevice("dev-panel", "SN-1")
	bessFeed := circuitDevice("dev-c1", "SN-1", "3", "dev-panel")
	trees, _ := registry.BuildTrees([]*registry.Device{panel, bessFeed}, nil, testPanelIntegration)
	topo := PanelTopology{Serial: "SN-1", Battery: SubsystemTopology{Position: PositionInPanel, FeedCircuitNodeID: "3"}}

	roles := ClassifyCircuits(trees, []PanelTopology{topo}, testPanelIntegration)
	require.Len(t, roles, 1)
	assert.Equal(t, RoleBESSFeed, roles[0].Role)
	assert.False(t, roles[0].SkipReturnEnergy)
	assert.True(t, roles[0].SkipConsumption)
}

func TestClassifyCircuits_BESSFeedDownstreamOfDedicatedIntegration(t *testing.T) {
	panel := panelDevice("dev-panel", "SN-1")
	bessFeed := circuitDevice("dev-c1", "SN-1", "3", "dev-panel")
	trees, _ := registry.BuildTrees([]*registry.Device{panel, bessFeed}, nil, testPanelIntegration)
	topo := PanelTopology{Serial: "SN-1", Battery: SubsystemTopology{Position: PositionDownstream, FeedCircuitNodeID: "3"}}

	roles := ClassifyCircuits(trees, []PanelTopology{topo}, testPanelIntegration)
	require.Len(t, roles, 1)
	assert.Equal(t, RoleBESSFeed, roles[0].Role)
	assert.True(t, roles[0].SkipReturnEnergy)
	assert.False(t, roles[0].SkipConsumption)
}
