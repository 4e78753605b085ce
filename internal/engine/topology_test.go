package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/electrification-bus/hass-atlas/internal/registry"
)

func TestFindBySuffix_SkipsDisabledEntities(t *testing.T) {
	device := &registry.Device{Entities: []registry.Entity{
		{EntityID: "sensor.a", UniqueID: "x_vendor-name", DisabledBy: "user"},
		{EntityID: "sensor.b", UniqueID: "y_vendor-name"},
	}}
	e, ok := FindBySuffix(device, "_vendor-name")
	require.True(t, ok)
	assert.Equal(t, "sensor.b", e.EntityID)
}

func TestFindBySuffix_NilDeviceOrNoMatch(t *testing.T) {
	_, ok := FindBySuffix(nil, "_vendor-name")
	assert.False(t, ok)

	device := &registry.Device{Entities: []registry.Entity{{EntityID: "sensor.a", UniqueID: "x_model"}}}
	_, ok = FindBySuffix(device, "_vendor-name")
	assert.False(t, ok)
}

func TestExtractTopologies_DecodesSubsystemFromStates(t *testing.T) {
	panel := panelDevice("dev-panel", "SN-1")
	battery := subDevice("dev-bat", "SN-1", "battery", "dev-panel", registry.ModelBattery)
	battery.Entities = []registry.Entity{
		{EntityID: "sensor.pos", UniqueID: "SN-1_battery_relative-position"},
		{EntityID: "sensor.vendor", UniqueID: "SN-1_battery_vendor-name"},
		{EntityID: "sensor.model", UniqueID: "SN-1_battery_model"},
		{EntityID: "sensor.serial", UniqueID: "SN-1_battery_serial-number"},
		{EntityID: "sensor.feed", UniqueID: "SN-1_battery_feed"},
	}
	states := registry.StateMap{
		"sensor.pos":    {State: "upstream"},
		"sensor.vendor": {State: "Tesla"},
		"sensor.model":  {State: "Powerwall 3"},
		"sensor.serial": {State: "TSL-001"},
		"sensor.feed":   {State: "Main Feed", Attributes: map[string]interface{}{"circuit_id": "7"}},
	}

	trees, warnings := registry.BuildTrees([]*registry.Device{panel, battery}, nil, testPanelIntegration)
	require.Empty(t, warnings)
	topos := ExtractTopologies(trees, testPanelIntegration, states)
	require.Len(t, topos, 1)

	bat := topos[0].Battery
	assert.Equal(t, PositionUpstream, bat.Position)
	assert.Equal(t, "Tesla", bat.Vendor)
	assert.Equal(t, "Powerwall 3", bat.Model)
	assert.Equal(t, "TSL-001", bat.Serial)
	assert.Equal(t, "Main Feed", bat.FeedCircuitName)
	assert.Equal(t, "7", bat.FeedCircuitNodeID)
	assert.True(t, bat.Present())
}

func TestExtractTopologies_ModelFallsBackToProductName(t *testing.T) {
	panel := panelDevice("dev-panel", "SN-1")
	solar := subDevice("dev-solar", "SN-1", "solar", "dev-panel", registry.ModelSolar)
	solar.Entities = []registry.Entity{
		{EntityID: "sensor.product", UniqueID: "SN-1_solar_product-name"},
	}
	states := registry.StateMap{"sensor.product": {State: "Encharge 10"}}

	trees, _ := registry.BuildTrees([]*registry.Device{panel, solar}, nil, testPanelIntegration)
	topos := ExtractTopologies(trees, testPanelIntegration, states)
	require.Len(t, topos, 1)
	assert.Equal(t, "Encharge 10", topos[0].Solar.Model)
}

func TestExtractTopologies_SkipsTreesWithoutResolvableSerial(t *testing.T) {
	panel := &registry.Device{ID: "dev-panel", Model: registry.ModelPanel, Identifiers: []registry.Identifier{{Domain: "span_ebus", LocalID: ""}}}
	trees, _ := registry.BuildTrees([]*registry.Device{panel}, nil, testPanelIntegration)
	topos := ExtractTopologies(trees, testPanelIntegration, nil)
	assert.Empty(t, topos)
}

func TestSubsystemTopology_AbsentWhenNoEvidence(t *testing.T) {
	var sub SubsystemTopology
	assert.False(t, sub.Present())
}
