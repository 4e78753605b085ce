package prefs

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/electrification-bus/hass-atlas/internal/engine"
)

func TestApply_AddsMissingPreferredSourceAndConsumption(t *testing.T) {
	topo := &engine.EnergyTopology{RoleAssignments: []engine.RoleAssignment{
		{Role: engine.RoleSolar, EntityID: "sensor.solar", Preferred: true},
		{Role: engine.RoleDeviceConsumption, EntityID: "sensor.c1", Preferred: true},
	}}
	result := Apply(Document{}, topo)
	require.Len(t, result.EnergySources, 1)
	assert.Equal(t, "sensor.solar", result.EnergySources[0].StatEnergyFrom)
	require.Len(t, result.DeviceConsumption, 1)
	assert.Equal(t, "sensor.c1", result.DeviceConsumption[0].StatConsumption)
}

func TestApply_PreservesExistingSourceObjectByteIdenticalWhenItMatchesPreferred(t *testing.T) {
	existingExtra := NewExtras()
	existingExtra.Set("stat_cost", json.RawMessage(`"sensor.solar_cost"`))
	current := Document{EnergySources: []Source{
		{Type: SourceSolar, StatEnergyFrom: "sensor.solar", Extra: existingExtra},
	}}
	topo := &engine.EnergyTopology{RoleAssignments: []engine.RoleAssignment{
		{Role: engine.RoleSolar, EntityID: "sensor.solar", Preferred: true},
	}}
	result := Apply(current, topo)
	require.Len(t, result.EnergySources, 1)
	_, hasCost := result.EnergySources[0].Extra.Get("stat_cost")
	assert.True(t, hasCost, "existing source's extra fields (e.g. stat_cost) survive Apply untouched")
}

func TestApply_RemovesSourceReferencingASkippedEntity(t *testing.T) {
	current := Document{EnergySources: []Source{
		{Type: SourceGrid, StatEnergyFrom: "sensor.panel-upstream"},
	}}
	topo := &engine.EnergyTopology{RoleAssignments: []engine.RoleAssignment{
		{Role: engine.RoleGridImport, EntityID: "sensor.panel-upstream", Preferred: false},
	}}
	result := Apply(current, topo)
	assert.Empty(t, result.EnergySources)
}

func TestApply_PreservesUserSourceTopologyHasNoOpinionOn(t *testing.T) {
	current := Document{EnergySources: []Source{
		{Type: SourceGas, StatEnergyFrom: "sensor.gas-meter"},
	}}
	topo := &engine.EnergyTopology{}
	result := Apply(current, topo)
	require.Len(t, result.EnergySources, 1)
	assert.Equal(t, "sensor.gas-meter", result.EnergySources[0].StatEnergyFrom)
}

func TestApply_ConsumptionSkippedEntryRemoved(t *testing.T) {
	current := Document{DeviceConsumption: []Consumption{
		{StatConsumption: "sensor.old-circuit"},
		{StatConsumption: "sensor.user-added"},
	}}
	topo := &engine.EnergyTopology{RoleAssignments: []engine.RoleAssignment{
		{Role: engine.RoleGridImport, EntityID: "sensor.old-circuit", Preferred: false},
	}}
	result := Apply(current, topo)
	require.Len(t, result.DeviceConsumption, 1)
	assert.Equal(t, "sensor.user-added", result.DeviceConsumption[0].StatConsumption)
}

func TestApply_NeverMutatesCurrent(t *testing.T) {
	current := Document{EnergySources: []Source{{Type: SourceSolar, StatEnergyFrom: "sensor.solar"}}}
	topo := &engine.EnergyTopology{}
	_ = Apply(current, topo)
	require.Len(t, current.EnergySources, 1)
}

func TestIntersectsAndIsSubset(t *testing.T) {
	a := map[string]bool{"x": true, "y": true}
	b := map[string]bool{"y": true, "z": true}
	assert.True(t, intersects(a, b))
	assert.False(t, intersects(map[string]bool{"x": true}, map[string]bool{"z": true}))

	assert.True(t, isSubset(map[string]bool{"x": true}, map[string]bool{"x": true, "y": true}))
	assert.False(t, isSubset(map[string]bool{"x": true, "y": true}, map[string]bool{"x": true}))
	assert.True(t, isSubset(map[string]bool{}, map[string]bool{}))
}
