package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/electrification-bus/hass-atlas/internal/registry"
)

func TestDiscoverIntegrations_GroupsByPlatformExcludingPanel(t *testing.T) {
	devA := &registry.Device{ID: "dev-a"}
	devB := &registry.Device{ID: "dev-b"}
	entities := []registry.Entity{
		energyEntity("sensor.pw_import", "u1", "dev-a", "powerwall"),
		energyEntity("sensor.pw_export", "u2", "dev-a", "powerwall"),
		energyEntity("sensor.env_solar", "u3", "dev-b", "enphase_envoy"),
		energyEntity("sensor.panel_upstream", "u4", "dev-panel", "span_ebus"),
	}
	out := DiscoverIntegrations([]*registry.Device{devA, devB}, entities, testPanelIntegration)

	require.Len(t, out, 2, "platforms are sorted lexically: enphase_envoy before powerwall")
	assert.Equal(t, "enphase_envoy", out[0].Platform)
	assert.Equal(t, "powerwall", out[1].Platform)
	assert.Len(t, out[1].EnergyEntities, 2)
	require.Len(t, out[1].Devices, 1)
	assert.Same(t, devA, out[1].Devices[0])
}

func TestDiscoverIntegrations_FiltersNonEnergyAndDisabled(t *testing.T) {
	powerSensor := entity("sensor.power", "u1", "dev-a", "powerwall")
	powerSensor.DeviceClass, powerSensor.StateClass = "power", "measurement"
	disabledEnergy := energyEntity("sensor.disabled", "u2", "dev-a", "powerwall")
	disabledEnergy.DisabledBy = "user"

	out := DiscoverIntegrations(nil, []registry.Entity{powerSensor, disabledEnergy}, testPanelIntegration)
	assert.Empty(t, out)
}

func TestDiscoverIntegrations_DedupsDevicesWithinPlatform(t *testing.T) {
	devA := &registry.Device{ID: "dev-a"}
	entities := []registry.Entity{
		energyEntity("sensor.a1", "u1", "dev-a", "powerwall"),
		energyEntity("sensor.a2", "u2", "dev-a", "powerwall"),
	}
	out := DiscoverIntegrations([]*registry.Device{devA}, entities, testPanelIntegration)
	require.Len(t, out, 1)
	assert.Len(t, out[0].Devices, 1)
	assert.Len(t, out[0].EnergyEntities, 2)
}
