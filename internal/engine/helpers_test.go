package engine

import "github.com/electrification-bus/hass-atlas/internal/registry"

const testPanelIntegration = registry.PanelIntegration("span_ebus")

func entity(entityID, uniqueID, deviceID, platform string) registry.Entity {
	return registry.Entity{EntityID: entityID, UniqueID: uniqueID, DeviceID: deviceID, Platform: platform}
}

func energyEntity(entityID, uniqueID, deviceID, platform string) registry.Entity {
	e := entity(entityID, uniqueID, deviceID, platform)
	e.DeviceClass, e.StateClass = "energy", "total_increasing"
	return e
}

func panelDevice(id, serial string) *registry.Device {
	return &registry.Device{ID: id, Model: registry.ModelPanel, Identifiers: []registry.Identifier{{Domain: "span_ebus", LocalID: serial}}}
}

// circuitDevice builds a circuit whose panel-integration local-id is
// "<serial>_<nodeID>", matching CircuitNodeID's parse.
func circuitDevice(id, serial, nodeID, via string) *registry.Device {
	return &registry.Device{
		ID:          id,
		Model:       registry.ModelCircuit,
		ViaDeviceID: via,
		Identifiers: []registry.Identifier{{Domain: "span_ebus", LocalID: serial + "_" + nodeID}},
	}
}

func subDevice(id, serial, suffix, via, model string) *registry.Device {
	return &registry.Device{
		ID:          id,
		Model:       model,
		ViaDeviceID: via,
		Identifiers: []registry.Identifier{{Domain: "span_ebus", LocalID: serial + "_" + suffix}},
	}
}
