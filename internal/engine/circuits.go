package engine

import (
	"fmt"
	"strings"

	"github.com/electrification-bus/hass-atlas/internal/registry"
)

// CircuitNodeID extracts a circuit device's node-id: the portion of its
// Panel-integration identifier's local-id after the first "_" separator,
// which delimits the Panel serial from the node-id (spec §4.4).
func CircuitNodeID(circuit *registry.Device, panelIntegration registry.PanelIntegration) (string, bool) {
	localID, ok := circuit.IdentifierLocalID(string(panelIntegration))
	if !ok {
		return "", false
	}
	idx := strings.Index(localID, "_")
	if idx < 0 {
		return "", false
	}
	return localID[idx+1:], true
}

// ClassifyCircuits tags each circuit across all trees as load, pv_feed,
// or bess_feed and records suppression flags, per spec §4.4. No circuit
// is tagged ev_feed.
func ClassifyCircuits(trees []*registry.PanelTree, topologies []PanelTopology, panelIntegration registry.PanelIntegration) []CircuitRole {
	topoBySerial := make(map[string]PanelTopology, len(topologies))
	for _, t := range topologies {
		topoBySerial[t.Serial] = t
	}

	var out []CircuitRole
	for _, tree := range trees {
		serial, ok := tree.Serial(panelIntegration)
		if !ok {
			continue
		}
		topo, hasTopo := topoBySerial[serial]

		for _, circuit := range tree.Circuits {
			nodeID, hasNode := CircuitNodeID(circuit, panelIntegration)

			if hasTopo && hasNode && topo.Solar.FeedCircuitNodeID != "" && nodeID == topo.Solar.FeedCircuitNodeID {
				out = append(out, classifyPVFeed(circuit, topo))
				continue
			}
			if hasTopo && hasNode && topo.Battery.FeedCircuitNodeID != "" && nodeID == topo.Battery.FeedCircuitNodeID {
				out = append(out, classifyBESSFeed(circuit, topo))
				continue
			}
			out = append(out, CircuitRole{
				Circuit:          circuit,
				Role:             RoleLoad,
				SkipReturnEnergy: true,
				SkipConsumption:  false,
				Rationale:        "pure load circuit: return energy suppressed (current-transformer noise)",
			})
		}
	}
	return out
}

func classifyPVFeed(circuit *registry.Device, topo PanelTopology) CircuitRole {
	if topo.Solar.Position == PositionInPanel {
		return CircuitRole{
			Circuit:          circuit,
			Role:             RolePVFeed,
			SkipReturnEnergy: false,
			SkipConsumption:  false,
			Rationale:        "PV feed circuit (in-panel): imported-energy is solar production, exported-energy is parasitic load",
		}
	}
	return CircuitRole{
		Circuit:          circuit,
		Role:             RolePVFeed,
		SkipReturnEnergy: true,
		SkipConsumption:  false,
		Rationale:        fmt.Sprintf("PV feed circuit (%s): solar metered by dedicated integration", topo.Solar.Position),
	}
}

func classifyBESSFeed(circuit *registry.Device, topo PanelTopology) CircuitRole {
	if topo.Battery.Position == PositionInPanel {
		return CircuitRole{
			Circuit:          circuit,
			Role:             RoleBESSFeed,
			SkipReturnEnergy: false,
			SkipConsumption:  true,
			Rationale:        "BESS feed circuit (in-panel): both directions are battery operations, excluded from device consumption",
		}
	}
	return CircuitRole{
		Circuit:          circuit,
		Role:             RoleBESSFeed,
		SkipReturnEnergy: true,
		SkipConsumption:  false,
		Rationale:        fmt.Sprintf("BESS feed circuit (%s): battery metered by dedicated integration", topo.Battery.Position),
	}
}
