// Package audit reports dashboard/registry misconfigurations alongside
// (but never mutating) the topology engine's own decisions, grounded on
// ha_atlas/audit.py's three diagnostics: circuits with no assigned area,
// enabled energy sensors missing from the dashboard, and disabled
// energy-relevant entities.
package audit

import "github.com/electrification-bus/hass-atlas/internal/registry"

// MissingArea is a circuit device with no area_id set.
type MissingArea struct {
	Circuit *registry.Device
}

// EnergyGap is an enabled cumulative-energy sensor absent from the
// dashboard's known entity_id set.
type EnergyGap struct {
	Device *registry.Device
	Entity registry.Entity
}

// DisabledEnergySensor is a disabled entity whose device_class is
// "energy" — a sensor that would otherwise be dashboard-eligible.
type DisabledEnergySensor struct {
	Device *registry.Device
	Entity registry.Entity
}

// Report bundles the three diagnostics for one run across all trees.
type Report struct {
	MissingAreas     []MissingArea
	EnergyGaps       []EnergyGap
	DisabledSensors  []DisabledEnergySensor
}

// Build runs all three diagnostics over trees, given the set of
// entity_ids already referenced by the dashboard preferences document.
func Build(trees []*registry.PanelTree, dashboardEntityIDs map[string]bool) Report {
	var report Report
	for _, tree := range trees {
		for _, circuit := range tree.Circuits {
			if circuit.AreaID == "" {
				report.MissingAreas = append(report.MissingAreas, MissingArea{Circuit: circuit})
			}
		}

		allDevices := allTreeDevices(tree)
		for _, device := range allDevices {
			for _, entity := range device.Entities {
				if entity.DeviceClass == "energy" && entity.StateClass == "total_increasing" &&
					!entity.Disabled() && !dashboardEntityIDs[entity.EntityID] {
					report.EnergyGaps = append(report.EnergyGaps, EnergyGap{Device: device, Entity: entity})
				}
				if entity.Disabled() && entity.DeviceClass == "energy" {
					report.DisabledSensors = append(report.DisabledSensors, DisabledEnergySensor{Device: device, Entity: entity})
				}
			}
		}
	}
	return report
}

func allTreeDevices(tree *registry.PanelTree) []*registry.Device {
	out := make([]*registry.Device, 0, 2+len(tree.Circuits)+len(tree.AllChildDevices()))
	out = append(out, tree.Panel)
	out = append(out, tree.AllChildDevices()...)
	out = append(out, tree.Circuits...)
	return out
}

// Clean reports whether no diagnostic found anything to flag.
func (r Report) Clean() bool {
	return len(r.MissingAreas) == 0 && len(r.EnergyGaps) == 0 && len(r.DisabledSensors) == 0
}
