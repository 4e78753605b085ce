package prefs

import "github.com/electrification-bus/hass-atlas/internal/engine"

// BuildFromTopology converts preferred role assignments into a proposed
// Document — the SPAN-managed slice of the dashboard config that Apply
// will reconcile against whatever the user already has saved (spec §4.6,
// grounded on build_topology_aware_config).
func BuildFromTopology(topo *engine.EnergyTopology) Document {
	var sources []Source
	var consumption []Consumption

	var gridImport, gridExport []engine.RoleAssignment
	var solar []engine.RoleAssignment
	var battDischarge, battCharge []engine.RoleAssignment
	var deviceConsumption []engine.RoleAssignment

	for _, a := range topo.Preferred() {
		switch a.Role {
		case engine.RoleGridImport:
			gridImport = append(gridImport, a)
		case engine.RoleGridExport:
			gridExport = append(gridExport, a)
		case engine.RoleSolar:
			solar = append(solar, a)
		case engine.RoleBatteryDischarge:
			battDischarge = append(battDischarge, a)
		case engine.RoleBatteryCharge:
			battCharge = append(battCharge, a)
		case engine.RoleDeviceConsumption:
			deviceConsumption = append(deviceConsumption, a)
		}
	}

	if len(gridImport) > 0 || len(gridExport) > 0 {
		grid := Source{Type: SourceGrid, Extra: NewExtras()}
		for _, a := range gridImport {
			grid.FlowFrom = append(grid.FlowFrom, FlowFrom{StatEnergyFrom: a.EntityID, Extra: NewExtras()})
			if grid.StatRate == "" {
				grid.StatRate = a.RateEntityID
			}
		}
		for _, a := range gridExport {
			grid.FlowTo = append(grid.FlowTo, FlowTo{StatEnergyTo: a.EntityID, Extra: NewExtras()})
			if grid.StatRate == "" {
				grid.StatRate = a.RateEntityID
			}
		}
		sources = append(sources, grid)
	}

	for _, a := range solar {
		sources = append(sources, Source{Type: SourceSolar, StatEnergyFrom: a.EntityID, StatRate: a.RateEntityID, Extra: NewExtras()})
	}

	if len(battDischarge) > 0 || len(battCharge) > 0 {
		batt := Source{Type: SourceBattery, Extra: NewExtras()}
		if len(battDischarge) > 0 {
			batt.StatEnergyFrom = battDischarge[0].EntityID
			batt.StatRate = battDischarge[0].RateEntityID
		}
		if len(battCharge) > 0 {
			batt.StatEnergyTo = battCharge[0].EntityID
			if batt.StatRate == "" {
				batt.StatRate = battCharge[0].RateEntityID
			}
		}
		sources = append(sources, batt)
	}

	for _, a := range deviceConsumption {
		consumption = append(consumption, Consumption{
			StatConsumption: a.EntityID,
			IncludedInStat:  a.ParentEntityID,
			StatRate:        a.RateEntityID,
			Extra:           NewExtras(),
		})
	}

	return Document{EnergySources: sources, DeviceConsumption: consumption, TopLevelExtra: NewExtras()}
}
