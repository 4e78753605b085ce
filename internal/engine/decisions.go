package engine

import (
	"fmt"
	"strings"

	"github.com/electrification-bus/hass-atlas/internal/registry"
)

// findUpstreamEnergy resolves the Panel's upstream imported/exported
// energy entity via the three-step fallback chain in spec §4.5:
//  1. on the Panel device, a unique-id ending "lugs-upstream_{suffix}"
//  2. on the site-metering child, unique-id ending "_{suffix}"
//  3. generic "_{suffix}" on the Panel
func findUpstreamEnergy(tree *registry.PanelTree, suffix string) (registry.Entity, bool) {
	if e, ok := FindBySuffix(tree.Panel, "lugs-upstream_"+suffix); ok {
		return e, true
	}
	if tree.SiteMetering != nil {
		if e, ok := FindBySuffix(tree.SiteMetering, suffix); ok {
			return e, true
		}
	}
	return FindBySuffix(tree.Panel, suffix)
}

// findCircuitEntity finds an entity on circuit by unique-id suffix.
func findCircuitEntity(circuit *registry.Device, suffix string) (registry.Entity, bool) {
	return FindBySuffix(circuit, suffix)
}

func findCircuitByNodeID(trees []*registry.PanelTree, nodeID string, panelIntegration registry.PanelIntegration) *registry.Device {
	for _, tree := range trees {
		for _, circuit := range tree.Circuits {
			if id, ok := CircuitNodeID(circuit, panelIntegration); ok && id == nodeID {
				return circuit
			}
		}
	}
	return nil
}

// deviceIDToSerial builds a map from Panel device ID to Panel serial,
// needed to follow the via-device chain between trees.
func deviceIDToSerial(trees []*registry.PanelTree, panelIntegration registry.PanelIntegration) map[string]string {
	out := make(map[string]string, len(trees))
	for _, tree := range trees {
		if serial, ok := tree.Serial(panelIntegration); ok {
			out[tree.Panel.ID] = serial
		}
	}
	return out
}

// topoSortTrees orders trees root-first (breadth-first from roots) so that
// a parent Panel's consumption assignment exists before its children
// reference it as a Sankey parent (spec §4.5).
func topoSortTrees(trees []*registry.PanelTree, panelIntegration registry.PanelIntegration) []*registry.PanelTree {
	bySerial := make(map[string]*registry.PanelTree, len(trees))
	for _, t := range trees {
		if serial, ok := t.Serial(panelIntegration); ok {
			bySerial[serial] = t
		}
	}
	d2s := deviceIDToSerial(trees, panelIntegration)

	children := make(map[string][]string)
	var roots []string
	for _, t := range trees {
		serial, ok := t.Serial(panelIntegration)
		if !ok {
			continue
		}
		parentSerial, hasParent := d2s[t.Panel.ViaDeviceID]
		if hasParent {
			if _, exists := bySerial[parentSerial]; exists {
				children[parentSerial] = append(children[parentSerial], serial)
				continue
			}
		}
		roots = append(roots, serial)
	}

	var result []*registry.PanelTree
	seen := make(map[string]bool)
	queue := append([]string{}, roots...)
	for len(queue) > 0 {
		s := queue[0]
		queue = queue[1:]
		if seen[s] {
			continue
		}
		seen[s] = true
		result = append(result, bySerial[s])
		queue = append(queue, children[s]...)
	}
	for _, t := range trees {
		if serial, ok := t.Serial(panelIntegration); ok && !seen[serial] {
			result = append(result, t)
			seen[serial] = true
		}
	}
	return result
}

// BuildTopology combines trees, topologies, discovered integrations, and
// circuit roles into the engine's final output, per spec §4.5.
//
// Its central invariant is double-count freedom: preferred assignments for
// {grid_import, grid_export, solar, battery_charge, battery_discharge} are
// pairwise disjoint across roles except where a single entity legitimately
// plays both itself and a device_consumption parent.
func BuildTopology(
	trees []*registry.PanelTree,
	topologies []PanelTopology,
	integrations []EnergyIntegration,
	circuitRoles []CircuitRole,
	panelIntegration registry.PanelIntegration,
) *EnergyTopology {
	var assignments []RoleAssignment
	var warnings []string

	allBESSUpstream := len(topologies) > 0
	var anyBESSUpstream, anyBESSNotUpstream bool
	for _, t := range topologies {
		if t.Battery.Position == PositionUpstream {
			anyBESSUpstream = true
		} else if t.Battery.Present() {
			anyBESSNotUpstream = true
		}
		if t.Battery.Position != PositionUpstream {
			allBESSUpstream = false
		}
	}
	if anyBESSUpstream && anyBESSNotUpstream {
		warnings = append(warnings, "panels disagree on battery position (some upstream, some not)")
	}

	var bessVendor string
	for _, t := range topologies {
		if t.Battery.Vendor != "" {
			bessVendor = t.Battery.Vendor
			break
		}
	}
	bessIntegration, hasBESSIntegration := FindIntegrationForVendor(bessVendor, integrations)

	var pvVendor string
	for _, t := range topologies {
		if t.Solar.Vendor != "" {
			pvVendor = t.Solar.Vendor
			break
		}
	}
	pvIntegration, hasPVIntegration := FindIntegrationForVendor(pvVendor, integrations)

	// --- Grid source ---
	if allBESSUpstream && hasBESSIntegration {
		if imp, ok := findEntityOnIntegrationContaining(bessIntegration, "import"); ok {
			siteImport := imp
			if e, ok := findEntityOnIntegrationContaining(bessIntegration, "site_import"); ok {
				siteImport = e
			}
			assignments = append(assignments, RoleAssignment{
				Role: RoleGridImport, EntityID: siteImport.EntityID, Platform: bessIntegration.Platform,
				Preferred: true,
				Rationale: fmt.Sprintf("battery upstream on all panels — %s meters true grid", bessIntegration.Platform),
			})
		}
		if exp, ok := findEntityOnIntegrationContaining(bessIntegration, "export"); ok {
			siteExport := exp
			if e, ok := findEntityOnIntegrationContaining(bessIntegration, "site_export"); ok {
				siteExport = e
			}
			assignments = append(assignments, RoleAssignment{
				Role: RoleGridExport, EntityID: siteExport.EntityID, Platform: bessIntegration.Platform,
				Preferred: true,
				Rationale: fmt.Sprintf("battery upstream on all panels — %s meters true grid", bessIntegration.Platform),
			})
		}
		for _, tree := range trees {
			if imp, ok := findUpstreamEnergy(tree, "imported-energy"); ok {
				assignments = append(assignments, RoleAssignment{
					Role: RoleGridImport, EntityID: imp.EntityID, Platform: string(panelIntegration),
					Preferred: false,
					Rationale: "battery upstream — panel upstream is post-battery, not true grid",
				})
			}
			if exp, ok := findUpstreamEnergy(tree, "exported-energy"); ok {
				assignments = append(assignments, RoleAssignment{
					Role: RoleGridExport, EntityID: exp.EntityID, Platform: string(panelIntegration),
					Preferred: false,
					Rationale: "battery upstream — panel upstream is post-battery, not true grid",
				})
			}
		}
		warnings = append(warnings, fmt.Sprintf("battery upstream of all panels (vendor=%s) — using %s for grid metering", bessVendor, bessIntegration.Platform))
	} else {
		for _, tree := range trees {
			if imp, ok := findUpstreamEnergy(tree, "imported-energy"); ok {
				assignments = append(assignments, RoleAssignment{
					Role: RoleGridImport, EntityID: imp.EntityID, Platform: string(panelIntegration),
					Preferred: true,
					Rationale: "panel upstream metering — no upstream battery or no matching integration",
				})
			}
			if exp, ok := findUpstreamEnergy(tree, "exported-energy"); ok {
				assignments = append(assignments, RoleAssignment{
					Role: RoleGridExport, EntityID: exp.EntityID, Platform: string(panelIntegration),
					Preferred: true,
					Rationale: "panel upstream metering — no upstream battery or no matching integration",
				})
			}
		}
	}

	// --- Battery source (site-wide: emit once) ---
	for _, topo := range topologies {
		if topo.Battery.Position == PositionInPanel && topo.Battery.FeedCircuitNodeID != "" {
			circuit := findCircuitByNodeID(trees, topo.Battery.FeedCircuitNodeID, panelIntegration)
			var rate string
			if circuit != nil {
				if p, ok := findCircuitEntity(circuit, "active-power"); ok {
					rate = p.EntityID
				}
				if d, ok := findCircuitEntity(circuit, "imported-energy"); ok {
					assignments = append(assignments, RoleAssignment{
						Role: RoleBatteryDischarge, EntityID: d.EntityID, Platform: string(panelIntegration),
						Preferred: true, RateEntityID: rate,
						Rationale: "battery in-panel — circuit imported-energy is discharge",
					})
				}
				if c, ok := findCircuitEntity(circuit, "exported-energy"); ok {
					assignments = append(assignments, RoleAssignment{
						Role: RoleBatteryCharge, EntityID: c.EntityID, Platform: string(panelIntegration),
						Preferred: true, RateEntityID: rate,
						Rationale: "battery in-panel — circuit exported-energy is charge",
					})
				}
			}
			if hasBESSIntegration {
				for _, e := range bessIntegration.EnergyEntities {
					if !strings.Contains(e.EntityID, "battery") {
						continue
					}
					role := RoleBatteryCharge
					if strings.Contains(e.EntityID, "export") {
						role = RoleBatteryDischarge
					}
					assignments = append(assignments, RoleAssignment{
						Role: role, EntityID: e.EntityID, Platform: bessIntegration.Platform,
						Preferred: false,
						Rationale: "battery in-panel — circuit is preferred for measurement consistency",
					})
				}
			}
			break
		} else if topo.Battery.Position == PositionUpstream && hasBESSIntegration {
			for _, e := range bessIntegration.EnergyEntities {
				if !strings.Contains(e.EntityID, "battery") {
					continue
				}
				if strings.Contains(e.EntityID, "export") {
					assignments = append(assignments, RoleAssignment{
						Role: RoleBatteryDischarge, EntityID: e.EntityID, Platform: bessIntegration.Platform,
						Preferred: true,
						Rationale: fmt.Sprintf("battery upstream — %s meters battery", bessIntegration.Platform),
					})
				} else if strings.Contains(e.EntityID, "import") {
					assignments = append(assignments, RoleAssignment{
						Role: RoleBatteryCharge, EntityID: e.EntityID, Platform: bessIntegration.Platform,
						Preferred: true,
						Rationale: fmt.Sprintf("battery upstream — %s meters battery", bessIntegration.Platform),
					})
				}
			}
			break
		}
	}

	// --- Solar source (emit once) ---
	solarAssigned := false
	for _, topo := range topologies {
		if topo.Solar.Position == PositionInPanel && topo.Solar.FeedCircuitNodeID != "" {
			circuit := findCircuitByNodeID(trees, topo.Solar.FeedCircuitNodeID, panelIntegration)
			if circuit != nil {
				if s, ok := findCircuitEntity(circuit, "imported-energy"); ok {
					var rate string
					if p, ok := findCircuitEntity(circuit, "active-power"); ok {
						rate = p.EntityID
					}
					assignments = append(assignments, RoleAssignment{
						Role: RoleSolar, EntityID: s.EntityID, Platform: string(panelIntegration),
						Preferred: true, RateEntityID: rate,
						Rationale: "PV in-panel — circuit imported-energy is solar production",
					})
					solarAssigned = true
				}
			}
			if hasPVIntegration {
				for _, e := range pvIntegration.EnergyEntities {
					assignments = append(assignments, RoleAssignment{
						Role: RoleSolar, EntityID: e.EntityID, Platform: pvIntegration.Platform,
						Preferred: false,
						Rationale: "PV in-panel — circuit is preferred for measurement consistency",
					})
				}
			}
			break
		} else if topo.Solar.Position == PositionUpstream && hasPVIntegration {
			for _, e := range pvIntegration.EnergyEntities {
				assignments = append(assignments, RoleAssignment{
					Role: RoleSolar, EntityID: e.EntityID, Platform: pvIntegration.Platform,
					Preferred: true,
					Rationale: fmt.Sprintf("PV upstream — %s meters solar", pvIntegration.Platform),
				})
			}
			solarAssigned = true
			break
		}
	}
	if !solarAssigned {
		for _, tree := range trees {
			if tree.Solar == nil {
				continue
			}
			if s, ok := findCircuitEntity(tree.Solar, "imported-energy"); ok {
				var rate string
				if p, ok := findCircuitEntity(tree.Solar, "active-power"); ok {
					rate = p.EntityID
				}
				assignments = append(assignments, RoleAssignment{
					Role: RoleSolar, EntityID: s.EntityID, Platform: string(panelIntegration),
					Preferred: true, RateEntityID: rate,
					Rationale: "panel solar device — no dedicated PV integration found",
				})
				break
			}
		}
	}

	// --- Device consumption with Sankey hierarchy ---
	preferredGridImportEIDs := make(map[string]bool)
	for _, a := range assignments {
		if a.Role == RoleGridImport && a.Preferred {
			preferredGridImportEIDs[a.EntityID] = true
		}
	}

	sortedTrees := topoSortTrees(trees, panelIntegration)
	panelParentEID := make(map[string]string) // serial -> entity_id

	for _, tree := range sortedTrees {
		serial, ok := tree.Serial(panelIntegration)
		if !ok {
			continue
		}
		upstream, ok := findUpstreamEnergy(tree, "imported-energy")
		if !ok || preferredGridImportEIDs[upstream.EntityID] {
			continue
		}
		var parentEID string
		if tree.Panel.ViaDeviceID != "" {
			d2s := deviceIDToSerial(trees, panelIntegration)
			if parentSerial, ok := d2s[tree.Panel.ViaDeviceID]; ok {
				parentEID = panelParentEID[parentSerial]
			}
		}
		var rate string
		if p, ok := findUpstreamEnergy(tree, "active-power"); ok {
			rate = p.EntityID
		}
		assignments = append(assignments, RoleAssignment{
			Role: RoleDeviceConsumption, EntityID: upstream.EntityID, Platform: string(panelIntegration),
			Preferred: true, ParentEntityID: parentEID, RateEntityID: rate,
			Rationale: "panel total energy — Sankey hierarchy parent",
		})
		panelParentEID[serial] = upstream.EntityID
	}

	circuitRoleByID := make(map[string]CircuitRole, len(circuitRoles))
	for _, cr := range circuitRoles {
		circuitRoleByID[cr.Circuit.ID] = cr
	}
	for _, tree := range trees {
		serial, _ := tree.Serial(panelIntegration)
		parentEID := panelParentEID[serial]
		for _, circuit := range tree.Circuits {
			cr, hasCR := circuitRoleByID[circuit.ID]
			if hasCR && cr.SkipConsumption {
				continue
			}
			consumption, ok := findCircuitEntity(circuit, "exported-energy")
			if !ok {
				continue
			}
			var rate string
			if p, ok := findCircuitEntity(circuit, "active-power"); ok {
				rate = p.EntityID
			}
			rationale := "circuit consumption"
			if hasCR {
				rationale = cr.Rationale
			}
			assignments = append(assignments, RoleAssignment{
				Role: RoleDeviceConsumption, EntityID: consumption.EntityID, Platform: string(panelIntegration),
				Preferred: true, ParentEntityID: parentEID, RateEntityID: rate,
				Rationale: rationale,
			})
		}
	}

	return &EnergyTopology{
		Panels:          topologies,
		Integrations:    integrations,
		CircuitRoles:    circuitRoles,
		RoleAssignments: assignments,
		Warnings:        warnings,
	}
}
