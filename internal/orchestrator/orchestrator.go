// Package orchestrator assembles the pure pipeline stages in
// internal/registry and internal/engine into the two top-level
// operations the CLI exposes: a plain energy-dashboard sync and a
// topology-aware one (spec §4.7).
package orchestrator

import (
	"github.com/electrification-bus/hass-atlas/internal/engine"
	"github.com/electrification-bus/hass-atlas/internal/prefs"
	"github.com/electrification-bus/hass-atlas/internal/registry"
)

// Result bundles everything one pipeline run produced, for the CLI layer
// to render and the caller to decide whether to persist.
type Result struct {
	Trees    []*registry.PanelTree
	Topology *engine.EnergyTopology
	Current  prefs.Document
	Proposed prefs.Document
	Warnings []string
}

// BuildTopologyAware runs the full topology-aware pipeline (spec §4.1–4.6)
// over snap/states and reconciles against current, per spec §4.7.
func BuildTopologyAware(snap *registry.Snapshot, states registry.StateMap, panelIntegration registry.PanelIntegration, current prefs.Document) Result {
	registry.EnrichFromStates(snap.Entities, states)

	trees, treeWarnings := registry.BuildTrees(snap.Devices, snap.Entities, panelIntegration)
	topologies := engine.ExtractTopologies(trees, panelIntegration, states)
	integrations := engine.DiscoverIntegrations(snap.Devices, snap.Entities, panelIntegration)
	circuitRoles := engine.ClassifyCircuits(trees, topologies, panelIntegration)
	topo := engine.BuildTopology(trees, topologies, integrations, circuitRoles, panelIntegration)

	proposed := prefs.Apply(current, topo)

	warnings := append([]string(nil), treeWarnings...)
	warnings = append(warnings, topo.Warnings...)

	return Result{
		Trees:    trees,
		Topology: topo,
		Current:  current,
		Proposed: proposed,
		Warnings: warnings,
	}
}

// BuildPlain runs the non-topology-aware energy command: a simple
// per-tree proposal merged additively into current, matching
// build_energy_config/merge_prefs (spec §12's non-topology `energy`
// command, preserved from original_source for parity with its two
// configuration modes).
func BuildPlain(trees []*registry.PanelTree, panelIntegration registry.PanelIntegration, current prefs.Document) prefs.Document {
	proposed := buildPlainProposal(trees, panelIntegration)
	return prefs.Merge(current, proposed)
}

func buildPlainProposal(trees []*registry.PanelTree, panelIntegration registry.PanelIntegration) prefs.Document {
	var doc prefs.Document
	for _, tree := range trees {
		imported, hasImported := findPlain(tree, panelIntegration, "lugs-upstream_imported-energy", "imported-energy")
		exported, hasExported := findPlain(tree, panelIntegration, "lugs-upstream_exported-energy", "exported-energy")
		if hasImported || hasExported {
			grid := prefs.Source{Type: prefs.SourceGrid, Extra: prefs.NewExtras()}
			if hasImported {
				grid.FlowFrom = append(grid.FlowFrom, prefs.FlowFrom{StatEnergyFrom: imported.EntityID, Extra: prefs.NewExtras()})
			}
			if hasExported {
				grid.FlowTo = append(grid.FlowTo, prefs.FlowTo{StatEnergyTo: exported.EntityID, Extra: prefs.NewExtras()})
			}
			doc.EnergySources = append(doc.EnergySources, grid)
		}

		if tree.Solar != nil {
			if e, ok := findEntityBySuffix(tree.Solar, "imported-energy"); ok {
				doc.EnergySources = append(doc.EnergySources, prefs.Source{Type: prefs.SourceSolar, StatEnergyFrom: e.EntityID, Extra: prefs.NewExtras()})
			}
		}

		if tree.Battery != nil {
			discharge, hasDischarge := findEntityBySuffix(tree.Battery, "imported-energy")
			charge, hasCharge := findEntityBySuffix(tree.Battery, "exported-energy")
			if hasDischarge || hasCharge {
				batt := prefs.Source{Type: prefs.SourceBattery, Extra: prefs.NewExtras()}
				if hasDischarge {
					batt.StatEnergyFrom = discharge.EntityID
				}
				if hasCharge {
					batt.StatEnergyTo = charge.EntityID
				}
				doc.EnergySources = append(doc.EnergySources, batt)
			}
		}

		for _, circuit := range tree.Circuits {
			if e, ok := findEntityBySuffix(circuit, "exported-energy"); ok {
				doc.DeviceConsumption = append(doc.DeviceConsumption, prefs.Consumption{StatConsumption: e.EntityID, Extra: prefs.NewExtras()})
			}
		}
	}
	doc.TopLevelExtra = prefs.NewExtras()
	return doc
}

func findEntityBySuffix(device *registry.Device, suffix string) (registry.Entity, bool) {
	for _, e := range device.Entities {
		if !e.Disabled() && hasSuffixPlain(e.UniqueID, suffix) {
			return e, true
		}
	}
	return registry.Entity{}, false
}

func hasSuffixPlain(s, suffix string) bool {
	return len(s) >= len(suffix) && s[len(s)-len(suffix):] == suffix
}

// findPlain mirrors build_energy_config's three-step fallback chain:
// panel lugs-upstream -> site_metering child -> panel generic.
func findPlain(tree *registry.PanelTree, panelIntegration registry.PanelIntegration, panelSuffix, genericSuffix string) (registry.Entity, bool) {
	if e, ok := findEntityBySuffix(tree.Panel, panelSuffix); ok {
		return e, true
	}
	if tree.SiteMetering != nil {
		if e, ok := findEntityBySuffix(tree.SiteMetering, genericSuffix); ok {
			return e, true
		}
	}
	return findEntityBySuffix(tree.Panel, genericSuffix)
}
