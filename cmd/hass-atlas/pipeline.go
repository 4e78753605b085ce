package main

import (
	"fmt"
	"io"

	"github.com/electrification-bus/hass-atlas/internal/prefs"
	"github.com/electrification-bus/hass-atlas/internal/registry"
)

// buildTrees groups the snapshot's devices and entities into panel trees.
// It does not enrich entities from states; callers run
// registry.EnrichFromStates first where they need that.
func buildTrees(snap *registry.Snapshot, panelIntegration registry.PanelIntegration) ([]*registry.PanelTree, []string) {
	return registry.BuildTrees(snap.Devices, snap.Entities, panelIntegration)
}

// printPrefsDiff shows what a proposed preferences document adds or
// removes relative to current, in terms of entity_ids referenced by each
// section — a deliberately simple diff (no rich document-diff library
// exists in the pack) good enough for a human to review before saving.
func printPrefsDiff(w io.Writer, current, proposed prefs.Document) {
	currentIDs := current.AllEntityIDs()
	proposedIDs := proposed.AllEntityIDs()

	var added, removed []string
	for id := range proposedIDs {
		if !currentIDs[id] {
			added = append(added, id)
		}
	}
	for id := range currentIDs {
		if !proposedIDs[id] {
			removed = append(removed, id)
		}
	}

	fmt.Fprintf(w, "energy_sources: %d -> %d\n", len(current.EnergySources), len(proposed.EnergySources))
	fmt.Fprintf(w, "device_consumption: %d -> %d\n", len(current.DeviceConsumption), len(proposed.DeviceConsumption))

	if len(added) == 0 && len(removed) == 0 {
		fmt.Fprintln(w, "no entity_id changes")
		return
	}
	for _, id := range added {
		fmt.Fprintf(w, "  + %s\n", id)
	}
	for _, id := range removed {
		fmt.Fprintf(w, "  - %s\n", id)
	}
}
