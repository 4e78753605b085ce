package engine

import "github.com/electrification-bus/hass-atlas/internal/registry"

// Diagnostic unique-id suffixes recognized on battery/solar sub-devices
// (spec §4.2). These are matched against Entity.UniqueID, never against
// EntityID, because entity_ids are slugified by the hub and are not
// reconstructable from a Panel serial.
const (
	suffixRelativePosition = "_relative-position"
	suffixVendorName       = "_vendor-name"
	suffixModel            = "_model"
	suffixProductName      = "_product-name"
	suffixSerialNumber     = "_serial-number"
	suffixFeed             = "_feed"
)

// FindBySuffix returns the first non-disabled entity on device whose
// UniqueID ends with suffix, or false if none match.
func FindBySuffix(device *registry.Device, suffix string) (registry.Entity, bool) {
	if device == nil {
		return registry.Entity{}, false
	}
	for _, e := range device.Entities {
		if !e.Disabled() && hasSuffix(e.UniqueID, suffix) {
			return e, true
		}
	}
	return registry.Entity{}, false
}

func hasSuffix(s, suffix string) bool {
	return len(s) >= len(suffix) && s[len(s)-len(suffix):] == suffix
}

// extractSubsystem decodes one battery/solar subsystem's topology from the
// diagnostic entities on its sub-device, using states for live values.
func extractSubsystem(device *registry.Device, states registry.StateMap) SubsystemTopology {
	var sub SubsystemTopology
	if device == nil {
		return sub
	}
	if e, ok := FindBySuffix(device, suffixRelativePosition); ok {
		sub.Position = Position(states.StateValue(e.EntityID))
	}
	if e, ok := FindBySuffix(device, suffixVendorName); ok {
		sub.Vendor = states.StateValue(e.EntityID)
	}
	if e, ok := FindBySuffix(device, suffixModel); ok {
		sub.Model = states.StateValue(e.EntityID)
	}
	if e, ok := FindBySuffix(device, suffixProductName); ok && sub.Model == "" {
		sub.Model = states.StateValue(e.EntityID)
	}
	if e, ok := FindBySuffix(device, suffixSerialNumber); ok {
		sub.Serial = states.StateValue(e.EntityID)
	}
	if e, ok := FindBySuffix(device, suffixFeed); ok {
		sub.FeedCircuitName = states.StateValue(e.EntityID)
		sub.FeedCircuitNodeID = states.Attr(e.EntityID, "circuit_id")
	}
	return sub
}

// ExtractTopologies derives a PanelTopology for each PanelTree, per spec
// §4.2. Trees whose Panel has no resolvable serial are skipped.
func ExtractTopologies(trees []*registry.PanelTree, panelIntegration registry.PanelIntegration, states registry.StateMap) []PanelTopology {
	panelIDs := registry.PanelDeviceIDSet(trees)

	var out []PanelTopology
	for _, tree := range trees {
		serial, ok := tree.Serial(panelIntegration)
		if !ok || serial == "" {
			continue
		}
		out = append(out, PanelTopology{
			Serial:  serial,
			IsRoot:  tree.IsRoot(panelIDs),
			Battery: extractSubsystem(tree.Battery, states),
			Solar:   extractSubsystem(tree.Solar, states),
			EV:      extractSubsystem(tree.EVCharger, states),
			Tree:    tree,
		})
	}
	return out
}
