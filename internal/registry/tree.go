package registry

// PanelIntegration is the integration (platform) tag of the Panel device,
// e.g. "span_ebus". It is a parameter rather than a constant so the engine
// is not hard-coded to one vendor's panel integration.
type PanelIntegration string

// Model strings used to classify a Panel's child devices. Any model not in
// this table falls back to ModelCircuit (spec §4.1).
const (
	ModelCircuit      = "Circuit"
	ModelBattery      = "Battery Storage"
	ModelSolar        = "Solar PV"
	ModelEVCharger    = "EV Charger"
	ModelSiteMetering = "Site Metering"
	// ModelPanel marks a device as a Panel root even when its via-device
	// points at another Panel device (daisy-chained sub-panel).
	ModelPanel = "SPAN Panel"
)

// PanelTree groups one root Panel device with its classified children.
type PanelTree struct {
	Panel        *Device
	Circuits     []*Device
	Battery      *Device
	Solar        *Device
	EVCharger    *Device
	SiteMetering *Device
}

// Serial extracts the Panel's serial number: the local-id of the
// identifier pair whose domain matches panelIntegration.
func (t *PanelTree) Serial(panelIntegration PanelIntegration) (string, bool) {
	return t.Panel.IdentifierLocalID(string(panelIntegration))
}

// AllChildDevices returns the non-circuit sub-devices that are present.
func (t *PanelTree) AllChildDevices() []*Device {
	var out []*Device
	for _, d := range []*Device{t.Battery, t.Solar, t.EVCharger, t.SiteMetering} {
		if d != nil {
			out = append(out, d)
		}
	}
	return out
}

// IsRoot reports whether the Panel device has no via-device pointing at
// another Panel device (spec §3 PanelTopology: is_root).
func (t *PanelTree) IsRoot(panelDeviceIDs map[string]bool) bool {
	return t.Panel.ViaDeviceID == "" || !panelDeviceIDs[t.Panel.ViaDeviceID]
}

// attachEntities groups entities by device_id and assigns each device its
// owned entities (Entity invariant: entities sharing a device reference
// belong to the same device). A device with no entity in entities keeps
// whatever Entities it already has.
func attachEntities(devices []*Device, entities []Entity) {
	byDevice := make(map[string][]Entity)
	for _, e := range entities {
		if e.DeviceID == "" {
			continue
		}
		byDevice[e.DeviceID] = append(byDevice[e.DeviceID], e)
	}
	for _, d := range devices {
		if es, ok := byDevice[d.ID]; ok {
			d.Entities = es
		}
	}
}

// BuildTrees partitions devices belonging to panelIntegration into Panel
// roots and classified children, per spec §4.1.
//
// A device is a Panel root when its model equals ModelPanel OR its
// via-device does not resolve within the Panel device set (including
// devices with no via-device at all); everything else is grouped under
// its immediate via-parent. Cycles are impossible by construction of a
// valid registry graph; if one is observed the affected tree's build is
// aborted and a warning is recorded instead of looping forever.
func BuildTrees(allDevices []*Device, allEntities []Entity, panelIntegration PanelIntegration) (trees []*PanelTree, warnings []string) {
	panelEntities := make([]Entity, 0, len(allEntities))
	for _, e := range allEntities {
		if e.Platform == string(panelIntegration) {
			panelEntities = append(panelEntities, e)
		}
	}

	panelDevices := make(map[string]*Device)
	for _, d := range allDevices {
		for _, id := range d.Identifiers {
			if id.Domain == string(panelIntegration) {
				panelDevices[d.ID] = d
				break
			}
		}
	}
	if len(panelDevices) == 0 {
		return nil, nil
	}

	ordered := make([]*Device, 0, len(panelDevices))
	for _, d := range allDevices {
		if _, ok := panelDevices[d.ID]; ok {
			ordered = append(ordered, d)
		}
	}
	attachEntities(ordered, panelEntities)

	var panels []*Device
	childrenByParent := make(map[string][]*Device)
	for _, d := range ordered {
		_, parentIsPanelDevice := panelDevices[d.ViaDeviceID]
		if d.Model == ModelPanel || d.ViaDeviceID == "" || !parentIsPanelDevice {
			panels = append(panels, d)
		} else {
			childrenByParent[d.ViaDeviceID] = append(childrenByParent[d.ViaDeviceID], d)
		}
	}

	for _, panel := range panels {
		tree := &PanelTree{Panel: panel}
		seen := map[string]bool{panel.ID: true}
		var walk func(parent *Device) bool
		walk = func(parent *Device) bool {
			for _, child := range childrenByParent[parent.ID] {
				if seen[child.ID] {
					warnings = append(warnings, "cycle detected building tree for panel "+panel.ID+"; aborting this tree")
					return false
				}
				seen[child.ID] = true
				parent.Children = append(parent.Children, child)
				switch child.Model {
				case ModelCircuit:
					tree.Circuits = append(tree.Circuits, child)
				case ModelBattery:
					tree.Battery = child
				case ModelSolar:
					tree.Solar = child
				case ModelEVCharger:
					tree.EVCharger = child
				case ModelSiteMetering:
					tree.SiteMetering = child
				default:
					tree.Circuits = append(tree.Circuits, child)
				}
				if !walk(child) {
					return false
				}
			}
			return true
		}
		if walk(panel) {
			trees = append(trees, tree)
		}
	}

	return trees, warnings
}

// PanelDeviceIDSet returns the set of Panel device IDs across trees, used
// by IsRoot and by the Decision Engine's daisy-chain handling.
func PanelDeviceIDSet(trees []*PanelTree) map[string]bool {
	set := make(map[string]bool, len(trees))
	for _, t := range trees {
		set[t.Panel.ID] = true
	}
	return set
}
