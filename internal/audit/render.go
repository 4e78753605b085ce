package audit

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/electrification-bus/hass-atlas/internal/engine"
	"github.com/electrification-bus/hass-atlas/internal/registry"
)

// Format selects a render style for the audit command (spec §12, grounded
// on ha_atlas/output.py's render_tree/render_table/render_json). No rich
// terminal library exists among the pack's dependencies, so these three
// formats are plain text/tabwriter and encoding/json — see DESIGN.md.
type Format string

const (
	FormatTree  Format = "tree"
	FormatTable Format = "table"
	FormatJSON  Format = "json"
)

func entityLabel(e registry.Entity, dashboardIDs map[string]bool) string {
	label := e.EntityID
	var tags []string
	if e.DeviceClass != "" {
		tags = append(tags, e.DeviceClass)
	}
	if e.StateClass != "" {
		tags = append(tags, e.StateClass)
	}
	if e.Disabled() {
		tags = append(tags, "disabled:"+e.DisabledBy)
	}
	if dashboardIDs[e.EntityID] {
		tags = append(tags, "energy-dashboard")
	}
	if len(tags) > 0 {
		label += " ("
		for i, t := range tags {
			if i > 0 {
				label += ", "
			}
			label += t
		}
		label += ")"
	}
	return label
}

func deviceLabel(d *registry.Device) string {
	label := d.DisplayName()
	if d.Model != "" {
		label += " " + d.Model
	}
	if d.AreaID != "" {
		label += " area:" + d.AreaID
	}
	return label
}

// RenderTree writes trees in an indented hierarchy, marking entities that
// are already referenced by the dashboard.
func RenderTree(w io.Writer, trees []*registry.PanelTree, panelIntegration registry.PanelIntegration, dashboardIDs map[string]bool) {
	for _, tree := range trees {
		serial, ok := tree.Serial(panelIntegration)
		if !ok {
			serial = "unknown"
		}
		fmt.Fprintf(w, "SPAN Panel (%s)\n", serial)
		renderDeviceBranch(w, "  ", tree.Panel, dashboardIDs)

		labeled := []struct {
			label  string
			device *registry.Device
		}{
			{"Site Metering", tree.SiteMetering},
			{"Solar PV", tree.Solar},
			{"Battery", tree.Battery},
			{"EV Charger", tree.EVCharger},
		}
		for _, l := range labeled {
			if l.device == nil {
				continue
			}
			fmt.Fprintf(w, "  %s\n", l.label)
			renderDeviceBranch(w, "    ", l.device, dashboardIDs)
		}

		if len(tree.Circuits) > 0 {
			fmt.Fprintf(w, "  Circuits (%d)\n", len(tree.Circuits))
			circuits := append([]*registry.Device(nil), tree.Circuits...)
			sort.Slice(circuits, func(i, j int) bool { return circuits[i].DisplayName() < circuits[j].DisplayName() })
			for _, c := range circuits {
				renderDeviceBranch(w, "    ", c, dashboardIDs)
			}
		}
		fmt.Fprintln(w)
	}
}

func renderDeviceBranch(w io.Writer, indent string, d *registry.Device, dashboardIDs map[string]bool) {
	fmt.Fprintf(w, "%s%s\n", indent, deviceLabel(d))
	entities := append([]registry.Entity(nil), d.Entities...)
	sort.Slice(entities, func(i, j int) bool { return entities[i].EntityID < entities[j].EntityID })
	for _, e := range entities {
		fmt.Fprintf(w, "%s  %s\n", indent, entityLabel(e, dashboardIDs))
	}
}

// RenderTable writes a tab-separated listing of every entity across all
// trees, one row per entity, device fields shown only on its first row.
func RenderTable(w io.Writer, trees []*registry.PanelTree, dashboardIDs map[string]bool) {
	tw := tabwriter.NewWriter(w, 0, 2, 2, ' ', 0)
	fmt.Fprintln(tw, "DEVICE\tMODEL\tAREA\tENTITY ID\tCLASS\tSTATE CLASS\tENERGY?")
	for _, tree := range trees {
		devices := append([]*registry.Device{tree.Panel}, tree.AllChildDevices()...)
		devices = append(devices, tree.Circuits...)
		for _, d := range devices {
			entities := append([]registry.Entity(nil), d.Entities...)
			sort.Slice(entities, func(i, j int) bool { return entities[i].EntityID < entities[j].EntityID })
			if len(entities) == 0 {
				fmt.Fprintf(tw, "%s\t%s\t%s\t\t\t\t\n", d.DisplayName(), d.Model, d.AreaID)
				continue
			}
			for i, e := range entities {
				inEnergy := ""
				if dashboardIDs[e.EntityID] {
					inEnergy = "Y"
				}
				name, model, area := "", "", ""
				if i == 0 {
					name, model, area = d.DisplayName(), d.Model, d.AreaID
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n", name, model, area, e.EntityID, e.DeviceClass, e.StateClass, inEnergy)
			}
		}
	}
	tw.Flush()
}

// jsonTree is the wire shape for RenderJSON — a flat, ordering-free
// snapshot rather than registry.PanelTree's pointer graph, so encoding
// never has to worry about device reuse or cycles.
type jsonTree struct {
	Serial       string            `json:"serial"`
	Panel        jsonDevice        `json:"panel"`
	SiteMetering *jsonDevice       `json:"site_metering,omitempty"`
	Solar        *jsonDevice       `json:"solar,omitempty"`
	Battery      *jsonDevice       `json:"battery,omitempty"`
	EVCharger    *jsonDevice       `json:"ev_charger,omitempty"`
	Circuits     []jsonDevice      `json:"circuits"`
}

type jsonDevice struct {
	ID       string         `json:"id"`
	Name     string         `json:"display_name"`
	Model    string         `json:"model"`
	AreaID   string         `json:"area_id"`
	Entities []jsonEntity   `json:"entities"`
}

type jsonEntity struct {
	EntityID    string `json:"entity_id"`
	UniqueID    string `json:"unique_id"`
	DeviceClass string `json:"device_class"`
	StateClass  string `json:"state_class"`
	Disabled    bool   `json:"disabled"`
}

func toJSONDevice(d *registry.Device) jsonDevice {
	jd := jsonDevice{ID: d.ID, Name: d.DisplayName(), Model: d.Model, AreaID: d.AreaID}
	for _, e := range d.Entities {
		jd.Entities = append(jd.Entities, jsonEntity{
			EntityID: e.EntityID, UniqueID: e.UniqueID,
			DeviceClass: e.DeviceClass, StateClass: e.StateClass, Disabled: e.Disabled(),
		})
	}
	return jd
}

func toJSONDevicePtr(d *registry.Device) *jsonDevice {
	if d == nil {
		return nil
	}
	jd := toJSONDevice(d)
	return &jd
}

// RenderJSON writes trees as a JSON array, for machine consumption.
func RenderJSON(w io.Writer, trees []*registry.PanelTree, panelIntegration registry.PanelIntegration) error {
	out := make([]jsonTree, 0, len(trees))
	for _, tree := range trees {
		serial, _ := tree.Serial(panelIntegration)
		jt := jsonTree{
			Serial:       serial,
			Panel:        toJSONDevice(tree.Panel),
			SiteMetering: toJSONDevicePtr(tree.SiteMetering),
			Solar:        toJSONDevicePtr(tree.Solar),
			Battery:      toJSONDevicePtr(tree.Battery),
			EVCharger:    toJSONDevicePtr(tree.EVCharger),
		}
		for _, c := range tree.Circuits {
			jt.Circuits = append(jt.Circuits, toJSONDevice(c))
		}
		out = append(out, jt)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// RenderDiagnostics writes the three audit.Report findings as plain text.
func RenderDiagnostics(w io.Writer, r Report) {
	if len(r.MissingAreas) == 0 {
		fmt.Fprintln(w, "OK  all circuits have areas assigned")
	} else {
		fmt.Fprintf(w, "WARN  %d circuit(s) have no area assigned:\n", len(r.MissingAreas))
		for _, m := range r.MissingAreas {
			fmt.Fprintf(w, "  - %s\n", m.Circuit.DisplayName())
		}
	}

	if len(r.EnergyGaps) == 0 {
		fmt.Fprintln(w, "OK  all enabled energy sensors are in the energy dashboard")
	} else {
		fmt.Fprintf(w, "WARN  %d energy sensor(s) not in energy dashboard:\n", len(r.EnergyGaps))
		for _, g := range r.EnergyGaps {
			fmt.Fprintf(w, "  - %s (%s)\n", g.Entity.EntityID, g.Device.DisplayName())
		}
	}

	if len(r.DisabledSensors) > 0 {
		fmt.Fprintf(w, "WARN  %d energy sensor(s) are disabled:\n", len(r.DisabledSensors))
		for _, d := range r.DisabledSensors {
			fmt.Fprintf(w, "  - %s (disabled by: %s)\n", d.Entity.EntityID, d.Entity.DisabledBy)
		}
	}
}

// RenderTopology writes the engine's full decision trail: per-panel
// subsystem positions, discovered integrations, circuit roles, and
// preferred/skipped role assignments with rationale, grounded on
// render_topology.
func RenderTopology(w io.Writer, topo *engine.EnergyTopology) {
	fmt.Fprintln(w, "== Energy System Topology ==")
	for _, panel := range topo.Panels {
		lead := ""
		if panel.IsRoot {
			lead = " (ROOT)"
		}
		fmt.Fprintf(w, "SPAN Panel %s%s\n", panel.Serial, lead)
		if panel.Battery.Present() {
			fmt.Fprintf(w, "  Battery position=%s vendor=%s model=%s\n", panel.Battery.Position, panel.Battery.Vendor, panel.Battery.Model)
			if panel.Battery.FeedCircuitName != "" {
				fmt.Fprintf(w, "    feed-circuit: %s\n", panel.Battery.FeedCircuitName)
			}
		}
		if panel.Solar.Present() {
			fmt.Fprintf(w, "  Solar PV position=%s vendor=%s model=%s\n", panel.Solar.Position, panel.Solar.Vendor, panel.Solar.Model)
			if panel.Solar.FeedCircuitName != "" {
				fmt.Fprintf(w, "    feed-circuit: %s\n", panel.Solar.FeedCircuitName)
			}
		}
	}

	if len(topo.Integrations) > 0 {
		fmt.Fprintln(w, "\n== Other Energy Integrations ==")
		for _, integ := range topo.Integrations {
			fmt.Fprintf(w, "%s (%d energy entities)\n", integ.Platform, len(integ.EnergyEntities))
			for _, e := range integ.EnergyEntities {
				fmt.Fprintf(w, "  %s\n", e.EntityID)
			}
		}
	}

	if len(topo.CircuitRoles) > 0 {
		fmt.Fprintln(w, "\n== Circuit Roles ==")
		tw := tabwriter.NewWriter(w, 0, 2, 2, ' ', 0)
		fmt.Fprintln(tw, "CIRCUIT\tROLE\tRETURN ENERGY\tCONSUMPTION\tREASON")
		roles := append([]engine.CircuitRole(nil), topo.CircuitRoles...)
		sort.Slice(roles, func(i, j int) bool { return roles[i].Circuit.DisplayName() < roles[j].Circuit.DisplayName() })
		for _, cr := range roles {
			ret, cons := "included", "included"
			if cr.SkipReturnEnergy {
				ret = "suppressed"
			}
			if cr.SkipConsumption {
				cons = "excluded"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", cr.Circuit.DisplayName(), cr.Role, ret, cons, cr.Rationale)
		}
		tw.Flush()
	}

	fmt.Fprintln(w, "\n== Energy Dashboard Assignments ==")
	preferred := topo.Preferred()
	skipped := topo.NonPreferred()

	if len(preferred) > 0 {
		tw := tabwriter.NewWriter(w, 0, 2, 2, ' ', 0)
		fmt.Fprintln(tw, "ROLE\tENTITY ID\tPLATFORM\tREASON")
		consumptionCount := 0
		for _, a := range preferred {
			if a.Role == engine.RoleDeviceConsumption {
				consumptionCount++
				continue
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", a.Role, a.EntityID, a.Platform, a.Rationale)
		}
		if consumptionCount > 0 {
			fmt.Fprintf(tw, "device_consumption\t(%d circuits)\t\tCircuit exported-energy = consumption\n", consumptionCount)
		}
		tw.Flush()
	}

	if len(skipped) > 0 {
		fmt.Fprintln(w, "\n-- Skipped (overlap detected) --")
		tw := tabwriter.NewWriter(w, 0, 2, 2, ' ', 0)
		fmt.Fprintln(tw, "ROLE\tENTITY ID\tPLATFORM\tREASON")
		for _, a := range skipped {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", a.Role, a.EntityID, a.Platform, a.Rationale)
		}
		tw.Flush()
	}

	if len(topo.Warnings) > 0 {
		fmt.Fprintln(w)
		for _, warn := range topo.Warnings {
			fmt.Fprintf(w, "WARN  %s\n", warn)
		}
	}
}
