// Package registry models the Home Assistant device, entity, and area
// registries as parsed, immutable in-memory records, and groups the
// Panel-owned subset of them into per-Panel trees.
//
// Everything here is built from a single snapshot and discarded at the
// end of a run; nothing in this package mutates shared state or persists
// across invocations.
package registry

// Entity is a single measurable or controllable endpoint, as recorded in
// the entity registry and enriched with runtime attributes sourced from
// the latest state snapshot (device_class/state_class may be missing from
// the registry record — see EnrichFromStates).
type Entity struct {
	// EntityID is the hub-assigned, slugified identifier.
	EntityID string
	// UniqueID is opaque and unique within the owning integration. Unlike
	// EntityID it is never reconstructable from a device serial, so it is
	// the only safe key for suffix-based lookups (see engine.FindBySuffix).
	UniqueID string
	// Platform is the integration tag, e.g. "span_ebus", "powerwall".
	Platform string
	// DeviceID references the owning Device, if any.
	DeviceID string
	// DeviceClass is e.g. "energy", "power", "water".
	DeviceClass string
	// StateClass is e.g. "total_increasing".
	StateClass string
	// Unit is the unit of measurement.
	Unit string
	// OriginalName is the integration-provided display name.
	OriginalName string
	// Name is the user override; empty means "use OriginalName".
	Name string
	// DisabledBy is non-empty when the entity is administratively disabled.
	DisabledBy string
	// EntityCategory is e.g. "diagnostic", "config".
	EntityCategory string
	// HasEntityName indicates the entity_id is derived from the device name.
	HasEntityName bool
}

// Disabled reports whether the entity has been disabled by the user or an
// integration.
func (e Entity) Disabled() bool {
	return e.DisabledBy != ""
}

// DisplayName returns the user override if set, else the original name.
func (e Entity) DisplayName() string {
	if e.Name != "" {
		return e.Name
	}
	return e.OriginalName
}

// Identifier is a (domain, local-id) pair from a device's identifiers list.
type Identifier struct {
	Domain  string
	LocalID string
}

// Device is a physical or logical grouping of entities.
type Device struct {
	// ID is the stable device registry identifier.
	ID string
	// Name is the integration-provided name.
	Name string
	// NameByUser is the user override; empty means "use Name".
	NameByUser string
	// Model classifies the device within its integration (e.g. "Circuit").
	Model string
	// Identifiers are (domain, local-id) pairs; a Panel's serial is the
	// local-id of the pair whose domain matches the Panel integration tag.
	Identifiers []Identifier
	// ViaDeviceID references a parent device, if any.
	ViaDeviceID string
	// AreaID references an assigned Area, if any.
	AreaID string

	// Entities owned by this device, populated by BuildTrees.
	Entities []Entity
	// Children populated by the Tree Builder for Panel-owned devices.
	Children []*Device
}

// DisplayName returns the user override if set, else the integration name,
// else the device ID.
func (d *Device) DisplayName() string {
	if d.NameByUser != "" {
		return d.NameByUser
	}
	if d.Name != "" {
		return d.Name
	}
	return d.ID
}

// IdentifierLocalID returns the local-id of the first identifier whose
// domain matches, and whether one was found.
func (d *Device) IdentifierLocalID(domain string) (string, bool) {
	for _, id := range d.Identifiers {
		if id.Domain == domain {
			return id.LocalID, true
		}
	}
	return "", false
}

// Area is an opaque location grouping.
type Area struct {
	AreaID string
	Name   string
}

// Snapshot is the parsed registry substrate for one reconciliation run:
// every device/entity/area built from a single set of registry reads.
type Snapshot struct {
	Devices []*Device
	Entities []Entity
	Areas    []Area
}
