package registry

import (
	"fmt"

	"github.com/electrification-bus/hass-atlas/internal/atlaserr"
)

// RawDevice is the bit-level, tolerant shape of a device registry record
// as returned by the hub's config/device_registry/list command.
type RawDevice struct {
	ID            string          `json:"id"`
	Name          *string         `json:"name"`
	NameByUser    *string         `json:"name_by_user"`
	Model         *string         `json:"model"`
	Identifiers   [][]string      `json:"identifiers"`
	ViaDeviceID   *string         `json:"via_device_id"`
	AreaID        *string         `json:"area_id"`
}

// RawEntity is the bit-level, tolerant shape of an entity registry record.
type RawEntity struct {
	EntityID               string  `json:"entity_id"`
	UniqueID                string  `json:"unique_id"`
	Platform                string  `json:"platform"`
	DeviceID                *string `json:"device_id"`
	DeviceClass             *string `json:"device_class"`
	OriginalDeviceClass     *string `json:"original_device_class"`
	StateClass              *string `json:"state_class"`
	OriginalStateClass      *string `json:"original_state_class"`
	UnitOfMeasurement       *string `json:"unit_of_measurement"`
	OriginalUnitOfMeasurement *string `json:"original_unit_of_measurement"`
	Name                    *string `json:"name"`
	OriginalName            *string `json:"original_name"`
	DisabledBy              *string `json:"disabled_by"`
	EntityCategory          *string `json:"entity_category"`
	HasEntityName           bool    `json:"has_entity_name"`
}

// RawArea is the bit-level shape of an area registry record.
type RawArea struct {
	AreaID string `json:"area_id"`
	Name   string `json:"name"`
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// firstNonEmpty returns a, falling back to b when a is empty — used for the
// dual-key (override, original) fields the registry wire shape carries.
func firstNonEmpty(a, b *string) string {
	if v := deref(a); v != "" {
		return v
	}
	return deref(b)
}

// ParseDevice converts a raw device record into a Device. It is tolerant of
// missing optional fields but requires ID.
func ParseDevice(raw RawDevice) (*Device, error) {
	if raw.ID == "" {
		return nil, atlaserr.Malformed("device", "missing id")
	}
	ids := make([]Identifier, 0, len(raw.Identifiers))
	for _, pair := range raw.Identifiers {
		if len(pair) != 2 {
			continue
		}
		ids = append(ids, Identifier{Domain: pair[0], LocalID: pair[1]})
	}
	return &Device{
		ID:          raw.ID,
		Name:        deref(raw.Name),
		NameByUser:  deref(raw.NameByUser),
		Model:       deref(raw.Model),
		Identifiers: ids,
		ViaDeviceID: deref(raw.ViaDeviceID),
		AreaID:      deref(raw.AreaID),
	}, nil
}

// ParseEntity converts a raw entity record into an Entity. It is tolerant
// of missing optional fields but requires EntityID and UniqueID.
func ParseEntity(raw RawEntity) (Entity, error) {
	if raw.EntityID == "" || raw.UniqueID == "" {
		return Entity{}, atlaserr.Malformed("entity", fmt.Sprintf("missing entity_id or unique_id (entity_id=%q)", raw.EntityID))
	}
	return Entity{
		EntityID:       raw.EntityID,
		UniqueID:       raw.UniqueID,
		Platform:       raw.Platform,
		DeviceID:       deref(raw.DeviceID),
		DeviceClass:    firstNonEmpty(raw.DeviceClass, raw.OriginalDeviceClass),
		StateClass:     firstNonEmpty(raw.StateClass, raw.OriginalStateClass),
		Unit:           firstNonEmpty(raw.UnitOfMeasurement, raw.OriginalUnitOfMeasurement),
		OriginalName:   deref(raw.OriginalName),
		Name:           deref(raw.Name),
		DisabledBy:     deref(raw.DisabledBy),
		EntityCategory: deref(raw.EntityCategory),
		HasEntityName:  raw.HasEntityName,
	}, nil
}

// ParseArea converts a raw area record into an Area.
func ParseArea(raw RawArea) (Area, error) {
	if raw.AreaID == "" {
		return Area{}, atlaserr.Malformed("area", "missing area_id")
	}
	return Area{AreaID: raw.AreaID, Name: raw.Name}, nil
}

// BuildSnapshot parses raw registry records into a Snapshot, skipping
// malformed records with a warning rather than failing the whole run
// (spec §7: malformed-record errors are recoverable).
func BuildSnapshot(rawDevices []RawDevice, rawEntities []RawEntity, rawAreas []RawArea) (*Snapshot, []string) {
	var warnings []string
	snap := &Snapshot{}

	for _, rd := range rawDevices {
		d, err := ParseDevice(rd)
		if err != nil {
			warnings = append(warnings, err.Error())
			continue
		}
		snap.Devices = append(snap.Devices, d)
	}

	for _, re := range rawEntities {
		e, err := ParseEntity(re)
		if err != nil {
			warnings = append(warnings, err.Error())
			continue
		}
		snap.Entities = append(snap.Entities, e)
	}

	for _, ra := range rawAreas {
		a, err := ParseArea(ra)
		if err != nil {
			warnings = append(warnings, err.Error())
			continue
		}
		snap.Areas = append(snap.Areas, a)
	}

	return snap, warnings
}

// RawState is the bit-level shape of a get_states entry.
type RawState struct {
	EntityID   string                 `json:"entity_id"`
	State      string                 `json:"state"`
	Attributes map[string]interface{} `json:"attributes"`
}

// StateEntry is a live entity's reported state plus its attribute bag.
type StateEntry struct {
	State      string
	Attributes map[string]interface{}
}

// StateMap indexes StateEntry by entity_id.
type StateMap map[string]StateEntry

// BuildStateMap indexes raw states by entity_id.
func BuildStateMap(raw []RawState) StateMap {
	m := make(StateMap, len(raw))
	for _, s := range raw {
		m[s.EntityID] = StateEntry{State: s.State, Attributes: s.Attributes}
	}
	return m
}

// absentStates are state values treated as equivalent to "no state".
var absentStates = map[string]bool{"": true, "unknown": true, "unavailable": true}

// EnrichFromStates populates DeviceClass/StateClass/Unit on entities that
// lack them in the registry, from the matching live state's attributes.
// These are runtime properties the entity registry does not carry.
func EnrichFromStates(entities []Entity, states StateMap) {
	for i := range entities {
		e := &entities[i]
		entry, ok := states[e.EntityID]
		if !ok {
			continue
		}
		if e.DeviceClass == "" {
			if v, ok := entry.Attributes["device_class"].(string); ok {
				e.DeviceClass = v
			}
		}
		if e.StateClass == "" {
			if v, ok := entry.Attributes["state_class"].(string); ok {
				e.StateClass = v
			}
		}
		if e.Unit == "" {
			if v, ok := entry.Attributes["unit_of_measurement"].(string); ok {
				e.Unit = v
			}
		}
	}
}

// StateValue returns the state string for entity, or "" if the entity has
// no recorded state or its state is one of the absent sentinels.
func (m StateMap) StateValue(entityID string) string {
	entry, ok := m[entityID]
	if !ok || absentStates[entry.State] {
		return ""
	}
	return entry.State
}

// Attr returns the string form of attribute attrName on entity, or "" if
// absent or not present.
func (m StateMap) Attr(entityID, attrName string) string {
	entry, ok := m[entityID]
	if !ok {
		return ""
	}
	v, ok := entry.Attributes[attrName]
	if !ok || v == nil {
		return ""
	}
	s := fmt.Sprintf("%v", v)
	if absentStates[s] {
		return ""
	}
	return s
}
