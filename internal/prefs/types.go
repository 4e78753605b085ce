// Package prefs models the Energy Dashboard preferences document and
// implements the two transformation operations the engine needs: an
// additive Merge and an authoritative-replacement Apply (spec §4.6).
//
// A Document is a tree of tagged sum-typed source variants plus opaque
// key/value pairs for unrecognized fields (spec §9) — this lets the
// transformer round-trip fields it has never heard of, which a flat
// struct-per-type representation cannot do.
package prefs

import (
	"encoding/json"
	"sort"
)

// Extras is an insertion-ordered bag of JSON fields the transformer does
// not interpret but must preserve byte-for-byte across Merge/Apply.
type Extras struct {
	keys   []string
	values map[string]json.RawMessage
}

// NewExtras returns an empty Extras bag.
func NewExtras() Extras {
	return Extras{values: map[string]json.RawMessage{}}
}

// Set stores or overwrites a field, preserving first-insertion order.
func (e *Extras) Set(key string, value json.RawMessage) {
	if e.values == nil {
		e.values = map[string]json.RawMessage{}
	}
	if _, exists := e.values[key]; !exists {
		e.keys = append(e.keys, key)
	}
	e.values[key] = value
}

// Get returns the raw value for key, and whether it is present.
func (e Extras) Get(key string) (json.RawMessage, bool) {
	v, ok := e.values[key]
	return v, ok
}

// Delete removes key, if present.
func (e *Extras) Delete(key string) {
	if _, ok := e.values[key]; !ok {
		return
	}
	delete(e.values, key)
	for i, k := range e.keys {
		if k == key {
			e.keys = append(e.keys[:i], e.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the fields in insertion order.
func (e Extras) Keys() []string {
	out := make([]string, len(e.keys))
	copy(out, e.keys)
	return out
}

// Len reports how many fields remain.
func (e Extras) Len() int { return len(e.keys) }

// Clone returns a deep-enough copy (RawMessage values are byte slices and
// never mutated in place, so copying the slice/map headers suffices).
func (e Extras) Clone() Extras {
	if e.values == nil {
		return Extras{}
	}
	out := NewExtras()
	for _, k := range e.keys {
		out.Set(k, e.values[k])
	}
	return out
}

// Equal reports whether two Extras bags hold the same keys and byte-equal
// values, ignoring key order.
func (e Extras) Equal(o Extras) bool {
	if len(e.keys) != len(o.keys) {
		return false
	}
	for _, k := range e.keys {
		a, ok := e.values[k]
		b, ok2 := o.values[k]
		if !ok || !ok2 || string(a) != string(b) {
			return false
		}
	}
	return true
}

// SourceType tags a Source's variant.
type SourceType string

const (
	SourceGrid    SourceType = "grid"
	SourceSolar   SourceType = "solar"
	SourceBattery SourceType = "battery"
	SourceGas     SourceType = "gas"
	SourceWater   SourceType = "water"
	SourceOther   SourceType = "other"
)

// FlowFrom is one grid import leg.
type FlowFrom struct {
	StatEnergyFrom string
	Extra          Extras
}

// FlowTo is one grid export leg.
type FlowTo struct {
	StatEnergyTo string
	Extra        Extras
}

// Source is one energy_sources entry. Known fields are typed; everything
// else the document carried for this object lives in Extra.
type Source struct {
	Type SourceType

	// Grid
	FlowFrom []FlowFrom
	FlowTo   []FlowTo

	// Solar / Battery
	StatEnergyFrom string
	StatEnergyTo   string
	StatRate       string

	// Extra holds every field not modeled above (stat_cost,
	// cost_adjustment_day, and anything a future hub version adds),
	// keyed by its original JSON field name, insertion-ordered.
	Extra Extras
}

// Clone returns a deep copy of the source.
func (s Source) Clone() Source {
	out := s
	out.FlowFrom = append([]FlowFrom(nil), s.FlowFrom...)
	for i := range out.FlowFrom {
		out.FlowFrom[i].Extra = s.FlowFrom[i].Extra.Clone()
	}
	out.FlowTo = append([]FlowTo(nil), s.FlowTo...)
	for i := range out.FlowTo {
		out.FlowTo[i].Extra = s.FlowTo[i].Extra.Clone()
	}
	out.Extra = s.Extra.Clone()
	return out
}

// EntityIDs returns every entity_id this source references (spec §4.6
// orphan-removal helper).
func (s Source) EntityIDs() []string {
	var out []string
	for _, f := range s.FlowFrom {
		if f.StatEnergyFrom != "" {
			out = append(out, f.StatEnergyFrom)
		}
	}
	for _, f := range s.FlowTo {
		if f.StatEnergyTo != "" {
			out = append(out, f.StatEnergyTo)
		}
	}
	if s.StatEnergyFrom != "" {
		out = append(out, s.StatEnergyFrom)
	}
	if s.StatEnergyTo != "" {
		out = append(out, s.StatEnergyTo)
	}
	return out
}

// EntityIDSet returns EntityIDs as a set.
func (s Source) EntityIDSet() map[string]bool {
	set := make(map[string]bool)
	for _, id := range s.EntityIDs() {
		set[id] = true
	}
	return set
}

// DedupKey returns the source's additive-merge dedup key (spec §4.6).
func (s Source) DedupKey() string {
	switch s.Type {
	case SourceGrid:
		from := make([]string, 0, len(s.FlowFrom))
		for _, f := range s.FlowFrom {
			from = append(from, f.StatEnergyFrom)
		}
		to := make([]string, 0, len(s.FlowTo))
		for _, f := range s.FlowTo {
			to = append(to, f.StatEnergyTo)
		}
		sort.Strings(from)
		sort.Strings(to)
		return "grid:" + joinComma(from) + ":" + joinComma(to)
	case SourceSolar:
		return "solar:" + s.StatEnergyFrom
	case SourceBattery:
		return "battery:" + s.StatEnergyFrom + ":" + s.StatEnergyTo
	default:
		// A stable distinct key per object, derived from its extras so two
		// structurally distinct opaque sources never collide.
		h := stableHash(s)
		return string(s.Type) + ":" + h
	}
}

func joinComma(ss []string) string {
	out := ""
	for i, s := range ss {
		if i > 0 {
			out += ","
		}
		out += s
	}
	return out
}

// Consumption is one device_consumption entry.
type Consumption struct {
	StatConsumption string
	IncludedInStat  string
	StatRate        string
	Extra           Extras
}

// Clone returns a deep copy of the entry.
func (c Consumption) Clone() Consumption {
	out := c
	out.Extra = c.Extra.Clone()
	return out
}

// Document is the dashboard-preferences document (spec §3). Unrecognized
// top-level keys survive transformation unchanged via TopLevelExtra.
type Document struct {
	EnergySources          []Source
	DeviceConsumption      []Consumption
	DeviceConsumptionWater []Consumption // preserved untouched by this engine
	TopLevelExtra          Extras
}

// Clone returns a deep copy of the document; Merge and Apply never mutate
// their input, always operating on a clone (spec §5 shared-resource policy).
func (d Document) Clone() Document {
	out := Document{
		EnergySources:          make([]Source, len(d.EnergySources)),
		DeviceConsumption:      make([]Consumption, len(d.DeviceConsumption)),
		DeviceConsumptionWater: make([]Consumption, len(d.DeviceConsumptionWater)),
		TopLevelExtra:          d.TopLevelExtra.Clone(),
	}
	for i, s := range d.EnergySources {
		out.EnergySources[i] = s.Clone()
	}
	for i, c := range d.DeviceConsumption {
		out.DeviceConsumption[i] = c.Clone()
	}
	for i, c := range d.DeviceConsumptionWater {
		out.DeviceConsumptionWater[i] = c.Clone()
	}
	return out
}
