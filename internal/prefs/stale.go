package prefs

// AllEntityIDs returns every entity_id the document references, across
// both energy_sources and device_consumption.
func (d Document) AllEntityIDs() map[string]bool {
	ids := make(map[string]bool)
	for _, s := range d.EnergySources {
		for id := range s.EntityIDSet() {
			ids[id] = true
		}
	}
	for _, c := range d.DeviceConsumption {
		if c.StatConsumption != "" {
			ids[c.StatConsumption] = true
		}
	}
	return ids
}

// StaleReference is one dashboard reference pointing at an entity that no
// longer exists in the registry.
type StaleReference struct {
	Section  string // e.g. "grid (grid import)", "solar", "device_consumption"
	EntityID string
}

// FindStaleReferences reports every reference in d whose entity_id is not
// in liveEntityIDs, grounded on find_stale_references.
func FindStaleReferences(d Document, liveEntityIDs map[string]bool) []StaleReference {
	var stale []StaleReference

	for _, s := range d.EnergySources {
		for _, f := range s.FlowFrom {
			if f.StatEnergyFrom != "" && !liveEntityIDs[f.StatEnergyFrom] {
				stale = append(stale, StaleReference{Section: string(s.Type) + " (grid import)", EntityID: f.StatEnergyFrom})
			}
		}
		for _, f := range s.FlowTo {
			if f.StatEnergyTo != "" && !liveEntityIDs[f.StatEnergyTo] {
				stale = append(stale, StaleReference{Section: string(s.Type) + " (grid export)", EntityID: f.StatEnergyTo})
			}
		}
		if s.StatEnergyFrom != "" && !liveEntityIDs[s.StatEnergyFrom] {
			stale = append(stale, StaleReference{Section: string(s.Type), EntityID: s.StatEnergyFrom})
		}
		if s.StatEnergyTo != "" && !liveEntityIDs[s.StatEnergyTo] {
			stale = append(stale, StaleReference{Section: string(s.Type), EntityID: s.StatEnergyTo})
		}
	}

	for _, c := range d.DeviceConsumption {
		if c.StatConsumption != "" && !liveEntityIDs[c.StatConsumption] {
			stale = append(stale, StaleReference{Section: "device_consumption", EntityID: c.StatConsumption})
		}
	}

	return stale
}

// RemoveStaleReferences returns a copy of d with every reference to a
// stale entity_id stripped out: flow legs are dropped individually, a
// solar/battery source's dangling half is cleared, and a source that
// loses all of its entity references entirely is dropped — unless it
// still carries cost fields worth keeping (stat_cost, stat_compensation),
// mirroring remove_stale_references's has_refs check.
func RemoveStaleReferences(d Document, staleIDs map[string]bool) Document {
	out := d.Clone()

	cleanSources := make([]Source, 0, len(out.EnergySources))
	for _, s := range out.EnergySources {
		if s.FlowFrom != nil {
			kept := s.FlowFrom[:0]
			for _, f := range s.FlowFrom {
				if !staleIDs[f.StatEnergyFrom] {
					kept = append(kept, f)
				}
			}
			if len(kept) == 0 {
				s.FlowFrom = nil
			} else {
				s.FlowFrom = kept
			}
		}
		if s.FlowTo != nil {
			kept := s.FlowTo[:0]
			for _, f := range s.FlowTo {
				if !staleIDs[f.StatEnergyTo] {
					kept = append(kept, f)
				}
			}
			if len(kept) == 0 {
				s.FlowTo = nil
			} else {
				s.FlowTo = kept
			}
		}
		if staleIDs[s.StatEnergyFrom] {
			s.StatEnergyFrom = ""
		}
		if staleIDs[s.StatEnergyTo] {
			s.StatEnergyTo = ""
		}

		_, hasCost := s.Extra.Get("stat_cost")
		_, hasCompensation := s.Extra.Get("stat_compensation")
		hasRefs := len(s.FlowFrom) > 0 || len(s.FlowTo) > 0 ||
			s.StatEnergyFrom != "" || s.StatEnergyTo != "" || hasCost || hasCompensation
		if hasRefs {
			cleanSources = append(cleanSources, s)
		}
	}
	out.EnergySources = cleanSources

	cleanConsumption := make([]Consumption, 0, len(out.DeviceConsumption))
	for _, c := range out.DeviceConsumption {
		if !staleIDs[c.StatConsumption] {
			cleanConsumption = append(cleanConsumption, c)
		}
	}
	out.DeviceConsumption = cleanConsumption

	return out
}
