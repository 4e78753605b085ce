package prefs

import (
	"sort"

	"github.com/electrification-bus/hass-atlas/internal/engine"
)

// Apply reconciles current against topo's role assignments: preferred
// entities are added if missing, non-preferred ("skipped") entities are
// removed, and anything current has that topo has no opinion on — a
// user-authored gas source, a manually added consumption sensor — is
// preserved untouched (spec §4.6).
//
// Unlike Merge, Apply is authoritative over the subset of the document
// the topology engine has opinions about: it will actively drop entries
// that analysis says no longer belong, not just add missing ones. It
// never mutates current. An existing source object that already matches
// a preferred assignment is kept with all of its fields except stat_rate,
// which is taken from the proposed source with the same dedup key — HA's
// energy/save_prefs call rejects source objects missing fields like
// stat_cost or cost_adjustment_day, so rebuilding them from scratch would
// lose data the user or a prior run attached.
func Apply(current Document, topo *engine.EnergyTopology) Document {
	result := current.Clone()

	preferred := topo.Preferred()
	skipped := topo.NonPreferred()

	skippedEIDs := make(map[string]bool, len(skipped))
	for _, a := range skipped {
		skippedEIDs[a.EntityID] = true
	}

	wantedConsumption := make(map[string]bool)
	wantedSourceEIDs := make(map[string]bool)
	preferredConsumption := make(map[string]engine.RoleAssignment)
	for _, a := range preferred {
		if a.Role == engine.RoleDeviceConsumption {
			wantedConsumption[a.EntityID] = true
			preferredConsumption[a.EntityID] = a
		} else {
			wantedSourceEIDs[a.EntityID] = true
		}
	}

	// --- Device consumption ---
	keepConsumption := make([]Consumption, 0, len(result.DeviceConsumption))
	for _, entry := range result.DeviceConsumption {
		stat := entry.StatConsumption
		switch {
		case wantedConsumption[stat]:
			a := preferredConsumption[stat]
			entry.IncludedInStat = a.ParentEntityID
			entry.StatRate = a.RateEntityID
			keepConsumption = append(keepConsumption, entry)
			delete(wantedConsumption, stat)
		case !skippedEIDs[stat]:
			keepConsumption = append(keepConsumption, entry)
		}
	}
	remaining := make([]string, 0, len(wantedConsumption))
	for stat := range wantedConsumption {
		remaining = append(remaining, stat)
	}
	sort.Strings(remaining)
	for _, stat := range remaining {
		a := preferredConsumption[stat]
		keepConsumption = append(keepConsumption, Consumption{
			StatConsumption: stat,
			IncludedInStat:  a.ParentEntityID,
			StatRate:        a.RateEntityID,
			Extra:           NewExtras(),
		})
	}
	result.DeviceConsumption = keepConsumption

	// --- Energy sources ---
	proposed := BuildFromTopology(topo)
	proposedByKey := make(map[string]Source, len(proposed.EnergySources))
	for _, source := range proposed.EnergySources {
		proposedByKey[source.DedupKey()] = source
	}

	keepSources := make([]Source, 0, len(result.EnergySources))
	matchedPreferredEIDs := make(map[string]bool)

	for _, source := range result.EnergySources {
		sourceEIDs := source.EntityIDSet()
		if intersects(sourceEIDs, skippedEIDs) {
			continue
		}
		if len(sourceEIDs) > 0 && isSubset(sourceEIDs, wantedSourceEIDs) {
			if match, ok := proposedByKey[source.DedupKey()]; ok {
				source.StatRate = match.StatRate
			}
			keepSources = append(keepSources, source)
			for eid := range sourceEIDs {
				matchedPreferredEIDs[eid] = true
			}
			continue
		}
		keepSources = append(keepSources, source)
	}

	for _, source := range proposed.EnergySources {
		sourceEIDs := source.EntityIDSet()
		if isSubset(sourceEIDs, matchedPreferredEIDs) {
			continue
		}
		keepSources = append(keepSources, source)
		for eid := range sourceEIDs {
			matchedPreferredEIDs[eid] = true
		}
	}
	result.EnergySources = keepSources

	return result
}

func intersects(a, b map[string]bool) bool {
	small, big := a, b
	if len(b) < len(a) {
		small, big = b, a
	}
	for k := range small {
		if big[k] {
			return true
		}
	}
	return false
}

func isSubset(a, b map[string]bool) bool {
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}
