package prefs

// Merge additively combines proposed into current: entries already present
// (by dedup key / stat_consumption) are left untouched, and only genuinely
// new entries are appended. Neither argument is mutated (spec §4.6,
// grounded on merge_prefs in the original energy-dashboard command).
func Merge(current, proposed Document) Document {
	result := current.Clone()

	existingSourceKeys := make(map[string]bool, len(result.EnergySources))
	for _, s := range result.EnergySources {
		existingSourceKeys[s.DedupKey()] = true
	}
	for _, s := range proposed.EnergySources {
		key := s.DedupKey()
		if existingSourceKeys[key] {
			continue
		}
		result.EnergySources = append(result.EnergySources, s.Clone())
		existingSourceKeys[key] = true
	}

	existingStats := make(map[string]bool, len(result.DeviceConsumption))
	for _, c := range result.DeviceConsumption {
		existingStats[c.StatConsumption] = true
	}
	for _, c := range proposed.DeviceConsumption {
		if existingStats[c.StatConsumption] {
			continue
		}
		result.DeviceConsumption = append(result.DeviceConsumption, c.Clone())
		existingStats[c.StatConsumption] = true
	}

	return result
}
