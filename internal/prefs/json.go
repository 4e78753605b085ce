package prefs

import (
	"encoding/json"
	"sort"
)

// DocumentFromJSON decodes a raw energy/get_prefs payload. Every field the
// engine doesn't model — top-level keys and per-object fields like
// stat_cost — is captured in the relevant Extras bag so it round-trips
// untouched (spec §3, §4.6). device_consumption_water entries are parsed
// the same way as device_consumption entries.
func DocumentFromJSON(raw []byte) (Document, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return Document{}, err
	}

	doc := Document{TopLevelExtra: NewExtras()}

	if v, ok := top["energy_sources"]; ok {
		var rawSources []json.RawMessage
		if err := json.Unmarshal(v, &rawSources); err != nil {
			return Document{}, err
		}
		for _, rs := range rawSources {
			s, err := sourceFromJSON(rs)
			if err != nil {
				return Document{}, err
			}
			doc.EnergySources = append(doc.EnergySources, s)
		}
	}

	if v, ok := top["device_consumption"]; ok {
		var rawEntries []json.RawMessage
		if err := json.Unmarshal(v, &rawEntries); err != nil {
			return Document{}, err
		}
		for _, re := range rawEntries {
			c, err := consumptionFromJSON(re)
			if err != nil {
				return Document{}, err
			}
			doc.DeviceConsumption = append(doc.DeviceConsumption, c)
		}
	}

	if v, ok := top["device_consumption_water"]; ok {
		var rawEntries []json.RawMessage
		if err := json.Unmarshal(v, &rawEntries); err != nil {
			return Document{}, err
		}
		for _, re := range rawEntries {
			c, err := consumptionFromJSON(re)
			if err != nil {
				return Document{}, err
			}
			doc.DeviceConsumptionWater = append(doc.DeviceConsumptionWater, c)
		}
	}

	for k, v := range top {
		switch k {
		case "energy_sources", "device_consumption", "device_consumption_water":
			continue
		}
		doc.TopLevelExtra.Set(k, v)
	}

	return doc, nil
}

var knownSourceFields = map[string]bool{
	"type": true, "flow_from": true, "flow_to": true,
	"stat_energy_from": true, "stat_energy_to": true, "stat_rate": true,
}

func sourceFromJSON(raw json.RawMessage) (Source, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Source{}, err
	}
	s := Source{Extra: NewExtras()}
	if v, ok := fields["type"]; ok {
		var t string
		if err := json.Unmarshal(v, &t); err != nil {
			return Source{}, err
		}
		s.Type = SourceType(t)
	}
	if v, ok := fields["flow_from"]; ok {
		var raws []json.RawMessage
		if err := json.Unmarshal(v, &raws); err != nil {
			return Source{}, err
		}
		for _, r := range raws {
			var f map[string]json.RawMessage
			if err := json.Unmarshal(r, &f); err != nil {
				return Source{}, err
			}
			ff := FlowFrom{Extra: NewExtras()}
			if sv, ok := f["stat_energy_from"]; ok {
				json.Unmarshal(sv, &ff.StatEnergyFrom)
			}
			for k, fv := range f {
				if k != "stat_energy_from" {
					ff.Extra.Set(k, fv)
				}
			}
			s.FlowFrom = append(s.FlowFrom, ff)
		}
	}
	if v, ok := fields["flow_to"]; ok {
		var raws []json.RawMessage
		if err := json.Unmarshal(v, &raws); err != nil {
			return Source{}, err
		}
		for _, r := range raws {
			var f map[string]json.RawMessage
			if err := json.Unmarshal(r, &f); err != nil {
				return Source{}, err
			}
			ft := FlowTo{Extra: NewExtras()}
			if sv, ok := f["stat_energy_to"]; ok {
				json.Unmarshal(sv, &ft.StatEnergyTo)
			}
			for k, fv := range f {
				if k != "stat_energy_to" {
					ft.Extra.Set(k, fv)
				}
			}
			s.FlowTo = append(s.FlowTo, ft)
		}
	}
	if v, ok := fields["stat_energy_from"]; ok {
		json.Unmarshal(v, &s.StatEnergyFrom)
	}
	if v, ok := fields["stat_energy_to"]; ok {
		json.Unmarshal(v, &s.StatEnergyTo)
	}
	if v, ok := fields["stat_rate"]; ok {
		json.Unmarshal(v, &s.StatRate)
	}
	for k, v := range fields {
		if !knownSourceFields[k] {
			s.Extra.Set(k, v)
		}
	}
	return s, nil
}

func consumptionFromJSON(raw json.RawMessage) (Consumption, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Consumption{}, err
	}
	c := Consumption{Extra: NewExtras()}
	if v, ok := fields["stat_consumption"]; ok {
		json.Unmarshal(v, &c.StatConsumption)
	}
	if v, ok := fields["included_in_stat"]; ok {
		json.Unmarshal(v, &c.IncludedInStat)
	}
	if v, ok := fields["stat_rate"]; ok {
		json.Unmarshal(v, &c.StatRate)
	}
	for k, v := range fields {
		switch k {
		case "stat_consumption", "included_in_stat", "stat_rate":
			continue
		}
		c.Extra.Set(k, v)
	}
	return c, nil
}

// ToJSON encodes the document back to the wire shape HA's energy/save_prefs
// command expects, reattaching every preserved extra field.
func (d Document) ToJSON() ([]byte, error) {
	top := make(map[string]json.RawMessage)

	sourcesJSON := make([]json.RawMessage, 0, len(d.EnergySources))
	for _, s := range d.EnergySources {
		raw, err := s.toJSON()
		if err != nil {
			return nil, err
		}
		sourcesJSON = append(sourcesJSON, raw)
	}
	if raw, err := json.Marshal(sourcesJSON); err == nil {
		top["energy_sources"] = raw
	} else {
		return nil, err
	}

	consumptionJSON := make([]json.RawMessage, 0, len(d.DeviceConsumption))
	for _, c := range d.DeviceConsumption {
		raw, err := c.toJSON()
		if err != nil {
			return nil, err
		}
		consumptionJSON = append(consumptionJSON, raw)
	}
	if raw, err := json.Marshal(consumptionJSON); err == nil {
		top["device_consumption"] = raw
	} else {
		return nil, err
	}

	if len(d.DeviceConsumptionWater) > 0 {
		waterJSON := make([]json.RawMessage, 0, len(d.DeviceConsumptionWater))
		for _, c := range d.DeviceConsumptionWater {
			raw, err := c.toJSON()
			if err != nil {
				return nil, err
			}
			waterJSON = append(waterJSON, raw)
		}
		if raw, err := json.Marshal(waterJSON); err == nil {
			top["device_consumption_water"] = raw
		} else {
			return nil, err
		}
	}

	for _, k := range d.TopLevelExtra.Keys() {
		v, _ := d.TopLevelExtra.Get(k)
		top[k] = v
	}

	return marshalOrdered(top, append([]string{"energy_sources", "device_consumption", "device_consumption_water"}, d.TopLevelExtra.Keys()...))
}

func (s Source) toJSON() (json.RawMessage, error) {
	fields := make(map[string]json.RawMessage)
	order := []string{"type"}
	if b, err := json.Marshal(string(s.Type)); err == nil {
		fields["type"] = b
	} else {
		return nil, err
	}
	if s.FlowFrom != nil {
		var raws []json.RawMessage
		for _, f := range s.FlowFrom {
			r, err := f.toJSON()
			if err != nil {
				return nil, err
			}
			raws = append(raws, r)
		}
		b, err := json.Marshal(raws)
		if err != nil {
			return nil, err
		}
		fields["flow_from"] = b
		order = append(order, "flow_from")
	}
	if s.FlowTo != nil {
		var raws []json.RawMessage
		for _, f := range s.FlowTo {
			r, err := f.toJSON()
			if err != nil {
				return nil, err
			}
			raws = append(raws, r)
		}
		b, err := json.Marshal(raws)
		if err != nil {
			return nil, err
		}
		fields["flow_to"] = b
		order = append(order, "flow_to")
	}
	if s.StatEnergyFrom != "" {
		b, _ := json.Marshal(s.StatEnergyFrom)
		fields["stat_energy_from"] = b
		order = append(order, "stat_energy_from")
	}
	if s.StatEnergyTo != "" {
		b, _ := json.Marshal(s.StatEnergyTo)
		fields["stat_energy_to"] = b
		order = append(order, "stat_energy_to")
	}
	if s.StatRate != "" {
		b, _ := json.Marshal(s.StatRate)
		fields["stat_rate"] = b
		order = append(order, "stat_rate")
	}
	for _, k := range s.Extra.Keys() {
		v, _ := s.Extra.Get(k)
		fields[k] = v
		order = append(order, k)
	}
	return marshalOrdered(fields, order)
}

func (f FlowFrom) toJSON() (json.RawMessage, error) {
	fields := map[string]json.RawMessage{}
	order := []string{"stat_energy_from"}
	b, _ := json.Marshal(f.StatEnergyFrom)
	fields["stat_energy_from"] = b
	for _, k := range f.Extra.Keys() {
		v, _ := f.Extra.Get(k)
		fields[k] = v
		order = append(order, k)
	}
	return marshalOrdered(fields, order)
}

func (f FlowTo) toJSON() (json.RawMessage, error) {
	fields := map[string]json.RawMessage{}
	order := []string{"stat_energy_to"}
	b, _ := json.Marshal(f.StatEnergyTo)
	fields["stat_energy_to"] = b
	for _, k := range f.Extra.Keys() {
		v, _ := f.Extra.Get(k)
		fields[k] = v
		order = append(order, k)
	}
	return marshalOrdered(fields, order)
}

func (c Consumption) toJSON() (json.RawMessage, error) {
	fields := map[string]json.RawMessage{}
	order := []string{"stat_consumption"}
	b, _ := json.Marshal(c.StatConsumption)
	fields["stat_consumption"] = b
	if c.IncludedInStat != "" {
		ib, _ := json.Marshal(c.IncludedInStat)
		fields["included_in_stat"] = ib
		order = append(order, "included_in_stat")
	}
	if c.StatRate != "" {
		rb, _ := json.Marshal(c.StatRate)
		fields["stat_rate"] = rb
		order = append(order, "stat_rate")
	}
	for _, k := range c.Extra.Keys() {
		v, _ := c.Extra.Get(k)
		fields[k] = v
		order = append(order, k)
	}
	return marshalOrdered(fields, order)
}

// marshalOrdered renders fields as a JSON object with keys in the given
// order (falling back to a stable sort for any key order omits), since
// encoding/json's map marshaling would otherwise sort keys alphabetically
// and scramble a document's original field order on every save.
func marshalOrdered(fields map[string]json.RawMessage, order []string) (json.RawMessage, error) {
	seen := make(map[string]bool, len(order))
	keys := make([]string, 0, len(fields))
	for _, k := range order {
		if fields[k] == nil && !hasKey(fields, k) {
			continue
		}
		if seen[k] {
			continue
		}
		seen[k] = true
		keys = append(keys, k)
	}
	var rest []string
	for k := range fields {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	keys = append(keys, rest...)

	buf := []byte{'{'}
	for i, k := range keys {
		if i > 0 {
			buf = append(buf, ',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf = append(buf, kb...)
		buf = append(buf, ':')
		buf = append(buf, fields[k]...)
	}
	buf = append(buf, '}')
	return buf, nil
}

func hasKey(fields map[string]json.RawMessage, k string) bool {
	_, ok := fields[k]
	return ok
}
