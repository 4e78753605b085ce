package prefs

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePrefsJSON = `{
  "energy_sources": [
    {
      "type": "grid",
      "flow_from": [{"stat_energy_from": "sensor.grid_import", "stat_cost": "sensor.grid_cost"}],
      "flow_to": [{"stat_energy_to": "sensor.grid_export", "stat_compensation": "sensor.grid_comp"}]
    },
    {
      "type": "solar",
      "stat_energy_from": "sensor.solar",
      "stat_cost": "sensor.solar_cost"
    }
  ],
  "device_consumption": [
    {"stat_consumption": "sensor.c1", "included_in_stat": "sensor.grid_import"}
  ],
  "device_consumption_water": [
    {"stat_consumption": "sensor.water1"}
  ],
  "currency": "USD"
}`

func TestDocumentFromJSON_ParsesKnownAndOpaqueFields(t *testing.T) {
	doc, err := DocumentFromJSON([]byte(samplePrefsJSON))
	require.NoError(t, err)

	require.Len(t, doc.EnergySources, 2)
	grid := doc.EnergySources[0]
	assert.Equal(t, SourceGrid, grid.Type)
	require.Len(t, grid.FlowFrom, 1)
	assert.Equal(t, "sensor.grid_import", grid.FlowFrom[0].StatEnergyFrom)
	cost, ok := grid.FlowFrom[0].Extra.Get("stat_cost")
	require.True(t, ok)
	assert.Equal(t, `"sensor.grid_cost"`, string(cost))

	solar := doc.EnergySources[1]
	assert.Equal(t, "sensor.solar", solar.StatEnergyFrom)
	_, ok = solar.Extra.Get("stat_cost")
	assert.True(t, ok)

	require.Len(t, doc.DeviceConsumption, 1)
	assert.Equal(t, "sensor.c1", doc.DeviceConsumption[0].StatConsumption)
	assert.Equal(t, "sensor.grid_import", doc.DeviceConsumption[0].IncludedInStat)

	require.Len(t, doc.DeviceConsumptionWater, 1)
	assert.Equal(t, "sensor.water1", doc.DeviceConsumptionWater[0].StatConsumption)

	currency, ok := doc.TopLevelExtra.Get("currency")
	require.True(t, ok)
	assert.Equal(t, `"USD"`, string(currency))
}

func TestDocument_ToJSON_RoundTripsOpaqueFieldsByteForByte(t *testing.T) {
	doc, err := DocumentFromJSON([]byte(samplePrefsJSON))
	require.NoError(t, err)

	out, err := doc.ToJSON()
	require.NoError(t, err)

	reparsed, err := DocumentFromJSON(out)
	require.NoError(t, err)

	require.Len(t, reparsed.EnergySources, 2)
	cost, ok := reparsed.EnergySources[0].FlowFrom[0].Extra.Get("stat_cost")
	require.True(t, ok)
	assert.Equal(t, `"sensor.grid_cost"`, string(cost))

	currency, ok := reparsed.TopLevelExtra.Get("currency")
	require.True(t, ok)
	assert.Equal(t, `"USD"`, string(currency))
}

func TestDocument_ToJSON_FieldOrderIsNotAlphabetical(t *testing.T) {
	// encoding/json's default map marshaling sorts keys alphabetically;
	// marshalOrdered must place energy_sources/device_consumption first
	// regardless, matching the hub's own field order.
	doc := Document{
		EnergySources:     []Source{{Type: SourceSolar, StatEnergyFrom: "sensor.solar", Extra: NewExtras()}},
		DeviceConsumption: []Consumption{{StatConsumption: "sensor.c1", Extra: NewExtras()}},
		TopLevelExtra:     NewExtras(),
	}
	doc.TopLevelExtra.Set("currency", json.RawMessage(`"USD"`))

	out, err := doc.ToJSON()
	require.NoError(t, err)

	var top map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(out, &top))
	assert.Contains(t, top, "energy_sources")
	assert.Contains(t, top, "device_consumption")
	assert.Contains(t, top, "currency")
	assert.NotContains(t, top, "device_consumption_water", "an empty water section is omitted rather than emitted as null/[]")

	firstKeyIdx := indexOfFirstKey(string(out), []string{"energy_sources", "device_consumption", "currency"})
	assert.Equal(t, "energy_sources", firstKeyIdx)
}

func indexOfFirstKey(raw string, candidates []string) string {
	best := -1
	bestKey := ""
	for _, k := range candidates {
		idx := strings.Index(raw, `"`+k+`"`)
		if idx < 0 {
			continue
		}
		if best == -1 || idx < best {
			best = idx
			bestKey = k
		}
	}
	return bestKey
}
