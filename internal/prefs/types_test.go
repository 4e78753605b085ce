package prefs

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtras_SetGetDelete(t *testing.T) {
	e := NewExtras()
	e.Set("stat_cost", json.RawMessage(`"sensor.cost"`))
	v, ok := e.Get("stat_cost")
	require.True(t, ok)
	assert.Equal(t, `"sensor.cost"`, string(v))

	_, ok = e.Get("missing")
	assert.False(t, ok)

	e.Delete("stat_cost")
	_, ok = e.Get("stat_cost")
	assert.False(t, ok)
	assert.Equal(t, 0, e.Len())
}

func TestExtras_KeysPreserveInsertionOrder(t *testing.T) {
	e := NewExtras()
	e.Set("b", json.RawMessage(`1`))
	e.Set("a", json.RawMessage(`2`))
	e.Set("b", json.RawMessage(`3`)) // overwrite, keeps original position
	assert.Equal(t, []string{"b", "a"}, e.Keys())
}

func TestExtras_CloneIsIndependent(t *testing.T) {
	e := NewExtras()
	e.Set("k", json.RawMessage(`1`))
	clone := e.Clone()
	clone.Set("k2", json.RawMessage(`2`))
	assert.Equal(t, 1, e.Len())
	assert.Equal(t, 2, clone.Len())
}

func TestExtras_Equal(t *testing.T) {
	a := NewExtras()
	a.Set("x", json.RawMessage(`1`))
	b := NewExtras()
	b.Set("x", json.RawMessage(`1`))
	assert.True(t, a.Equal(b))

	b.Set("y", json.RawMessage(`2`))
	assert.False(t, a.Equal(b))
}

func TestSource_DedupKey_GridSortsFlowsForStableKey(t *testing.T) {
	s1 := Source{Type: SourceGrid,
		FlowFrom: []FlowFrom{{StatEnergyFrom: "sensor.b"}, {StatEnergyFrom: "sensor.a"}},
		FlowTo:   []FlowTo{{StatEnergyTo: "sensor.c"}},
	}
	s2 := Source{Type: SourceGrid,
		FlowFrom: []FlowFrom{{StatEnergyFrom: "sensor.a"}, {StatEnergyFrom: "sensor.b"}},
		FlowTo:   []FlowTo{{StatEnergyTo: "sensor.c"}},
	}
	assert.Equal(t, s1.DedupKey(), s2.DedupKey())
}

func TestSource_DedupKey_SolarAndBattery(t *testing.T) {
	solar := Source{Type: SourceSolar, StatEnergyFrom: "sensor.solar"}
	assert.Equal(t, "solar:sensor.solar", solar.DedupKey())

	batt := Source{Type: SourceBattery, StatEnergyFrom: "sensor.charge", StatEnergyTo: "sensor.discharge"}
	assert.Equal(t, "battery:sensor.charge:sensor.discharge", batt.DedupKey())
}

func TestSource_DedupKey_OtherTypesUseStableHashOfExtras(t *testing.T) {
	gas1 := Source{Type: SourceGas, Extra: NewExtras()}
	gas1.Extra.Set("stat_energy_from", json.RawMessage(`"sensor.gas"`))
	gas2 := Source{Type: SourceGas, Extra: NewExtras()}
	gas2.Extra.Set("stat_energy_from", json.RawMessage(`"sensor.gas"`))
	assert.Equal(t, gas1.DedupKey(), gas2.DedupKey(), "identical extras produce the same key")

	gas3 := Source{Type: SourceGas, Extra: NewExtras()}
	gas3.Extra.Set("stat_energy_from", json.RawMessage(`"sensor.other-gas"`))
	assert.NotEqual(t, gas1.DedupKey(), gas3.DedupKey())
}

func TestSource_EntityIDSet_CollectsAllReferencedIDs(t *testing.T) {
	s := Source{
		Type:           SourceGrid,
		FlowFrom:       []FlowFrom{{StatEnergyFrom: "sensor.import"}},
		FlowTo:         []FlowTo{{StatEnergyTo: "sensor.export"}},
		StatEnergyFrom: "sensor.ignored-for-grid-but-still-collected",
	}
	set := s.EntityIDSet()
	assert.True(t, set["sensor.import"])
	assert.True(t, set["sensor.export"])
	assert.True(t, set["sensor.ignored-for-grid-but-still-collected"])
}

func TestDocument_Clone_DoesNotShareBackingArrays(t *testing.T) {
	doc := Document{
		EnergySources:     []Source{{Type: SourceSolar, StatEnergyFrom: "sensor.solar"}},
		DeviceConsumption: []Consumption{{StatConsumption: "sensor.c1"}},
		TopLevelExtra:     NewExtras(),
	}
	clone := doc.Clone()
	clone.EnergySources[0].StatEnergyFrom = "sensor.mutated"
	clone.DeviceConsumption[0].StatConsumption = "sensor.mutated"
	assert.Equal(t, "sensor.solar", doc.EnergySources[0].StatEnergyFrom)
	assert.Equal(t, "sensor.c1", doc.DeviceConsumption[0].StatConsumption)
}
