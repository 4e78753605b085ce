package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strp(s string) *string { return &s }

func TestParseDevice_MissingID(t *testing.T) {
	_, err := ParseDevice(RawDevice{})
	require.Error(t, err)
}

func TestParseDevice_IdentifiersSkipMalformedPairs(t *testing.T) {
	d, err := ParseDevice(RawDevice{
		ID: "dev-1",
		Identifiers: [][]string{
			{"span_ebus", "abc123"},
			{"only-one-element"},
		},
	})
	require.NoError(t, err)
	require.Len(t, d.Identifiers, 1)
	assert.Equal(t, "span_ebus", d.Identifiers[0].Domain)
	assert.Equal(t, "abc123", d.Identifiers[0].LocalID)
}

func TestParseEntity_RequiresEntityIDAndUniqueID(t *testing.T) {
	_, err := ParseEntity(RawEntity{EntityID: "sensor.x"})
	require.Error(t, err)
	_, err = ParseEntity(RawEntity{UniqueID: "abc"})
	require.Error(t, err)
}

func TestParseEntity_DualKeyFallback(t *testing.T) {
	e, err := ParseEntity(RawEntity{
		EntityID:            "sensor.circuit_1_energy",
		UniqueID:            "abc123_imported-energy",
		OriginalDeviceClass: strp("energy"),
		OriginalStateClass:  strp("total_increasing"),
	})
	require.NoError(t, err)
	assert.Equal(t, "energy", e.DeviceClass, "falls back to original_device_class when device_class is unset")
	assert.Equal(t, "total_increasing", e.StateClass)
}

func TestParseEntity_OverrideWinsOverOriginal(t *testing.T) {
	e, err := ParseEntity(RawEntity{
		EntityID:            "sensor.circuit_1_energy",
		UniqueID:            "abc123_imported-energy",
		DeviceClass:         strp("power"),
		OriginalDeviceClass: strp("energy"),
	})
	require.NoError(t, err)
	assert.Equal(t, "power", e.DeviceClass)
}

func TestBuildSnapshot_SkipsMalformedRecordsWithWarning(t *testing.T) {
	snap, warnings := BuildSnapshot(
		[]RawDevice{{ID: "dev-1"}, {}},
		[]RawEntity{{EntityID: "sensor.a", UniqueID: "u1"}, {EntityID: "sensor.b"}},
		[]RawArea{{AreaID: "kitchen"}, {}},
	)
	assert.Len(t, snap.Devices, 1)
	assert.Len(t, snap.Entities, 1)
	assert.Len(t, snap.Areas, 1)
	assert.Len(t, warnings, 3)
}

func TestEnrichFromStates_OnlyFillsEmptyFields(t *testing.T) {
	entities := []Entity{
		{EntityID: "sensor.a", DeviceClass: "power"},
		{EntityID: "sensor.b"},
	}
	states := StateMap{
		"sensor.a": {State: "10", Attributes: map[string]interface{}{"device_class": "energy"}},
		"sensor.b": {State: "20", Attributes: map[string]interface{}{"device_class": "energy", "state_class": "total_increasing"}},
	}
	EnrichFromStates(entities, states)
	assert.Equal(t, "power", entities[0].DeviceClass, "already-set registry field is never overwritten")
	assert.Equal(t, "energy", entities[1].DeviceClass)
	assert.Equal(t, "total_increasing", entities[1].StateClass)
}

func TestStateMap_StateValueTreatsUnavailableAsAbsent(t *testing.T) {
	m := StateMap{
		"sensor.a": {State: "123.4"},
		"sensor.b": {State: "unavailable"},
		"sensor.c": {State: "unknown"},
	}
	assert.Equal(t, "123.4", m.StateValue("sensor.a"))
	assert.Equal(t, "", m.StateValue("sensor.b"))
	assert.Equal(t, "", m.StateValue("sensor.c"))
	assert.Equal(t, "", m.StateValue("sensor.missing"))
}

func TestStateMap_Attr(t *testing.T) {
	m := StateMap{
		"sensor.a": {Attributes: map[string]interface{}{"circuit_id": "14", "empty": nil}},
	}
	assert.Equal(t, "14", m.Attr("sensor.a", "circuit_id"))
	assert.Equal(t, "", m.Attr("sensor.a", "empty"))
	assert.Equal(t, "", m.Attr("sensor.a", "missing"))
	assert.Equal(t, "", m.Attr("sensor.missing", "circuit_id"))
}
