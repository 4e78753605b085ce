package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFindIntegrationForVendor_SubstringMatchIsCaseInsensitive(t *testing.T) {
	integrations := []EnergyIntegration{
		{Platform: "solaredge"},
		{Platform: "enphase_envoy"},
	}
	got, ok := FindIntegrationForVendor("Enphase Energy", integrations)
	assert.True(t, ok)
	assert.Equal(t, "enphase_envoy", got.Platform)
}

func TestFindIntegrationForVendor_NoMatch(t *testing.T) {
	integrations := []EnergyIntegration{{Platform: "solaredge"}}
	_, ok := FindIntegrationForVendor("generac", integrations)
	assert.False(t, ok)
}

func TestFindIntegrationForVendor_EmptyVendor(t *testing.T) {
	_, ok := FindIntegrationForVendor("", []EnergyIntegration{{Platform: "powerwall"}})
	assert.False(t, ok)
}

func TestFindIntegrationForVendor_TeslaMapsToEitherIntegration(t *testing.T) {
	integrations := []EnergyIntegration{{Platform: "tesla_fleet"}}
	got, ok := FindIntegrationForVendor("Tesla", integrations)
	assert.True(t, ok)
	assert.Equal(t, "tesla_fleet", got.Platform)
}
