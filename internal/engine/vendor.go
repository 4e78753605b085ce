package engine

import (
	"strings"

	"github.com/electrification-bus/hass-atlas/internal/registry"
)

// VendorPlatformMap maps a lowercase vendor-name substring to the set of
// integration platform tags that may report that vendor's hardware (spec
// §4.5 and §9). Matching is intentionally loose: a map key needs only to
// appear as a substring of the vendor string (case-insensitively), which
// lets "Enphase Energy" match the "enphase" key. This is the specified
// fallback behavior, not a placeholder for a curated list.
var VendorPlatformMap = map[string]map[string]bool{
	"tesla":     {"powerwall": true, "tesla_fleet": true},
	"enphase":   {"enphase_envoy": true},
	"solaredge": {"solaredge": true},
	"generac":   {"generac": true},
	"sonnen":    {"sonnen": true},
}

// FindIntegrationForVendor returns the first integration (in the order
// given) whose platform is a candidate for vendor, per VendorPlatformMap.
func FindIntegrationForVendor(vendor string, integrations []EnergyIntegration) (EnergyIntegration, bool) {
	if vendor == "" {
		return EnergyIntegration{}, false
	}
	vendorLower := strings.ToLower(vendor)
	candidates := make(map[string]bool)
	for key, platforms := range VendorPlatformMap {
		if strings.Contains(vendorLower, key) {
			for p := range platforms {
				candidates[p] = true
			}
		}
	}
	for _, integ := range integrations {
		if candidates[integ.Platform] {
			return integ, true
		}
	}
	return EnergyIntegration{}, false
}

// findEntityOnIntegrationContaining returns the first energy entity on
// integration whose EntityID contains keyword.
func findEntityOnIntegrationContaining(integ EnergyIntegration, keyword string) (registry.Entity, bool) {
	for _, e := range integ.EnergyEntities {
		if strings.Contains(e.EntityID, keyword) {
			return e, true
		}
	}
	return registry.Entity{}, false
}
