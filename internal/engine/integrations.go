package engine

import (
	"sort"

	"github.com/electrification-bus/hass-atlas/internal/registry"
)

// DiscoverIntegrations scans all entities for cumulative-energy meters not
// owned by the Panel integration and groups them by platform, per spec
// §4.3. Platforms are emitted in lexical order; within a platform, devices
// are listed in first-seen order.
func DiscoverIntegrations(allDevices []*registry.Device, allEntities []registry.Entity, panelIntegration registry.PanelIntegration) []EnergyIntegration {
	deviceByID := make(map[string]*registry.Device, len(allDevices))
	for _, d := range allDevices {
		deviceByID[d.ID] = d
	}

	byPlatform := make(map[string][]registry.Entity)
	for _, e := range allEntities {
		if e.Platform == string(panelIntegration) {
			continue
		}
		if e.DeviceClass != "energy" || e.StateClass != "total_increasing" {
			continue
		}
		if e.Disabled() {
			continue
		}
		byPlatform[e.Platform] = append(byPlatform[e.Platform], e)
	}

	platforms := make([]string, 0, len(byPlatform))
	for p := range byPlatform {
		platforms = append(platforms, p)
	}
	sort.Strings(platforms)

	out := make([]EnergyIntegration, 0, len(platforms))
	for _, platform := range platforms {
		entities := byPlatform[platform]
		seen := make(map[string]bool)
		var devices []*registry.Device
		for _, e := range entities {
			if e.DeviceID == "" || seen[e.DeviceID] {
				continue
			}
			if d, ok := deviceByID[e.DeviceID]; ok {
				devices = append(devices, d)
				seen[e.DeviceID] = true
			}
		}
		out = append(out, EnergyIntegration{
			Platform:       platform,
			Devices:        devices,
			EnergyEntities: entities,
		})
	}
	return out
}
