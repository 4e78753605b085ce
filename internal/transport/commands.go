package transport

import (
	"context"
	"encoding/json"

	"github.com/electrification-bus/hass-atlas/internal/prefs"
	"github.com/electrification-bus/hass-atlas/internal/registry"
)

// FetchRegistries issues the three registry-list commands and parses the
// results into a Snapshot, collecting per-record warnings for malformed
// entries (spec §7 — malformed records are skipped, not fatal).
func (c *Client) FetchRegistries(ctx context.Context) (*registry.Snapshot, []string, error) {
	var rawDevices []registry.RawDevice
	if err := c.Send(ctx, CmdDeviceRegistryList, nil, &rawDevices); err != nil {
		return nil, nil, err
	}
	var rawEntities []registry.RawEntity
	if err := c.Send(ctx, CmdEntityRegistryList, nil, &rawEntities); err != nil {
		return nil, nil, err
	}
	var rawAreas []registry.RawArea
	if err := c.Send(ctx, CmdAreaRegistryList, nil, &rawAreas); err != nil {
		return nil, nil, err
	}
	snap, warnings := registry.BuildSnapshot(rawDevices, rawEntities, rawAreas)
	return snap, warnings, nil
}

// FetchStates issues get_states and returns the parsed state map.
func (c *Client) FetchStates(ctx context.Context) (registry.StateMap, error) {
	var raw []registry.RawState
	if err := c.Send(ctx, CmdGetStates, nil, &raw); err != nil {
		return nil, err
	}
	return registry.BuildStateMap(raw), nil
}

// FetchPrefs issues energy/get_prefs and parses the result into a
// prefs.Document, preserving every field the engine does not model.
func (c *Client) FetchPrefs(ctx context.Context) (prefs.Document, error) {
	var raw json.RawMessage
	if err := c.Send(ctx, CmdGetEnergyPrefs, nil, &raw); err != nil {
		return prefs.Document{}, err
	}
	return prefs.DocumentFromJSON(raw)
}

// SavePrefs issues energy/save_prefs with doc. Per spec §5, this is the
// only write a run performs, and only after every read has already
// succeeded and the diff has been shown to the caller.
func (c *Client) SavePrefs(ctx context.Context, doc prefs.Document) error {
	raw, err := doc.ToJSON()
	if err != nil {
		return err
	}
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return err
	}
	return c.Send(ctx, CmdSaveEnergyPrefs, payload, nil)
}
