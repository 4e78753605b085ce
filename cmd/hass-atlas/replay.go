package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/electrification-bus/hass-atlas/internal/orchestrator"
	ataslog "github.com/electrification-bus/hass-atlas/internal/log"
	"github.com/electrification-bus/hass-atlas/internal/prefs"
	"github.com/electrification-bus/hass-atlas/internal/registry"
	"github.com/electrification-bus/hass-atlas/internal/transport"
)

// runReplay reruns the topology-aware pipeline against a capture file
// recorded by an earlier live run (-url/-token are not needed; nothing is
// fetched over the network and nothing is ever saved). Useful for
// reproducing a decision offline, or as a fixture for scenario tests.
func runReplay(args []string) {
	fs := flag.NewFlagSet("replay", flag.ExitOnError)
	logLevel := fs.String("log-level", "info", "debug, info, warn, error")
	panelIntegration := fs.String("panel-integration", "span_ebus", "Panel integration platform tag")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: hass-atlas replay <capture-file>")
		os.Exit(1)
	}
	path := fs.Arg(0)

	logger := ataslog.New(*logLevel)
	logger.Command("replay", true)

	f, err := os.Open(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer f.Close()

	records, err := transport.ReadCapture(f)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	byCommand := latestResultByCommand(records)

	var rawDevices []registry.RawDevice
	var rawEntities []registry.RawEntity
	var rawAreas []registry.RawArea
	var rawStates []registry.RawState

	if err := decodeInto(byCommand, transport.CmdDeviceRegistryList, &rawDevices); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := decodeInto(byCommand, transport.CmdEntityRegistryList, &rawEntities); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := decodeInto(byCommand, transport.CmdAreaRegistryList, &rawAreas); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := decodeInto(byCommand, transport.CmdGetStates, &rawStates); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	snap, warnings := registry.BuildSnapshot(rawDevices, rawEntities, rawAreas)
	logger.Warnings("registry", warnings)
	states := registry.BuildStateMap(rawStates)

	var current prefs.Document
	if raw, ok := byCommand[transport.CmdGetEnergyPrefs]; ok {
		current, err = prefs.DocumentFromJSON(raw)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}

	result := orchestrator.BuildTopologyAware(snap, states, registry.PanelIntegration(*panelIntegration), current)
	logger.Warnings("pipeline", result.Warnings)
	printPrefsDiff(os.Stdout, result.Current, result.Proposed)
	fmt.Fprintln(os.Stdout, "\nreplay: read-only, nothing saved")
}

func latestResultByCommand(records []transport.CapturedCommand) map[string][]byte {
	out := make(map[string][]byte, len(records))
	for _, r := range records {
		out[r.Command] = r.Result
	}
	return out
}

func decodeInto(byCommand map[string][]byte, command string, out any) error {
	raw, ok := byCommand[command]
	if !ok {
		return nil
	}
	return json.Unmarshal(raw, out)
}
