package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/electrification-bus/hass-atlas/internal/orchestrator"
	"github.com/electrification-bus/hass-atlas/internal/prefs"
	"github.com/electrification-bus/hass-atlas/internal/registry"
)

// runEnergy implements the "energy" command: reconcile the energy
// dashboard preferences against the panel registry, either with the
// plain per-tree proposal (additive merge) or, with -topology, the full
// topology-aware pipeline (authoritative apply). Writes only when
// -dry-run=false.
func runEnergy(args []string) {
	fs := flag.NewFlagSet("energy", flag.ExitOnError)
	g := registerGlobalFlags(fs)
	topologyAware := fs.Bool("topology", false, "Use the topology-aware pipeline instead of the plain per-tree merge")
	fs.Parse(args)

	ctx := context.Background()
	client, cfg, logger := mustClient(ctx, g)
	logger.Command("energy", cfg.DryRun)
	panelIntegration := defaultPanelIntegration(cfg)

	snap, regWarnings, err := client.FetchRegistries(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger.Warnings("registry", regWarnings)

	states, err := client.FetchStates(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	current, err := client.FetchPrefs(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	var proposed prefs.Document
	var warnings []string

	if *topologyAware {
		result := orchestrator.BuildTopologyAware(snap, states, panelIntegration, current)
		proposed = result.Proposed
		warnings = result.Warnings
	} else {
		registry.EnrichFromStates(snap.Entities, states)
		trees, treeWarnings := buildTrees(snap, panelIntegration)
		warnings = treeWarnings
		proposed = orchestrator.BuildPlain(trees, panelIntegration, current)
	}
	logger.Warnings("pipeline", warnings)

	printPrefsDiff(os.Stdout, current, proposed)

	if cfg.DryRun {
		fmt.Fprintln(os.Stdout, "\ndry-run: no changes saved (pass -dry-run=false to save)")
		return
	}
	if err := client.SavePrefs(ctx, proposed); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Fprintln(os.Stdout, "\nsaved.")
}
