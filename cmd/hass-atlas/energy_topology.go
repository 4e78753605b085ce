package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/electrification-bus/hass-atlas/internal/audit"
	"github.com/electrification-bus/hass-atlas/internal/engine"
	"github.com/electrification-bus/hass-atlas/internal/registry"
)

// runEnergyTopology reports what the topology-aware engine would decide,
// without touching the preferences document at all (read-only).
func runEnergyTopology(args []string) {
	fs := flag.NewFlagSet("energy-topology", flag.ExitOnError)
	g := registerGlobalFlags(fs)
	fs.Parse(args)

	ctx := context.Background()
	client, cfg, logger := mustClient(ctx, g)
	logger.Command("energy-topology", cfg.DryRun)
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
	registry.EnrichFromStates(snap.Entities, states)

	trees, treeWarnings := buildTrees(snap, panelIntegration)
	logger.Warnings("tree", treeWarnings)

	topologies := engine.ExtractTopologies(trees, panelIntegration, states)
	integrations := engine.DiscoverIntegrations(snap.Devices, snap.Entities, panelIntegration)
	circuitRoles := engine.ClassifyCircuits(trees, topologies, panelIntegration)
	topo := engine.BuildTopology(trees, topologies, integrations, circuitRoles, panelIntegration)

	audit.RenderTopology(os.Stdout, topo)
}
