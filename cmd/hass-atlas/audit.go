package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/electrification-bus/hass-atlas/internal/audit"
	"github.com/electrification-bus/hass-atlas/internal/registry"
)

func runAudit(args []string) {
	fs := flag.NewFlagSet("audit", flag.ExitOnError)
	g := registerGlobalFlags(fs)
	format := fs.String("format", "tree", "Output format: tree, table, json")
	fs.Parse(args)

	ctx := context.Background()
	client, cfg, logger := mustClient(ctx, g)
	logger.Command("audit", cfg.DryRun)
	panelIntegration := defaultPanelIntegration(cfg)

	snap, warnings, err := client.FetchRegistries(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger.Warnings("registry", warnings)

	states, err := client.FetchStates(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	registry.EnrichFromStates(snap.Entities, states)

	trees, treeWarnings := buildTrees(snap, panelIntegration)
	logger.Warnings("tree", treeWarnings)

	current, err := client.FetchPrefs(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	dashboardIDs := current.AllEntityIDs()

	switch audit.Format(*format) {
	case audit.FormatTable:
		audit.RenderTable(os.Stdout, trees, dashboardIDs)
	case audit.FormatJSON:
		if err := audit.RenderJSON(os.Stdout, trees, panelIntegration); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	default:
		audit.RenderTree(os.Stdout, trees, panelIntegration, dashboardIDs)
	}

	report := audit.Build(trees, dashboardIDs)
	fmt.Fprintln(os.Stdout)
	audit.RenderDiagnostics(os.Stdout, report)
	if !report.Clean() {
		os.Exit(3)
	}
}
