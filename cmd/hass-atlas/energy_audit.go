package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/electrification-bus/hass-atlas/internal/prefs"
)

// runEnergyAudit finds preferences-document entity_ids that no longer
// exist in the entity registry (stale references left behind by deleted
// integrations or renamed entities), and with -prune removes them.
func runEnergyAudit(args []string) {
	fs := flag.NewFlagSet("energy-audit", flag.ExitOnError)
	g := registerGlobalFlags(fs)
	prune := fs.Bool("prune", false, "Remove stale references and save")
	fs.Parse(args)

	ctx := context.Background()
	client, cfg, logger := mustClient(ctx, g)
	logger.Command("energy-audit", cfg.DryRun)

	snap, regWarnings, err := client.FetchRegistries(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger.Warnings("registry", regWarnings)

	current, err := client.FetchPrefs(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	liveIDs := make(map[string]bool, len(snap.Entities))
	for _, e := range snap.Entities {
		liveIDs[e.EntityID] = true
	}

	stale := prefs.FindStaleReferences(current, liveIDs)
	if len(stale) == 0 {
		fmt.Fprintln(os.Stdout, "OK  no stale references found")
		return
	}

	fmt.Fprintf(os.Stdout, "%d stale reference(s):\n", len(stale))
	staleIDs := make(map[string]bool, len(stale))
	for _, s := range stale {
		fmt.Fprintf(os.Stdout, "  - %s: %s\n", s.Section, s.EntityID)
		staleIDs[s.EntityID] = true
	}

	if !*prune {
		fmt.Fprintln(os.Stdout, "\npass -prune to remove these and save")
		return
	}

	cleaned := prefs.RemoveStaleReferences(current, staleIDs)
	printPrefsDiff(os.Stdout, current, cleaned)

	if cfg.DryRun {
		fmt.Fprintln(os.Stdout, "\ndry-run: no changes saved (pass -dry-run=false to save)")
		return
	}
	if err := client.SavePrefs(ctx, cleaned); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Fprintln(os.Stdout, "\nsaved.")
}
