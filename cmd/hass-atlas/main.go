// Command hass-atlas reconciles a SPAN (or compatible branch-circuit
// panel) device tree against a Home Assistant hub's energy dashboard.
//
// Usage:
//
//	hass-atlas <command> [flags]
//
// Commands:
//
//	audit            Display the panel device tree and report misconfigurations
//	energy           Auto-configure the energy dashboard (additive merge)
//	energy-topology  Show energy system topology and role assignments
//	energy-audit     Find stale dashboard references to entities that no longer exist
//	replay           Run the pipeline against a captured registry/state/prefs snapshot
//	areas            Not implemented — area assignment is outside this engine's scope
//	normalize        Not implemented — entity-ID renaming is outside this engine's scope
//
// Global flags: -url, -token, -dry-run, -log-level, -panel-integration.
// Environment variables: HA_URL, HASS_API_TOKEN.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/electrification-bus/hass-atlas/internal/config"
	"github.com/electrification-bus/hass-atlas/internal/discovery"
	ataslog "github.com/electrification-bus/hass-atlas/internal/log"
	"github.com/electrification-bus/hass-atlas/internal/registry"
	"github.com/electrification-bus/hass-atlas/internal/transport"
)

const usage = `hass-atlas - Topology-Aware Energy Reconciliation Engine

Usage:
  hass-atlas <command> [flags]

Commands:
  audit            Display the panel device tree and report misconfigurations
  energy           Auto-configure the energy dashboard (additive merge)
  energy-topology  Show energy system topology and role assignments
  energy-audit     Find stale dashboard references
  replay           Run the pipeline against a captured snapshot
  areas            Not implemented by the reconciliation engine
  normalize        Not implemented by the reconciliation engine

Global flags:
  -url string        Hub base URL (falls back to HA_URL, then mDNS discovery)
  -token string       API token (falls back to HASS_API_TOKEN)
  -dry-run            Show changes without saving (default true)
  -log-level string   debug, info, warn, error (default "info")
  -panel-integration  Panel integration platform tag (default "span_ebus")

Use "hass-atlas <command> -help" for command-specific flags.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "audit":
		runAudit(args)
	case "energy":
		runEnergy(args)
	case "energy-topology":
		runEnergyTopology(args)
	case "energy-audit":
		runEnergyAudit(args)
	case "replay":
		runReplay(args)
	case "interactive":
		runInteractive(args)
	case "areas":
		fmt.Fprintln(os.Stderr, "areas: not implemented by the reconciliation engine (area assignment is an external collaborator)")
		os.Exit(2)
	case "normalize":
		fmt.Fprintln(os.Stderr, "normalize: not implemented by the reconciliation engine (entity-ID renaming is an external collaborator)")
		os.Exit(2)
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
}

// globalFlags are the flags shared by every live (non-replay) subcommand.
type globalFlags struct {
	url              string
	token            string
	dryRun           bool
	logLevel         string
	panelIntegration string
}

func registerGlobalFlags(fs *flag.FlagSet) *globalFlags {
	g := &globalFlags{}
	fs.StringVar(&g.url, "url", "", "Hub base URL")
	fs.StringVar(&g.token, "token", "", "API token")
	fs.BoolVar(&g.dryRun, "dry-run", true, "Show changes without saving")
	fs.StringVar(&g.logLevel, "log-level", "", "debug, info, warn, error")
	fs.StringVar(&g.panelIntegration, "panel-integration", "", "Panel integration platform tag")
	return g
}

// resolveConfig layers file defaults, env vars, and explicit flags, per
// internal/config's priority order, and falls back to mDNS discovery for
// the URL when nothing else set it.
func resolveConfig(ctx context.Context, g *globalFlags) (config.Config, error) {
	cfg, err := config.FileDefaults(os.Getenv("HASS_ATLAS_CONFIG"))
	if err != nil {
		return cfg, err
	}
	cfg = cfg.ApplyEnv()

	overrides := config.FlagOverrides{
		URL: &g.url, LogLevel: &g.logLevel, PanelIntegration: &g.panelIntegration,
	}
	dryRunSet := g.dryRun
	overrides.DryRun = &dryRunSet
	cfg = cfg.ApplyFlags(overrides)
	if g.token != "" {
		cfg.Token = g.token
	}

	if cfg.URL == "" {
		instances, discErr := discovery.Discover(ctx, 0)
		if discErr == nil && len(instances) > 0 {
			cfg.URL = instances[0].URL()
		}
	}
	return cfg, nil
}

func mustClient(ctx context.Context, g *globalFlags) (*transport.Client, config.Config, *ataslog.Logger) {
	cfg, err := resolveConfig(ctx, g)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := ataslog.New(cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		ataslog.Fatal(logger, "config", err)
	}
	return transport.New(cfg.URL, cfg.Token), cfg, logger
}

func defaultPanelIntegration(cfg config.Config) registry.PanelIntegration {
	if cfg.PanelIntegration == "" {
		return registry.PanelIntegration("span_ebus")
	}
	return registry.PanelIntegration(cfg.PanelIntegration)
}
