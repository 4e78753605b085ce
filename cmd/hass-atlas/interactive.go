package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/chzyer/readline"

	"github.com/electrification-bus/hass-atlas/internal/audit"
	"github.com/electrification-bus/hass-atlas/internal/engine"
	"github.com/electrification-bus/hass-atlas/internal/orchestrator"
	"github.com/electrification-bus/hass-atlas/internal/prefs"
	"github.com/electrification-bus/hass-atlas/internal/registry"
	ataslog "github.com/electrification-bus/hass-atlas/internal/log"
	"github.com/electrification-bus/hass-atlas/internal/transport"
)

const interactiveHelp = `
hass-atlas interactive commands:
  audit                 - Show panel device tree and diagnostics
  topology               - Show the topology engine's decision trail
  energy                - Show the plain energy preferences proposal
  energy -topology       - Show the topology-aware energy preferences proposal
  save                   - Save the last proposal computed above
  refresh                - Re-fetch registries, states, and preferences
  help                   - Show this help
  quit                   - Exit
`

// session caches one run's registry/state/prefs fetch so each interactive
// command doesn't re-fetch from the hub, mirroring the teacher's
// InteractiveController holding one long-lived service handle.
type session struct {
	client           *transport.Client
	panelIntegration registry.PanelIntegration
	logger           *ataslog.Logger

	snap    *registry.Snapshot
	states  registry.StateMap
	current prefs.Document

	lastProposed prefs.Document
	hasProposal  bool
}

func runInteractive(args []string) {
	fs := flag.NewFlagSet("interactive", flag.ExitOnError)
	g := registerGlobalFlags(fs)
	fs.Parse(args)

	ctx := context.Background()
	client, cfg, logger := mustClient(ctx, g)
	sess := &session{client: client, panelIntegration: defaultPanelIntegration(cfg), logger: logger}
	if err := sess.refresh(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "hass-atlas> ",
		HistoryFile:     "",
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer rl.Close()

	fmt.Print(interactiveHelp)
	for {
		line, err := rl.Readline()
		if err != nil {
			return
		}
		fields := strings.Fields(strings.TrimSpace(line))
		if len(fields) == 0 {
			continue
		}
		cmd, cmdArgs := strings.ToLower(fields[0]), fields[1:]

		switch cmd {
		case "help", "?":
			fmt.Print(interactiveHelp)
		case "audit":
			sess.cmdAudit()
		case "topology":
			sess.cmdTopology()
		case "energy":
			topologyAware := len(cmdArgs) > 0 && cmdArgs[0] == "-topology"
			sess.cmdEnergy(topologyAware)
		case "save":
			sess.cmdSave(ctx)
		case "refresh":
			if err := sess.refresh(ctx); err != nil {
				fmt.Fprintln(os.Stderr, err)
			}
		case "quit", "exit", "q":
			return
		default:
			fmt.Printf("Unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}
}

func (s *session) refresh(ctx context.Context) error {
	snap, warnings, err := s.client.FetchRegistries(ctx)
	if err != nil {
		return err
	}
	s.logger.Warnings("registry", warnings)
	states, err := s.client.FetchStates(ctx)
	if err != nil {
		return err
	}
	current, err := s.client.FetchPrefs(ctx)
	if err != nil {
		return err
	}
	s.snap, s.states, s.current = snap, states, current
	s.hasProposal = false
	return nil
}

func (s *session) cmdAudit() {
	registry.EnrichFromStates(s.snap.Entities, s.states)
	trees, warnings := buildTrees(s.snap, s.panelIntegration)
	s.logger.Warnings("tree", warnings)
	dashboardIDs := s.current.AllEntityIDs()
	audit.RenderTree(os.Stdout, trees, s.panelIntegration, dashboardIDs)
	report := audit.Build(trees, dashboardIDs)
	audit.RenderDiagnostics(os.Stdout, report)
}

func (s *session) cmdTopology() {
	registry.EnrichFromStates(s.snap.Entities, s.states)
	trees, warnings := buildTrees(s.snap, s.panelIntegration)
	s.logger.Warnings("tree", warnings)
	topologies := engine.ExtractTopologies(trees, s.panelIntegration, s.states)
	integrations := engine.DiscoverIntegrations(s.snap.Devices, s.snap.Entities, s.panelIntegration)
	circuitRoles := engine.ClassifyCircuits(trees, topologies, s.panelIntegration)
	topo := engine.BuildTopology(trees, topologies, integrations, circuitRoles, s.panelIntegration)
	audit.RenderTopology(os.Stdout, topo)
}

func (s *session) cmdEnergy(topologyAware bool) {
	var proposed prefs.Document
	var warnings []string
	if topologyAware {
		result := orchestrator.BuildTopologyAware(s.snap, s.states, s.panelIntegration, s.current)
		proposed, warnings = result.Proposed, result.Warnings
	} else {
		registry.EnrichFromStates(s.snap.Entities, s.states)
		trees, treeWarnings := buildTrees(s.snap, s.panelIntegration)
		warnings = treeWarnings
		proposed = orchestrator.BuildPlain(trees, s.panelIntegration, s.current)
	}
	s.logger.Warnings("pipeline", warnings)
	printPrefsDiff(os.Stdout, s.current, proposed)
	s.lastProposed, s.hasProposal = proposed, true
}

func (s *session) cmdSave(ctx context.Context) {
	if !s.hasProposal {
		fmt.Println("no proposal computed yet — run 'energy' first")
		return
	}
	if err := s.client.SavePrefs(ctx, s.lastProposed); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return
	}
	s.current = s.lastProposed
	fmt.Println("saved.")
}
