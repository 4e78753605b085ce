// Package engine implements the Topology-Aware Energy Reconciliation
// Engine: the pure pipeline stages that turn a registry Snapshot plus live
// state attributes into a complete EnergyTopology (spec §2 stages 2-6).
//
// Every exported function here is a pure transformation over its inputs —
// no I/O, no shared mutable state, no persistence between calls.
package engine

import "github.com/electrification-bus/hass-atlas/internal/registry"

// Position describes where a battery or solar subsystem sits relative to
// the Panel's main bus.
type Position string

const (
	PositionUpstream   Position = "upstream"
	PositionInPanel    Position = "in-panel"
	PositionDownstream Position = "downstream"
	PositionAbsent     Position = ""
)

// SubsystemTopology captures the decoded physical properties of a battery
// or solar subsystem attached to a Panel.
type SubsystemTopology struct {
	Position            Position
	Vendor               string
	Model                string
	Serial               string
	FeedCircuitName      string
	FeedCircuitNodeID    string
}

// Present reports whether any evidence of this subsystem was observed.
func (s SubsystemTopology) Present() bool {
	return s.Position != PositionAbsent || s.Vendor != "" || s.FeedCircuitNodeID != ""
}

// PanelTopology is the decoded physical topology for one Panel (spec §3).
type PanelTopology struct {
	Serial  string
	IsRoot  bool
	Battery SubsystemTopology
	Solar   SubsystemTopology
	EV      SubsystemTopology

	// Tree is the originating PanelTree, kept for downstream lookups
	// (circuit resolution, via-chain walking) without re-indexing.
	Tree *registry.PanelTree
}

// CircuitRoleKind enumerates a circuit's role in the energy system.
type CircuitRoleKind string

const (
	RoleLoad     CircuitRoleKind = "load"
	RolePVFeed   CircuitRoleKind = "pv_feed"
	RoleBESSFeed CircuitRoleKind = "bess_feed"
	RoleEVFeed   CircuitRoleKind = "ev_feed"
)

// CircuitRole is the Circuit Classifier's per-circuit decision (spec §3).
type CircuitRole struct {
	Circuit           *registry.Device
	Role              CircuitRoleKind
	SkipReturnEnergy  bool
	SkipConsumption   bool
	Rationale         string
}

// EnergyIntegration is one non-Panel integration exposing cumulative-energy
// entities (spec §3).
type EnergyIntegration struct {
	Platform        string
	Devices         []*registry.Device
	EnergyEntities  []registry.Entity
}

// AssignmentRole enumerates the energy-dashboard role a RoleAssignment
// nominates an entity for.
type AssignmentRole string

const (
	RoleGridImport       AssignmentRole = "grid_import"
	RoleGridExport       AssignmentRole = "grid_export"
	RoleSolar            AssignmentRole = "solar"
	RoleBatteryCharge    AssignmentRole = "battery_charge"
	RoleBatteryDischarge AssignmentRole = "battery_discharge"
	RoleDeviceConsumption AssignmentRole = "device_consumption"
)

// RoleAssignment is a single nomination of an entity for an energy role
// (spec §3).
type RoleAssignment struct {
	Role           AssignmentRole
	EntityID       string
	Platform       string
	Preferred      bool
	Rationale      string
	ParentEntityID string
	RateEntityID   string
}

// EnergyTopology is the engine's output (spec §3).
type EnergyTopology struct {
	Panels          []PanelTopology
	Integrations    []EnergyIntegration
	CircuitRoles    []CircuitRole
	RoleAssignments []RoleAssignment
	Warnings        []string
}

// Preferred returns the subset of role assignments marked preferred.
func (t *EnergyTopology) Preferred() []RoleAssignment {
	var out []RoleAssignment
	for _, a := range t.RoleAssignments {
		if a.Preferred {
			out = append(out, a)
		}
	}
	return out
}

// NonPreferred returns the subset of role assignments not marked preferred.
func (t *EnergyTopology) NonPreferred() []RoleAssignment {
	var out []RoleAssignment
	for _, a := range t.RoleAssignments {
		if !a.Preferred {
			out = append(out, a)
		}
	}
	return out
}
