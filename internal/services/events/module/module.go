// Package module wires the telemetry recorder and exposes its port
package module

import (
	"repolyze/internal/modkit"
	"repolyze/internal/modkit/httpkit"
	"repolyze/internal/services/events/domain"
	"repolyze/internal/services/events/repo"
	"repolyze/internal/services/events/service"
)

// Ports holds the ports exposed by the events module
type Ports struct {
	Recorder domain.RecorderPort
}

// Module defines the telemetry module
type Module struct {
	deps  modkit.Deps
	ports Ports
}

// New constructs the events module; Recorder is nil when ClickHouse is
// disabled so callers can skip telemetry cleanly
func New(deps modkit.Deps) *Module {
	m := &Module{deps: deps}
	if deps.CH != nil {
		m.ports = Ports{Recorder: service.New(repo.NewCH(deps.CH))}
	}
	return m
}

// Ports returns the module ports (Recorder)
func (m *Module) Ports() any { return m.ports }

// Name returns the module name
func (m *Module) Name() string { return "events" }

// Prefix returns the module config prefix (none, no routes)
func (m *Module) Prefix() string { return "" }

// MountRoutes returns no HTTP routes
func (m *Module) MountRoutes(_ httpkit.Router) {}
