// Package module wires the quota admission service and exposes its ports
package module

import (
	"repolyze/internal/modkit"
	"repolyze/internal/modkit/httpkit"
	"repolyze/internal/services/quota/repo"
	"repolyze/internal/services/quota/service"
)

// Module defines the quota admission module
type Module struct {
	deps  modkit.Deps
	ports Ports
}

// New constructs the quota module with its ports
func New(deps modkit.Deps, overrides Options) *Module {
	opts := FromConfig(deps.Cfg)
	if overrides.BurstLimit != 0 {
		opts.BurstLimit = overrides.BurstLimit
	}

	svc := service.New(repo.NewPG().Bind(deps.PG), service.Config{
		BurstLimit: opts.BurstLimit,
	})

	m := &Module{deps: deps}
	m.ports = Ports{Admitter: svc}
	return m
}

// Ports returns the module ports (Admitter)
func (m *Module) Ports() any { return m.ports }

// Name returns the module name
func (m *Module) Name() string { return "quota" }

// Prefix returns the module config prefix (none, no routes)
func (m *Module) Prefix() string { return "" }

// MountRoutes returns no HTTP routes; admission runs inline in analyze
func (m *Module) MountRoutes(_ httpkit.Router) {}
