// Package module wires the analyze pipeline into the API using modkit
package module

import (
	"net/http"

	"repolyze/internal/modkit"
	"repolyze/internal/modkit/httpkit"
	str "repolyze/internal/platform/strings"
	"repolyze/internal/services/analyze/domain"
	analyzehttp "repolyze/internal/services/analyze/http"
	analyzesvc "repolyze/internal/services/analyze/service"
)

// Ports exposed by the analyze module
type Ports struct {
	Analyzer domain.AnalyzerPort
}

// Module implements the modkit.Module interface
type Module struct {
	deps   modkit.Deps
	name   string
	prefix string

	mws      []func(http.Handler) http.Handler
	ports    Ports
	register func(httpkit.Router)

	svc *analyzesvc.Service
}

// New constructs the analyze module. Collaborators are passed via
// modkit.WithPorts(analyze/domain.Ports)
func New(deps modkit.Deps, opts ...modkit.Option) *Module {
	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("analyze"),
		modkit.WithPrefix("/analyze"),
	}, opts...)...)

	ports, ok := b.Ports.(domain.Ports)
	if !ok {
		panic("analyze module: expected WithPorts(analyze/domain.Ports)")
	}
	if ports.Host == nil || ports.Narrative == nil || ports.Admitter == nil {
		panic("analyze module: Ports missing Host, Narrative, or Admitter")
	}

	svc := analyzesvc.New(ports.Host, ports.Narrative, ports.Recorder, analyzesvc.Config{})

	m := &Module{
		deps:   deps,
		name:   b.Name,
		prefix: b.Prefix,
		mws:    b.Mw,
		svc:    svc,
	}
	m.ports = Ports{Analyzer: svc}

	external := b.Register
	m.register = func(r httpkit.Router) {
		analyzehttp.Register(r, m.svc, ports.Admitter, ports.Narrative.Configured)
		if external != nil {
			external(r)
		}
	}
	return m
}

// Start installs the cache sweep timer; idempotent
func (m *Module) Start() { m.svc.Start() }

// Stop tears down the cache sweep timer
func (m *Module) Stop() { m.svc.Stop() }

// MountRoutes implements the modkit.Module interface
func (m *Module) MountRoutes(r httpkit.Router) {
	r.Route(m.prefix, func(rr httpkit.Router) {
		for _, mw := range m.mws {
			rr.Use(mw)
		}
		if m.register != nil {
			m.register(rr)
		}
	})
}

// Ports returns the module ports (Analyzer)
func (m *Module) Ports() any { return m.ports }

// Name returns the module name
func (m *Module) Name() string { return str.MustString(m.name, "module name") }

// Prefix returns the module route prefix
func (m *Module) Prefix() string { return str.MustPrefix(m.prefix) }

// Middlewares returns the module middlewares
func (m *Module) Middlewares() []func(http.Handler) http.Handler { return m.mws }
