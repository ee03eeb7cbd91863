// Package module wires meta endpoints into the API using a tiny module
package module

import (
	"net/http"
	"time"

	"repolyze/internal/modkit"
	"repolyze/internal/modkit/httpkit"
	str "repolyze/internal/platform/strings"

	metahttp "repolyze/internal/services/api/meta/http"
)

// Checks are the collaborator probes the meta module surfaces
type Checks struct {
	ProviderConfigured func() bool
	RepoHostConfigured func() bool
}

// Module implements the modkit.Module interface
type Module struct {
	deps   modkit.Deps
	name   string
	prefix string
	mws    []func(http.Handler) http.Handler

	register  func(httpkit.Router)
	startedAt time.Time
}

// New constructs a meta module with the provided dependencies and checks
func New(deps modkit.Deps, checks Checks, opts ...modkit.Option) modkit.Module {
	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("meta"),
		modkit.WithPrefix("/meta"),
	}, opts...)...)

	m := &Module{
		deps:      deps,
		name:      b.Name,
		prefix:    b.Prefix,
		mws:       b.Mw,
		startedAt: time.Now(),
	}

	external := b.Register
	m.register = func(r httpkit.Router) {
		metahttp.Register(r, metahttp.Deps{
			ServiceName:        "repolyze-api",
			StartedAt:          m.startedAt,
			ProviderConfigured: checks.ProviderConfigured,
			RepoHostConfigured: checks.RepoHostConfigured,
			PG:                 deps.PG,
			CH:                 deps.CH,
		})
		if external != nil {
			external(r)
		}
	}

	return m
}

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

// Name implements the modkit.Module interface
func (m *Module) Name() string { return str.MustString(m.name, "meta") }

// Prefix implements the modkit.Module interface
func (m *Module) Prefix() string { return str.MustPrefix(m.prefix) }

// Middlewares implements the modkit.Module interface
func (m *Module) Middlewares() []func(http.Handler) http.Handler { return m.mws }

// Ports implements the modkit.Module interface
func (m *Module) Ports() any { return nil }
