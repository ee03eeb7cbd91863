// Package api provides the HTTP API for the application
package api

import (
	"repolyze/internal/platform/config"
	"repolyze/internal/platform/logger"
	phttp "repolyze/internal/platform/net/http"
	"repolyze/internal/platform/net/middleware"
	"repolyze/internal/platform/store"

	"repolyze/internal/modkit"
	"repolyze/internal/modkit/httpkit"
	"repolyze/internal/modkit/module"
	"repolyze/internal/modkit/swaggerkit"

	analyzedom "repolyze/internal/services/analyze/domain"
	analyzemod "repolyze/internal/services/analyze/module"
	metamod "repolyze/internal/services/api/meta/module"
	eventsmod "repolyze/internal/services/events/module"
	quotamod "repolyze/internal/services/quota/module"
)

// Options are the API options
type Options struct {
	Config         config.Conf
	Store          *store.Store
	Logger         *logger.Logger
	Host           analyzedom.HostPort
	Narrative      analyzedom.NarrativePort
	EnableSwagger  bool
	EnableProfiler bool
}

// Mount mounts the API service onto the given router and returns the
// analyze module so the caller can drive its cache sweep lifecycle
func Mount(r phttp.Router, opt Options) *analyzemod.Module {
	deps := modkit.Deps{
		Cfg: opt.Config,
		PG:  opt.Store.PG,
		CH:  opt.Store.CH,
	}

	// quota and events first: the analyze module consumes their ports
	quota := quotamod.New(deps, quotamod.Options{})
	admitter := module.MustPortsOf[quotamod.Ports](quota).Admitter

	events := eventsmod.New(deps)
	recorder := module.MustPortsOf[eventsmod.Ports](events).Recorder

	analyze := analyzemod.New(deps, modkit.WithPorts(analyzedom.Ports{
		Host:      opt.Host,
		Narrative: opt.Narrative,
		Admitter:  admitter,
		Recorder:  recorder,
	}))

	meta := metamod.New(deps, metamod.Checks{
		ProviderConfigured: opt.Narrative.Configured,
		RepoHostConfigured: func() bool { return opt.Host != nil },
	})

	mods := []module.Module{
		meta,
		quota,
		events,
		analyze,
	}

	// identity is header-asserted; the quota module resolves it to a tier
	stack := append(httpkit.CommonStack(), middleware.Auth(middleware.HeaderAuth{}, phttp.JSON))

	httpkit.MountAPIV1(r, stack, func(api httpkit.Router) {
		swaggerkit.Mount(r, opt.EnableSwagger)
		phttp.MountProfiler(r, "/debug", opt.EnableProfiler)

		for _, m := range mods {
			module.Register(m.Name(), m.Ports())
			m.MountRoutes(api)
		}
	})

	return analyze
}
