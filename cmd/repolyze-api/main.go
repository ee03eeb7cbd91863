// @title         Repolyze API
// @version       0.1.0
// @description   Streaming repository quality analysis

package main

import (
	"context"
	"time"

	"repolyze/internal/platform/config"
	"repolyze/internal/platform/logger"
	phttp "repolyze/internal/platform/net/http"
	"repolyze/internal/platform/store"

	"repolyze/internal/adapters/githost"
	"repolyze/internal/adapters/narrative"
	"repolyze/internal/services/api"
)

func main() {
	// service-scoped config for HTTP etc (CORE_API_*)
	root := config.New()
	apiCfg := root.Prefix("CORE_API_")

	pgCfg := root.Prefix("SERVICE_PGSQL_")
	chCfg := root.Prefix("SERVICE_CLICKHOUSE_")
	hostCfg := root.Prefix("SERVICE_GITHOST_")
	narrCfg := root.Prefix("SERVICE_NARRATIVE_")

	// bring up logging early
	l := logger.Get()

	// open the platform store (postgres + clickhouse)
	st, err := store.Open(
		context.Background(),
		store.Config{
			AppName: "repolyze",
			PG: store.PGConfig{
				Enabled:     true,
				URL:         pgCfg.MustString("DBURL"),
				MaxConns:    int32(pgCfg.MayInt("MAX_CONNS", 4)),
				SlowQueryMs: pgCfg.MayInt("SLOW_MS", 500),
				LogSQL:      pgCfg.MayBool("LOG_SQL", true),
			},
			CH: store.CHConfig{
				Enabled: chCfg.MayBool("ENABLED", false),
				URL:     chCfg.MayString("DBURL", ""),
				Role:    "api",
			},
		},
		store.WithLogger(*logger.Get()),
	)
	if err != nil {
		l.Panic().Err(err).Msg("store.Open failed")
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()

	// upstream collaborators
	host := githost.NewClient(githost.Options{
		BaseURL:   hostCfg.MayString("BASE_URL", ""),
		TokensCSV: hostCfg.MayString("TOKENS", ""),
		Timeout:   hostCfg.MayDuration("TIMEOUT", 15*time.Second),
	})
	narr := narrative.New(narrative.Config{
		APIKey:  narrCfg.MayString("API_KEY", ""),
		BaseURL: narrCfg.MayString("BASE_URL", ""),
		Model:   narrCfg.MayString("MODEL", ""),
		Timeout: narrCfg.MayDuration("TIMEOUT", 60*time.Second),
	})
	if !narr.Configured() {
		l.Warn().Msg("narrative provider unconfigured, analyze requests will be refused")
	}

	// http server (reads CORE_API_PORT / CORE_API_ADDR)
	srv := phttp.NewServer(apiCfg)

	analyze := api.Mount(
		srv.Router(),
		api.Options{
			Config:         apiCfg,
			Store:          st,
			Logger:         l,
			Host:           host,
			Narrative:      narr,
			EnableSwagger:  apiCfg.MayBool("SWAGGER", true),
			EnableProfiler: apiCfg.MayBool("PROFILER", true),
		},
	)

	// cache sweep lifecycle is tied to the serving process
	analyze.Start()
	defer analyze.Stop()

	if err := srv.Run(context.Background()); err != nil {
		l.Panic().Err(err).Msg("http server stopped")
	}
}
