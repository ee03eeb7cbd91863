// Package repo provides the ClickHouse sink for analysis telemetry
package repo

import (
	"context"

	"repolyze/internal/platform/store"
	"repolyze/internal/services/events/domain"
)

// Repo is the telemetry persistence surface
type Repo interface {
	InsertEvents(ctx context.Context, events []domain.AnalysisEvent) error
}

// NewCH constructs a ClickHouse backed telemetry repo
func NewCH(ch store.Clickhouse) Repo { return &chRepo{ch: ch} }

type chRepo struct{ ch store.Clickhouse }

func (r *chRepo) InsertEvents(ctx context.Context, events []domain.AnalysisEvent) error {
	rows := make([][]any, 0, len(events))
	for _, e := range events {
		rows = append(rows, []any{
			e.Key,
			string(e.Tier),
			int32(e.Overall),
			e.DurationMs,
			e.CacheHit,
			e.CreatedAt,
		})
	}
	return r.ch.Insert(ctx, "analysis_events (repo_key, tier, overall, duration_ms, cache_hit, created_at)", rows)
}
