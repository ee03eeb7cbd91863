// Package domain defines the analysis telemetry types
package domain

import (
	"time"

	quotadom "repolyze/internal/services/quota/domain"
)

// AnalysisEvent is one completed analysis, recorded for usage reporting
type AnalysisEvent struct {
	Key        string
	Tier       quotadom.Tier
	Overall    int
	DurationMs int64
	CacheHit   bool
	CreatedAt  time.Time
}

// RecorderPort accepts fire and forget telemetry writes
type RecorderPort interface {
	RecordAnalysis(key string, tier quotadom.Tier, overall int, durationMs int64, cacheHit bool)
}
