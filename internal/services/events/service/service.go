// Package service implements the fire and forget telemetry recorder
package service

import (
	"context"
	"time"

	"repolyze/internal/platform/logger"
	"repolyze/internal/services/events/domain"
	"repolyze/internal/services/events/repo"
	quotadom "repolyze/internal/services/quota/domain"
)

const writeTimeout = 5 * time.Second

// Service implements domain.RecorderPort. Writes never block or fail the
// calling pipeline; a sink outage only costs telemetry
type Service struct {
	repo repo.Repo
	log  logger.Logger

	now   func() time.Time
	async func(fn func())
}

// New constructs the telemetry recorder over a ClickHouse repo
func New(r repo.Repo) *Service {
	return &Service{
		repo:  r,
		log:   *logger.Named("events"),
		now:   time.Now,
		async: func(fn func()) { go fn() },
	}
}

// RecordAnalysis implements domain.RecorderPort
func (s *Service) RecordAnalysis(key string, tier quotadom.Tier, overall int, durationMs int64, cacheHit bool) {
	ev := domain.AnalysisEvent{
		Key:        key,
		Tier:       tier,
		Overall:    overall,
		DurationMs: durationMs,
		CacheHit:   cacheHit,
		CreatedAt:  s.now(),
	}
	s.async(func() {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()
		if err := s.repo.InsertEvents(ctx, []domain.AnalysisEvent{ev}); err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("analysis event write failed")
		}
	})
}
