// Package service implements admission control: a fixed window burst
// limiter keyed by network address cascaded with a per tier daily quota
// backed by the persistent record store
package service

import (
	"context"
	"math/rand"
	"sync"
	"time"

	perr "repolyze/internal/platform/errors"
	"repolyze/internal/platform/logger"
	"repolyze/internal/services/quota/domain"
	"repolyze/internal/services/quota/repo"
)

const (
	burstWindow    = 60 * time.Second
	retentionDays  = 2
	pruneChance    = 0.01
	recordTimeout  = 5 * time.Second
	storageTimeout = 3 * time.Second
)

// Config tunes the limiter stages
type Config struct {
	// BurstLimit is the max requests per address per 60s window
	BurstLimit int

	// DailyLimits overrides the per tier allowances; nil uses defaults
	DailyLimits map[domain.Tier]int
}

// Service implements domain.AdmitterPort
type Service struct {
	cfg  Config
	repo repo.Repo
	log  logger.Logger

	mu     sync.Mutex
	bursts map[string]*burstWindowState

	// seams for tests
	now    func() time.Time
	chance func() float64
	record func(fn func()) // how async side effects are launched
}

type burstWindowState struct {
	start time.Time
	count int
}

// New constructs the admission service over a bound quota repo
func New(r repo.Repo, cfg Config) *Service {
	if cfg.BurstLimit <= 0 {
		cfg.BurstLimit = 10
	}
	if cfg.DailyLimits == nil {
		cfg.DailyLimits = domain.DefaultDailyLimits
	}
	return &Service{
		cfg:    cfg,
		repo:   r,
		log:    *logger.Named("quota"),
		bursts: make(map[string]*burstWindowState),
		now:    time.Now,
		chance: rand.Float64,
		record: func(fn func()) { go fn() },
	}
}

// Admit runs tier resolution, the burst limiter, and the daily quota in order.
// Quota store failures degrade to a fail open anonymous decision with one
// remaining unit rather than blocking the pipeline
func (s *Service) Admit(ctx context.Context, in domain.AdmitInput) domain.Decision {
	now := s.now()

	tier, degraded := s.resolveTier(ctx, in, now)
	if degraded {
		return s.failOpen()
	}

	if retry := s.burstExceeded(in.Addr, now); retry > 0 {
		return domain.Decision{
			Allowed:       false,
			Tier:          tier,
			Limit:         s.cfg.BurstLimit,
			Remaining:     0,
			Code:          domain.DenyBurst,
			Message:       "Too many requests. Slow down and retry shortly.",
			RetryAfterSec: retry,
		}
	}

	limit := s.cfg.DailyLimits[tier]
	scope := in.Scope()

	cctx, cancel := context.WithTimeout(ctx, storageTimeout)
	count, err := s.repo.CountSince(cctx, scope, utcMidnight(now))
	cancel()
	if err != nil {
		s.logStoreFailure(err, "quota count failed, failing open", scope)
		return s.failOpen()
	}

	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}
	if count >= limit {
		return domain.Decision{
			Allowed:       false,
			Tier:          tier,
			Limit:         limit,
			Remaining:     0,
			Code:          domain.DenyDailyQuota,
			Message:       domain.UpgradeMessage(tier),
			RetryAfterSec: secondsUntilMidnight(now),
		}
	}

	s.sideEffects(scope, now)

	return domain.Decision{
		Allowed:   true,
		Tier:      tier,
		Limit:     limit,
		Remaining: remaining,
	}
}

// resolveTier maps the input identity to a tier. degraded is true only when
// the plan lookup itself failed
func (s *Service) resolveTier(ctx context.Context, in domain.AdmitInput, now time.Time) (domain.Tier, bool) {
	if in.AccountID == "" {
		return domain.TierAnonymous, false
	}
	cctx, cancel := context.WithTimeout(ctx, storageTimeout)
	plan, err := s.repo.PlanByAccount(cctx, in.AccountID)
	cancel()
	if err != nil {
		s.logStoreFailure(err, "plan lookup failed, failing open", in.AccountID)
		return domain.TierAnonymous, true
	}
	return plan.Effective(now), false
}

// burstExceeded counts the attempt against the caller's fixed window and
// returns the retry hint in seconds when the window is full
func (s *Service) burstExceeded(addr string, now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	w := s.bursts[addr]
	if w == nil || now.Sub(w.start) >= burstWindow {
		s.bursts[addr] = &burstWindowState{start: now, count: 1}
		return 0
	}
	w.count++
	if w.count > s.cfg.BurstLimit {
		return int(burstWindow.Seconds())
	}
	return 0
}

// failOpen is the degraded decision taken when the store is unreachable:
// exactly one remaining anonymous unit, flagged so callers can log it
// logStoreFailure records a store error alongside its mapped database code
// so degraded mode stays diagnosable from logs alone
func (s *Service) logStoreFailure(err error, msg, scope string) {
	ev := s.log.Warn().Err(err).Str("scope", scope).Bool("retryable", perr.IsRetryable(err))
	if code, ok := perr.DBErrorCode(err); ok {
		ev = ev.Uint16("db_code", uint16(code))
	}
	ev.Msg(msg)
}

func (s *Service) failOpen() domain.Decision {
	return domain.Decision{
		Allowed:   true,
		Tier:      domain.TierAnonymous,
		Limit:     s.cfg.DailyLimits[domain.TierAnonymous],
		Remaining: 1,
		Degraded:  true,
	}
}

// sideEffects records the accepted request asynchronously and occasionally
// prunes expired records and stale burst windows
func (s *Service) sideEffects(scope string, now time.Time) {
	s.record(func() {
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		defer cancel()
		if err := s.repo.Insert(ctx, scope, now); err != nil {
			s.log.Warn().Err(err).Str("scope", scope).Msg("quota record insert failed")
		}
	})

	if s.chance() < pruneChance {
		s.record(func() {
			ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
			defer cancel()
			cutoff := now.AddDate(0, 0, -retentionDays)
			n, err := s.repo.DeleteOlderThan(ctx, cutoff)
			if err != nil {
				s.log.Warn().Err(err).Msg("quota prune failed")
				return
			}
			s.log.Debug().Int64("pruned", n).Msg("quota records pruned")
		})
		s.pruneBursts(now)
	}
}

// pruneBursts drops windows that ended more than one window ago
func (s *Service) pruneBursts(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for addr, w := range s.bursts {
		if now.Sub(w.start) >= 2*burstWindow {
			delete(s.bursts, addr)
		}
	}
}

func utcMidnight(now time.Time) time.Time {
	u := now.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

func secondsUntilMidnight(now time.Time) int {
	next := utcMidnight(now).AddDate(0, 0, 1)
	return int(next.Sub(now.UTC()).Seconds())
}
