// Package service orchestrates the analysis pipeline: result cache, work
// deduplication, upstream data caches, metric extraction, scoring, and the
// ordered event stream
package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"repolyze/internal/adapters/githost"
	"repolyze/internal/core/repokey"
	"repolyze/internal/core/scoring"
	"repolyze/internal/core/suggest"
	"repolyze/internal/platform/cache"
	perr "repolyze/internal/platform/errors"
	"repolyze/internal/platform/flight"
	"repolyze/internal/platform/logger"
	"repolyze/internal/services/analyze/domain"
	quotadom "repolyze/internal/services/quota/domain"
)

// Config sizes the cache tiers; zero values take the defaults below
type Config struct {
	ResultCapacity   int
	ResultTTL        time.Duration
	MetadataCapacity int
	MetadataTTL      time.Duration
	TreeCapacity     int
	TreeTTL          time.Duration
	BranchCapacity   int
	BranchTTL        time.Duration
	FileCapacity     int
	FileTTL          time.Duration
	SweepInterval    time.Duration
}

func (c *Config) defaults() {
	if c.ResultCapacity <= 0 {
		c.ResultCapacity = 50
	}
	if c.ResultTTL <= 0 {
		c.ResultTTL = 30 * time.Minute
	}
	if c.MetadataCapacity <= 0 {
		c.MetadataCapacity = 200
	}
	if c.MetadataTTL <= 0 {
		c.MetadataTTL = 5 * time.Minute
	}
	if c.TreeCapacity <= 0 {
		c.TreeCapacity = 100
	}
	if c.TreeTTL <= 0 {
		c.TreeTTL = 5 * time.Minute
	}
	if c.BranchCapacity <= 0 {
		c.BranchCapacity = 200
	}
	if c.BranchTTL <= 0 {
		c.BranchTTL = 10 * time.Minute
	}
	if c.FileCapacity <= 0 {
		c.FileCapacity = 100
	}
	if c.FileTTL <= 0 {
		c.FileTTL = 5 * time.Minute
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = 5 * time.Minute
	}
}

// Service implements domain.AnalyzerPort
type Service struct {
	host domain.HostPort
	narr domain.NarrativePort
	rec  domain.RecorderPort
	log  logger.Logger

	results  *cache.Cache[string, *domain.Report]
	meta     *cache.Cache[string, githost.Metadata]
	trees    *cache.Cache[string, githost.Tree]
	branches *cache.Cache[string, []githost.Branch]
	files    *cache.Cache[string, map[string]string]
	sweeper  *cache.Sweeper

	group flight.Group[*domain.Report]

	now func() time.Time
}

// New constructs the analysis service. Call Start to install the sweep
// timer and Stop to tear it down
func New(host domain.HostPort, narr domain.NarrativePort, rec domain.RecorderPort, cfg Config) *Service {
	cfg.defaults()
	s := &Service{
		host:     host,
		narr:     narr,
		rec:      rec,
		log:      *logger.Named("analyze"),
		results:  cache.New[string, *domain.Report](cfg.ResultCapacity, cfg.ResultTTL),
		meta:     cache.New[string, githost.Metadata](cfg.MetadataCapacity, cfg.MetadataTTL),
		trees:    cache.New[string, githost.Tree](cfg.TreeCapacity, cfg.TreeTTL),
		branches: cache.New[string, []githost.Branch](cfg.BranchCapacity, cfg.BranchTTL),
		files:    cache.New[string, map[string]string](cfg.FileCapacity, cfg.FileTTL),
		now:      time.Now,
	}
	// the result cache expires lazily on read; the sweep covers the four
	// upstream caches so memory stays bounded without traffic
	s.sweeper = cache.NewSweeper(cfg.SweepInterval, s.meta, s.trees, s.branches, s.files)
	return s
}

// Start installs the background sweep. Safe to call more than once
func (s *Service) Start() { s.sweeper.Start() }

// Stop tears down the background sweep
func (s *Service) Stop() { s.sweeper.Stop() }

// Analyze runs one analysis and streams stages through emit, starting at
// the metadata event. The result cache is consulted first; a miss funnels
// through the deduplicator so one key computes at most once concurrently
func (s *Service) Analyze(ctx context.Context, key repokey.Key, dec quotadom.Decision, emit domain.EmitFunc) error {
	start := s.now()
	k := key.String()

	if rep, ok := s.results.Get(k); ok {
		s.emitCached(rep, emit, start)
		s.record(k, dec, rep, start, true)
		return nil
	}

	ran := false
	rep, _, err := s.group.Do(k, func() (*domain.Report, error) {
		ran = true
		// the computation outlives the initiating request so waiters on
		// the same key still get a result if this caller disconnects
		return s.compute(context.WithoutCancel(ctx), key, dec, emit)
	})

	if ran {
		if err != nil {
			// the error event is already on the wire; close the stream
			_ = emit(doneEvent(false, s.now().Sub(start)))
			return nil
		}
		_ = emit(doneEvent(false, s.now().Sub(start)))
		s.record(k, dec, rep, start, false)
		return nil
	}

	// waiter path: the leader's success populated the result cache before
	// its computation resolved, so a fresh read sees the full report
	if err == nil {
		if cached, ok := s.results.Get(k); ok {
			rep = cached
		}
		s.emitCached(rep, emit, start)
		s.record(k, dec, rep, start, true)
		return nil
	}

	// a shared failure is not inherited; run our own attempt
	rep, err = s.compute(context.WithoutCancel(ctx), key, dec, emit)
	if err != nil {
		_ = emit(doneEvent(false, s.now().Sub(start)))
		return nil
	}
	_ = emit(doneEvent(false, s.now().Sub(start)))
	s.record(k, dec, rep, start, false)
	return nil
}

// compute runs the full fresh pipeline for one key and emits every stage
// except done. On success the result cache is populated before returning
// so concurrent waiters can re-read it
func (s *Service) compute(ctx context.Context, key repokey.Key, dec quotadom.Decision, emit domain.EmitFunc) (*domain.Report, error) {
	log := s.log.With().Str("run", uuid.NewString()).Str("key", key.String()).Logger()
	log.Debug().Msg("fresh analysis started")
	safe := safeEmit(emit, log)

	meta, err := s.fetchMetadata(ctx, key)
	if err != nil {
		s.emitError(safe, err)
		return nil, err
	}
	rev := key.Rev
	if rev == "" {
		rev = meta.DefaultBranch
	}

	branchList, err := s.fetchBranches(ctx, key)
	if err != nil {
		s.emitError(safe, err)
		return nil, err
	}
	tree, err := s.fetchTree(ctx, key, rev)
	if err != nil {
		s.emitError(safe, err)
		return nil, err
	}
	contents, err := s.fetchFiles(ctx, key, rev, tree)
	if err != nil {
		s.emitError(safe, err)
		return nil, err
	}

	metrics, stats := extract(meta, tree, contents)
	md := metadataView(meta)
	names := branchNames(branchList)
	safe(domain.Event{Type: domain.EventMetadata, Data: domain.MetadataData{
		Metadata: md,
		Stats:    stats,
		Branches: names,
	}})

	scores := scoring.Score(metrics)
	safe(domain.Event{Type: domain.EventScores, Data: scores})

	automations := suggest.Automations(metrics)
	safe(domain.Event{Type: domain.EventAutomations, Data: automations})

	refactors := suggest.Refactors(metrics)
	safe(domain.Event{Type: domain.EventRefactors, Data: refactors})

	var narrative strings.Builder
	err = s.narr.Stream(ctx, buildPrompt(md, metrics, scores), func(chunk string) error {
		narrative.WriteString(chunk)
		safe(domain.Event{Type: domain.EventContent, Data: chunk})
		return nil
	})
	if err != nil {
		log.Warn().Err(err).Msg("narrative stream failed mid-run")
		s.emitError(safe, err)
		return nil, err
	}

	rep := &domain.Report{
		Key:         key.String(),
		Metadata:    md,
		Stats:       stats,
		Metrics:     metrics,
		Scores:      scores,
		Automations: automations,
		Refactors:   refactors,
		Narrative:   narrative.String(),
		Branches:    names,
		Tier:        dec.Tier,
		GeneratedAt: s.now(),
	}
	s.results.Set(key.String(), rep)
	log.Debug().Int("overall", scores.Overall).Msg("fresh analysis complete")
	return rep, nil
}

// emitCached replays a complete report as the same ordered event types the
// fresh path produces, with the narrative as one consolidated chunk
func (s *Service) emitCached(rep *domain.Report, emit domain.EmitFunc, start time.Time) {
	safe := safeEmit(emit, s.log)
	safe(domain.Event{Type: domain.EventMetadata, Data: domain.MetadataData{
		Metadata: rep.Metadata,
		Stats:    rep.Stats,
		Branches: rep.Branches,
	}})
	safe(domain.Event{Type: domain.EventScores, Data: rep.Scores})
	safe(domain.Event{Type: domain.EventAutomations, Data: rep.Automations})
	safe(domain.Event{Type: domain.EventRefactors, Data: rep.Refactors})
	if rep.Narrative != "" {
		safe(domain.Event{Type: domain.EventContent, Data: rep.Narrative})
	}
	safe(doneEvent(true, s.now().Sub(start)))
}

func (s *Service) fetchMetadata(ctx context.Context, key repokey.Key) (githost.Metadata, error) {
	slug := key.Slug()
	if v, ok := s.meta.Get(slug); ok {
		return v, nil
	}
	v, err := s.host.Metadata(ctx, key.Owner, key.Name)
	if err != nil {
		return v, err
	}
	s.meta.Set(slug, v)
	return v, nil
}

func (s *Service) fetchBranches(ctx context.Context, key repokey.Key) ([]githost.Branch, error) {
	slug := key.Slug()
	if v, ok := s.branches.Get(slug); ok {
		return v, nil
	}
	v, err := s.host.Branches(ctx, key.Owner, key.Name)
	if err != nil {
		return nil, err
	}
	s.branches.Set(slug, v)
	return v, nil
}

func (s *Service) fetchTree(ctx context.Context, key repokey.Key, rev string) (githost.Tree, error) {
	ck := key.Slug() + ":" + rev
	if v, ok := s.trees.Get(ck); ok {
		return v, nil
	}
	v, err := s.host.Tree(ctx, key.Owner, key.Name, rev)
	if err != nil {
		return v, err
	}
	s.trees.Set(ck, v)
	return v, nil
}

// fetchFiles pulls the important file contents for a revision. Files the
// host reports as absent are skipped; transport failures abort the run
func (s *Service) fetchFiles(ctx context.Context, key repokey.Key, rev string, tree githost.Tree) (map[string]string, error) {
	ck := key.Slug() + ":" + rev
	if v, ok := s.files.Get(ck); ok {
		return v, nil
	}
	out := make(map[string]string)
	for _, p := range pickImportant(tree) {
		content, ok, err := s.host.FileContent(ctx, key.Owner, key.Name, p, rev)
		if err != nil {
			return nil, err
		}
		if ok {
			out[p] = content
		}
	}
	s.files.Set(ck, out)
	return out, nil
}

func (s *Service) emitError(safe domain.EmitFunc, err error) {
	safe(domain.Event{Type: domain.EventError, Data: domain.ErrorData{
		Message: err.Error(),
		Code:    errorSlug(err),
	}})
}

func (s *Service) record(key string, dec quotadom.Decision, rep *domain.Report, start time.Time, cacheHit bool) {
	if s.rec == nil || rep == nil {
		return
	}
	s.rec.RecordAnalysis(key, dec.Tier, rep.Scores.Overall, s.now().Sub(start).Milliseconds(), cacheHit)
}

func doneEvent(cached bool, d time.Duration) domain.Event {
	return domain.Event{Type: domain.EventDone, Data: domain.DoneData{
		Cached:     cached,
		DurationMs: d.Milliseconds(),
	}}
}

// safeEmit wraps emit so a disconnected caller stops delivery without
// aborting the shared computation
func safeEmit(emit domain.EmitFunc, log logger.Logger) domain.EmitFunc {
	dead := false
	return func(ev domain.Event) error {
		if dead {
			return nil
		}
		if err := emit(ev); err != nil {
			dead = true
			log.Debug().Err(err).Msg("stream consumer gone, continuing computation")
		}
		return nil
	}
}

func errorSlug(err error) string {
	switch perr.CodeOf(err) {
	case perr.ErrorCodeNotFound:
		return "not_found"
	case perr.ErrorCodeUpstream:
		return "upstream"
	case perr.ErrorCodeProvider:
		return "provider"
	case perr.ErrorCodeConfig:
		return "config"
	default:
		return "internal"
	}
}

func metadataView(meta githost.Metadata) domain.RepoMetadata {
	md := domain.RepoMetadata{
		FullName:      meta.FullName,
		Description:   meta.Description,
		DefaultBranch: meta.DefaultBranch,
		Language:      meta.Language,
		Stars:         meta.Stars,
		Forks:         meta.Forks,
		OpenIssues:    meta.OpenIssues,
		Topics:        meta.Topics,
		CreatedAt:     meta.CreatedAt,
		PushedAt:      meta.PushedAt,
	}
	if meta.License != nil {
		md.License = meta.License.Name
	}
	return md
}

func branchNames(bs []githost.Branch) []string {
	out := make([]string, 0, len(bs))
	for _, b := range bs {
		out = append(out, b.Name)
	}
	return out
}
