package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"repolyze/internal/adapters/githost"
	"repolyze/internal/core/repokey"
	"repolyze/internal/services/analyze/domain"
	quotadom "repolyze/internal/services/quota/domain"
)

type fakeHost struct {
	mu       sync.Mutex
	metaHits int32
	treeHits int32
	metaErr  error
	gate     chan struct{} // when set, Metadata blocks until closed
}

func (f *fakeHost) Metadata(context.Context, string, string) (githost.Metadata, error) {
	if f.gate != nil {
		<-f.gate
	}
	atomic.AddInt32(&f.metaHits, 1)
	if f.metaErr != nil {
		return githost.Metadata{}, f.metaErr
	}
	return githost.Metadata{
		FullName:      "acme/widgets",
		DefaultBranch: "main",
		Language:      "Go",
		Stars:         42,
	}, nil
}

func (f *fakeHost) Branches(context.Context, string, string) ([]githost.Branch, error) {
	return []githost.Branch{{Name: "main"}, {Name: "dev"}}, nil
}

func (f *fakeHost) Tree(context.Context, string, string, string) (githost.Tree, error) {
	atomic.AddInt32(&f.treeHits, 1)
	return githost.Tree{Entries: []githost.TreeEntry{
		{Path: "README.md", Type: "blob", Size: 2000},
		{Path: "main.go", Type: "blob", Size: 500},
		{Path: "main_test.go", Type: "blob", Size: 400},
		{Path: ".github/workflows/ci.yml", Type: "blob", Size: 100},
	}}, nil
}

func (f *fakeHost) FileContent(_ context.Context, _, _, p, _ string) (string, bool, error) {
	if p == "README.md" {
		return "# widgets\n\nA thing.\n", true, nil
	}
	return "", false, nil
}

type fakeNarrative struct {
	chunks []string
	err    error // returned after emitting chunks
	calls  int32
}

func (f *fakeNarrative) Configured() bool { return true }

func (f *fakeNarrative) Stream(_ context.Context, _ string, onChunk func(string) error) error {
	atomic.AddInt32(&f.calls, 1)
	for _, c := range f.chunks {
		if err := onChunk(c); err != nil {
			return err
		}
	}
	return f.err
}

func collector() (domain.EmitFunc, *[]domain.Event) {
	var mu sync.Mutex
	events := &[]domain.Event{}
	return func(ev domain.Event) error {
		mu.Lock()
		defer mu.Unlock()
		*events = append(*events, ev)
		return nil
	}, events
}

func eventTypes(events []domain.Event) []domain.EventType {
	out := make([]domain.EventType, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.Type)
	}
	return out
}

func wantSequence(t *testing.T, got []domain.EventType, want ...domain.EventType) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("event sequence = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("event %d = %s, want %s (full: %v)", i, got[i], want[i], got)
		}
	}
}

func testDecision() quotadom.Decision {
	return quotadom.Decision{Allowed: true, Tier: quotadom.TierFree, Limit: 3, Remaining: 2}
}

func mustKey(t *testing.T) repokey.Key {
	t.Helper()
	k, err := repokey.Parse("acme/widgets", "main")
	if err != nil {
		t.Fatalf("parse key: %v", err)
	}
	return k
}

func TestAnalyzeFreshStreamOrder(t *testing.T) {
	host := &fakeHost{}
	narr := &fakeNarrative{chunks: []string{"Solid ", "project."}}
	s := New(host, narr, nil, Config{})

	emit, events := collector()
	if err := s.Analyze(context.Background(), mustKey(t), testDecision(), emit); err != nil {
		t.Fatalf("analyze: %v", err)
	}

	wantSequence(t, eventTypes(*events),
		domain.EventMetadata, domain.EventScores, domain.EventAutomations,
		domain.EventRefactors, domain.EventContent, domain.EventContent, domain.EventDone)

	done := (*events)[len(*events)-1].Data.(domain.DoneData)
	if done.Cached {
		t.Fatalf("fresh path reported cached")
	}
}

func TestAnalyzeCachedStreamOrder(t *testing.T) {
	host := &fakeHost{}
	narr := &fakeNarrative{chunks: []string{"Solid ", "project."}}
	s := New(host, narr, nil, Config{})
	key := mustKey(t)

	emit1, _ := collector()
	if err := s.Analyze(context.Background(), key, testDecision(), emit1); err != nil {
		t.Fatalf("first analyze: %v", err)
	}

	emit2, events := collector()
	if err := s.Analyze(context.Background(), key, testDecision(), emit2); err != nil {
		t.Fatalf("second analyze: %v", err)
	}

	// cached path: same types, one consolidated content chunk
	wantSequence(t, eventTypes(*events),
		domain.EventMetadata, domain.EventScores, domain.EventAutomations,
		domain.EventRefactors, domain.EventContent, domain.EventDone)

	content := (*events)[4].Data.(string)
	if content != "Solid project." {
		t.Fatalf("consolidated chunk = %q", content)
	}
	done := (*events)[5].Data.(domain.DoneData)
	if !done.Cached {
		t.Fatalf("cached path not flagged")
	}
	if got := atomic.LoadInt32(&host.metaHits); got != 1 {
		t.Fatalf("cached path hit the host %d times", got)
	}
	if got := atomic.LoadInt32(&narr.calls); got != 1 {
		t.Fatalf("cached path hit the provider %d times", got)
	}
}

func TestAnalyzeProviderFailureMidStream(t *testing.T) {
	host := &fakeHost{}
	narr := &fakeNarrative{chunks: []string{"partial"}, err: errors.New("provider reset")}
	s := New(host, narr, nil, Config{})
	key := mustKey(t)

	emit, events := collector()
	if err := s.Analyze(context.Background(), key, testDecision(), emit); err != nil {
		t.Fatalf("analyze should absorb provider failure, got %v", err)
	}

	wantSequence(t, eventTypes(*events),
		domain.EventMetadata, domain.EventScores, domain.EventAutomations,
		domain.EventRefactors, domain.EventContent, domain.EventError, domain.EventDone)

	// a partial report must never be cached
	emit2, events2 := collector()
	narr.err = nil
	if err := s.Analyze(context.Background(), key, testDecision(), emit2); err != nil {
		t.Fatalf("retry analyze: %v", err)
	}
	last := (*events2)[len(*events2)-1].Data.(domain.DoneData)
	if last.Cached {
		t.Fatalf("retry after failure served a cached partial report")
	}
}

func TestAnalyzeUpstreamFailure(t *testing.T) {
	host := &fakeHost{metaErr: errors.New("host down")}
	narr := &fakeNarrative{}
	s := New(host, narr, nil, Config{})

	emit, events := collector()
	if err := s.Analyze(context.Background(), mustKey(t), testDecision(), emit); err != nil {
		t.Fatalf("analyze: %v", err)
	}
	wantSequence(t, eventTypes(*events), domain.EventError, domain.EventDone)
}

func TestAnalyzeDeduplicatesConcurrentRequests(t *testing.T) {
	host := &fakeHost{gate: make(chan struct{})}
	narr := &fakeNarrative{chunks: []string{"ok"}}
	s := New(host, narr, nil, Config{})
	key := mustKey(t)

	const n = 4
	var wg sync.WaitGroup
	overall := make([]int, n)
	started := make(chan struct{}, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			started <- struct{}{}
			emit, _ := collector()
			if err := s.Analyze(context.Background(), key, testDecision(), emit); err != nil {
				t.Errorf("analyze %d: %v", i, err)
				return
			}
			rep, ok := s.results.Get(key.String())
			if !ok {
				t.Errorf("analyze %d: result cache empty after completion", i)
				return
			}
			overall[i] = rep.Scores.Overall
		}(i)
	}

	for i := 0; i < n; i++ {
		<-started
	}
	// small settle so all callers are parked on the same flight key
	time.Sleep(50 * time.Millisecond)
	close(host.gate)
	wg.Wait()

	if got := atomic.LoadInt32(&host.metaHits); got != 1 {
		t.Fatalf("metadata fetched %d times, want 1", got)
	}
	if got := atomic.LoadInt32(&host.treeHits); got != 1 {
		t.Fatalf("tree fetched %d times, want 1", got)
	}
	if got := atomic.LoadInt32(&narr.calls); got != 1 {
		t.Fatalf("narrative generated %d times, want 1", got)
	}
	for i := 1; i < n; i++ {
		if overall[i] != overall[0] {
			t.Fatalf("caller %d overall = %d, caller 0 = %d", i, overall[i], overall[0])
		}
	}
}

func TestAnalyzeFailureDoesNotPoisonLaterCallers(t *testing.T) {
	host := &fakeHost{metaErr: errors.New("host down")}
	narr := &fakeNarrative{chunks: []string{"ok"}}
	s := New(host, narr, nil, Config{})
	key := mustKey(t)

	emit1, _ := collector()
	_ = s.Analyze(context.Background(), key, testDecision(), emit1)

	// the failure is gone; a later caller must compute fresh, not inherit it
	host.metaErr = nil
	emit2, events := collector()
	if err := s.Analyze(context.Background(), key, testDecision(), emit2); err != nil {
		t.Fatalf("analyze: %v", err)
	}
	types := eventTypes(*events)
	if types[0] != domain.EventMetadata {
		t.Fatalf("second caller inherited the failure: %v", types)
	}
}
