package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"repolyze/internal/services/quota/domain"
)

type fakeRepo struct {
	mu       sync.Mutex
	inserts  []string
	count    int
	countErr error
	plan     domain.Plan
	planErr  error
	pruned   time.Time
}

func (f *fakeRepo) Insert(_ context.Context, scope string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inserts = append(f.inserts, scope)
	return nil
}

func (f *fakeRepo) CountSince(_ context.Context, _ string, _ time.Time) (int, error) {
	return f.count, f.countErr
}

func (f *fakeRepo) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pruned = cutoff
	return 3, nil
}

func (f *fakeRepo) PlanByAccount(context.Context, string) (domain.Plan, error) {
	return f.plan, f.planErr
}

// newService wires a service with synchronous side effects and a frozen clock
func newService(t *testing.T, r *fakeRepo) (*Service, *time.Time) {
	t.Helper()
	s := New(r, Config{BurstLimit: 3})
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return at }
	s.chance = func() float64 { return 1 } // never prune unless a test lowers it
	s.record = func(fn func()) { fn() }
	return s, &at
}

func TestAdmitAnonymousAllowance(t *testing.T) {
	r := &fakeRepo{count: 0}
	s, _ := newService(t, r)

	d := s.Admit(context.Background(), domain.AdmitInput{Addr: "1.2.3.4"})
	if !d.Allowed {
		t.Fatalf("first anonymous request denied: %+v", d)
	}
	if d.Tier != domain.TierAnonymous || d.Limit != 1 || d.Remaining != 1 {
		t.Fatalf("unexpected decision: %+v", d)
	}
	if len(r.inserts) != 1 || r.inserts[0] != "addr:1.2.3.4" {
		t.Fatalf("expected one scoped record, got %v", r.inserts)
	}
}

func TestAdmitDailyQuotaExhausted(t *testing.T) {
	r := &fakeRepo{count: 1}
	s, _ := newService(t, r)

	d := s.Admit(context.Background(), domain.AdmitInput{Addr: "1.2.3.4"})
	if d.Allowed {
		t.Fatalf("expected denial at limit, got %+v", d)
	}
	if d.Code != domain.DenyDailyQuota || d.Remaining != 0 || d.Limit != 1 {
		t.Fatalf("unexpected denial: %+v", d)
	}
	if d.RetryAfterSec != 12*3600 {
		t.Fatalf("retry hint should reach next UTC midnight, got %d", d.RetryAfterSec)
	}
	if len(r.inserts) != 0 {
		t.Fatalf("denied request must not be recorded")
	}
}

func TestAdmitTierLimits(t *testing.T) {
	cases := []struct {
		plan  domain.Plan
		tier  domain.Tier
		limit int
	}{
		{domain.Plan{Tier: domain.TierFree}, domain.TierFree, 3},
		{domain.Plan{Tier: domain.TierPro}, domain.TierPro, 44},
	}
	for _, tc := range cases {
		r := &fakeRepo{plan: tc.plan}
		s, _ := newService(t, r)
		d := s.Admit(context.Background(), domain.AdmitInput{Addr: "9.9.9.9", AccountID: "acct-1"})
		if !d.Allowed || d.Tier != tc.tier || d.Limit != tc.limit {
			t.Fatalf("tier %s: unexpected decision %+v", tc.tier, d)
		}
		if r.inserts[0] != "acct:acct-1" {
			t.Fatalf("account scope not used: %v", r.inserts)
		}
	}
}

func TestAdmitExpiredProFallsToFree(t *testing.T) {
	past := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	r := &fakeRepo{plan: domain.Plan{Tier: domain.TierPro, ExpiresAt: &past}}
	s, _ := newService(t, r)

	d := s.Admit(context.Background(), domain.AdmitInput{Addr: "9.9.9.9", AccountID: "acct-1"})
	if d.Tier != domain.TierFree || d.Limit != 3 {
		t.Fatalf("expired pro should degrade to free: %+v", d)
	}
}

func TestAdmitBurstWindow(t *testing.T) {
	r := &fakeRepo{plan: domain.Plan{Tier: domain.TierPro}}
	s, at := newService(t, r)
	in := domain.AdmitInput{Addr: "8.8.8.8", AccountID: "acct-1"}

	for i := 0; i < 3; i++ {
		if d := s.Admit(context.Background(), in); !d.Allowed {
			t.Fatalf("request %d inside burst window denied: %+v", i+1, d)
		}
	}
	d := s.Admit(context.Background(), in)
	if d.Allowed || d.Code != domain.DenyBurst {
		t.Fatalf("fourth request should trip the burst limiter: %+v", d)
	}
	if d.RetryAfterSec != 60 {
		t.Fatalf("burst retry hint should be the window length, got %d", d.RetryAfterSec)
	}

	// a fresh window clears the limiter
	*at = at.Add(61 * time.Second)
	if d := s.Admit(context.Background(), in); !d.Allowed {
		t.Fatalf("request after window rollover denied: %+v", d)
	}
}

func TestAdmitFailsOpenOnStoreError(t *testing.T) {
	r := &fakeRepo{countErr: errors.New("pg down")}
	s, _ := newService(t, r)

	d := s.Admit(context.Background(), domain.AdmitInput{Addr: "1.2.3.4"})
	if !d.Allowed || !d.Degraded {
		t.Fatalf("store failure must fail open: %+v", d)
	}
	if d.Tier != domain.TierAnonymous || d.Remaining != 1 {
		t.Fatalf("degraded decision should be anonymous with one unit: %+v", d)
	}
}

func TestAdmitFailsOpenOnPlanLookupError(t *testing.T) {
	r := &fakeRepo{planErr: errors.New("pg down")}
	s, _ := newService(t, r)

	d := s.Admit(context.Background(), domain.AdmitInput{Addr: "1.2.3.4", AccountID: "acct-1"})
	if !d.Allowed || !d.Degraded || d.Tier != domain.TierAnonymous {
		t.Fatalf("plan lookup failure must fail open anonymously: %+v", d)
	}
}

func TestAdmitOccasionalPrune(t *testing.T) {
	r := &fakeRepo{plan: domain.Plan{Tier: domain.TierPro}}
	s, at := newService(t, r)
	s.chance = func() float64 { return 0 }

	s.Admit(context.Background(), domain.AdmitInput{Addr: "1.2.3.4", AccountID: "acct-1"})

	want := at.AddDate(0, 0, -2)
	if !r.pruned.Equal(want) {
		t.Fatalf("prune cutoff = %v, want %v", r.pruned, want)
	}
}
