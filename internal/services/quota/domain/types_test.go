package domain

import (
	"testing"
	"time"
)

func TestPlanEffective(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	cases := []struct {
		name string
		plan Plan
		want Tier
	}{
		{"empty plan defaults to free", Plan{}, TierFree},
		{"free stays free", Plan{Tier: TierFree}, TierFree},
		{"pro without expiry", Plan{Tier: TierPro}, TierPro},
		{"pro with future expiry", Plan{Tier: TierPro, ExpiresAt: &future}, TierPro},
		{"expired pro degrades to free", Plan{Tier: TierPro, ExpiresAt: &past}, TierFree},
	}
	for _, tc := range cases {
		if got := tc.plan.Effective(now); got != tc.want {
			t.Fatalf("%s: got %s, want %s", tc.name, got, tc.want)
		}
	}
}

func TestAdmitInputScope(t *testing.T) {
	in := AdmitInput{Addr: "1.2.3.4"}
	if in.Scope() != "addr:1.2.3.4" {
		t.Fatalf("scope = %q", in.Scope())
	}
	in.AccountID = "a1"
	if in.Scope() != "acct:a1" {
		t.Fatalf("authenticated scope = %q", in.Scope())
	}
}

func TestDeniedErrorRetryAfter(t *testing.T) {
	e := &DeniedError{Decision: Decision{Code: DenyBurst, Message: "slow down", RetryAfterSec: 60}}
	if e.RetryAfter() != 60 {
		t.Fatalf("retry after = %d", e.RetryAfter())
	}
	if e.Error() == "" {
		t.Fatalf("empty error string")
	}
}
