// Package domain holds quota core types independent of transport or storage
package domain

import (
	"fmt"
	"time"
)

// Tier is an identity's service level controlling the daily quota
type Tier string

const (
	// TierAnonymous is an unauthenticated caller, keyed by network address
	TierAnonymous Tier = "anonymous"

	// TierFree is an authenticated caller without an active paid plan
	TierFree Tier = "free"

	// TierPro is an authenticated caller with an unexpired paid plan
	TierPro Tier = "pro"
)

// DefaultDailyLimits are the per tier daily analysis allowances
var DefaultDailyLimits = map[Tier]int{
	TierAnonymous: 1,
	TierFree:      3,
	TierPro:       44,
}

// UpgradeMessage is the tier specific hint attached to a daily quota denial
func UpgradeMessage(t Tier) string {
	switch t {
	case TierAnonymous:
		return "Daily limit reached. Sign in for more analyses."
	case TierFree:
		return "Daily limit reached. Upgrade to Pro for more analyses."
	default:
		return "Daily limit reached. Your quota resets at midnight UTC."
	}
}

// Plan is the persisted subscription state for an account
type Plan struct {
	Tier      Tier
	ExpiresAt *time.Time
}

// Effective degrades an expired pro plan to free
func (p Plan) Effective(now time.Time) Tier {
	if p.Tier == TierPro && p.ExpiresAt != nil && !p.ExpiresAt.After(now) {
		return TierFree
	}
	if p.Tier == "" {
		return TierFree
	}
	return p.Tier
}

// AdmitInput identifies one admission attempt
type AdmitInput struct {
	// Addr is the caller's network address, always present
	Addr string

	// AccountID is empty for anonymous callers
	AccountID string
}

// Scope returns the quota record scope: the account when authenticated,
// otherwise the network address
func (in AdmitInput) Scope() string {
	if in.AccountID != "" {
		return "acct:" + in.AccountID
	}
	return "addr:" + in.Addr
}

// DenyCode distinguishes the two limiter stages in a denial
type DenyCode string

const (
	// DenyBurst means the short per address window was exceeded
	DenyBurst DenyCode = "burst"

	// DenyDailyQuota means the per tier daily allowance was exhausted
	DenyDailyQuota DenyCode = "daily_quota"
)

// Decision is the outcome of admission control
type Decision struct {
	Allowed   bool
	Tier      Tier
	Limit     int
	Remaining int

	// Denial metadata, zero valued when Allowed
	Code          DenyCode
	Message       string
	RetryAfterSec int

	// Degraded marks a fail open decision taken while the quota store
	// was unreachable
	Degraded bool
}

// DeniedError adapts a denial Decision to the error plumbing.
// RetryAfter feeds the Retry-After response header
type DeniedError struct {
	Decision Decision
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("admission denied (%s): %s", e.Decision.Code, e.Decision.Message)
}

// RetryAfter returns the seconds the caller should wait before retrying
func (e *DeniedError) RetryAfter() int { return e.Decision.RetryAfterSec }
