package domain

import "context"

// AdmitterPort is the admission surface other modules consume
type AdmitterPort interface {
	// Admit runs both limiter stages and returns the decision.
	// Store failures never surface here; they degrade to a fail open
	// anonymous decision instead
	Admit(ctx context.Context, in AdmitInput) Decision
}
