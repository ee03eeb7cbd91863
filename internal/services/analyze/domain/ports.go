package domain

import (
	"context"

	"repolyze/internal/adapters/githost"
	"repolyze/internal/core/repokey"
	quotadom "repolyze/internal/services/quota/domain"
)

// EmitFunc delivers one stream frame to the caller. A non-nil error means
// the caller is gone; producers stop emitting but finish the computation
type EmitFunc func(Event) error

// HostPort is the repository host surface the pipeline consumes
type HostPort interface {
	Metadata(ctx context.Context, owner, name string) (githost.Metadata, error)
	Branches(ctx context.Context, owner, name string) ([]githost.Branch, error)
	Tree(ctx context.Context, owner, name, rev string) (githost.Tree, error)
	FileContent(ctx context.Context, owner, name, path, rev string) (string, bool, error)
}

// NarrativePort streams generated narrative text chunk by chunk
type NarrativePort interface {
	Configured() bool
	Stream(ctx context.Context, prompt string, onChunk func(string) error) error
}

// RecorderPort accepts fire and forget analysis telemetry
type RecorderPort interface {
	RecordAnalysis(key string, tier quotadom.Tier, overall int, durationMs int64, cacheHit bool)
}

// AnalyzerPort runs one analysis and streams its stages through emit.
// The tier event is the caller's responsibility; Analyze starts at metadata
type AnalyzerPort interface {
	Analyze(ctx context.Context, key repokey.Key, dec quotadom.Decision, emit EmitFunc) error
}

// Ports carries the collaborator ports the analyze module requires.
// Recorder may be nil when telemetry storage is disabled
type Ports struct {
	Host      HostPort
	Narrative NarrativePort
	Admitter  quotadom.AdmitterPort
	Recorder  RecorderPort
}
