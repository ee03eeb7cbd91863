// Package domain defines the analysis pipeline types and ports
package domain

import (
	"time"

	"repolyze/internal/core/scoring"
	"repolyze/internal/core/suggest"
	quotadom "repolyze/internal/services/quota/domain"
)

// AnalyzeInput is the request body for an analysis run
type AnalyzeInput struct {
	// URL is a repository URL or an owner/name shorthand
	URL string `json:"url" validate:"required,min=1,max=300"`

	// Branch pins the revision; empty means the default branch
	Branch string `json:"branch,omitempty" validate:"omitempty,max=256"`
}

// RepoMetadata is the host metadata slice surfaced to callers
type RepoMetadata struct {
	FullName      string    `json:"fullName"`
	Description   string    `json:"description,omitempty"`
	DefaultBranch string    `json:"defaultBranch"`
	Language      string    `json:"language,omitempty"`
	Stars         int       `json:"stars"`
	Forks         int       `json:"forks"`
	OpenIssues    int       `json:"openIssues"`
	License       string    `json:"license,omitempty"`
	Topics        []string  `json:"topics,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	PushedAt      time.Time `json:"pushedAt"`
}

// FileStats summarizes the analyzed tree
type FileStats struct {
	Files       int   `json:"files"`
	Dirs        int   `json:"dirs"`
	SourceFiles int   `json:"sourceFiles"`
	TestFiles   int   `json:"testFiles"`
	TotalSizeKB int64 `json:"totalSizeKb"`
}

// Report is the complete analysis result. Only fully assembled reports,
// narrative included, are ever cached
type Report struct {
	Key         string               `json:"key"`
	Metadata    RepoMetadata         `json:"metadata"`
	Stats       FileStats            `json:"stats"`
	Metrics     scoring.Metrics      `json:"metrics"`
	Scores      scoring.ScoreSet     `json:"scores"`
	Automations []suggest.Suggestion `json:"automations"`
	Refactors   []suggest.Suggestion `json:"refactors"`
	Narrative   string               `json:"narrative"`
	Branches    []string             `json:"branches"`
	Tier        quotadom.Tier        `json:"tier"`
	GeneratedAt time.Time            `json:"generatedAt"`
}

// EventType tags one frame of the analysis stream
type EventType string

// Stream event types in emission order
const (
	EventTier        EventType = "tier"
	EventMetadata    EventType = "metadata"
	EventScores      EventType = "scores"
	EventAutomations EventType = "automations"
	EventRefactors   EventType = "refactors"
	EventContent     EventType = "content"
	EventError       EventType = "error"
	EventDone        EventType = "done"
)

// Event is one stream frame. Data shape depends on Type
type Event struct {
	Type EventType `json:"type"`
	Data any       `json:"data,omitempty"`
}

// TierData is the payload of the tier event
type TierData struct {
	Tier      quotadom.Tier `json:"tier"`
	Limit     int           `json:"limit"`
	Remaining int           `json:"remaining"`
}

// MetadataData is the payload of the metadata event
type MetadataData struct {
	Metadata RepoMetadata `json:"metadata"`
	Stats    FileStats    `json:"stats"`
	Branches []string     `json:"branches"`
}

// ErrorData is the payload of the error event
type ErrorData struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// DoneData is the payload of the done event
type DoneData struct {
	Cached     bool  `json:"cached"`
	DurationMs int64 `json:"durationMs"`
}
