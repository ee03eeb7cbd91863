// Package suggest assembles actionable suggestions from repository metrics.
// Generators are pure: same metrics in, same suggestions out, in a stable order
package suggest

import (
	"fmt"

	"repolyze/internal/core/scoring"
)

// Priority buckets a suggestion by urgency
type Priority string

// Priorities, most urgent first
const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Suggestion is one recommended action
type Suggestion struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Priority    Priority `json:"priority"`
}

// Automations proposes CI and tooling automations the repository lacks
func Automations(m scoring.Metrics) []Suggestion {
	var out []Suggestion

	if !m.HasCI {
		out = append(out, Suggestion{
			Title:       "Add a continuous integration workflow",
			Description: "No CI configuration was found. A workflow that builds and tests every push catches regressions before they reach the default branch.",
			Priority:    PriorityHigh,
		})
	}
	if !m.HasTests {
		out = append(out, Suggestion{
			Title:       "Set up an automated test suite",
			Description: "No test files were detected. Even a small suite wired into CI protects the core paths from accidental breakage.",
			Priority:    PriorityHigh,
		})
	}
	if !m.LintConfig {
		out = append(out, Suggestion{
			Title:       "Add a linter to the build",
			Description: "No lint configuration was found. Running a linter in CI keeps style and common bug patterns consistent across contributors.",
			Priority:    PriorityMedium,
		})
	}
	if !m.FormatterConfig {
		out = append(out, Suggestion{
			Title:       "Enforce a code formatter",
			Description: "No formatter configuration was found. Automated formatting removes style churn from code review.",
			Priority:    PriorityLow,
		})
	}
	if !m.HasSecurityConfig {
		out = append(out, Suggestion{
			Title:       "Schedule automated dependency audits",
			Description: "No security tooling configuration was found. A scheduled dependency audit surfaces known vulnerabilities without manual effort.",
			Priority:    PriorityMedium,
		})
	}
	if m.HasTests && !m.HasCI {
		out = append(out, Suggestion{
			Title:       "Run the existing tests in CI",
			Description: "Tests exist but nothing runs them automatically. Wiring them into a workflow makes them a gate instead of a suggestion.",
			Priority:    PriorityHigh,
		})
	}

	return out
}

// Refactors proposes structural cleanups based on detected hotspots
func Refactors(m scoring.Metrics) []Suggestion {
	var out []Suggestion

	if m.ExposedSecrets > 0 {
		out = append(out, Suggestion{
			Title:       "Remove committed secrets and rotate them",
			Description: fmt.Sprintf("%d file(s) matched secret-exposure heuristics. Move credentials to environment variables or a secret manager and rotate anything already committed.", m.ExposedSecrets),
			Priority:    PriorityHigh,
		})
	}
	if m.OversizedFiles > 3 {
		out = append(out, Suggestion{
			Title:       "Split oversized files",
			Description: fmt.Sprintf("%d files exceed the size threshold. Breaking them into focused units makes them easier to review and test.", m.OversizedFiles),
			Priority:    PriorityMedium,
		})
	}
	if m.DeeplyNestedPaths > 5 {
		out = append(out, Suggestion{
			Title:       "Flatten deeply nested directories",
			Description: fmt.Sprintf("%d paths nest beyond the depth threshold. A flatter layout shortens imports and makes the structure easier to navigate.", m.DeeplyNestedPaths),
			Priority:    PriorityLow,
		})
	}
	if m.DependencyCount > 50 {
		out = append(out, Suggestion{
			Title:       "Prune the dependency tree",
			Description: fmt.Sprintf("%d dependencies were counted. Auditing for unused or overlapping packages reduces install time and attack surface.", m.DependencyCount),
			Priority:    PriorityMedium,
		})
	}
	if m.VulnerableDeps > 0 {
		out = append(out, Suggestion{
			Title:       "Replace deprecated or vulnerable dependencies",
			Description: fmt.Sprintf("%d dependency pattern(s) matched known deprecated or vulnerable packages. Upgrading or replacing them removes known risk.", m.VulnerableDeps),
			Priority:    PriorityHigh,
		})
	}
	if !m.ErrorHandlingPattern {
		out = append(out, Suggestion{
			Title:       "Introduce consistent error handling",
			Description: "No recognizable error handling pattern was detected. Consistent handling at module boundaries turns silent failures into actionable reports.",
			Priority:    PriorityMedium,
		})
	}
	if !m.ValidationPattern {
		out = append(out, Suggestion{
			Title:       "Validate external input at the boundary",
			Description: "No input validation pattern was detected. Validating requests before they reach business logic prevents a whole class of defects.",
			Priority:    PriorityMedium,
		})
	}

	return out
}
