package service

import (
	"fmt"
	"strings"

	"repolyze/internal/core/scoring"
	"repolyze/internal/services/analyze/domain"
)

// buildPrompt assembles the narrative provider prompt from the metadata
// slice and the deterministic scoring output
func buildPrompt(md domain.RepoMetadata, m scoring.Metrics, sc scoring.ScoreSet) string {
	var b strings.Builder
	b.WriteString("You are a senior engineer reviewing a code repository. ")
	b.WriteString("Write a concise quality assessment in two or three short paragraphs. ")
	b.WriteString("Be specific and constructive; do not repeat the raw numbers verbatim.\n\n")

	fmt.Fprintf(&b, "Repository: %s\n", md.FullName)
	if md.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", md.Description)
	}
	if md.Language != "" {
		fmt.Fprintf(&b, "Primary language: %s\n", md.Language)
	}
	fmt.Fprintf(&b, "Stars: %d, open issues: %d\n\n", md.Stars, md.OpenIssues)

	fmt.Fprintf(&b, "Overall score: %d/100\n", sc.Overall)
	fmt.Fprintf(&b, "Code quality %d, documentation %d, security %d, maintainability %d, test coverage %d, dependencies %d\n\n",
		sc.CodeQuality.Score, sc.Documentation.Score, sc.Security.Score,
		sc.Maintainability.Score, sc.TestCoverage.Score, sc.Dependencies.Score)

	var signals []string
	if m.HasTests {
		signals = append(signals, fmt.Sprintf("tests present (ratio %.2f)", m.TestRatio))
	} else {
		signals = append(signals, "no tests detected")
	}
	if m.HasCI {
		signals = append(signals, "CI configured ("+m.CIProvider+")")
	} else {
		signals = append(signals, "no CI")
	}
	if m.ExposedSecrets > 0 {
		signals = append(signals, fmt.Sprintf("%d potential exposed secrets", m.ExposedSecrets))
	}
	if m.VulnerableDeps > 0 {
		signals = append(signals, fmt.Sprintf("%d known-problematic dependencies", m.VulnerableDeps))
	}
	if !m.HasLicense {
		signals = append(signals, "no license file")
	}
	fmt.Fprintf(&b, "Notable signals: %s\n", strings.Join(signals, "; "))

	return b.String()
}
