package suggest

import (
	"reflect"
	"testing"

	"repolyze/internal/core/scoring"
)

func TestAutomationsForBareRepo(t *testing.T) {
	got := Automations(scoring.Metrics{})
	if len(got) == 0 {
		t.Fatal("expected suggestions for a repo with no tooling")
	}
	if got[0].Title != "Add a continuous integration workflow" {
		t.Fatalf("first suggestion = %q", got[0].Title)
	}
	for _, s := range got {
		if s.Title == "" || s.Description == "" || s.Priority == "" {
			t.Fatalf("incomplete suggestion: %+v", s)
		}
	}
}

func TestAutomationsForWellEquippedRepo(t *testing.T) {
	m := scoring.Metrics{
		HasCI:             true,
		HasTests:          true,
		LintConfig:        true,
		FormatterConfig:   true,
		HasSecurityConfig: true,
	}
	if got := Automations(m); len(got) != 0 {
		t.Fatalf("expected no suggestions, got %d", len(got))
	}
}

func TestRefactorsFlagSecretsFirst(t *testing.T) {
	m := scoring.Metrics{
		ExposedSecrets:       2,
		ErrorHandlingPattern: true,
		ValidationPattern:    true,
	}
	got := Refactors(m)
	if len(got) != 1 {
		t.Fatalf("expected 1 suggestion, got %d", len(got))
	}
	if got[0].Priority != PriorityHigh {
		t.Fatalf("secrets suggestion priority = %q", got[0].Priority)
	}
}

func TestGeneratorsAreDeterministic(t *testing.T) {
	m := scoring.Metrics{OversizedFiles: 9, DependencyCount: 60, VulnerableDeps: 1}
	a := Refactors(m)
	b := Refactors(m)
	if !reflect.DeepEqual(a, b) {
		t.Fatal("refactor suggestions not deterministic")
	}
}
