package module

import (
	"testing"

	"repolyze/internal/modkit"
	"repolyze/internal/platform/testkit"
	"repolyze/internal/services/analyze/domain"
)

func TestNewPanicsWithoutPorts(t *testing.T) {
	testkit.MustPanic(t, func() { New(modkit.Deps{}) })
}

func TestNewPanicsOnMissingCollaborators(t *testing.T) {
	testkit.MustPanic(t, func() {
		New(modkit.Deps{}, modkit.WithPorts(domain.Ports{}))
	})
}
