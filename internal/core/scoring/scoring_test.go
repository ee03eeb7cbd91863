package scoring

import (
	"math"
	"math/rand"
	"reflect"
	"testing"
)

func TestEverythingAbsent(t *testing.T) {
	m := Metrics{ReadmeQuality: ReadmeMissing}
	s := Score(m)

	if got := s.Documentation.Score; got != 15 {
		t.Fatalf("documentation = %d, want 15", got)
	}
	if got := s.TestCoverage.Score; got != 20 {
		t.Fatalf("testCoverage = %d, want 20", got)
	}
	if got := s.Security.Score; got != 60 {
		t.Fatalf("security = %d, want 60", got)
	}
}

func TestCodeQualityFullTooling(t *testing.T) {
	m := Metrics{
		TypedLanguage:   true,
		StrictTyping:    true,
		LintConfig:      true,
		FormatterConfig: true,
	}
	if got := Score(m).CodeQuality.Score; got != 90 {
		t.Fatalf("codeQuality = %d, want 90", got)
	}
}

func TestTestCoverageWellTested(t *testing.T) {
	m := Metrics{
		HasTests:      true,
		TestRatio:     0.6,
		TestFileCount: 8,
		HasCI:         true,
	}
	if got := Score(m).TestCoverage.Score; got != 90 {
		t.Fatalf("testCoverage = %d, want 90", got)
	}
}

func TestOverallIsWeightedRound(t *testing.T) {
	m := Metrics{ReadmeQuality: ReadmeGood, HasLicense: true, HasCI: true, HasTests: true, TestRatio: 0.3}
	s := Score(m)

	want := int(math.Round(
		float64(s.CodeQuality.Score)*0.20 +
			float64(s.Documentation.Score)*0.15 +
			float64(s.Security.Score)*0.20 +
			float64(s.Maintainability.Score)*0.20 +
			float64(s.TestCoverage.Score)*0.15 +
			float64(s.Dependencies.Score)*0.10,
	))
	if s.Overall != want {
		t.Fatalf("overall = %d, want %d", s.Overall, want)
	}
}

func TestDeterminism(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 50; i++ {
		m := randomMetrics(rng)
		a := Score(m)
		b := Score(m)
		if !reflect.DeepEqual(a, b) {
			t.Fatalf("score not deterministic for %+v", m)
		}
	}
}

func TestClampProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 500; i++ {
		m := randomMetrics(rng)
		s := Score(m)
		for name, c := range map[string]Category{
			"codeQuality":     s.CodeQuality,
			"documentation":   s.Documentation,
			"security":        s.Security,
			"maintainability": s.Maintainability,
			"testCoverage":    s.TestCoverage,
			"dependencies":    s.Dependencies,
		} {
			if c.Score < 0 || c.Score > 100 {
				t.Fatalf("%s = %d out of range for %+v", name, c.Score, m)
			}
		}
		if s.Overall < 0 || s.Overall > 100 {
			t.Fatalf("overall = %d out of range", s.Overall)
		}
	}
}

// Clamping never rewrites the audit trail: when a category is pushed past a
// bound, the listed deltas keep their literal values even though they no
// longer sum to the reported score
func TestClampKeepsLiteralFactors(t *testing.T) {
	m := Metrics{
		ExposedSecrets: 3,
		VulnerableDeps: 9, // security: 60 - 30 - 90 =-60, clamps to 0
	}
	s := Score(m)
	if s.Security.Score != 0 {
		t.Fatalf("security = %d, want 0", s.Security.Score)
	}
	sum := 0
	for _, f := range s.Security.Factors {
		sum += f.Delta
	}
	if sum != -60 {
		t.Fatalf("factor sum = %d, want -60", sum)
	}
}

func TestDocumentationExcellent(t *testing.T) {
	m := Metrics{
		ReadmeQuality:   ReadmeExcellent,
		HasChangelog:    true,
		HasContributing: true,
		HasDocsDir:      true,
		HasLicense:      true,
	}
	// 30 + 50 + 10 + 10 + 15 = 115, clamps to 100
	s := Score(m)
	if s.Documentation.Score != 100 {
		t.Fatalf("documentation = %d, want 100", s.Documentation.Score)
	}
	sum := 0
	for _, f := range s.Documentation.Factors {
		sum += f.Delta
	}
	if sum != 115 {
		t.Fatalf("factor sum = %d, want 115", sum)
	}
}

func TestFactorsStartWithBase(t *testing.T) {
	s := Score(Metrics{})
	for name, c := range map[string]Category{
		"codeQuality":  s.CodeQuality,
		"dependencies": s.Dependencies,
	} {
		if len(c.Factors) == 0 || c.Factors[0].Reason != "base score" {
			t.Fatalf("%s factors missing base entry: %+v", name, c.Factors)
		}
	}
}

func randomMetrics(rng *rand.Rand) Metrics {
	qualities := []ReadmeQuality{ReadmeMissing, ReadmeMinimal, ReadmeBasic, ReadmeGood, ReadmeExcellent}
	b := func() bool { return rng.Intn(2) == 1 }
	return Metrics{
		TypedLanguage:        b(),
		StrictTyping:         b(),
		LintConfig:           b(),
		FormatterConfig:      b(),
		EditorConfig:         b(),
		ErrorHandlingPattern: b(),
		ValidationPattern:    b(),
		RateLimitPattern:     b(),
		OversizedFiles:       rng.Intn(12),
		DeeplyNestedPaths:    rng.Intn(12),
		ReadmeQuality:        qualities[rng.Intn(len(qualities))],
		HasChangelog:         b(),
		HasContributing:      b(),
		HasDocsDir:           b(),
		HasLicense:           b(),
		HasSecurityConfig:    b(),
		HasExampleEnv:        b(),
		ExposedSecrets:       rng.Intn(4),
		VulnerableDeps:       rng.Intn(12),
		HasCI:                b(),
		ExistingAutomations:  rng.Intn(6),
		DependencyCount:      rng.Intn(120),
		HasTests:             b(),
		TestRatio:            rng.Float64(),
		TestFileCount:        rng.Intn(30),
	}
}
