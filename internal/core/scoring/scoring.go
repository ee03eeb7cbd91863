// Package scoring turns extracted repository signals into category scores.
// Score is a pure function: the same metrics always produce the same set
package scoring

import "math"

// ReadmeQuality grades the readme on a coarse ladder
type ReadmeQuality string

// Readme quality tiers, worst to best
const (
	ReadmeMissing   ReadmeQuality = "missing"
	ReadmeMinimal   ReadmeQuality = "minimal"
	ReadmeBasic     ReadmeQuality = "basic"
	ReadmeGood      ReadmeQuality = "good"
	ReadmeExcellent ReadmeQuality = "excellent"
)

var readmeBonus = map[ReadmeQuality]int{
	ReadmeMissing:   0,
	ReadmeMinimal:   10,
	ReadmeBasic:     25,
	ReadmeGood:      40,
	ReadmeExcellent: 50,
}

// Metrics are the signals extracted from a repository snapshot.
// Recomputed per fresh analysis, never cached independently
type Metrics struct {
	TypedLanguage        bool          `json:"typedLanguage"`
	StrictTyping         bool          `json:"strictTyping"`
	LintConfig           bool          `json:"lintConfig"`
	FormatterConfig      bool          `json:"formatterConfig"`
	EditorConfig         bool          `json:"editorConfig"`
	ErrorHandlingPattern bool          `json:"errorHandlingPattern"`
	ValidationPattern    bool          `json:"validationPattern"`
	RateLimitPattern     bool          `json:"rateLimitPattern"`
	OversizedFiles       int           `json:"oversizedFiles"`
	DeeplyNestedPaths    int           `json:"deeplyNestedPaths"`
	ReadmeQuality        ReadmeQuality `json:"readmeQuality"`
	HasChangelog         bool          `json:"hasChangelog"`
	HasContributing      bool          `json:"hasContributing"`
	HasDocsDir           bool          `json:"hasDocsDir"`
	HasLicense           bool          `json:"hasLicense"`
	HasSecurityConfig    bool          `json:"hasSecurityConfig"`
	HasExampleEnv        bool          `json:"hasExampleEnv"`
	ExposedSecrets       int           `json:"exposedSecrets"`
	VulnerableDeps       int           `json:"vulnerableDeps"`
	HasCI                bool          `json:"hasCI"`
	CIProvider           string        `json:"ciProvider,omitempty"`
	ExistingAutomations  int           `json:"existingAutomations"`
	DependencyCount      int           `json:"dependencyCount"`
	HasTests             bool          `json:"hasTests"`
	TestRatio            float64       `json:"testRatio"`
	TestFileCount        int           `json:"testFileCount"`
}

// Factor is one audit line: the literal delta a rule applied and why
type Factor struct {
	Delta  int    `json:"delta"`
	Reason string `json:"reason"`
}

// Category is a clamped score plus the factors that produced it.
// When clamping fires the factor deltas intentionally no longer sum to
// the score; the list stays a faithful trace of the rules that ran
type Category struct {
	Score   int      `json:"score"`
	Factors []Factor `json:"factors"`
}

// ScoreSet is the full scoring output for one repository snapshot
type ScoreSet struct {
	CodeQuality     Category `json:"codeQuality"`
	Documentation   Category `json:"documentation"`
	Security        Category `json:"security"`
	Maintainability Category `json:"maintainability"`
	TestCoverage    Category `json:"testCoverage"`
	Dependencies    Category `json:"dependencies"`
	Overall         int      `json:"overall"`
}

// Category weights for the overall score
const (
	weightCodeQuality     = 0.20
	weightDocumentation   = 0.15
	weightSecurity        = 0.20
	weightMaintainability = 0.20
	weightTestCoverage    = 0.15
	weightDependencies    = 0.10
)

// tally accumulates factors and their running sum for one category
type tally struct {
	sum     int
	factors []Factor
}

func newTally(base int, reason string) *tally {
	return &tally{sum: base, factors: []Factor{{Delta: base, Reason: reason}}}
}

// add records a rule that fired
func (t *tally) add(delta int, reason string) {
	t.sum += delta
	t.factors = append(t.factors, Factor{Delta: delta, Reason: reason})
}

// addIf records the rule only when cond holds
func (t *tally) addIf(cond bool, delta int, reason string) {
	if cond {
		t.add(delta, reason)
	}
}

func (t *tally) category() Category {
	return Category{Score: clamp(t.sum), Factors: t.factors}
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// Score computes all six categories and the weighted overall score
func Score(m Metrics) ScoreSet {
	cq := scoreCodeQuality(m)
	doc := scoreDocumentation(m)
	sec := scoreSecurity(m)
	mnt := scoreMaintainability(m)
	tst := scoreTestCoverage(m)
	dep := scoreDependencies(m)

	overall := int(math.Round(
		float64(cq.Score)*weightCodeQuality +
			float64(doc.Score)*weightDocumentation +
			float64(sec.Score)*weightSecurity +
			float64(mnt.Score)*weightMaintainability +
			float64(tst.Score)*weightTestCoverage +
			float64(dep.Score)*weightDependencies,
	))

	return ScoreSet{
		CodeQuality:     cq,
		Documentation:   doc,
		Security:        sec,
		Maintainability: mnt,
		TestCoverage:    tst,
		Dependencies:    dep,
		Overall:         overall,
	}
}

func scoreCodeQuality(m Metrics) Category {
	t := newTally(50, "base score")
	t.addIf(m.TypedLanguage, 15, "typed language in use")
	t.addIf(m.StrictTyping, 10, "strict typing enabled")
	t.addIf(m.LintConfig, 10, "lint configuration present")
	t.addIf(m.FormatterConfig, 5, "formatter configuration present")
	t.addIf(m.EditorConfig, 3, "editor configuration present")
	t.addIf(m.ErrorHandlingPattern, 5, "error handling patterns detected")
	t.addIf(m.ValidationPattern, 5, "input validation patterns detected")
	t.addIf(m.OversizedFiles > 3, -10, "more than 3 oversized files")
	t.addIf(m.DeeplyNestedPaths > 5, -5, "more than 5 deeply nested paths")
	return t.category()
}

func scoreDocumentation(m Metrics) Category {
	t := newTally(30, "base score")
	if bonus := readmeBonus[m.ReadmeQuality]; bonus > 0 {
		t.add(bonus, "readme quality: "+string(m.ReadmeQuality))
	}
	t.addIf(m.HasChangelog, 10, "changelog present")
	t.addIf(m.HasContributing, 10, "contributing guide present")
	t.addIf(m.HasDocsDir, 15, "docs directory present")
	t.addIf(!m.HasLicense, -15, "no license file")
	return t.category()
}

func scoreSecurity(m Metrics) Category {
	t := newTally(60, "base score")
	t.addIf(m.HasSecurityConfig, 15, "security tooling configured")
	t.addIf(m.HasExampleEnv, 10, "example env file present")
	// flat penalty regardless of how many matches fired
	t.addIf(m.ExposedSecrets > 0, -30, "potential exposed secrets detected")
	t.addIf(m.VulnerableDeps > 0, -10*m.VulnerableDeps, "deprecated or vulnerable dependency patterns")
	t.addIf(m.RateLimitPattern, 10, "rate limiting patterns detected")
	t.addIf(m.ValidationPattern, 5, "validation patterns detected")
	return t.category()
}

func scoreMaintainability(m Metrics) Category {
	t := newTally(50, "base score")
	t.addIf(m.HasCI, 20, "continuous integration present")
	t.addIf(m.TypedLanguage, 10, "typed language in use")
	t.addIf(m.LintConfig, 10, "lint configuration present")
	t.addIf(m.ExistingAutomations > 2, 10, "more than 2 existing automations")
	t.addIf(m.OversizedFiles > 5, -15, "more than 5 oversized files")
	t.addIf(m.DependencyCount > 50, -10, "dependency count exceeds 50")
	return t.category()
}

func scoreTestCoverage(m Metrics) Category {
	t := newTally(20, "base score")
	t.addIf(m.HasTests, 30, "tests present")
	switch {
	case m.TestRatio >= 0.5:
		t.add(30, "test-to-source ratio at least 0.5")
	case m.TestRatio >= 0.2:
		t.add(15, "test-to-source ratio at least 0.2")
	}
	t.addIf(m.TestFileCount > 10, 10, "more than 10 test files")
	t.addIf(m.HasCI, 10, "continuous integration present")
	return t.category()
}

func scoreDependencies(m Metrics) Category {
	t := newTally(70, "base score")
	if m.VulnerableDeps == 0 {
		t.add(15, "no vulnerable dependency patterns")
	} else {
		t.add(-10*m.VulnerableDeps, "vulnerable dependency patterns detected")
	}
	t.addIf(m.HasSecurityConfig, 10, "security tooling configured")
	t.addIf(m.DependencyCount < 30, 5, "fewer than 30 dependencies")
	t.addIf(m.DependencyCount > 80, -15, "more than 80 dependencies")
	return t.category()
}
