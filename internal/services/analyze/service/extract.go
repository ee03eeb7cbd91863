package service

import (
	"encoding/json"
	"path"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"

	"repolyze/internal/adapters/githost"
	"repolyze/internal/core/scoring"
	"repolyze/internal/services/analyze/domain"
)

const (
	oversizedBytes = 100 * 1024
	deepNesting    = 6
	maxImportant   = 8
)

// importantFiles are the paths worth fetching for content level signals,
// in fetch priority order
var importantFiles = []string{
	"README.md",
	"readme.md",
	"README",
	"package.json",
	"go.mod",
	"tsconfig.json",
	"pyproject.toml",
	"Cargo.toml",
	"requirements.txt",
	"composer.json",
	"Gemfile",
}

var typedLanguages = map[string]bool{
	"Go":         true,
	"Rust":       true,
	"TypeScript": true,
	"Java":       true,
	"Kotlin":     true,
	"Swift":      true,
	"C#":         true,
	"C++":        true,
	"Scala":      true,
	"Haskell":    true,
}

var secretPatterns = []*regexp.Regexp{
	regexp.MustCompile(`AKIA[0-9A-Z]{16}`),
	regexp.MustCompile(`-----BEGIN (?:RSA |EC |OPENSSH )?PRIVATE KEY-----`),
	regexp.MustCompile(`(?i)(?:api[_-]?key|secret[_-]?key|auth[_-]?token)["'\s]*[:=]["'\s]*[A-Za-z0-9_\-]{16,}`),
}

// deprecated or long vulnerable packages still seen in manifests
var vulnerableDeps = []string{
	`"request"`,
	`"node-uuid"`,
	`"left-pad"`,
	`"event-stream"`,
	`"growl"`,
	`"flatmap-stream"`,
}

// pickImportant selects the manifest and doc paths to fetch from a tree
func pickImportant(tree githost.Tree) []string {
	present := make(map[string]bool, len(tree.Entries))
	for _, e := range tree.Entries {
		if e.Type == "blob" {
			present[e.Path] = true
		}
	}
	var out []string
	for _, p := range importantFiles {
		if present[p] {
			out = append(out, p)
			if len(out) == maxImportant {
				break
			}
		}
	}
	return out
}

// extract derives scoring signals from metadata, the tree listing, and the
// fetched important files. Pure with respect to its inputs
func extract(meta githost.Metadata, tree githost.Tree, files map[string]string) (scoring.Metrics, domain.FileStats) {
	var m scoring.Metrics
	var st domain.FileStats

	normalized := make(map[string]string, len(files))
	for p, c := range files {
		normalized[p] = norm.NFC.String(c)
	}
	blob := strings.Join(mapValues(normalized), "\n")

	for _, e := range tree.Entries {
		if e.Type == "tree" {
			st.Dirs++
			continue
		}
		st.Files++
		st.TotalSizeKB += e.Size / 1024

		lower := strings.ToLower(e.Path)
		base := path.Base(lower)
		depth := strings.Count(e.Path, "/")

		if e.Size > oversizedBytes {
			m.OversizedFiles++
		}
		if depth > deepNesting {
			m.DeeplyNestedPaths++
		}

		if isTestPath(lower) {
			m.TestFileCount++
			st.TestFiles++
		} else if isSourceFile(base) {
			st.SourceFiles++
		}

		switch {
		case strings.HasPrefix(lower, ".github/workflows/") && (strings.HasSuffix(lower, ".yml") || strings.HasSuffix(lower, ".yaml")):
			if !m.HasCI {
				m.HasCI = true
				m.CIProvider = "github-actions"
			}
			m.ExistingAutomations++
		case base == ".gitlab-ci.yml":
			m.HasCI, m.CIProvider = true, "gitlab-ci"
			m.ExistingAutomations++
		case lower == ".circleci/config.yml":
			m.HasCI, m.CIProvider = true, "circleci"
			m.ExistingAutomations++
		case base == "jenkinsfile":
			m.HasCI, m.CIProvider = true, "jenkins"
			m.ExistingAutomations++
		case base == ".travis.yml":
			m.HasCI, m.CIProvider = true, "travis"
			m.ExistingAutomations++
		}

		switch {
		case strings.HasPrefix(base, ".eslintrc"), base == "eslint.config.js", base == ".golangci.yml",
			base == ".golangci.yaml", base == "ruff.toml", base == ".rubocop.yml", base == "biome.json":
			m.LintConfig = true
		case strings.HasPrefix(base, ".prettierrc"), base == "prettier.config.js",
			base == "rustfmt.toml", base == ".clang-format":
			m.FormatterConfig = true
		case base == ".editorconfig":
			m.EditorConfig = true
		case base == "changelog.md", base == "changelog":
			m.HasChangelog = true
		case base == "contributing.md":
			m.HasContributing = true
		case strings.HasPrefix(base, "license"), strings.HasPrefix(base, "copying"):
			m.HasLicense = true
		case base == "security.md", lower == ".github/security.md", lower == ".github/dependabot.yml":
			m.HasSecurityConfig = true
		case base == ".env.example", base == ".env.sample":
			m.HasExampleEnv = true
		case lower == ".github/renovate.json", base == "renovate.json", base == ".pre-commit-config.yaml":
			m.ExistingAutomations++
		}

		if strings.HasPrefix(lower, "docs/") || strings.HasPrefix(lower, "doc/") {
			m.HasDocsDir = true
		}
	}

	if meta.License != nil {
		m.HasLicense = true
	}

	m.TypedLanguage = typedLanguages[meta.Language]
	m.StrictTyping = hasStrictTyping(meta.Language, normalized)
	m.HasTests = m.TestFileCount > 0
	if st.SourceFiles > 0 {
		m.TestRatio = float64(st.TestFiles) / float64(st.SourceFiles)
	}

	m.ReadmeQuality = gradeReadme(readmeOf(normalized))
	m.DependencyCount = countDependencies(normalized)

	for _, dep := range vulnerableDeps {
		if pkg, ok := normalized["package.json"]; ok && strings.Contains(pkg, dep) {
			m.VulnerableDeps++
		}
	}
	for _, re := range secretPatterns {
		m.ExposedSecrets += len(re.FindAllString(blob, -1))
	}

	m.ErrorHandlingPattern = strings.Contains(blob, "if err != nil") ||
		strings.Contains(blob, "try {") || strings.Contains(blob, "rescue ")
	m.ValidationPattern = containsAny(blob, "zod", "joi", "validator", "validate", "pydantic")
	m.RateLimitPattern = containsAny(blob, "ratelimit", "rate-limit", "rate_limit", "limiter")

	return m, st
}

func isTestPath(lower string) bool {
	base := path.Base(lower)
	return strings.HasSuffix(base, "_test.go") ||
		strings.Contains(base, ".test.") ||
		strings.Contains(base, ".spec.") ||
		strings.HasPrefix(lower, "test/") ||
		strings.HasPrefix(lower, "tests/") ||
		strings.Contains(lower, "/__tests__/")
}

var sourceExts = map[string]bool{
	".go": true, ".ts": true, ".tsx": true, ".js": true, ".jsx": true,
	".py": true, ".rs": true, ".java": true, ".kt": true, ".rb": true,
	".c": true, ".cc": true, ".cpp": true, ".h": true, ".cs": true,
	".swift": true, ".scala": true, ".php": true,
}

func isSourceFile(base string) bool { return sourceExts[path.Ext(base)] }

func hasStrictTyping(language string, files map[string]string) bool {
	if language == "Go" || language == "Rust" {
		return true
	}
	if ts, ok := files["tsconfig.json"]; ok && strings.Contains(ts, `"strict": true`) {
		return true
	}
	if py, ok := files["pyproject.toml"]; ok && strings.Contains(py, "[tool.mypy]") {
		return true
	}
	return false
}

func readmeOf(files map[string]string) string {
	for _, p := range []string{"README.md", "readme.md", "README"} {
		if c, ok := files[p]; ok {
			return c
		}
	}
	return ""
}

// gradeReadme grades on length and section structure
func gradeReadme(content string) scoring.ReadmeQuality {
	if content == "" {
		return scoring.ReadmeMissing
	}
	headings := strings.Count(content, "\n#")
	switch {
	case len(content) < 300:
		return scoring.ReadmeMinimal
	case len(content) < 1500 || headings < 3:
		return scoring.ReadmeBasic
	case len(content) < 4000 || headings < 6:
		return scoring.ReadmeGood
	default:
		return scoring.ReadmeExcellent
	}
}

// countDependencies sums direct dependencies across whichever manifests the
// repository carries
func countDependencies(files map[string]string) int {
	n := 0
	if pkg, ok := files["package.json"]; ok {
		var manifest struct {
			Dependencies    map[string]string `json:"dependencies"`
			DevDependencies map[string]string `json:"devDependencies"`
		}
		if json.Unmarshal([]byte(pkg), &manifest) == nil {
			n += len(manifest.Dependencies) + len(manifest.DevDependencies)
		}
	}
	if mod, ok := files["go.mod"]; ok {
		inRequire := false
		for _, line := range strings.Split(mod, "\n") {
			line = strings.TrimSpace(line)
			switch {
			case strings.HasPrefix(line, "require ("):
				inRequire = true
			case inRequire && line == ")":
				inRequire = false
			case inRequire && line != "" && !strings.HasPrefix(line, "//"):
				n++
			case strings.HasPrefix(line, "require "):
				n++
			}
		}
	}
	if reqs, ok := files["requirements.txt"]; ok {
		for _, line := range strings.Split(reqs, "\n") {
			line = strings.TrimSpace(line)
			if line != "" && !strings.HasPrefix(line, "#") {
				n++
			}
		}
	}
	return n
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// mapValues returns values ordered by key so derived signals are stable
func mapValues(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, m[k])
	}
	return out
}
