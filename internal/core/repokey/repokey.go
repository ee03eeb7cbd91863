// Package repokey parses and validates repository references.
// A key identifies one analyzable snapshot: owner, name, and the revision
// (branch) it is pinned to. Keys are case sensitive and used verbatim as
// cache and dedup keys
package repokey

import (
	"net/url"
	"regexp"
	"strings"

	perr "repolyze/internal/platform/errors"
)

// Host is the repository host both the parser and the client speak to
const Host = "github.com"

// MaxBranchLen bounds the revision component of a key
const MaxBranchLen = 256

var (
	ownerNameRE = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)
	branchRE    = regexp.MustCompile(`^[\w./-]+$`)
)

// Key pins one repository snapshot
type Key struct {
	Owner string
	Name  string
	Rev   string
}

// String renders the canonical cache/dedup key "<owner>/<name>:<revision>"
func (k Key) String() string { return k.Owner + "/" + k.Name + ":" + k.Rev }

// Slug renders "<owner>/<name>" without the revision
func (k Key) Slug() string { return k.Owner + "/" + k.Name }

// WithRev returns a copy of k pinned to rev
func (k Key) WithRev(rev string) Key {
	k.Rev = rev
	return k
}

// Parse resolves a repository reference into a Key. ref is either a full
// host URL ("https://github.com/owner/name", optionally with a .git suffix
// or trailing path segments) or the "owner/name" shorthand. branch is
// optional; when empty the Key's Rev is left blank for the caller to resolve
// against the repository's default branch
func Parse(ref, branch string) (Key, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return Key{}, perr.InvalidArgf("repository reference is required")
	}

	owner, name, err := splitRef(ref)
	if err != nil {
		return Key{}, err
	}

	name = strings.TrimSuffix(name, ".git")
	if !ownerNameRE.MatchString(owner) {
		return Key{}, perr.InvalidArgf("invalid repository owner %q", owner)
	}
	if !ownerNameRE.MatchString(name) {
		return Key{}, perr.InvalidArgf("invalid repository name %q", name)
	}

	branch = strings.TrimSpace(branch)
	if branch != "" {
		if err := ValidateBranch(branch); err != nil {
			return Key{}, err
		}
	}

	return Key{Owner: owner, Name: name, Rev: branch}, nil
}

// ValidateBranch checks the revision charset and length
func ValidateBranch(branch string) error {
	if len(branch) > MaxBranchLen {
		return perr.InvalidArgf("branch name exceeds %d characters", MaxBranchLen)
	}
	if !branchRE.MatchString(branch) {
		return perr.InvalidArgf("invalid branch name %q", branch)
	}
	return nil
}

// splitRef extracts owner and name from a URL or shorthand reference
func splitRef(ref string) (owner, name string, err error) {
	if strings.Contains(ref, "://") {
		u, perr2 := url.Parse(ref)
		if perr2 != nil {
			return "", "", perr.InvalidArgf("unparseable repository url")
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return "", "", perr.InvalidArgf("unsupported url scheme %q", u.Scheme)
		}
		host := strings.ToLower(u.Hostname())
		if host != Host && host != "www."+Host {
			return "", "", perr.InvalidArgf("url must reference %s", Host)
		}
		parts := splitPath(u.Path)
		if len(parts) < 2 {
			return "", "", perr.InvalidArgf("url must include owner and repository name")
		}
		return parts[0], parts[1], nil
	}

	// owner/name shorthand
	parts := splitPath(ref)
	if len(parts) != 2 {
		return "", "", perr.InvalidArgf("expected owner/name, got %q", ref)
	}
	return parts[0], parts[1], nil
}

func splitPath(p string) []string {
	var out []string
	for _, s := range strings.Split(p, "/") {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
