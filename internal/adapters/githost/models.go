package githost

import "time"

// Metadata is the subset of repository metadata the pipeline consumes
type Metadata struct {
	Name          string    `json:"name"`
	FullName      string    `json:"full_name"`
	Description   string    `json:"description"`
	DefaultBranch string    `json:"default_branch"`
	Language      string    `json:"language"`
	Stars         int       `json:"stargazers_count"`
	Forks         int       `json:"forks_count"`
	OpenIssues    int       `json:"open_issues_count"`
	SizeKB        int       `json:"size"`
	Topics        []string  `json:"topics"`
	License       *License  `json:"license"`
	CreatedAt     time.Time `json:"created_at"`
	PushedAt      time.Time `json:"pushed_at"`
}

// License is the license block on repository metadata
type License struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

// Branch is one entry from the branch listing
type Branch struct {
	Name string `json:"name"`
}

// TreeEntry is a single path in a recursive tree listing
type TreeEntry struct {
	Path string `json:"path"`
	Type string `json:"type"` // "blob" or "tree"
	Size int64  `json:"size"`
}

// Tree is a recursive listing of a revision
type Tree struct {
	Entries   []TreeEntry `json:"tree"`
	Truncated bool        `json:"truncated"`
}
