package githost

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"

	perr "repolyze/internal/platform/errors"
)

// responses are bounded; trees of big repositories are the largest payload
const maxBodyBytes = 8 << 20

// Metadata fetches repository metadata for owner/name
func (c *Client) Metadata(ctx context.Context, owner, name string) (Metadata, error) {
	var out Metadata
	path := fmt.Sprintf("/repos/%s/%s", owner, name)
	if err := c.getJSON(ctx, path, &out); err != nil {
		return Metadata{}, err
	}
	return out, nil
}

// Branches lists branch names for owner/name, first page only (100 max).
// The analysis report is informational here; exhaustive pagination is not worth
// the extra round trips
func (c *Client) Branches(ctx context.Context, owner, name string) ([]Branch, error) {
	var out []Branch
	path := fmt.Sprintf("/repos/%s/%s/branches?per_page=100", owner, name)
	if err := c.getJSON(ctx, path, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Tree fetches the recursive tree listing for a revision
func (c *Client) Tree(ctx context.Context, owner, name, rev string) (Tree, error) {
	var out Tree
	path := fmt.Sprintf("/repos/%s/%s/git/trees/%s?recursive=1", owner, name, url.PathEscape(rev))
	if err := c.getJSON(ctx, path, &out); err != nil {
		return Tree{}, err
	}
	return out, nil
}

// FileContent fetches and decodes one file at a revision.
// A missing file returns ok=false with a nil error; only host failures error
func (c *Client) FileContent(ctx context.Context, owner, name, filePath, rev string) (content string, ok bool, err error) {
	path := fmt.Sprintf("/repos/%s/%s/contents/%s?ref=%s", owner, name, escapePath(filePath), url.QueryEscape(rev))

	var out struct {
		Type     string `json:"type"`
		Encoding string `json:"encoding"`
		Content  string `json:"content"`
	}
	if err := c.getJSON(ctx, path, &out); err != nil {
		if perr.IsCode(err, perr.ErrorCodeNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	if out.Type != "file" {
		return "", false, nil
	}
	if out.Encoding != "base64" {
		return out.Content, true, nil
	}
	raw, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(out.Content, "\n", ""))
	if err != nil {
		return "", false, perr.Upstreamf("undecodable file content for %s", filePath)
	}
	return string(raw), true, nil
}

// getJSON performs a GET and decodes the body into dst
func (c *Client) getJSON(ctx context.Context, path string, dst any) error {
	resp, err := c.get(ctx, path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.log.Error().Err(cerr).Str("path", path).Msg("githost close body failed")
		}
	}()

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return perr.Wrapf(err, perr.ErrorCodeUpstream, "githost read body failed")
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeUpstream, "githost unexpected payload for %s", path)
	}
	return nil
}

// escapePath escapes each segment but keeps the separators
func escapePath(p string) string {
	parts := strings.Split(p, "/")
	for i, s := range parts {
		parts[i] = url.PathEscape(s)
	}
	return strings.Join(parts, "/")
}
