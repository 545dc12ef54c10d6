package gitcli

import (
	"context"
	"strings"
)

// remotePrefix is the conventional remote-tracking ref prefix in decorations
const remotePrefix = "origin/"

// refResolver is one strategy for extracting a branch name from a
// decoration string. Returns "" when the strategy has no answer.
type refResolver func(tokens []string) string

// Resolution is best-effort and ordered: remote-tracking refs beat local
// branches, which beat trailing path segments. A commit reachable from
// several branches may resolve to a stale name; that ambiguity is accepted.
var refResolvers = []refResolver{
	resolveRemoteTracking,
	resolveLocalBranch,
	resolveTrailingSegment,
}

// ResolveBranchFromRefs extracts a branch name from a %D decoration string
// such as "origin/main, main, HEAD -> main". Returns "" when no strategy
// produces a name.
func ResolveBranchFromRefs(refs string) string {
	tokens := splitRefs(refs)
	if len(tokens) == 0 {
		return ""
	}

	for _, resolve := range refResolvers {
		if name := resolve(tokens); name != "" {
			return name
		}
	}
	return ""
}

// ResolveBranch runs the decoration strategies and then the reachability
// fallback (git name-rev) when they all come up empty.
func (c *Client) ResolveBranch(ctx context.Context, repoPath, hash, refs string) string {
	if name := ResolveBranchFromRefs(refs); name != "" {
		return name
	}

	name, err := c.NameRev(ctx, repoPath, hash)
	if err != nil {
		return ""
	}
	return name
}

func splitRefs(refs string) []string {
	var tokens []string
	for _, token := range strings.Split(refs, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		// "HEAD -> main" names the checked-out branch
		if after, ok := strings.CutPrefix(token, "HEAD -> "); ok {
			token = after
		}
		tokens = append(tokens, token)
	}
	return tokens
}

// resolveRemoteTracking picks the first remote-tracking ref, stripped of its
// remote prefix
func resolveRemoteTracking(tokens []string) string {
	for _, token := range tokens {
		if name, ok := strings.CutPrefix(token, remotePrefix); ok {
			if name != "" && name != "HEAD" {
				return name
			}
		}
	}
	return ""
}

// resolveLocalBranch picks the first plain branch-shaped token: no slash,
// not HEAD, not a tag marker
func resolveLocalBranch(tokens []string) string {
	for _, token := range tokens {
		if token == "HEAD" || strings.HasPrefix(token, "tag: ") {
			continue
		}
		if strings.Contains(token, "/") {
			continue
		}
		return token
	}
	return ""
}

// resolveTrailingSegment extracts the trailing path segment from any
// slash-containing token that is not HEAD, a tag, or a remote-tracking ref
func resolveTrailingSegment(tokens []string) string {
	for _, token := range tokens {
		if token == "HEAD" || strings.HasPrefix(token, "tag: ") {
			continue
		}
		if strings.HasPrefix(token, remotePrefix) {
			continue
		}
		if idx := strings.LastIndex(token, "/"); idx >= 0 && idx < len(token)-1 {
			return token[idx+1:]
		}
	}
	return ""
}
