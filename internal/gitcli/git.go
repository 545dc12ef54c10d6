// Package gitcli wraps the git binary. Every query is invoked per repository
// path; calls are synchronous but safe to run concurrently across different
// repositories.
package gitcli

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/commitlens/commitlens-go/internal/models"
)

// Log output format: hash|author|email|epoch|refs|subject. The subject comes
// last so embedded pipes cannot corrupt the fixed fields.
const logFormat = "%H|%an|%ae|%at|%D|%s"

// undefinedRev is what git name-rev prints for an unreachable commit
const undefinedRev = "undefined"

// LogOptions narrows a log query
type LogOptions struct {
	Author        string // author pattern, matched by git against name or email
	Since         time.Time
	Until         time.Time
	Branch        string // single branch; empty means AllBranches decides
	AllBranches   bool
	IncludeMerges bool
}

// Client runs git queries against repository paths
type Client struct{}

// NewClient creates a git CLI client
func NewClient() *Client {
	return &Client{}
}

// VerifyRepository checks that path is a usable repository (working tree or
// bare). Returns an error for missing directories or non-repositories.
func (c *Client) VerifyRepository(ctx context.Context, repoPath string) error {
	cmd := exec.CommandContext(ctx, "git", "rev-parse", "--git-dir")
	cmd.Dir = repoPath
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("not a git repository at %s: %w (output: %s)",
			repoPath, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// Log lists commits with structured fields. Merge commits are excluded unless
// opts.IncludeMerges is set.
func (c *Client) Log(ctx context.Context, repoPath string, opts LogOptions) ([]models.Commit, error) {
	args := []string{"log", "--pretty=format:" + logFormat}

	if !opts.IncludeMerges {
		args = append(args, "--no-merges")
	}
	if !opts.Since.IsZero() {
		args = append(args, "--since="+opts.Since.Format("2006-01-02 15:04:05"))
	}
	if !opts.Until.IsZero() {
		args = append(args, "--until="+opts.Until.Format("2006-01-02 15:04:05"))
	}
	if opts.Author != "" {
		args = append(args, "--author="+opts.Author, "--extended-regexp", "--regexp-ignore-case")
	}
	switch {
	case opts.Branch != "":
		args = append(args, opts.Branch)
	case opts.AllBranches:
		args = append(args, "--all")
	}

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = repoPath

	output, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return nil, fmt.Errorf("git log failed in %s: %w (stderr: %s)",
				repoPath, err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, fmt.Errorf("git log failed in %s: %w", repoPath, err)
	}

	return parseLogOutput(string(output)), nil
}

// CommitChange returns a single commit's metadata plus its changed-file
// summary from numstat output.
func (c *Client) CommitChange(ctx context.Context, repoPath, hash string) (*models.CodeChange, error) {
	if hash == "" {
		return nil, fmt.Errorf("commit hash is required")
	}

	cmd := exec.CommandContext(ctx, "git", "show", hash,
		"--numstat", "--pretty=format:"+logFormat)
	cmd.Dir = repoPath

	output, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return nil, fmt.Errorf("git show %s failed in %s: %w (stderr: %s)",
				hash, repoPath, err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, fmt.Errorf("git show %s failed in %s: %w", hash, repoPath, err)
	}

	change := parseShowOutput(string(output))
	if change == nil {
		return nil, fmt.Errorf("no commit found for %s in %s", hash, repoPath)
	}
	return change, nil
}

// FileDiff returns the diff of one file for a commit
func (c *Client) FileDiff(ctx context.Context, repoPath, hash, filePath string) (string, error) {
	if hash == "" || filePath == "" {
		return "", fmt.Errorf("commit hash and file path are required")
	}

	cmd := exec.CommandContext(ctx, "git", "show", hash, "--", filePath)
	cmd.Dir = repoPath

	output, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return "", fmt.Errorf("git show %s -- %s failed in %s: %w (stderr: %s)",
				hash, filePath, repoPath, err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", fmt.Errorf("git show %s -- %s failed in %s: %w", hash, filePath, repoPath, err)
	}

	return string(output), nil
}

// Branches lists local branch names
func (c *Client) Branches(ctx context.Context, repoPath string) ([]string, error) {
	cmd := exec.CommandContext(ctx, "git", "branch", "--format=%(refname:short)")
	cmd.Dir = repoPath

	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("git branch failed in %s: %w", repoPath, err)
	}

	var branches []string
	for _, line := range strings.Split(string(output), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			branches = append(branches, line)
		}
	}
	return branches, nil
}

// NameRev resolves a commit to a containing local branch name. Returns ""
// when git reports the sentinel "undefined" (commit unreachable from any
// local branch).
func (c *Client) NameRev(ctx context.Context, repoPath, hash string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", "name-rev", "--name-only",
		"--refs=refs/heads/*", hash)
	cmd.Dir = repoPath

	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("git name-rev %s failed in %s: %w", hash, repoPath, err)
	}

	name := strings.TrimSpace(string(output))
	if name == undefinedRev {
		return "", nil
	}
	// name-rev may answer with an offset like "main~3"
	if idx := strings.IndexAny(name, "~^"); idx > 0 {
		name = name[:idx]
	}
	return name, nil
}
