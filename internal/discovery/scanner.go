// Package discovery walks arbitrary root folders and identifies git
// repository roots (working tree, linked worktree, or bare) without ever
// descending into a repository it has already identified.
package discovery

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/commitlens/commitlens-go/internal/logging"
	"github.com/commitlens/commitlens-go/internal/models"
	"github.com/commitlens/commitlens-go/internal/storage"
	"github.com/google/uuid"
)

// Options controls a discovery walk
type Options struct {
	MaxDepth       int
	Exclude        []string // directory names, matched case-insensitively
	FollowSymlinks bool
}

// Discovered is one repository found under a scan root
type Discovered struct {
	Path           string `json:"path"`
	Name           string `json:"name"`
	GitLabName     string `json:"gitlab_name,omitempty"`
	GitLabFullPath string `json:"gitlab_full_path,omitempty"`
	AlreadyAdded   bool   `json:"already_added"`
	RepoID         string `json:"repo_id,omitempty"`
}

// Scanner discovers repositories and registers them in the store
type Scanner struct {
	store storage.Store
}

// NewScanner creates a Scanner backed by the given registry store
func NewScanner(store storage.Store) *Scanner {
	return &Scanner{store: store}
}

type walkItem struct {
	path  string
	depth int
}

// Scan walks root to opts.MaxDepth and returns discovered repositories
// sorted by name. Unreadable directories are skipped silently; an unreadable
// root yields an empty result, not an error.
func (s *Scanner) Scan(ctx context.Context, root string, opts Options) ([]Discovered, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	exclude := make(map[string]struct{}, len(opts.Exclude))
	for _, name := range opts.Exclude {
		exclude[strings.ToLower(name)] = struct{}{}
	}

	// Canonical paths already visited, guards symlink cycles
	visited := make(map[string]struct{})

	var results []Discovered
	stack := []walkItem{{path: absRoot, depth: opts.MaxDepth}}

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		item := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		canonical, err := filepath.EvalSymlinks(item.path)
		if err != nil {
			continue
		}
		if _, seen := visited[canonical]; seen {
			continue
		}
		visited[canonical] = struct{}{}

		if configPath, ok := repositoryRoot(item.path); ok {
			results = append(results, s.record(ctx, item.path, configPath))
			// Never descend into an identified repository
			continue
		}

		if item.depth <= 0 {
			continue
		}

		entries, err := os.ReadDir(item.path)
		if err != nil {
			// Permission errors are not fatal to the overall scan
			continue
		}

		for _, entry := range entries {
			if entry.Type()&os.ModeSymlink != 0 {
				if !opts.FollowSymlinks {
					continue
				}
				target, err := os.Stat(filepath.Join(item.path, entry.Name()))
				if err != nil || !target.IsDir() {
					continue
				}
			} else if !entry.IsDir() {
				continue
			}

			if _, excluded := exclude[strings.ToLower(entry.Name())]; excluded {
				continue
			}

			stack = append(stack, walkItem{
				path:  filepath.Join(item.path, entry.Name()),
				depth: item.depth - 1,
			})
		}
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Name < results[j].Name
	})

	return results, nil
}

// repositoryRoot tests whether dir is itself a repository root. It returns
// the path of the repository's config file when it is. Detection order:
//  1. a .git entry (directory, or worktree pointer file)
//  2. bare layout: HEAD + objects/ + config at the directory root
//  3. a *.git directory name that also contains a HEAD file
func repositoryRoot(dir string) (string, bool) {
	gitPath := filepath.Join(dir, ".git")
	if info, err := os.Stat(gitPath); err == nil {
		if info.IsDir() {
			return filepath.Join(gitPath, "config"), true
		}
		return worktreeConfig(dir, gitPath), true
	}

	head := filepath.Join(dir, "HEAD")
	objects := filepath.Join(dir, "objects")
	config := filepath.Join(dir, "config")
	if fileExists(head) && dirExists(objects) && fileExists(config) {
		return config, true
	}

	if strings.HasSuffix(strings.ToLower(filepath.Base(dir)), ".git") && fileExists(head) {
		return config, true
	}

	return "", false
}

// worktreeConfig dereferences a .git pointer file ("gitdir: <path>") to the
// real configuration. Linked worktree gitdirs carry a commondir file
// pointing at the shared .git directory.
func worktreeConfig(dir, gitFile string) string {
	data, err := os.ReadFile(gitFile)
	if err != nil {
		return ""
	}

	line := strings.TrimSpace(string(data))
	gitDir, ok := strings.CutPrefix(line, "gitdir:")
	if !ok {
		return ""
	}
	gitDir = strings.TrimSpace(gitDir)
	if !filepath.IsAbs(gitDir) {
		gitDir = filepath.Join(dir, gitDir)
	}

	if common, err := os.ReadFile(filepath.Join(gitDir, "commondir")); err == nil {
		commonDir := strings.TrimSpace(string(common))
		if !filepath.IsAbs(commonDir) {
			commonDir = filepath.Join(gitDir, commonDir)
		}
		gitDir = commonDir
	}

	return filepath.Join(gitDir, "config")
}

// record registers a discovered repository (or enriches an existing record)
// and builds the Discovered entry. Registry failures degrade to an
// unregistered entry rather than failing the scan.
func (s *Scanner) record(ctx context.Context, dir, configPath string) Discovered {
	name := strings.TrimSuffix(filepath.Base(dir), ".git")

	var meta HostingMeta
	if configPath != "" {
		meta = parseHostingMeta(configPath)
	}

	d := Discovered{
		Path:           dir,
		Name:           name,
		GitLabName:     meta.Name,
		GitLabFullPath: meta.FullPath,
	}

	existing, err := s.store.GetRepoByPath(ctx, dir)
	switch {
	case err == nil:
		d.AlreadyAdded = true
		d.RepoID = existing.ID
		// Enrich in place when metadata became newly resolvable
		if existing.GitLabFullPath == "" && meta.FullPath != "" {
			if err := s.store.UpdateRepoMeta(ctx, existing.ID, meta.Name, meta.FullPath); err != nil {
				logging.Warn("failed to update repository metadata",
					"path", dir, "error", err)
			}
		}
	case err == storage.ErrNotFound:
		repo := &models.RepoRecord{
			ID:             uuid.NewString(),
			Path:           dir,
			Name:           name,
			GitLabName:     meta.Name,
			GitLabFullPath: meta.FullPath,
			Active:         true,
		}
		insertErr := s.store.InsertRepo(ctx, repo)
		if insertErr == storage.ErrConflict {
			// Another scan won the insertion race; read its record
			if winner, lookupErr := s.store.GetRepoByPath(ctx, dir); lookupErr == nil {
				d.AlreadyAdded = true
				d.RepoID = winner.ID
				return d
			}
			logging.Warn("repository conflict lookup failed", "path", dir)
			return d
		}
		if insertErr != nil {
			logging.Warn("failed to register repository", "path", dir, "error", insertErr)
			return d
		}
		d.RepoID = repo.ID
	default:
		logging.Warn("registry lookup failed", "path", dir, "error", err)
	}

	return d
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
