// Package aggregator answers analytics queries over the repository fleet. It
// merges month-cache buckets (or queries repositories directly when the cache
// is bypassed), applies author and date filters, and paginates in memory.
package aggregator

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/commitlens/commitlens-go/internal/cache"
	"github.com/commitlens/commitlens-go/internal/discovery"
	clerrors "github.com/commitlens/commitlens-go/internal/errors"
	"github.com/commitlens/commitlens-go/internal/fanout"
	"github.com/commitlens/commitlens-go/internal/gitcli"
	"github.com/commitlens/commitlens-go/internal/logging"
	"github.com/commitlens/commitlens-go/internal/models"
	"github.com/commitlens/commitlens-go/internal/storage"
)

// Git is the version-control dependency of the aggregator
type Git interface {
	VerifyRepository(ctx context.Context, repoPath string) error
	Log(ctx context.Context, repoPath string, opts gitcli.LogOptions) ([]models.Commit, error)
	CommitChange(ctx context.Context, repoPath, hash string) (*models.CodeChange, error)
	FileDiff(ctx context.Context, repoPath, hash, filePath string) (string, error)
}

// Options configures an Aggregator
type Options struct {
	Concurrency    int
	LookbackMonths int // default span when a query has no start date
	ScanOptions    discovery.Options
	Clock          func() time.Time // nil means time.Now
}

// CommitQuery narrows a commit aggregation request. Zero-value times mean
// unbounded on that side; both bounds are inclusive.
type CommitQuery struct {
	AuthorPattern  string
	Since          time.Time
	Until          time.Time
	Branch         string
	Limit          int
	NoCache        bool
	IncludeUnnamed bool
}

// Aggregator merges commit history across every repository in every active
// workspace
type Aggregator struct {
	store  storage.Store
	repos  *cache.RepoCache
	months *cache.MonthCache
	git    Git
	opts   Options
	now    func() time.Time
}

// New builds an Aggregator
func New(store storage.Store, repos *cache.RepoCache, months *cache.MonthCache, git Git, opts Options) *Aggregator {
	now := opts.Clock
	if now == nil {
		now = time.Now
	}
	return &Aggregator{
		store:  store,
		repos:  repos,
		months: months,
		git:    git,
		opts:   opts,
		now:    now,
	}
}

// Commits returns commits matching the query, sorted newest-first. Cached
// month buckets serve the common case; NoCache, IncludeUnnamed, and
// branch-scoped queries go straight to the repositories, since the cache only
// holds all-branch history for named repositories.
func (a *Aggregator) Commits(ctx context.Context, q CommitQuery) ([]models.Commit, error) {
	match, err := compileAuthorPattern(q.AuthorPattern)
	if err != nil {
		return nil, err
	}

	var commits []models.Commit
	if q.NoCache || q.IncludeUnnamed || q.Branch != "" {
		commits, err = a.directCommits(ctx, q)
	} else {
		commits, err = a.cachedCommits(ctx, q, match)
	}
	if err != nil {
		return nil, err
	}

	sortCommitsDesc(commits)
	if q.Limit > 0 && len(commits) > q.Limit {
		commits = commits[:q.Limit]
	}
	return commits, nil
}

// cachedCommits serves a query from month buckets. Buckets are a superset
// window, so every candidate is re-filtered against the exact bounds, the
// current repository set, and the author pattern.
func (a *Aggregator) cachedCommits(ctx context.Context, q CommitQuery, match func(models.Commit) bool) ([]models.Commit, error) {
	now := a.now()

	since := q.Since
	if since.IsZero() {
		since = now.AddDate(0, -a.opts.LookbackMonths, 0)
	}
	until := q.Until
	if until.IsZero() {
		until = now
	}

	sources, err := a.resolveSources(ctx, false)
	if err != nil {
		return nil, err
	}
	member := make(map[string]struct{}, len(sources))
	for _, src := range sources {
		member[src.path] = struct{}{}
	}

	currentKey := cache.MonthKey(now)
	var commits []models.Commit
	for _, key := range monthSpan(since, until, now) {
		bucket, err := a.months.GetOrRefresh(ctx, key, key == currentKey)
		if err != nil {
			return nil, err
		}
		for _, c := range bucket {
			if _, ok := member[c.RepoPath]; !ok {
				continue
			}
			if !q.Since.IsZero() && c.Timestamp.Before(q.Since) {
				continue
			}
			if !q.Until.IsZero() && c.Timestamp.After(q.Until) {
				continue
			}
			if !match(c) {
				continue
			}
			commits = append(commits, c)
		}
	}
	return commits, nil
}

// directCommits fans out over every matching repository for the full
// requested range. The author pattern is pushed down to the log query.
func (a *Aggregator) directCommits(ctx context.Context, q CommitQuery) ([]models.Commit, error) {
	sources, err := a.resolveSources(ctx, q.IncludeUnnamed)
	if err != nil {
		return nil, err
	}

	tasks := make([]fanout.Task[[]models.Commit], len(sources))
	for i, src := range sources {
		tasks[i] = func(ctx context.Context) ([]models.Commit, error) {
			commits, err := a.git.Log(ctx, src.path, gitcli.LogOptions{
				Author:      q.AuthorPattern,
				Since:       q.Since,
				Until:       q.Until,
				Branch:      q.Branch,
				AllBranches: q.Branch == "",
			})
			if err != nil {
				return nil, err
			}
			for j := range commits {
				commits[j].RepoID = src.id
				commits[j].RepoName = src.name
				commits[j].RepoPath = src.path
			}
			return commits, nil
		}
	}

	results := fanout.Run(ctx, tasks, a.opts.Concurrency)

	var commits []models.Commit
	for i, res := range results {
		if res.Err != nil {
			logging.Warn("skipping repository in commit query",
				"repo", sources[i].path, "error", res.Err)
			continue
		}
		commits = append(commits, res.Value...)
	}
	return commits, nil
}

// Authors aggregates commit activity per author across the fleet within the
// given bounds, sorted by commit count descending. Authors are identified by
// case-insensitive email.
func (a *Aggregator) Authors(ctx context.Context, since, until time.Time, includeUnnamed bool) ([]models.AuthorStat, error) {
	sources, err := a.resolveSources(ctx, includeUnnamed)
	if err != nil {
		return nil, err
	}

	tasks := make([]fanout.Task[[]models.Commit], len(sources))
	for i, src := range sources {
		tasks[i] = func(ctx context.Context) ([]models.Commit, error) {
			return a.git.Log(ctx, src.path, gitcli.LogOptions{
				Since:       since,
				Until:       until,
				AllBranches: true,
			})
		}
	}

	results := fanout.Run(ctx, tasks, a.opts.Concurrency)

	stats := make(map[string]*models.AuthorStat)
	for i, res := range results {
		if res.Err != nil {
			logging.Warn("skipping repository in author extraction",
				"repo", sources[i].path, "error", res.Err)
			continue
		}
		for _, c := range res.Value {
			key := strings.ToLower(c.AuthorEmail)
			stat, ok := stats[key]
			if !ok {
				stat = &models.AuthorStat{
					Name:        c.Author,
					Email:       c.AuthorEmail,
					FirstCommit: c.Timestamp,
					LastCommit:  c.Timestamp,
				}
				stats[key] = stat
			}
			stat.Commits++
			if c.Timestamp.Before(stat.FirstCommit) {
				stat.FirstCommit = c.Timestamp
			}
			if c.Timestamp.After(stat.LastCommit) {
				stat.LastCommit = c.Timestamp
				stat.Name = c.Author // prefer the most recent spelling
			}
		}
	}

	out := make([]models.AuthorStat, 0, len(stats))
	for _, stat := range stats {
		out = append(out, *stat)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Commits != out[j].Commits {
			return out[i].Commits > out[j].Commits
		}
		return out[i].Email < out[j].Email
	})
	return out, nil
}

// CommitChange returns one commit's metadata and per-file stats from a
// registered repository
func (a *Aggregator) CommitChange(ctx context.Context, repoID, hash string) (*models.CodeChange, error) {
	if repoID == "" || hash == "" {
		return nil, clerrors.ValidationErrorf("repository id and commit hash are required")
	}

	repo, err := a.store.GetRepo(ctx, repoID)
	if err == storage.ErrNotFound {
		return nil, clerrors.NotFoundf("repository %s not found", repoID)
	}
	if err != nil {
		return nil, clerrors.DatabaseError(err, "looking up repository")
	}

	if err := a.git.VerifyRepository(ctx, repo.Path); err != nil {
		return nil, clerrors.Inaccessiblef("repository %s is not accessible at %s", repoID, repo.Path)
	}

	change, err := a.git.CommitChange(ctx, repo.Path, hash)
	if err != nil {
		return nil, clerrors.PartialScanError(err, "fetching commit change")
	}
	change.RepoID = repo.ID
	change.RepoName = repo.DisplayName()
	change.RepoPath = repo.Path
	return change, nil
}

// CodeChanges resolves the query's commits and fetches per-file stats for
// each, concurrently. A commit whose stats cannot be fetched is logged and
// dropped.
func (a *Aggregator) CodeChanges(ctx context.Context, q CommitQuery) ([]models.CodeChange, error) {
	commits, err := a.Commits(ctx, q)
	if err != nil {
		return nil, err
	}

	tasks := make([]fanout.Task[*models.CodeChange], len(commits))
	for i, c := range commits {
		tasks[i] = func(ctx context.Context) (*models.CodeChange, error) {
			change, err := a.git.CommitChange(ctx, c.RepoPath, c.Hash)
			if err != nil {
				return nil, err
			}
			change.RepoID = c.RepoID
			change.RepoName = c.RepoName
			change.RepoPath = c.RepoPath
			change.Branch = c.Branch
			return change, nil
		}
	}

	results := fanout.Run(ctx, tasks, a.opts.Concurrency)

	changes := make([]models.CodeChange, 0, len(commits))
	for i, res := range results {
		if res.Err != nil {
			logging.Warn("skipping commit in code-change extraction",
				"hash", commits[i].Hash, "repo", commits[i].RepoPath, "error", res.Err)
			continue
		}
		changes = append(changes, *res.Value)
	}
	return changes, nil
}

// FileDiff returns the diff of one file in one commit of a registered
// repository
func (a *Aggregator) FileDiff(ctx context.Context, repoID, hash, filePath string) (string, error) {
	if repoID == "" || hash == "" || filePath == "" {
		return "", clerrors.ValidationErrorf("repository id, commit hash and file path are required")
	}

	repo, err := a.store.GetRepo(ctx, repoID)
	if err == storage.ErrNotFound {
		return "", clerrors.NotFoundf("repository %s not found", repoID)
	}
	if err != nil {
		return "", clerrors.DatabaseError(err, "looking up repository")
	}

	return a.git.FileDiff(ctx, repo.Path, hash, filePath)
}

type repoSource struct {
	id   string
	name string
	path string
}

// resolveSources lists the repositories of every active workspace through
// the repository cache. Unless includeUnnamed is set, repositories carrying
// hosting metadata without a resolvable name are excluded. Workspaces that
// fail to resolve are skipped with a warning.
func (a *Aggregator) resolveSources(ctx context.Context, includeUnnamed bool) ([]repoSource, error) {
	workspaces, err := a.store.ListWorkspaces(ctx, true)
	if err != nil {
		return nil, clerrors.DatabaseError(err, "listing workspaces")
	}

	seen := make(map[string]struct{})
	var sources []repoSource
	for _, ws := range workspaces {
		repos, err := a.repos.Get(ctx, ws.RootPath, a.opts.ScanOptions)
		if err != nil {
			logging.Warn("skipping workspace in query",
				"workspace", ws.RootPath, "error", err)
			continue
		}
		for _, repo := range repos {
			if !includeUnnamed && repo.GitLabFullPath != "" && repo.GitLabName == "" {
				continue
			}
			if _, dup := seen[repo.Path]; dup {
				continue
			}
			seen[repo.Path] = struct{}{}

			name := repo.GitLabName
			if name == "" {
				name = repo.Name
			}
			sources = append(sources, repoSource{id: repo.RepoID, name: name, path: repo.Path})
		}
	}
	return sources, nil
}

// compileAuthorPattern builds a case-insensitive matcher over author name or
// email. An empty pattern matches everything.
func compileAuthorPattern(pattern string) (func(models.Commit) bool, error) {
	if pattern == "" {
		return func(models.Commit) bool { return true }, nil
	}

	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, clerrors.ValidationErrorf("invalid author pattern %q: %v", pattern, err)
	}
	return func(c models.Commit) bool {
		return re.MatchString(c.Author) || re.MatchString(c.AuthorEmail)
	}, nil
}

// monthSpan lists the month keys covering [since, until], always including
// the current month
func monthSpan(since, until, now time.Time) []string {
	start := time.Date(since.Year(), since.Month(), 1, 0, 0, 0, 0, since.Location())
	end := time.Date(until.Year(), until.Month(), 1, 0, 0, 0, 0, until.Location())

	var keys []string
	seen := make(map[string]struct{})
	for m := start; !m.After(end); m = m.AddDate(0, 1, 0) {
		key := cache.MonthKey(m)
		keys = append(keys, key)
		seen[key] = struct{}{}
	}

	current := cache.MonthKey(now)
	if _, ok := seen[current]; !ok {
		keys = append(keys, current)
	}
	return keys
}

// sortCommitsDesc orders newest-first, hash as a stable tie-break
func sortCommitsDesc(commits []models.Commit) {
	sort.Slice(commits, func(i, j int) bool {
		if !commits[i].Timestamp.Equal(commits[j].Timestamp) {
			return commits[i].Timestamp.After(commits[j].Timestamp)
		}
		return commits[i].Hash < commits[j].Hash
	})
}

// Paginate slices a sorted result into one page and its metadata. Pages are
// 1-based; an out-of-range page yields an empty slice with intact metadata.
func Paginate[T any](items []T, page, limit int) ([]T, models.Page) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}

	total := len(items)
	totalPages := (total + limit - 1) / limit

	start := (page - 1) * limit
	if start >= total {
		return []T{}, models.Page{Page: page, Limit: limit, Total: total, TotalPages: totalPages}
	}
	end := start + limit
	if end > total {
		end = total
	}
	return items[start:end], models.Page{Page: page, Limit: limit, Total: total, TotalPages: totalPages}
}
