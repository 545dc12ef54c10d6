package cache

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/commitlens/commitlens-go/internal/discovery"
	clerrors "github.com/commitlens/commitlens-go/internal/errors"
	"github.com/commitlens/commitlens-go/internal/fanout"
	"github.com/commitlens/commitlens-go/internal/gitcli"
	"github.com/commitlens/commitlens-go/internal/logging"
	"github.com/commitlens/commitlens-go/internal/models"
	"github.com/commitlens/commitlens-go/internal/storage"
)

// monthLayout is the bucket key format, e.g. "2024-03"
const monthLayout = "2006-01"

// GitLog is the version-control dependency of the month cache
type GitLog interface {
	Log(ctx context.Context, repoPath string, opts gitcli.LogOptions) ([]models.Commit, error)
	NameRev(ctx context.Context, repoPath, hash string) (string, error)
}

// bucket is one built calendar month. Immutable once stored; a rebuild
// replaces the whole value.
type bucket struct {
	commits   []models.Commit
	builtAt   time.Time
	expiresAt time.Time
	sizeBytes int64
}

// BucketStat describes one month bucket for diagnostics
type BucketStat struct {
	Month     string    `json:"month"`
	Commits   int       `json:"commits"`
	SizeBytes int64     `json:"size_bytes"`
	BuiltAt   time.Time `json:"built_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// MonthCacheOptions configures a MonthCache
type MonthCacheOptions struct {
	TTL         time.Duration
	Concurrency int
	ScanOptions discovery.Options
	Clock       func() time.Time // nil means time.Now
}

// MonthCache partitions commit history across all workspaces into calendar
// month buckets. Past months are effectively immutable, so a built bucket is
// served until its TTL lapses; the current month has its expiry pushed
// forward on every fresh access instead.
//
// There is deliberately no per-key build lock: two concurrent misses on the
// same month both rebuild, and the loser's write overwrites an equally valid
// fresh bucket. Rebuilds are idempotent over (month, repository state).
type MonthCache struct {
	mu      sync.RWMutex
	buckets map[string]*bucket

	store storage.Store
	repos *RepoCache
	git   GitLog
	opts  MonthCacheOptions
	now   func() time.Time
}

// NewMonthCache builds a month cache over the given store, repository cache
// and git client
func NewMonthCache(store storage.Store, repos *RepoCache, git GitLog, opts MonthCacheOptions) *MonthCache {
	now := opts.Clock
	if now == nil {
		now = time.Now
	}
	return &MonthCache{
		buckets: make(map[string]*bucket),
		store:   store,
		repos:   repos,
		git:     git,
		opts:    opts,
		now:     now,
	}
}

// MonthKey formats a time as a bucket key
func MonthKey(t time.Time) string {
	return t.Format(monthLayout)
}

// MonthBounds returns the inclusive first instant and last instant of a
// month key's calendar month.
func MonthBounds(monthKey string) (time.Time, time.Time, error) {
	start, err := time.ParseInLocation(monthLayout, monthKey, time.Local)
	if err != nil {
		return time.Time{}, time.Time{}, clerrors.ValidationErrorf("invalid month key %q", monthKey)
	}
	end := start.AddDate(0, 1, 0).Add(-time.Second)
	return start, end, nil
}

// GetOrRefresh returns the month's commits, rebuilding the bucket when absent
// or expired. isCurrent marks the calendar month still being written to: a
// fresh hit on it extends the expiry (keep-warm) so the hottest bucket never
// fully lapses while queried.
func (mc *MonthCache) GetOrRefresh(ctx context.Context, monthKey string, isCurrent bool) ([]models.Commit, error) {
	now := mc.now()

	mc.mu.Lock()
	if b, ok := mc.buckets[monthKey]; ok && now.Before(b.expiresAt) {
		if isCurrent {
			b.expiresAt = now.Add(mc.opts.TTL)
		}
		commits := b.commits
		mc.mu.Unlock()
		return commits, nil
	}
	mc.mu.Unlock()

	// Build outside the lock; concurrent misses race, last writer wins
	commits, err := mc.build(ctx, monthKey)
	if err != nil {
		return nil, err
	}

	built := mc.now()
	b := &bucket{
		commits:   commits,
		builtAt:   built,
		expiresAt: built.Add(mc.opts.TTL),
		sizeBytes: approximateSize(commits),
	}

	mc.mu.Lock()
	mc.buckets[monthKey] = b
	mc.mu.Unlock()

	logging.Debug("month bucket built",
		"month", monthKey, "commits", len(commits), "size_bytes", b.sizeBytes)
	return commits, nil
}

// Invalidate drops one month bucket
func (mc *MonthCache) Invalidate(monthKey string) {
	mc.mu.Lock()
	delete(mc.buckets, monthKey)
	mc.mu.Unlock()
}

// InvalidateAll drops every bucket
func (mc *MonthCache) InvalidateAll() {
	mc.mu.Lock()
	mc.buckets = make(map[string]*bucket)
	mc.mu.Unlock()
}

// Stats reports per-bucket diagnostics, sorted by month
func (mc *MonthCache) Stats() []BucketStat {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	stats := make([]BucketStat, 0, len(mc.buckets))
	for month, b := range mc.buckets {
		stats = append(stats, BucketStat{
			Month:     month,
			Commits:   len(b.commits),
			SizeBytes: b.sizeBytes,
			BuiltAt:   b.builtAt,
			ExpiresAt: b.expiresAt,
		})
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Month < stats[j].Month })
	return stats
}

// repoSource is one repository contributing to a month build
type repoSource struct {
	id   string
	name string
	path string
}

// build assembles a month's commit list from every named repository in every
// active workspace. Per-workspace and per-repository failures are logged and
// contribute nothing; only a store failure aborts the build.
func (mc *MonthCache) build(ctx context.Context, monthKey string) ([]models.Commit, error) {
	start, end, err := MonthBounds(monthKey)
	if err != nil {
		return nil, err
	}

	workspaces, err := mc.store.ListWorkspaces(ctx, true)
	if err != nil {
		return nil, clerrors.CacheBuildError(err, "listing workspaces")
	}

	sources := mc.collectSources(ctx, workspaces)
	if len(sources) == 0 {
		return []models.Commit{}, nil
	}

	tasks := make([]fanout.Task[[]models.Commit], len(sources))
	for i, src := range sources {
		tasks[i] = func(ctx context.Context) ([]models.Commit, error) {
			return mc.repoCommits(ctx, src, start, end)
		}
	}

	results := fanout.Run(ctx, tasks, mc.opts.Concurrency)

	var commits []models.Commit
	for i, res := range results {
		if res.Err != nil {
			logging.Warn("skipping repository in month build",
				"month", monthKey, "repo", sources[i].path, "error", res.Err)
			continue
		}
		commits = append(commits, res.Value...)
	}

	sortCommitsDesc(commits)
	return commits, nil
}

// collectSources resolves every active workspace's named repositories through
// the repository cache, deduplicated by path.
func (mc *MonthCache) collectSources(ctx context.Context, workspaces []*models.Workspace) []repoSource {
	seen := make(map[string]struct{})
	var sources []repoSource

	for _, ws := range workspaces {
		repos, err := mc.repos.Get(ctx, ws.RootPath, mc.opts.ScanOptions)
		if err != nil {
			logging.Warn("skipping workspace in month build",
				"workspace", ws.RootPath, "error", err)
			continue
		}

		for _, repo := range repos {
			// Hosting metadata without a resolvable name excludes the
			// repository from cached aggregation
			if repo.GitLabFullPath != "" && repo.GitLabName == "" {
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
			sources = append(sources, repoSource{
				id:   repo.RepoID,
				name: name,
				path: repo.Path,
			})
		}
	}

	return sources
}

// repoCommits runs the month-scoped log query for one repository and stamps
// each commit with its owning repository identity. Commits whose decoration
// yielded no branch fall back to the reachability query.
func (mc *MonthCache) repoCommits(ctx context.Context, src repoSource, start, end time.Time) ([]models.Commit, error) {
	commits, err := mc.git.Log(ctx, src.path, gitcli.LogOptions{
		Since:       start,
		Until:       end,
		AllBranches: true,
	})
	if err != nil {
		return nil, err
	}

	for i := range commits {
		commits[i].RepoID = src.id
		commits[i].RepoName = src.name
		commits[i].RepoPath = src.path

		if commits[i].Branch == "" {
			name, err := mc.git.NameRev(ctx, src.path, commits[i].Hash)
			if err == nil {
				commits[i].Branch = name
			}
		}
	}

	return commits, nil
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

// approximateSize estimates the serialized footprint of a bucket for
// diagnostics. Marshalling failures count as zero.
func approximateSize(commits []models.Commit) int64 {
	data, err := json.Marshal(commits)
	if err != nil {
		return 0
	}
	return int64(len(data))
}
