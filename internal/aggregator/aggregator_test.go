package aggregator

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commitlens/commitlens-go/internal/cache"
	"github.com/commitlens/commitlens-go/internal/discovery"
	clerrors "github.com/commitlens/commitlens-go/internal/errors"
	"github.com/commitlens/commitlens-go/internal/gitcli"
	"github.com/commitlens/commitlens-go/internal/models"
	"github.com/commitlens/commitlens-go/internal/storage"
)

type fakeScanner struct {
	results []discovery.Discovered
}

func (f *fakeScanner) Scan(ctx context.Context, root string, opts discovery.Options) ([]discovery.Discovered, error) {
	out := make([]discovery.Discovered, len(f.results))
	copy(out, f.results)
	return out, nil
}

type fakeGit struct {
	mu       sync.Mutex
	commits  map[string][]models.Commit
	changes  map[string]*models.CodeChange // by hash
	lastOpts gitcli.LogOptions
}

func (f *fakeGit) VerifyRepository(ctx context.Context, repoPath string) error {
	return nil
}

func (f *fakeGit) Log(ctx context.Context, repoPath string, opts gitcli.LogOptions) ([]models.Commit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastOpts = opts

	var out []models.Commit
	for _, c := range f.commits[repoPath] {
		if !opts.Since.IsZero() && c.Timestamp.Before(opts.Since) {
			continue
		}
		if !opts.Until.IsZero() && c.Timestamp.After(opts.Until) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeGit) NameRev(ctx context.Context, repoPath, hash string) (string, error) {
	return "", nil
}

func (f *fakeGit) CommitChange(ctx context.Context, repoPath, hash string) (*models.CodeChange, error) {
	if change, ok := f.changes[hash]; ok {
		copied := *change
		return &copied, nil
	}
	return nil, fmt.Errorf("no commit found for %s in %s", hash, repoPath)
}

func (f *fakeGit) FileDiff(ctx context.Context, repoPath, hash, filePath string) (string, error) {
	return "diff --git a/" + filePath + " b/" + filePath, nil
}

type fixture struct {
	agg   *Aggregator
	store *storage.MemoryStore
	git   *fakeGit
	now   time.Time
}

func newFixture(t *testing.T, repos []discovery.Discovered, git *fakeGit) *fixture {
	t.Helper()

	store := storage.NewMemoryStore()
	require.NoError(t, store.SaveWorkspace(context.Background(), &models.Workspace{
		ID: "ws-1", RootPath: "/w", Name: "w", Active: true,
	}))

	now := time.Date(2024, 3, 25, 12, 0, 0, 0, time.Local)
	clock := func() time.Time { return now }

	repoCache := cache.NewRepoCache(&fakeScanner{results: repos}, store, time.Minute)
	months := cache.NewMonthCache(store, repoCache, git, cache.MonthCacheOptions{
		TTL:         time.Minute,
		Concurrency: 4,
		Clock:       clock,
	})

	agg := New(store, repoCache, months, git, Options{
		Concurrency:    4,
		LookbackMonths: 6,
		Clock:          clock,
	})

	return &fixture{agg: agg, store: store, git: git, now: now}
}

func commit(hash, author, email string, ts time.Time) models.Commit {
	return models.Commit{Hash: hash, Author: author, AuthorEmail: email, Timestamp: ts}
}

func TestCommitsAuthorPattern(t *testing.T) {
	git := &fakeGit{commits: map[string][]models.Commit{
		"/w/a": {
			commit("a1", "Alice Smith", "alice@example.com", time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)),
			commit("a2", "Bob Jones", "bob@example.com", time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC)),
		},
		"/w/b": {
			commit("b1", "Carol White", "carol@example.com", time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)),
		},
	}}
	fx := newFixture(t, []discovery.Discovered{
		{Path: "/w/a", Name: "a"},
		{Path: "/w/b", Name: "b"},
	}, git)

	commits, err := fx.agg.Commits(context.Background(), CommitQuery{AuthorPattern: "alice|bob"})
	require.NoError(t, err)

	require.Len(t, commits, 2)
	assert.Equal(t, "a2", commits[0].Hash)
	assert.Equal(t, "a1", commits[1].Hash)
}

func TestCommitsInvalidAuthorPattern(t *testing.T) {
	fx := newFixture(t, nil, &fakeGit{})

	_, err := fx.agg.Commits(context.Background(), CommitQuery{AuthorPattern: "("})
	require.Error(t, err)
	assert.Equal(t, clerrors.ErrorTypeValidation, clerrors.GetType(err))
}

func TestCommitsDateBoundsInclusive(t *testing.T) {
	since := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	until := time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC)

	git := &fakeGit{commits: map[string][]models.Commit{
		"/w/a": {
			commit("before", "A", "a@x.io", since.Add(-time.Second)),
			commit("start", "A", "a@x.io", since),
			commit("end", "A", "a@x.io", until),
			commit("after", "A", "a@x.io", until.Add(time.Second)),
		},
	}}
	fx := newFixture(t, []discovery.Discovered{{Path: "/w/a", Name: "a"}}, git)

	commits, err := fx.agg.Commits(context.Background(), CommitQuery{Since: since, Until: until})
	require.NoError(t, err)

	require.Len(t, commits, 2)
	for _, c := range commits {
		assert.False(t, c.Timestamp.Before(since))
		assert.False(t, c.Timestamp.After(until))
	}
}

func TestCommitsLimit(t *testing.T) {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	var list []models.Commit
	for i := 0; i < 10; i++ {
		list = append(list, commit(fmt.Sprintf("c%02d", i), "A", "a@x.io", base.Add(time.Duration(i)*time.Hour)))
	}
	git := &fakeGit{commits: map[string][]models.Commit{"/w/a": list}}
	fx := newFixture(t, []discovery.Discovered{{Path: "/w/a", Name: "a"}}, git)

	commits, err := fx.agg.Commits(context.Background(), CommitQuery{Limit: 3})
	require.NoError(t, err)

	require.Len(t, commits, 3)
	assert.Equal(t, "c09", commits[0].Hash) // newest first
}

func TestCommitsCacheExcludesUnnamed(t *testing.T) {
	git := &fakeGit{commits: map[string][]models.Commit{
		"/w/named":   {commit("n1", "A", "a@x.io", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC))},
		"/w/unnamed": {commit("u1", "A", "a@x.io", time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC))},
	}}
	repos := []discovery.Discovered{
		{Path: "/w/named", Name: "named"},
		{Path: "/w/unnamed", Name: "unnamed", GitLabFullPath: "g/sub"},
	}
	fx := newFixture(t, repos, git)

	cached, err := fx.agg.Commits(context.Background(), CommitQuery{})
	require.NoError(t, err)
	require.Len(t, cached, 1)
	assert.Equal(t, "n1", cached[0].Hash)

	all, err := fx.agg.Commits(context.Background(), CommitQuery{IncludeUnnamed: true})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestCommitsDirectPathPushesPatternDown(t *testing.T) {
	git := &fakeGit{commits: map[string][]models.Commit{}}
	fx := newFixture(t, []discovery.Discovered{{Path: "/w/a", Name: "a"}}, git)

	_, err := fx.agg.Commits(context.Background(), CommitQuery{
		AuthorPattern: "alice",
		NoCache:       true,
	})
	require.NoError(t, err)

	assert.Equal(t, "alice", git.lastOpts.Author)
	assert.True(t, git.lastOpts.AllBranches)
}

func TestCommitsBranchScopedBypassesCache(t *testing.T) {
	git := &fakeGit{commits: map[string][]models.Commit{}}
	fx := newFixture(t, []discovery.Discovered{{Path: "/w/a", Name: "a"}}, git)

	_, err := fx.agg.Commits(context.Background(), CommitQuery{Branch: "develop"})
	require.NoError(t, err)

	assert.Equal(t, "develop", git.lastOpts.Branch)
	assert.False(t, git.lastOpts.AllBranches)
}

func TestAuthors(t *testing.T) {
	git := &fakeGit{commits: map[string][]models.Commit{
		"/w/a": {
			commit("a1", "Alice Smith", "alice@example.com", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)),
			commit("a2", "Alice S.", "ALICE@example.com", time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC)),
		},
		"/w/b": {
			commit("b1", "Bob Jones", "bob@example.com", time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)),
		},
	}}
	fx := newFixture(t, []discovery.Discovered{
		{Path: "/w/a", Name: "a"},
		{Path: "/w/b", Name: "b"},
	}, git)

	authors, err := fx.agg.Authors(context.Background(), time.Time{}, time.Time{}, false)
	require.NoError(t, err)

	require.Len(t, authors, 2)
	assert.Equal(t, 2, authors[0].Commits)
	assert.Equal(t, "Alice S.", authors[0].Name) // latest spelling wins
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), authors[0].FirstCommit)
	assert.Equal(t, time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC), authors[0].LastCommit)
	assert.Equal(t, "bob@example.com", authors[1].Email)
}

func TestCommitChangeValidation(t *testing.T) {
	fx := newFixture(t, nil, &fakeGit{})

	_, err := fx.agg.CommitChange(context.Background(), "", "abc")
	assert.Equal(t, clerrors.ErrorTypeValidation, clerrors.GetType(err))

	_, err = fx.agg.CommitChange(context.Background(), "missing", "abc")
	assert.True(t, clerrors.IsNotFound(err))
}

func TestCommitChange(t *testing.T) {
	git := &fakeGit{changes: map[string]*models.CodeChange{
		"abc": {
			Commit: models.Commit{Hash: "abc"},
			Files:  []models.FileChange{{Path: "main.go", Additions: 5, Deletions: 2}},
		},
	}}
	fx := newFixture(t, nil, git)

	require.NoError(t, fx.store.InsertRepo(context.Background(), &models.RepoRecord{
		ID: "id-a", Path: "/w/a", Name: "a", Active: true,
	}))

	change, err := fx.agg.CommitChange(context.Background(), "id-a", "abc")
	require.NoError(t, err)

	assert.Equal(t, "abc", change.Hash)
	assert.Equal(t, "id-a", change.RepoID)
	assert.Equal(t, "a", change.RepoName)
}

func TestCodeChangesDropsFailures(t *testing.T) {
	git := &fakeGit{
		commits: map[string][]models.Commit{
			"/w/a": {
				commit("good", "A", "a@x.io", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)),
				commit("bad", "A", "a@x.io", time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC)),
			},
		},
		changes: map[string]*models.CodeChange{
			"good": {Commit: models.Commit{Hash: "good"}},
		},
	}
	fx := newFixture(t, []discovery.Discovered{{Path: "/w/a", Name: "a"}}, git)

	changes, err := fx.agg.CodeChanges(context.Background(), CommitQuery{})
	require.NoError(t, err)

	require.Len(t, changes, 1)
	assert.Equal(t, "good", changes[0].Hash)
}

func TestPaginateReassemblesExactly(t *testing.T) {
	var items []int
	for i := 0; i < 23; i++ {
		items = append(items, i)
	}

	var reassembled []int
	page := 1
	for {
		slice, meta := Paginate(items, page, 5)
		assert.Equal(t, 23, meta.Total)
		assert.Equal(t, 5, meta.TotalPages)
		if len(slice) == 0 {
			break
		}
		reassembled = append(reassembled, slice...)
		page++
	}

	assert.Equal(t, items, reassembled)
	assert.Equal(t, 6, page)
}

func TestPaginateOutOfRange(t *testing.T) {
	slice, meta := Paginate([]int{1, 2, 3}, 9, 2)
	assert.Empty(t, slice)
	assert.Equal(t, 3, meta.Total)
	assert.Equal(t, 2, meta.TotalPages)
}
