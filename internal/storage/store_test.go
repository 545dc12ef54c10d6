package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commitlens/commitlens-go/internal/models"
)

func TestWorkspaceUpsertByRootPath(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	first := &models.Workspace{ID: "ws-1", RootPath: "/w", Name: "one", Active: true}
	require.NoError(t, store.SaveWorkspace(ctx, first))

	// Saving a different id for the same root must reuse the existing row
	second := &models.Workspace{ID: "ws-2", RootPath: "/w", Name: "two", Active: true}
	require.NoError(t, store.SaveWorkspace(ctx, second))
	assert.Equal(t, "ws-1", second.ID)

	all, err := store.ListWorkspaces(ctx, false)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "two", all[0].Name)
}

func TestWorkspaceActiveFilter(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.SaveWorkspace(ctx, &models.Workspace{ID: "a", RootPath: "/a", Name: "a", Active: true}))
	require.NoError(t, store.SaveWorkspace(ctx, &models.Workspace{ID: "b", RootPath: "/b", Name: "b", Active: true}))
	require.NoError(t, store.DeactivateWorkspace(ctx, "b"))

	active, err := store.ListWorkspaces(ctx, true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "a", active[0].ID)

	assert.Equal(t, ErrNotFound, store.DeactivateWorkspace(ctx, "missing"))
}

func TestInsertRepoConflictOnPath(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.InsertRepo(ctx, &models.RepoRecord{ID: "r1", Path: "/w/a", Name: "a", Active: true}))

	err := store.InsertRepo(ctx, &models.RepoRecord{ID: "r2", Path: "/w/a", Name: "a", Active: true})
	assert.Equal(t, ErrConflict, err)

	// The losing writer falls back to a read-by-path lookup
	winner, err := store.GetRepoByPath(ctx, "/w/a")
	require.NoError(t, err)
	assert.Equal(t, "r1", winner.ID)
}

func TestUpdateRepoMeta(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.InsertRepo(ctx, &models.RepoRecord{ID: "r1", Path: "/w/a", Name: "a", Active: true}))
	require.NoError(t, store.UpdateRepoMeta(ctx, "r1", "proj", "group/proj"))

	repo, err := store.GetRepo(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "proj", repo.GitLabName)
	assert.Equal(t, "group/proj", repo.GitLabFullPath)

	assert.Equal(t, ErrNotFound, store.UpdateRepoMeta(ctx, "missing", "x", "y"))
}

func TestGetRepoNotFound(t *testing.T) {
	store := NewMemoryStore()

	_, err := store.GetRepo(context.Background(), "nope")
	assert.Equal(t, ErrNotFound, err)

	_, err = store.GetRepoByPath(context.Background(), "/nope")
	assert.Equal(t, ErrNotFound, err)
}

func TestRepoRecordNamed(t *testing.T) {
	assert.True(t, (&models.RepoRecord{Name: "a"}).Named())
	assert.True(t, (&models.RepoRecord{Name: "a", GitLabFullPath: "g/a", GitLabName: "a"}).Named())
	assert.False(t, (&models.RepoRecord{Name: "a", GitLabFullPath: "g/sub"}).Named())
}
