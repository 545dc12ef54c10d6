package storage

import (
	"context"
	"errors"

	"github.com/commitlens/commitlens-go/internal/models"
)

// Common errors
var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

// Store defines the persistence interface for workspaces and the repository
// registry. Records are only ever soft-deactivated, never hard-deleted.
type Store interface {
	// Workspace operations
	SaveWorkspace(ctx context.Context, ws *models.Workspace) error
	GetWorkspace(ctx context.Context, id string) (*models.Workspace, error)
	GetWorkspaceByPath(ctx context.Context, rootPath string) (*models.Workspace, error)
	ListWorkspaces(ctx context.Context, activeOnly bool) ([]*models.Workspace, error)
	DeactivateWorkspace(ctx context.Context, id string) error

	// Repository registry operations. InsertRepo returns ErrConflict when the
	// path is already registered; callers fall back to GetRepoByPath.
	InsertRepo(ctx context.Context, repo *models.RepoRecord) error
	GetRepo(ctx context.Context, id string) (*models.RepoRecord, error)
	GetRepoByPath(ctx context.Context, path string) (*models.RepoRecord, error)
	ListRepos(ctx context.Context, activeOnly bool) ([]*models.RepoRecord, error)
	UpdateRepoMeta(ctx context.Context, id, gitlabName, gitlabFullPath string) error
	DeactivateRepo(ctx context.Context, id string) error

	// Close connection
	Close() error
}
