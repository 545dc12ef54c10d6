// Package workspace manages registered root folders: adding them, rescanning
// them for repositories, and retiring them.
package workspace

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/commitlens/commitlens-go/internal/cache"
	"github.com/commitlens/commitlens-go/internal/discovery"
	clerrors "github.com/commitlens/commitlens-go/internal/errors"
	"github.com/commitlens/commitlens-go/internal/logging"
	"github.com/commitlens/commitlens-go/internal/models"
	"github.com/commitlens/commitlens-go/internal/storage"
)

// Scanner is the discovery dependency of the service
type Scanner interface {
	Scan(ctx context.Context, root string, opts discovery.Options) ([]discovery.Discovered, error)
}

// Service registers workspaces and keeps their repository counts current
type Service struct {
	store    storage.Store
	scanner  Scanner
	repos    *cache.RepoCache
	scanOpts discovery.Options
}

// NewService builds a workspace service. repos may be nil when no cache
// invalidation is wanted.
func NewService(store storage.Store, scanner Scanner, repos *cache.RepoCache, scanOpts discovery.Options) *Service {
	return &Service{
		store:    store,
		scanner:  scanner,
		repos:    repos,
		scanOpts: scanOpts,
	}
}

// Add registers rootPath as a workspace and runs an initial scan. Re-adding
// an existing root reactivates and rescans it. An empty name defaults to the
// folder name.
func (s *Service) Add(ctx context.Context, rootPath, name string) (*models.Workspace, []discovery.Discovered, error) {
	if rootPath == "" {
		return nil, nil, clerrors.ValidationErrorf("workspace root path is required")
	}

	absRoot, err := filepath.Abs(rootPath)
	if err != nil {
		return nil, nil, clerrors.ValidationErrorf("invalid root path %q: %v", rootPath, err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, nil, clerrors.Inaccessiblef("workspace root %s is not accessible", absRoot)
	}
	if !info.IsDir() {
		return nil, nil, clerrors.ValidationErrorf("workspace root %s is not a directory", absRoot)
	}

	if name == "" {
		name = filepath.Base(absRoot)
	}

	ws, err := s.store.GetWorkspaceByPath(ctx, absRoot)
	switch {
	case err == nil:
		ws.Name = name
		ws.Active = true
	case err == storage.ErrNotFound:
		ws = &models.Workspace{
			ID:       uuid.NewString(),
			RootPath: absRoot,
			Name:     name,
			Active:   true,
		}
	default:
		return nil, nil, clerrors.DatabaseError(err, "looking up workspace")
	}

	found, err := s.scan(ctx, ws)
	if err != nil {
		return nil, nil, err
	}
	return ws, found, nil
}

// Rescan re-runs discovery for a workspace and refreshes its repository
// count and scan timestamp
func (s *Service) Rescan(ctx context.Context, id string) (*models.Workspace, []discovery.Discovered, error) {
	ws, err := s.get(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	found, err := s.scan(ctx, ws)
	if err != nil {
		return nil, nil, err
	}
	return ws, found, nil
}

// Remove deactivates a workspace. Its repositories stay registered; they
// simply stop contributing to aggregation once no active workspace covers
// them.
func (s *Service) Remove(ctx context.Context, id string) error {
	ws, err := s.get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.store.DeactivateWorkspace(ctx, ws.ID); err != nil {
		return clerrors.DatabaseError(err, "deactivating workspace")
	}
	if s.repos != nil {
		s.repos.Invalidate(ws.RootPath)
	}

	logging.Info("workspace deactivated", "id", ws.ID, "root", ws.RootPath)
	return nil
}

// List returns workspaces, optionally only active ones
func (s *Service) List(ctx context.Context, activeOnly bool) ([]*models.Workspace, error) {
	workspaces, err := s.store.ListWorkspaces(ctx, activeOnly)
	if err != nil {
		return nil, clerrors.DatabaseError(err, "listing workspaces")
	}
	return workspaces, nil
}

// Get resolves a workspace by id or root path
func (s *Service) Get(ctx context.Context, idOrPath string) (*models.Workspace, error) {
	return s.get(ctx, idOrPath)
}

func (s *Service) get(ctx context.Context, idOrPath string) (*models.Workspace, error) {
	if idOrPath == "" {
		return nil, clerrors.ValidationErrorf("workspace id or path is required")
	}

	ws, err := s.store.GetWorkspace(ctx, idOrPath)
	if err == nil {
		return ws, nil
	}
	if err != storage.ErrNotFound {
		return nil, clerrors.DatabaseError(err, "looking up workspace")
	}

	abs, absErr := filepath.Abs(idOrPath)
	if absErr == nil {
		if ws, err = s.store.GetWorkspaceByPath(ctx, abs); err == nil {
			return ws, nil
		}
	}
	return nil, clerrors.NotFoundf("workspace %s not found", idOrPath)
}

// scan runs discovery, persists the refreshed workspace row, and drops any
// stale repository-cache entries for the root.
func (s *Service) scan(ctx context.Context, ws *models.Workspace) ([]discovery.Discovered, error) {
	found, err := s.scanner.Scan(ctx, ws.RootPath, s.scanOpts)
	if err != nil {
		return nil, clerrors.FileSystemError(err, "scanning workspace "+ws.RootPath)
	}

	ws.RepoCount = len(found)
	ws.LastScannedAt = time.Now().UTC()
	if err := s.store.SaveWorkspace(ctx, ws); err != nil {
		return nil, clerrors.DatabaseError(err, "saving workspace")
	}

	if s.repos != nil {
		s.repos.Invalidate(ws.RootPath)
	}

	logging.Info("workspace scanned",
		"id", ws.ID, "root", ws.RootPath, "repositories", len(found))
	return found, nil
}
