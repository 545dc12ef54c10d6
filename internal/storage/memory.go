package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/commitlens/commitlens-go/internal/models"
)

// MemoryStore is an in-memory Store used for ephemeral runs and tests. It
// honors the same uniqueness semantics as the SQL stores.
type MemoryStore struct {
	mu         sync.RWMutex
	workspaces map[string]*models.Workspace  // by id
	repos      map[string]*models.RepoRecord // by id
	repoPaths  map[string]string             // path -> id
	wsPaths    map[string]string             // root path -> id
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		workspaces: make(map[string]*models.Workspace),
		repos:      make(map[string]*models.RepoRecord),
		repoPaths:  make(map[string]string),
		wsPaths:    make(map[string]string),
	}
}

func (s *MemoryStore) SaveWorkspace(ctx context.Context, ws *models.Workspace) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if ws.CreatedAt.IsZero() {
		ws.CreatedAt = now
	}
	ws.UpdatedAt = now

	if existingID, ok := s.wsPaths[ws.RootPath]; ok && existingID != ws.ID {
		// Upsert semantics keyed on root path, as in the SQL stores
		ws.ID = existingID
	}

	copied := *ws
	s.workspaces[ws.ID] = &copied
	s.wsPaths[ws.RootPath] = ws.ID
	return nil
}

func (s *MemoryStore) GetWorkspace(ctx context.Context, id string) (*models.Workspace, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ws, ok := s.workspaces[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *ws
	return &copied, nil
}

func (s *MemoryStore) GetWorkspaceByPath(ctx context.Context, rootPath string) (*models.Workspace, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.wsPaths[rootPath]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *s.workspaces[id]
	return &copied, nil
}

func (s *MemoryStore) ListWorkspaces(ctx context.Context, activeOnly bool) ([]*models.Workspace, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Workspace
	for _, ws := range s.workspaces {
		if activeOnly && !ws.Active {
			continue
		}
		copied := *ws
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemoryStore) DeactivateWorkspace(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ws, ok := s.workspaces[id]
	if !ok {
		return ErrNotFound
	}
	ws.Active = false
	ws.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) InsertRepo(ctx context.Context, repo *models.RepoRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.repoPaths[repo.Path]; exists {
		return ErrConflict
	}

	now := time.Now().UTC()
	if repo.CreatedAt.IsZero() {
		repo.CreatedAt = now
	}
	repo.UpdatedAt = now

	copied := *repo
	s.repos[repo.ID] = &copied
	s.repoPaths[repo.Path] = repo.ID
	return nil
}

func (s *MemoryStore) GetRepo(ctx context.Context, id string) (*models.RepoRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	repo, ok := s.repos[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *repo
	return &copied, nil
}

func (s *MemoryStore) GetRepoByPath(ctx context.Context, path string) (*models.RepoRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.repoPaths[path]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *s.repos[id]
	return &copied, nil
}

func (s *MemoryStore) ListRepos(ctx context.Context, activeOnly bool) ([]*models.RepoRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.RepoRecord
	for _, repo := range s.repos {
		if activeOnly && !repo.Active {
			continue
		}
		copied := *repo
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemoryStore) UpdateRepoMeta(ctx context.Context, id, gitlabName, gitlabFullPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	repo, ok := s.repos[id]
	if !ok {
		return ErrNotFound
	}
	repo.GitLabName = gitlabName
	repo.GitLabFullPath = gitlabFullPath
	repo.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) DeactivateRepo(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	repo, ok := s.repos[id]
	if !ok {
		return ErrNotFound
	}
	repo.Active = false
	repo.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}

// Ensure MemoryStore implements Store.
var _ Store = (*MemoryStore)(nil)
