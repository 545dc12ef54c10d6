package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/commitlens/commitlens-go/internal/models"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

// SQLiteStore implements storage using SQLite (for local/development)
type SQLiteStore struct {
	db     *sqlx.DB
	logger *logrus.Logger
}

// NewSQLiteStore creates a new SQLite storage
func NewSQLiteStore(path string, logger *logrus.Logger) (*SQLiteStore, error) {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("connect to sqlite: %w", err)
	}

	// Enable foreign keys and WAL mode for better concurrency
	db.Exec("PRAGMA foreign_keys = ON")
	db.Exec("PRAGMA journal_mode = WAL")

	store := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS workspaces (
		id TEXT PRIMARY KEY,
		root_path TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		repo_count INTEGER NOT NULL DEFAULT 0,
		last_scanned_at DATETIME,
		active INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME,
		updated_at DATETIME
	);

	CREATE TABLE IF NOT EXISTS repositories (
		id TEXT PRIMARY KEY,
		path TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		gitlab_name TEXT NOT NULL DEFAULT '',
		gitlab_full_path TEXT NOT NULL DEFAULT '',
		active INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME,
		updated_at DATETIME
	);

	CREATE INDEX IF NOT EXISTS idx_repositories_active ON repositories(active);
	CREATE INDEX IF NOT EXISTS idx_workspaces_active ON workspaces(active);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Workspace operations

func (s *SQLiteStore) SaveWorkspace(ctx context.Context, ws *models.Workspace) error {
	now := time.Now().UTC()
	if ws.CreatedAt.IsZero() {
		ws.CreatedAt = now
	}
	ws.UpdatedAt = now

	query := `
		INSERT INTO workspaces
		(id, root_path, name, repo_count, last_scanned_at, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(root_path) DO UPDATE SET
			name = excluded.name,
			repo_count = excluded.repo_count,
			last_scanned_at = excluded.last_scanned_at,
			active = excluded.active,
			updated_at = excluded.updated_at
	`
	_, err := s.db.ExecContext(ctx, query,
		ws.ID, ws.RootPath, ws.Name, ws.RepoCount, ws.LastScannedAt,
		ws.Active, ws.CreatedAt, ws.UpdatedAt)

	return err
}

func (s *SQLiteStore) GetWorkspace(ctx context.Context, id string) (*models.Workspace, error) {
	var ws models.Workspace
	query := `SELECT * FROM workspaces WHERE id = ?`

	err := s.db.GetContext(ctx, &ws, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return &ws, nil
}

func (s *SQLiteStore) GetWorkspaceByPath(ctx context.Context, rootPath string) (*models.Workspace, error) {
	var ws models.Workspace
	query := `SELECT * FROM workspaces WHERE root_path = ?`

	err := s.db.GetContext(ctx, &ws, query, rootPath)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return &ws, nil
}

func (s *SQLiteStore) ListWorkspaces(ctx context.Context, activeOnly bool) ([]*models.Workspace, error) {
	var workspaces []*models.Workspace
	query := `SELECT * FROM workspaces`
	if activeOnly {
		query += ` WHERE active = 1`
	}
	query += ` ORDER BY name`

	err := s.db.SelectContext(ctx, &workspaces, query)
	if err != nil {
		return nil, err
	}

	return workspaces, nil
}

func (s *SQLiteStore) DeactivateWorkspace(ctx context.Context, id string) error {
	query := `UPDATE workspaces SET active = 0, updated_at = ? WHERE id = ?`
	res, err := s.db.ExecContext(ctx, query, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Repository registry operations

func (s *SQLiteStore) InsertRepo(ctx context.Context, repo *models.RepoRecord) error {
	now := time.Now().UTC()
	if repo.CreatedAt.IsZero() {
		repo.CreatedAt = now
	}
	repo.UpdatedAt = now

	// INSERT OR IGNORE plus a rows-affected check keeps the uniqueness race
	// detectable without parsing driver-specific error strings.
	query := `
		INSERT OR IGNORE INTO repositories
		(id, path, name, gitlab_name, gitlab_full_path, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	res, err := s.db.ExecContext(ctx, query,
		repo.ID, repo.Path, repo.Name, repo.GitLabName, repo.GitLabFullPath,
		repo.Active, repo.CreatedAt, repo.UpdatedAt)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrConflict
	}
	return nil
}

func (s *SQLiteStore) GetRepo(ctx context.Context, id string) (*models.RepoRecord, error) {
	var repo models.RepoRecord
	query := `SELECT * FROM repositories WHERE id = ?`

	err := s.db.GetContext(ctx, &repo, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return &repo, nil
}

func (s *SQLiteStore) GetRepoByPath(ctx context.Context, path string) (*models.RepoRecord, error) {
	var repo models.RepoRecord
	query := `SELECT * FROM repositories WHERE path = ?`

	err := s.db.GetContext(ctx, &repo, query, path)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return &repo, nil
}

func (s *SQLiteStore) ListRepos(ctx context.Context, activeOnly bool) ([]*models.RepoRecord, error) {
	var repos []*models.RepoRecord
	query := `SELECT * FROM repositories`
	if activeOnly {
		query += ` WHERE active = 1`
	}
	query += ` ORDER BY name`

	err := s.db.SelectContext(ctx, &repos, query)
	if err != nil {
		return nil, err
	}

	return repos, nil
}

func (s *SQLiteStore) UpdateRepoMeta(ctx context.Context, id, gitlabName, gitlabFullPath string) error {
	query := `
		UPDATE repositories
		SET gitlab_name = ?, gitlab_full_path = ?, updated_at = ?
		WHERE id = ?
	`
	res, err := s.db.ExecContext(ctx, query, gitlabName, gitlabFullPath, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) DeactivateRepo(ctx context.Context, id string) error {
	query := `UPDATE repositories SET active = 0, updated_at = ? WHERE id = ?`
	res, err := s.db.ExecContext(ctx, query, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Ensure SQLiteStore implements Store.
var _ Store = (*SQLiteStore)(nil)
