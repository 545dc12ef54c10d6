package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/commitlens/commitlens-go/internal/models"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

// PostgresStore implements storage using PostgreSQL
type PostgresStore struct {
	db     *sqlx.DB
	logger *logrus.Logger
}

// NewPostgresStore creates a new PostgreSQL storage
func NewPostgresStore(dsn string, logger *logrus.Logger) (*PostgresStore, error) {
	db, err := sqlx.Connect("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	store := &PostgresStore{
		db:     db,
		logger: logger,
	}

	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return store, nil
}

func (s *PostgresStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS workspaces (
		id TEXT PRIMARY KEY,
		root_path TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		repo_count INTEGER NOT NULL DEFAULT 0,
		last_scanned_at TIMESTAMPTZ,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ,
		updated_at TIMESTAMPTZ
	);

	CREATE TABLE IF NOT EXISTS repositories (
		id TEXT PRIMARY KEY,
		path TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		gitlab_name TEXT NOT NULL DEFAULT '',
		gitlab_full_path TEXT NOT NULL DEFAULT '',
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ,
		updated_at TIMESTAMPTZ
	);

	CREATE INDEX IF NOT EXISTS idx_repositories_active ON repositories(active);
	CREATE INDEX IF NOT EXISTS idx_workspaces_active ON workspaces(active);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// Workspace operations

func (s *PostgresStore) SaveWorkspace(ctx context.Context, ws *models.Workspace) error {
	now := time.Now().UTC()
	if ws.CreatedAt.IsZero() {
		ws.CreatedAt = now
	}
	ws.UpdatedAt = now

	query := `
		INSERT INTO workspaces
		(id, root_path, name, repo_count, last_scanned_at, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (root_path) DO UPDATE SET
			name = EXCLUDED.name,
			repo_count = EXCLUDED.repo_count,
			last_scanned_at = EXCLUDED.last_scanned_at,
			active = EXCLUDED.active,
			updated_at = EXCLUDED.updated_at
	`
	_, err := s.db.ExecContext(ctx, query,
		ws.ID, ws.RootPath, ws.Name, ws.RepoCount, ws.LastScannedAt,
		ws.Active, ws.CreatedAt, ws.UpdatedAt)

	return err
}

func (s *PostgresStore) GetWorkspace(ctx context.Context, id string) (*models.Workspace, error) {
	var ws models.Workspace
	query := `SELECT * FROM workspaces WHERE id = $1`

	err := s.db.GetContext(ctx, &ws, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return &ws, nil
}

func (s *PostgresStore) GetWorkspaceByPath(ctx context.Context, rootPath string) (*models.Workspace, error) {
	var ws models.Workspace
	query := `SELECT * FROM workspaces WHERE root_path = $1`

	err := s.db.GetContext(ctx, &ws, query, rootPath)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return &ws, nil
}

func (s *PostgresStore) ListWorkspaces(ctx context.Context, activeOnly bool) ([]*models.Workspace, error) {
	var workspaces []*models.Workspace
	query := `SELECT * FROM workspaces`
	if activeOnly {
		query += ` WHERE active = TRUE`
	}
	query += ` ORDER BY name`

	err := s.db.SelectContext(ctx, &workspaces, query)
	if err != nil {
		return nil, err
	}

	return workspaces, nil
}

func (s *PostgresStore) DeactivateWorkspace(ctx context.Context, id string) error {
	query := `UPDATE workspaces SET active = FALSE, updated_at = $1 WHERE id = $2`
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

func (s *PostgresStore) InsertRepo(ctx context.Context, repo *models.RepoRecord) error {
	now := time.Now().UTC()
	if repo.CreatedAt.IsZero() {
		repo.CreatedAt = now
	}
	repo.UpdatedAt = now

	query := `
		INSERT INTO repositories
		(id, path, name, gitlab_name, gitlab_full_path, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (path) DO NOTHING
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

func (s *PostgresStore) GetRepo(ctx context.Context, id string) (*models.RepoRecord, error) {
	var repo models.RepoRecord
	query := `SELECT * FROM repositories WHERE id = $1`

	err := s.db.GetContext(ctx, &repo, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return &repo, nil
}

func (s *PostgresStore) GetRepoByPath(ctx context.Context, path string) (*models.RepoRecord, error) {
	var repo models.RepoRecord
	query := `SELECT * FROM repositories WHERE path = $1`

	err := s.db.GetContext(ctx, &repo, query, path)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return &repo, nil
}

func (s *PostgresStore) ListRepos(ctx context.Context, activeOnly bool) ([]*models.RepoRecord, error) {
	var repos []*models.RepoRecord
	query := `SELECT * FROM repositories`
	if activeOnly {
		query += ` WHERE active = TRUE`
	}
	query += ` ORDER BY name`

	err := s.db.SelectContext(ctx, &repos, query)
	if err != nil {
		return nil, err
	}

	return repos, nil
}

func (s *PostgresStore) UpdateRepoMeta(ctx context.Context, id, gitlabName, gitlabFullPath string) error {
	query := `
		UPDATE repositories
		SET gitlab_name = $1, gitlab_full_path = $2, updated_at = $3
		WHERE id = $4
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

func (s *PostgresStore) DeactivateRepo(ctx context.Context, id string) error {
	query := `UPDATE repositories SET active = FALSE, updated_at = $1 WHERE id = $2`
	res, err := s.db.ExecContext(ctx, query, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Ensure PostgresStore implements Store.
var _ Store = (*PostgresStore)(nil)
