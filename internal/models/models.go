package models

import (
	"time"
)

// Workspace represents a registered root folder that is scanned for repositories
type Workspace struct {
	ID            string    `json:"id" db:"id"`
	RootPath      string    `json:"root_path" db:"root_path"`
	Name          string    `json:"name" db:"name"`
	RepoCount     int       `json:"repo_count" db:"repo_count"`
	LastScannedAt time.Time `json:"last_scanned_at" db:"last_scanned_at"`
	Active        bool      `json:"active" db:"active"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// RepoRecord represents a discovered repository persisted in the registry
type RepoRecord struct {
	ID             string    `json:"id" db:"id"`
	Path           string    `json:"path" db:"path"`
	Name           string    `json:"name" db:"name"`
	GitLabName     string    `json:"gitlab_name" db:"gitlab_name"`
	GitLabFullPath string    `json:"gitlab_full_path" db:"gitlab_full_path"`
	Active         bool      `json:"active" db:"active"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// Named reports whether the repository resolves to a usable display name.
// A record that carries GitLab metadata but no resolvable name is excluded
// from cached aggregation; a record with no hosting metadata at all counts
// as named by folder name.
func (r *RepoRecord) Named() bool {
	if r.GitLabFullPath == "" {
		return true
	}
	return r.GitLabName != ""
}

// DisplayName returns the best available name for presentation
func (r *RepoRecord) DisplayName() string {
	if r.GitLabName != "" {
		return r.GitLabName
	}
	return r.Name
}

// Commit represents a single parsed git commit. Commits are derived data:
// produced by parsing git log output, cached per month, never persisted.
type Commit struct {
	Hash        string    `json:"hash"`
	Author      string    `json:"author"`
	AuthorEmail string    `json:"author_email"`
	Timestamp   time.Time `json:"timestamp"`
	Subject     string    `json:"subject"`
	Branch      string    `json:"branch,omitempty"`
	RepoID      string    `json:"repo_id,omitempty"`
	RepoName    string    `json:"repo_name"`
	RepoPath    string    `json:"-"`
}

// FileChange represents numstat output for one file in a commit
type FileChange struct {
	Path      string `json:"path"`
	Additions int    `json:"additions"`
	Deletions int    `json:"deletions"`
	Binary    bool   `json:"binary"`
}

// CodeChange is a commit enriched with its per-file stats, fetched on demand
type CodeChange struct {
	Commit
	Files     []FileChange `json:"files"`
	Additions int          `json:"additions"`
	Deletions int          `json:"deletions"`
}

// AuthorStat aggregates commit activity for one author across repositories
type AuthorStat struct {
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Commits     int       `json:"commits"`
	FirstCommit time.Time `json:"first_commit"`
	LastCommit  time.Time `json:"last_commit"`
}

// Page describes pagination metadata for a sliced result
type Page struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}
