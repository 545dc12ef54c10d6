package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "sqlite", cfg.Storage.Type)
	assert.Equal(t, 5, cfg.Scan.MaxDepth)
	assert.Contains(t, cfg.Scan.Exclude, "node_modules")
	assert.Equal(t, 5*time.Minute, cfg.Cache.RepoTTL)
	assert.Equal(t, 15*time.Minute, cfg.Cache.CommitTTL)
	assert.Equal(t, 6, cfg.Cache.LookbackMonths)
	assert.Equal(t, 8, cfg.Concurrency)
}

func TestNormalizeEnforcesFloors(t *testing.T) {
	cfg := &Config{
		Cache: CacheConfig{
			RepoTTL:        time.Second,
			CommitTTL:      time.Second,
			LookbackMonths: 0,
		},
		Concurrency: -4,
		Scan:        ScanConfig{MaxDepth: 0},
	}
	cfg.normalize()

	assert.Equal(t, MinRepoCacheTTL, cfg.Cache.RepoTTL)
	assert.Equal(t, MinCommitCacheTTL, cfg.Cache.CommitTTL)
	assert.Equal(t, 1, cfg.Cache.LookbackMonths)
	assert.Equal(t, 1, cfg.Concurrency)
	assert.Equal(t, 1, cfg.Scan.MaxDepth)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
storage:
  type: postgres
  postgres_dsn: postgres://localhost/commitlens
scan:
  max_depth: 3
  exclude: [dist, tmp]
cache:
  commit_ttl: 2m
concurrency: 4
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Storage.Type)
	assert.Equal(t, 3, cfg.Scan.MaxDepth)
	assert.Equal(t, []string{"dist", "tmp"}, cfg.Scan.Exclude)
	assert.Equal(t, 2*time.Minute, cfg.Cache.CommitTTL)
	assert.Equal(t, 4, cfg.Concurrency)
	// Unset keys keep their defaults
	assert.Equal(t, 5*time.Minute, cfg.Cache.RepoTTL)
}

func TestLoadAppliesEnvOverridesAndFloors(t *testing.T) {
	t.Setenv("STORAGE_TYPE", "memory")
	t.Setenv("SCAN_MAX_DEPTH", "2")
	t.Setenv("COMMIT_CACHE_TTL_SECONDS", "5") // below floor
	t.Setenv("COMMITLENS_CONCURRENCY", "16")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		// A missing explicit file is an error; fall back the way the CLI does
		cfg = Default()
		applyEnvOverrides(cfg)
		cfg.normalize()
	}

	assert.Equal(t, "memory", cfg.Storage.Type)
	assert.Equal(t, 2, cfg.Scan.MaxDepth)
	assert.Equal(t, MinCommitCacheTTL, cfg.Cache.CommitTTL)
	assert.Equal(t, 16, cfg.Concurrency)
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out", "config.yaml")

	cfg := Default()
	cfg.Scan.MaxDepth = 7
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, loaded.Scan.MaxDepth)
}

func TestDump(t *testing.T) {
	out, err := Default().Dump()
	require.NoError(t, err)
	assert.Contains(t, out, "storage:")
	assert.Contains(t, out, "max_depth: 5")
}
