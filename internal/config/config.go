package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Minimum TTLs. Anything lower thrashes the filesystem and the git binary
// without improving freshness in a useful way.
const (
	MinRepoCacheTTL   = 30 * time.Second
	MinCommitCacheTTL = 60 * time.Second
)

// Config holds all configuration settings
type Config struct {
	// Storage configuration
	Storage StorageConfig `yaml:"storage" mapstructure:"storage"`

	// Repository discovery settings
	Scan ScanConfig `yaml:"scan" mapstructure:"scan"`

	// Cache TTLs and lookback window
	Cache CacheConfig `yaml:"cache" mapstructure:"cache"`

	// Maximum concurrent git subprocesses per fan-out
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
}

type StorageConfig struct {
	Type        string `yaml:"type" mapstructure:"type"` // "sqlite", "postgres", "memory"
	PostgresDSN string `yaml:"postgres_dsn" mapstructure:"postgres_dsn"`
	LocalPath   string `yaml:"local_path" mapstructure:"local_path"`
}

type ScanConfig struct {
	MaxDepth       int      `yaml:"max_depth" mapstructure:"max_depth"`
	Exclude        []string `yaml:"exclude" mapstructure:"exclude"`
	FollowSymlinks bool     `yaml:"follow_symlinks" mapstructure:"follow_symlinks"`
}

type CacheConfig struct {
	RepoTTL        time.Duration `yaml:"repo_ttl" mapstructure:"repo_ttl"`
	CommitTTL      time.Duration `yaml:"commit_ttl" mapstructure:"commit_ttl"`
	LookbackMonths int           `yaml:"lookback_months" mapstructure:"lookback_months"`
}

// Default returns default configuration
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	return &Config{
		Storage: StorageConfig{
			Type:      "sqlite",
			LocalPath: filepath.Join(homeDir, ".commitlens", "local.db"),
		},
		Scan: ScanConfig{
			MaxDepth:       5,
			Exclude:        []string{"node_modules", ".cache", "vendor", ".Trash"},
			FollowSymlinks: false,
		},
		Cache: CacheConfig{
			RepoTTL:        5 * time.Minute,
			CommitTTL:      15 * time.Minute,
			LookbackMonths: 6,
		},
		Concurrency: 8,
	}
}

// Load loads configuration from file, environment, and defaults
func Load(path string) (*Config, error) {
	loadEnvFiles()

	v := viper.New()
	v.SetConfigType("yaml")

	cfg := Default()
	v.SetDefault("storage", cfg.Storage)
	v.SetDefault("scan", cfg.Scan)
	v.SetDefault("cache", cfg.Cache)
	v.SetDefault("concurrency", cfg.Concurrency)

	v.SetEnvPrefix("COMMITLENS")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".commitlens")
		v.AddConfigPath(".")
		homeDir, _ := os.UserHomeDir()
		v.AddConfigPath(filepath.Join(homeDir, ".commitlens"))
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyEnvOverrides(cfg)
	cfg.normalize()

	return cfg, nil
}

// normalize enforces floors so operators cannot configure pathological values
func (c *Config) normalize() {
	if c.Cache.RepoTTL < MinRepoCacheTTL {
		c.Cache.RepoTTL = MinRepoCacheTTL
	}
	if c.Cache.CommitTTL < MinCommitCacheTTL {
		c.Cache.CommitTTL = MinCommitCacheTTL
	}
	if c.Cache.LookbackMonths < 1 {
		c.Cache.LookbackMonths = 1
	}
	if c.Concurrency < 1 {
		c.Concurrency = 1
	}
	if c.Scan.MaxDepth < 1 {
		c.Scan.MaxDepth = 1
	}
}

// loadEnvFiles loads .env files in order of precedence
func loadEnvFiles() {
	envFiles := []string{
		".env.local",
		".env",
	}

	for _, file := range envFiles {
		if _, err := os.Stat(file); err == nil {
			godotenv.Load(file)
		}
	}

	homeDir, _ := os.UserHomeDir()
	homeEnvFile := filepath.Join(homeDir, ".commitlens", ".env")
	if _, err := os.Stat(homeEnvFile); err == nil {
		godotenv.Load(homeEnvFile)
	}
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(cfg *Config) {
	if storageType := os.Getenv("STORAGE_TYPE"); storageType != "" {
		cfg.Storage.Type = storageType
	}
	if dsn := os.Getenv("POSTGRES_DSN"); dsn != "" {
		cfg.Storage.PostgresDSN = dsn
	}
	if path := os.Getenv("LOCAL_DB_PATH"); path != "" {
		cfg.Storage.LocalPath = expandPath(path)
	}

	if depth := os.Getenv("SCAN_MAX_DEPTH"); depth != "" {
		if d, err := strconv.Atoi(depth); err == nil {
			cfg.Scan.MaxDepth = d
		}
	}
	if exclude := os.Getenv("SCAN_EXCLUDE"); exclude != "" {
		cfg.Scan.Exclude = strings.Split(exclude, ",")
	}
	if follow := os.Getenv("SCAN_FOLLOW_SYMLINKS"); follow != "" {
		cfg.Scan.FollowSymlinks = follow == "true"
	}

	if ttl := os.Getenv("REPO_CACHE_TTL_SECONDS"); ttl != "" {
		if secs, err := strconv.Atoi(ttl); err == nil {
			cfg.Cache.RepoTTL = time.Duration(secs) * time.Second
		}
	}
	if ttl := os.Getenv("COMMIT_CACHE_TTL_SECONDS"); ttl != "" {
		if secs, err := strconv.Atoi(ttl); err == nil {
			cfg.Cache.CommitTTL = time.Duration(secs) * time.Second
		}
	}
	if months := os.Getenv("CACHE_LOOKBACK_MONTHS"); months != "" {
		if m, err := strconv.Atoi(months); err == nil {
			cfg.Cache.LookbackMonths = m
		}
	}

	if workers := os.Getenv("COMMITLENS_CONCURRENCY"); workers != "" {
		if w, err := strconv.Atoi(workers); err == nil {
			cfg.Concurrency = w
		}
	}
}

// expandPath expands ~ to home directory
func expandPath(path string) string {
	if path == "" {
		return path
	}
	if path[0] == '~' {
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, path[1:])
	}
	return path
}

// Save saves configuration to file
func (c *Config) Save(path string) error {
	v := viper.New()
	v.SetConfigType("yaml")

	v.Set("storage", c.Storage)
	v.Set("scan", c.Scan)
	v.Set("cache", c.Cache)
	v.Set("concurrency", c.Concurrency)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// Dump renders the effective configuration as YAML for display
func (c *Config) Dump() (string, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("failed to marshal config: %w", err)
	}
	return string(out), nil
}
