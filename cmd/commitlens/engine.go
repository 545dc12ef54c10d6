package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/commitlens/commitlens-go/internal/aggregator"
	"github.com/commitlens/commitlens-go/internal/cache"
	"github.com/commitlens/commitlens-go/internal/config"
	"github.com/commitlens/commitlens-go/internal/discovery"
	"github.com/commitlens/commitlens-go/internal/gitcli"
	"github.com/commitlens/commitlens-go/internal/storage"
	"github.com/commitlens/commitlens-go/internal/workspace"
)

// engine wires the storage, discovery, cache and aggregation layers for one
// CLI invocation
type engine struct {
	store      storage.Store
	git        *gitcli.Client
	scanner    *discovery.Scanner
	repos      *cache.RepoCache
	months     *cache.MonthCache
	agg        *aggregator.Aggregator
	workspaces *workspace.Service
}

func newEngine(cfg *config.Config) (*engine, error) {
	store, err := newStore(cfg)
	if err != nil {
		return nil, err
	}

	scanOpts := discovery.Options{
		MaxDepth:       cfg.Scan.MaxDepth,
		Exclude:        cfg.Scan.Exclude,
		FollowSymlinks: cfg.Scan.FollowSymlinks,
	}

	git := gitcli.NewClient()
	scanner := discovery.NewScanner(store)
	repos := cache.NewRepoCache(scanner, store, cfg.Cache.RepoTTL)
	months := cache.NewMonthCache(store, repos, git, cache.MonthCacheOptions{
		TTL:         cfg.Cache.CommitTTL,
		Concurrency: cfg.Concurrency,
		ScanOptions: scanOpts,
	})

	return &engine{
		store:   store,
		git:     git,
		scanner: scanner,
		repos:   repos,
		months:  months,
		agg: aggregator.New(store, repos, months, git, aggregator.Options{
			Concurrency:    cfg.Concurrency,
			LookbackMonths: cfg.Cache.LookbackMonths,
			ScanOptions:    scanOpts,
		}),
		workspaces: workspace.NewService(store, scanner, repos, scanOpts),
	}, nil
}

func (e *engine) close() {
	if err := e.store.Close(); err != nil {
		logger.WithError(err).Warn("Failed to close store")
	}
}

func newStore(cfg *config.Config) (storage.Store, error) {
	switch cfg.Storage.Type {
	case "postgres":
		return storage.NewPostgresStore(cfg.Storage.PostgresDSN, logger)
	case "sqlite", "":
		return storage.NewSQLiteStore(cfg.Storage.LocalPath, logger)
	case "memory":
		return storage.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Storage.Type)
	}
}

// printJSON writes v as indented JSON to stdout
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
