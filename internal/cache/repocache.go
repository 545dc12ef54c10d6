// Package cache holds the two process-lifetime caches: the workspace
// repository cache (short TTL over discovery results) and the commit month
// cache (calendar-month buckets of parsed history). Both are injected into
// their consumers rather than reached through globals.
package cache

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/commitlens/commitlens-go/internal/discovery"
	"github.com/commitlens/commitlens-go/internal/logging"
	"github.com/commitlens/commitlens-go/internal/storage"
)

// Scanner is the discovery dependency of the repository cache
type Scanner interface {
	Scan(ctx context.Context, root string, opts discovery.Options) ([]discovery.Discovered, error)
}

// RepoCache memoizes discovery results per (root path, scan options) so
// repeated queries against the same workspace within the TTL window skip the
// filesystem walk.
type RepoCache struct {
	cache   *gocache.Cache
	scanner Scanner
	store   storage.Store
	ttl     time.Duration
}

// NewRepoCache builds a repository cache with the given TTL. The TTL is
// assumed to be pre-validated by the config layer.
func NewRepoCache(scanner Scanner, store storage.Store, ttl time.Duration) *RepoCache {
	return &RepoCache{
		cache:   gocache.New(ttl, 2*ttl),
		scanner: scanner,
		store:   store,
		ttl:     ttl,
	}
}

// Get returns the repositories under rootPath, from cache when fresh. Cached
// entries missing a registry id are opportunistically re-resolved against the
// store; a lookup failure leaves the cached entry as-is rather than failing
// the read.
func (rc *RepoCache) Get(ctx context.Context, rootPath string, opts discovery.Options) ([]discovery.Discovered, error) {
	key := cacheKey(rootPath, opts)

	if cached, found := rc.cache.Get(key); found {
		repos := cached.([]discovery.Discovered)
		return rc.enrich(ctx, key, repos), nil
	}

	repos, err := rc.scanner.Scan(ctx, rootPath, opts)
	if err != nil {
		return nil, err
	}

	rc.cache.Set(key, repos, rc.ttl)
	return repos, nil
}

// Invalidate drops every cached entry for rootPath, across all option sets
func (rc *RepoCache) Invalidate(rootPath string) {
	prefix := canonicalRoot(rootPath) + "|"
	for key := range rc.cache.Items() {
		if strings.HasPrefix(key, prefix) {
			rc.cache.Delete(key)
		}
	}
}

// enrich fills in registry ids that were unknown when the entry was cached.
// The updated slice is written back so later hits skip the lookups.
func (rc *RepoCache) enrich(ctx context.Context, key string, repos []discovery.Discovered) []discovery.Discovered {
	updated := false
	out := make([]discovery.Discovered, len(repos))
	copy(out, repos)

	for i := range out {
		if out[i].RepoID != "" {
			continue
		}
		record, err := rc.store.GetRepoByPath(ctx, out[i].Path)
		if err != nil {
			if err != storage.ErrNotFound {
				logging.Warn("repository id lookup failed during cache read",
					"path", out[i].Path, "error", err)
			}
			continue
		}
		out[i].RepoID = record.ID
		out[i].AlreadyAdded = true
		updated = true
	}

	if updated {
		// Preserve the entry's original expiry; enrichment is not a refresh
		ttl := rc.ttl
		if item, ok := rc.cache.Items()[key]; ok && item.Expiration > 0 {
			if remaining := time.Until(time.Unix(0, item.Expiration)); remaining > 0 {
				ttl = remaining
			}
		}
		rc.cache.Set(key, out, ttl)
	}
	return out
}

// cacheKey canonicalizes the root path and scan options so logically equal
// requests share an entry regardless of exclusion order.
func cacheKey(rootPath string, opts discovery.Options) string {
	exclude := make([]string, 0, len(opts.Exclude))
	for _, name := range opts.Exclude {
		exclude = append(exclude, strings.ToLower(name))
	}
	sort.Strings(exclude)

	return fmt.Sprintf("%s|d=%d|x=%s|s=%t",
		canonicalRoot(rootPath), opts.MaxDepth, strings.Join(exclude, ","), opts.FollowSymlinks)
}

func canonicalRoot(rootPath string) string {
	abs, err := filepath.Abs(rootPath)
	if err != nil {
		return filepath.Clean(rootPath)
	}
	return abs
}
