package updater

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nghyane/proxypanel/internal/cache"
)

const (
	localVersionCacheKey = "local_version"
	localVersionCacheTTL = 30 * time.Second
)

// LocalVersion resolves the installed proxy version. A VERSION file in the
// checkout wins, then git tags, then the short commit hash.
func (u *Updater) LocalVersion(ctx context.Context) string {
	if cached, ok := cache.GetTyped[string](u.cache, localVersionCacheKey, localVersionCacheTTL); ok {
		return cached
	}
	version := u.resolveLocalVersion(ctx)
	u.cache.Set(localVersionCacheKey, version)
	return version
}

func (u *Updater) resolveLocalVersion(ctx context.Context) string {
	if data, err := os.ReadFile(filepath.Join(u.cfg.ProxyDir, "VERSION")); err == nil {
		if v := strings.TrimSpace(string(data)); v != "" {
			return v
		}
	}
	if out, err := u.run(ctx, u.cfg.ProxyDir, "git", "describe", "--tags", "--abbrev=0"); err == nil {
		if v := strings.TrimSpace(string(out)); v != "" {
			return v
		}
	}
	if out, err := u.run(ctx, u.cfg.ProxyDir, "git", "rev-parse", "--short", "HEAD"); err == nil {
		if v := strings.TrimSpace(string(out)); v != "" {
			return v
		}
	}
	return "unknown"
}

func (u *Updater) invalidateVersionCaches() {
	u.cache.Invalidate(localVersionCacheKey)
	u.cache.Invalidate(updateCheckCacheKey)
	u.cache.Invalidate(latestReleaseCacheKey)
}
