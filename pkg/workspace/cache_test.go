package workspace

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeProject(t *testing.T, manifest, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, manifest), []byte(content), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "src"), 0755))
	return dir
}

func TestCacheGetBuildsThenHits(t *testing.T) {
	dir := writeProject(t, "package.json", `{"dependencies": {"react": "^18.2.0"}}`)
	cache := NewCache(5 * time.Minute)

	first, hit := cache.Get(dir)
	assert.False(t, hit)
	assert.Contains(t, first.DetectedPatterns, "react")

	second, hit := cache.Get(dir)
	assert.True(t, hit)
	assert.Equal(t, first, second)
}

func TestCacheExpiredEntryIsMiss(t *testing.T) {
	dir := writeProject(t, "package.json", `{"dependencies": {"react": "^18.2.0"}}`)
	cache := NewCache(5 * time.Minute)

	cache.mu.Lock()
	cache.entries[dir] = Snapshot{CapturedAt: time.Now().Add(-10 * time.Minute)}
	cache.mu.Unlock()

	snap, hit := cache.Get(dir)
	assert.False(t, hit)
	assert.Contains(t, snap.DetectedPatterns, "react")

	_, hit = cache.Get(dir)
	assert.True(t, hit)
}

func TestCacheInvalidate(t *testing.T) {
	dir := writeProject(t, "package.json", `{"dependencies": {}}`)
	cache := NewCache(5 * time.Minute)

	cache.Get(dir)
	cache.Invalidate(dir)
	_, hit := cache.Get(dir)
	assert.False(t, hit)
}

func TestCacheInvalidateAll(t *testing.T) {
	dirA := writeProject(t, "package.json", `{}`)
	dirB := writeProject(t, "go.mod", "module example.com/demo\n")
	cache := NewCache(5 * time.Minute)

	cache.Get(dirA)
	cache.Get(dirB)
	assert.Len(t, cache.Roots(), 2)

	cache.InvalidateAll()
	assert.Empty(t, cache.Roots())
}

func TestCacheEmptyRootDegrades(t *testing.T) {
	cache := NewCache(5 * time.Minute)
	snap, hit := cache.Get("")
	assert.False(t, hit)
	assert.Empty(t, snap.StructureSummary)
	assert.Empty(t, snap.DetectedPatterns)
	assert.Empty(t, snap.DependencySummary)
	assert.False(t, snap.CapturedAt.IsZero())
	assert.Empty(t, cache.Roots())
}

func TestCacheMissingRootDegrades(t *testing.T) {
	cache := NewCache(5 * time.Minute)
	snap, hit := cache.Get(filepath.Join(t.TempDir(), "does-not-exist"))
	assert.False(t, hit)
	assert.Empty(t, snap.StructureSummary)
	assert.Empty(t, snap.DependencySummary)
}

func TestNewCacheClampsTTL(t *testing.T) {
	assert.Equal(t, DefaultTTL, NewCache(0).TTL())
	assert.Equal(t, DefaultTTL, NewCache(2*time.Hour).TTL())
	assert.Equal(t, 10*time.Minute, NewCache(10*time.Minute).TTL())
}
