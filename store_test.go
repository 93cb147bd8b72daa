package kvengine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T, dir string, opts ...Option) *Store {
	t.Helper()
	s, err := Open(dir, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// A fresh store with no keys returns a clean miss.
func TestGetMissOnEmptyStore(t *testing.T) {
	s := openTestStore(t, t.TempDir())
	v, ok, err := s.Get("nope")
	require.NoError(t, err)
	require.False(t, ok)
	require.Empty(t, v)
}

// Read-your-writes.
func TestSetThenGet(t *testing.T) {
	s := openTestStore(t, t.TempDir())
	require.NoError(t, s.Set("a", "1"))
	v, ok, err := s.Get("a")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "1", v)
}

// S1: last write wins.
func TestSetOverwritesPreviousValue(t *testing.T) {
	s := openTestStore(t, t.TempDir())
	require.NoError(t, s.Set("a", "1"))
	require.NoError(t, s.Set("a", "2"))
	v, ok, err := s.Get("a")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "2", v)
}

// Remove hides the key.
func TestRemoveHidesKey(t *testing.T) {
	s := openTestStore(t, t.TempDir())
	require.NoError(t, s.Set("a", "1"))
	require.NoError(t, s.Remove("a"))

	_, ok, err := s.Get("a")
	require.NoError(t, err)
	require.False(t, ok)
}

// S3: Remove of an absent key is an error.
func TestRemoveAbsentKeyIsError(t *testing.T) {
	s := openTestStore(t, t.TempDir())
	err := s.Remove("ghost")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrKeyNotFound)
}

// S5 (and the reopen of S2): durability across reopen.
func TestReopenRebuildsIndexFromLog(t *testing.T) {
	dir := t.TempDir()
	s := openTestStore(t, dir, WithAdvisoryLock(false))
	require.NoError(t, s.Set("a", "1"))
	require.NoError(t, s.Set("b", "2"))
	require.NoError(t, s.Remove("a"))
	require.NoError(t, s.Close())

	s2 := openTestStore(t, dir, WithAdvisoryLock(false))

	_, ok, err := s2.Get("a")
	require.NoError(t, err)
	require.False(t, ok)

	v, ok, err := s2.Get("b")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "2", v)
}

func TestReopenPicksUpHighestGenerationAsActive(t *testing.T) {
	dir := t.TempDir()
	s := openTestStore(t, dir, WithAdvisoryLock(false), WithCompactionThreshold(1))
	for i := 0; i < 50; i++ {
		require.NoError(t, s.Set("k", "value-to-force-stale-bytes"))
	}
	require.NoError(t, s.Close())

	s2 := openTestStore(t, dir, WithAdvisoryLock(false))
	v, ok, err := s2.Get("k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "value-to-force-stale-bytes", v)
}

// S6: a torn write at the tail of the active segment is reported as a
// corrupt log rather than silently ignored or silently truncated.
func TestCorruptTrailingByteFailsOpen(t *testing.T) {
	dir := t.TempDir()
	s := openTestStore(t, dir, WithAdvisoryLock(false))
	require.NoError(t, s.Set("a", "1"))
	require.NoError(t, s.Close())

	path := filepath.Join(dir, "0.db")
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0644)
	require.NoError(t, err)
	_, err = f.Write([]byte(`{"Set":["b",`))
	require.NoError(t, f.Close())
	require.NoError(t, err)

	_, err = Open(dir, WithAdvisoryLock(false))
	require.Error(t, err)
	require.ErrorIs(t, err, ErrCorruptLog)
}

// Compaction must preserve visible semantics: every live key reads the
// same value before and after, and removed keys stay gone.
func TestCompactionPreservesVisibleState(t *testing.T) {
	dir := t.TempDir()
	s := openTestStore(t, dir, WithAdvisoryLock(false), WithCompactionThreshold(256))

	require.NoError(t, s.Set("a", "1"))
	require.NoError(t, s.Set("a", "2"))
	require.NoError(t, s.Set("b", "x"))
	require.NoError(t, s.Remove("b"))
	for i := 0; i < 20; i++ {
		require.NoError(t, s.Set("filler", "0123456789abcdef0123456789abcdef"))
	}

	v, ok, err := s.Get("a")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "2", v)

	_, ok, err = s.Get("b")
	require.NoError(t, err)
	require.False(t, ok)
}

// Compaction never grows the on-disk footprint relative to pre-compaction
// size: the live set it rewrites is always a subset of what was there.
func TestCompactionShrinksOrEqualsPriorSize(t *testing.T) {
	dir := t.TempDir()
	s := openTestStore(t, dir, WithAdvisoryLock(false), WithCompactionThreshold(1<<20))

	for i := 0; i < 200; i++ {
		require.NoError(t, s.Set("k", "0123456789abcdef0123456789abcdef0123456789abcdef"))
	}
	preSize := dirSize(t, dir)

	require.NoError(t, s.compact())

	postSize := dirSize(t, dir)
	require.LessOrEqual(t, postSize, preSize)

	v, ok, err := s.Get("k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "0123456789abcdef0123456789abcdef0123456789abcdef", v)
}

func TestCompactionDropsOldGenerationFiles(t *testing.T) {
	dir := t.TempDir()
	s := openTestStore(t, dir, WithAdvisoryLock(false))

	require.NoError(t, s.Set("a", "1"))
	oldGen := s.activeGeneration
	require.NoError(t, s.compact())

	_, err := os.Stat(generationPath(dir, oldGen))
	require.True(t, os.IsNotExist(err))
}

func TestAutomaticCompactionTriggersOverThreshold(t *testing.T) {
	dir := t.TempDir()
	s := openTestStore(t, dir, WithAdvisoryLock(false), WithCompactionThreshold(64))

	for i := 0; i < 10; i++ {
		require.NoError(t, s.Set("k", "0123456789abcdef0123456789abcdef"))
	}
	require.Less(t, s.staleBytes, int64(64))
	require.Greater(t, s.activeGeneration, uint64(0))
}

func TestAdvisoryLockRejectsSecondOpen(t *testing.T) {
	dir := t.TempDir()
	s := openTestStore(t, dir)

	_, err := Open(dir)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrBadPath)

	require.NoError(t, s.Close())
	s2, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, s2.Close())
}

func dirSize(t *testing.T, dir string) int64 {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var total int64
	for _, e := range entries {
		info, err := e.Info()
		require.NoError(t, err)
		total += info.Size()
	}
	return total
}
