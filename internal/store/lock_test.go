package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileLock_LockUnlock(t *testing.T) {
	// Given: a lock in an empty directory
	dir := t.TempDir()
	lock := NewFileLock(dir)

	// When: locking
	require.NoError(t, lock.Lock())

	// Then: the lock file exists and the lock is held
	_, err := os.Stat(lock.Path())
	require.NoError(t, err)
	assert.True(t, lock.IsLocked())
	assert.Equal(t, filepath.Join(dir, LockFileName), lock.Path())

	require.NoError(t, lock.Unlock())
	assert.False(t, lock.IsLocked())
}

func TestFileLock_UnlockIsIdempotent(t *testing.T) {
	lock := NewFileLock(t.TempDir())

	assert.NoError(t, lock.Unlock(), "unlock without lock")
	require.NoError(t, lock.Lock())
	assert.NoError(t, lock.Unlock())
	assert.NoError(t, lock.Unlock(), "second unlock")
}

func TestFileLock_TryLockContended(t *testing.T) {
	// Given: one holder of the lock
	dir := t.TempDir()
	holder := NewFileLock(dir)
	require.NoError(t, holder.Lock())
	defer func() { _ = holder.Unlock() }()

	// When: a second lock on the same file tries to acquire it
	other := NewFileLock(dir)
	acquired, err := other.TryLock()

	// Then: it is refused without blocking
	require.NoError(t, err)
	assert.False(t, acquired)
	assert.False(t, other.IsLocked())
}

func TestFileLock_CreatesMissingDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	lock := NewFileLock(dir)

	acquired, err := lock.TryLock()
	require.NoError(t, err)
	assert.True(t, acquired)
	require.NoError(t, lock.Unlock())

	_, err = os.Stat(dir)
	assert.NoError(t, err)
}
