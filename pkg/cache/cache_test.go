package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerworks/hnetctl/pkg/errdefs"
)

func openTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestStoreAndGet(t *testing.T) {
	c := openTestCache(t)

	require.NoError(t, c.Store("testnet", "testnet", "version: 1.0.0"))

	snapshot, err := c.Get("testnet")
	require.NoError(t, err)
	assert.Equal(t, "testnet", snapshot.Deployment)
	assert.Equal(t, "testnet", snapshot.Namespace)
	assert.Equal(t, "version: 1.0.0", snapshot.Data)
	assert.False(t, snapshot.StoredAt.IsZero())
}

func TestGetMissing(t *testing.T) {
	c := openTestCache(t)
	_, err := c.Get("mainnet")
	assert.True(t, errdefs.IsNotFound(err))
}

func TestStoreOverwrites(t *testing.T) {
	c := openTestCache(t)

	require.NoError(t, c.Store("testnet", "testnet", "old"))
	require.NoError(t, c.Store("testnet", "testnet", "new"))

	snapshot, err := c.Get("testnet")
	require.NoError(t, err)
	assert.Equal(t, "new", snapshot.Data)

	snapshots, err := c.List()
	require.NoError(t, err)
	assert.Len(t, snapshots, 1)
}

func TestList(t *testing.T) {
	c := openTestCache(t)

	require.NoError(t, c.Store("previewnet", "preview", "a"))
	require.NoError(t, c.Store("testnet", "testnet", "b"))

	snapshots, err := c.List()
	require.NoError(t, err)
	require.Len(t, snapshots, 2)
	// Bolt iterates keys in byte order.
	assert.Equal(t, "previewnet", snapshots[0].Deployment)
	assert.Equal(t, "testnet", snapshots[1].Deployment)
}

func TestDelete(t *testing.T) {
	c := openTestCache(t)

	require.NoError(t, c.Store("testnet", "testnet", "data"))
	require.NoError(t, c.Delete("testnet"))

	_, err := c.Get("testnet")
	assert.True(t, errdefs.IsNotFound(err))

	// Deleting an absent key is not an error.
	assert.NoError(t, c.Delete("testnet"))
}

func TestReopenPersists(t *testing.T) {
	dir := t.TempDir()

	c, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, c.Store("testnet", "testnet", "data"))
	require.NoError(t, c.Close())

	c, err = Open(dir)
	require.NoError(t, err)
	defer c.Close()

	snapshot, err := c.Get("testnet")
	require.NoError(t, err)
	assert.Equal(t, "data", snapshot.Data)
}
