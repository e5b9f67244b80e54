package alloc

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/AaLexUser/low-level-programming/internal/pagefile"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	pf, err := pagefile.Open(path, 4096)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pf.Close() })

	m, err := Open(pf, 4096, 8)
	require.NoError(t, err)
	return m
}

func TestAllocFreeRoundTrip(t *testing.T) {
	m := newTestManager(t)
	root, err := m.NewCollection(16)
	require.NoError(t, err)

	c, err := m.Alloc(root)
	require.NoError(t, err)
	require.False(t, c.IsFail())

	payload := []byte("0123456789abcdef")
	require.NoError(t, m.WriteBlock(c, payload))

	got := make([]byte, 16)
	require.NoError(t, m.ReadBlock(c, got))
	require.Equal(t, payload, got)

	newRoot, destroyed, err := m.Free(root, c)
	require.NoError(t, err)
	require.False(t, destroyed) // sole chunk stays even when emptied
	require.Equal(t, root, newRoot)
}

func TestAllocGrowsChainWhenTailFull(t *testing.T) {
	m := newTestManager(t)
	root, err := m.NewCollection(16)
	require.NoError(t, err)

	cap0 := m.Capacity(16)
	seen := make([]Chblix, 0, cap0+1)
	for i := int64(0); i < cap0+1; i++ {
		c, err := m.Alloc(root)
		require.NoError(t, err)
		seen = append(seen, c)
	}

	h0, err := m.ChunkHeaderAt(root)
	require.NoError(t, err)
	require.NotEqual(t, SentinelNone, h0.NextChunk, "chain should have grown")

	last := seen[len(seen)-1]
	require.Equal(t, h0.NextChunk, last.ChunkIdx)
}

func TestFreeUnlinksEmptyNonHeadChunk(t *testing.T) {
	m := newTestManager(t)
	root, err := m.NewCollection(16)
	require.NoError(t, err)
	cap0 := m.Capacity(16)

	first := make([]Chblix, cap0)
	for i := int64(0); i < cap0; i++ {
		c, err := m.Alloc(root)
		require.NoError(t, err)
		first[i] = c
	}
	second, err := m.Alloc(root) // forces growth
	require.NoError(t, err)

	h0, err := m.ChunkHeaderAt(root)
	require.NoError(t, err)
	secondChunk := h0.NextChunk
	require.Equal(t, secondChunk, second.ChunkIdx)

	newRoot, destroyed, err := m.Free(root, second)
	require.NoError(t, err)
	require.True(t, destroyed)
	require.Equal(t, root, newRoot)

	h0After, err := m.ChunkHeaderAt(root)
	require.NoError(t, err)
	require.Equal(t, SentinelNone, h0After.NextChunk)

	_ = first
}

func TestFreeDestroyingHeadPromotesSuccessor(t *testing.T) {
	m := newTestManager(t)
	root, err := m.NewCollection(16)
	require.NoError(t, err)
	cap0 := m.Capacity(16)

	for i := int64(0); i < cap0; i++ {
		_, err := m.Alloc(root)
		require.NoError(t, err)
	}
	last, err := m.Alloc(root)
	require.NoError(t, err)

	h0, err := m.ChunkHeaderAt(root)
	require.NoError(t, err)
	secondChunk := h0.NextChunk

	// Free everything in the head chunk except nothing left in it: we
	// never freed any of the first cap0 blocks, so free them all now.
	it := m.Iterate(root)
	var freed int
	head := root
	for it.Valid() {
		if it.Current().ChunkIdx != root {
			break
		}
		newHead, err := it.DeleteCurrent(head)
		require.NoError(t, err)
		head = newHead
		freed++
	}
	require.Equal(t, secondChunk, head)
	_ = last
	_ = freed
}

func TestLiveBlockIndicesDetectsCorruptFreeList(t *testing.T) {
	m := newTestManager(t)
	root, err := m.NewCollection(16)
	require.NoError(t, err)

	h, err := m.ChunkHeaderAt(root)
	require.NoError(t, err)
	h.NumFreeBlocks = h.Capacity + 1 // corrupt: claims more free than exist
	_, err = m.LiveBlockIndices(h)
	require.Error(t, err)
}

func TestOpenPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "persist.db")
	pf, err := pagefile.Open(path, 4096)
	require.NoError(t, err)
	m, err := Open(pf, 4096, 8)
	require.NoError(t, err)
	root, err := m.NewCollection(16)
	require.NoError(t, err)
	require.NoError(t, m.SetMetatableRoot(root))
	require.NoError(t, pf.Close())

	pf2, err := pagefile.Open(path, 4096)
	require.NoError(t, err)
	defer func() { _ = pf2.Close() }()
	m2, err := Open(pf2, 4096, 8)
	require.NoError(t, err)
	require.Equal(t, root, m2.Superblock().MetatableRoot)
	_ = os.Remove
}
