package varchar

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/AaLexUser/low-level-programming/internal/alloc"
	"github.com/AaLexUser/low-level-programming/internal/pagefile"
)

func newTestHeap(t *testing.T, grain int64) *Heap {
	t.Helper()
	path := filepath.Join(t.TempDir(), "varchar.db")
	pf, err := pagefile.Open(path, 4096)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pf.Close() })

	mgr, err := alloc.Open(pf, 4096, grain)
	require.NoError(t, err)

	h, err := Create(mgr, grain)
	require.NoError(t, err)
	return h
}

func TestPutGetRoundTripCrossGrain(t *testing.T) {
	h := newTestHeap(t, 8)

	data := []byte("this is a 40-byte string right?!!!!!!!!!")
	require.Len(t, data, 40)

	ticket, err := h.Put(data)
	require.NoError(t, err)
	require.Equal(t, uint64(40), ticket.Size)

	got, err := h.Get(ticket)
	require.NoError(t, err)
	require.Equal(t, data, got)
}

func TestUpdateIsNotStable(t *testing.T) {
	h := newTestHeap(t, 8)

	original, err := h.Put([]byte("this is a 40-byte string right?!!!!!!!!"))
	require.NoError(t, err)

	updated, err := h.Update(original, []byte("yes"))
	require.NoError(t, err)
	require.Equal(t, uint64(3), updated.Size)
	require.NotEqual(t, original.Head, updated.Head)

	got, err := h.Get(updated)
	require.NoError(t, err)
	require.Equal(t, []byte("yes"), got)
}

func TestEmptyStringTicket(t *testing.T) {
	h := newTestHeap(t, 8)

	ticket, err := h.Put(nil)
	require.NoError(t, err)
	require.Equal(t, EmptyTicket, ticket)

	got, err := h.Get(ticket)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestTicketWireRoundTrip(t *testing.T) {
	ticket := Ticket{Size: 40, Head: alloc.Chblix{ChunkIdx: 3, BlockIdx: 7}}
	buf := EncodeTicket(ticket)
	require.Len(t, buf, WireSize)
	require.Equal(t, ticket, DecodeTicket(buf))
}

func TestDelFreesChain(t *testing.T) {
	h := newTestHeap(t, 8)

	ticket, err := h.Put([]byte("this is a 40-byte string right?!!!!!!!!"))
	require.NoError(t, err)
	require.NoError(t, h.Del(ticket))

	// The blocks should now be reusable: a new Put of the same size
	// must succeed without growing the chunk chain further than the
	// first Put already did.
	_, err = h.Put([]byte("another forty byte string go go go go!!"))
	require.NoError(t, err)

	hdr, err := h.mgr.ChunkHeaderAt(h.Root())
	require.NoError(t, err)
	require.Equal(t, alloc.SentinelNone, hdr.NextChunk)
}
