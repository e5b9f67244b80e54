// Package varchar is the side heap for values whose size exceeds a
// fixed field width (component D). A string of N bytes occupies
// ceil(N/grain) blocks, each carrying grain payload bytes plus a
// continuation chblix, chained through the shared heap collection
// that backs every VARCHAR field in the database.
//
// Grounded on kv-store/free_list.go's intrusive-chain style (a header
// + payload + explicit "next" link per node), applied here to values
// instead of free pointers.
package varchar

import (
	"github.com/AaLexUser/low-level-programming/errs"
	"github.com/AaLexUser/low-level-programming/internal/alloc"
	"github.com/AaLexUser/low-level-programming/internal/assert"
)

// continuationSize is the width of the (chunk_idx, block_idx) pointer
// stored at the end of every grain.
const continuationSize = 16

// Ticket is the opaque (size, chblix-into-heap) reference a VARCHAR
// field holds. The empty ticket (Size 0) carries no chain.
type Ticket struct {
	Size uint64
	Head alloc.Chblix
}

// EmptyTicket is the ticket for a zero-length string.
var EmptyTicket = Ticket{Size: 0, Head: alloc.Fail}

// WireSize is the on-disk width of an encoded ticket: u64 size + i64
// chunk_idx + i64 block_idx.
const WireSize = 8 + 8 + 8

// Heap is the variable-length string store. Grain is the number of
// usable payload bytes per block (the caller-facing grain); the
// physical chunk block size used with the allocator is grain plus the
// continuation pointer's width.
type Heap struct {
	mgr   *alloc.Manager
	root  int64
	grain int64
}

// Create allocates a new heap collection with the given payload grain
// and returns a Heap bound to it.
func Create(mgr *alloc.Manager, grain int64) (*Heap, error) {
	assert.Assert(grain > 0, "varchar: heap created with non-positive grain")
	root, err := mgr.NewCollection(grain + continuationSize)
	if err != nil {
		return nil, err
	}
	if err := mgr.SetVarcharHeapRoot(root); err != nil {
		return nil, err
	}
	return &Heap{mgr: mgr, root: root, grain: grain}, nil
}

// Open binds a Heap to an already-existing root chunk.
func Open(mgr *alloc.Manager, root int64, grain int64) *Heap {
	return &Heap{mgr: mgr, root: root, grain: grain}
}

// Root returns the heap collection's current root chunk index.
func (h *Heap) Root() int64 { return h.root }

func (h *Heap) blockSize() int64 { return h.grain + continuationSize }

func (h *Heap) encodeBlock(payload []byte, next alloc.Chblix) []byte {
	buf := make([]byte, h.blockSize())
	copy(buf, payload)
	encodeChblix(buf[h.grain:], next)
	return buf
}

func (h *Heap) decodeBlock(buf []byte) (payload []byte, next alloc.Chblix) {
	return buf[:h.grain], decodeChblix(buf[h.grain:])
}

func encodeChblix(buf []byte, c alloc.Chblix) {
	putInt64(buf[0:8], c.ChunkIdx)
	putInt64(buf[8:16], c.BlockIdx)
}

func decodeChblix(buf []byte) alloc.Chblix {
	return alloc.Chblix{ChunkIdx: getInt64(buf[0:8]), BlockIdx: getInt64(buf[8:16])}
}

// Put allocates a chain of blocks, writes data into it, and returns
// the resulting ticket.
func (h *Heap) Put(data []byte) (Ticket, error) {
	n := len(data)
	if n == 0 {
		return EmptyTicket, nil
	}
	numBlocks := (int64(n) + h.grain - 1) / h.grain

	chblixes := make([]alloc.Chblix, numBlocks)
	for i := int64(0); i < numBlocks; i++ {
		c, err := h.mgr.Alloc(h.root)
		if err != nil {
			return Ticket{}, err
		}
		chblixes[i] = c
	}

	for i := int64(0); i < numBlocks; i++ {
		start := i * h.grain
		end := start + h.grain
		if end > int64(n) {
			end = int64(n)
		}
		next := alloc.Fail
		if i+1 < numBlocks {
			next = chblixes[i+1]
		}
		buf := h.encodeBlock(data[start:end], next)
		if err := h.mgr.WriteBlock(chblixes[i], buf); err != nil {
			return Ticket{}, err
		}
	}
	return Ticket{Size: uint64(n), Head: chblixes[0]}, nil
}

// Get walks the ticket's chain and copies its bytes into a new slice.
func (h *Heap) Get(t Ticket) ([]byte, error) {
	if t.Size == 0 {
		return []byte{}, nil
	}
	out := make([]byte, 0, t.Size)
	cur := t.Head
	raw := make([]byte, h.blockSize())
	for {
		if err := h.mgr.ReadBlock(cur, raw); err != nil {
			return nil, err
		}
		payload, next := h.decodeBlock(raw)
		remaining := int64(t.Size) - int64(len(out))
		take := h.grain
		if remaining < take {
			take = remaining
		}
		out = append(out, payload[:take]...)
		if int64(len(out)) >= int64(t.Size) {
			break
		}
		if next.IsFail() {
			return nil, errs.New(errs.KindIO, "varchar chain ended before ticket size was reached")
		}
		cur = next
	}
	return out, nil
}

// Del frees every block in the ticket's chain.
func (h *Heap) Del(t Ticket) error {
	if t.Size == 0 {
		return nil
	}
	cur := t.Head
	raw := make([]byte, h.blockSize())
	for {
		if err := h.mgr.ReadBlock(cur, raw); err != nil {
			return err
		}
		_, next := h.decodeBlock(raw)
		newRoot, _, err := h.mgr.Free(h.root, cur)
		if err != nil {
			return err
		}
		if newRoot != h.root {
			h.root = newRoot
			if err := h.mgr.SetVarcharHeapRoot(newRoot); err != nil {
				return err
			}
		}
		if next.IsFail() {
			break
		}
		cur = next
	}
	return nil
}

// Update frees the old chain and writes a new one; tickets are not
// stable across Update.
func (h *Heap) Update(t Ticket, data []byte) (Ticket, error) {
	if err := h.Del(t); err != nil {
		return Ticket{}, err
	}
	return h.Put(data)
}

// EncodeTicket serializes a ticket to its wire representation.
func EncodeTicket(t Ticket) []byte {
	buf := make([]byte, WireSize)
	putUint64(buf[0:8], t.Size)
	putInt64(buf[8:16], t.Head.ChunkIdx)
	putInt64(buf[16:24], t.Head.BlockIdx)
	return buf
}

// DecodeTicket parses a ticket from its wire representation.
func DecodeTicket(buf []byte) Ticket {
	return Ticket{
		Size: getUint64(buf[0:8]),
		Head: alloc.Chblix{ChunkIdx: getInt64(buf[8:16]), BlockIdx: getInt64(buf[16:24])},
	}
}
