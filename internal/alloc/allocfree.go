package alloc

import "github.com/AaLexUser/low-level-programming/errs"

// tailChunk walks next_chunk from head and returns the last chunk's
// header.
func (m *Manager) tailChunk(head int64) (ChunkHeader, error) {
	cur := head
	for {
		h, err := m.ChunkHeaderAt(cur)
		if err != nil {
			return ChunkHeader{}, err
		}
		if h.NextChunk == SentinelNone {
			return h, nil
		}
		cur = h.NextChunk
	}
}

// Alloc hands out a block from the collection rooted at head. It
// always checks the tail chunk first (freed blocks stay in their home
// chunk, so allocation is not perfectly packed) and only grows the
// chain when the tail is full.
func (m *Manager) Alloc(head int64) (Chblix, error) {
	tail, err := m.tailChunk(head)
	if err != nil {
		return Fail, err
	}
	if tail.NumFreeBlocks == 0 {
		newIdx, err := m.ChunkInit(tail.BlockSize, tail.Capacity)
		if err != nil {
			return Fail, err
		}
		if err := m.ChunkAppend(head, newIdx); err != nil {
			return Fail, err
		}
		tail, err = m.ChunkHeaderAt(newIdx)
		if err != nil {
			return Fail, err
		}
	}
	blockIdx := tail.FirstFreeBlock
	if blockIdx == SentinelNone {
		return Fail, errs.New(errs.KindAlloc, "free list head is sentinel with free blocks remaining")
	}
	next, err := m.readFreeLink(tail.ChunkIdx, tail.BlockSize, blockIdx)
	if err != nil {
		return Fail, err
	}
	tail.FirstFreeBlock = next
	tail.NumFreeBlocks--
	if err := m.writeHeader(tail); err != nil {
		return Fail, err
	}
	return Chblix{ChunkIdx: tail.ChunkIdx, BlockIdx: blockIdx}, nil
}

// isSoleChunk reports whether idx is the only chunk in the chain
// rooted at head (i.e. head == idx and it has no next_chunk).
func isSoleChunk(head int64, h ChunkHeader) bool {
	return head == h.ChunkIdx && h.NextChunk == SentinelNone
}

// Free pushes chblix onto its owning chunk's free list. If that empties
// the chunk and the chunk is not the collection's sole remaining
// chunk, the chunk is unlinked from the chain (updating the
// predecessor's next_chunk, or promoting the successor to head) and
// returned to the free-chunk pool. Free returns the collection's
// (possibly updated) head and whether the owning chunk was destroyed.
func (m *Manager) Free(head int64, c Chblix) (newHead int64, destroyed bool, err error) {
	h, err := m.ChunkHeaderAt(c.ChunkIdx)
	if err != nil {
		return head, false, err
	}
	if err := m.writeFreeLink(c.ChunkIdx, h.BlockSize, c.BlockIdx, h.FirstFreeBlock); err != nil {
		return head, false, err
	}
	h.FirstFreeBlock = c.BlockIdx
	h.NumFreeBlocks++
	if err := m.writeHeader(h); err != nil {
		return head, false, err
	}

	if !h.IsEmpty() || isSoleChunk(head, h) {
		return head, false, nil
	}

	if c.ChunkIdx == head {
		newHead = h.NextChunk
		if err := m.ChunkDestroy(c.ChunkIdx); err != nil {
			return head, false, err
		}
		return newHead, true, nil
	}

	predIdx, err := m.findPredecessor(head, c.ChunkIdx)
	if err != nil {
		return head, false, err
	}
	pred, err := m.ChunkHeaderAt(predIdx)
	if err != nil {
		return head, false, err
	}
	pred.NextChunk = h.NextChunk
	if err := m.writeHeader(pred); err != nil {
		return head, false, err
	}
	if err := m.ChunkDestroy(c.ChunkIdx); err != nil {
		return head, false, err
	}
	return head, true, nil
}

func (m *Manager) findPredecessor(head, target int64) (int64, error) {
	cur := head
	for {
		h, err := m.ChunkHeaderAt(cur)
		if err != nil {
			return 0, err
		}
		if h.NextChunk == target {
			return cur, nil
		}
		if h.NextChunk == SentinelNone {
			return 0, errs.New(errs.KindInvalidHandle, "chunk not reachable from head")
		}
		cur = h.NextChunk
	}
}

// LiveBlockIndices walks the intrusive free list of chunk h and returns
// every block index NOT on it, in ascending order. It also verifies
// the free-list-termination invariant: the walk must visit exactly
// NumFreeBlocks slots and terminate at the sentinel within Capacity
// steps.
func (m *Manager) LiveBlockIndices(h ChunkHeader) ([]int64, error) {
	free := make(map[int64]bool, h.NumFreeBlocks)
	cur := h.FirstFreeBlock
	for i := int64(0); i < h.NumFreeBlocks; i++ {
		if cur == SentinelNone {
			return nil, errs.New(errs.KindAlloc, "free list ended early")
		}
		if free[cur] {
			return nil, errs.New(errs.KindAlloc, "free list cycle detected")
		}
		free[cur] = true
		next, err := m.readFreeLink(h.ChunkIdx, h.BlockSize, cur)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	if cur != SentinelNone {
		return nil, errs.New(errs.KindAlloc, "free list did not terminate at sentinel")
	}
	live := make([]int64, 0, h.Capacity-h.NumFreeBlocks)
	for i := int64(0); i < h.Capacity; i++ {
		if !free[i] {
			live = append(live, i)
		}
	}
	return live, nil
}
