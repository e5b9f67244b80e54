package alloc

// Iterator yields every allocated block of a collection in chunk
// order, block order. It supports one specific mutation during
// iteration: deleting the block just yielded, via DeleteCurrent. Any
// other mutation performed while an Iterator is live is undefined.
type Iterator struct {
	mgr  *Manager
	head int64

	chunk    ChunkHeader
	live     []int64
	pos      int
	done     bool
	loadErr  error
	hasChunk bool
}

// Iterate begins a walk over the collection rooted at head.
func (m *Manager) Iterate(head int64) *Iterator {
	it := &Iterator{mgr: m, head: head}
	it.loadChunk(head)
	return it
}

func (it *Iterator) loadChunk(idx int64) {
	if idx == SentinelNone {
		it.done = true
		it.hasChunk = false
		return
	}
	h, err := it.mgr.ChunkHeaderAt(idx)
	if err != nil {
		it.loadErr = err
		it.done = true
		return
	}
	live, err := it.mgr.LiveBlockIndices(h)
	if err != nil {
		it.loadErr = err
		it.done = true
		return
	}
	it.chunk = h
	it.live = live
	it.pos = 0
	it.hasChunk = true
	it.advancePastEmptyChunks()
}

// advancePastEmptyChunks skips forward while the current chunk has no
// live blocks left to yield.
func (it *Iterator) advancePastEmptyChunks() {
	for it.hasChunk && it.pos >= len(it.live) {
		next := it.chunk.NextChunk
		if next == SentinelNone {
			it.done = true
			it.hasChunk = false
			return
		}
		it.loadChunk(next)
	}
}

// Err returns any error encountered while walking the chain.
func (it *Iterator) Err() error { return it.loadErr }

// Valid reports whether Current returns a live block.
func (it *Iterator) Valid() bool {
	return it.loadErr == nil && !it.done && it.hasChunk && it.pos < len(it.live)
}

// Current returns the chblix currently positioned on.
func (it *Iterator) Current() Chblix {
	if !it.Valid() {
		return Fail
	}
	return Chblix{ChunkIdx: it.chunk.ChunkIdx, BlockIdx: it.live[it.pos]}
}

// ChunkHeader exposes the header of the chunk currently being walked,
// letting a caller inspect capacity/free-block bookkeeping mid-scan.
func (it *Iterator) ChunkHeader() ChunkHeader { return it.chunk }

// Next advances the iterator to the next live block.
func (it *Iterator) Next() {
	if !it.Valid() {
		return
	}
	it.pos++
	it.advancePastEmptyChunks()
}

// DeleteCurrent frees the block the iterator is positioned on and
// repositions correctly whether or not that empties the owning chunk.
// It returns the collection's (possibly updated) head; the caller must
// persist it as the collection's new root when it changes.
func (it *Iterator) DeleteCurrent(collectionHead int64) (newHead int64, err error) {
	if !it.Valid() {
		return collectionHead, nil
	}
	cur := it.Current()
	preDeleteNext := it.chunk.NextChunk

	newHead, destroyed, err := it.mgr.Free(collectionHead, cur)
	if err != nil {
		return collectionHead, err
	}
	it.head = newHead

	if destroyed {
		// The owning chunk is gone; resume at the head of the chunk
		// that followed it in the pre-delete chain, per the
		// iteration-under-mutation rule.
		it.loadChunk(preDeleteNext)
		return newHead, it.loadErr
	}

	// Still-live chunk: drop the deleted index from the current live
	// set without advancing pos, since the next element slides in.
	it.live = append(it.live[:it.pos], it.live[it.pos+1:]...)
	it.chunk.NumFreeBlocks++
	it.advancePastEmptyChunks()
	return newHead, nil
}
