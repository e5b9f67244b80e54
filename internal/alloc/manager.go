// Package alloc is the engine's page/chunk/block allocator: it maps a
// page to a chunk with a fixed header plus a block payload, maintains
// the per-collection forward chain (next_chunk) and the engine-wide
// free-chunk pool, and hands out chblix-identified fixed-size blocks
// out of chunk chains.
//
// It is grounded on kv-store/free_list.go (an intrusive linked free
// list over fixed-size on-disk records, the same shape as a chunk's
// free-block list here) and btree/disk.go (page-granular reads
// through a single mapped window).
package alloc

import (
	"github.com/dgraph-io/ristretto/v2"

	"github.com/AaLexUser/low-level-programming/errs"
	"github.com/AaLexUser/low-level-programming/internal/assert"
	"github.com/AaLexUser/low-level-programming/internal/pagefile"
)

// Manager owns the paged file and the chunk/block bookkeeping on top
// of it. All chunk-chain traversal in the engine funnels through here.
type Manager struct {
	pf *pagefile.Manager
	sb Superblock

	// headerCache is a non-load-bearing decode accelerator: a cache
	// miss always falls back to pf.Map + decode, so correctness never
	// depends on a hit. Every header write invalidates its entry
	// immediately. Scoped to decoded headers rather than raw page
	// bytes.
	headerCache *ristretto.Cache[int64, ChunkHeader]
}

// Open creates a Manager over an already-open pagefile.Manager,
// initializing a fresh superblock if the file was empty or loading an
// existing one otherwise.
func Open(pf *pagefile.Manager, pageSize int, varcharGrain int64) (*Manager, error) {
	cache, err := ristretto.NewCache(&ristretto.Config[int64, ChunkHeader]{
		NumCounters: 1e4,
		MaxCost:     1 << 16,
		BufferItems: 64,
	})
	if err != nil {
		return nil, errs.Wrap(errs.KindIO, err, "create header cache")
	}
	m := &Manager{pf: pf, headerCache: cache}

	if pf.FileSize() == 0 {
		if _, err := pf.NewPage(); err != nil { // page 0: superblock
			return nil, err
		}
		m.sb = Superblock{
			PageSize:        uint32(pageSize),
			MetatableRoot:   SentinelNone,
			VarcharHeapRoot: SentinelNone,
			FreeChunkHead:   SentinelNone,
			VarcharGrain:    varcharGrain,
		}
		if err := m.writeSuperblock(); err != nil {
			return nil, err
		}
		return m, nil
	}

	if err := pf.Map(0); err != nil {
		return nil, err
	}
	buf := make([]byte, superblockPayloadSize)
	if err := pf.Read(buf, 0); err != nil {
		return nil, err
	}
	sb, err := decodeSuperblock(buf)
	if err != nil {
		return nil, err
	}
	m.sb = sb
	return m, nil
}

// Superblock returns a copy of the current superblock state.
func (m *Manager) Superblock() Superblock { return m.sb }

func (m *Manager) writeSuperblock() error {
	if err := m.pf.Map(0); err != nil {
		return err
	}
	buf := make([]byte, superblockPayloadSize)
	m.sb.encode(buf)
	return m.pf.Write(buf, 0)
}

// SetMetatableRoot persists the metatable's root chunk index.
func (m *Manager) SetMetatableRoot(idx int64) error {
	m.sb.MetatableRoot = idx
	return m.writeSuperblock()
}

// SetVarcharHeapRoot persists the varchar heap's root chunk index.
func (m *Manager) SetVarcharHeapRoot(idx int64) error {
	m.sb.VarcharHeapRoot = idx
	return m.writeSuperblock()
}

// pageOffset returns the byte offset of chunk idx's page. Chunk index
// equals owning page index; page 0 is the superblock so chunk indices
// start at 1.
func (m *Manager) pageOffset(idx int64) int64 {
	return idx * int64(m.sb.PageSize)
}

// Capacity computes floor((page_size - header_size) / block_size), the
// maximum number of blocks a chunk with the given block size can hold.
func (m *Manager) Capacity(blockSize int64) int64 {
	return (int64(m.sb.PageSize) - ChunkHeaderSize) / blockSize
}

// ChunkHeaderAt loads the header of chunk idx, preferring the decode
// cache over remapping the page.
func (m *Manager) ChunkHeaderAt(idx int64) (ChunkHeader, error) {
	if h, ok := m.headerCache.Get(idx); ok {
		return h, nil
	}
	if err := m.pf.Map(m.pageOffset(idx)); err != nil {
		return ChunkHeader{}, err
	}
	buf := make([]byte, ChunkHeaderSize)
	if err := m.pf.Read(buf, 0); err != nil {
		return ChunkHeader{}, err
	}
	h := decodeChunkHeader(buf)
	m.headerCache.Set(idx, h, 1)
	return h, nil
}

func (m *Manager) writeHeader(h ChunkHeader) error {
	if err := m.pf.Map(m.pageOffset(h.ChunkIdx)); err != nil {
		return err
	}
	buf := make([]byte, ChunkHeaderSize)
	h.encode(buf)
	if err := m.pf.Write(buf, 0); err != nil {
		return err
	}
	m.headerCache.Del(h.ChunkIdx)
	m.headerCache.Wait()
	return nil
}

// NewCollection creates a new chunk chain (a single head chunk) for
// blocks of the given size and returns its root chunk index.
func (m *Manager) NewCollection(blockSize int64) (int64, error) {
	return m.ChunkInit(blockSize, m.Capacity(blockSize))
}

// ChunkInit allocates a new page (reusing one from the free-chunk pool
// if available), writes its header, and initializes the intrusive
// free-block list to [0,1,2,...,capacity-1,SENTINEL]. It returns the
// new chunk's index.
func (m *Manager) ChunkInit(blockSize, capacity int64) (int64, error) {
	assert.Assert(blockSize > 0, "alloc: chunk init with non-positive block size")
	assert.Assert(capacity > 0, "alloc: chunk init with non-positive capacity")
	idx, err := m.takeChunkPage()
	if err != nil {
		return 0, err
	}
	h := ChunkHeader{
		ChunkIdx:       idx,
		Capacity:       capacity,
		NumFreeBlocks:  capacity,
		BlockSize:      blockSize,
		NextChunk:      SentinelNone,
		FirstFreeBlock: 0,
	}
	if err := m.writeHeader(h); err != nil {
		return 0, err
	}
	for i := int64(0); i < capacity; i++ {
		next := i + 1
		if i == capacity-1 {
			next = SentinelNone
		}
		if err := m.writeFreeLink(idx, blockSize, i, next); err != nil {
			return 0, err
		}
	}
	return idx, nil
}

// takeChunkPage pops a page off the engine-wide free-chunk pool if one
// exists, otherwise appends a fresh page to the file.
func (m *Manager) takeChunkPage() (int64, error) {
	if m.sb.FreeChunkHead != SentinelNone {
		idx := m.sb.FreeChunkHead
		h, err := m.ChunkHeaderAt(idx)
		if err != nil {
			return 0, err
		}
		m.sb.FreeChunkHead = h.NextChunk
		if err := m.writeSuperblock(); err != nil {
			return 0, err
		}
		return idx, nil
	}
	offset, err := m.pf.NewPage()
	if err != nil {
		return 0, err
	}
	return offset / int64(m.sb.PageSize), nil
}

// ChunkDestroy pushes chunk idx onto the free-chunk chain rooted in
// the superblock; its header's next_chunk field becomes the free-pool
// link, repurposing the same 48-byte layout the chunk used while live.
func (m *Manager) ChunkDestroy(idx int64) error {
	h := ChunkHeader{
		ChunkIdx:       idx,
		Capacity:       0,
		NumFreeBlocks:  0,
		BlockSize:      0,
		NextChunk:      m.sb.FreeChunkHead,
		FirstFreeBlock: SentinelNone,
	}
	if err := m.writeHeader(h); err != nil {
		return err
	}
	m.sb.FreeChunkHead = idx
	return m.writeSuperblock()
}

// DestroyCollection frees every chunk in the chain rooted at head,
// returning each page to the free-chunk pool.
func (m *Manager) DestroyCollection(head int64) error {
	cur := head
	for cur != SentinelNone {
		h, err := m.ChunkHeaderAt(cur)
		if err != nil {
			return err
		}
		next := h.NextChunk
		if err := m.ChunkDestroy(cur); err != nil {
			return err
		}
		cur = next
	}
	return nil
}

// ChunkAppend walks next_chunk from head and links newIdx as the tail.
func (m *Manager) ChunkAppend(head, newIdx int64) error {
	cur := head
	for {
		h, err := m.ChunkHeaderAt(cur)
		if err != nil {
			return err
		}
		if h.NextChunk == SentinelNone {
			h.NextChunk = newIdx
			return m.writeHeader(h)
		}
		cur = h.NextChunk
	}
}

// readFreeLink / writeFreeLink manage the intrusive singly linked free
// list stored in the first 8 bytes of each free block.
func (m *Manager) readFreeLink(chunkIdx, blockSize, blockIdx int64) (int64, error) {
	if err := m.pf.Map(m.pageOffset(chunkIdx)); err != nil {
		return 0, err
	}
	buf := make([]byte, 8)
	if err := m.pf.Read(buf, int(blockOffset(blockSize, blockIdx))); err != nil {
		return 0, err
	}
	return decodeInt64(buf), nil
}

func (m *Manager) writeFreeLink(chunkIdx, blockSize, blockIdx, next int64) error {
	if err := m.pf.Map(m.pageOffset(chunkIdx)); err != nil {
		return err
	}
	buf := make([]byte, 8)
	encodeInt64(buf, next)
	return m.pf.Write(buf, int(blockOffset(blockSize, blockIdx)))
}

// ReadBlock copies the block's bytes into dst.
func (m *Manager) ReadBlock(c Chblix, dst []byte) error {
	h, err := m.ChunkHeaderAt(c.ChunkIdx)
	if err != nil {
		return err
	}
	assert.Assert(int64(len(dst)) == h.BlockSize, "alloc: read buffer size does not match chunk block size")
	if err := m.pf.Map(m.pageOffset(c.ChunkIdx)); err != nil {
		return err
	}
	return m.pf.Read(dst, int(blockOffset(h.BlockSize, c.BlockIdx)))
}

// WriteBlock copies src into the block.
func (m *Manager) WriteBlock(c Chblix, src []byte) error {
	h, err := m.ChunkHeaderAt(c.ChunkIdx)
	if err != nil {
		return err
	}
	assert.Assert(int64(len(src)) == h.BlockSize, "alloc: write buffer size does not match chunk block size")
	if err := m.pf.Map(m.pageOffset(c.ChunkIdx)); err != nil {
		return err
	}
	return m.pf.Write(src, int(blockOffset(h.BlockSize, c.BlockIdx)))
}
