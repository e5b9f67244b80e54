package alloc

// Chblix is the stable identifier of a record: (chunk index, block
// index within that chunk). It remains valid as long as the record is
// not deleted; the file can grow without invalidating it.
type Chblix struct {
	ChunkIdx int64
	BlockIdx int64
}

// Fail is the distinguished "absence/failure" handle.
var Fail = Chblix{ChunkIdx: -1, BlockIdx: -1}

// IsFail reports whether c is the distinguished failure handle.
func (c Chblix) IsFail() bool { return c == Fail }
