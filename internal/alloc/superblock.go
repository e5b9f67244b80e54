package alloc

import (
	"encoding/binary"

	"github.com/AaLexUser/low-level-programming/errs"
)

// superblockMagic identifies the file format, in the
// "BuildYourOwnDB06"-style signature tradition btree/disk.go uses.
const superblockMagic = "LLPROGDB"
const superblockVersion uint32 = 1

// Superblock is page 0: file-wide metadata. It is the only
// fixed-offset structure in the file; everything else is reached by
// walking chunk chains from the roots recorded here.
//
//	| magic | version | page_size | metatable_root | varchar_heap_root | free_chunk_head | varchar_grain |
//	|  8B   |   4B    |    4B     |      i64        |        i64         |       i64        |      i64      |
type Superblock struct {
	PageSize        uint32
	MetatableRoot   int64
	VarcharHeapRoot int64
	FreeChunkHead   int64
	VarcharGrain    int64
}

const superblockPayloadSize = 8 + 4 + 4 + 8 + 8 + 8 + 8

func decodeSuperblock(buf []byte) (Superblock, error) {
	if string(buf[0:8]) != superblockMagic {
		return Superblock{}, errs.New(errs.KindIO, "bad superblock magic")
	}
	version := binary.LittleEndian.Uint32(buf[8:12])
	if version != superblockVersion {
		return Superblock{}, errs.New(errs.KindIO, "unsupported superblock version")
	}
	return Superblock{
		PageSize:        binary.LittleEndian.Uint32(buf[12:16]),
		MetatableRoot:   int64(binary.LittleEndian.Uint64(buf[16:24])),
		VarcharHeapRoot: int64(binary.LittleEndian.Uint64(buf[24:32])),
		FreeChunkHead:   int64(binary.LittleEndian.Uint64(buf[32:40])),
		VarcharGrain:    int64(binary.LittleEndian.Uint64(buf[40:48])),
	}, nil
}

func (s Superblock) encode(buf []byte) {
	copy(buf[0:8], []byte(superblockMagic))
	binary.LittleEndian.PutUint32(buf[8:12], superblockVersion)
	binary.LittleEndian.PutUint32(buf[12:16], s.PageSize)
	binary.LittleEndian.PutUint64(buf[16:24], uint64(s.MetatableRoot))
	binary.LittleEndian.PutUint64(buf[24:32], uint64(s.VarcharHeapRoot))
	binary.LittleEndian.PutUint64(buf[32:40], uint64(s.FreeChunkHead))
	binary.LittleEndian.PutUint64(buf[40:48], uint64(s.VarcharGrain))
}
