package alloc

import "encoding/binary"

func decodeInt64(buf []byte) int64 {
	return int64(binary.LittleEndian.Uint64(buf))
}

func encodeInt64(buf []byte, v int64) {
	binary.LittleEndian.PutUint64(buf, uint64(v))
}
