package table

import "encoding/binary"

func putInt64(buf []byte, v int64) { binary.LittleEndian.PutUint64(buf, uint64(v)) }
func getInt64(buf []byte) int64    { return int64(binary.LittleEndian.Uint64(buf)) }
