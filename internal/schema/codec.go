package schema

import "encoding/binary"

func putInt32(buf []byte, v int32) { binary.LittleEndian.PutUint32(buf, uint32(v)) }
func getInt32(buf []byte) int32    { return int32(binary.LittleEndian.Uint32(buf)) }
func putInt64(buf []byte, v int64) { binary.LittleEndian.PutUint64(buf, uint64(v)) }
func getInt64(buf []byte) int64    { return int64(binary.LittleEndian.Uint64(buf)) }
