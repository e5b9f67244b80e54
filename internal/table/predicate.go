package table

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/AaLexUser/low-level-programming/errs"
	"github.com/AaLexUser/low-level-programming/internal/compare"
	"github.com/AaLexUser/low-level-programming/internal/schema"
)

// Condition re-exports the compare package's relational operators so
// callers building predicates don't need a second import.
type Condition = compare.Condition

const (
	EQ  = compare.EQ
	NEQ = compare.NEQ
	LT  = compare.LT
	LE  = compare.LE
	GT  = compare.GT
	GE  = compare.GE
)

// evalCondition compares two already-decoded values of the row value's
// datatype. Numeric and BOOL comparisons route through the compare
// package's dispatch for a single source of truth on condition
// compatibility; CHAR[n]/VARCHAR compare their decoded byte content
// directly (the compare package's VARCHAR path expects an on-disk
// ticket, which a decoded Value no longer carries).
func evalCondition(a, b Value, cond Condition) (bool, error) {
	switch a.DType {
	case schema.BOOL:
		if cond != compare.EQ && cond != compare.NEQ {
			return false, errs.New(errs.KindType, "ordering comparison not valid for BOOL")
		}
		return compare.Compare(nil, schema.BOOL, []byte{boolByte(a.Bool)}, []byte{boolByte(b.Bool)}, cond)
	case schema.INT64:
		return compare.Compare(nil, schema.INT64, encodeI64(a.I64), encodeI64(b.I64), cond)
	case schema.FLOAT32:
		return compare.Compare(nil, schema.FLOAT32, encodeF32(a.F32), encodeF32(b.F32), cond)
	case schema.CHARN, schema.VARCHAR:
		return evalBytesCondition(a.Bytes, b.Bytes, cond)
	default:
		return false, errs.New(errs.KindType, "unknown datatype")
	}
}

func evalBytesCondition(a, b []byte, cond Condition) (bool, error) {
	cmp := bytes.Compare(a, b)
	switch cond {
	case compare.EQ:
		return cmp == 0, nil
	case compare.NEQ:
		return cmp != 0, nil
	case compare.LT:
		return cmp < 0, nil
	case compare.LE:
		return cmp <= 0, nil
	case compare.GT:
		return cmp > 0, nil
	case compare.GE:
		return cmp >= 0, nil
	default:
		return false, errs.New(errs.KindType, "unknown condition")
	}
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

func encodeI64(v int64) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, uint64(v))
	return buf
}

func encodeF32(v float32) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, math.Float32bits(v))
	return buf
}
