// Package compare is the typed comparator dispatch used by every
// predicate-driven table operation (component H): numeric fields
// compare by value, BOOL by equality only, CHAR[n] lexicographically
// over n bytes, and VARCHAR dereferences both tickets through the
// varchar heap before comparing byte-for-byte.
//
// Grounded on relationalDB/utils.go's cmpOP-style value comparison,
// generalized from its two-type (bytes/int64) switch to the full
// datatype set this catalog supports.
package compare

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/AaLexUser/low-level-programming/errs"
	"github.com/AaLexUser/low-level-programming/internal/schema"
	"github.com/AaLexUser/low-level-programming/internal/varchar"
)

// Condition enumerates the relational operators a predicate may use.
type Condition int

const (
	EQ Condition = iota
	NEQ
	LT
	LE
	GT
	GE
)

// Resolver dereferences a VARCHAR ticket into its bytes. *varchar.Heap
// satisfies this directly; it is an interface here (rather than a
// concrete dependency on a database type) so this package never needs
// to import anything above the allocator layer.
type Resolver interface {
	Get(t varchar.Ticket) ([]byte, error)
}

// ordering compares two encoded field values of the same datatype,
// returning -1, 0, or 1. VARCHAR requires res to dereference tickets.
func ordering(res Resolver, dt schema.DataType, a, b []byte) (int, error) {
	switch dt {
	case schema.INT64:
		av, bv := getInt64(a), getInt64(b)
		switch {
		case av < bv:
			return -1, nil
		case av > bv:
			return 1, nil
		default:
			return 0, nil
		}
	case schema.FLOAT32:
		av, bv := getFloat32(a), getFloat32(b)
		switch {
		case av < bv:
			return -1, nil
		case av > bv:
			return 1, nil
		default:
			return 0, nil
		}
	case schema.CHARN:
		return bytes.Compare(a, b), nil
	case schema.BOOL:
		return 0, errs.New(errs.KindType, "BOOL has no ordering, only equality")
	case schema.VARCHAR:
		if res == nil {
			return 0, errs.New(errs.KindType, "VARCHAR comparison requires a heap resolver")
		}
		av, err := res.Get(varchar.DecodeTicket(a))
		if err != nil {
			return 0, err
		}
		bv, err := res.Get(varchar.DecodeTicket(b))
		if err != nil {
			return 0, err
		}
		return bytes.Compare(av, bv), nil
	default:
		return 0, errs.New(errs.KindType, "unknown datatype")
	}
}

// equal reports byte-for-byte or value equality; cheaper than ordering
// for BOOL and avoids dereferencing VARCHAR tickets twice for EQ/NEQ.
func equal(res Resolver, dt schema.DataType, a, b []byte) (bool, error) {
	if dt == schema.BOOL {
		return a[0] == b[0], nil
	}
	cmp, err := ordering(res, dt, a, b)
	if err != nil {
		return false, err
	}
	return cmp == 0, nil
}

// Compare evaluates cond(a, b) for two encoded field values of
// datatype dt, dereferencing VARCHAR tickets through res (nil is fine
// for every datatype except VARCHAR).
func Compare(res Resolver, dt schema.DataType, a, b []byte, cond Condition) (bool, error) {
	switch cond {
	case EQ:
		return equal(res, dt, a, b)
	case NEQ:
		eq, err := equal(res, dt, a, b)
		return !eq, err
	case LT, LE, GT, GE:
		if dt == schema.BOOL {
			return false, errs.New(errs.KindType, "ordering comparison not valid for BOOL")
		}
		cmp, err := ordering(res, dt, a, b)
		if err != nil {
			return false, err
		}
		switch cond {
		case LT:
			return cmp < 0, nil
		case LE:
			return cmp <= 0, nil
		case GT:
			return cmp > 0, nil
		default: // GE
			return cmp >= 0, nil
		}
	default:
		return false, errs.New(errs.KindType, "unknown condition")
	}
}

// Equal is a convenience wrapper around Compare(..., EQ).
func Equal(res Resolver, dt schema.DataType, a, b []byte) (bool, error) {
	return Compare(res, dt, a, b, EQ)
}

func getInt64(buf []byte) int64 {
	return int64(binary.LittleEndian.Uint64(buf))
}

func getFloat32(buf []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(buf))
}
