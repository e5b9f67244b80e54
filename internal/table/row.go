package table

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/AaLexUser/low-level-programming/errs"
	"github.com/AaLexUser/low-level-programming/internal/schema"
	"github.com/AaLexUser/low-level-programming/internal/varchar"
)

// Value is one field's decoded value; only the member matching its
// DType is meaningful. Grounded on relationalDB.Value (Type + I64 +
// Str), split into typed members instead of a single byte-string
// catch-all.
type Value struct {
	DType schema.DataType
	I64   int64
	F32   float32
	Bool  bool
	Bytes []byte // CHARN raw bytes, or VARCHAR's decoded string content
}

// Row is a table record: parallel column-name and value slices,
// positionally indexed. Positional indexing (not a name map) is what
// lets a joined row carry duplicate field names.
type Row struct {
	Cols []string
	Vals []Value
}

// Get returns the first value whose column name matches; ambiguous
// for duplicate-named (joined) columns, use GetAt for those.
func (r *Row) Get(name string) (Value, bool) {
	for i, c := range r.Cols {
		if c == name {
			return r.Vals[i], true
		}
	}
	return Value{}, false
}

// GetAt returns the value at a positional index.
func (r *Row) GetAt(i int) Value { return r.Vals[i] }

// encodeValue writes v's bytes into the slot at field's offset/size,
// putting VARCHAR content into the heap first.
func (t *Table) encodeValue(slot []byte, f schema.Field, v Value) error {
	dst := slot[f.Offset : f.Offset+f.Size]
	switch f.DType {
	case schema.INT64:
		binary.LittleEndian.PutUint64(dst, uint64(v.I64))
	case schema.FLOAT32:
		binary.LittleEndian.PutUint32(dst, math.Float32bits(v.F32))
	case schema.BOOL:
		if v.Bool {
			dst[0] = 1
		} else {
			dst[0] = 0
		}
	case schema.CHARN:
		for i := range dst {
			dst[i] = 0
		}
		copy(dst, v.Bytes)
	case schema.VARCHAR:
		ticket, err := t.vheap.Put(v.Bytes)
		if err != nil {
			return err
		}
		copy(dst, varchar.EncodeTicket(ticket))
	default:
		return errs.New(errs.KindType, "unknown datatype")
	}
	return nil
}

// decodeValue reads field's bytes out of slot, dereferencing VARCHAR
// tickets through the heap.
func (t *Table) decodeValue(slot []byte, f schema.Field) (Value, error) {
	src := slot[f.Offset : f.Offset+f.Size]
	switch f.DType {
	case schema.INT64:
		return Value{DType: f.DType, I64: int64(binary.LittleEndian.Uint64(src))}, nil
	case schema.FLOAT32:
		return Value{DType: f.DType, F32: math.Float32frombits(binary.LittleEndian.Uint32(src))}, nil
	case schema.BOOL:
		return Value{DType: f.DType, Bool: src[0] != 0}, nil
	case schema.CHARN:
		out := make([]byte, len(src))
		copy(out, src)
		return Value{DType: f.DType, Bytes: bytes.TrimRight(out, "\x00")}, nil
	case schema.VARCHAR:
		ticket := varchar.DecodeTicket(src)
		data, err := t.vheap.Get(ticket)
		if err != nil {
			return Value{}, err
		}
		return Value{DType: f.DType, Bytes: data}, nil
	default:
		return Value{}, errs.New(errs.KindType, "unknown datatype")
	}
}

// encodeRow lays out a full row positionally against the table's
// schema; len(row.Vals) must equal len(schema fields).
func (t *Table) encodeRow(row *Row) ([]byte, error) {
	fields := t.sch.Fields()
	if len(row.Vals) != len(fields) {
		return nil, errs.New(errs.KindSchema, "row value count does not match schema field count")
	}
	slot := make([]byte, t.slotSize)
	for i, f := range fields {
		if err := t.encodeValue(slot, f, row.Vals[i]); err != nil {
			return nil, err
		}
	}
	return slot, nil
}

func (t *Table) decodeRow(slot []byte) (*Row, error) {
	fields := t.sch.Fields()
	row := &Row{
		Cols: make([]string, len(fields)),
		Vals: make([]Value, len(fields)),
	}
	for i, f := range fields {
		row.Cols[i] = f.Name
		v, err := t.decodeValue(slot, f)
		if err != nil {
			return nil, err
		}
		row.Vals[i] = v
	}
	return row, nil
}

// freeVarcharFields releases every VARCHAR field's heap chain found in
// an already-encoded slot, used before the slot itself is freed.
func (t *Table) freeVarcharFields(slot []byte) error {
	for _, f := range t.sch.Fields() {
		if f.DType != schema.VARCHAR {
			continue
		}
		ticket := varchar.DecodeTicket(slot[f.Offset : f.Offset+f.Size])
		if err := t.vheap.Del(ticket); err != nil {
			return err
		}
	}
	return nil
}
