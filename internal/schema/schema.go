// Package schema is the catalog of typed, ordered fields that gives a
// table's rows their shape (component E). A schema is itself a linked
// collection of fixed-size field records, exactly like any other
// collection the allocator hands out; its root chunk index is its
// identifier.
//
// Grounded on relationalDB/define.go's TableDef (Types/Cols held as
// parallel slices), generalized into one ordered field record per
// slice entry, persisted through the allocator instead of kept only
// in memory.
package schema

import (
	"bytes"

	"github.com/AaLexUser/low-level-programming/errs"
	"github.com/AaLexUser/low-level-programming/internal/alloc"
)

// DataType enumerates the column types a field may hold.
type DataType int32

const (
	INT64 DataType = iota
	FLOAT32
	CHARN
	BOOL
	VARCHAR
)

func (dt DataType) String() string {
	switch dt {
	case INT64:
		return "INT64"
	case FLOAT32:
		return "FLOAT32"
	case CHARN:
		return "CHAR[n]"
	case BOOL:
		return "BOOL"
	case VARCHAR:
		return "VARCHAR"
	default:
		return "UNKNOWN"
	}
}

// NameSize is the bounded width of a field name on disk.
const NameSize = 32

// recordSize is the fixed block size of a schema collection: name +
// datatype + declared size + computed offset.
const recordSize = NameSize + 4 + 8 + 8

// Field is one column: name, datatype, declared size in bytes, and its
// computed byte offset within a row slot.
type Field struct {
	Name   string
	DType  DataType
	Size   int64
	Offset int64
}

func encodeField(f Field) []byte {
	buf := make([]byte, recordSize)
	nameBytes := []byte(f.Name)
	if len(nameBytes) > NameSize {
		nameBytes = nameBytes[:NameSize]
	}
	copy(buf[0:NameSize], nameBytes)
	putInt32(buf[NameSize:NameSize+4], int32(f.DType))
	putInt64(buf[NameSize+4:NameSize+12], f.Size)
	putInt64(buf[NameSize+12:NameSize+20], f.Offset)
	return buf
}

func decodeField(buf []byte) Field {
	name := bytes.TrimRight(buf[0:NameSize], "\x00")
	return Field{
		Name:   string(name),
		DType:  DataType(getInt32(buf[NameSize : NameSize+4])),
		Size:   getInt64(buf[NameSize+4 : NameSize+12]),
		Offset: getInt64(buf[NameSize+12 : NameSize+20]),
	}
}

// Schema is an ordered list of fields backed by a linked-block
// collection. Fields are cached in memory in insertion order and
// mirrored to disk on every AddField.
type Schema struct {
	mgr    *alloc.Manager
	root   int64
	fields []Field
	slot   int64
}

// Init creates a new, empty schema collection.
func Init(mgr *alloc.Manager) (*Schema, error) {
	root, err := mgr.NewCollection(recordSize)
	if err != nil {
		return nil, err
	}
	return &Schema{mgr: mgr, root: root}, nil
}

// Open loads an existing schema rooted at root, restoring fields in
// the collection's chunk/block order, which is the order they were
// appended in.
func Open(mgr *alloc.Manager, root int64) (*Schema, error) {
	s := &Schema{mgr: mgr, root: root}
	it := mgr.Iterate(root)
	raw := make([]byte, recordSize)
	for it.Valid() {
		if err := mgr.ReadBlock(it.Current(), raw); err != nil {
			return nil, err
		}
		f := decodeField(raw)
		s.fields = append(s.fields, f)
		if f.Offset+f.Size > s.slot {
			s.slot = f.Offset + f.Size
		}
		it.Next()
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	return s, nil
}

// Root returns the schema collection's root chunk index.
func (s *Schema) Root() int64 { return s.root }

// SlotSize returns the sum of all field sizes, i.e. the width of one
// row slot under this schema.
func (s *Schema) SlotSize() int64 { return s.slot }

// Fields returns the schema's fields in declaration order.
func (s *Schema) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// GetField looks up a field by name.
func (s *Schema) GetField(name string) (Field, bool) {
	for _, f := range s.fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// AddField appends a new field, computing its offset from the running
// slot size. Duplicate names are rejected.
func (s *Schema) AddField(name string, dt DataType, size int64) error {
	if _, ok := s.GetField(name); ok {
		return errs.New(errs.KindSchema, "duplicate field name: "+name)
	}
	return s.AppendField(name, dt, size)
}

// AppendField adds a field without the uniqueness check AddField
// enforces. It exists for composite schemas (a join's positionally
// concatenated output) where two fields with the same name may
// coexist, referenced thereafter by position rather than name.
func (s *Schema) AppendField(name string, dt DataType, size int64) error {
	if len(name) > NameSize {
		return errs.New(errs.KindSchema, "field name exceeds max length")
	}
	f := Field{Name: name, DType: dt, Size: size, Offset: s.slot}
	c, err := s.mgr.Alloc(s.root)
	if err != nil {
		return err
	}
	if err := s.mgr.WriteBlock(c, encodeField(f)); err != nil {
		return err
	}
	s.fields = append(s.fields, f)
	s.slot += size
	return nil
}

// Delete frees the entire schema collection.
func (s *Schema) Delete() error {
	return s.mgr.DestroyCollection(s.root)
}
