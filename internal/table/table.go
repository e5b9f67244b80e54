// Package table is the row-store engine on top of a schema and the
// allocator (component F): a single fixed header block naming the
// schema root and row-chain root, plus a row chain whose block size
// equals the schema's slot size.
//
// Grounded on relationalDB's TableDef + Record vocabulary and
// refactor_code/internal/database/types.go's table-header shape,
// generalized to persist every field through the allocator instead of
// an in-process B-tree.
package table

import (
	"bytes"

	"github.com/AaLexUser/low-level-programming/errs"
	"github.com/AaLexUser/low-level-programming/internal/alloc"
	"github.com/AaLexUser/low-level-programming/internal/assert"
	"github.com/AaLexUser/low-level-programming/internal/schema"
	"github.com/AaLexUser/low-level-programming/internal/varchar"
)

// NameSize is the bounded width of a table name on disk.
const NameSize = 64

// headerSize is the fixed width of a table's header record: name +
// schema root + row-chain root + slot size + row count.
const headerSize = NameSize + 8*4

// Table is a named, schema-typed collection of rows. Its identifier is
// its header chunk's index (Root()).
type Table struct {
	mgr   *alloc.Manager
	vheap *varchar.Heap

	headerRoot int64
	sch        *schema.Schema

	name         string
	schemaRoot   int64
	rowChainRoot int64
	slotSize     int64
	rowCount     int64
}

func encodeHeader(t *Table) []byte {
	buf := make([]byte, headerSize)
	nameBytes := []byte(t.name)
	if len(nameBytes) > NameSize {
		nameBytes = nameBytes[:NameSize]
	}
	copy(buf[0:NameSize], nameBytes)
	putInt64(buf[NameSize:NameSize+8], t.schemaRoot)
	putInt64(buf[NameSize+8:NameSize+16], t.rowChainRoot)
	putInt64(buf[NameSize+16:NameSize+24], t.slotSize)
	putInt64(buf[NameSize+24:NameSize+32], t.rowCount)
	return buf
}

func decodeHeader(buf []byte) (name string, schemaRoot, rowChainRoot, slotSize, rowCount int64) {
	name = string(bytes.TrimRight(buf[0:NameSize], "\x00"))
	schemaRoot = getInt64(buf[NameSize : NameSize+8])
	rowChainRoot = getInt64(buf[NameSize+8 : NameSize+16])
	slotSize = getInt64(buf[NameSize+16 : NameSize+24])
	rowCount = getInt64(buf[NameSize+24 : NameSize+32])
	return
}

// headerChblix is always block 0 of the header collection: the very
// first Alloc on a freshly initialized chunk hands out block 0.
func (t *Table) headerChblix() alloc.Chblix {
	return alloc.Chblix{ChunkIdx: t.headerRoot, BlockIdx: 0}
}

func (t *Table) persistHeader() error {
	return t.mgr.WriteBlock(t.headerChblix(), encodeHeader(t))
}

// Init creates a new table named name over sch, with an empty row
// chain, and returns it. Ownership of sch passes to the table.
func Init(mgr *alloc.Manager, vheap *varchar.Heap, name string, sch *schema.Schema) (*Table, error) {
	if len(name) > NameSize {
		return nil, errs.New(errs.KindSchema, "table name exceeds max length")
	}
	headerRoot, err := mgr.NewCollection(headerSize)
	if err != nil {
		return nil, err
	}
	hc, err := mgr.Alloc(headerRoot)
	if err != nil {
		return nil, err
	}
	assert.Assert(hc.BlockIdx == 0, "table: header's first block was not index 0")

	rowRoot, err := mgr.NewCollection(sch.SlotSize())
	if err != nil {
		return nil, err
	}

	t := &Table{
		mgr:          mgr,
		vheap:        vheap,
		headerRoot:   headerRoot,
		sch:          sch,
		name:         name,
		schemaRoot:   sch.Root(),
		rowChainRoot: rowRoot,
		slotSize:     sch.SlotSize(),
		rowCount:     0,
	}
	if err := t.persistHeader(); err != nil {
		return nil, err
	}
	return t, nil
}

// Open loads an existing table from its header chunk index.
func Open(mgr *alloc.Manager, vheap *varchar.Heap, headerRoot int64) (*Table, error) {
	buf := make([]byte, headerSize)
	if err := mgr.ReadBlock(alloc.Chblix{ChunkIdx: headerRoot, BlockIdx: 0}, buf); err != nil {
		return nil, err
	}
	name, schemaRoot, rowChainRoot, slotSize, rowCount := decodeHeader(buf)
	sch, err := schema.Open(mgr, schemaRoot)
	if err != nil {
		return nil, err
	}
	return &Table{
		mgr:          mgr,
		vheap:        vheap,
		headerRoot:   headerRoot,
		sch:          sch,
		name:         name,
		schemaRoot:   schemaRoot,
		rowChainRoot: rowChainRoot,
		slotSize:     slotSize,
		rowCount:     rowCount,
	}, nil
}

// Root returns the table's identifying header chunk index.
func (t *Table) Root() int64 { return t.headerRoot }

// Name returns the table's name.
func (t *Table) Name() string { return t.name }

// Schema returns the table's schema.
func (t *Table) Schema() *schema.Schema { return t.sch }

// SlotSize returns the byte width of one row.
func (t *Table) SlotSize() int64 { return t.slotSize }

// RowCount returns the number of live rows.
func (t *Table) RowCount() int64 { return t.rowCount }

// Drop frees the row chain, the schema, the header block, and returns
// the table to an unusable state.
func (t *Table) Drop() error {
	it := t.mgr.Iterate(t.rowChainRoot)
	head := t.rowChainRoot
	for it.Valid() {
		raw := make([]byte, t.slotSize)
		if err := t.mgr.ReadBlock(it.Current(), raw); err != nil {
			return err
		}
		if err := t.freeVarcharFields(raw); err != nil {
			return err
		}
		newHead, err := it.DeleteCurrent(head)
		if err != nil {
			return err
		}
		head = newHead
	}
	if err := it.Err(); err != nil {
		return err
	}
	if err := t.mgr.DestroyCollection(head); err != nil {
		return err
	}
	if err := t.sch.Delete(); err != nil {
		return err
	}
	return t.mgr.DestroyCollection(t.headerRoot)
}
