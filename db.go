// Package lldb is an embedded, single-file relational storage engine:
// a paged mmap-backed file, a chunk/block allocator, a variable-length
// string heap, a schema catalog, and a table engine with a handful of
// relational operators, all reachable through one Database handle.
//
// Grounded on btree/database.go's Open/Close lifecycle (one file, one
// handle, explicit Close), generalized from a single-tree KV store to
// a multi-table relational catalog.
package lldb

import (
	"github.com/AaLexUser/low-level-programming/errs"
	"github.com/AaLexUser/low-level-programming/internal/alloc"
	"github.com/AaLexUser/low-level-programming/internal/meta"
	"github.com/AaLexUser/low-level-programming/internal/pagefile"
	"github.com/AaLexUser/low-level-programming/internal/schema"
	"github.com/AaLexUser/low-level-programming/internal/table"
	"github.com/AaLexUser/low-level-programming/internal/varchar"
)

// DataType re-exports the schema package's column type enum so callers
// don't need a second import to define a schema.
type DataType = schema.DataType

const (
	INT64   = schema.INT64
	FLOAT32 = schema.FLOAT32
	CHARN   = schema.CHARN
	BOOL    = schema.BOOL
	VARCHAR = schema.VARCHAR
)

// Row and Value re-export the table package's row representation.
type Row = table.Row
type Value = table.Value
type Condition = table.Condition

const (
	EQ  = table.EQ
	NEQ = table.NEQ
	LT  = table.LT
	LE  = table.LE
	GT  = table.GT
	GE  = table.GE
)

// Options configures a Database at Open time.
type Options struct {
	PageSize     int
	VarcharGrain int64
}

// Option mutates Options, the functional-options pattern used for
// small configuration surfaces throughout this codebase.
type Option func(*Options)

// WithPageSize overrides the default 4 KiB page size.
func WithPageSize(n int) Option {
	return func(o *Options) { o.PageSize = n }
}

// WithVarcharGrain overrides the default varchar heap grain.
func WithVarcharGrain(n int64) Option {
	return func(o *Options) { o.VarcharGrain = n }
}

const defaultVarcharGrain = 64

// Database is a bundle of (file, metatable, varchar heap) plus the
// allocator and file manager backing them. One goroutine should own a
// Database at a time; it has no internal locking.
type Database struct {
	pf    *pagefile.Manager
	alloc *alloc.Manager
	meta  *meta.Metatable
	vheap *varchar.Heap

	tables map[string]*table.Table
}

// Open opens or creates the database file at path, bootstrapping a
// fresh superblock/metatable/varchar-heap on an empty file, or loading
// existing ones from an already-populated one.
func Open(path string, opts ...Option) (*Database, error) {
	o := Options{PageSize: pagefile.DefaultPageSize, VarcharGrain: defaultVarcharGrain}
	for _, opt := range opts {
		opt(&o)
	}

	pf, err := pagefile.Open(path, o.PageSize)
	if err != nil {
		return nil, err
	}

	fresh := pf.FileSize() == 0
	am, err := alloc.Open(pf, o.PageSize, o.VarcharGrain)
	if err != nil {
		_ = pf.Close()
		return nil, err
	}

	db := &Database{pf: pf, alloc: am, tables: make(map[string]*table.Table)}

	if fresh {
		mt, err := meta.Init(am)
		if err != nil {
			_ = pf.Close()
			return nil, err
		}
		vh, err := varchar.Create(am, o.VarcharGrain)
		if err != nil {
			_ = pf.Close()
			return nil, err
		}
		db.meta = mt
		db.vheap = vh
		return db, nil
	}

	sb := am.Superblock()
	db.meta = meta.Open(am, sb.MetatableRoot)
	db.vheap = varchar.Open(am, sb.VarcharHeapRoot, sb.VarcharGrain)
	return db, nil
}

// Close flushes and closes the underlying file.
func (db *Database) Close() error {
	return db.pf.Close()
}

// Drop closes and deletes the database file entirely.
func (db *Database) Drop() error {
	return db.pf.Unlink()
}

// CreateTable defines a new table with the given schema fields, in
// order, and registers it in the metatable.
func (db *Database) CreateTable(name string, fields []schema.Field) (*table.Table, error) {
	if _, ok := db.tables[name]; ok {
		return nil, errs.New(errs.KindNameCollision, "table already open: "+name)
	}
	if _, found, err := db.meta.Find(name); err != nil {
		return nil, err
	} else if found {
		return nil, errs.New(errs.KindNameCollision, "duplicate table name: "+name)
	}

	sch, err := schema.Init(db.alloc)
	if err != nil {
		return nil, err
	}
	for _, f := range fields {
		if err := sch.AddField(f.Name, f.DType, f.Size); err != nil {
			return nil, err
		}
	}

	tab, err := table.Init(db.alloc, db.vheap, name, sch)
	if err != nil {
		return nil, err
	}
	if err := db.meta.Add(name, tab.Root()); err != nil {
		return nil, err
	}
	db.tables[name] = tab
	return tab, nil
}

// Table opens an already-defined table by name.
func (db *Database) Table(name string) (*table.Table, error) {
	if tab, ok := db.tables[name]; ok {
		return tab, nil
	}
	root, found, err := db.meta.Find(name)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, errs.New(errs.KindInvalidHandle, "no such table: "+name)
	}
	tab, err := table.Open(db.alloc, db.vheap, root)
	if err != nil {
		return nil, err
	}
	db.tables[name] = tab
	return tab, nil
}

// DropTable removes a table and its storage entirely.
func (db *Database) DropTable(name string) error {
	tab, err := db.Table(name)
	if err != nil {
		return err
	}
	if err := tab.Drop(); err != nil {
		return err
	}
	if err := db.meta.Delete(tab.Root()); err != nil {
		return err
	}
	delete(db.tables, name)
	return nil
}

// ListTables returns every table name registered in the metatable.
func (db *Database) ListTables() ([]string, error) {
	return db.meta.List()
}

// Field is a convenience constructor for CreateTable's field list.
func Field(name string, dt DataType, size int64) schema.Field {
	return schema.Field{Name: name, DType: dt, Size: size}
}
