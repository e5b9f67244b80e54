// Package meta is the metatable (component G): the name-to-table-root
// directory that lets a database open a table by name. It is itself
// just a fixed-width record table over the allocator, the same shape
// every other table in the engine uses for its row chain.
//
// Grounded on relationalDB's TDEF_TABLE ("@table" maps name ->
// serialized definition), generalized here to map name -> root chunk
// index directly instead of through a serialized blob.
package meta

import (
	"bytes"

	"github.com/AaLexUser/low-level-programming/errs"
	"github.com/AaLexUser/low-level-programming/internal/alloc"
)

// NameSize is the bounded width of a table name on disk.
const NameSize = 64

// recordSize is a metatable entry: name + table root chunk index.
const recordSize = NameSize + 8

// Metatable maps table names to their header chunk index.
type Metatable struct {
	mgr  *alloc.Manager
	root int64
}

func encodeEntry(name string, root int64) []byte {
	buf := make([]byte, recordSize)
	nb := []byte(name)
	if len(nb) > NameSize {
		nb = nb[:NameSize]
	}
	copy(buf[0:NameSize], nb)
	putInt64(buf[NameSize:NameSize+8], root)
	return buf
}

func decodeEntry(buf []byte) (name string, root int64) {
	name = string(bytes.TrimRight(buf[0:NameSize], "\x00"))
	root = getInt64(buf[NameSize : NameSize+8])
	return
}

// Init creates a new, empty metatable.
func Init(mgr *alloc.Manager) (*Metatable, error) {
	root, err := mgr.NewCollection(recordSize)
	if err != nil {
		return nil, err
	}
	if err := mgr.SetMetatableRoot(root); err != nil {
		return nil, err
	}
	return &Metatable{mgr: mgr, root: root}, nil
}

// Open binds a Metatable to an already-existing root chunk.
func Open(mgr *alloc.Manager, root int64) *Metatable {
	return &Metatable{mgr: mgr, root: root}
}

// Root returns the metatable collection's root chunk index.
func (m *Metatable) Root() int64 { return m.root }

// Add registers name -> tableRoot, rejecting a name already present.
func (m *Metatable) Add(name string, tableRoot int64) error {
	if len(name) > NameSize {
		return errs.New(errs.KindSchema, "table name exceeds max length")
	}
	if _, ok, err := m.find(name); err != nil {
		return err
	} else if ok {
		return errs.New(errs.KindNameCollision, "duplicate table name: "+name)
	}
	c, err := m.mgr.Alloc(m.root)
	if err != nil {
		return err
	}
	return m.mgr.WriteBlock(c, encodeEntry(name, tableRoot))
}

// Find looks up a table's root by name; a miss is a normal false, not
// an error.
func (m *Metatable) Find(name string) (int64, bool, error) {
	return m.find(name)
}

func (m *Metatable) find(name string) (int64, bool, error) {
	it := m.mgr.Iterate(m.root)
	buf := make([]byte, recordSize)
	for it.Valid() {
		if err := m.mgr.ReadBlock(it.Current(), buf); err != nil {
			return 0, false, err
		}
		n, root := decodeEntry(buf)
		if n == name {
			return root, true, nil
		}
		it.Next()
	}
	if err := it.Err(); err != nil {
		return 0, false, err
	}
	return 0, false, nil
}

// Delete removes the entry pointing at tableRoot, if present.
func (m *Metatable) Delete(tableRoot int64) error {
	it := m.mgr.Iterate(m.root)
	buf := make([]byte, recordSize)
	for it.Valid() {
		if err := m.mgr.ReadBlock(it.Current(), buf); err != nil {
			return err
		}
		_, root := decodeEntry(buf)
		if root == tableRoot {
			newRoot, err := it.DeleteCurrent(m.root)
			if err != nil {
				return err
			}
			if newRoot != m.root {
				m.root = newRoot
				return m.mgr.SetMetatableRoot(newRoot)
			}
			return nil
		}
		it.Next()
	}
	return it.Err()
}

// List returns every registered table name.
func (m *Metatable) List() ([]string, error) {
	it := m.mgr.Iterate(m.root)
	buf := make([]byte, recordSize)
	var names []string
	for it.Valid() {
		if err := m.mgr.ReadBlock(it.Current(), buf); err != nil {
			return nil, err
		}
		n, _ := decodeEntry(buf)
		names = append(names, n)
		it.Next()
	}
	return names, it.Err()
}
