package table

import (
	"github.com/AaLexUser/low-level-programming/errs"
	"github.com/AaLexUser/low-level-programming/internal/alloc"
	"github.com/AaLexUser/low-level-programming/internal/schema"
	"github.com/AaLexUser/low-level-programming/internal/varchar"
)

func errFieldNotFound(name string) error {
	return errs.New(errs.KindSchema, "unknown field: "+name)
}

// Insert encodes row against the table's schema and appends it to the
// row chain, returning its handle.
func (t *Table) Insert(row *Row) (alloc.Chblix, error) {
	slot, err := t.encodeRow(row)
	if err != nil {
		return alloc.Fail, err
	}
	c, err := t.mgr.Alloc(t.rowChainRoot)
	if err != nil {
		return alloc.Fail, err
	}
	if err := t.mgr.WriteBlock(c, slot); err != nil {
		return alloc.Fail, err
	}
	t.rowCount++
	if err := t.persistHeader(); err != nil {
		return alloc.Fail, err
	}
	return c, nil
}

// RowAt decodes the row at the already-known handle c, dereferencing
// any VARCHAR fields.
func (t *Table) RowAt(c alloc.Chblix) (*Row, error) {
	slot := make([]byte, t.slotSize)
	if err := t.mgr.ReadBlock(c, slot); err != nil {
		return nil, err
	}
	return t.decodeRow(slot)
}

// GetRow scans for the first row whose named field equals value,
// returning its handle, or alloc.Fail if none matches. A miss is a
// successful empty result, not an error; a field whose declared
// datatype does not match dt is a type error.
func (t *Table) GetRow(field string, value Value, dt schema.DataType) (alloc.Chblix, error) {
	f, ok := t.sch.GetField(field)
	if !ok {
		return alloc.Fail, errFieldNotFound(field)
	}
	if f.DType != dt {
		return alloc.Fail, errs.New(errs.KindType, "get row: field datatype does not match requested type")
	}
	it := t.Scan()
	for it.Valid() {
		row, err := it.Row()
		if err != nil {
			return alloc.Fail, err
		}
		v, ok := row.Get(field)
		if !ok {
			return alloc.Fail, errFieldNotFound(field)
		}
		eq, err := evalCondition(v, value, EQ)
		if err != nil {
			return alloc.Fail, err
		}
		if eq {
			return it.Current(), nil
		}
		it.Next()
	}
	if err := it.Err(); err != nil {
		return alloc.Fail, err
	}
	return alloc.Fail, nil
}

// UpdateRow overwrites every field of the row at c, freeing any
// superseded VARCHAR chains.
func (t *Table) UpdateRow(c alloc.Chblix, row *Row) error {
	old := make([]byte, t.slotSize)
	if err := t.mgr.ReadBlock(c, old); err != nil {
		return err
	}
	if err := t.freeVarcharFields(old); err != nil {
		return err
	}
	slot, err := t.encodeRow(row)
	if err != nil {
		return err
	}
	return t.mgr.WriteBlock(c, slot)
}

// UpdateElement overwrites a single named field of the row at c.
func (t *Table) UpdateElement(c alloc.Chblix, fieldName string, v Value) error {
	f, ok := t.sch.GetField(fieldName)
	if !ok {
		return errFieldNotFound(fieldName)
	}
	slot := make([]byte, t.slotSize)
	if err := t.mgr.ReadBlock(c, slot); err != nil {
		return err
	}
	if f.DType == schema.VARCHAR {
		ticket := varchar.DecodeTicket(slot[f.Offset : f.Offset+f.Size])
		if err := t.vheap.Del(ticket); err != nil {
			return err
		}
	}
	if err := t.encodeValue(slot, f, v); err != nil {
		return err
	}
	return t.mgr.WriteBlock(c, slot)
}

// Delete frees the row's VARCHAR chains and its slot.
func (t *Table) Delete(c alloc.Chblix) error {
	slot := make([]byte, t.slotSize)
	if err := t.mgr.ReadBlock(c, slot); err != nil {
		return err
	}
	if err := t.freeVarcharFields(slot); err != nil {
		return err
	}
	newRoot, _, err := t.mgr.Free(t.rowChainRoot, c)
	if err != nil {
		return err
	}
	if newRoot != t.rowChainRoot {
		t.rowChainRoot = newRoot
	}
	t.rowCount--
	return t.persistHeader()
}

// RowIterator walks every live row of a table, in chunk/block order.
type RowIterator struct {
	t  *Table
	it *alloc.Iterator
}

// Scan begins a walk over every row in the table.
func (t *Table) Scan() *RowIterator {
	return &RowIterator{t: t, it: t.mgr.Iterate(t.rowChainRoot)}
}

func (ri *RowIterator) Valid() bool { return ri.it.Valid() }
func (ri *RowIterator) Err() error  { return ri.it.Err() }
func (ri *RowIterator) Next()       { ri.it.Next() }

// Current returns the row handle the iterator is positioned on.
func (ri *RowIterator) Current() alloc.Chblix { return ri.it.Current() }

// Row decodes the row currently positioned on.
func (ri *RowIterator) Row() (*Row, error) {
	return ri.t.RowAt(ri.it.Current())
}

// DeleteCurrent frees the current row (including its VARCHAR chains)
// and repositions the iterator per the iteration-under-mutation rule.
func (ri *RowIterator) DeleteCurrent() error {
	slot := make([]byte, ri.t.slotSize)
	if err := ri.t.mgr.ReadBlock(ri.it.Current(), slot); err != nil {
		return err
	}
	if err := ri.t.freeVarcharFields(slot); err != nil {
		return err
	}
	newRoot, err := ri.it.DeleteCurrent(ri.t.rowChainRoot)
	if err != nil {
		return err
	}
	if newRoot != ri.t.rowChainRoot {
		ri.t.rowChainRoot = newRoot
	}
	ri.t.rowCount--
	return ri.t.persistHeader()
}

// Predicate decides whether a decoded row should be selected, updated,
// or deleted by the *Where family of operations.
type Predicate func(*Row) (bool, error)

// FieldPredicate builds a Predicate comparing a named field's decoded
// value against a literal using the given relational condition.
func (t *Table) FieldPredicate(fieldName string, cond Condition, literal Value) Predicate {
	return func(row *Row) (bool, error) {
		v, ok := row.Get(fieldName)
		if !ok {
			return false, errFieldNotFound(fieldName)
		}
		return evalCondition(v, literal, cond)
	}
}

// UpdateRowsWhere replaces every row matching pred, via build(row).
func (t *Table) UpdateRowsWhere(pred Predicate, build func(*Row) *Row) error {
	it := t.Scan()
	for it.Valid() {
		row, err := it.Row()
		if err != nil {
			return err
		}
		ok, err := pred(row)
		if err != nil {
			return err
		}
		if ok {
			if err := t.UpdateRow(it.Current(), build(row)); err != nil {
				return err
			}
		}
		it.Next()
	}
	return it.Err()
}

// UpdateElementWhere updates a single named field on every row
// matching pred.
func (t *Table) UpdateElementWhere(pred Predicate, fieldName string, value Value) error {
	it := t.Scan()
	for it.Valid() {
		row, err := it.Row()
		if err != nil {
			return err
		}
		ok, err := pred(row)
		if err != nil {
			return err
		}
		if ok {
			if err := t.UpdateElement(it.Current(), fieldName, value); err != nil {
				return err
			}
		}
		it.Next()
	}
	return it.Err()
}

// DeleteWhere deletes every row matching pred.
func (t *Table) DeleteWhere(pred Predicate) error {
	it := t.Scan()
	for it.Valid() {
		row, err := it.Row()
		if err != nil {
			return err
		}
		ok, err := pred(row)
		if err != nil {
			return err
		}
		if ok {
			if err := it.DeleteCurrent(); err != nil {
				return err
			}
			continue
		}
		it.Next()
	}
	return it.Err()
}
