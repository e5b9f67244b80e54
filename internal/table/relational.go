package table

import (
	"github.com/AaLexUser/low-level-programming/internal/schema"
)

// duplicateSchema copies src's fields, in order, into a fresh schema
// collection so the result owns independent storage.
func duplicateSchema(t *Table, src *schema.Schema) (*schema.Schema, error) {
	ns, err := schema.Init(t.mgr)
	if err != nil {
		return nil, err
	}
	for _, f := range src.Fields() {
		if err := ns.AppendField(f.Name, f.DType, f.Size); err != nil {
			return nil, err
		}
	}
	return ns, nil
}

// Select materializes a new table, owned by the caller, containing
// every row of t for which pred holds.
func (t *Table) Select(name string, pred Predicate) (*Table, error) {
	ns, err := duplicateSchema(t, t.sch)
	if err != nil {
		return nil, err
	}
	out, err := Init(t.mgr, t.vheap, name, ns)
	if err != nil {
		return nil, err
	}
	it := t.Scan()
	for it.Valid() {
		row, err := it.Row()
		if err != nil {
			return nil, err
		}
		ok, err := pred(row)
		if err != nil {
			return nil, err
		}
		if ok {
			if _, err := out.Insert(row); err != nil {
				return nil, err
			}
		}
		it.Next()
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Join performs a nested-loop equality join on leftField = rightField,
// materializing a new table whose schema is the positional
// concatenation of t's and other's schemas (duplicate field names are
// permitted in the result).
func (t *Table) Join(name string, other *Table, leftField, rightField string) (*Table, error) {
	if _, ok := t.sch.GetField(leftField); !ok {
		return nil, errFieldNotFound(leftField)
	}
	if _, ok := other.sch.GetField(rightField); !ok {
		return nil, errFieldNotFound(rightField)
	}

	ns, err := schema.Init(t.mgr)
	if err != nil {
		return nil, err
	}
	for _, f := range t.sch.Fields() {
		if err := ns.AppendField(f.Name, f.DType, f.Size); err != nil {
			return nil, err
		}
	}
	for _, f := range other.sch.Fields() {
		if err := ns.AppendField(f.Name, f.DType, f.Size); err != nil {
			return nil, err
		}
	}

	out, err := Init(t.mgr, t.vheap, name, ns)
	if err != nil {
		return nil, err
	}

	leftIt := t.Scan()
	for leftIt.Valid() {
		leftRow, err := leftIt.Row()
		if err != nil {
			return nil, err
		}
		lv, _ := leftRow.Get(leftField)

		rightIt := other.Scan()
		for rightIt.Valid() {
			rightRow, err := rightIt.Row()
			if err != nil {
				return nil, err
			}
			rv, _ := rightRow.Get(rightField)

			eq, err := evalCondition(lv, rv, EQ)
			if err != nil {
				return nil, err
			}
			if eq {
				joined := &Row{
					Cols: append(append([]string{}, leftRow.Cols...), rightRow.Cols...),
					Vals: append(append([]Value{}, leftRow.Vals...), rightRow.Vals...),
				}
				if _, err := out.Insert(joined); err != nil {
					return nil, err
				}
			}
			rightIt.Next()
		}
		if err := rightIt.Err(); err != nil {
			return nil, err
		}
		leftIt.Next()
	}
	if err := leftIt.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Projection materializes a new table holding only the named fields,
// decoding each one from its source row and placing it at its own
// freshly computed destination offset.
func (t *Table) Projection(name string, fieldNames []string) (*Table, error) {
	ns, err := schema.Init(t.mgr)
	if err != nil {
		return nil, err
	}
	for _, fn := range fieldNames {
		f, ok := t.sch.GetField(fn)
		if !ok {
			return nil, errFieldNotFound(fn)
		}
		if err := ns.AppendField(f.Name, f.DType, f.Size); err != nil {
			return nil, err
		}
	}
	out, err := Init(t.mgr, t.vheap, name, ns)
	if err != nil {
		return nil, err
	}

	it := t.Scan()
	for it.Valid() {
		row, err := it.Row()
		if err != nil {
			return nil, err
		}
		proj := &Row{Cols: make([]string, len(fieldNames)), Vals: make([]Value, len(fieldNames))}
		for i, fn := range fieldNames {
			v, ok := row.Get(fn)
			if !ok {
				return nil, errFieldNotFound(fn)
			}
			proj.Cols[i] = fn
			proj.Vals[i] = v
		}
		if _, err := out.Insert(proj); err != nil {
			return nil, err
		}
		it.Next()
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
