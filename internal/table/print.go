package table

import (
	"fmt"
	"io"
	"strings"

	"github.com/AaLexUser/low-level-programming/internal/schema"
)

// Dump writes every row to w, tab-separated, one field per column in
// schema order. Grounded on tab_print's field-by-field printf loop.
func (t *Table) Dump(w io.Writer) error {
	fields := t.sch.Fields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	if _, err := fmt.Fprintln(w, strings.Join(names, "\t")); err != nil {
		return err
	}

	it := t.Scan()
	for it.Valid() {
		row, err := it.Row()
		if err != nil {
			return err
		}
		cells := make([]string, len(row.Vals))
		for i, v := range row.Vals {
			cells[i] = formatValue(v)
		}
		if _, err := fmt.Fprintln(w, strings.Join(cells, "\t")); err != nil {
			return err
		}
		it.Next()
	}
	return it.Err()
}

func formatValue(v Value) string {
	switch v.DType {
	case schema.INT64:
		return fmt.Sprintf("%d", v.I64)
	case schema.FLOAT32:
		return fmt.Sprintf("%f", v.F32)
	case schema.BOOL:
		return fmt.Sprintf("%t", v.Bool)
	case schema.CHARN, schema.VARCHAR:
		return string(v.Bytes)
	default:
		return "?"
	}
}

// String renders the table as tab-separated text, for debugging.
func (t *Table) String() string {
	var sb strings.Builder
	_ = t.Dump(&sb)
	return sb.String()
}
