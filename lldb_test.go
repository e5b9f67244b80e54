package lldb

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/AaLexUser/low-level-programming/errs"
	"github.com/AaLexUser/low-level-programming/internal/schema"
	"github.com/AaLexUser/low-level-programming/internal/table"
)

func openTestDB(t *testing.T, opts ...Option) *Database {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(path, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestInsertSelectRoundTrip(t *testing.T) {
	db := openTestDB(t)
	tab, err := db.CreateTable("STUDENT", []schema.Field{
		Field("ID", INT64, 8),
		Field("NAME", CHARN, 10),
		Field("SCORE", FLOAT32, 4),
		Field("AGE", INT64, 8),
		Field("PASS", BOOL, 1),
	})
	require.NoError(t, err)

	for id := int64(1); id <= 100; id++ {
		_, err := tab.Insert(&Row{
			Cols: []string{"ID", "NAME", "SCORE", "AGE", "PASS"},
			Vals: []Value{
				{DType: INT64, I64: id},
				{DType: CHARN, Bytes: []byte("n")},
				{DType: FLOAT32, F32: 9.9},
				{DType: INT64, I64: id},
				{DType: BOOL, Bool: true},
			},
		})
		require.NoError(t, err)
	}

	out, err := tab.Select("Q1", tab.FieldPredicate("ID", EQ, Value{DType: INT64, I64: 42}))
	require.NoError(t, err)
	require.Equal(t, int64(1), out.RowCount())

	it := out.Scan()
	require.True(t, it.Valid())
	row, err := it.Row()
	require.NoError(t, err)
	require.Equal(t, int64(42), row.Vals[0].I64)
	require.Equal(t, int64(42), row.Vals[3].I64)
	require.True(t, row.Vals[4].Bool)
}

func TestSelectEmpty(t *testing.T) {
	db := openTestDB(t)
	tab, err := db.CreateTable("STUDENT", []schema.Field{
		Field("ID", INT64, 8),
	})
	require.NoError(t, err)

	for id := int64(1); id <= 5; id++ {
		_, err := tab.Insert(&Row{Cols: []string{"ID"}, Vals: []Value{{DType: INT64, I64: id}}})
		require.NoError(t, err)
	}

	out, err := tab.Select("Q2", tab.FieldPredicate("ID", EQ, Value{DType: INT64, I64: 999}))
	require.NoError(t, err)
	require.Equal(t, int64(0), out.RowCount())
}

func TestDeleteThenScanOrder(t *testing.T) {
	db := openTestDB(t)
	tab, err := db.CreateTable("NUMS", []schema.Field{Field("ID", INT64, 8)})
	require.NoError(t, err)

	for id := int64(1); id <= 10; id++ {
		_, err := tab.Insert(&Row{Cols: []string{"ID"}, Vals: []Value{{DType: INT64, I64: id}}})
		require.NoError(t, err)
	}

	require.NoError(t, tab.DeleteWhere(tab.FieldPredicate("ID", EQ, Value{DType: INT64, I64: 5})))

	var got []int64
	it := tab.Scan()
	for it.Valid() {
		row, err := it.Row()
		require.NoError(t, err)
		got = append(got, row.Vals[0].I64)
		it.Next()
	}
	require.NoError(t, it.Err())
	require.Equal(t, []int64{1, 2, 3, 4, 6, 7, 8, 9, 10}, got)
}

func TestJoinScenario(t *testing.T) {
	db := openTestDB(t)
	a, err := db.CreateTable("A", []schema.Field{Field("id", INT64, 8), Field("x", CHARN, 4)})
	require.NoError(t, err)
	b, err := db.CreateTable("B", []schema.Field{Field("id", INT64, 8), Field("y", INT64, 8)})
	require.NoError(t, err)

	insertAB(t, a, 1, "a")
	insertAB(t, a, 2, "b")
	insertAB(t, a, 2, "c")
	insertABInt(t, b, 2, 10)
	insertABInt(t, b, 2, 20)
	insertABInt(t, b, 3, 30)

	joined, err := a.Join("AB", b, "id", "id")
	require.NoError(t, err)
	require.Equal(t, int64(4), joined.RowCount())

	type tuple struct {
		id1  int64
		x    string
		id2  int64
		y    int64
	}
	var got []tuple
	it := joined.Scan()
	for it.Valid() {
		row, err := it.Row()
		require.NoError(t, err)
		got = append(got, tuple{row.Vals[0].I64, string(row.Vals[1].Bytes), row.Vals[2].I64, row.Vals[3].I64})
		it.Next()
	}
	require.NoError(t, it.Err())
	require.Equal(t, []tuple{
		{2, "b", 2, 10},
		{2, "b", 2, 20},
		{2, "c", 2, 10},
		{2, "c", 2, 20},
	}, got)
}

func insertAB(t *testing.T, tab *table.Table, id int64, x string) {
	t.Helper()
	_, err := tab.Insert(&Row{
		Cols: []string{"id", "x"},
		Vals: []Value{{DType: INT64, I64: id}, {DType: CHARN, Bytes: []byte(x)}},
	})
	require.NoError(t, err)
}

func insertABInt(t *testing.T, tab *table.Table, id int64, y int64) {
	t.Helper()
	_, err := tab.Insert(&Row{
		Cols: []string{"id", "y"},
		Vals: []Value{{DType: INT64, I64: id}, {DType: INT64, I64: y}},
	})
	require.NoError(t, err)
}

func TestVarcharRoundTripAcrossGrains(t *testing.T) {
	db := openTestDB(t, WithVarcharGrain(8))
	tab, err := db.CreateTable("DOC", []schema.Field{Field("bio", VARCHAR, 24)})
	require.NoError(t, err)

	c, err := tab.Insert(&Row{
		Cols: []string{"bio"},
		Vals: []Value{{DType: VARCHAR, Bytes: []byte("The quick brown fox jumps over the lazy d")}},
	})
	require.NoError(t, err)

	row, err := tab.RowAt(c)
	require.NoError(t, err)
	require.Equal(t, []byte("The quick brown fox jumps over the lazy d"), row.Vals[0].Bytes)

	require.NoError(t, tab.UpdateElement(c, "bio", Value{DType: VARCHAR, Bytes: []byte("yes")}))
	row, err = tab.RowAt(c)
	require.NoError(t, err)
	require.Equal(t, 3, len(row.Vals[0].Bytes))
	require.Equal(t, []byte("yes"), row.Vals[0].Bytes)
}

func TestDropTableTwiceIsCleanNotCorrupting(t *testing.T) {
	db := openTestDB(t)
	_, err := db.CreateTable("STUDENT", []schema.Field{Field("ID", INT64, 8)})
	require.NoError(t, err)

	require.NoError(t, db.DropTable("STUDENT"))

	err = db.DropTable("STUDENT")
	require.Error(t, err)
	require.True(t, errs.Is(err, errs.KindInvalidHandle))
}

func TestDurabilityAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "durable.db")

	db, err := Open(path)
	require.NoError(t, err)
	tab, err := db.CreateTable("BIG", []schema.Field{Field("id", INT64, 8)})
	require.NoError(t, err)
	for id := int64(0); id < 1000; id++ {
		_, err := tab.Insert(&Row{Cols: []string{"id"}, Vals: []Value{{DType: INT64, I64: id}}})
		require.NoError(t, err)
	}
	require.NoError(t, db.Close())

	db2, err := Open(path)
	require.NoError(t, err)
	defer func() { _ = db2.Close() }()

	tab2, err := db2.Table("BIG")
	require.NoError(t, err)
	require.Equal(t, int64(1000), tab2.RowCount())

	out, err := tab2.Select("SAMPLE", tab2.FieldPredicate("id", EQ, Value{DType: INT64, I64: 500}))
	require.NoError(t, err)
	require.Equal(t, int64(1), out.RowCount())
	it := out.Scan()
	row, err := it.Row()
	require.NoError(t, err)
	require.Equal(t, int64(500), row.Vals[0].I64)
}
