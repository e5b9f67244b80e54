package compare

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/AaLexUser/low-level-programming/internal/schema"
)

func i64(v int64) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, uint64(v))
	return buf
}

func f32(v float32) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, math.Float32bits(v))
	return buf
}

func TestCompareInt64Ordering(t *testing.T) {
	lt, err := Compare(nil, schema.INT64, i64(1), i64(2), LT)
	require.NoError(t, err)
	require.True(t, lt)

	ge, err := Compare(nil, schema.INT64, i64(5), i64(5), GE)
	require.NoError(t, err)
	require.True(t, ge)
}

func TestCompareFloat32(t *testing.T) {
	gt, err := Compare(nil, schema.FLOAT32, f32(3.5), f32(2.1), GT)
	require.NoError(t, err)
	require.True(t, gt)
}

func TestCompareBoolOnlyEquality(t *testing.T) {
	eq, err := Compare(nil, schema.BOOL, []byte{1}, []byte{1}, EQ)
	require.NoError(t, err)
	require.True(t, eq)

	_, err = Compare(nil, schema.BOOL, []byte{1}, []byte{0}, LT)
	require.Error(t, err)
}

func TestCompareCharNLexicographic(t *testing.T) {
	lt, err := Compare(nil, schema.CHARN, []byte("abc\x00"), []byte("abd\x00"), LT)
	require.NoError(t, err)
	require.True(t, lt)
}

func TestCompareUnknownCondition(t *testing.T) {
	_, err := Compare(nil, schema.INT64, i64(1), i64(1), Condition(99))
	require.Error(t, err)
}
