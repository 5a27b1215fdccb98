package object

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTableSetGetDelete(t *testing.T) {
	var tbl Table
	key := NewStringObject("answer")

	_, ok := tbl.Get(key)
	require.False(t, ok)

	isNew := tbl.Set(key, Number(42))
	require.True(t, isNew)
	require.Equal(t, 1, tbl.Count())

	v, ok := tbl.Get(key)
	require.True(t, ok)
	require.Equal(t, Number(42), v)

	isNew = tbl.Set(key, Number(43))
	require.False(t, isNew, "overwriting an existing key is not a new insertion")
	require.Equal(t, 1, tbl.Count())

	v, ok = tbl.Get(key)
	require.True(t, ok)
	require.Equal(t, Number(43), v)

	require.True(t, tbl.Delete(key))
	require.False(t, tbl.Delete(key), "deleting twice reports absence the second time")

	_, ok = tbl.Get(key)
	require.False(t, ok)
}

func TestTableDeleteLeavesTombstoneThatDoesNotBreakProbing(t *testing.T) {
	var tbl Table
	// "a" and "i" hash to the same slot of the initial 8-slot table, so b sits
	// one slot past a and looking it up must probe across a's tombstone.
	a := NewStringObject("a")
	b := NewStringObject("i")

	tbl.Set(a, Number(1))
	tbl.Set(b, Number(2))
	tbl.Delete(a)

	v, ok := tbl.Get(b)
	require.True(t, ok)
	require.Equal(t, Number(2), v)
}

func TestTableGrowsAndPreservesEntries(t *testing.T) {
	var tbl Table
	keys := make([]*ObjString, 0, 100)
	for i := 0; i < 100; i++ {
		k := NewStringObject(fmt.Sprintf("key%d", i))
		keys = append(keys, k)
		tbl.Set(k, Number(float64(i)))
	}
	require.Equal(t, 100, tbl.Count())

	for i, k := range keys {
		v, ok := tbl.Get(k)
		require.True(t, ok)
		require.Equal(t, Number(float64(i)), v)
	}
}

func TestTableFindString(t *testing.T) {
	var tbl Table
	s := NewStringObject("hello")
	tbl.Set(s, Bool(true))

	found := tbl.FindString("hello", HashString("hello"))
	require.Same(t, s, found)

	require.Nil(t, tbl.FindString("goodbye", HashString("goodbye")))
}

func TestTableFindStringEmptyTable(t *testing.T) {
	var tbl Table
	require.Nil(t, tbl.FindString("x", HashString("x")))
}

func TestTableGetEmptyTable(t *testing.T) {
	var tbl Table
	_, ok := tbl.Get(NewStringObject("x"))
	require.False(t, ok)
}
