package vm

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func internedFor(t *testing.T, chars string) *ObjString {
	t.Helper()
	return &ObjString{Chars: chars, Hash: hashString(chars)}
}

func TestTableSetGetDelete(t *testing.T) {
	tbl := NewTable()
	key := internedFor(t, "answer")

	isNew := tbl.Set(key, NumberVal(42))
	require.True(t, isNew)

	value, ok := tbl.Get(key)
	require.True(t, ok)
	require.Equal(t, 42.0, value.Number)

	isNew = tbl.Set(key, NumberVal(43))
	require.False(t, isNew)

	require.True(t, tbl.Delete(key))
	_, ok = tbl.Get(key)
	require.False(t, ok)
}

func TestTableGetMissing(t *testing.T) {
	tbl := NewTable()
	_, ok := tbl.Get(internedFor(t, "nope"))
	require.False(t, ok)
}

func TestTableGrowsAndRetainsEntries(t *testing.T) {
	tbl := NewTable()
	keys := make([]*ObjString, 0, 64)
	for i := 0; i < 64; i++ {
		k := internedFor(t, string(rune('a'+i%26))+string(rune(i)))
		keys = append(keys, k)
		tbl.Set(k, NumberVal(float64(i)))
	}
	for i, k := range keys {
		v, ok := tbl.Get(k)
		require.True(t, ok)
		require.Equal(t, float64(i), v.Number)
	}
}

func TestTableRange(t *testing.T) {
	tbl := NewTable()
	tbl.Set(internedFor(t, "a"), NumberVal(1))
	tbl.Set(internedFor(t, "b"), NumberVal(2))

	seen := map[string]float64{}
	tbl.Range(func(key *ObjString, value Value) bool {
		seen[key.Chars] = value.Number
		return true
	})
	require.Equal(t, map[string]float64{"a": 1, "b": 2}, seen)
}

func TestTableFindStringByContent(t *testing.T) {
	tbl := NewTable()
	key := internedFor(t, "shared")
	tbl.Set(key, NilVal())

	found := tbl.FindString("shared", hashString("shared"))
	require.Same(t, key, found)

	require.Nil(t, tbl.FindString("missing", hashString("missing")))
}

func TestTableRemoveWhiteDropsUnmarkedKeys(t *testing.T) {
	tbl := NewTable()
	marked := internedFor(t, "kept")
	marked.marked = true
	unmarked := internedFor(t, "dropped")

	tbl.Set(marked, NilVal())
	tbl.Set(unmarked, NilVal())

	tbl.RemoveWhite()

	_, ok := tbl.Get(marked)
	require.True(t, ok)
	_, ok = tbl.Get(unmarked)
	require.False(t, ok)
}

// RemoveWhite converts a live entry into a tombstone; per Table.count's own
// contract ("live entries + tombstones, for load-factor accounting") and
// Delete's behavior, that conversion must never decrement count.
func TestTableRemoveWhiteAccountingMatchesDelete(t *testing.T) {
	tbl := NewTable()
	kept := internedFor(t, "kept")
	kept.marked = true
	dropped := internedFor(t, "dropped")

	tbl.Set(kept, NilVal())
	tbl.Set(dropped, NilVal())
	before := tbl.count

	tbl.RemoveWhite()

	require.Equal(t, before, tbl.count, "RemoveWhite must not decrement count; it only tombstones the slot")
}

// Repeated rounds of interning short-lived strings, each followed by a
// collection that tombstones the unreachable ones via RemoveWhite, must not
// saturate the table: Set's load-factor check needs an accurate count to
// trigger grow(), which is the only path that purges tombstones. If
// RemoveWhite under-counted, entries would fill with tombstones and never
// grow, and FindString/findEntry would eventually loop forever hunting for a
// free slot that no longer exists.
func TestInternTableGrowsAndPurgesTombstonesUnderRepeatedGCChurn(t *testing.T) {
	m := newTestVM()
	const rounds = 20
	const perRound = 50
	for r := 0; r < rounds; r++ {
		for i := 0; i < perRound; i++ {
			m.internString(fmt.Sprintf("churn-%d-%d", r, i))
		}
		m.collectGarbage()
	}

	live := m.internString("still-alive")
	found := m.strings.FindString("still-alive", hashString("still-alive"))
	require.Same(t, live, found)

	require.Greater(t, len(m.strings.entries), perRound,
		"table must have grown across the churn instead of saturating at its initial size")
}
