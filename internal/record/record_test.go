package record_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/summit/mudb/internal/key"
	"github.com/summit/mudb/internal/record"
)

func TestDocTombstoneHasNoPayload(t *testing.T) {
	vk := key.New(key.NewStr("k"))
	ts := record.NewTombstone[string](vk.Incr())
	assert.Nil(t, ts.Obj)
	assert.True(t, ts.HasFlag(record.FlagDeleted))
}

func TestDocCloneIsIndependent(t *testing.T) {
	vk := key.New(key.NewStr("k"))
	doc := record.NewDoc(vk, "hello")
	clone := doc.Clone()

	*clone.Obj = "mutated"
	require.NotNil(t, doc.Obj)
	assert.Equal(t, "hello", *doc.Obj, "mutating the clone must not affect the original")
}

func TestDatasetPutRemoveLatest(t *testing.T) {
	ds := record.NewDataset[string]()
	id := key.NewStr("x")

	v1 := key.New(id)
	ds.Put(record.NewDoc(v1, "first"))
	assert.Equal(t, 1, ds.Len())
	assert.Equal(t, uint64(0), ds.CurrentVersion(id))

	// simulate an insert: remove the prior entry, add the new one
	_, ok := ds.Remove(v1)
	require.True(t, ok)
	v2 := v1.Incr()
	ds.Put(record.NewDoc(v2, "second"))

	latest, ok := ds.Latest(id)
	require.True(t, ok)
	assert.Equal(t, "second", *latest.Obj)
	assert.Equal(t, uint64(1), ds.CurrentVersion(id))
	assert.Equal(t, 1, ds.Len(), "dataset holds at most one live entry per identity")
}

func TestDatasetExactVsLatest(t *testing.T) {
	ds := record.NewDataset[string]()
	vk := key.New(key.NewStr("a"))
	ds.Put(record.NewDoc(vk, "v"))

	doc, ok := ds.Exact(vk)
	require.True(t, ok)
	assert.Equal(t, "v", *doc.Obj)

	_, ok = ds.Exact(vk.Incr())
	assert.False(t, ok)
}

func TestDatasetAllOrderedAscending(t *testing.T) {
	ds := record.NewDataset[int]()
	ds.Put(record.NewDoc(key.New(key.NewStr("b")), 2))
	ds.Put(record.NewDoc(key.New(key.NewStr("a")), 1))
	ds.Put(record.NewDoc(key.New(key.NewNum(5)), 3))

	all := ds.All()
	require.Len(t, all, 3)
	for i := 1; i < len(all); i++ {
		assert.True(t, all[i-1].Key.Less(all[i].Key), "All() must yield ascending VersionedKey order")
	}
}

func TestDatasetCloneIsSnapshot(t *testing.T) {
	ds := record.NewDataset[string]()
	id := key.NewStr("k")
	vk := key.New(id)
	ds.Put(record.NewDoc(vk, "before"))

	snap := ds.Clone()

	ds.Remove(vk)
	ds.Put(record.NewDoc(vk.Incr(), "after"))

	latest, ok := snap.Latest(id)
	require.True(t, ok)
	assert.Equal(t, "before", *latest.Obj, "clone must not observe later mutation")
}

func TestDiffAddedAndRemoved(t *testing.T) {
	prev := record.NewDataset[string]()
	idA := key.NewStr("a")
	vkA := key.New(idA)
	prev.Put(record.NewDoc(vkA, "a-v0"))

	current := record.NewDataset[string]()
	vkA2 := vkA.Incr()
	current.Put(record.NewDoc(vkA2, "a-v1"))
	idB := key.NewStr("b")
	current.Put(record.NewDoc(key.New(idB), "b-v0"))

	diff := record.Diff(prev, current)

	var added, removed int
	for _, d := range diff {
		if d.Added {
			added++
		} else {
			removed++
		}
	}
	assert.Equal(t, 2, added, "new version of a, plus new entry b")
	assert.Equal(t, 1, removed, "old version of a")
}

func TestDiffAgainstNilPrev(t *testing.T) {
	current := record.NewDataset[string]()
	current.Put(record.NewDoc(key.New(key.NewStr("only")), "v"))

	diff := record.Diff[string](nil, current)
	require.Len(t, diff, 1)
	assert.True(t, diff[0].Added)
}
