package mudb_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/summit/mudb"
)

type note struct {
	Text string
	Tag  string
}

func openRoot(t *testing.T) *os.Root {
	t.Helper()
	dir := t.TempDir()
	root, err := os.OpenRoot(dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = root.Close() })
	return root
}

func TestInsertAssignsVersionOneToFreshIdentity(t *testing.T) {
	root := openRoot(t)
	s, err := mudb.Open[note](root, "notes.log")
	require.NoError(t, err)
	defer s.Close()

	vk, err := s.Insert(nil, note{Text: "hello"})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), vk.Ver)
}

func TestInsertOnExistingIdentityMonotonicallyIncrementsVersion(t *testing.T) {
	root := openRoot(t)
	s, err := mudb.Open[note](root, "notes.log")
	require.NoError(t, err)
	defer s.Close()

	k := mudb.NewVersionedKey(mudb.NewStrKey("a"))
	vk1, err := s.Insert(&k, note{Text: "v1"})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), vk1.Ver)

	vk2, err := s.Insert(&vk1, note{Text: "v2"})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), vk2.Ver)

	got, ok := s.Get(mudb.NewStrKey("a"))
	require.True(t, ok)
	assert.Equal(t, "v2", got.Obj.Text)
}

func TestInsertWithStaleVersionIsRejected(t *testing.T) {
	root := openRoot(t)
	s, err := mudb.Open[note](root, "notes.log")
	require.NoError(t, err)
	defer s.Close()

	k := mudb.NewVersionedKey(mudb.NewStrKey("a"))
	vk1, err := s.Insert(&k, note{Text: "v1"})
	require.NoError(t, err)
	_, err = s.Insert(&vk1, note{Text: "v2"})
	require.NoError(t, err)

	// vk1 (version 1) is now stale; current version is 2.
	_, err = s.Insert(&vk1, note{Text: "conflict"})
	require.Error(t, err)
	var staleErr *mudb.StaleVersionError
	require.ErrorAs(t, err, &staleErr)
	assert.Equal(t, uint64(1), staleErr.Requested)
	assert.Equal(t, uint64(2), staleErr.Current)
}

func TestDeleteLeavesATombstoneVisibleToGet(t *testing.T) {
	root := openRoot(t)
	s, err := mudb.Open[note](root, "notes.log")
	require.NoError(t, err)
	defer s.Close()

	vk, err := s.Insert(nil, note{Text: "gone soon"})
	require.NoError(t, err)

	prior, err := s.Delete(vk)
	require.NoError(t, err)
	require.NotNil(t, prior)
	assert.Equal(t, "gone soon", prior.Text)

	doc, ok := s.Get(vk.ID)
	require.True(t, ok)
	assert.True(t, doc.HasFlag(mudb.FlagDeleted))
	assert.Nil(t, doc.Obj)
}

func TestDeleteOfUnknownKeyIsNoop(t *testing.T) {
	root := openRoot(t)
	s, err := mudb.Open[note](root, "notes.log")
	require.NoError(t, err)
	defer s.Close()

	prior, err := s.Delete(mudb.NewVersionedKey(mudb.NewStrKey("absent")))
	require.NoError(t, err)
	assert.Nil(t, prior)
}

func TestUpdateAppliesFunctionToExistingPayload(t *testing.T) {
	root := openRoot(t)
	s, err := mudb.Open[note](root, "notes.log")
	require.NoError(t, err)
	defer s.Close()

	vk, err := s.Insert(nil, note{Text: "hello", Tag: "greeting"})
	require.NoError(t, err)

	newVK, err := s.Update(vk, func(n note) note {
		n.Text = "hello world"
		return n
	})
	require.NoError(t, err)
	require.NotNil(t, newVK)

	got, ok := s.Get(vk.ID)
	require.True(t, ok)
	assert.Equal(t, "hello world", got.Obj.Text)
	assert.Equal(t, "greeting", got.Obj.Tag)
}

func TestUpdateOfTombstoneIsNoop(t *testing.T) {
	root := openRoot(t)
	s, err := mudb.Open[note](root, "notes.log")
	require.NoError(t, err)
	defer s.Close()

	vk, err := s.Insert(nil, note{Text: "temp"})
	require.NoError(t, err)
	_, err = s.Delete(vk)
	require.NoError(t, err)

	newVK, err := s.Update(vk, func(n note) note { return n })
	require.NoError(t, err)
	assert.Nil(t, newVK)
}

func TestFilterAlgebraMatchesSpecScenario(t *testing.T) {
	root := openRoot(t)
	s, err := mudb.Open[note](root, "notes.log")
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Insert(nil, note{Text: "hello"})
	require.NoError(t, err)
	_, err = s.Insert(nil, note{Text: "goodbye"})
	require.NoError(t, err)

	isHello := mudb.QueryFunc[note](func(n *note) bool { return n.Text == "hello" })
	isGoodbye := mudb.QueryFunc[note](func(n *note) bool { return n.Text == "goodbye" })

	both := s.Find(mudb.And[note](isHello, isGoodbye))
	assert.Empty(t, both)

	either := s.Find(mudb.Or[note](isHello, isGoodbye))
	assert.Len(t, either, 2)

	neitherHello := s.Find(mudb.Not[note](isHello))
	assert.Len(t, neitherHello, 1)
	assert.Equal(t, "goodbye", neitherHello[0].Text)
}

func TestFindSkipsTombstones(t *testing.T) {
	root := openRoot(t)
	s, err := mudb.Open[note](root, "notes.log")
	require.NoError(t, err)
	defer s.Close()

	vk, err := s.Insert(nil, note{Text: "hello"})
	require.NoError(t, err)
	_, err = s.Insert(nil, note{Text: "goodbye"})
	require.NoError(t, err)
	_, err = s.Delete(vk)
	require.NoError(t, err)

	all := s.Find(mudb.QueryFunc[note](func(n *note) bool { return true }))
	require.Len(t, all, 1)
	assert.Equal(t, "goodbye", all[0].Text)
}

func TestCommitThenReopenReplaysIdenticalState(t *testing.T) {
	root := openRoot(t)
	s, err := mudb.Open[note](root, "notes.log")
	require.NoError(t, err)

	vk, err := s.Insert(nil, note{Text: "v1"})
	require.NoError(t, err)
	_, err = s.Insert(&vk, note{Text: "v2"})
	require.NoError(t, err)
	n, err := s.Commit()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.NoError(t, s.Close())

	s2, err := mudb.Open[note](root, "notes.log")
	require.NoError(t, err)
	defer s2.Close()

	got, ok := s2.Get(vk.ID)
	require.True(t, ok)
	assert.Equal(t, "v2", got.Obj.Text)
	assert.Equal(t, uint64(2), got.Key.Ver)
}

func TestCompactionPreservesEquivalentState(t *testing.T) {
	root := openRoot(t)
	s, err := mudb.Open[note](root, "notes.log")
	require.NoError(t, err)

	const idCount = 50
	keys := make([]mudb.VersionedKey, idCount)
	for i := 0; i < idCount; i++ {
		vk, err := s.Insert(nil, note{Text: "initial"})
		require.NoError(t, err)
		keys[i] = vk
	}
	for round := 0; round < 5; round++ {
		for i, vk := range keys {
			newVK, err := s.Insert(&vk, note{Text: "revised"})
			require.NoError(t, err)
			keys[i] = newVK
		}
	}
	_, err = s.Commit()
	require.NoError(t, err)

	require.NoError(t, s.Compact())
	require.Equal(t, idCount, s.Count())

	require.NoError(t, s.Close())

	s2, err := mudb.Open[note](root, "notes.log")
	require.NoError(t, err)
	defer s2.Close()

	assert.Equal(t, idCount, s2.Count())
	for _, vk := range keys {
		got, ok := s2.Get(vk.ID)
		require.True(t, ok)
		assert.Equal(t, "revised", got.Obj.Text)
	}
}

func TestModifiedReflectsPendingChangeBuffer(t *testing.T) {
	root := openRoot(t)
	s, err := mudb.Open[note](root, "notes.log")
	require.NoError(t, err)
	defer s.Close()

	assert.False(t, s.Modified())
	_, err = s.Insert(nil, note{Text: "x"})
	require.NoError(t, err)
	assert.True(t, s.Modified())

	_, err = s.Commit()
	require.NoError(t, err)
	assert.False(t, s.Modified())
}

func TestViewsIndexAndRebuildAfterTombstone(t *testing.T) {
	root := openRoot(t)
	s, err := mudb.Open[note](root, "notes.log")
	require.NoError(t, err)
	defer s.Close()

	s.AddView("by-tag", mudb.IndexerFunc[note](func(n *note) []mudb.IndexKey {
		if n.Tag == "" {
			return nil
		}
		return []mudb.IndexKey{mudb.NewStrKey(n.Tag)}
	}))

	vk1, err := s.Insert(nil, note{Text: "a", Tag: "x"})
	require.NoError(t, err)
	_, err = s.Insert(nil, note{Text: "b", Tag: "x"})
	require.NoError(t, err)
	s.BuildViews()

	matches := s.FindByView("by-tag", mudb.NewStrKey("x"))
	assert.Len(t, matches, 2)

	_, err = s.Delete(vk1)
	require.NoError(t, err)
	s.BuildViews()

	matches = s.FindByView("by-tag", mudb.NewStrKey("x"))
	require.Len(t, matches, 1)
	assert.Equal(t, "b", matches[0].Text)
}

func TestFindByViewOnUnknownNameReturnsEmpty(t *testing.T) {
	root := openRoot(t)
	s, err := mudb.Open[note](root, "notes.log")
	require.NoError(t, err)
	defer s.Close()

	assert.Empty(t, s.FindByView("nope", mudb.NewStrKey("x")))
}
