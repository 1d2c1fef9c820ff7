// Package record implements the versioned document envelope (Doc, Flag)
// and the ordered in-memory dataset that a mudb.Store keeps live.
package record

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/summit/mudb/internal/key"
)

// Flag tags a Doc with informational or structural metadata. Flag
// serializes as its string tag.
type Flag string

const (
	// FlagBinary hints that the payload is an opaque binary blob. It is
	// purely informational; mudb never inspects it.
	FlagBinary Flag = "binary"
	// FlagDeleted marks a Doc as a tombstone: Obj is always nil when this
	// flag is present, and vice versa.
	FlagDeleted Flag = "deleted"
)

// FlagSet is the set of flags carried by a Doc. It serializes as a JSON
// array of string tags rather than an object.
type FlagSet map[Flag]struct{}

// MarshalJSON renders the set as a sorted array of string tags, so the
// on-disk encoding is deterministic across writes even though flag
// ordering itself carries no meaning.
func (fs FlagSet) MarshalJSON() ([]byte, error) {
	tags := make([]string, 0, len(fs))
	for f := range fs {
		tags = append(tags, string(f))
	}
	sort.Strings(tags)
	return json.Marshal(tags)
}

// UnmarshalJSON parses a JSON array of string tags.
func (fs *FlagSet) UnmarshalJSON(data []byte) error {
	var tags []string
	if err := json.Unmarshal(data, &tags); err != nil {
		return fmt.Errorf("record: decode flags: %w", err)
	}
	set := make(FlagSet, len(tags))
	for _, tag := range tags {
		set[Flag(tag)] = struct{}{}
	}
	*fs = set
	return nil
}

// Has reports whether f is a member of the set.
func (fs FlagSet) Has(f Flag) bool {
	_, ok := fs[f]
	return ok
}

// Doc is the versioned wrapper around a user payload. Obj is nil if and
// only if Flags contains FlagDeleted.
type Doc[T any] struct {
	Key   key.VersionedKey `json:"key"`
	Flags FlagSet          `json:"flags"`
	Obj   *T               `json:"obj,omitempty"`
}

// NewDoc builds a live Doc at key k wrapping obj, with no flags set.
func NewDoc[T any](k key.VersionedKey, obj T) Doc[T] {
	return Doc[T]{Key: k, Flags: FlagSet{}, Obj: &obj}
}

// NewTombstone builds a Doc at key k carrying the Deleted flag and no
// payload.
func NewTombstone[T any](k key.VersionedKey) Doc[T] {
	return Doc[T]{Key: k, Flags: FlagSet{FlagDeleted: {}}, Obj: nil}
}

// HasFlag reports whether f is present on the document.
func (d Doc[T]) HasFlag(f Flag) bool {
	return d.Flags.Has(f)
}

// Clone returns a deep-enough copy of d for safe handoff to callers: the
// flag set is copied and the payload pointer is replaced with a pointer to
// a copy of the pointed-to value.
func (d Doc[T]) Clone() Doc[T] {
	out := Doc[T]{Key: d.Key, Flags: make(FlagSet, len(d.Flags))}
	for f := range d.Flags {
		out.Flags[f] = struct{}{}
	}
	if d.Obj != nil {
		objCopy := *d.Obj
		out.Obj = &objCopy
	}
	return out
}

// Dataset is the live, ordered VersionedKey -> Doc[T] map a Store holds in
// memory. A mudb Store never retains more than one entry per identity at a
// time (insert/delete both replace the prior entry for that identity), so
// a range scan over one identity's versions always degenerates to its one
// live entry, and the identity index below maps straight to that entry
// rather than keeping a list of revisions.
type Dataset[T any] struct {
	docs    map[key.VersionedKey]Doc[T]
	order   []key.VersionedKey // kept sorted ascending
	byID    map[key.IndexKey]key.VersionedKey
}

// NewDataset returns an empty dataset.
func NewDataset[T any]() *Dataset[T] {
	return &Dataset[T]{
		docs: make(map[key.VersionedKey]Doc[T]),
		byID: make(map[key.IndexKey]key.VersionedKey),
	}
}

// Len returns the number of live entries.
func (ds *Dataset[T]) Len() int { return len(ds.docs) }

// Put inserts or overwrites the entry at doc.Key, maintaining sort order
// and the identity index. If another entry already exists for the same
// identity, the caller is expected to have already removed it via Remove;
// Put does not do that itself because the facade needs the prior doc's
// payload before it disappears.
func (ds *Dataset[T]) Put(doc Doc[T]) {
	if _, exists := ds.docs[doc.Key]; !exists {
		ds.insertSorted(doc.Key)
	}
	ds.docs[doc.Key] = doc
	ds.byID[doc.Key.ID] = doc.Key
}

func (ds *Dataset[T]) insertSorted(vk key.VersionedKey) {
	i := sort.Search(len(ds.order), func(i int) bool { return !ds.order[i].Less(vk) })
	ds.order = append(ds.order, key.VersionedKey{})
	copy(ds.order[i+1:], ds.order[i:])
	ds.order[i] = vk
}

// Remove deletes the exact entry at vk, if present, and returns it.
func (ds *Dataset[T]) Remove(vk key.VersionedKey) (Doc[T], bool) {
	doc, ok := ds.docs[vk]
	if !ok {
		return Doc[T]{}, false
	}
	delete(ds.docs, vk)
	if cur, ok := ds.byID[vk.ID]; ok && cur.Equal(vk) {
		delete(ds.byID, vk.ID)
	}
	i := sort.Search(len(ds.order), func(i int) bool { return !ds.order[i].Less(vk) })
	if i < len(ds.order) && ds.order[i].Equal(vk) {
		ds.order = append(ds.order[:i], ds.order[i+1:]...)
	}
	return doc, true
}

// Exact returns the doc stored at exactly vk.
func (ds *Dataset[T]) Exact(vk key.VersionedKey) (Doc[T], bool) {
	doc, ok := ds.docs[vk]
	return doc, ok
}

// Latest returns the current live doc for identity id, i.e. the doc with
// the highest version ever assigned to id while it remains live.
func (ds *Dataset[T]) Latest(id key.IndexKey) (Doc[T], bool) {
	vk, ok := ds.byID[id]
	if !ok {
		return Doc[T]{}, false
	}
	return ds.docs[vk], true
}

// CurrentVersion returns the version of the live entry for id, or 0 if
// none exists yet (matching "prior_ver is 0 if none" in the insert
// contract).
func (ds *Dataset[T]) CurrentVersion(id key.IndexKey) uint64 {
	vk, ok := ds.byID[id]
	if !ok {
		return 0
	}
	return vk.Ver
}

// All returns every live entry in ascending VersionedKey order.
func (ds *Dataset[T]) All() []Doc[T] {
	out := make([]Doc[T], 0, len(ds.order))
	for _, vk := range ds.order {
		out = append(out, ds.docs[vk])
	}
	return out
}

// Clone returns a deep-enough snapshot suitable as a View's reference
// frame: independent of later mutations to ds.
func (ds *Dataset[T]) Clone() *Dataset[T] {
	clone := NewDataset[T]()
	clone.order = append(clone.order, ds.order...)
	for k, v := range ds.docs {
		clone.docs[k] = v.Clone()
	}
	for k, v := range ds.byID {
		clone.byID[k] = v
	}
	return clone
}

// DiffEntry describes one change between two Dataset snapshots, keyed by
// VersionedKey. A VersionedKey is never reused across mutations -- a
// revised identity gets a new, higher version rather than an overwrite in
// place -- so a diff over VersionedKey space only ever yields additions
// and removals; there is no separate "updated" case.
type DiffEntry[T any] struct {
	Key   key.VersionedKey
	Doc   Doc[T]
	Added bool // false means removed
}

// Diff computes the ordered diff between prev and current, walking both
// sorted key lists with a two-pointer merge (grounded on jpr/diff.Compute's
// "walk the exported index, compare before/after" shape, specialized to a
// merge over two sorted slices instead of a single map scan).
func Diff[T any](prev, current *Dataset[T]) []DiffEntry[T] {
	if prev == nil {
		prev = NewDataset[T]()
	}
	if current == nil {
		current = NewDataset[T]()
	}
	var out []DiffEntry[T]
	i, j := 0, 0
	for i < len(prev.order) && j < len(current.order) {
		pk, ck := prev.order[i], current.order[j]
		switch {
		case pk.Equal(ck):
			i++
			j++
		case pk.Less(ck):
			out = append(out, DiffEntry[T]{Key: pk, Doc: prev.docs[pk], Added: false})
			i++
		default:
			out = append(out, DiffEntry[T]{Key: ck, Doc: current.docs[ck], Added: true})
			j++
		}
	}
	for ; i < len(prev.order); i++ {
		pk := prev.order[i]
		out = append(out, DiffEntry[T]{Key: pk, Doc: prev.docs[pk], Added: false})
	}
	for ; j < len(current.order); j++ {
		ck := current.order[j]
		out = append(out, DiffEntry[T]{Key: ck, Doc: current.docs[ck], Added: true})
	}
	return out
}
