// Package view implements named secondary indexes: a View maintains an
// inverted index from indexer-produced terms to document identities,
// rebuilt incrementally by diffing successive Dataset snapshots.
//
// Grounded on jpr/diff.Compute's "diff two snapshots, only touch what
// changed" shape, adapted from policy-matrix diffing to key-set diffing.
package view

import (
	"github.com/summit/mudb/internal/key"
	"github.com/summit/mudb/internal/record"
)

// Indexer maps a payload to zero or more terms it should be found under.
type Indexer[T any] interface {
	Index(obj *T) []key.IndexKey
}

// IndexerFunc adapts a plain function into an Indexer.
type IndexerFunc[T any] func(obj *T) []key.IndexKey

// Index calls the wrapped function.
func (f IndexerFunc[T]) Index(obj *T) []key.IndexKey { return f(obj) }

// View is one named secondary index over a collection's payloads.
type View[T any] struct {
	indexer  Indexer[T]
	snapshot *record.Dataset[T]
	inverted map[key.IndexKey]map[key.IndexKey]struct{} // term -> set of identities
}

// New constructs a View driven by the given indexer. It holds no snapshot
// until the first call to Build.
func New[T any](indexer Indexer[T]) *View[T] {
	return &View[T]{
		indexer:  indexer,
		inverted: make(map[key.IndexKey]map[key.IndexKey]struct{}),
	}
}

// Build diffs the view's last snapshot against current and incrementally
// updates the inverted index, then replaces the snapshot with a clone of
// current. Diff entries without a payload (tombstones) are skipped, so a
// tombstone is never indexed; when an identity is deleted, its stale term
// memberships are cleared by the diff's removal of the prior live revision,
// whose payload the indexer is run over again.
func (v *View[T]) Build(current *record.Dataset[T]) {
	diff := record.Diff(v.snapshot, current)
	for _, entry := range diff {
		if entry.Doc.Obj == nil {
			continue
		}
		id := entry.Key.ID
		for _, term := range v.indexer.Index(entry.Doc.Obj) {
			if entry.Added {
				v.addTerm(term, id)
			} else {
				v.removeTerm(term, id)
			}
		}
	}
	v.snapshot = current.Clone()
}

func (v *View[T]) addTerm(term, id key.IndexKey) {
	set, ok := v.inverted[term]
	if !ok {
		set = make(map[key.IndexKey]struct{})
		v.inverted[term] = set
	}
	set[id] = struct{}{}
}

func (v *View[T]) removeTerm(term, id key.IndexKey) {
	set, ok := v.inverted[term]
	if !ok {
		return
	}
	delete(set, id)
	if len(set) == 0 {
		delete(v.inverted, term)
	}
}

// Query returns the identities currently indexed under term, in no
// particular order. A missing term returns an empty slice.
func (v *View[T]) Query(term key.IndexKey) []key.IndexKey {
	set, ok := v.inverted[term]
	if !ok {
		return nil
	}
	out := make([]key.IndexKey, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}
