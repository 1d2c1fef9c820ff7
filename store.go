package mudb

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"go.uber.org/zap"

	"github.com/summit/mudb/internal/idgen"
	"github.com/summit/mudb/internal/key"
	"github.com/summit/mudb/internal/logstore"
	"github.com/summit/mudb/internal/record"
	"github.com/summit/mudb/internal/view"
	"github.com/summit/mudb/internal/wire"
)

// Store is a typed handle over one on-disk collection. See the package doc
// for the concurrency contract.
type Store[T any] struct {
	root     *os.Root
	filename string
	log      *logstore.LogStore[T]
	data     *record.Dataset[T]
	pending  []record.Doc[T]

	views     map[string]*view.View[T]
	viewNames []string // kept sorted so view iteration order is stable across restarts

	dirty  bool
	idgen  idgen.Generator
	logger *zap.Logger
}

// Open creates (or opens) filename within root, replays every record into
// an in-memory dataset, keeps only the newest revision of each identity,
// and returns a store with an empty change buffer, no views, and
// dirty=false.
func Open[T any](root *os.Root, filename string, opts ...Option[T]) (*Store[T], error) {
	log, data, err := logstore.Open[T](root, filename)
	if err != nil {
		return nil, translateOpenError(err)
	}
	// A log committed to several times since its last compaction holds
	// older revisions of an identity; drop them so the reopened dataset
	// matches the one-entry-per-identity state the store had in memory.
	for _, doc := range data.All() {
		if doc.Key.Ver < data.CurrentVersion(doc.Key.ID) {
			data.Remove(doc.Key)
		}
	}

	s := &Store[T]{
		root:     root,
		filename: filename,
		log:      log,
		data:     data,
		views:    make(map[string]*view.View[T]),
		idgen:    idgen.UUIDGenerator{},
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func translateOpenError(err error) error {
	var decodeErr *wire.DecodeError
	if errors.As(err, &decodeErr) {
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return fmt.Errorf("%w: %v", ErrIO, err)
}

// Insert assigns a new version to key.ID (or a freshly generated identity
// if key is nil) and stores obj there. It fails with a *StaleVersionError
// if key is non-nil and its Ver is below the identity's current stored
// version.
func (s *Store[T]) Insert(k *VersionedKey, obj T) (VersionedKey, error) {
	var id IndexKey
	var requestedVer uint64
	requested := k != nil
	if requested {
		id = k.ID
		requestedVer = k.Ver
	} else {
		id = key.NewStr(s.idgen.Fresh())
	}

	priorVer := s.data.CurrentVersion(id)
	if requested && requestedVer < priorVer {
		return VersionedKey{}, &StaleVersionError{Requested: requestedVer, Current: priorVer}
	}

	if priorVer > 0 {
		s.data.Remove(key.VersionedKey{ID: id, Ver: priorVer})
	}
	newKey := key.VersionedKey{ID: id, Ver: priorVer + 1}
	doc := record.NewDoc(newKey, obj)
	s.data.Put(doc)
	s.pending = append(s.pending, doc)
	s.dirty = true
	return newKey, nil
}

// Update looks up the exact revision vk; if it exists and is not a
// tombstone, applies op to its payload and inserts the result under the
// same identity. It returns (nil, nil) if vk does not name a live
// revision.
func (s *Store[T]) Update(vk VersionedKey, op func(T) T) (*VersionedKey, error) {
	doc, ok := s.data.Exact(vk)
	if !ok || doc.Obj == nil {
		return nil, nil
	}
	newObj := op(*doc.Obj)
	newKey, err := s.Insert(&vk, newObj)
	if err != nil {
		return nil, err
	}
	return &newKey, nil
}

// Get returns the highest-versioned live doc for id, including tombstones.
func (s *Store[T]) Get(id IndexKey) (*Doc[T], bool) {
	doc, ok := s.data.Latest(id)
	if !ok {
		return nil, false
	}
	clone := doc.Clone()
	return &clone, true
}

// Exact returns the doc at precisely vk, or false if no such revision
// exists (it may have been superseded and is no longer live).
func (s *Store[T]) Exact(vk VersionedKey) (*Doc[T], bool) {
	doc, ok := s.data.Exact(vk)
	if !ok {
		return nil, false
	}
	clone := doc.Clone()
	return &clone, true
}

// Delete replaces the live doc at the exact versioned key vk with a
// same-identity tombstone at vk.Incr(), returning the prior payload (nil if
// vk named no record, or named one that was already a tombstone).
func (s *Store[T]) Delete(vk VersionedKey) (*T, error) {
	doc, ok := s.data.Exact(vk)
	if !ok {
		return nil, nil
	}
	var prior *T
	if doc.Obj != nil {
		v := *doc.Obj
		prior = &v
	}

	s.data.Remove(vk)
	tomb := record.NewTombstone[T](vk.Incr())
	s.data.Put(tomb)
	s.pending = append(s.pending, tomb)
	s.dirty = true
	return prior, nil
}

// Commit appends the pending change buffer to the log, flushes, clears the
// buffer, clears dirty, and returns the number of records written. It is a
// no-op returning 0 if the buffer is empty.
func (s *Store[T]) Commit() (int, error) {
	if len(s.pending) == 0 {
		return 0, nil
	}
	if err := s.log.Append(s.pending); err != nil {
		return 0, translateLogError(err)
	}
	n := len(s.pending)
	s.pending = nil
	s.dirty = false
	return n, nil
}

// Compact rewrites the log to contain exactly one record per entry in the
// current dataset (which already reflects every mutation, committed or
// not), atomically replacing the old log. It is a no-op if the store is
// not dirty.
func (s *Store[T]) Compact() error {
	if !s.dirty {
		return nil
	}
	if err := s.log.Compact(s.data); err != nil {
		return translateLogError(err)
	}
	s.pending = nil
	s.dirty = false
	return nil
}

func translateLogError(err error) error {
	if errors.Is(err, wire.ErrEncode) {
		return fmt.Errorf("%w: %v", ErrEncode, err)
	}
	return fmt.Errorf("%w: %v", ErrIO, err)
}

// Find performs a full scan over live payloads, returning a clone of every
// payload q matches, in ascending VersionedKey (map iteration) order.
func (s *Store[T]) Find(q Query[T]) []T {
	var out []T
	for _, doc := range s.data.All() {
		if doc.Obj == nil {
			continue
		}
		if q.Matches(doc.Obj) {
			out = append(out, *doc.Obj)
		}
	}
	return out
}

// AddView registers a named secondary index, replacing any existing view
// under the same name.
func (s *Store[T]) AddView(name string, indexer Indexer[T]) {
	if _, exists := s.views[name]; !exists {
		i := sort.SearchStrings(s.viewNames, name)
		s.viewNames = append(s.viewNames, "")
		copy(s.viewNames[i+1:], s.viewNames[i:])
		s.viewNames[i] = name
	}
	s.views[name] = view.New[T](indexer)
}

// BuildViews rebuilds every registered view, in name order, by diffing
// each view's last snapshot against the current dataset.
func (s *Store[T]) BuildViews() {
	for _, name := range s.viewNames {
		s.views[name].Build(s.data)
	}
}

// FindByView resolves every identity currently indexed under term in the
// named view to its latest live payload. An unknown view name returns an
// empty slice.
func (s *Store[T]) FindByView(name string, term IndexKey) []T {
	v, ok := s.views[name]
	if !ok {
		return nil
	}
	var out []T
	for _, id := range v.Query(term) {
		doc, ok := s.data.Latest(id)
		if !ok || doc.Obj == nil {
			continue
		}
		out = append(out, *doc.Obj)
	}
	return out
}

// Count returns the number of entries in the dataset, tombstones included.
func (s *Store[T]) Count() int { return s.data.Len() }

// Modified reports whether the store has pending, uncommitted mutations.
func (s *Store[T]) Modified() bool { return s.dirty }

// Close attempts a best-effort Commit then Compact (failures are logged,
// not returned) and then releases the log's file handle, so a caller that
// forgets to commit still leaves the collection durable on teardown.
func (s *Store[T]) Close() error {
	if _, err := s.Commit(); err != nil {
		s.logger.Error("mudb: commit during close failed",
			zap.String("file", s.filename), zap.Error(err))
	}
	if err := s.Compact(); err != nil {
		s.logger.Error("mudb: compact during close failed",
			zap.String("file", s.filename), zap.Error(err))
	}
	if err := s.log.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	return nil
}
