// Package mudb implements an embedded, single-process document store for
// small-to-medium collections that must survive process restarts: typed
// insert/lookup/update/delete, composable filter queries, and named
// secondary-index ("view") lookups over an append-only log with periodic
// compaction.
//
// A Store is not safe for concurrent use by multiple goroutines without
// external synchronization: it is single-threaded and not shared. Two
// Stores over different files may run independently; two Stores over the
// same file concurrently is undefined.
package mudb

import (
	"github.com/summit/mudb/internal/key"
	"github.com/summit/mudb/internal/query"
	"github.com/summit/mudb/internal/record"
	"github.com/summit/mudb/internal/view"
)

// IndexKey is a tagged union of a text identity and a signed 64-bit
// integer identity, totally ordered with the text variant sorting before
// the integer variant.
type IndexKey = key.IndexKey

// VersionedKey pairs an IndexKey with a monotonic revision counter.
type VersionedKey = key.VersionedKey

// Flag tags a Doc with informational or structural metadata.
type Flag = record.Flag

// Flag values, re-exported for callers that only import the root package.
const (
	FlagBinary  = record.FlagBinary
	FlagDeleted = record.FlagDeleted
)

// Doc is the versioned wrapper around a user payload.
type Doc[T any] = record.Doc[T]

// Query is anything that can test a payload for a match.
type Query[T any] = query.Query[T]

// QueryFunc adapts a plain function into a Query.
type QueryFunc[T any] = query.Func[T]

// Indexer maps a payload to zero or more terms it should be found under.
type Indexer[T any] = view.Indexer[T]

// IndexerFunc adapts a plain function into an Indexer.
type IndexerFunc[T any] = view.IndexerFunc[T]

// NewStrKey builds a text-variant IndexKey.
func NewStrKey(s string) IndexKey { return key.NewStr(s) }

// NewNumKey builds an integer-variant IndexKey.
func NewNumKey(n int64) IndexKey { return key.NewNum(n) }

// NewVersionedKey returns the initial VersionedKey for an identity, at
// version 0.
func NewVersionedKey(id IndexKey) VersionedKey { return key.New(id) }

// Not returns a Query matching exactly when q does not.
func Not[T any](q Query[T]) Query[T] { return query.Not(q) }

// And returns a Query matching when both lhs and rhs match, short-
// circuiting: rhs is never evaluated if lhs is false.
func And[T any](lhs, rhs Query[T]) Query[T] { return query.And(lhs, rhs) }

// Or returns a Query matching when either lhs or rhs match, short-
// circuiting: rhs is never evaluated if lhs is true.
func Or[T any](lhs, rhs Query[T]) Query[T] { return query.Or(lhs, rhs) }
