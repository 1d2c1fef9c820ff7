// Package logstore implements the append-only log backing a mudb
// collection: replay-on-open, append-on-commit, compact-via-atomic-rename.
//
// Grounded on services/qset/internal/ledger/ledger.go's bootstrap/append
// shape (bufio.Scanner replay, os.OpenFile append-only writes), with the
// hash-chain/signature verification dropped (not part of this spec) and a
// Compact step added that ledger.go never needed (an audit ledger is never
// rewritten; a mudb log is).
package logstore

import (
	"errors"
	"fmt"
	"os"

	"github.com/summit/mudb/internal/record"
	"github.com/summit/mudb/internal/wire"
)

// LogStore owns the on-disk append-only log file for one collection,
// scoped to a directory capability (*os.Root) so it never resolves paths
// outside the caller-provided directory.
type LogStore[T any] struct {
	root     *os.Root
	filename string
	appendFH *os.File
}

// Open opens (creating if missing) filename within root, replays every
// record into a freshly built Dataset, and leaves the append handle
// positioned for subsequent writes.
func Open[T any](root *os.Root, filename string) (*LogStore[T], *record.Dataset[T], error) {
	data := record.NewDataset[T]()

	readFH, err := root.OpenFile(filename, os.O_CREATE|os.O_RDONLY, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("logstore: open %s for replay: %w", filename, err)
	}
	replayErr := wire.DecodeAll(readFH, func(doc record.Doc[T]) {
		// Later records for the same VersionedKey supersede earlier ones;
		// a VersionedKey is never reused across distinct payload writes in
		// practice, but Put already implements "last write wins" for any
		// given key, so replay stays correct even if that ever changed.
		data.Put(doc)
	})
	closeErr := readFH.Close()
	if replayErr != nil {
		return nil, nil, fmt.Errorf("logstore: replay %s: %w", filename, replayErr)
	}
	if closeErr != nil {
		return nil, nil, fmt.Errorf("logstore: close %s after replay: %w", filename, closeErr)
	}

	appendFH, err := root.OpenFile(filename, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("logstore: open %s for append: %w", filename, err)
	}

	return &LogStore[T]{root: root, filename: filename, appendFH: appendFH}, data, nil
}

// Append writes docs to the log in order and flushes. No fsync is issued;
// durability beyond what the OS buffers relies on the host.
func (l *LogStore[T]) Append(docs []record.Doc[T]) error {
	for _, doc := range docs {
		if err := wire.EncodeLine(l.appendFH, doc); err != nil {
			return fmt.Errorf("logstore: append: %w", err)
		}
	}
	return nil
}

// Compact atomically rewrites the log to contain exactly the entries of
// data (in ascending key order), then reopens the append handle on the
// replaced file.
func (l *LogStore[T]) Compact(data *record.Dataset[T]) error {
	tmpName := l.filename + ".tmp"

	tmpFH, err := l.root.OpenFile(tmpName, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("logstore: open compaction temp file: %w", err)
	}

	for _, doc := range data.All() {
		if err := wire.EncodeLine(tmpFH, doc); err != nil {
			_ = tmpFH.Close()
			_ = l.root.Remove(tmpName)
			return fmt.Errorf("logstore: write compaction temp file: %w", err)
		}
	}
	if err := tmpFH.Close(); err != nil {
		_ = l.root.Remove(tmpName)
		return fmt.Errorf("logstore: close compaction temp file: %w", err)
	}

	if err := l.root.Rename(tmpName, l.filename); err != nil {
		_ = l.root.Remove(tmpName)
		return fmt.Errorf("logstore: atomic replace: %w", err)
	}

	if err := l.appendFH.Close(); err != nil {
		return fmt.Errorf("logstore: close stale append handle: %w", err)
	}
	newFH, err := l.root.OpenFile(l.filename, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("logstore: reopen append handle after compaction: %w", err)
	}
	l.appendFH = newFH
	return nil
}

// Close releases the append handle.
func (l *LogStore[T]) Close() error {
	if l.appendFH == nil {
		return nil
	}
	err := l.appendFH.Close()
	l.appendFH = nil
	if err != nil && !errors.Is(err, os.ErrClosed) {
		return fmt.Errorf("logstore: close: %w", err)
	}
	return nil
}
