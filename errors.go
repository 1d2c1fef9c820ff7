package mudb

import (
	"errors"
	"fmt"
)

// Sentinel errors for the error kinds the core can raise. Wrap with
// fmt.Errorf and %w so errors.Is continues to match the sentinel while
// errors.As can still recover the richer typed error below.
var (
	// ErrStaleVersion is returned by Insert when the caller-supplied
	// VersionedKey's Ver is below the current stored version for that
	// identity.
	ErrStaleVersion = errors.New("mudb: stale version")
	// ErrIO wraps any filesystem operation failure (open, read, seek,
	// write, flush, rename).
	ErrIO = errors.New("mudb: io")
	// ErrDecode wraps a log record that failed to parse during open.
	ErrDecode = errors.New("mudb: decode")
	// ErrEncode wraps a payload that could not be serialized.
	ErrEncode = errors.New("mudb: encode")
)

// StaleVersionError carries the requested and current versions involved in
// a rejected Insert.
type StaleVersionError struct {
	Requested uint64
	Current   uint64
}

func (e *StaleVersionError) Error() string {
	return fmt.Sprintf("mudb: stale version: requested %d, current %d", e.Requested, e.Current)
}

func (e *StaleVersionError) Unwrap() error { return ErrStaleVersion }
