// Package key implements the identity and version types that every record
// in a mudb collection is keyed by.
package key

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// kind tags the two IndexKey variants. Text sorts before numeric; this is
// an arbitrary but stable convention that must match the ordering used by
// serialization round-trips.
type kind uint8

const (
	kindStr kind = iota
	kindNum
)

// IndexKey is a tagged union of a text identity and a signed 64-bit integer
// identity. Values are immutable; construct one with NewStr or NewNum.
type IndexKey struct {
	k kind
	s string
	n int64
}

// NewStr builds a text-variant IndexKey.
func NewStr(s string) IndexKey { return IndexKey{k: kindStr, s: s} }

// NewNum builds an integer-variant IndexKey.
func NewNum(n int64) IndexKey { return IndexKey{k: kindNum, n: n} }

// IsStr reports whether this key holds the text variant.
func (k IndexKey) IsStr() bool { return k.k == kindStr }

// Str returns the text value and whether this key is the text variant.
func (k IndexKey) Str() (string, bool) { return k.s, k.k == kindStr }

// Num returns the integer value and whether this key is the integer variant.
func (k IndexKey) Num() (int64, bool) { return k.n, k.k == kindNum }

// Less defines the total order over IndexKey: variant tag first (text
// before integer), then the inner value by its natural order.
func (k IndexKey) Less(other IndexKey) bool {
	if k.k != other.k {
		return k.k < other.k
	}
	switch k.k {
	case kindStr:
		return k.s < other.s
	default:
		return k.n < other.n
	}
}

// Equal reports structural equality.
func (k IndexKey) Equal(other IndexKey) bool {
	return k.k == other.k && k.s == other.s && k.n == other.n
}

// String renders the key for logging/diagnostics.
func (k IndexKey) String() string {
	if k.k == kindStr {
		return fmt.Sprintf("str(%s)", k.s)
	}
	return fmt.Sprintf("num(%d)", k.n)
}

// MarshalJSON serializes the text variant as a JSON string and the integer
// variant as a JSON number, matching the on-disk log format.
func (k IndexKey) MarshalJSON() ([]byte, error) {
	if k.k == kindStr {
		return json.Marshal(k.s)
	}
	return json.Marshal(k.n)
}

// UnmarshalJSON distinguishes the two variants by JSON token type: a quoted
// value decodes as the text variant, a bare number as the integer variant.
func (k *IndexKey) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return fmt.Errorf("key: decode string variant: %w", err)
		}
		*k = NewStr(s)
		return nil
	}
	var n int64
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return fmt.Errorf("key: decode numeric variant: %w", err)
	}
	*k = NewNum(n)
	return nil
}

// VersionedKey pairs an identity with a monotonic revision counter. ver
// starts at 0 for a freshly created identity.
type VersionedKey struct {
	ID  IndexKey
	Ver uint64
}

// New returns the initial VersionedKey for an identity, at version 0.
func New(id IndexKey) VersionedKey { return VersionedKey{ID: id, Ver: 0} }

// Incr returns a copy of k with Ver incremented by one.
func (k VersionedKey) Incr() VersionedKey {
	return VersionedKey{ID: k.ID, Ver: k.Ver + 1}
}

// Less orders VersionedKey lexicographically: ID first, then Ver.
func (k VersionedKey) Less(other VersionedKey) bool {
	if !k.ID.Equal(other.ID) {
		return k.ID.Less(other.ID)
	}
	return k.Ver < other.Ver
}

// Equal reports structural equality.
func (k VersionedKey) Equal(other VersionedKey) bool {
	return k.ID.Equal(other.ID) && k.Ver == other.Ver
}

// String renders the key for logging/diagnostics.
func (k VersionedKey) String() string {
	return fmt.Sprintf("%s@%d", k.ID, k.Ver)
}

// jsonVersionedKey is the on-disk shape: {"id": ..., "ver": ...}.
type jsonVersionedKey struct {
	ID  IndexKey `json:"id"`
	Ver uint64   `json:"ver"`
}

// MarshalJSON renders the VersionedKey as {"id":..., "ver":...}.
func (k VersionedKey) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonVersionedKey{ID: k.ID, Ver: k.Ver})
}

// UnmarshalJSON parses the {"id":..., "ver":...} shape.
func (k *VersionedKey) UnmarshalJSON(data []byte) error {
	var raw jsonVersionedKey
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("versioned key: %w", err)
	}
	k.ID = raw.ID
	k.Ver = raw.Ver
	return nil
}
