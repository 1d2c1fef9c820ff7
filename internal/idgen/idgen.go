// Package idgen provides the pluggable fresh-identity source a Store uses
// to synthesize an identity for callers that insert without supplying one.
package idgen

import "github.com/google/uuid"

// Generator produces a fresh, opaque string identity for a collection
// entry whose caller did not supply one.
type Generator interface {
	Fresh() string
}

// UUIDGenerator is the default Generator, producing random UUIDv4 strings.
// It is the pack's de-facto choice for this role (google/uuid backs the
// same concern in services/qawe, services/cab, services/idtl, and others).
type UUIDGenerator struct{}

// Fresh returns a new random UUID string.
func (UUIDGenerator) Fresh() string {
	return uuid.NewString()
}
