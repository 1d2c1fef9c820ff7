package mudb

import (
	"go.uber.org/zap"

	"github.com/summit/mudb/internal/idgen"
)

// Option configures a Store at Open time, following the functional-options
// shape used by services/qset/internal/server.New's constructor.
type Option[T any] func(*Store[T])

// WithIDGenerator overrides the fresh-identity source used by Insert when
// no VersionedKey is supplied. The default is idgen.UUIDGenerator.
func WithIDGenerator[T any](gen idgen.Generator) Option[T] {
	return func(s *Store[T]) { s.idgen = gen }
}

// WithLogger attaches a structured logger used for best-effort teardown
// and compaction diagnostics. The default is a no-op logger.
func WithLogger[T any](logger *zap.Logger) Option[T] {
	return func(s *Store[T]) { s.logger = logger }
}
