package kvengine

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// defaultCompactionThreshold is 2^20 bytes (1 MiB), per spec §4.6/§6.
const defaultCompactionThreshold int64 = 1 << 20

// Option configures a Store at Open time.
type Option func(*Store)

// WithCompactionThreshold overrides the stale-byte threshold that triggers
// compaction. The default is 1 MiB.
func WithCompactionThreshold(bytes int64) Option {
	return func(s *Store) { s.compactionThreshold = bytes }
}

// WithFsync controls whether every Set/Remove append (and the compaction
// hand-off) calls fsync after flushing. Default is false: writes are handed
// off to the OS write buffer but not forced to stable storage (spec §9,
// Open Question 2).
func WithFsync(enabled bool) Option {
	return func(s *Store) { s.fsync = enabled }
}

// WithAdvisoryLock controls whether Open writes a best-effort LOCK file to
// detect same-host double-opens. Default is true (spec §9, Open Question 4).
func WithAdvisoryLock(enabled bool) Option {
	return func(s *Store) { s.advisoryLock = enabled }
}

// WithLogger injects a *zap.Logger. The default is a no-op logger, so a
// library consumer gets silence unless it opts in.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) { s.logger = logger.Named("kvengine") }
}

// WithMetricsRegistry injects a *prometheus.Registry to register the
// store's counters/gauges on, instead of the private registry Open creates
// by default. Useful when an embedding application wants to merge several
// stores' metrics onto one registry it exposes itself.
func WithMetricsRegistry(registry *prometheus.Registry) Option {
	return func(s *Store) { s.registry = registry }
}
