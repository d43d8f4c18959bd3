package facter

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/rshade/facter-lookup/internal/logging"
	"github.com/rshade/facter-lookup/internal/metrics"
)

// Snapshot is the result of one complete, successful facter run.
type Snapshot struct {
	// ID identifies the run in logs.
	ID ulid.ULID

	// Facts is the parsed (and, in legacy mode, flattened) mapping.
	Facts Mapping

	// Format is the output format that was actually parsed.
	Format Format

	// CreatedAt is when the run finished.
	CreatedAt time.Time
}

// Age returns the duration since the snapshot was taken.
func (s *Snapshot) Age() time.Duration {
	return time.Since(s.CreatedAt)
}

// store holds at most one snapshot. The mutex covers the whole
// check-invoke-store sequence so concurrent misses run facter one at a time
// and nobody observes a snapshot while it is being replaced.
type store struct {
	cfg     Config
	invoker *invoker

	mu       sync.Mutex
	snapshot *Snapshot
}

func newStore(cfg Config, runner CommandRunner) *store {
	return &store{
		cfg:     cfg,
		invoker: &invoker{cfg: cfg, runner: runner},
	}
}

// mapping returns the cached facts when useCache is set and a snapshot
// exists; otherwise it refreshes.
func (s *store) mapping(ctx context.Context, useCache bool) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case !s.cfg.CacheEnabled:
		metrics.CacheRequests.WithLabelValues(metrics.CacheResultDisabled).Inc()
	case !useCache:
		metrics.CacheRequests.WithLabelValues(metrics.CacheResultBypass).Inc()
	case s.snapshot != nil:
		metrics.CacheRequests.WithLabelValues(metrics.CacheResultHit).Inc()
		return s.snapshot, nil
	default:
		metrics.CacheRequests.WithLabelValues(metrics.CacheResultMiss).Inc()
	}
	return s.refreshLocked(ctx)
}

// refresh unconditionally runs facter and replaces the snapshot.
func (s *store) refresh(ctx context.Context) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshLocked(ctx)
}

// refreshLocked must be called with mu held. On failure the previous
// snapshot is kept.
func (s *store) refreshLocked(ctx context.Context) (*Snapshot, error) {
	log := logging.FromContext(ctx)

	facts, format, err := s.invoker.acquire(ctx)
	if err != nil {
		log.Debug().
			Ctx(ctx).
			Str("component", "facter").
			Str("operation", "refresh").
			Err(err).
			Msg("facter refresh failed")
		return nil, err
	}

	if s.cfg.Legacy {
		added := flattenLegacy(facts, s.cfg.legacyAliases)
		log.Debug().
			Ctx(ctx).
			Str("component", "facter").
			Int("aliases_added", len(added)).
			Msg("applied legacy fact aliases")
	}

	snap := &Snapshot{
		ID:        ulid.Make(),
		Facts:     facts,
		Format:    format,
		CreatedAt: time.Now(),
	}

	log.Debug().
		Ctx(ctx).
		Str("component", "facter").
		Str("operation", "refresh").
		Str("snapshot_id", snap.ID.String()).
		Str("format", format.String()).
		Int("facts", len(facts)).
		Bool("cached", s.cfg.CacheEnabled).
		Msg("facts refreshed")

	if s.cfg.CacheEnabled {
		s.snapshot = snap
	}
	return snap, nil
}

// current returns the cached snapshot without running facter.
func (s *store) current() (*Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot, s.snapshot != nil
}

// clear drops the cached snapshot.
func (s *store) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = nil
}
