package bufferpool

import "go.uber.org/atomic"

// stats tracks hit/miss/read/write/dirty counters without needing the pool
// mutex, mirroring the teacher's buffer_pool/stats.go counters but using
// the typed go.uber.org/atomic wrappers already in the pack's dependency
// graph instead of raw sync/atomic fields.
type stats struct {
	hits    atomic.Uint64
	misses  atomic.Uint64
	reads   atomic.Uint64
	writes  atomic.Uint64
	dirty   atomic.Int32
}

func (s *stats) recordHit()    { s.hits.Inc() }
func (s *stats) recordMiss()   { s.misses.Inc() }
func (s *stats) recordRead()   { s.reads.Inc() }
func (s *stats) recordWrite()  { s.writes.Inc() }
func (s *stats) incDirty()     { s.dirty.Inc() }
func (s *stats) decDirty()     { s.dirty.Dec() }

// Stats is a point-in-time snapshot of pool statistics.
type Stats struct {
	Hits, Misses, Reads, Writes uint64
	DirtyPages                  int32
}

// HitRatio returns Hits/(Hits+Misses), or 0 if no lookups happened yet.
func (s Stats) HitRatio() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

func (s *stats) snapshot() Stats {
	return Stats{
		Hits:       s.hits.Load(),
		Misses:     s.misses.Load(),
		Reads:      s.reads.Load(),
		Writes:     s.writes.Load(),
		DirtyPages: s.dirty.Load(),
	}
}
