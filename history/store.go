package history

import (
	"sync"
	"time"

	"bleproximity/proximity"
)

const (
	DefaultRetention = 5 * time.Minute
	DefaultCapacity  = 60 // 5 minutes at one point per 5s cycle
)

// Snapshot is one completed scan cycle's tally, stamped when it was stored.
type Snapshot struct {
	Timestamp time.Time `json:"timestamp"`
	Near      int       `json:"near"`
	Medium    int       `json:"medium"`
	Far       int       `json:"far"`
}

// Tally returns the counts without the timestamp.
func (s Snapshot) Tally() proximity.Tally {
	return proximity.Tally{Near: s.Near, Medium: s.Medium, Far: s.Far}
}

// Total returns the number of in-range devices in the snapshot.
func (s Snapshot) Total() int {
	return s.Near + s.Medium + s.Far
}

// Option configures a Store.
type Option func(*Store)

// WithRetention sets the maximum snapshot age.
func WithRetention(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.retention = d
		}
	}
}

// WithCapacity sets the maximum number of retained snapshots.
func WithCapacity(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.capacity = n
		}
	}
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Store is a bounded, time-ordered series of snapshots.
// Entries older than the retention age, and the oldest entries beyond
// capacity, are evicted after every append and before every read.
type Store struct {
	mu        sync.RWMutex
	points    []Snapshot
	retention time.Duration
	capacity  int
	now       func() time.Time
}

// NewStore creates an empty store with a 5 minute retention and 60 entry capacity.
func NewStore(opts ...Option) *Store {
	s := &Store{
		retention: DefaultRetention,
		capacity:  DefaultCapacity,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Append stamps the tally with the current time and stores it.
func (s *Store) Append(t proximity.Tally) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	// Keep the series non-decreasing even if the clock steps back.
	if n := len(s.points); n > 0 && now.Before(s.points[n-1].Timestamp) {
		now = s.points[n-1].Timestamp
	}

	snap := Snapshot{Timestamp: now, Near: t.Near, Medium: t.Medium, Far: t.Far}
	s.points = append(s.points, snap)
	s.evictLocked(now)
	return snap
}

// Snapshot evicts stale entries and returns a copy of what remains, oldest first.
func (s *Store) Snapshot() []Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.evictLocked(s.now())
	out := make([]Snapshot, len(s.points))
	copy(out, s.points)
	return out
}

// Latest returns the most recent snapshot, or false if the store is empty.
func (s *Store) Latest() (Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.points) == 0 {
		return Snapshot{}, false
	}
	return s.points[len(s.points)-1], true
}

// Len returns the number of stored snapshots.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.points)
}

// Clear drops every snapshot.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.points = nil
}

// evictLocked drops expired entries from the front, then trims the oldest
// entries beyond capacity. Caller holds s.mu.
func (s *Store) evictLocked(now time.Time) {
	cut := 0
	for cut < len(s.points) && now.Sub(s.points[cut].Timestamp) > s.retention {
		cut++
	}
	if excess := len(s.points) - cut - s.capacity; excess > 0 {
		cut += excess
	}
	if cut == 0 {
		return
	}

	// Copy into a fresh slice so the dropped prefix can be collected.
	kept := make([]Snapshot, len(s.points)-cut)
	copy(kept, s.points[cut:])
	s.points = kept
}
