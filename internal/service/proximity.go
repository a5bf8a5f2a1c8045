package service

import (
	"sync"

	"github.com/virtual-dev/presence-service/internal/domain"
)

// Neighbor is one side of a proximity change, with the distance measured at
// the moment the pair came into range.
type Neighbor struct {
	ID       string
	Distance float64
}

// ProximityTracker keeps, per participant, the set of peers currently within
// radius, and diffs it against the roster on every move. A neighbor that
// vanished from the roster exits like one that walked away. Each change is
// mirrored into the peer's set so both sides converge no matter which side
// moved. Locking is per participant entry; the index lock only guards the map
// itself.
type ProximityTracker struct {
	radius float64

	mu      sync.RWMutex
	entries map[string]*trackerEntry
}

type trackerEntry struct {
	mu        sync.Mutex
	neighbors map[string]struct{}
}

func NewProximityTracker(radius float64) *ProximityTracker {
	if radius <= 0 {
		radius = domain.DefaultProximityRadius
	}
	return &ProximityTracker{
		radius:  radius,
		entries: make(map[string]*trackerEntry),
	}
}

func (t *ProximityTracker) Radius() float64 { return t.radius }

// UpdateOnMove recomputes the mover's neighbor set against the roster and
// returns who entered and who exited range. Distance exactly equal to the
// radius counts as in range. O(len(all)) per call.
func (t *ProximityTracker) UpdateOnMove(p domain.Participant, all []domain.Participant) (entered []Neighbor, exited []string) {
	current := make(map[string]float64, len(all))
	for _, other := range all {
		if other.ID == p.ID {
			continue
		}
		if d := p.Position.DistanceTo(other.Position); d <= t.radius {
			current[other.ID] = d
		}
	}

	e := t.entry(p.ID)
	e.mu.Lock()
	if e.neighbors == nil {
		// removed while this move was in flight
		e.mu.Unlock()
		return nil, nil
	}
	for id, d := range current {
		if _, ok := e.neighbors[id]; !ok {
			entered = append(entered, Neighbor{ID: id, Distance: d})
		}
	}
	for id := range e.neighbors {
		if _, ok := current[id]; !ok {
			exited = append(exited, id)
		}
	}
	next := make(map[string]struct{}, len(current))
	for id := range current {
		next[id] = struct{}{}
	}
	e.neighbors = next
	e.mu.Unlock()

	for _, n := range entered {
		t.mirror(n.ID, p.ID, true)
	}
	for _, id := range exited {
		t.mirror(id, p.ID, false)
	}

	return entered, exited
}

// mirror applies one side's change to the peer's set. Peers no longer tracked
// are left alone: a stale roster read must not resurrect a removed entry.
func (t *ProximityTracker) mirror(peerID, id string, add bool) {
	t.mu.RLock()
	e := t.entries[peerID]
	t.mu.RUnlock()
	if e == nil {
		return
	}

	e.mu.Lock()
	if e.neighbors != nil {
		if add {
			e.neighbors[id] = struct{}{}
		} else {
			delete(e.neighbors, id)
		}
	}
	e.mu.Unlock()
}

// RemoveParticipant drops the participant from tracking and returns the
// neighbor set it had at that moment, so the caller can notify every former
// neighbor that the departed peer is gone.
func (t *ProximityTracker) RemoveParticipant(id string) []string {
	t.mu.Lock()
	e := t.entries[id]
	delete(t.entries, id)
	rest := make([]*trackerEntry, 0, len(t.entries))
	for _, other := range t.entries {
		rest = append(rest, other)
	}
	t.mu.Unlock()

	var prior []string
	if e != nil {
		e.mu.Lock()
		for n := range e.neighbors {
			prior = append(prior, n)
		}
		e.neighbors = nil
		e.mu.Unlock()
	}

	for _, other := range rest {
		other.mu.Lock()
		delete(other.neighbors, id)
		other.mu.Unlock()
	}

	return prior
}

// Neighbors returns a snapshot of the participant's current neighbor ids.
func (t *ProximityTracker) Neighbors(id string) []string {
	t.mu.RLock()
	e := t.entries[id]
	t.mu.RUnlock()
	if e == nil {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, 0, len(e.neighbors))
	for n := range e.neighbors {
		out = append(out, n)
	}
	return out
}

func (t *ProximityTracker) entry(id string) *trackerEntry {
	t.mu.RLock()
	e := t.entries[id]
	t.mu.RUnlock()
	if e != nil {
		return e
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if e = t.entries[id]; e == nil {
		e = &trackerEntry{neighbors: make(map[string]struct{})}
		t.entries[id] = e
	}
	return e
}
