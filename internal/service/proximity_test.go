package service

import (
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"testing"

	"github.com/virtual-dev/presence-service/internal/domain"
)

func pt(id string, x, y float64) domain.Participant {
	return domain.Participant{ID: id, Position: domain.Position{X: x, Y: y}}
}

func ids(ns []Neighbor) []string {
	out := make([]string, 0, len(ns))
	for _, n := range ns {
		out = append(out, n.ID)
	}
	sort.Strings(out)
	return out
}

func TestUpdateOnMoveEnterAndExit(t *testing.T) {
	tr := NewProximityTracker(150)

	a := pt("a", 0, 0)
	b := pt("b", 100, 0)
	roster := []domain.Participant{a, b}

	entered, exited := tr.UpdateOnMove(a, roster)
	if len(entered) != 1 || entered[0].ID != "b" {
		t.Fatalf("expected a to gain neighbor b, got %v", entered)
	}
	if entered[0].Distance != 100 {
		t.Fatalf("expected distance 100, got %v", entered[0].Distance)
	}
	if len(exited) != 0 {
		t.Fatalf("expected no exits, got %v", exited)
	}

	// B walks out of range.
	b.Position = domain.Position{X: 400, Y: 0}
	roster = []domain.Participant{a, b}
	entered, exited = tr.UpdateOnMove(a, roster)
	if len(entered) != 0 {
		t.Fatalf("expected no enters, got %v", entered)
	}
	if len(exited) != 1 || exited[0] != "b" {
		t.Fatalf("expected a to lose neighbor b, got %v", exited)
	}
}

func TestUpdateOnMoveIdempotent(t *testing.T) {
	tr := NewProximityTracker(150)
	a := pt("a", 10, 10)
	roster := []domain.Participant{a, pt("b", 50, 10), pt("c", 500, 500)}

	if entered, _ := tr.UpdateOnMove(a, roster); len(entered) != 1 {
		t.Fatalf("expected one enter, got %v", entered)
	}

	// Unchanged position and roster: both deltas must be empty.
	entered, exited := tr.UpdateOnMove(a, roster)
	if len(entered) != 0 || len(exited) != 0 {
		t.Fatalf("expected empty deltas, got entered=%v exited=%v", entered, exited)
	}
}

func TestRadiusBoundaryInclusive(t *testing.T) {
	tr := NewProximityTracker(150)
	a := pt("a", 0, 0)

	entered, _ := tr.UpdateOnMove(a, []domain.Participant{a, pt("b", 150, 0)})
	if got := ids(entered); len(got) != 1 || got[0] != "b" {
		t.Fatalf("distance exactly at radius must count as in range, got %v", got)
	}

	tr2 := NewProximityTracker(150)
	entered, _ = tr2.UpdateOnMove(a, []domain.Participant{a, pt("b", 150.001, 0)})
	if len(entered) != 0 {
		t.Fatalf("distance past radius must be out of range, got %v", entered)
	}
}

func TestUpdateOnMoveIgnoresSelf(t *testing.T) {
	tr := NewProximityTracker(150)
	a := pt("a", 0, 0)
	entered, _ := tr.UpdateOnMove(a, []domain.Participant{a})
	if len(entered) != 0 {
		t.Fatalf("participant must not be its own neighbor, got %v", entered)
	}
}

func TestUpdateOnMoveExitsRosterAbsentNeighbor(t *testing.T) {
	tr := NewProximityTracker(150)
	a := pt("a", 0, 0)
	b := pt("b", 100, 0)

	tr.UpdateOnMove(a, []domain.Participant{a, b})
	tr.UpdateOnMove(b, []domain.Participant{a, b})

	// a's session expired: it is gone from the roster without ever moving
	// away. b must see it exit all the same.
	_, exited := tr.UpdateOnMove(b, []domain.Participant{b})
	if len(exited) != 1 || exited[0] != "a" {
		t.Fatalf("expected exited=[a], got %v", exited)
	}
	if got := tr.Neighbors("b"); len(got) != 0 {
		t.Fatalf("b still tracks absent participant: %v", got)
	}
}

func TestRemovedParticipantDoesNotLingerAfterStaleRoster(t *testing.T) {
	tr := NewProximityTracker(150)
	a := pt("a", 0, 0)
	b := pt("b", 100, 0)
	roster := []domain.Participant{a, b}

	tr.UpdateOnMove(a, roster)
	tr.UpdateOnMove(b, roster)
	tr.RemoveParticipant("a")

	// A move racing the removal can still carry a roster snapshot with a in
	// it. That must not recreate a's tracker entry, and the next move against
	// a clean roster must exit a.
	tr.UpdateOnMove(b, roster)
	if got := tr.Neighbors("a"); len(got) != 0 {
		t.Fatalf("removed participant resurrected: %v", got)
	}

	_, exited := tr.UpdateOnMove(b, []domain.Participant{b})
	if len(exited) != 1 || exited[0] != "a" {
		t.Fatalf("expected exited=[a] after clean roster, got %v", exited)
	}
	if got := tr.Neighbors("b"); len(got) != 0 {
		t.Fatalf("b still tracks departed participant: %v", got)
	}
}

func TestRemoveParticipantReturnsPriorNeighbors(t *testing.T) {
	tr := NewProximityTracker(150)
	a := pt("a", 0, 0)
	b := pt("b", 50, 0)
	c := pt("c", 0, 50)
	roster := []domain.Participant{a, b, c}

	tr.UpdateOnMove(a, roster)
	tr.UpdateOnMove(b, roster)
	tr.UpdateOnMove(c, roster)

	prior := tr.RemoveParticipant("a")
	sort.Strings(prior)
	if len(prior) != 2 || prior[0] != "b" || prior[1] != "c" {
		t.Fatalf("expected prior neighbors [b c], got %v", prior)
	}

	// a must be gone from the remaining participants' sets.
	for _, id := range []string{"b", "c"} {
		for _, n := range tr.Neighbors(id) {
			if n == "a" {
				t.Fatalf("%s still tracks removed participant a", id)
			}
		}
	}
	if got := tr.Neighbors("a"); len(got) != 0 {
		t.Fatalf("removed participant still tracked: %v", got)
	}

	// Removing again is a no-op.
	if prior := tr.RemoveParticipant("a"); len(prior) != 0 {
		t.Fatalf("second removal returned neighbors: %v", prior)
	}
}

// TestSymmetryAfterConcurrentMoves drives many participants from independent
// goroutines and checks that once everyone has settled and reported its final
// position, every in-range pair is mutually tracked and no set holds stale
// ids.
func TestSymmetryAfterConcurrentMoves(t *testing.T) {
	const (
		participants = 50
		rounds       = 200
		width        = 800.0
		height       = 600.0
	)

	tr := NewProximityTracker(150)

	var mu sync.Mutex
	positions := make(map[string]domain.Position, participants)
	for i := 0; i < participants; i++ {
		positions[fmt.Sprintf("p%02d", i)] = domain.Position{}
	}

	roster := func() []domain.Participant {
		mu.Lock()
		defer mu.Unlock()
		out := make([]domain.Participant, 0, len(positions))
		for id, pos := range positions {
			out = append(out, domain.Participant{ID: id, Position: pos})
		}
		return out
	}

	var wg sync.WaitGroup
	for i := 0; i < participants; i++ {
		i := i
		id := fmt.Sprintf("p%02d", i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			rng := rand.New(rand.NewSource(int64(i)))
			for r := 0; r < rounds; r++ {
				pos := domain.Position{X: rng.Float64() * width, Y: rng.Float64() * height}
				mu.Lock()
				positions[id] = pos
				mu.Unlock()
				tr.UpdateOnMove(domain.Participant{ID: id, Position: pos}, roster())
			}
		}()
	}
	wg.Wait()

	// One settling round against the frozen roster, then verify symmetry.
	final := roster()
	for _, p := range final {
		tr.UpdateOnMove(p, final)
	}

	byID := make(map[string]domain.Position, len(final))
	for _, p := range final {
		byID[p.ID] = p.Position
	}

	for _, p := range final {
		seen := make(map[string]bool)
		for _, n := range tr.Neighbors(p.ID) {
			if seen[n] {
				t.Fatalf("%s tracks %s twice", p.ID, n)
			}
			seen[n] = true
			if _, ok := byID[n]; !ok {
				t.Fatalf("%s tracks unknown participant %s", p.ID, n)
			}
			if p.Position.DistanceTo(byID[n]) > 150 {
				t.Errorf("%s tracks out-of-range %s", p.ID, n)
			}
		}
		for _, q := range final {
			if q.ID == p.ID {
				continue
			}
			if p.Position.DistanceTo(q.Position) <= 150 && !seen[q.ID] {
				t.Errorf("in-range pair (%s,%s) not tracked by %s", p.ID, q.ID, p.ID)
			}
		}
	}
}
