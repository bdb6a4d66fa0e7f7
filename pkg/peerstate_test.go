package scuttlebutt

import (
	"testing"
	"time"
)

// recordingObserver counts and records notifications for assertions.
type recordingObserver struct {
	NopObserver
	changes []change
	alive   []string
	dead    []string
}

type change struct {
	peer  string
	key   string
	value any
}

func (r *recordingObserver) ValueChanged(peer *PeerState, key string, value any) {
	r.changes = append(r.changes, change{peer: peer.Name(), key: key, value: value})
}

func (r *recordingObserver) PeerAlive(peer *PeerState) {
	r.alive = append(r.alive, peer.Name())
}

func (r *recordingObserver) PeerDead(peer *PeerState) {
	r.dead = append(r.dead, peer.Name())
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func TestUpdateLocalAdvancesVersionByOne(t *testing.T) {
	obs := &recordingObserver{}
	p := NewPeerState("local:1", &fakeClock{}, obs)

	p.UpdateLocal("a", 1)
	if p.MaxVersionSeen() != 1 {
		t.Fatalf("expected max_version_seen=1, got %d", p.MaxVersionSeen())
	}
	p.UpdateLocal("b", 2)
	if p.MaxVersionSeen() != 2 {
		t.Fatalf("expected max_version_seen=2, got %d", p.MaxVersionSeen())
	}
	if len(obs.changes) != 2 {
		t.Fatalf("expected 2 value_changed notifications, got %d", len(obs.changes))
	}
}

func TestUpdateWithDeltaOnlyAppliesStrictlyNewerVersions(t *testing.T) {
	obs := &recordingObserver{}
	p := NewPeerState("remote:1", &fakeClock{}, obs)

	p.UpdateWithDelta("k", "a", 1)
	p.UpdateWithDelta("k", "stale", 1) // idempotent replay, version not newer
	v, _ := p.Get("k")
	if v != "a" {
		t.Fatalf("expected value unchanged by replay, got %v", v)
	}
	if len(obs.changes) != 1 {
		t.Fatalf("expected exactly 1 notification, got %d (idempotence violated)", len(obs.changes))
	}

	p.UpdateWithDelta("k", "b", 2)
	v, _ = p.Get("k")
	if v != "b" {
		t.Fatalf("expected newer version to apply, got %v", v)
	}
	if p.MaxVersionSeen() != 2 {
		t.Fatalf("expected max_version_seen=2, got %d", p.MaxVersionSeen())
	}
}

// TestVersionSkip is scenario S2 from SPEC_FULL.md §8.
func TestVersionSkip(t *testing.T) {
	obs := &recordingObserver{}
	p := NewPeerState("remote:1", &fakeClock{}, obs)

	p.UpdateWithDelta("k", "a", 1)
	p.UpdateWithDelta("k", "b", 3)
	p.UpdateWithDelta("k", "c", 2) // arrives out of order, already superseded

	v, _ := p.Get("k")
	if v != "b" {
		t.Fatalf("expected final value 'b', got %v", v)
	}
	if p.MaxVersionSeen() != 3 {
		t.Fatalf("expected max_version_seen=3, got %d", p.MaxVersionSeen())
	}
}

func TestDeltasAfterSortedAndExclusive(t *testing.T) {
	obs := &recordingObserver{}
	p := NewPeerState("remote:1", &fakeClock{}, obs)

	p.UpdateWithDelta("c", "3", 3)
	p.UpdateWithDelta("a", "1", 1)
	p.UpdateWithDelta("b", "2", 2)

	deltas := p.DeltasAfter(1)
	if len(deltas) != 2 {
		t.Fatalf("expected 2 deltas strictly newer than version 1, got %d", len(deltas))
	}
	if deltas[0].Version != 2 || deltas[1].Version != 3 {
		t.Fatalf("expected ascending version order, got %+v", deltas)
	}

	all := p.DeltasAfter(0)
	if len(all) != 3 {
		t.Fatalf("expected all 3 deltas for lowest_version=0, got %d", len(all))
	}
}

func TestHeartbeatFeedsDetector(t *testing.T) {
	obs := &recordingObserver{}
	clock := &fakeClock{now: time.Unix(0, 0)}
	p := NewPeerState("remote:1", clock, obs)

	p.UpdateWithDelta(heartbeatKey, uint64(1), 1)
	if p.detector.count != 1 {
		t.Fatalf("expected detector to record exactly 1 arrival, got %d", p.detector.count)
	}

	// Idempotent replay must not call detector.Add again.
	p.UpdateWithDelta(heartbeatKey, uint64(1), 1)
	if p.detector.count != 1 {
		t.Fatalf("replaying an already-seen heartbeat delta must not add another arrival, got count=%d", p.detector.count)
	}
}

func TestBeatHeartIncrementsHeartbeatVersionAndPublishes(t *testing.T) {
	obs := &recordingObserver{}
	p := NewPeerState("local:1", &fakeClock{}, obs)

	p.BeatHeart()
	p.BeatHeart()

	v, ok := p.Get(heartbeatKey)
	if !ok {
		t.Fatal("expected __heartbeat__ key to be present after BeatHeart")
	}
	if v != uint64(2) {
		t.Fatalf("expected heartbeat version 2, got %v", v)
	}
}

func TestAliveDeadEdgesFireAtMostOncePerTransition(t *testing.T) {
	obs := &recordingObserver{}
	clock := &fakeClock{now: time.Unix(0, 0)}
	p := NewPeerState("remote:1", clock, obs)

	p.UpdateWithDelta(heartbeatKey, uint64(1), 1)

	// Not yet suspected: should transition to alive exactly once.
	p.CheckSuspected(clock.now.Add(time.Second))
	p.CheckSuspected(clock.now.Add(time.Second))
	if len(obs.alive) != 1 {
		t.Fatalf("expected exactly 1 peer_alive notification, got %d", len(obs.alive))
	}

	// Long silence: should transition to dead exactly once.
	p.CheckSuspected(clock.now.Add(1000 * time.Second))
	p.CheckSuspected(clock.now.Add(1001 * time.Second))
	if len(obs.dead) != 1 {
		t.Fatalf("expected exactly 1 peer_dead notification, got %d", len(obs.dead))
	}
}
