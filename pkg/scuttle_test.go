package scuttlebutt

import (
	"sync"
	"testing"
)

func newTestScuttle(names ...string) (*Scuttle, map[string]*PeerState, *sync.RWMutex) {
	mu := &sync.RWMutex{}
	view := map[string]*PeerState{}
	clock := &fakeClock{}
	obs := NopObserver{}
	for _, n := range names {
		view[n] = NewPeerState(n, clock, obs)
	}
	local := view[names[0]]
	return NewScuttle(mu, view, local, clock, obs, defaultPhiThreshold), view, mu
}

func TestDigestReflectsMaxVersionSeenPerPeer(t *testing.T) {
	s, view, _ := newTestScuttle("a:1", "b:1")
	view["a:1"].UpdateLocal("k", "v")
	view["a:1"].UpdateLocal("k2", "v2")

	d := s.Digest()
	if d["a:1"] != 2 {
		t.Fatalf("expected digest[a:1]=2, got %d", d["a:1"])
	}
	if d["b:1"] != 0 {
		t.Fatalf("expected digest[b:1]=0, got %d", d["b:1"])
	}
}

func TestScuttleRequestsWhenRemoteIsAhead(t *testing.T) {
	s, _, _ := newTestScuttle("a:1")

	_, requests, newPeers := s.Scuttle(Digest{"a:1": 5})
	if requests["a:1"] != 0 {
		t.Fatalf("expected request floor 0 for a peer at version 0, got %d", requests["a:1"])
	}
	if len(newPeers) != 0 {
		t.Fatalf("a:1 is already known, expected no new peers, got %v", newPeers)
	}
}

func TestScuttleReturnsDeltasWhenLocalIsAhead(t *testing.T) {
	s, view, _ := newTestScuttle("a:1")
	view["a:1"].UpdateLocal("k", "v")
	view["a:1"].UpdateLocal("k2", "v2")

	deltas, requests, _ := s.Scuttle(Digest{"a:1": 1})
	if len(requests) != 0 {
		t.Fatalf("expected no requests, got %v", requests)
	}
	got := deltas["a:1"]
	if len(got) != 1 || got[0].Version != 2 {
		t.Fatalf("expected exactly 1 delta at version 2, got %+v", got)
	}
}

func TestScuttleSendsFullHistoryForNamesAbsentFromRemoteDigest(t *testing.T) {
	s, view, _ := newTestScuttle("a:1", "b:1")
	view["b:1"].UpdateLocal("k", "v")

	// Remote digest only mentions a:1; b:1 is entirely unknown to it.
	deltas, _, _ := s.Scuttle(Digest{"a:1": 0})
	got := deltas["b:1"]
	if len(got) != 1 || got[0].Version != 1 {
		t.Fatalf("expected full history for unmentioned peer b:1, got %+v", got)
	}
}

// TestScuttleDiscoversNewPeerFromDigest is the new_peers half of a
// handle_request exchange: a name present in the remote digest but never
// seen locally gets a PeerState created immediately and is reported back.
func TestScuttleDiscoversNewPeerFromDigest(t *testing.T) {
	s, view, _ := newTestScuttle("a:1")

	_, requests, newPeers := s.Scuttle(Digest{"a:1": 0, "c:1": 3})
	if len(newPeers) != 1 || newPeers[0] != "c:1" {
		t.Fatalf("expected c:1 reported as a new peer, got %v", newPeers)
	}
	if _, ok := view["c:1"]; !ok {
		t.Fatal("expected c:1 to have a PeerState created in the view")
	}
	if requests["c:1"] != 0 {
		t.Fatalf("expected request floor 0 for a brand new peer, got %d", requests["c:1"])
	}
}

// TestUpdateKnownStateAppliesDeltasInOrder is testable property #2 from
// SPEC_FULL.md §8 (delta ordering): applying a peer's delta list in the
// order given, sorted by ascending version as DeltasAfter produces it,
// advances max_version_seen monotonically and keeps every entry.
func TestUpdateKnownStateAppliesDeltasInOrder(t *testing.T) {
	s, view, _ := newTestScuttle("a:1")

	s.UpdateKnownState(Deltas{
		"a:1": {
			{Key: "k1", Value: "v1", Version: 1},
			{Key: "k2", Value: "v2", Version: 2},
			{Key: "k3", Value: "v3", Version: 3},
		},
	})

	peer := view["a:1"]
	if peer.MaxVersionSeen() != 3 {
		t.Fatalf("expected max_version_seen=3 after applying ordered deltas, got %d", peer.MaxVersionSeen())
	}
	v, _ := peer.Get("k3")
	if v != "v3" {
		t.Fatalf("expected k3=v3, got %v", v)
	}
}

// TestUpdateKnownStateCreatesPeerStateForUnseenName covers the delta-path
// half of peer discovery: a name learned only through a first-response or
// second-response payload (not through a digest exchange) still gets a
// PeerState, created lazily by Scuttle itself.
func TestUpdateKnownStateCreatesPeerStateForUnseenName(t *testing.T) {
	s, view, _ := newTestScuttle("a:1")

	s.UpdateKnownState(Deltas{
		"never-seen:1": {{Key: "k", Value: "v", Version: 1}},
	})

	peer, ok := view["never-seen:1"]
	if !ok {
		t.Fatal("expected a PeerState to be created for a name discovered only via deltas")
	}
	if peer.MaxVersionSeen() != 1 {
		t.Fatalf("expected the delta to have been applied, got max_version_seen=%d", peer.MaxVersionSeen())
	}
}

func TestFetchDeltasHonorsPerPeerFloors(t *testing.T) {
	s, view, _ := newTestScuttle("a:1", "b:1")
	view["a:1"].UpdateLocal("k", "1")
	view["a:1"].UpdateLocal("k", "2")
	view["b:1"].UpdateLocal("k", "1")

	deltas := s.FetchDeltas(Requests{"a:1": 1, "b:1": 0})
	if len(deltas["a:1"]) != 1 || deltas["a:1"][0].Version != 2 {
		t.Fatalf("expected a:1 to return only version 2, got %+v", deltas["a:1"])
	}
	if len(deltas["b:1"]) != 1 || deltas["b:1"][0].Version != 1 {
		t.Fatalf("expected b:1 to return version 1, got %+v", deltas["b:1"])
	}
}

func TestFetchDeltasIgnoresUnknownPeer(t *testing.T) {
	s, _, _ := newTestScuttle("a:1")

	deltas := s.FetchDeltas(Requests{"ghost:1": 0})
	if _, ok := deltas["ghost:1"]; ok {
		t.Fatal("expected no entry for a peer absent from the view")
	}
}
