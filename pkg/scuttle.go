package scuttlebutt

import "sync"

// Digest summarizes a cluster view as peer name -> highest version seen.
type Digest map[string]uint64

// Requests summarizes which peers need which version ranges backfilled:
// name -> lowest version the requester already has.
type Requests map[string]uint64

// Deltas is the payload of attribute triples bound for each named peer.
type Deltas map[string][]Delta

// Scuttle is the stateless Scuttlebutt reconciliation algorithm over a
// cluster view. It has no state of its own; all state lives in the
// view map and the local PeerState it's constructed with. It does,
// however, lazily instantiate PeerStates for names it learns about for
// the first time while applying received deltas, per the PeerState
// lifecycle rule in SPEC_FULL.md §3 ("created ... upon first learning a
// new name in a reconciliation exchange").
type Scuttle struct {
	mu           *sync.RWMutex
	view         map[string]*PeerState
	local        *PeerState
	clock        Clock
	observer     Observer
	phiThreshold float64
}

// NewScuttle constructs a Scuttle over view (the cluster's peer map,
// including the local entry) guarded by mu. The caller retains ownership
// of both; Scuttle only reads/writes through the provided lock. clock,
// observer, and phiThreshold are used to construct any PeerState
// discovered while applying deltas for a name not yet present in view.
func NewScuttle(mu *sync.RWMutex, view map[string]*PeerState, local *PeerState, clock Clock, observer Observer, phiThreshold float64) *Scuttle {
	return &Scuttle{mu: mu, view: view, local: local, clock: clock, observer: observer, phiThreshold: phiThreshold}
}

// newPeerState constructs a PeerState for a name discovered mid-exchange,
// carrying the same phi threshold every other remote peer was configured
// with. Callers must hold s.mu for writing.
func (s *Scuttle) newPeerState(name string) *PeerState {
	p := NewPeerState(name, s.clock, s.observer)
	p.SetPhiThreshold(s.phiThreshold)
	return p
}

// Digest builds a compact summary of every known PeerState's highest
// seen version.
func (s *Scuttle) Digest() Digest {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d := make(Digest, len(s.view))
	for name, peer := range s.view {
		d[name] = peer.MaxVersionSeen()
	}
	return d
}

// Scuttle reconciles a remote digest against the local view, returning:
//   - deltas: attributes the remote is behind on, ready to send back
//   - requests: version floors for entries the remote is ahead on
//   - newPeers: names present remotely but never seen locally before
//
// Names known locally but absent from the remote digest are included in
// deltas unconditionally — the remote has never heard of them.
func (s *Scuttle) Scuttle(remote Digest) (deltas Deltas, requests Requests, newPeers []string) {
	deltas = Deltas{}
	requests = Requests{}

	s.mu.Lock()
	seen := make(map[string]bool, len(remote))
	for name, remoteVersion := range remote {
		seen[name] = true
		peer, known := s.view[name]
		if !known {
			peer = s.newPeerState(name)
			s.view[name] = peer
			newPeers = append(newPeers, name)
			requests[name] = 0
			continue
		}
		localVersion := peer.MaxVersionSeen()
		switch {
		case remoteVersion > localVersion:
			requests[name] = localVersion
		case remoteVersion < localVersion:
			deltas[name] = peer.DeltasAfter(remoteVersion)
		}
	}

	for name, peer := range s.view {
		if seen[name] {
			continue
		}
		deltas[name] = peer.DeltasAfter(0)
	}
	s.mu.Unlock()

	return deltas, requests, newPeers
}

// FetchDeltas resolves a set of version-floor requests against the local
// view.
func (s *Scuttle) FetchDeltas(requests Requests) Deltas {
	s.mu.RLock()
	defer s.mu.RUnlock()

	deltas := make(Deltas, len(requests))
	for name, lowest := range requests {
		peer, known := s.view[name]
		if !known {
			continue
		}
		deltas[name] = peer.DeltasAfter(lowest)
	}
	return deltas
}

// UpdateKnownState applies a batch of received deltas to the named
// PeerStates, in the order received within each peer's list. A name not
// yet present in the view gets a freshly created PeerState first.
func (s *Scuttle) UpdateKnownState(deltas Deltas) {
	s.mu.Lock()
	peers := make(map[string]*PeerState, len(deltas))
	for name := range deltas {
		peer, ok := s.view[name]
		if !ok {
			peer = s.newPeerState(name)
			s.view[name] = peer
		}
		peers[name] = peer
	}
	s.mu.Unlock()

	for name, list := range deltas {
		peer := peers[name]
		for _, d := range list {
			peer.UpdateWithDelta(d.Key, d.Value, d.Version)
		}
	}
}
