package scuttlebutt

import (
	"sort"
	"sync"
	"time"
)

// heartbeatKey is the distinguished attribute every PeerState that has
// ever advertised itself carries. Heartbeats ride the same reconciliation
// channel as ordinary attributes, so the failure signal is whatever the
// gossip layer already delivers.
const heartbeatKey = "__heartbeat__"

// defaultPhiThreshold is the suspicion level above which a peer with no
// explicit override is considered dead.
const defaultPhiThreshold = 8.0

// attribute is a (value, version) pair as stored in a PeerState.
type attribute struct {
	value   any
	version uint64
}

// Delta is an attribute triple in flight during reconciliation.
type Delta struct {
	Key     string
	Value   any
	Version uint64
}

// PeerState holds one peer's view of one peer's attributes (the local
// peer's own state, or a remote peer's state as last reconciled). See
// SPEC_FULL.md §3 for the invariants.
type PeerState struct {
	mu sync.RWMutex

	name             string
	attrs            map[string]attribute
	maxVersionSeen   uint64
	heartbeatVersion uint64

	detector     *FailureDetector
	alive        bool
	phiThreshold float64

	clock    Clock
	observer Observer
}

// NewPeerState creates a PeerState for name. clock and observer must be
// non-nil; observer may be NopObserver{} if the embedder doesn't care.
func NewPeerState(name string, clock Clock, observer Observer) *PeerState {
	return &PeerState{
		name:         name,
		attrs:        map[string]attribute{},
		detector:     NewFailureDetector(),
		phiThreshold: defaultPhiThreshold,
		clock:        clock,
		observer:     observer,
	}
}

// Name returns the peer's stable HOST:PORT identifier.
func (p *PeerState) Name() string {
	return p.name
}

// SetPhiThreshold overrides the default suspicion threshold (8).
func (p *PeerState) SetPhiThreshold(phi float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.phiThreshold = phi
}

// MaxVersionSeen returns the highest attribute version observed so far.
func (p *PeerState) MaxVersionSeen() uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.maxVersionSeen
}

// Alive reports the peer's last computed liveness.
func (p *PeerState) Alive() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.alive
}

// Get returns the value stored for key, if any.
func (p *PeerState) Get(key string) (any, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	a, ok := p.attrs[key]
	if !ok {
		return nil, false
	}
	return a.value, true
}

// Contains reports whether key is present.
func (p *PeerState) Contains(key string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.attrs[key]
	return ok
}

// Len returns the number of attributes held.
func (p *PeerState) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.attrs)
}

// Keys returns the attribute keys in unspecified order.
func (p *PeerState) Keys() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	keys := make([]string, 0, len(p.attrs))
	for k := range p.attrs {
		keys = append(keys, k)
	}
	return keys
}

// UpdateWithDelta applies a remote delta. If version is strictly newer
// than what's already known, the attribute is stored, max_version_seen
// advances, and the embedder is notified. A heartbeat delta additionally
// feeds the failure detector. Replaying an already-seen version is a
// silent no-op — this is what makes reception idempotent under
// overlapping gossip exchanges.
func (p *PeerState) UpdateWithDelta(key string, value any, version uint64) {
	p.mu.Lock()
	if version <= p.maxVersionSeen {
		p.mu.Unlock()
		return
	}
	p.maxVersionSeen = version
	p.attrs[key] = attribute{value: value, version: version}
	isHeartbeat := key == heartbeatKey
	var now time.Time
	if isHeartbeat {
		now = p.clock.Now()
	}
	p.mu.Unlock()

	if isHeartbeat {
		p.detector.Add(now)
	}
	p.observer.ValueChanged(p, key, value)
}

// UpdateLocal applies a local write: max_version_seen always advances by
// exactly 1, regardless of what any remote peer has claimed. Only valid
// on the PeerState representing the local peer.
func (p *PeerState) UpdateLocal(key string, value any) {
	p.mu.Lock()
	p.maxVersionSeen++
	version := p.maxVersionSeen
	p.attrs[key] = attribute{value: value, version: version}
	p.mu.Unlock()

	p.observer.ValueChanged(p, key, value)
}

// BeatHeart increments the local heartbeat version and publishes it
// under the distinguished heartbeat key, producing a fresh delta that
// will propagate on the next gossip round.
func (p *PeerState) BeatHeart() {
	p.mu.Lock()
	p.heartbeatVersion++
	v := p.heartbeatVersion
	p.mu.Unlock()
	p.UpdateLocal(heartbeatKey, v)
}

// DeltasAfter returns every attribute whose stored version is strictly
// greater than lowestVersion, sorted by ascending version. The ordering
// is load-bearing: a receiver applying these in order always advances its
// own max_version_seen monotonically.
func (p *PeerState) DeltasAfter(lowestVersion uint64) []Delta {
	p.mu.RLock()
	defer p.mu.RUnlock()

	deltas := make([]Delta, 0, len(p.attrs))
	for k, a := range p.attrs {
		if a.version > lowestVersion {
			deltas = append(deltas, Delta{Key: k, Value: a.value, Version: a.version})
		}
	}
	sort.Slice(deltas, func(i, j int) bool { return deltas[i].Version < deltas[j].Version })
	return deltas
}

// CheckSuspected asks the failure detector whether this peer should be
// considered dead as of now, and fires the appropriate peer_alive/
// peer_dead edge notification at most once per transition.
func (p *PeerState) CheckSuspected(now time.Time) {
	suspected := p.detector.Failed(now, p.currentPhiThreshold())
	if suspected {
		p.markDead()
	} else {
		p.markAlive()
	}
}

// Phi returns the peer's current suspicion level as of now, for
// introspection (metrics, debug API) rather than the liveness decision
// itself, which goes through CheckSuspected.
func (p *PeerState) Phi(now time.Time) float64 {
	return p.detector.Phi(now)
}

func (p *PeerState) currentPhiThreshold() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.phiThreshold
}

func (p *PeerState) markAlive() {
	p.mu.Lock()
	wasAlive := p.alive
	p.alive = true
	p.mu.Unlock()
	if !wasAlive {
		p.observer.PeerAlive(p)
	}
}

func (p *PeerState) markDead() {
	p.mu.Lock()
	wasAlive := p.alive
	p.alive = false
	p.mu.Unlock()
	if wasAlive {
		p.observer.PeerDead(p)
	}
}
