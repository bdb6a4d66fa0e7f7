// Package leaderelection layers a master election on top of a
// scuttlebutt.Gossiper's existing attribute store: every peer publishes
// a priority, votes for whoever advertises the highest priority among
// its live peers, and a peer with a unanimous view of the votes (the
// peer itself included) promotes that vote to master. Liveness edges
// from the gossiper retrigger the vote after a short debounce, so a
// burst of near-simultaneous peer_alive/peer_dead notifications
// settles into a single revote instead of one per edge.
package leaderelection

import (
	"sync"
	"time"

	scuttlebutt "github.com/mcastellin/scuttlebutt/pkg"
)

const (
	priorityKey = "/leader-election/priority"
	voteKey     = "/leader-election/vote"
	masterKey   = "/leader-election/master"
)

// Election is a scuttlebutt.Observer that drives leader election as a
// side effect of the gossiper's membership and value-change events.
type Election struct {
	scuttlebutt.NopObserver

	priority  float64
	debounce  time.Duration
	onElected func(master string)

	mu    sync.Mutex
	g     *scuttlebutt.Gossiper
	timer *time.Timer
}

// New constructs an Election that advertises priority as this peer's
// arrogance in the vote, waits debounce after a liveness change before
// revoting, and calls onElected (if non-nil) whenever this peer observes
// unanimous consensus on a master.
func New(priority float64, debounce time.Duration, onElected func(master string)) *Election {
	return &Election{priority: priority, debounce: debounce, onElected: onElected}
}

// MakeConnection publishes this peer's priority as soon as it joins the
// cluster view.
func (e *Election) MakeConnection(g *scuttlebutt.Gossiper) {
	e.mu.Lock()
	e.g = g
	e.mu.Unlock()
	g.Set(priorityKey, e.priority)
}

// ValueChanged reacts to vote and master key changes, checking for
// consensus among the peer's own live view.
func (e *Election) ValueChanged(_ *scuttlebutt.PeerState, key string, _ any) {
	switch key {
	case voteKey:
		e.checkVoteConsensus()
	case masterKey:
		e.checkMasterConsensus()
	}
}

// PeerAlive and PeerDead both reschedule a (debounced) revote: any
// membership change can change who the highest-priority live peer is.
func (e *Election) PeerAlive(*scuttlebutt.PeerState) { e.scheduleVote() }
func (e *Election) PeerDead(*scuttlebutt.PeerState)  { e.scheduleVote() }

func (e *Election) scheduleVote() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.timer != nil {
		e.timer.Stop()
	}
	e.timer = time.AfterFunc(e.debounce, e.vote)
}

func (e *Election) vote() {
	e.mu.Lock()
	g := e.g
	e.mu.Unlock()
	if g == nil {
		return
	}

	suggested := g.Name()
	best := e.priority
	for _, peer := range g.Peers() {
		if !peer.Alive {
			continue
		}
		p, ok := peer.Attrs[priorityKey].(float64)
		if !ok {
			continue
		}
		if p > best {
			best = p
			suggested = peer.Name
		}
	}

	if current, ok := g.Get(voteKey); ok && current == suggested {
		return
	}
	g.Set(voteKey, suggested)
}

func (e *Election) checkVoteConsensus() {
	e.mu.Lock()
	g := e.g
	e.mu.Unlock()
	if g == nil {
		return
	}

	vote, ok := g.Get(voteKey)
	if !ok {
		return
	}
	for _, peer := range g.Peers() {
		if !peer.Alive {
			continue
		}
		v, ok := peer.Attrs[voteKey]
		if !ok || v != vote {
			return
		}
	}
	g.Set(masterKey, vote)
}

func (e *Election) checkMasterConsensus() {
	e.mu.Lock()
	g := e.g
	onElected := e.onElected
	e.mu.Unlock()
	if g == nil {
		return
	}

	master, ok := g.Get(masterKey)
	if !ok {
		return
	}
	for _, peer := range g.Peers() {
		if !peer.Alive {
			continue
		}
		v, ok := peer.Attrs[masterKey]
		if !ok || v != master {
			return
		}
	}
	if onElected != nil {
		if name, ok := master.(string); ok {
			onElected(name)
		}
	}
}
