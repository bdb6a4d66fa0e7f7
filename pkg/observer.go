package scuttlebutt

// Observer receives push notifications from the core as membership and
// attribute state changes. All methods are optional in spirit — embedders
// that don't care about a particular notification should embed
// NopObserver and override only what they need. Implementations must
// tolerate re-entrant calls: these are invoked synchronously on whichever
// goroutine triggered the event (the receive loop, either periodic timer,
// or the embedder's own Set call), outside any Gossiper or PeerState
// lock, so calls are not serialized with one another and may run
// concurrently. An Observer that calls back into the Gossiper (e.g. Set)
// runs inline with the triggering event.
type Observer interface {
	// MakeConnection is called once, at startup, with the Gossiper itself.
	MakeConnection(g *Gossiper)
	// ValueChanged is called whenever key on peer is written, locally or
	// via a remote delta.
	ValueChanged(peer *PeerState, key string, value any)
	// PeerAlive is called on every dead->alive transition, including the
	// initial false->true one. Never called for the local peer.
	PeerAlive(peer *PeerState)
	// PeerDead is called on every alive->dead transition. Never called
	// for the local peer.
	PeerDead(peer *PeerState)
}

// NopObserver is a zero-value-safe Observer embedders can use as a base
// when they only care about a subset of notifications.
type NopObserver struct{}

func (NopObserver) MakeConnection(*Gossiper)                  {}
func (NopObserver) ValueChanged(*PeerState, string, any)       {}
func (NopObserver) PeerAlive(*PeerState)                       {}
func (NopObserver) PeerDead(*PeerState)                        {}
