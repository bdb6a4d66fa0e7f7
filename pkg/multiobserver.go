package scuttlebutt

// MultiObserver fans every notification out to a fixed set of
// Observers, in order, so a Gossiper (which takes exactly one Observer)
// can still be wired up to several independent collaborators — an
// application's own logic, a metrics collector, a debug-API event
// stream — without any of them knowing about the others.
type MultiObserver []Observer

func (m MultiObserver) MakeConnection(g *Gossiper) {
	for _, o := range m {
		o.MakeConnection(g)
	}
}

func (m MultiObserver) ValueChanged(peer *PeerState, key string, value any) {
	for _, o := range m {
		o.ValueChanged(peer, key, value)
	}
}

func (m MultiObserver) PeerAlive(peer *PeerState) {
	for _, o := range m {
		o.PeerAlive(peer)
	}
}

func (m MultiObserver) PeerDead(peer *PeerState) {
	for _, o := range m {
		o.PeerDead(peer)
	}
}
