package metrics

import "github.com/mcastellin/scuttlebutt/pkg"

// Observer adapts Collectors to the scuttlebutt.Observer interface, so a
// node can be wired up to update its gauges purely from the liveness
// edges the core already fires, without the core knowing metrics exist.
type Observer struct {
	scuttlebutt.NopObserver
	collectors *Collectors
}

// NewObserver wraps collectors as a scuttlebutt.Observer.
func NewObserver(collectors *Collectors) *Observer {
	return &Observer{collectors: collectors}
}

func (o *Observer) PeerAlive(*scuttlebutt.PeerState) {
	o.collectors.LivePeers.Inc()
	o.collectors.DeadPeers.Dec()
}

func (o *Observer) PeerDead(*scuttlebutt.PeerState) {
	o.collectors.LivePeers.Dec()
	o.collectors.DeadPeers.Inc()
}
