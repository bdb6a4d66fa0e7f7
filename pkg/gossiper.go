// Package scuttlebutt implements a decentralized membership and
// state-dissemination service: a versioned per-peer attribute store
// reconciled between peers by Scuttlebutt-style anti-entropy gossip, with
// peer liveness decided independently by each peer via a phi-accrual
// failure detector fed by heartbeat arrivals.
package scuttlebutt

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/go-logr/logr"
)

const (
	defaultHeartbeatInterval = time.Second
	defaultGossipInterval    = 500 * time.Millisecond
	maxDatagramSize          = 64 * 1024
)

// Gossiper owns the cluster view, drives the heartbeat and gossip
// timers, multiplexes the three wire message types over a Transport, and
// presents a map-like interface the embedder uses to read and write the
// local peer's attributes. See SPEC_FULL.md §4.4.
type Gossiper struct {
	mu   sync.RWMutex
	view map[string]*PeerState

	localName string
	local     *PeerState
	scuttle   *Scuttle

	transport Transport
	clock     Clock
	rnd       RandSource
	observer  Observer
	logger    logr.Logger

	phiThreshold      float64
	heartbeatInterval time.Duration
	gossipInterval    time.Duration

	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

// NewGossiper binds bindAddr (a concrete HOST:PORT, never a wildcard)
// and constructs a Gossiper ready to Serve. observer receives all
// membership and value-change notifications; it may be NopObserver{}.
func NewGossiper(bindAddr string, observer Observer, opts ...Option) (*Gossiper, error) {
	if observer == nil {
		observer = NopObserver{}
	}
	g := &Gossiper{
		view:              map[string]*PeerState{},
		observer:          observer,
		clock:             SystemClock{},
		rnd:               NewRandSource(),
		logger:            logr.Discard(),
		phiThreshold:      defaultPhiThreshold,
		heartbeatInterval: defaultHeartbeatInterval,
		gossipInterval:    defaultGossipInterval,
	}
	for _, opt := range opts {
		opt(g)
	}

	if g.transport == nil {
		t, err := NewUDPTransport(bindAddr)
		if err != nil {
			return nil, err
		}
		g.transport = t
	}

	name, err := deriveName(g.transport.LocalAddr())
	if err != nil {
		return nil, err
	}
	g.localName = name
	g.local = NewPeerState(name, g.clock, g.observer)
	g.local.SetPhiThreshold(g.phiThreshold)
	g.view[name] = g.local
	g.scuttle = NewScuttle(&g.mu, g.view, g.local, g.clock, g.observer, g.phiThreshold)

	return g, nil
}

// deriveName turns a bound transport address into the stable HOST:PORT
// identifier this peer will be known by, rejecting a wildcard bind.
func deriveName(addr net.Addr) (string, error) {
	udpAddr, ok := addr.(*net.UDPAddr)
	if !ok {
		return "", fmt.Errorf("scuttlebutt: unexpected local address type %T", addr)
	}
	if udpAddr.IP == nil || udpAddr.IP.IsUnspecified() {
		return "", ErrWildcardBind
	}
	return udpAddr.String(), nil
}

// Name returns this peer's stable HOST:PORT identifier.
func (g *Gossiper) Name() string {
	return g.localName
}

// Seed registers a sequence of HOST:PORT strings as peers to bootstrap
// the cluster view with. Their liveness starts false and is discovered
// the same way any other peer's is: via gossip and the failure detector.
func (g *Gossiper) Seed(names []string) error {
	for _, n := range names {
		if _, _, err := net.SplitHostPort(n); err != nil {
			return ErrInvalidSeedName
		}
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, n := range names {
		if _, ok := g.view[n]; ok {
			continue
		}
		p := NewPeerState(n, g.clock, g.observer)
		p.SetPhiThreshold(g.phiThreshold)
		g.view[n] = p
	}
	return nil
}

// Serve starts the receive loop and the two periodic timers, then
// notifies the observer that the connection is up.
func (g *Gossiper) Serve() error {
	if g.started {
		return fmt.Errorf("scuttlebutt: gossiper already serving")
	}
	g.started = true

	ctx, cancel := context.WithCancel(context.Background())
	g.cancel = cancel

	g.wg.Add(3)
	go g.receiveLoop(ctx)
	go g.heartbeatLoop(ctx)
	go g.gossipLoop(ctx)

	g.observer.MakeConnection(g)
	return nil
}

// Shutdown cancels both periodic timers, closes the transport (unblocking
// the receive loop), and waits for all three goroutines to exit. It does
// not clear the cluster view.
func (g *Gossiper) Shutdown() error {
	if !g.started {
		return nil
	}
	g.started = false
	g.cancel()
	err := g.transport.Close()
	g.wg.Wait()
	return err
}

func (g *Gossiper) receiveLoop(ctx context.Context) {
	defer g.wg.Done()
	buf := make([]byte, maxDatagramSize)
	for {
		n, addr, err := g.transport.ReadFrom(buf)
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
			}
			g.logger.V(1).Info("transport read error, discarding", "error", err.Error())
			continue
		}
		data := make([]byte, n)
		copy(data, buf[:n])
		g.handleMessage(data, addr)
	}
}

func (g *Gossiper) heartbeatLoop(ctx context.Context) {
	defer g.wg.Done()
	ticker := time.NewTicker(g.heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.local.BeatHeart()
		}
	}
}

func (g *Gossiper) gossipLoop(ctx context.Context) {
	defer g.wg.Done()
	ticker := time.NewTicker(g.gossipInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.gossipRound()
		}
	}
}

// gossipRound performs one round: pick a live partner (always, if any
// exist), probabilistically pick a dead partner, then reclassify every
// remote peer's liveness. See SPEC_FULL.md §4.4.
func (g *Gossiper) gossipRound() {
	live := g.LivePeers()
	dead := g.DeadPeers()

	if len(live) > 0 {
		partner := live[g.rnd.Intn(len(live))]
		g.sendRequest(partner)
	}

	prob := float64(len(dead)) / float64(len(live)+1)
	if len(dead) > 0 && g.rnd.Float64() < prob {
		partner := dead[g.rnd.Intn(len(dead))]
		g.sendRequest(partner)
	}

	now := g.clock.Now()
	for _, p := range g.remotePeers() {
		p.CheckSuspected(now)
	}
}

// PeerInfo is a read-only snapshot of one remote peer's membership
// state, used by introspection tooling (the debug API, metrics).
type PeerInfo struct {
	Name  string
	Alive bool
	Phi   float64
	Attrs map[string]any
}

// Peers returns a snapshot of every known remote peer, for introspection.
func (g *Gossiper) Peers() []PeerInfo {
	now := g.clock.Now()
	peers := g.remotePeers()
	out := make([]PeerInfo, 0, len(peers))
	for _, p := range peers {
		attrs := make(map[string]any, p.Len())
		for _, k := range p.Keys() {
			if v, ok := p.Get(k); ok {
				attrs[k] = v
			}
		}
		out = append(out, PeerInfo{
			Name:  p.Name(),
			Alive: p.Alive(),
			Phi:   p.Phi(now),
			Attrs: attrs,
		})
	}
	return out
}

// LivePeers returns every known remote peer currently considered alive.
func (g *Gossiper) LivePeers() []*PeerState {
	return g.filterPeers(func(p *PeerState) bool { return p.Alive() })
}

// DeadPeers returns every known remote peer currently considered dead.
func (g *Gossiper) DeadPeers() []*PeerState {
	return g.filterPeers(func(p *PeerState) bool { return !p.Alive() })
}

func (g *Gossiper) remotePeers() []*PeerState {
	return g.filterPeers(func(*PeerState) bool { return true })
}

func (g *Gossiper) filterPeers(pred func(*PeerState) bool) []*PeerState {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]*PeerState, 0, len(g.view))
	for name, p := range g.view {
		if name == g.localName {
			continue
		}
		if pred(p) {
			out = append(out, p)
		}
	}
	return out
}

func (g *Gossiper) sendRequest(partner *PeerState) {
	addr, err := g.transport.ResolveName(partner.Name())
	if err != nil {
		g.logger.V(1).Info("cannot resolve gossip partner, skipping round", "peer", partner.Name(), "error", err.Error())
		return
	}
	payload, err := encodeRequest(g.scuttle.Digest())
	if err != nil {
		g.logger.V(1).Info("failed to encode request", "error", err.Error())
		return
	}
	if _, err := g.transport.WriteTo(payload, addr); err != nil {
		g.logger.V(1).Info("transport write error, discarding", "peer", partner.Name(), "error", err.Error())
	}
}

func (g *Gossiper) handleMessage(data []byte, addr net.Addr) {
	msg, err := decodeMessage(data)
	if err != nil {
		g.logger.V(1).Info("dropping malformed or unknown datagram", "error", err.Error())
		return
	}
	switch m := msg.(type) {
	case requestMessage:
		g.handleRequest(m, addr)
	case firstResponseMessage:
		g.handleFirstResponse(m, addr)
	case secondResponseMessage:
		g.handleSecondResponse(m)
	}
}

func (g *Gossiper) handleRequest(msg requestMessage, addr net.Addr) {
	deltas, requests, newPeers := g.scuttle.Scuttle(msg.Digest)
	if len(newPeers) > 0 {
		g.logger.V(1).Info("discovered new peers via gossip", "peers", newPeers)
	}
	payload, err := encodeFirstResponse(requests, deltas)
	if err != nil {
		g.logger.V(1).Info("failed to encode first-response", "error", err.Error())
		return
	}
	if _, err := g.transport.WriteTo(payload, addr); err != nil {
		g.logger.V(1).Info("transport write error, discarding", "error", err.Error())
	}
}

func (g *Gossiper) handleFirstResponse(msg firstResponseMessage, addr net.Addr) {
	g.scuttle.UpdateKnownState(msg.Updates)

	deltas := g.scuttle.FetchDeltas(msg.Digest)
	payload, err := encodeSecondResponse(deltas)
	if err != nil {
		g.logger.V(1).Info("failed to encode second-response", "error", err.Error())
		return
	}
	if _, err := g.transport.WriteTo(payload, addr); err != nil {
		g.logger.V(1).Info("transport write error, discarding", "error", err.Error())
	}
}

func (g *Gossiper) handleSecondResponse(msg secondResponseMessage) {
	g.scuttle.UpdateKnownState(msg.Updates)
}

// Get returns the local peer's value for key.
func (g *Gossiper) Get(key string) (any, bool) {
	return g.local.Get(key)
}

// Set writes key on the local peer, advancing its version by 1 and
// notifying the observer.
func (g *Gossiper) Set(key string, value any) {
	g.local.UpdateLocal(key, value)
}

// Contains reports whether the local peer has a value for key.
func (g *Gossiper) Contains(key string) bool {
	return g.local.Contains(key)
}

// Len returns the number of attributes the local peer holds.
func (g *Gossiper) Len() int {
	return g.local.Len()
}

// Keys returns the local peer's attribute keys in unspecified order.
func (g *Gossiper) Keys() []string {
	return g.local.Keys()
}

// Delete is unsupported: the Scuttlebutt attribute model has no way to
// represent removal as a monotone-version delta.
func (g *Gossiper) Delete(string) error {
	return ErrUnsupportedOperation
}
