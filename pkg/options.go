package scuttlebutt

import (
	"time"

	"github.com/go-logr/logr"
)

// Option configures a Gossiper at construction time.
type Option func(*Gossiper)

// WithClock overrides the default SystemClock. Tests use this to drive
// the failure detector and suspicion checks deterministically.
func WithClock(c Clock) Option {
	return func(g *Gossiper) { g.clock = c }
}

// WithRandSource overrides the default process-seeded RandSource. Tests
// use this for reproducible partner selection.
func WithRandSource(r RandSource) Option {
	return func(g *Gossiper) { g.rnd = r }
}

// WithPhiThreshold overrides the default suspicion threshold (8) applied
// to every remote PeerState.
func WithPhiThreshold(phi float64) Option {
	return func(g *Gossiper) { g.phiThreshold = phi }
}

// WithLogger attaches a logr.Logger used for the soft, log-and-discard
// error classes described in SPEC_FULL.md §7 (transport and protocol
// errors). Defaults to a discarding logger.
func WithLogger(l logr.Logger) Option {
	return func(g *Gossiper) { g.logger = l }
}

// WithHeartbeatInterval overrides the default 1s heartbeat period.
func WithHeartbeatInterval(d time.Duration) Option {
	return func(g *Gossiper) { g.heartbeatInterval = d }
}

// WithGossipInterval overrides the default 500ms gossip round period.
func WithGossipInterval(d time.Duration) Option {
	return func(g *Gossiper) { g.gossipInterval = d }
}

// WithTransport injects a Transport instead of binding a real UDP
// socket. Used by tests to run multi-peer scenarios over an in-memory
// fake.
func WithTransport(t Transport) Option {
	return func(g *Gossiper) { g.transport = t }
}
