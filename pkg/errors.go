package scuttlebutt

import (
	"github.com/sierrasoftworks/humane-errors-go"
)

// ErrWildcardBind is returned by NewGossiper when asked to bind 0.0.0.0:
// the local peer's name must be a concrete, dialable HOST:PORT.
var ErrWildcardBind = humane.New(
	"cannot derive a stable peer name from a wildcard bind address",
	"bind to a concrete interface address instead of 0.0.0.0",
	"pass the address other peers should dial, e.g. the host's LAN IP",
)

// ErrInvalidSeedName is returned by Seed when a seed string isn't a
// parseable HOST:PORT.
var ErrInvalidSeedName = humane.New(
	"seed address is not a valid HOST:PORT",
	"use the form host:port, e.g. 10.0.0.12:9000",
)

// ErrUnsupportedOperation is returned by the embedder map interface's
// Delete, which the Scuttlebutt attribute model does not support:
// versions only ever move forward, so there is no way to represent
// "this key used to exist and now it doesn't" as a delta.
var ErrUnsupportedOperation = humane.New(
	"delete is not supported on a Scuttlebutt attribute store",
	"overwrite the key with a tombstone value instead, if deletion semantics are needed",
)
