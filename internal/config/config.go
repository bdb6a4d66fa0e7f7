// Package config binds the node's command-line flags, environment
// variables, and an optional config file into a single Config value,
// following the flag/viper binding idiom used throughout the example
// pack (bind each pflag to a viper key, let viper resolve precedence).
package config

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is the fully resolved set of knobs a node starts with.
type Config struct {
	BindAddr          string
	Seeds             []string
	PhiThreshold      float64
	HeartbeatInterval time.Duration
	GossipInterval    time.Duration
	DebugAPIAddr      string
	Debug             bool
}

// BindFlags registers the node's flags on fs and wires each one to a
// viper key of the same name, so SCUTTLEBUTT_-prefixed environment
// variables or a config file can override the default without touching
// the flag definitions themselves.
func BindFlags(fs *pflag.FlagSet, v *viper.Viper) error {
	fs.String("bind", "127.0.0.1:7946", "address this node binds its gossip socket to (HOST:PORT)")
	fs.StringSlice("seeds", nil, "comma-separated HOST:PORT addresses of peers to seed the cluster view with")
	fs.Float64("phi-threshold", 8.0, "suspicion level above which a silent peer is considered dead")
	fs.Duration("heartbeat-interval", time.Second, "interval between local heartbeat beats")
	fs.Duration("gossip-interval", 500*time.Millisecond, "interval between gossip rounds")
	fs.String("debug-addr", "", "address to serve the read-only debug API on; empty disables it")
	fs.Bool("debug", false, "enable verbose logging and gin debug mode")

	for _, name := range []string{"bind", "seeds", "phi-threshold", "heartbeat-interval", "gossip-interval", "debug-addr", "debug"} {
		if err := v.BindPFlag(name, fs.Lookup(name)); err != nil {
			return fmt.Errorf("config: binding flag %q: %w", name, err)
		}
	}
	return nil
}

// Load resolves a Config from whatever BindFlags wired into v (flags,
// SCUTTLEBUTT_-prefixed env vars, and any config file viper was pointed
// at via SetConfigFile/ReadInConfig).
func Load(v *viper.Viper) Config {
	return Config{
		BindAddr:          v.GetString("bind"),
		Seeds:             v.GetStringSlice("seeds"),
		PhiThreshold:      v.GetFloat64("phi-threshold"),
		HeartbeatInterval: v.GetDuration("heartbeat-interval"),
		GossipInterval:    v.GetDuration("gossip-interval"),
		DebugAPIAddr:      v.GetString("debug-addr"),
		Debug:             v.GetBool("debug"),
	}
}
