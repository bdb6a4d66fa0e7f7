// Package debugapi exposes a read-only HTTP view into a running node's
// cluster view: the live/dead peer lists, a single peer's attributes,
// and a websocket stream of membership events as they happen. None of
// these routes can mutate cluster state; that's deliberate, the node's
// own gossip loop is the only writer.
package debugapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-logr/logr"
	"github.com/mcastellin/scuttlebutt/pkg"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server is the gin-backed introspection API for one Gossiper.
type Server struct {
	engine *gin.Engine
	http   *http.Server
	logger logr.Logger
	events *EventHub
}

// New builds a Server bound to addr, reading g's cluster view on demand
// and publishing reg's prometheus metrics at /metrics. events is the
// Observer driving the /events websocket stream; register it with the
// Gossiper's MultiObserver before calling g.Serve so it doesn't miss any
// notifications fired between construction and this call. Pass
// debug=true to run gin in its verbose DebugMode instead of ReleaseMode.
func New(addr string, g *scuttlebutt.Gossiper, reg *prometheus.Registry, logger logr.Logger, debug bool, events *EventHub) *Server {
	if debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	engine.GET("/peers", func(c *gin.Context) {
		c.JSON(http.StatusOK, g.Peers())
	})

	engine.GET("/peers/:name", func(c *gin.Context) {
		name := c.Param("name")
		for _, p := range g.Peers() {
			if p.Name == name {
				c.JSON(http.StatusOK, p)
				return
			}
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown peer"})
	})

	engine.GET("/self", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"name": g.Name(),
			"keys": g.Keys(),
		})
	})

	if reg != nil {
		engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	}

	engine.GET("/events", events.handleWebsocket)

	return &Server{
		engine: engine,
		http:   &http.Server{Addr: addr, Handler: engine},
		logger: logger,
		events: events,
	}
}

// Router exposes the underlying gin engine as an http.Handler, for
// tests to drive routes with httptest without binding a real socket.
func (s *Server) Router() http.Handler {
	return s.engine
}

// Events returns the scuttlebutt.Observer that feeds the /events
// websocket stream. Wire it up alongside any other observer the node
// uses (e.g. via a small fan-out Observer).
func (s *Server) Events() scuttlebutt.Observer {
	return s.events
}

func (s *Server) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
