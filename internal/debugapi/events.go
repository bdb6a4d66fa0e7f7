package debugapi

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/go-logr/logr"
	"github.com/gorilla/websocket"
	"github.com/mcastellin/scuttlebutt/pkg"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The debug API is a read-only operator tool, not a browser-facing
	// product surface; same-origin checks don't apply here.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// event is one membership or value-change notification, shaped for
// json.Marshal over the /events websocket.
type event struct {
	Kind  string `json:"kind"`
	Peer  string `json:"peer"`
	Key   string `json:"key,omitempty"`
	Value any    `json:"value,omitempty"`
}

// EventHub is a scuttlebutt.Observer that fans membership and
// value-change notifications out to every connected /events client.
type EventHub struct {
	scuttlebutt.NopObserver

	logger logr.Logger

	mu      sync.Mutex
	clients map[*websocket.Conn]chan event
}

func NewEventHub(logger logr.Logger) *EventHub {
	return &EventHub{logger: logger, clients: map[*websocket.Conn]chan event{}}
}

func (h *EventHub) ValueChanged(peer *scuttlebutt.PeerState, key string, value any) {
	h.broadcast(event{Kind: "value_changed", Peer: peer.Name(), Key: key, Value: value})
}

func (h *EventHub) PeerAlive(peer *scuttlebutt.PeerState) {
	h.broadcast(event{Kind: "peer_alive", Peer: peer.Name()})
}

func (h *EventHub) PeerDead(peer *scuttlebutt.PeerState) {
	h.broadcast(event{Kind: "peer_dead", Peer: peer.Name()})
}

func (h *EventHub) broadcast(e event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn, ch := range h.clients {
		select {
		case ch <- e:
		default:
			h.logger.V(1).Info("dropping event, slow websocket client", "remote", conn.RemoteAddr().String())
		}
	}
}

func (h *EventHub) handleWebsocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.V(1).Info("websocket upgrade failed", "error", err.Error())
		return
	}
	defer conn.Close()

	ch := make(chan event, 64)
	h.mu.Lock()
	h.clients[conn] = ch
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
	}()

	for e := range ch {
		data, err := json.Marshal(e)
		if err != nil {
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
}
