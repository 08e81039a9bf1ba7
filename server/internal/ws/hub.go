package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/linkpulse/linkpulse/server/internal/api"
	"github.com/linkpulse/linkpulse/server/internal/store"
)

// Event names carried in Message.Event.
const (
	EventSnapshot = "snapshot" // on connect and on every interval tick
	EventUpdate   = "update"   // pushed after an agent delivered a snapshot
)

const (
	writeTimeout = 10 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = pongWait * 9 / 10 // must stay below pongWait
	queueDepth   = 16
	maxInbound   = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Dashboards may be served from another origin; restrict at the proxy.
	CheckOrigin: func(*http.Request) bool { return true },
}

// Message is one frame sent to dashboard clients. Seq increases by one per
// frame built by the hub, so a client can tell when it missed updates.
type Message struct {
	Event        string               `json:"event"`
	Seq          uint64               `json:"seq"`
	FiringAlerts *int                 `json:"firing_alerts,omitempty"`
	Data         api.SnapshotResponse `json:"data"`
}

// AlertCounter reports how many alerts are firing.
type AlertCounter interface {
	FiringCount() int
}

// Option configures a Hub.
type Option func(*Hub)

// WithAlerts includes the firing alert count in every frame.
func WithAlerts(a AlertCounter) Option {
	return func(h *Hub) { h.alerts = a }
}

// Hub streams the live subscriber table to WebSocket clients.
type Hub struct {
	store    *store.Store
	alerts   AlertCounter
	interval time.Duration
	pending  chan struct{}
	seq      atomic.Uint64
	now      func() time.Time

	mu    sync.RWMutex
	peers map[*peer]struct{}
}

// New returns a Hub that rebroadcasts st every interval.
func New(st *store.Store, interval time.Duration, opts ...Option) *Hub {
	h := &Hub{
		store:    st,
		interval: interval,
		pending:  make(chan struct{}, 1),
		now:      time.Now,
		peers:    make(map[*peer]struct{}),
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Notify schedules an update frame. It never blocks, and several calls
// before the hub gets to them produce a single frame.
func (h *Hub) Notify() {
	select {
	case h.pending <- struct{}{}:
	default:
	}
}

// Run sends frames until ctx is cancelled and then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	t := time.NewTicker(h.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			h.disconnectAll()
			return
		case <-t.C:
			h.publish(EventSnapshot)
		case <-h.pending:
			h.publish(EventUpdate)
		}
	}
}

// ServeHTTP upgrades the request, queues the current table for the new
// client and serves it until the connection drops.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return // the upgrader has replied with an HTTP error
	}

	p := &peer{conn: conn, out: make(chan []byte, queueDepth)}
	if frame, err := h.frame(EventSnapshot); err == nil {
		p.out <- frame
	}
	h.add(p)
	defer h.drop(p)

	go p.writeLoop()
	p.readLoop()
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.peers)
}

func (h *Hub) publish(event string) {
	h.mu.RLock()
	targets := make([]*peer, 0, len(h.peers))
	for p := range h.peers {
		targets = append(targets, p)
	}
	h.mu.RUnlock()
	if len(targets) == 0 {
		return
	}

	frame, err := h.frame(event)
	if err != nil {
		slog.Error("ws: encode frame", "err", err)
		return
	}
	for _, p := range targets {
		select {
		case p.out <- frame:
		default:
			slog.Warn("ws: dropping slow client", "remote", p.conn.RemoteAddr().String())
			h.drop(p)
		}
	}
}

func (h *Hub) frame(event string) ([]byte, error) {
	msg := Message{
		Event: event,
		Seq:   h.seq.Add(1),
		Data:  api.BuildSnapshot(h.store, h.now()),
	}
	if h.alerts != nil {
		n := h.alerts.FiringCount()
		msg.FiringAlerts = &n
	}
	return json.Marshal(msg)
}

func (h *Hub) add(p *peer) {
	h.mu.Lock()
	h.peers[p] = struct{}{}
	h.mu.Unlock()
}

// drop unregisters p and closes its queue, which ends its write loop.
func (h *Hub) drop(p *peer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.peers[p]; ok {
		delete(h.peers, p)
		close(p.out)
	}
}

func (h *Hub) disconnectAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for p := range h.peers {
		delete(h.peers, p)
		close(p.out)
	}
}

// peer is one connected dashboard.
type peer struct {
	conn *websocket.Conn
	out  chan []byte
}

// writeLoop owns all writes to the connection: queued frames and pings.
func (p *peer) writeLoop() {
	ping := time.NewTicker(pingPeriod)
	defer func() {
		ping.Stop()
		p.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-p.out:
			p.conn.SetWriteDeadline(time.Now().Add(writeTimeout)) //nolint:errcheck
			if !ok {
				p.conn.WriteMessage(websocket.CloseMessage, nil) //nolint:errcheck
				return
			}
			if err := p.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ping.C:
			p.conn.SetWriteDeadline(time.Now().Add(writeTimeout)) //nolint:errcheck
			if err := p.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readLoop discards client frames, keeps the read deadline fresh on pongs
// and returns once the connection is gone.
func (p *peer) readLoop() {
	defer p.conn.Close()
	p.conn.SetReadLimit(maxInbound)
	p.conn.SetReadDeadline(time.Now().Add(pongWait)) //nolint:errcheck
	p.conn.SetPongHandler(func(string) error {
		return p.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := p.conn.ReadMessage(); err != nil {
			return
		}
	}
}
