// Package feed streams combat events to presentation clients over
// websockets as JSON.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/l1jgo/combatcore/internal/core/event"
	"go.uber.org/zap"
)

// ProtocolVersion is sent with every message.
const ProtocolVersion = 1

// Message is one event on the wire.
type Message struct {
	Ver  int    `json:"ver"`
	Type string `json:"type"`
	Tick uint64 `json:"tick"`
	Data any    `json:"data"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans messages out to every connected client. Publish is called from
// the game loop and never blocks on a slow client; such a client misses
// messages instead.
type Hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}

	queueSize int
	writeWait time.Duration
	upgrader  websocket.Upgrader
	log       *zap.Logger

	dropped uint64
}

// Option configures a Hub.
type Option func(*Hub)

func WithQueueSize(n int) Option           { return func(h *Hub) { h.queueSize = n } }
func WithWriteWait(d time.Duration) Option { return func(h *Hub) { h.writeWait = d } }
func WithLogger(l *zap.Logger) Option      { return func(h *Hub) { h.log = l } }

func NewHub(opts ...Option) *Hub {
	h := &Hub{
		clients:   make(map[*client]struct{}),
		queueSize: 256,
		writeWait: 5 * time.Second,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
	for _, o := range opts {
		o(h)
	}
	if h.log == nil {
		h.log = zap.NewNop()
	}
	if h.queueSize <= 0 {
		h.queueSize = 1
	}
	return h
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Dropped returns how many per-client messages were discarded.
func (h *Hub) Dropped() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dropped
}

// Publish marshals msg once and queues it for every client.
func (h *Hub) Publish(msg Message) {
	msg.Ver = ProtocolVersion
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.Error("marshal feed message", zap.String("type", msg.Type), zap.Error(err))
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.dropped++
		}
	}
}

// Attach subscribes the hub to every combat event on bus. tick stamps
// each message with the current simulation tick.
func (h *Hub) Attach(bus *event.Bus, tick func() uint64) {
	if tick == nil {
		tick = func() uint64 { return 0 }
	}
	forward[event.DamageApplied](h, bus, "damage", tick)
	forward[event.Died](h, bus, "died", tick)
	forward[event.Revived](h, bus, "revived", tick)
	forward[event.LevelUp](h, bus, "level_up", tick)
	forward[event.AttributesChanged](h, bus, "attributes", tick)
	forward[event.EffectAdded](h, bus, "effect_added", tick)
	forward[event.EffectRemoved](h, bus, "effect_removed", tick)
	forward[event.StateChanged](h, bus, "state", tick)
	forward[event.NPCStateChanged](h, bus, "npc_state", tick)
	forward[event.DispositionChanged](h, bus, "disposition", tick)
}

func forward[T any](h *Hub, bus *event.Bus, typ string, tick func() uint64) {
	event.Subscribe(bus, func(ev T) {
		h.Publish(Message{Type: typ, Tick: tick(), Data: ev})
	})
}

// ServeHTTP upgrades the request and streams messages until the client
// goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug("feed upgrade failed", zap.Error(err))
		return
	}
	c := &client{conn: conn, send: make(chan []byte, h.queueSize)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.log.Debug("feed client connected", zap.String("remote", r.RemoteAddr))

	done := make(chan struct{})
	go h.writePump(c, done)

	// Clients are listen-only; reading detects the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.remove(c)
	<-done
	conn.Close()
	h.log.Debug("feed client disconnected", zap.String("remote", r.RemoteAddr))
}

func (h *Hub) writePump(c *client, done chan<- struct{}) {
	defer close(done)
	for data := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(h.writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.remove(c)
			c.conn.Close()
			for range c.send {
			}
			return
		}
	}
	c.conn.SetWriteDeadline(time.Now().Add(h.writeWait))
	c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, "feed closed"))
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()
	for _, c := range clients {
		h.remove(c)
	}
}

// Run serves the feed on addr under /events until ctx is cancelled.
func (h *Hub) Run(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/events", h)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	h.log.Info("event feed listening", zap.String("addr", addr))

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	h.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
