package session

import (
	"sync"

	"github.com/rs/zerolog"

	"petalarena.io/internal/protocol"
)

// Handle is the gateway's view of one client connection.
type Handle interface {
	Send(b []byte)
	Close()
}

// Hub maps spawned player ids to their connections and fans world events out
// to them. Each message is encoded once per call.
type Hub struct {
	log zerolog.Logger

	mu    sync.RWMutex
	conns map[string]Handle
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		log:   log.With().Str("component", "hub").Logger(),
		conns: map[string]Handle{},
	}
}

func (h *Hub) Register(id string, c Handle) {
	h.mu.Lock()
	h.conns[id] = c
	h.mu.Unlock()
}

func (h *Hub) Unregister(id string) {
	h.mu.Lock()
	delete(h.conns, id)
	h.mu.Unlock()
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

func (h *Hub) Broadcast(msg any) {
	b, ok := h.encode(msg)
	if !ok {
		return
	}
	h.mu.RLock()
	targets := make([]Handle, 0, len(h.conns))
	for _, c := range h.conns {
		targets = append(targets, c)
	}
	h.mu.RUnlock()
	for _, c := range targets {
		c.Send(b)
	}
}

func (h *Hub) SendTo(id string, msg any) {
	h.mu.RLock()
	c, ok := h.conns[id]
	h.mu.RUnlock()
	if !ok {
		return
	}
	if b, ok := h.encode(msg); ok {
		c.Send(b)
	}
}

func (h *Hub) encode(msg any) ([]byte, bool) {
	b, err := protocol.Encode(msg)
	if err != nil {
		h.log.Error().Err(err).Msg("encode outbound message")
		return nil, false
	}
	return b, true
}
