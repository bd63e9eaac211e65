// Package broadcast models per-room messaging groups independently of the
// transport that carries messages to a connection.
package broadcast

import (
	"log/slog"
	"sync"
)

// Message is one outbound event.
type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Conn is a connection the hub can deliver to. Deliver must not block.
type Conn interface {
	ID() string
	Deliver(msg Message) error
}

// Hub tracks connections and the named groups they belong to.
type Hub struct {
	log *slog.Logger

	mu     sync.RWMutex
	conns  map[string]Conn
	groups map[string]map[string]struct{}
}

func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		log:    log,
		conns:  make(map[string]Conn),
		groups: make(map[string]map[string]struct{}),
	}
}

// Register makes conn addressable by its id.
func (h *Hub) Register(conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[conn.ID()] = conn
}

// Unregister forgets the connection and removes it from every group.
func (h *Hub) Unregister(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, connID)
	for name, members := range h.groups {
		delete(members, connID)
		if len(members) == 0 {
			delete(h.groups, name)
		}
	}
}

// Join adds a connection to a group, creating the group on first use.
func (h *Hub) Join(group, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.groups[group]
	if !ok {
		members = make(map[string]struct{})
		h.groups[group] = members
	}
	members[connID] = struct{}{}
}

// Leave removes a connection from a group.
func (h *Hub) Leave(group, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if members, ok := h.groups[group]; ok {
		delete(members, connID)
		if len(members) == 0 {
			delete(h.groups, group)
		}
	}
}

// Close drops a group; its members stay registered.
func (h *Hub) Close(group string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.groups, group)
}

// Members returns the connection ids in a group.
func (h *Hub) Members(group string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ids := make([]string, 0, len(h.groups[group]))
	for id := range h.groups[group] {
		ids = append(ids, id)
	}
	return ids
}

// Broadcast delivers msg to every member of group.
func (h *Hub) Broadcast(group string, msg Message) {
	h.mu.RLock()
	targets := make([]Conn, 0, len(h.groups[group]))
	for id := range h.groups[group] {
		if conn, ok := h.conns[id]; ok {
			targets = append(targets, conn)
		}
	}
	h.mu.RUnlock()

	for _, conn := range targets {
		h.deliver(conn, msg)
	}
}

// SendTo delivers msg to a single connection; unknown ids are ignored.
func (h *Hub) SendTo(connID string, msg Message) {
	h.mu.RLock()
	conn, ok := h.conns[connID]
	h.mu.RUnlock()
	if ok {
		h.deliver(conn, msg)
	}
}

func (h *Hub) deliver(conn Conn, msg Message) {
	if err := conn.Deliver(msg); err != nil {
		h.log.Warn("deliver failed", "conn", conn.ID(), "type", msg.Type, "error", err)
	}
}
