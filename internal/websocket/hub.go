package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dukerupert/crewdeck/internal/metrics"
)

// Message is one event pushed to connected clients.
type Message struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// NewMessage builds a Message for the given event kind.
func NewMessage(event string, data any) Message {
	return Message{Event: event, Data: data}
}

// ProjectRoom returns the room name for a project.
func ProjectRoom(projectID int64) string {
	return fmt.Sprintf("project:%d", projectID)
}

// TaskRoom returns the room name for a task.
func TaskRoom(taskID int64) string {
	return fmt.Sprintf("task:%d", taskID)
}

// UserRoom returns the private room every connection of a user belongs to.
func UserRoom(userID int64) string {
	return fmt.Sprintf("user:%d", userID)
}

// Hub tracks connected clients and their room memberships. Each client is
// bound to one authenticated user; a user may hold several connections.
type Hub struct {
	mu        sync.RWMutex
	clients   map[*Client]struct{}
	rooms     map[string]map[*Client]struct{}
	logger    *slog.Logger
	collector *metrics.Collector
}

func NewHub(logger *slog.Logger, collector *metrics.Collector) *Hub {
	return &Hub{
		clients:   make(map[*Client]struct{}),
		rooms:     make(map[string]map[*Client]struct{}),
		logger:    logger,
		collector: collector,
	}
}

// Register adds a client and joins it to its user room.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.joinLocked(UserRoom(c.userID), c)
	h.mu.Unlock()

	if h.collector != nil {
		h.collector.ConnectionOpened()
	}
}

// Unregister drops a client from every room, removes it, and closes its
// send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	for room := range c.rooms {
		h.leaveLocked(room, c)
	}
	delete(h.clients, c)
	close(c.send)
	h.mu.Unlock()

	if h.collector != nil {
		h.collector.ConnectionClosed()
	}
}

// Join adds a client to a room. Joining a room twice is a no-op.
func (h *Hub) Join(room string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	h.joinLocked(room, c)
}

// Leave removes a client from a room.
func (h *Hub) Leave(room string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(room, c)
}

func (h *Hub) joinLocked(room string, c *Client) {
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*Client]struct{})
		h.rooms[room] = members
	}
	members[c] = struct{}{}
	c.rooms[room] = struct{}{}
}

func (h *Hub) leaveLocked(room string, c *Client) {
	delete(c.rooms, room)
	members, ok := h.rooms[room]
	if !ok {
		return
	}
	delete(members, c)
	if len(members) == 0 {
		delete(h.rooms, room)
	}
}

// BroadcastRoom sends a message to every client in the room. An empty or
// unknown room is a silent no-op.
func (h *Hub) BroadcastRoom(room string, msg Message) {
	h.broadcast(room, msg, nil)
}

// BroadcastRoomExcept sends a message to every client in the room except
// connections belonging to excludeUserID. Typing indicators use this so a
// user never sees their own typing echoed back.
func (h *Hub) BroadcastRoomExcept(room string, msg Message, excludeUserID int64) {
	h.broadcast(room, msg, &excludeUserID)
}

func (h *Hub) broadcast(room string, msg Message, excludeUserID *int64) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal broadcast", "event", msg.Event, "error", err)
		return
	}

	delivered, dropped := 0, 0

	h.mu.RLock()
	for c := range h.rooms[room] {
		if excludeUserID != nil && c.userID == *excludeUserID {
			continue
		}
		select {
		case c.send <- data:
			delivered++
		default:
			// Slow client: drop rather than block the hub
			dropped++
		}
	}
	h.mu.RUnlock()

	if h.collector != nil {
		h.collector.RecordDelivered(delivered)
		h.collector.RecordDropped(dropped)
	}
	if dropped > 0 {
		h.logger.Warn("dropped broadcast for slow clients", "room", room, "event", msg.Event, "dropped", dropped)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// RoomSize returns the number of clients in a room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}
