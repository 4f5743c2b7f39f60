package websocket

import (
	"context"
	"encoding/json"
	"time"

	ws "github.com/coder/websocket"
)

const (
	sendBufferSize = 16
	pingInterval   = 30 * time.Second
)

// Client events sent over the wire by the browser.
const (
	eventJoinProject  = "join-project"
	eventLeaveProject = "leave-project"
	eventJoinTask     = "join-task"
	eventLeaveTask    = "leave-task"
	eventStartTyping  = "start-typing"
	eventStopTyping   = "stop-typing"
)

type clientEvent struct {
	Event     string `json:"event"`
	ProjectID int64  `json:"project_id,omitempty"`
	TaskID    int64  `json:"task_id,omitempty"`
	UserName  string `json:"user_name,omitempty"`
}

// Client is one WebSocket connection bound to an authenticated user.
type Client struct {
	hub    *Hub
	conn   *ws.Conn
	send   chan []byte
	userID int64

	// rooms is the client's own membership set, guarded by the hub mutex.
	rooms map[string]struct{}
}

func NewClient(hub *Hub, conn *ws.Conn, userID int64) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		userID: userID,
		rooms:  make(map[string]struct{}),
	}
}

// Run registers the client, starts the write pump, and runs the read pump.
// It blocks until the connection closes, then unregisters and drops all
// room memberships.
func (c *Client) Run(ctx context.Context) {
	c.hub.Register(c)
	defer c.hub.Unregister(c)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go c.writePump(ctx)
	c.readPump(ctx)
}

// readPump decodes inbound client events and applies them. It returns on
// read error (connection close), which triggers cleanup.
func (c *Client) readPump(ctx context.Context) {
	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			return
		}
		var ev clientEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			// Unparseable frames are ignored, not fatal
			continue
		}
		c.handleEvent(ev)
	}
}

func (c *Client) handleEvent(ev clientEvent) {
	switch ev.Event {
	case eventJoinProject:
		room := ProjectRoom(ev.ProjectID)
		c.hub.Join(room, c)
		c.hub.BroadcastRoom(room, NewMessage("user-joined", map[string]any{
			"project_id": ev.ProjectID,
			"user_id":    c.userID,
		}))
	case eventLeaveProject:
		room := ProjectRoom(ev.ProjectID)
		c.hub.Leave(room, c)
		c.hub.BroadcastRoom(room, NewMessage("user-left", map[string]any{
			"project_id": ev.ProjectID,
			"user_id":    c.userID,
		}))
	case eventJoinTask:
		room := TaskRoom(ev.TaskID)
		c.hub.Join(room, c)
		c.hub.BroadcastRoom(room, NewMessage("user-joined-task", map[string]any{
			"task_id": ev.TaskID,
			"user_id": c.userID,
		}))
	case eventLeaveTask:
		room := TaskRoom(ev.TaskID)
		c.hub.Leave(room, c)
		c.hub.BroadcastRoom(room, NewMessage("user-left-task", map[string]any{
			"task_id": ev.TaskID,
			"user_id": c.userID,
		}))
	case eventStartTyping:
		c.hub.BroadcastRoomExcept(TaskRoom(ev.TaskID), NewMessage("user-typing", map[string]any{
			"task_id":   ev.TaskID,
			"user_id":   c.userID,
			"user_name": ev.UserName,
		}), c.userID)
	case eventStopTyping:
		c.hub.BroadcastRoomExcept(TaskRoom(ev.TaskID), NewMessage("user-stop-typing", map[string]any{
			"task_id": ev.TaskID,
			"user_id": c.userID,
		}), c.userID)
	}
}

// writePump drains the send channel onto the wire and pings on an
// interval to detect stale connections.
func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				// Hub closed the channel, connection is done
				return
			}
			if err := c.conn.Write(ctx, ws.MessageText, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.Ping(ctx); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
