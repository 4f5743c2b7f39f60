package relay

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	ws "github.com/coder/websocket"

	"github.com/dukerupert/crewdeck/internal/auth"
	"github.com/dukerupert/crewdeck/internal/database"
	"github.com/dukerupert/crewdeck/internal/model"
	"github.com/dukerupert/crewdeck/internal/store"
	"github.com/dukerupert/crewdeck/internal/websocket"
)

type relayFixture struct {
	hub   *websocket.Hub
	relay *Relay
	conn  *ws.Conn
	ctx   context.Context
}

// setupRelay connects one real WebSocket client for user 1 and joins it
// to project 3 and task 4.
func setupRelay(t *testing.T) *relayFixture {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	users := store.NewUserStore(db)
	authenticator := auth.NewAuthenticator(users, store.NewRevokedTokenStore(db), "test-secret", time.Hour, logger)

	u, err := users.Create("Alice", "alice@example.com", "hash", "", "")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	token, _, err := authenticator.IssueToken(u.ID, "user")
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	hub := websocket.NewHub(logger, nil)
	srv := httptest.NewServer(websocket.HandleWebSocket(hub, authenticator, logger))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?token=" + token
	conn, _, err := ws.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close(ws.StatusNormalClosure, "") })

	for _, join := range []string{
		`{"event":"join-project","project_id":3}`,
		`{"event":"join-task","task_id":4}`,
	} {
		if err := conn.Write(ctx, ws.MessageText, []byte(join)); err != nil {
			t.Fatalf("write join: %v", err)
		}
	}
	// consume the two join echoes
	readEvent(t, ctx, conn)
	readEvent(t, ctx, conn)

	return &relayFixture{hub: hub, relay: New(hub), conn: conn, ctx: ctx}
}

func readEvent(t *testing.T, ctx context.Context, conn *ws.Conn) websocket.Message {
	t.Helper()
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg websocket.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return msg
}

func TestRelayTaskUpdated(t *testing.T) {
	f := setupRelay(t)

	f.relay.TaskUpdated(&model.Task{ID: 4, ProjectID: 3, Title: "Write docs"})

	msg := readEvent(t, f.ctx, f.conn)
	if msg.Event != "task-updated" {
		t.Errorf("event = %q, want task-updated", msg.Event)
	}
}

func TestRelayTaskStatusChanged(t *testing.T) {
	f := setupRelay(t)

	f.relay.TaskStatusChanged(&model.Task{ID: 4, ProjectID: 3, Status: model.TaskDone}, model.TaskReview)

	// the client sits in both the project and the task room
	first := readEvent(t, f.ctx, f.conn)
	second := readEvent(t, f.ctx, f.conn)
	events := map[string]bool{first.Event: true, second.Event: true}
	if !events["task-status-changed"] || !events["status-changed"] {
		t.Errorf("events = %v, want task-status-changed and status-changed", events)
	}
}

func TestRelayTaskAssigned(t *testing.T) {
	f := setupRelay(t)

	f.relay.TaskAssigned(&model.Task{ID: 4, ProjectID: 3}, 1)

	first := readEvent(t, f.ctx, f.conn)
	second := readEvent(t, f.ctx, f.conn)
	events := map[string]bool{first.Event: true, second.Event: true}
	if !events["task-assigned"] || !events["task-assigned-to-you"] {
		t.Errorf("events = %v, want task-assigned and task-assigned-to-you", events)
	}
}

func TestRelayCommentAdded(t *testing.T) {
	f := setupRelay(t)

	f.relay.CommentAdded(3, &model.Comment{ID: 9, TaskID: 4, Content: "hi"})

	first := readEvent(t, f.ctx, f.conn)
	second := readEvent(t, f.ctx, f.conn)
	events := map[string]bool{first.Event: true, second.Event: true}
	if !events["comment-added"] || !events["task-comment-added"] {
		t.Errorf("events = %v, want comment-added and task-comment-added", events)
	}
}

func TestRelayNotify(t *testing.T) {
	f := setupRelay(t)

	f.relay.Notify(&model.Notification{ID: 1, UserID: 1, Type: model.NotifyAssigned, Title: "Task assigned"})

	msg := readEvent(t, f.ctx, f.conn)
	if msg.Event != "notification" {
		t.Errorf("event = %q, want notification", msg.Event)
	}
}

func TestRelayToEmptyRoomsIsSilent(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := New(websocket.NewHub(logger, nil))

	// no clients connected; nothing should panic or block
	r.TaskUpdated(&model.Task{ID: 1, ProjectID: 1})
	r.Notify(&model.Notification{UserID: 99})
	r.ProjectUpdated(&model.Project{ID: 1})
}
