// Package relay fans domain events out to the real-time hub. Every
// function is fire-and-forget: empty rooms drop silently and a failed
// delivery never surfaces to the caller.
package relay

import (
	"github.com/dukerupert/crewdeck/internal/model"
	"github.com/dukerupert/crewdeck/internal/websocket"
)

type Relay struct {
	hub *websocket.Hub
}

func New(hub *websocket.Hub) *Relay {
	return &Relay{hub: hub}
}

// TaskUpdated announces a task change to the project room.
func (r *Relay) TaskUpdated(task *model.Task) {
	r.hub.BroadcastRoom(websocket.ProjectRoom(task.ProjectID), websocket.NewMessage("task-updated", task))
}

// TaskStatusChanged announces a status transition to the project room and
// a focused status-changed event to viewers of the task itself.
func (r *Relay) TaskStatusChanged(task *model.Task, oldStatus string) {
	payload := map[string]any{
		"task":       task,
		"old_status": oldStatus,
		"new_status": task.Status,
	}
	r.hub.BroadcastRoom(websocket.ProjectRoom(task.ProjectID), websocket.NewMessage("task-status-changed", payload))
	r.hub.BroadcastRoom(websocket.TaskRoom(task.ID), websocket.NewMessage("status-changed", payload))
}

// TaskAssigned announces an assignment to the project room and pings the
// assignee directly in their user room.
func (r *Relay) TaskAssigned(task *model.Task, assigneeID int64) {
	r.hub.BroadcastRoom(websocket.ProjectRoom(task.ProjectID), websocket.NewMessage("task-assigned", task))
	r.hub.BroadcastRoom(websocket.UserRoom(assigneeID), websocket.NewMessage("task-assigned-to-you", task))
}

// CommentAdded announces a new comment to task viewers and a lighter
// task-comment-added to the project room.
func (r *Relay) CommentAdded(projectID int64, comment *model.Comment) {
	r.hub.BroadcastRoom(websocket.TaskRoom(comment.TaskID), websocket.NewMessage("comment-added", comment))
	r.hub.BroadcastRoom(websocket.ProjectRoom(projectID), websocket.NewMessage("task-comment-added", map[string]any{
		"task_id":    comment.TaskID,
		"comment_id": comment.ID,
	}))
}

func (r *Relay) CommentUpdated(comment *model.Comment) {
	r.hub.BroadcastRoom(websocket.TaskRoom(comment.TaskID), websocket.NewMessage("comment-updated", comment))
}

func (r *Relay) CommentDeleted(taskID, commentID int64) {
	r.hub.BroadcastRoom(websocket.TaskRoom(taskID), websocket.NewMessage("comment-deleted", map[string]any{
		"task_id":    taskID,
		"comment_id": commentID,
	}))
}

func (r *Relay) ReactionAdded(taskID, commentID int64, emoji string, userID int64) {
	r.hub.BroadcastRoom(websocket.TaskRoom(taskID), websocket.NewMessage("reaction-added", map[string]any{
		"task_id":    taskID,
		"comment_id": commentID,
		"emoji":      emoji,
		"user_id":    userID,
	}))
}

func (r *Relay) ReactionRemoved(taskID, commentID int64, emoji string, userID int64) {
	r.hub.BroadcastRoom(websocket.TaskRoom(taskID), websocket.NewMessage("reaction-removed", map[string]any{
		"task_id":    taskID,
		"comment_id": commentID,
		"emoji":      emoji,
		"user_id":    userID,
	}))
}

// Notify pushes a notification to the recipient's user room.
func (r *Relay) Notify(n *model.Notification) {
	r.hub.BroadcastRoom(websocket.UserRoom(n.UserID), websocket.NewMessage("notification", n))
}

// NotifyUsers pushes the same payload to several user rooms.
func (r *Relay) NotifyUsers(userIDs []int64, payload any) {
	for _, id := range userIDs {
		r.hub.BroadcastRoom(websocket.UserRoom(id), websocket.NewMessage("notification", payload))
	}
}

func (r *Relay) MemberJoinedProject(projectID int64, member *model.ProjectMember) {
	r.hub.BroadcastRoom(websocket.ProjectRoom(projectID), websocket.NewMessage("member-joined-project", member))
}

func (r *Relay) ProjectUpdated(project *model.Project) {
	r.hub.BroadcastRoom(websocket.ProjectRoom(project.ID), websocket.NewMessage("project-updated", project))
}
