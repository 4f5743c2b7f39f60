package store

import (
	"testing"
	"time"

	"github.com/dukerupert/crewdeck/internal/model"
)

func TestTaskCreate(t *testing.T) {
	db := openTestDB(t)
	ts := NewTaskStore(db)
	alice := seedUser(t, db, "Alice", "alice@example.com")
	p := seedProject(t, db, alice.ID, "Launch")

	due := time.Now().Add(48 * time.Hour).UTC()
	task, err := ts.Create(p.ID, "Write docs", "user guide", alice.ID, nil, model.PriorityHigh, &due)
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if task.Status != model.TaskTodo {
		t.Errorf("status = %q, want %q", task.Status, model.TaskTodo)
	}
	if task.Priority != model.PriorityHigh {
		t.Errorf("priority = %q, want %q", task.Priority, model.PriorityHigh)
	}
	if task.Creator == nil || task.Creator.Name != "Alice" {
		t.Errorf("creator = %+v, want Alice", task.Creator)
	}
	if task.Assignee != nil {
		t.Error("expected no assignee")
	}
	if len(task.Subtasks) != 0 || len(task.Tags) != 0 {
		t.Error("new task should have empty subtasks and tags")
	}
}

func TestTaskListByProjectFilters(t *testing.T) {
	db := openTestDB(t)
	ts := NewTaskStore(db)
	alice := seedUser(t, db, "Alice", "alice@example.com")
	bob := seedUser(t, db, "Bob", "bob@example.com")
	p := seedProject(t, db, alice.ID, "Launch")

	low, err := ts.Create(p.ID, "Sweep floors", "", alice.ID, nil, model.PriorityLow, nil)
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	crit, err := ts.Create(p.ID, "Fix outage", "", alice.ID, &bob.ID, model.PriorityCritical, nil)
	if err != nil {
		t.Fatalf("create task: %v", err)
	}

	tasks, err := ts.ListByProject(p.ID, TaskFilter{})
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("len = %d, want 2", len(tasks))
	}
	// critical sorts ahead of low
	if tasks[0].ID != crit.ID {
		t.Errorf("first task = %d, want critical %d", tasks[0].ID, crit.ID)
	}

	tasks, err = ts.ListByProject(p.ID, TaskFilter{Assignee: &bob.ID})
	if err != nil {
		t.Fatalf("list by assignee: %v", err)
	}
	if len(tasks) != 1 || tasks[0].ID != crit.ID {
		t.Errorf("assignee filter returned %d tasks", len(tasks))
	}

	tasks, err = ts.ListByProject(p.ID, TaskFilter{Search: "floor"})
	if err != nil {
		t.Fatalf("list by search: %v", err)
	}
	if len(tasks) != 1 || tasks[0].ID != low.ID {
		t.Errorf("search filter returned %d tasks", len(tasks))
	}
}

func TestTaskUpdate(t *testing.T) {
	db := openTestDB(t)
	ts := NewTaskStore(db)
	alice := seedUser(t, db, "Alice", "alice@example.com")
	bob := seedUser(t, db, "Bob", "bob@example.com")
	p := seedProject(t, db, alice.ID, "Launch")
	task := seedTask(t, db, p.ID, alice.ID, "Write docs")

	completed := time.Now().UTC()
	updated, err := ts.Update(task.ID, "Write docs", "done now", model.TaskDone, model.PriorityLow, &bob.ID, nil, &completed, 100)
	if err != nil {
		t.Fatalf("update task: %v", err)
	}
	if updated.Status != model.TaskDone {
		t.Errorf("status = %q, want %q", updated.Status, model.TaskDone)
	}
	if updated.Assignee == nil || updated.Assignee.Name != "Bob" {
		t.Errorf("assignee = %+v, want Bob", updated.Assignee)
	}
	if updated.Progress != 100 {
		t.Errorf("progress = %d, want 100", updated.Progress)
	}
	if updated.CompletedDate == nil {
		t.Error("expected completed date")
	}
}

func TestTaskSubtasks(t *testing.T) {
	db := openTestDB(t)
	ts := NewTaskStore(db)
	alice := seedUser(t, db, "Alice", "alice@example.com")
	p := seedProject(t, db, alice.ID, "Launch")
	task := seedTask(t, db, p.ID, alice.ID, "Write docs")

	if err := ts.AddSubtask(task.ID, "Outline"); err != nil {
		t.Fatalf("add subtask: %v", err)
	}
	if err := ts.AddSubtask(task.ID, "Draft"); err != nil {
		t.Fatalf("add subtask: %v", err)
	}

	if err := ts.ToggleSubtask(task.ID, 0); err != nil {
		t.Fatalf("toggle subtask: %v", err)
	}

	got, err := ts.GetByID(task.ID)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if len(got.Subtasks) != 2 {
		t.Fatalf("subtasks = %d, want 2", len(got.Subtasks))
	}
	if got.Subtasks[0].Title != "Outline" || !got.Subtasks[0].Completed {
		t.Errorf("first subtask = %+v, want completed Outline", got.Subtasks[0])
	}
	if got.Subtasks[1].Completed {
		t.Error("second subtask should remain open")
	}

	// toggling a missing index is a no-op
	if err := ts.ToggleSubtask(task.ID, 9); err != nil {
		t.Fatalf("toggle missing subtask: %v", err)
	}
}

func TestTaskTags(t *testing.T) {
	db := openTestDB(t)
	ts := NewTaskStore(db)
	alice := seedUser(t, db, "Alice", "alice@example.com")
	p := seedProject(t, db, alice.ID, "Launch")
	task := seedTask(t, db, p.ID, alice.ID, "Write docs")

	if err := ts.AddTag(task.ID, "docs"); err != nil {
		t.Fatalf("add tag: %v", err)
	}
	if err := ts.AddTag(task.ID, "docs"); err != nil {
		t.Fatalf("re-add tag: %v", err)
	}
	if err := ts.AddTag(task.ID, "urgent"); err != nil {
		t.Fatalf("add tag: %v", err)
	}

	got, err := ts.GetByID(task.ID)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if len(got.Tags) != 2 {
		t.Fatalf("tags = %v, want 2 entries", got.Tags)
	}

	if err := ts.RemoveTag(task.ID, "docs"); err != nil {
		t.Fatalf("remove tag: %v", err)
	}
	got, err = ts.GetByID(task.ID)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if len(got.Tags) != 1 || got.Tags[0] != "urgent" {
		t.Errorf("tags = %v, want [urgent]", got.Tags)
	}
}

func TestTaskAdjustCounts(t *testing.T) {
	db := openTestDB(t)
	ts := NewTaskStore(db)
	alice := seedUser(t, db, "Alice", "alice@example.com")
	p := seedProject(t, db, alice.ID, "Launch")
	task := seedTask(t, db, p.ID, alice.ID, "Write docs")

	if err := ts.AdjustCommentCount(task.ID, 1); err != nil {
		t.Fatalf("adjust comment count: %v", err)
	}
	if err := ts.AdjustCommentCount(task.ID, -2); err != nil {
		t.Fatalf("adjust comment count: %v", err)
	}

	got, err := ts.GetByID(task.ID)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if got.CommentCount != 0 {
		t.Errorf("comment count = %d, want 0 (never negative)", got.CommentCount)
	}
}

func TestTaskDelete(t *testing.T) {
	db := openTestDB(t)
	ts := NewTaskStore(db)
	alice := seedUser(t, db, "Alice", "alice@example.com")
	p := seedProject(t, db, alice.ID, "Launch")
	task := seedTask(t, db, p.ID, alice.ID, "Write docs")

	if err := ts.Delete(task.ID); err != nil {
		t.Fatalf("delete task: %v", err)
	}
	got, err := ts.GetByID(task.ID)
	if err != nil {
		t.Fatalf("get after delete: %v", err)
	}
	if got != nil {
		t.Error("expected nil after delete")
	}
}
