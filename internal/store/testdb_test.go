package store

import (
	"database/sql"
	"fmt"
	"testing"

	"github.com/dukerupert/crewdeck/internal/database"
	"github.com/dukerupert/crewdeck/internal/model"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func seedUser(t *testing.T, db *sql.DB, name, email string) *model.User {
	t.Helper()
	u, err := NewUserStore(db).Create(name, email, "not-a-real-hash", "", "")
	if err != nil {
		t.Fatalf("seed user %s: %v", email, err)
	}
	return u
}

func seedProject(t *testing.T, db *sql.DB, ownerID int64, name string) *model.Project {
	t.Helper()
	p, err := NewProjectStore(db).Create(name, "", ownerID, nil, nil, nil, "")
	if err != nil {
		t.Fatalf("seed project %s: %v", name, err)
	}
	return p
}

func seedTask(t *testing.T, db *sql.DB, projectID, creatorID int64, title string) *model.Task {
	t.Helper()
	task, err := NewTaskStore(db).Create(projectID, title, "", creatorID, nil, model.PriorityMedium, nil)
	if err != nil {
		t.Fatalf("seed task %s: %v", title, err)
	}
	return task
}

// backdate rewrites a timestamp column for one row so retention and
// expiry queries can be exercised without sleeping.
func backdate(t *testing.T, db *sql.DB, table, column string, id int64, modifier string) {
	t.Helper()
	query := fmt.Sprintf("UPDATE %s SET %s = datetime('now', ?) WHERE id = ?", table, column)
	if _, err := db.Exec(query, modifier, id); err != nil {
		t.Fatalf("backdate %s.%s: %v", table, column, err)
	}
}
