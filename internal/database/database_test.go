package database

import "testing"

func TestOpenAppliesConnectionPragmas(t *testing.T) {
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	var fk int
	if err := db.QueryRow("PRAGMA foreign_keys").Scan(&fk); err != nil {
		t.Fatalf("query foreign_keys: %v", err)
	}
	if fk != 1 {
		t.Errorf("foreign_keys = %d, want 1", fk)
	}

	var timeout int
	if err := db.QueryRow("PRAGMA busy_timeout").Scan(&timeout); err != nil {
		t.Fatalf("query busy_timeout: %v", err)
	}
	if timeout != 5000 {
		t.Errorf("busy_timeout = %d, want 5000", timeout)
	}
}

func TestDeleteCascadesToChildRows(t *testing.T) {
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	res, err := db.Exec("INSERT INTO users (name, email, password_hash) VALUES ('Ava', 'ava@example.com', 'x')")
	if err != nil {
		t.Fatalf("insert user: %v", err)
	}
	userID, _ := res.LastInsertId()

	res, err = db.Exec("INSERT INTO projects (name, owner_id) VALUES ('Bridge', ?)", userID)
	if err != nil {
		t.Fatalf("insert project: %v", err)
	}
	projectID, _ := res.LastInsertId()

	if _, err := db.Exec("INSERT INTO project_members (project_id, user_id) VALUES (?, ?)", projectID, userID); err != nil {
		t.Fatalf("insert membership: %v", err)
	}

	if _, err := db.Exec("DELETE FROM projects WHERE id = ?", projectID); err != nil {
		t.Fatalf("delete project: %v", err)
	}

	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM project_members WHERE project_id = ?", projectID).Scan(&n); err != nil {
		t.Fatalf("count memberships: %v", err)
	}
	if n != 0 {
		t.Errorf("memberships after project delete = %d, want 0", n)
	}
}
