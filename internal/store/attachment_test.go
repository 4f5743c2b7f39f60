package store

import (
	"database/sql"
	"errors"
	"testing"
)

func TestAttachmentCreateAndList(t *testing.T) {
	db := openTestDB(t)
	as := NewAttachmentStore(db)
	alice := seedUser(t, db, "Alice", "alice@example.com")
	p := seedProject(t, db, alice.ID, "Launch")
	task := seedTask(t, db, p.ID, alice.ID, "Write docs")

	a, err := as.Create(task.ID, p.ID, "spec.pdf", "application/pdf", 2048, "key-1", alice.ID)
	if err != nil {
		t.Fatalf("create attachment: %v", err)
	}
	if a.FileName != "spec.pdf" {
		t.Errorf("file name = %q, want spec.pdf", a.FileName)
	}
	if a.StorageKey != "key-1" {
		t.Errorf("storage key = %q, want key-1", a.StorageKey)
	}
	if a.Uploader == nil || a.Uploader.Name != "Alice" {
		t.Errorf("uploader = %+v, want Alice", a.Uploader)
	}

	list, err := as.ListByTask(task.ID)
	if err != nil {
		t.Fatalf("list attachments: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("len = %d, want 1", len(list))
	}
}

func TestAttachmentSoftDelete(t *testing.T) {
	db := openTestDB(t)
	as := NewAttachmentStore(db)
	alice := seedUser(t, db, "Alice", "alice@example.com")
	p := seedProject(t, db, alice.ID, "Launch")
	task := seedTask(t, db, p.ID, alice.ID, "Write docs")

	a, err := as.Create(task.ID, p.ID, "spec.pdf", "application/pdf", 2048, "key-1", alice.ID)
	if err != nil {
		t.Fatalf("create attachment: %v", err)
	}

	if err := as.SoftDelete(a.ID, alice.ID); err != nil {
		t.Fatalf("soft delete: %v", err)
	}

	// the row survives for audit but drops out of listings
	got, err := as.GetByID(a.ID)
	if err != nil {
		t.Fatalf("get attachment: %v", err)
	}
	if got == nil {
		t.Fatal("expected row to remain after soft delete")
	}
	if got.DeletedAt == nil || got.DeletedBy == nil {
		t.Errorf("attachment = %+v, want deleted_at and deleted_by set", got)
	}

	list, err := as.ListByTask(task.ID)
	if err != nil {
		t.Fatalf("list attachments: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("len = %d, want 0 after soft delete", len(list))
	}

	// second delete is rejected
	if err := as.SoftDelete(a.ID, alice.ID); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("second soft delete err = %v, want sql.ErrNoRows", err)
	}
}

func TestAttachmentGetByIDNotFound(t *testing.T) {
	db := openTestDB(t)
	as := NewAttachmentStore(db)

	a, err := as.GetByID(999)
	if err != nil {
		t.Fatalf("get attachment: %v", err)
	}
	if a != nil {
		t.Error("expected nil for nonexistent attachment")
	}
}
