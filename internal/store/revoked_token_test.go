package store

import (
	"testing"
	"time"
)

func TestRevokedTokenAddAndContains(t *testing.T) {
	db := openTestDB(t)
	rs := NewRevokedTokenStore(db)

	if err := rs.Add("token-a", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("add token: %v", err)
	}

	revoked, err := rs.Contains("token-a")
	if err != nil {
		t.Fatalf("contains: %v", err)
	}
	if !revoked {
		t.Error("expected token-a to be revoked")
	}

	revoked, err = rs.Contains("token-b")
	if err != nil {
		t.Fatalf("contains: %v", err)
	}
	if revoked {
		t.Error("token-b was never revoked")
	}
}

func TestRevokedTokenAddIdempotent(t *testing.T) {
	db := openTestDB(t)
	rs := NewRevokedTokenStore(db)

	if err := rs.Add("token-a", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("add token: %v", err)
	}
	if err := rs.Add("token-a", time.Now().Add(2*time.Hour)); err != nil {
		t.Fatalf("re-add token: %v", err)
	}

	revoked, err := rs.Contains("token-a")
	if err != nil {
		t.Fatalf("contains: %v", err)
	}
	if !revoked {
		t.Error("expected token-a to still be revoked")
	}
}

func TestRevokedTokenExpiredEntryIgnored(t *testing.T) {
	db := openTestDB(t)
	rs := NewRevokedTokenStore(db)

	if err := rs.Add("token-a", time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("add token: %v", err)
	}

	revoked, err := rs.Contains("token-a")
	if err != nil {
		t.Fatalf("contains: %v", err)
	}
	if revoked {
		t.Error("expired ledger entry should read as absent")
	}
}

func TestRevokedTokenDeleteExpired(t *testing.T) {
	db := openTestDB(t)
	rs := NewRevokedTokenStore(db)

	if err := rs.Add("stale", time.Now().Add(-time.Hour)); err != nil {
		t.Fatalf("add token: %v", err)
	}
	if err := rs.Add("live", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("add token: %v", err)
	}

	count, err := rs.DeleteExpired()
	if err != nil {
		t.Fatalf("delete expired: %v", err)
	}
	if count != 1 {
		t.Errorf("deleted = %d, want 1", count)
	}

	revoked, err := rs.Contains("live")
	if err != nil {
		t.Fatalf("contains: %v", err)
	}
	if !revoked {
		t.Error("live token should survive the sweep")
	}
}
