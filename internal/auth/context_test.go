package auth

import (
	"context"
	"testing"
)

func TestIdentityRoundTrip(t *testing.T) {
	ctx := WithIdentity(context.Background(), Identity{UserID: 7, Role: "user"})

	id, ok := FromContext(ctx)
	if !ok {
		t.Fatal("expected identity in context")
	}
	if id.UserID != 7 {
		t.Errorf("user id = %d, want 7", id.UserID)
	}
}

func TestFromContextMissing(t *testing.T) {
	if _, ok := FromContext(context.Background()); ok {
		t.Error("expected no identity in empty context")
	}
}

func TestUserIDHelper(t *testing.T) {
	if got := UserID(context.Background()); got != 0 {
		t.Errorf("user id = %d, want 0 for empty context", got)
	}
	ctx := WithIdentity(context.Background(), Identity{UserID: 7, Role: "user"})
	if got := UserID(ctx); got != 7 {
		t.Errorf("user id = %d, want 7", got)
	}
}

func TestIsAdmin(t *testing.T) {
	if IsAdmin(context.Background()) {
		t.Error("empty context is not admin")
	}
	user := WithIdentity(context.Background(), Identity{UserID: 1, Role: "user"})
	if IsAdmin(user) {
		t.Error("user role is not admin")
	}
	admin := WithIdentity(context.Background(), Identity{UserID: 2, Role: "admin"})
	if !IsAdmin(admin) {
		t.Error("expected admin")
	}
}
