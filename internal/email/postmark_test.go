package email

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestClient(t *testing.T, received *postmarkEmail, gotToken *string) *Client {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if gotToken != nil {
			*gotToken = r.Header.Get("X-Postmark-Server-Token")
		}
		if err := json.NewDecoder(r.Body).Decode(received); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"MessageID": "test-id"}`))
	}))
	t.Cleanup(server.Close)
	return NewClient("test-token", "noreply@example.com", "https://crewdeck.test", WithAPIURL(server.URL))
}

func TestSendVerificationEmail(t *testing.T) {
	var received postmarkEmail
	var gotToken string
	client := newTestClient(t, &received, &gotToken)

	if err := client.SendVerificationEmail("alice@example.com", "Alice", "abc123"); err != nil {
		t.Fatalf("send verification email: %v", err)
	}

	if gotToken != "test-token" {
		t.Errorf("server token = %q, want test-token", gotToken)
	}
	if received.To != "alice@example.com" {
		t.Errorf("To = %q, want alice@example.com", received.To)
	}
	if received.From != "noreply@example.com" {
		t.Errorf("From = %q, want noreply@example.com", received.From)
	}
	if !strings.Contains(received.TextBody, "https://crewdeck.test/api/auth/verify?token=abc123") {
		t.Errorf("TextBody missing verification link: %q", received.TextBody)
	}
}

func TestSendTeamInvite(t *testing.T) {
	var received postmarkEmail
	client := newTestClient(t, &received, nil)

	if err := client.SendTeamInvite("bob@example.com", "Platform", "JOIN1234"); err != nil {
		t.Fatalf("send team invite: %v", err)
	}

	if !strings.Contains(received.Subject, "Platform") {
		t.Errorf("Subject = %q, want team name", received.Subject)
	}
	if !strings.Contains(received.TextBody, "JOIN1234") {
		t.Errorf("TextBody missing invite code: %q", received.TextBody)
	}
}

func TestSendUnconfigured(t *testing.T) {
	client := NewClient("", "noreply@example.com", "https://crewdeck.test")

	if client.Configured() {
		t.Error("client with empty token should not report configured")
	}
	if err := client.SendVerificationEmail("alice@example.com", "Alice", "abc123"); err == nil {
		t.Error("expected error from unconfigured client")
	}
}

func TestSendAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	client := NewClient("test-token", "noreply@example.com", "https://crewdeck.test", WithAPIURL(server.URL))
	if err := client.SendVerificationEmail("alice@example.com", "Alice", "abc123"); err == nil {
		t.Error("expected error for 4xx response")
	}
}
