package email

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
)

const postmarkAPI = "https://api.postmarkapp.com/email"

type Client struct {
	serverToken string
	fromEmail   string
	baseURL     string
	apiURL      string
	httpClient  *http.Client
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithAPIURL overrides the Postmark endpoint. Tests point it at a local
// server.
func WithAPIURL(url string) Option {
	return func(cl *Client) {
		cl.apiURL = url
	}
}

func NewClient(serverToken, fromEmail, baseURL string, opts ...Option) *Client {
	c := &Client{
		serverToken: serverToken,
		fromEmail:   fromEmail,
		baseURL:     baseURL,
		apiURL:      postmarkAPI,
		httpClient:  http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured returns true if the server token is set.
func (c *Client) Configured() bool {
	return c.serverToken != ""
}

type postmarkEmail struct {
	From     string `json:"From"`
	To       string `json:"To"`
	Subject  string `json:"Subject"`
	HtmlBody string `json:"HtmlBody"`
	TextBody string `json:"TextBody"`
}

// SendVerificationEmail sends the address-verification link created at
// registration or by a resend request.
func (c *Client) SendVerificationEmail(toEmail, name, token string) error {
	link := fmt.Sprintf("%s/api/auth/verify?token=%s", c.baseURL, token)
	textBody := fmt.Sprintf(
		"Hi %s,\n\nVerify your email address to activate your account:\n\n%s\n\nThis link expires in 24 hours.",
		name, link,
	)
	htmlBody := fmt.Sprintf(
		`<p>Hi %s,</p><p>Verify your email address to activate your account:</p><p><a href="%s">Verify email</a></p><p>This link expires in 24 hours.</p>`,
		name, link,
	)
	return c.send(toEmail, "Verify your email address", htmlBody, textBody)
}

// SendTeamInvite sends an invite code for joining a team.
func (c *Client) SendTeamInvite(toEmail, teamName, code string) error {
	textBody := fmt.Sprintf(
		"You've been invited to join %s.\n\nYour invite code: %s\n\nThe code expires in 7 days.",
		teamName, code,
	)
	htmlBody := fmt.Sprintf(
		`<p>You've been invited to join <strong>%s</strong>.</p><p>Your invite code: <code>%s</code></p><p>The code expires in 7 days.</p>`,
		teamName, code,
	)
	return c.send(toEmail, fmt.Sprintf("Invitation to join %s", teamName), htmlBody, textBody)
}

func (c *Client) send(toEmail, subject, htmlBody, textBody string) error {
	if !c.Configured() {
		return fmt.Errorf("email client not configured: missing server token")
	}

	payload := postmarkEmail{
		From:     c.fromEmail,
		To:       toEmail,
		Subject:  subject,
		HtmlBody: htmlBody,
		TextBody: textBody,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}

	req, err := http.NewRequest("POST", c.apiURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Postmark-Server-Token", c.serverToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("postmark API error: status %d", resp.StatusCode)
	}

	return nil
}
