package handler

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/dukerupert/crewdeck/internal/auth"
	"github.com/dukerupert/crewdeck/internal/email"
	"github.com/dukerupert/crewdeck/internal/middleware"
	"github.com/dukerupert/crewdeck/internal/store"
)

const (
	minPasswordLength       = 8
	verificationTokenTTL    = 24 * time.Hour
	verificationTokenLength = 24 // bytes of entropy, 48 hex chars
)

type AuthHandler struct {
	users         *store.UserStore
	authenticator *auth.Authenticator
	mailer        *email.Client
	logger        *slog.Logger
}

func NewAuthHandler(us *store.UserStore, a *auth.Authenticator, mailer *email.Client, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		users:         us,
		authenticator: a,
		mailer:        mailer,
		logger:        logger.With("component", "auth"),
	}
}

func newVerificationToken() (string, error) {
	buf := make([]byte, verificationTokenLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		writeError(w, http.StatusBadRequest, "a valid email is required")
		return
	}
	if len(req.Password) < minPasswordLength {
		writeError(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	existing, err := h.users.GetByEmail(req.Email)
	if err != nil {
		h.logger.Error("lookup email", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to register")
		return
	}
	if existing != nil {
		writeError(w, http.StatusBadRequest, "email is already registered")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.logger.Error("hash password", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to register")
		return
	}

	user, err := h.users.Create(req.Name, req.Email, hash, req.Phone, req.Address)
	if err != nil {
		h.logger.Error("create user", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to register")
		return
	}

	verificationToken, err := newVerificationToken()
	if err != nil {
		h.logger.Error("generate verification token", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to register")
		return
	}
	if err := h.users.SetVerificationToken(user.ID, verificationToken, time.Now().Add(verificationTokenTTL)); err != nil {
		h.logger.Error("store verification token", "user_id", user.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to register")
		return
	}

	if h.mailer.Configured() {
		go func() {
			if err := h.mailer.SendVerificationEmail(user.Email, user.Name, verificationToken); err != nil {
				h.logger.Error("send verification email", "user_id", user.ID, "error", err)
			}
		}()
	}

	token, _, err := h.authenticator.IssueToken(user.ID, user.Role)
	if err != nil {
		h.logger.Error("issue token", "user_id", user.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to register")
		return
	}

	writeSuccess(w, http.StatusCreated, "registered, check your email to verify your account", map[string]any{
		"user":               user,
		"token":              token,
		"verification_token": verificationToken,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	user, token, err := h.authenticator.Login(req.Email, req.Password)
	switch {
	case err == nil:
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	case errors.Is(err, auth.ErrAccountLocked):
		writeError(w, http.StatusLocked, "account locked after repeated failures, try again later")
		return
	case errors.Is(err, auth.ErrEmailNotVerified):
		writeError(w, http.StatusForbidden, "verify your email before logging in")
		return
	default:
		h.logger.Error("login", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to log in")
		return
	}

	writeSuccess(w, http.StatusOK, "logged in", map[string]any{
		"user":  user,
		"token": token,
	})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := middleware.BearerToken(r)
	if token == "" {
		writeError(w, http.StatusBadRequest, "missing token")
		return
	}

	if err := h.authenticator.Logout(token); err != nil {
		if errors.Is(err, auth.ErrMalformedToken) {
			writeError(w, http.StatusBadRequest, "malformed token")
			return
		}
		h.logger.Error("logout", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to log out")
		return
	}

	writeSuccess(w, http.StatusOK, "logged out", nil)
}

func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		writeError(w, http.StatusBadRequest, "missing verification token")
		return
	}

	user, err := h.users.GetByVerificationToken(token)
	if err != nil {
		h.logger.Error("lookup verification token", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to verify")
		return
	}
	if user == nil {
		writeError(w, http.StatusBadRequest, "invalid or expired verification token")
		return
	}

	if err := h.users.MarkVerified(user.ID); err != nil {
		h.logger.Error("mark verified", "user_id", user.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to verify")
		return
	}

	writeSuccess(w, http.StatusOK, "email verified, you can log in now", nil)
}

type resendRequest struct {
	Email string `json:"email"`
}

func (h *AuthHandler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	var req resendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	user, err := h.users.GetByEmail(req.Email)
	if err != nil {
		h.logger.Error("lookup email", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to resend")
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "no account with that email")
		return
	}
	if user.IsVerified {
		writeError(w, http.StatusBadRequest, "email is already verified")
		return
	}

	verificationToken, err := newVerificationToken()
	if err != nil {
		h.logger.Error("generate verification token", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to resend")
		return
	}
	if err := h.users.SetVerificationToken(user.ID, verificationToken, time.Now().Add(verificationTokenTTL)); err != nil {
		h.logger.Error("store verification token", "user_id", user.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to resend")
		return
	}

	if h.mailer.Configured() {
		go func() {
			if err := h.mailer.SendVerificationEmail(user.Email, user.Name, verificationToken); err != nil {
				h.logger.Error("send verification email", "user_id", user.ID, "error", err)
			}
		}()
	}

	writeSuccess(w, http.StatusOK, "verification email sent", nil)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.GetByID(auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("get current user", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load profile")
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	writeSuccess(w, http.StatusOK, "ok", user)
}
