package auth

import (
	"log/slog"
	"time"

	"github.com/dukerupert/crewdeck/internal/model"
	"github.com/dukerupert/crewdeck/internal/store"
)

const (
	// DefaultTokenTTL is the session token lifetime used when no
	// override is configured.
	DefaultTokenTTL = 7 * 24 * time.Hour

	maxLoginAttempts = 5
	lockDuration     = time.Hour
)

// Authenticator issues, validates, and revokes session tokens and
// enforces the account lockout policy. It is the single gate shared by
// the HTTP middleware and the WebSocket handshake.
type Authenticator struct {
	users  *store.UserStore
	ledger *store.RevokedTokenStore
	secret string
	ttl    time.Duration
	logger *slog.Logger
}

func NewAuthenticator(users *store.UserStore, ledger *store.RevokedTokenStore, secret string, ttl time.Duration, logger *slog.Logger) *Authenticator {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &Authenticator{
		users:  users,
		ledger: ledger,
		secret: secret,
		ttl:    ttl,
		logger: logger,
	}
}

// IssueToken signs a session token for the given user. No side effects.
func (a *Authenticator) IssueToken(userID int64, role string) (string, time.Time, error) {
	return SignToken(a.secret, a.ttl, userID, role)
}

// Login validates credentials and returns the account plus a fresh token.
//
// The lock check runs before the password comparison so a locked account
// answers uniformly regardless of password correctness, and the
// verification check runs only after a correct password so a wrong-password
// probe cannot learn an account's verification status.
func (a *Authenticator) Login(email, password string) (*model.User, string, error) {
	user, err := a.users.GetByEmail(email)
	if err != nil {
		return nil, "", err
	}
	if user == nil {
		return nil, "", ErrInvalidCredentials
	}

	if user.LockUntil != nil && user.LockUntil.After(time.Now()) {
		return nil, "", ErrAccountLocked
	}

	if err := CheckPassword(user.PasswordHash, password); err != nil {
		attempts := user.FailedLoginAttempts + 1
		var lockUntil *time.Time
		if attempts >= maxLoginAttempts {
			t := time.Now().Add(lockDuration)
			lockUntil = &t
			attempts = 0
		}
		// A bookkeeping failure must not alter the credential decision.
		if err := a.users.UpdateLoginAttempts(user.ID, attempts, lockUntil); err != nil {
			a.logger.Error("record failed login attempt", "user_id", user.ID, "error", err)
		}
		return nil, "", ErrInvalidCredentials
	}

	if err := a.users.UpdateLoginAttempts(user.ID, 0, nil); err != nil {
		a.logger.Error("reset login attempts", "user_id", user.ID, "error", err)
	}

	if !user.IsVerified {
		return nil, "", ErrEmailNotVerified
	}

	token, _, err := a.IssueToken(user.ID, user.Role)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Logout enters the token into the revocation ledger. The ledger entry
// carries the token's own expiry, so it never outlives the token. The
// token is decoded without signature verification; only its expiry matters.
func (a *Authenticator) Logout(token string) error {
	expiresAt, err := DecodeExpiry(token)
	if err != nil {
		return ErrMalformedToken
	}
	return a.ledger.Add(token, expiresAt)
}

// Authenticate validates a session token and returns the identity it
// carries. Revocation is checked before cryptographic validity so a
// revoked token reports as revoked even if it is also near expiry.
func (a *Authenticator) Authenticate(token string) (Identity, error) {
	if token == "" {
		return Identity{}, ErrUnauthorized
	}

	revoked, err := a.ledger.Contains(token)
	if err != nil {
		return Identity{}, err
	}
	if revoked {
		return Identity{}, ErrTokenRevoked
	}

	claims, err := ParseToken(a.secret, token)
	if err != nil {
		return Identity{}, ErrTokenInvalid
	}
	return Identity{UserID: claims.UserID, Role: claims.Role}, nil
}

// RequireRole rejects identities whose role is not in the allow-list.
// An empty allow-list admits any authenticated identity.
func RequireRole(id Identity, allowedRoles ...string) error {
	if len(allowedRoles) == 0 {
		return nil
	}
	for _, role := range allowedRoles {
		if id.Role == role {
			return nil
		}
	}
	return ErrForbidden
}
