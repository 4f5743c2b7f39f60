package store

import (
	"database/sql"
	"fmt"
	"time"
)

// RevokedTokenStore is the token revocation ledger: session tokens
// invalidated by logout before their natural expiry. Entries carry the
// token's own expiry and are pruned by the background sweeper, so the
// ledger never grows past the set of still-live revoked tokens.
type RevokedTokenStore struct {
	db *sql.DB
}

func NewRevokedTokenStore(db *sql.DB) *RevokedTokenStore {
	return &RevokedTokenStore{db: db}
}

// Add enters a token into the ledger. Re-adding the same token replaces
// the row; logout is idempotent and last write wins.
func (s *RevokedTokenStore) Add(token string, expiresAt time.Time) error {
	_, err := s.db.Exec(
		`INSERT INTO revoked_tokens (token, expires_at) VALUES (?, ?)
			ON CONFLICT(token) DO UPDATE SET expires_at = excluded.expires_at`,
		token, expiresAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert revoked token: %w", err)
	}
	return nil
}

// Contains reports whether the token has a live ledger entry. Entries at
// or past their expiry are treated as absent even before the sweeper
// removes them.
func (s *RevokedTokenStore) Contains(token string) (bool, error) {
	var one int
	err := s.db.QueryRow(
		`SELECT 1 FROM revoked_tokens WHERE token = ? AND expires_at > datetime('now')`,
		token,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return true, nil
}

// DeleteExpired removes entries whose expiry has passed and returns the
// number removed.
func (s *RevokedTokenStore) DeleteExpired() (int64, error) {
	result, err := s.db.Exec(`DELETE FROM revoked_tokens WHERE expires_at <= datetime('now')`)
	if err != nil {
		return 0, fmt.Errorf("delete expired revoked tokens: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return count, nil
}
