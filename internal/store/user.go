package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/crewdeck/internal/model"
)

type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

func scanUser(scanner interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	err := scanner.Scan(
		&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Phone, &u.Address,
		&u.Role, &u.Status, &u.IsVerified, &u.FailedLoginAttempts,
		&u.LockUntil, &u.VerificationToken, &u.VerificationExpires,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

const userCols = `id, name, email, password_hash, phone, address, role, status,
	is_verified, failed_login_attempts, lock_until, verification_token,
	verification_expires, created_at, updated_at`

func (s *UserStore) Create(name, email, passwordHash, phone, address string) (*model.User, error) {
	result, err := s.db.Exec(
		`INSERT INTO users (name, email, password_hash, phone, address) VALUES (?, ?, ?, ?, ?)`,
		name, email, passwordHash, phone, address,
	)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *UserStore) GetByID(id int64) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *UserStore) GetByEmail(email string) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE email = ?`, email)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

// GetByVerificationToken returns the user holding an unexpired
// verification token, or nil.
func (s *UserStore) GetByVerificationToken(token string) (*model.User, error) {
	row := s.db.QueryRow(
		`SELECT `+userCols+` FROM users WHERE verification_token = ? AND verification_expires > datetime('now')`,
		token,
	)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by verification token: %w", err)
	}
	return u, nil
}

// SetVerificationToken stores a fresh verification token and its expiry.
func (s *UserStore) SetVerificationToken(id int64, token string, expires time.Time) error {
	_, err := s.db.Exec(
		`UPDATE users SET verification_token = ?, verification_expires = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		token, expires.UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("set verification token: %w", err)
	}
	return nil
}

// MarkVerified flips the verified flag and clears the verification token.
func (s *UserStore) MarkVerified(id int64) error {
	_, err := s.db.Exec(
		`UPDATE users SET is_verified = 1, verification_token = NULL, verification_expires = NULL,
			updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		id,
	)
	if err != nil {
		return fmt.Errorf("mark verified: %w", err)
	}
	return nil
}

// UpdateLoginAttempts persists lockout bookkeeping: the failed-attempt
// counter and an optional lock expiry (nil clears the lock).
func (s *UserStore) UpdateLoginAttempts(id int64, attempts int, lockUntil *time.Time) error {
	_, err := s.db.Exec(
		`UPDATE users SET failed_login_attempts = ?, lock_until = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		attempts, lockUntil, id,
	)
	if err != nil {
		return fmt.Errorf("update login attempts: %w", err)
	}
	return nil
}

func (s *UserStore) List() ([]model.User, error) {
	rows, err := s.db.Query(`SELECT ` + userCols + ` FROM users ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func (s *UserStore) Update(id int64, name, email, phone, address, status string) (*model.User, error) {
	_, err := s.db.Exec(
		`UPDATE users SET name = ?, email = ?, phone = ?, address = ?, status = ?,
			updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		name, email, phone, address, status, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return s.GetByID(id)
}

func (s *UserStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}
