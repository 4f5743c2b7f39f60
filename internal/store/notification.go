package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/dukerupert/crewdeck/internal/model"
)

// Read notifications are kept for 30 days, then removed by the sweeper.
const readNotificationRetention = "-30 days"

type NotificationStore struct {
	db *sql.DB
}

func NewNotificationStore(db *sql.DB) *NotificationStore {
	return &NotificationStore{db: db}
}

func scanNotification(scanner interface{ Scan(...any) error }) (*model.Notification, error) {
	var n model.Notification
	var metadata string
	err := scanner.Scan(
		&n.ID, &n.UserID, &n.Type, &n.EntityType, &n.EntityID,
		&n.Title, &n.Message, &n.Read, &n.ReadAt, &metadata, &n.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if metadata != "" && metadata != "{}" {
		if err := json.Unmarshal([]byte(metadata), &n.Metadata); err != nil {
			return nil, fmt.Errorf("decode notification metadata: %w", err)
		}
	}
	return &n, nil
}

const notificationCols = `id, user_id, type, entity_type, entity_id, title, message,
	read, read_at, metadata, created_at`

func (s *NotificationStore) Create(userID int64, kind, entityType string, entityID *int64, title, message string, metadata map[string]any) (*model.Notification, error) {
	encoded := "{}"
	if len(metadata) > 0 {
		data, err := json.Marshal(metadata)
		if err != nil {
			return nil, fmt.Errorf("encode notification metadata: %w", err)
		}
		encoded = string(data)
	}
	result, err := s.db.Exec(
		`INSERT INTO notifications (user_id, type, entity_type, entity_id, title, message, metadata)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
		userID, kind, entityType, entityID, title, message, encoded,
	)
	if err != nil {
		return nil, fmt.Errorf("insert notification: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *NotificationStore) GetByID(id int64) (*model.Notification, error) {
	row := s.db.QueryRow(`SELECT `+notificationCols+` FROM notifications WHERE id = ?`, id)
	n, err := scanNotification(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get notification: %w", err)
	}
	return n, nil
}

// ListByUser returns one page of notifications, newest first, plus the
// total count for pagination.
func (s *NotificationStore) ListByUser(userID int64, limit, offset int) ([]model.Notification, int64, error) {
	rows, err := s.db.Query(
		`SELECT `+notificationCols+` FROM notifications WHERE user_id = ?
			ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	notifications := []model.Notification{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan notification: %w", err)
		}
		notifications = append(notifications, *n)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int64
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM notifications WHERE user_id = ?`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count notifications: %w", err)
	}
	return notifications, total, nil
}

func (s *NotificationStore) UnreadCount(userID int64) (int64, error) {
	var count int64
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM notifications WHERE user_id = ? AND read = 0`, userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return count, nil
}

func (s *NotificationStore) MarkRead(id int64) (*model.Notification, error) {
	_, err := s.db.Exec(
		`UPDATE notifications SET read = 1, read_at = CURRENT_TIMESTAMP WHERE id = ?`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("mark notification read: %w", err)
	}
	return s.GetByID(id)
}

func (s *NotificationStore) MarkAllRead(userID int64) error {
	_, err := s.db.Exec(
		`UPDATE notifications SET read = 1, read_at = CURRENT_TIMESTAMP WHERE user_id = ? AND read = 0`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("mark all notifications read: %w", err)
	}
	return nil
}

func (s *NotificationStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM notifications WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	return nil
}

// DeleteExpiredRead removes read notifications older than the retention
// window and returns the number removed.
func (s *NotificationStore) DeleteExpiredRead() (int64, error) {
	result, err := s.db.Exec(
		`DELETE FROM notifications WHERE read = 1 AND read_at <= datetime('now', ?)`,
		readNotificationRetention,
	)
	if err != nil {
		return 0, fmt.Errorf("delete expired notifications: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return count, nil
}
