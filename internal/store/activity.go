package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/dukerupert/crewdeck/internal/model"
)

type ActivityStore struct {
	db *sql.DB
}

func NewActivityStore(db *sql.DB) *ActivityStore {
	return &ActivityStore{db: db}
}

func scanActivity(scanner interface{ Scan(...any) error }) (*model.Activity, error) {
	var a model.Activity
	var user model.UserRef
	var changes, metadata string
	err := scanner.Scan(
		&a.ID, &a.ProjectID, &a.TaskID, &a.UserID, &a.Action, &a.Description,
		&changes, &metadata, &a.CreatedAt, &user.Name, &user.Email,
	)
	if err != nil {
		return nil, err
	}
	user.ID = a.UserID
	a.User = &user
	if changes != "" && changes != "{}" {
		if err := json.Unmarshal([]byte(changes), &a.Changes); err != nil {
			return nil, fmt.Errorf("decode activity changes: %w", err)
		}
	}
	if metadata != "" && metadata != "{}" {
		if err := json.Unmarshal([]byte(metadata), &a.Metadata); err != nil {
			return nil, fmt.Errorf("decode activity metadata: %w", err)
		}
	}
	return &a, nil
}

const activityCols = `a.id, a.project_id, a.task_id, a.user_id, a.action, a.description,
	a.changes, a.metadata, a.created_at, u.name, u.email`

const activityFrom = ` FROM activities a JOIN users u ON u.id = a.user_id `

// Log appends one activity entry. Callers treat failures as non-fatal:
// the feed must never break the mutation it describes.
func (s *ActivityStore) Log(projectID int64, taskID *int64, userID int64, action, description string, changes, metadata map[string]any) error {
	encodedChanges, err := encodeJSONMap(changes)
	if err != nil {
		return fmt.Errorf("encode activity changes: %w", err)
	}
	encodedMetadata, err := encodeJSONMap(metadata)
	if err != nil {
		return fmt.Errorf("encode activity metadata: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO activities (project_id, task_id, user_id, action, description, changes, metadata)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
		projectID, taskID, userID, action, description, encodedChanges, encodedMetadata,
	)
	if err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

func encodeJSONMap(m map[string]any) (string, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (s *ActivityStore) ListByProject(projectID int64, limit, offset int) ([]model.Activity, error) {
	rows, err := s.db.Query(
		`SELECT `+activityCols+activityFrom+`WHERE a.project_id = ?
			ORDER BY a.created_at DESC LIMIT ? OFFSET ?`,
		projectID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list project activity: %w", err)
	}
	return collectActivities(rows)
}

func (s *ActivityStore) ListByTask(taskID int64, limit int) ([]model.Activity, error) {
	rows, err := s.db.Query(
		`SELECT `+activityCols+activityFrom+`WHERE a.task_id = ?
			ORDER BY a.created_at DESC LIMIT ?`,
		taskID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list task activity: %w", err)
	}
	return collectActivities(rows)
}

func (s *ActivityStore) ListByUser(userID int64, limit, offset int) ([]model.Activity, error) {
	rows, err := s.db.Query(
		`SELECT `+activityCols+activityFrom+`WHERE a.user_id = ?
			ORDER BY a.created_at DESC LIMIT ? OFFSET ?`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list user activity: %w", err)
	}
	return collectActivities(rows)
}

func (s *ActivityStore) ListByAction(action string, limit, offset int) ([]model.Activity, error) {
	rows, err := s.db.Query(
		`SELECT `+activityCols+activityFrom+`WHERE a.action = ?
			ORDER BY a.created_at DESC LIMIT ? OFFSET ?`,
		action, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list activity by action: %w", err)
	}
	return collectActivities(rows)
}

func collectActivities(rows *sql.Rows) ([]model.Activity, error) {
	defer rows.Close()
	activities := []model.Activity{}
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		activities = append(activities, *a)
	}
	return activities, rows.Err()
}

// ProjectStats returns activity counts per action kind for a project.
func (s *ActivityStore) ProjectStats(projectID int64) ([]model.ActivityStat, error) {
	rows, err := s.db.Query(
		`SELECT action, COUNT(*) FROM activities WHERE project_id = ?
			GROUP BY action ORDER BY COUNT(*) DESC`,
		projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("project activity stats: %w", err)
	}
	defer rows.Close()

	stats := []model.ActivityStat{}
	for rows.Next() {
		var st model.ActivityStat
		if err := rows.Scan(&st.Action, &st.Count); err != nil {
			return nil, fmt.Errorf("scan activity stat: %w", err)
		}
		stats = append(stats, st)
	}
	return stats, rows.Err()
}
