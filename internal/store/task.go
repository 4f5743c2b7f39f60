package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/crewdeck/internal/model"
)

type TaskStore struct {
	db *sql.DB
}

func NewTaskStore(db *sql.DB) *TaskStore {
	return &TaskStore{db: db}
}

func scanTask(scanner interface{ Scan(...any) error }) (*model.Task, error) {
	var t model.Task
	var creator model.UserRef
	var assigneeName, assigneeEmail *string
	err := scanner.Scan(
		&t.ID, &t.ProjectID, &t.Title, &t.Description, &t.CreatorID, &t.AssigneeID,
		&t.Status, &t.Priority, &t.DueDate, &t.CompletedDate, &t.Progress,
		&t.AttachmentCount, &t.CommentCount, &t.CreatedAt, &t.UpdatedAt,
		&creator.Name, &creator.Email, &assigneeName, &assigneeEmail,
	)
	if err != nil {
		return nil, err
	}
	creator.ID = t.CreatorID
	t.Creator = &creator
	if t.AssigneeID != nil && assigneeName != nil {
		t.Assignee = &model.UserRef{ID: *t.AssigneeID, Name: *assigneeName, Email: *assigneeEmail}
	}
	return &t, nil
}

const taskCols = `t.id, t.project_id, t.title, t.description, t.creator_id, t.assignee_id,
	t.status, t.priority, t.due_date, t.completed_date, t.progress,
	t.attachment_count, t.comment_count, t.created_at, t.updated_at,
	c.name, c.email, a.name, a.email`

const taskFrom = ` FROM tasks t
	JOIN users c ON c.id = t.creator_id
	LEFT JOIN users a ON a.id = t.assignee_id `

func (s *TaskStore) Create(projectID int64, title, description string, creatorID int64, assigneeID *int64, priority string, dueDate *time.Time) (*model.Task, error) {
	if priority == "" {
		priority = model.PriorityMedium
	}
	result, err := s.db.Exec(
		`INSERT INTO tasks (project_id, title, description, creator_id, assignee_id, priority, due_date)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
		projectID, title, description, creatorID, assigneeID, priority, dueDate,
	)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *TaskStore) GetByID(id int64) (*model.Task, error) {
	row := s.db.QueryRow(`SELECT `+taskCols+taskFrom+`WHERE t.id = ?`, id)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	if err := s.populate(t); err != nil {
		return nil, err
	}
	return t, nil
}

// TaskFilter narrows ListByProject results. Zero values mean "no filter".
type TaskFilter struct {
	Status   string
	Priority string
	Assignee *int64
	Search   string
}

func (s *TaskStore) ListByProject(projectID int64, f TaskFilter) ([]model.Task, error) {
	query := `SELECT ` + taskCols + taskFrom + `WHERE t.project_id = ?`
	args := []any{projectID}
	if f.Status != "" {
		query += ` AND t.status = ?`
		args = append(args, f.Status)
	}
	if f.Priority != "" {
		query += ` AND t.priority = ?`
		args = append(args, f.Priority)
	}
	if f.Assignee != nil {
		query += ` AND t.assignee_id = ?`
		args = append(args, *f.Assignee)
	}
	if f.Search != "" {
		query += ` AND t.title LIKE ?`
		args = append(args, "%"+f.Search+"%")
	}
	query += ` ORDER BY CASE t.priority
		WHEN 'critical' THEN 0 WHEN 'high' THEN 1 WHEN 'medium' THEN 2 ELSE 3 END,
		t.due_date IS NULL, t.due_date`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range tasks {
		if err := s.populate(&tasks[i]); err != nil {
			return nil, err
		}
	}
	return tasks, nil
}

func (s *TaskStore) Update(id int64, title, description, status, priority string, assigneeID *int64, dueDate, completedDate *time.Time, progress int) (*model.Task, error) {
	_, err := s.db.Exec(
		`UPDATE tasks SET title = ?, description = ?, status = ?, priority = ?, assignee_id = ?,
			due_date = ?, completed_date = ?, progress = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		title, description, status, priority, assigneeID, dueDate, completedDate, progress, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	return s.GetByID(id)
}

func (s *TaskStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

func (s *TaskStore) AddSubtask(taskID int64, title string) error {
	_, err := s.db.Exec(
		`INSERT INTO subtasks (task_id, title, position)
			SELECT ?, ?, COALESCE(MAX(position), -1) + 1 FROM subtasks WHERE task_id = ?`,
		taskID, title, taskID,
	)
	if err != nil {
		return fmt.Errorf("insert subtask: %w", err)
	}
	return nil
}

// ToggleSubtask flips the completed flag of the subtask at the given
// position index. A missing index is a no-op, matching the lenient
// behavior of the update endpoint.
func (s *TaskStore) ToggleSubtask(taskID int64, index int) error {
	_, err := s.db.Exec(
		`UPDATE subtasks SET completed = NOT completed WHERE id = (
			SELECT id FROM subtasks WHERE task_id = ? ORDER BY position LIMIT 1 OFFSET ?)`,
		taskID, index,
	)
	if err != nil {
		return fmt.Errorf("toggle subtask: %w", err)
	}
	return nil
}

// AddTag is idempotent: re-adding an existing tag is a no-op.
func (s *TaskStore) AddTag(taskID int64, tag string) error {
	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO task_tags (task_id, tag) VALUES (?, ?)`,
		taskID, tag,
	)
	if err != nil {
		return fmt.Errorf("insert tag: %w", err)
	}
	return nil
}

func (s *TaskStore) RemoveTag(taskID int64, tag string) error {
	_, err := s.db.Exec(`DELETE FROM task_tags WHERE task_id = ? AND tag = ?`, taskID, tag)
	if err != nil {
		return fmt.Errorf("delete tag: %w", err)
	}
	return nil
}

// AdjustCommentCount bumps the denormalized comment counter, clamped at zero.
func (s *TaskStore) AdjustCommentCount(taskID int64, delta int) error {
	_, err := s.db.Exec(
		`UPDATE tasks SET comment_count = MAX(0, comment_count + ?), updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		delta, taskID,
	)
	if err != nil {
		return fmt.Errorf("adjust comment count: %w", err)
	}
	return nil
}

// AdjustAttachmentCount bumps the denormalized attachment counter, clamped at zero.
func (s *TaskStore) AdjustAttachmentCount(taskID int64, delta int) error {
	_, err := s.db.Exec(
		`UPDATE tasks SET attachment_count = MAX(0, attachment_count + ?), updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		delta, taskID,
	)
	if err != nil {
		return fmt.Errorf("adjust attachment count: %w", err)
	}
	return nil
}

func (s *TaskStore) populate(t *model.Task) error {
	rows, err := s.db.Query(
		`SELECT id, task_id, title, completed, position FROM subtasks WHERE task_id = ? ORDER BY position`,
		t.ID,
	)
	if err != nil {
		return fmt.Errorf("list subtasks: %w", err)
	}
	defer rows.Close()

	t.Subtasks = []model.Subtask{}
	for rows.Next() {
		var st model.Subtask
		if err := rows.Scan(&st.ID, &st.TaskID, &st.Title, &st.Completed, &st.Position); err != nil {
			return fmt.Errorf("scan subtask: %w", err)
		}
		t.Subtasks = append(t.Subtasks, st)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	tagRows, err := s.db.Query(`SELECT tag FROM task_tags WHERE task_id = ? ORDER BY tag`, t.ID)
	if err != nil {
		return fmt.Errorf("list tags: %w", err)
	}
	defer tagRows.Close()

	t.Tags = []string{}
	for tagRows.Next() {
		var tag string
		if err := tagRows.Scan(&tag); err != nil {
			return fmt.Errorf("scan tag: %w", err)
		}
		t.Tags = append(t.Tags, tag)
	}
	return tagRows.Err()
}
