package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/crewdeck/internal/model"
)

type ProjectStore struct {
	db *sql.DB
}

func NewProjectStore(db *sql.DB) *ProjectStore {
	return &ProjectStore{db: db}
}

func scanProject(scanner interface{ Scan(...any) error }) (*model.Project, error) {
	var p model.Project
	var owner model.UserRef
	err := scanner.Scan(
		&p.ID, &p.Name, &p.Description, &p.OwnerID, &p.Status,
		&p.StartDate, &p.EndDate, &p.Budget, &p.Color, &p.TeamID,
		&p.CreatedAt, &p.UpdatedAt,
		&owner.Name, &owner.Email,
	)
	if err != nil {
		return nil, err
	}
	owner.ID = p.OwnerID
	p.Owner = &owner
	return &p, nil
}

const projectCols = `p.id, p.name, p.description, p.owner_id, p.status,
	p.start_date, p.end_date, p.budget, p.color, p.team_id,
	p.created_at, p.updated_at, u.name, u.email`

const projectFrom = ` FROM projects p JOIN users u ON u.id = p.owner_id `

// Create inserts the project and enrolls the owner as a member with the
// owner role.
func (s *ProjectStore) Create(name, description string, ownerID int64, startDate, endDate *time.Time, budget *float64, color string) (*model.Project, error) {
	if color == "" {
		color = "#3B82F6"
	}
	result, err := s.db.Exec(
		`INSERT INTO projects (name, description, owner_id, start_date, end_date, budget, color)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
		name, description, ownerID, startDate, endDate, budget, color,
	)
	if err != nil {
		return nil, fmt.Errorf("insert project: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	if _, err := s.db.Exec(
		`INSERT INTO project_members (project_id, user_id, role) VALUES (?, ?, ?)`,
		id, ownerID, model.MemberOwner,
	); err != nil {
		return nil, fmt.Errorf("insert owner member: %w", err)
	}
	return s.GetByID(id)
}

func (s *ProjectStore) GetByID(id int64) (*model.Project, error) {
	row := s.db.QueryRow(`SELECT `+projectCols+projectFrom+`WHERE p.id = ?`, id)
	p, err := scanProject(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	members, err := s.ListMembers(id)
	if err != nil {
		return nil, err
	}
	p.Members = members
	return p, nil
}

// ListForUser returns projects the user owns or is a member of, most
// recently updated first.
func (s *ProjectStore) ListForUser(userID int64) ([]model.Project, error) {
	rows, err := s.db.Query(
		`SELECT `+projectCols+projectFrom+`
			WHERE p.owner_id = ? OR p.id IN (SELECT project_id FROM project_members WHERE user_id = ?)
			ORDER BY p.updated_at DESC`,
		userID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var projects []model.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, *p)
	}
	return projects, rows.Err()
}

func (s *ProjectStore) Update(id int64, name, description, status string, startDate, endDate *time.Time, budget *float64, color string) (*model.Project, error) {
	_, err := s.db.Exec(
		`UPDATE projects SET name = ?, description = ?, status = ?, start_date = ?,
			end_date = ?, budget = ?, color = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		name, description, status, startDate, endDate, budget, color, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update project: %w", err)
	}
	return s.GetByID(id)
}

func (s *ProjectStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	return nil
}

func scanProjectMember(scanner interface{ Scan(...any) error }) (*model.ProjectMember, error) {
	var m model.ProjectMember
	var user model.UserRef
	err := scanner.Scan(&m.ID, &m.ProjectID, &m.UserID, &m.Role, &m.CreatedAt, &user.Name, &user.Email)
	if err != nil {
		return nil, err
	}
	user.ID = m.UserID
	m.User = &user
	return &m, nil
}

const projectMemberCols = `m.id, m.project_id, m.user_id, m.role, m.created_at, u.name, u.email`

func (s *ProjectStore) AddMember(projectID, userID int64, role string) (*model.ProjectMember, error) {
	result, err := s.db.Exec(
		`INSERT INTO project_members (project_id, user_id, role) VALUES (?, ?, ?)`,
		projectID, userID, role,
	)
	if err != nil {
		return nil, fmt.Errorf("insert project member: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	row := s.db.QueryRow(
		`SELECT `+projectMemberCols+` FROM project_members m JOIN users u ON u.id = m.user_id WHERE m.id = ?`, id)
	return scanProjectMember(row)
}

func (s *ProjectStore) RemoveMember(projectID, userID int64) error {
	_, err := s.db.Exec(
		`DELETE FROM project_members WHERE project_id = ? AND user_id = ?`,
		projectID, userID,
	)
	if err != nil {
		return fmt.Errorf("delete project member: %w", err)
	}
	return nil
}

func (s *ProjectStore) GetMember(projectID, userID int64) (*model.ProjectMember, error) {
	row := s.db.QueryRow(
		`SELECT `+projectMemberCols+` FROM project_members m JOIN users u ON u.id = m.user_id
			WHERE m.project_id = ? AND m.user_id = ?`,
		projectID, userID,
	)
	m, err := scanProjectMember(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get project member: %w", err)
	}
	return m, nil
}

func (s *ProjectStore) ListMembers(projectID int64) ([]model.ProjectMember, error) {
	rows, err := s.db.Query(
		`SELECT `+projectMemberCols+` FROM project_members m JOIN users u ON u.id = m.user_id
			WHERE m.project_id = ? ORDER BY m.created_at`,
		projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("list project members: %w", err)
	}
	defer rows.Close()

	var members []model.ProjectMember
	for rows.Next() {
		m, err := scanProjectMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project member: %w", err)
		}
		members = append(members, *m)
	}
	return members, rows.Err()
}
