package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/crewdeck/internal/model"
)

type TeamStore struct {
	db *sql.DB
}

func NewTeamStore(db *sql.DB) *TeamStore {
	return &TeamStore{db: db}
}

func scanTeam(scanner interface{ Scan(...any) error }) (*model.Team, error) {
	var t model.Team
	var owner model.UserRef
	err := scanner.Scan(
		&t.ID, &t.Name, &t.Description, &t.OwnerID, &t.IsPublic,
		&t.InviteCode, &t.InviteCodeExpires, &t.CreatedAt, &t.UpdatedAt,
		&owner.Name, &owner.Email,
	)
	if err != nil {
		return nil, err
	}
	owner.ID = t.OwnerID
	t.Owner = &owner
	return &t, nil
}

const teamCols = `t.id, t.name, t.description, t.owner_id, t.is_public,
	t.invite_code, t.invite_code_expires, t.created_at, t.updated_at, u.name, u.email`

const teamFrom = ` FROM teams t JOIN users u ON u.id = t.owner_id `

func (s *TeamStore) Create(name, description string, ownerID int64, isPublic bool) (*model.Team, error) {
	result, err := s.db.Exec(
		`INSERT INTO teams (name, description, owner_id, is_public) VALUES (?, ?, ?, ?)`,
		name, description, ownerID, isPublic,
	)
	if err != nil {
		return nil, fmt.Errorf("insert team: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	if _, err := s.db.Exec(
		`INSERT INTO team_members (team_id, user_id, role) VALUES (?, ?, ?)`,
		id, ownerID, model.TeamRoleOwner,
	); err != nil {
		return nil, fmt.Errorf("insert owner member: %w", err)
	}
	return s.GetByID(id)
}

func (s *TeamStore) GetByID(id int64) (*model.Team, error) {
	row := s.db.QueryRow(`SELECT `+teamCols+teamFrom+`WHERE t.id = ?`, id)
	t, err := scanTeam(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get team: %w", err)
	}
	members, err := s.ListMembers(id)
	if err != nil {
		return nil, err
	}
	t.Members = members
	return t, nil
}

func (s *TeamStore) ListForUser(userID int64) ([]model.Team, error) {
	rows, err := s.db.Query(
		`SELECT `+teamCols+teamFrom+`
			WHERE t.owner_id = ? OR t.id IN (SELECT team_id FROM team_members WHERE user_id = ?)
			ORDER BY t.updated_at DESC`,
		userID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	return collectTeams(rows)
}

func (s *TeamStore) ListPublic() ([]model.Team, error) {
	rows, err := s.db.Query(`SELECT ` + teamCols + teamFrom + `WHERE t.is_public = 1 ORDER BY t.name`)
	if err != nil {
		return nil, fmt.Errorf("list public teams: %w", err)
	}
	return collectTeams(rows)
}

func collectTeams(rows *sql.Rows) ([]model.Team, error) {
	defer rows.Close()
	var teams []model.Team
	for rows.Next() {
		t, err := scanTeam(rows)
		if err != nil {
			return nil, fmt.Errorf("scan team: %w", err)
		}
		teams = append(teams, *t)
	}
	return teams, rows.Err()
}

func (s *TeamStore) Update(id int64, name, description string, isPublic bool) (*model.Team, error) {
	_, err := s.db.Exec(
		`UPDATE teams SET name = ?, description = ?, is_public = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		name, description, isPublic, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update team: %w", err)
	}
	return s.GetByID(id)
}

func (s *TeamStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM teams WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete team: %w", err)
	}
	return nil
}

func scanTeamMember(scanner interface{ Scan(...any) error }) (*model.TeamMember, error) {
	var m model.TeamMember
	var user model.UserRef
	err := scanner.Scan(&m.ID, &m.TeamID, &m.UserID, &m.Role, &m.JoinedAt, &user.Name, &user.Email)
	if err != nil {
		return nil, err
	}
	user.ID = m.UserID
	m.User = &user
	return &m, nil
}

const teamMemberCols = `m.id, m.team_id, m.user_id, m.role, m.joined_at, u.name, u.email`

func (s *TeamStore) AddMember(teamID, userID int64, role string) (*model.TeamMember, error) {
	result, err := s.db.Exec(
		`INSERT INTO team_members (team_id, user_id, role) VALUES (?, ?, ?)`,
		teamID, userID, role,
	)
	if err != nil {
		return nil, fmt.Errorf("insert team member: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	row := s.db.QueryRow(
		`SELECT `+teamMemberCols+` FROM team_members m JOIN users u ON u.id = m.user_id WHERE m.id = ?`, id)
	return scanTeamMember(row)
}

func (s *TeamStore) RemoveMember(teamID, userID int64) error {
	_, err := s.db.Exec(`DELETE FROM team_members WHERE team_id = ? AND user_id = ?`, teamID, userID)
	if err != nil {
		return fmt.Errorf("delete team member: %w", err)
	}
	return nil
}

func (s *TeamStore) GetMember(teamID, userID int64) (*model.TeamMember, error) {
	row := s.db.QueryRow(
		`SELECT `+teamMemberCols+` FROM team_members m JOIN users u ON u.id = m.user_id
			WHERE m.team_id = ? AND m.user_id = ?`,
		teamID, userID,
	)
	m, err := scanTeamMember(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get team member: %w", err)
	}
	return m, nil
}

func (s *TeamStore) ListMembers(teamID int64) ([]model.TeamMember, error) {
	rows, err := s.db.Query(
		`SELECT `+teamMemberCols+` FROM team_members m JOIN users u ON u.id = m.user_id
			WHERE m.team_id = ? ORDER BY m.joined_at`,
		teamID,
	)
	if err != nil {
		return nil, fmt.Errorf("list team members: %w", err)
	}
	defer rows.Close()

	var members []model.TeamMember
	for rows.Next() {
		m, err := scanTeamMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan team member: %w", err)
		}
		members = append(members, *m)
	}
	return members, rows.Err()
}

func (s *TeamStore) SetInviteCode(id int64, code string, expires time.Time) error {
	_, err := s.db.Exec(
		`UPDATE teams SET invite_code = ?, invite_code_expires = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		code, expires.UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("set invite code: %w", err)
	}
	return nil
}

// GetByInviteCode returns the team holding an unexpired invite code, or nil.
func (s *TeamStore) GetByInviteCode(code string) (*model.Team, error) {
	row := s.db.QueryRow(
		`SELECT `+teamCols+teamFrom+`WHERE t.invite_code = ? AND t.invite_code_expires > datetime('now')`,
		code,
	)
	t, err := scanTeam(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get team by invite code: %w", err)
	}
	return t, nil
}
