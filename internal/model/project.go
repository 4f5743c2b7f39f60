package model

import "time"

// Project statuses.
const (
	ProjectPlanning  = "planning"
	ProjectActive    = "active"
	ProjectOnHold    = "on-hold"
	ProjectCompleted = "completed"
	ProjectArchived  = "archived"
)

// Project member roles.
const (
	MemberOwner  = "owner"
	MemberLead   = "lead"
	MemberMember = "member"
	MemberViewer = "viewer"
)

type Project struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	OwnerID     int64           `json:"owner_id"`
	Owner       *UserRef        `json:"owner,omitempty"`
	Status      string          `json:"status"`
	StartDate   *time.Time      `json:"start_date,omitempty"`
	EndDate     *time.Time      `json:"end_date,omitempty"`
	Budget      *float64        `json:"budget,omitempty"`
	Color       string          `json:"color"`
	TeamID      *int64          `json:"team_id,omitempty"`
	Members     []ProjectMember `json:"members,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type ProjectMember struct {
	ID        int64     `json:"id"`
	ProjectID int64     `json:"project_id"`
	UserID    int64     `json:"user_id"`
	User      *UserRef  `json:"user,omitempty"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}
