package model

import "time"

// Team member roles.
const (
	TeamRoleOwner  = "owner"
	TeamRoleAdmin  = "admin"
	TeamRoleMember = "member"
)

type Team struct {
	ID                int64        `json:"id"`
	Name              string       `json:"name"`
	Description       string       `json:"description,omitempty"`
	OwnerID           int64        `json:"owner_id"`
	Owner             *UserRef     `json:"owner,omitempty"`
	IsPublic          bool         `json:"is_public"`
	InviteCode        *string      `json:"invite_code,omitempty"`
	InviteCodeExpires *time.Time   `json:"invite_code_expires,omitempty"`
	Members           []TeamMember `json:"members,omitempty"`
	CreatedAt         time.Time    `json:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at"`
}

type TeamMember struct {
	ID       int64     `json:"id"`
	TeamID   int64     `json:"team_id"`
	UserID   int64     `json:"user_id"`
	User     *UserRef  `json:"user,omitempty"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}
