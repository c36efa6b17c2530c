package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/marketrun/backend/pkg/enums"
)

// User represents the canonical identity entity. Agents are users whose role
// discriminator is "agent"; their operational state lives on the associated
// settings row.
type User struct {
	ID            uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Email         string         `gorm:"type:text;not null;uniqueIndex"`
	FirstName     string         `gorm:"column:first_name;not null"`
	LastName      string         `gorm:"column:last_name;not null"`
	Phone         *string        `gorm:"column:phone"`
	DisplayImage  *string        `gorm:"column:display_image"`
	GoogleID      *string        `gorm:"column:google_id;index"`
	Role          enums.UserRole `gorm:"column:role;type:text;not null;default:'customer'"`
	Activated     bool           `gorm:"column:activated;not null;default:false"`
	EmailVerified bool           `gorm:"column:email_verified;not null;default:false"`
	CreatedAt     time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time      `gorm:"column:updated_at;autoUpdateTime"`

	Settings  *UserSettings   `gorm:"foreignKey:UserID"`
	Locations []AgentLocation `gorm:"foreignKey:AgentID"`
}

// IsAgent reports whether the account carries the agent role.
func (u *User) IsAgent() bool {
	return u != nil && u.Role == enums.UserRoleAgent
}

// FullName joins the user's names for search and display.
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}
