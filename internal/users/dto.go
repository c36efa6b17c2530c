package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/marketrun/backend/pkg/db/models"
	"github.com/marketrun/backend/pkg/enums"
	"github.com/marketrun/backend/pkg/pagination"
)

// UserDTO is the transport shape for a user account.
type UserDTO struct {
	ID            uuid.UUID      `json:"id"`
	Email         string         `json:"email"`
	FirstName     string         `json:"first_name"`
	LastName      string         `json:"last_name"`
	Phone         *string        `json:"phone,omitempty"`
	DisplayImage  *string        `json:"display_image,omitempty"`
	Role          enums.UserRole `json:"role"`
	Activated     bool           `json:"activated"`
	EmailVerified bool           `json:"email_verified"`
	IsBlocked     bool           `json:"is_blocked"`
	IsDeactivated bool           `json:"is_deactivated"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// FromModel maps a user row (with optional settings) onto the DTO.
func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}

	dto := &UserDTO{
		ID:            u.ID,
		Email:         u.Email,
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		Phone:         u.Phone,
		DisplayImage:  u.DisplayImage,
		Role:          u.Role,
		Activated:     u.Activated,
		EmailVerified: u.EmailVerified,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
	if u.Settings != nil {
		dto.IsBlocked = u.Settings.IsBlocked
		dto.IsDeactivated = u.Settings.IsDeactivated
	}
	return dto
}

// CreateUserInput holds the data required to register a new account.
type CreateUserInput struct {
	Email     string
	FirstName string
	LastName  string
	Phone     *string
	Role      enums.UserRole
}

// ToModel builds the user row, defaulting the role to customer.
func (c CreateUserInput) ToModel() *models.User {
	role := c.Role
	if role == "" {
		role = enums.UserRoleCustomer
	}
	return &models.User{
		Email:     c.Email,
		FirstName: c.FirstName,
		LastName:  c.LastName,
		Phone:     c.Phone,
		Role:      role,
	}
}

// UserPatch is a partial account update; only non-nil fields are written.
type UserPatch struct {
	FirstName    *string
	LastName     *string
	Phone        *string
	DisplayImage *string
	Activated    *bool
}

// Updates converts the patch into a gorm updates map.
func (p UserPatch) Updates() map[string]any {
	updates := map[string]any{}
	if p.FirstName != nil {
		updates["first_name"] = *p.FirstName
	}
	if p.LastName != nil {
		updates["last_name"] = *p.LastName
	}
	if p.Phone != nil {
		updates["phone"] = *p.Phone
	}
	if p.DisplayImage != nil {
		updates["display_image"] = *p.DisplayImage
	}
	if p.Activated != nil {
		updates["activated"] = *p.Activated
	}
	return updates
}

// SettingsPatch is a partial settings update.
type SettingsPatch struct {
	JoinDate      *string
	IsBlocked     *bool
	IsDeactivated *bool
}

// UserQuery filters the user listing.
type UserQuery struct {
	Q             string
	Role          *enums.UserRole
	IsBlocked     *bool
	IsDeactivated *bool
	Page          pagination.Params
}

// UserList is a page of users plus total bookkeeping.
type UserList struct {
	Users      []models.User `json:"users"`
	Count      int64         `json:"count"`
	TotalPages int           `json:"total_pages,omitempty"`
}

// GoogleProfile carries the identity fields synced from a Google sign-in.
type GoogleProfile struct {
	GoogleID  string
	Email     string
	FirstName string
	LastName  string
	Picture   *string
}
