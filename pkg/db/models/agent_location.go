package models

import (
	"time"

	"github.com/google/uuid"
)

// DefaultLocationRadiusKm is the service radius applied when a location is
// created without one.
const DefaultLocationRadiusKm = 5.0

// AgentLocation is one place an agent is willing to operate from. An agent can
// hold many; only active rows participate in matching.
type AgentLocation struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	AgentID   uuid.UUID `gorm:"column:agent_id;type:uuid;not null;index"`
	Name      *string   `gorm:"column:name"`
	Address   *string   `gorm:"column:address"`
	Latitude  float64   `gorm:"column:latitude;not null;default:0"`
	Longitude float64   `gorm:"column:longitude;not null;default:0"`
	RadiusKm  float64   `gorm:"column:radius_km;not null;default:5"`
	IsActive  bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
