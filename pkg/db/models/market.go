package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/marketrun/backend/pkg/types"
)

// Market is a physical marketplace agents shop at. Location is optional:
// matching around a market requires one and fails NotFound otherwise.
type Market struct {
	ID         uuid.UUID             `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name       string                `gorm:"column:name;not null"`
	Address    *string               `gorm:"column:address"`
	Location   *types.GeographyPoint `gorm:"column:location;type:geography(Point,4326)"`
	Categories pq.StringArray        `gorm:"column:categories;type:text[]"`
	CreatedAt  time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
