package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/marketrun/backend/pkg/enums"
)

// ShoppingList holds the items to buy for one order at one market. Its agent
// assignment mirrors the parent order's and the two are only ever written
// together, inside the same transaction.
type ShoppingList struct {
	ID         uuid.UUID         `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID uuid.UUID         `gorm:"column:customer_id;type:uuid;not null;index"`
	MarketID   uuid.UUID         `gorm:"column:market_id;type:uuid;not null;index"`
	AgentID    *uuid.UUID        `gorm:"column:agent_id;type:uuid;index"`
	Status     enums.OrderStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	CreatedAt  time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
