package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/marketrun/backend/pkg/enums"
)

// Order is a customer's purchase request, fulfilled by shopping its linked
// list at a market. Assignment binds it to an agent.
type Order struct {
	ID             uuid.UUID         `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ShoppingListID uuid.UUID         `gorm:"column:shopping_list_id;type:uuid;not null;uniqueIndex"`
	CustomerID     uuid.UUID         `gorm:"column:customer_id;type:uuid;not null;index"`
	AgentID        *uuid.UUID        `gorm:"column:agent_id;type:uuid;index"`
	Status         enums.OrderStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	AcceptedAt     *time.Time        `gorm:"column:accepted_at"`
	CreatedAt      time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time         `gorm:"column:updated_at;autoUpdateTime"`

	ShoppingList *ShoppingList `gorm:"foreignKey:ShoppingListID;references:ID"`
}
