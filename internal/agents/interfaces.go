package agents

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/marketrun/backend/pkg/db/models"
	"github.com/marketrun/backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// MarketResolver supplies the registered coordinate of a market.
type MarketResolver interface {
	Coordinate(ctx context.Context, marketID uuid.UUID) (types.GeographyPoint, error)
}

// AssignmentNotifier receives post-commit notice of a completed assignment.
type AssignmentNotifier interface {
	OrderAssigned(ctx context.Context, event OrderAssignedEvent) error
}

// Repository defines persistence operations for agents, their locations, and
// the order/shopping-list rows touched during assignment.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	FindUserWithSettings(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindAgent(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindEligibleAgent(ctx context.Context, id uuid.UUID) (*models.User, error)
	ListAgents(ctx context.Context, query AgentQuery) ([]models.User, int64, error)
	ListAvailableAgents(ctx context.Context) ([]models.User, error)
	ListMatchableAgents(ctx context.Context, exclude []uuid.UUID) ([]models.User, error)
	SaveSettings(ctx context.Context, settings *models.UserSettings) error

	CreateLocation(ctx context.Context, location *models.AgentLocation) error
	FindLocation(ctx context.Context, agentID, locationID uuid.UUID) (*models.AgentLocation, error)
	UpdateLocation(ctx context.Context, locationID uuid.UUID, updates map[string]any) error
	DeleteLocation(ctx context.Context, agentID, locationID uuid.UUID) (int64, error)
	ListLocations(ctx context.Context, agentID uuid.UUID) ([]models.AgentLocation, error)

	FindOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	AcceptPendingOrder(ctx context.Context, orderID, agentID uuid.UUID, at time.Time) (int64, error)
	UpdateShoppingListAssignment(ctx context.Context, listID, agentID uuid.UUID) error

	CountOrdersByAgent(ctx context.Context, agentID uuid.UUID, statuses []string) (int64, error)
	CountDistinctMarketsByAgent(ctx context.Context, agentID uuid.UUID) (int64, error)
}
