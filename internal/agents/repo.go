package agents

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/marketrun/backend/pkg/db/models"
	"github.com/marketrun/backend/pkg/enums"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an agents repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindUserWithSettings(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Preload("Settings").
		First(&user, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repository) FindAgent(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Preload("Settings").
		Where("id = ? AND role = ?", id, enums.UserRoleAgent).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repository) FindEligibleAgent(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Preload("Settings").
		Joins("JOIN user_settings ON user_settings.user_id = users.id").
		Where("users.id = ? AND users.role = ?", id, enums.UserRoleAgent).
		Where("users.activated = ? AND users.email_verified = ?", true, true).
		Where("user_settings.is_blocked = ? AND user_settings.is_deactivated = ?", false, false).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repository) ListAgents(ctx context.Context, query AgentQuery) ([]models.User, int64, error) {
	qb := r.db.WithContext(ctx).
		Model(&models.User{}).
		Joins("JOIN user_settings ON user_settings.user_id = users.id").
		Where("users.role = ?", enums.UserRoleAgent)

	if query.Q != "" {
		pattern := "%" + query.Q + "%"
		qb = qb.Where(
			"(LOWER(users.first_name) LIKE LOWER(?) OR LOWER(users.last_name) LIKE LOWER(?) OR LOWER(users.email) LIKE LOWER(?))",
			pattern, pattern, pattern,
		)
	}
	if query.IsActive != nil {
		qb = qb.Where("user_settings.is_deactivated = ?", !*query.IsActive)
	}

	var count int64
	if err := qb.Count(&count).Error; err != nil {
		return nil, 0, err
	}

	if query.Page.Enabled() {
		limit, offset := query.Page.LimitOffset()
		qb = qb.Limit(limit).Offset(offset)
	}

	var agents []models.User
	if err := qb.Preload("Settings").Order("users.created_at DESC").Find(&agents).Error; err != nil {
		return nil, 0, err
	}
	return agents, count, nil
}

func (r *repository) ListAvailableAgents(ctx context.Context) ([]models.User, error) {
	var agents []models.User
	err := r.availableQuery(ctx).
		Preload("Settings").
		Find(&agents).Error
	if err != nil {
		return nil, err
	}
	return agents, nil
}

func (r *repository) ListMatchableAgents(ctx context.Context, exclude []uuid.UUID) ([]models.User, error) {
	qb := r.availableQuery(ctx).
		Where("EXISTS (SELECT 1 FROM agent_locations WHERE agent_locations.agent_id = users.id AND agent_locations.is_active = ?)", true)
	if len(exclude) > 0 {
		qb = qb.Where("users.id NOT IN ?", exclude)
	}

	var agents []models.User
	err := qb.
		Preload("Settings").
		Preload("Locations", "is_active = ?", true).
		Order("users.created_at ASC").
		Find(&agents).Error
	if err != nil {
		return nil, err
	}
	return agents, nil
}

func (r *repository) availableQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Joins("JOIN user_settings ON user_settings.user_id = users.id").
		Where("users.role = ?", enums.UserRoleAgent).
		Where("user_settings.agent_status = ?", enums.AgentStatusAvailable).
		Where("user_settings.agent_accepting_orders = ?", true)
}

func (r *repository) SaveSettings(ctx context.Context, settings *models.UserSettings) error {
	return r.db.WithContext(ctx).Save(settings).Error
}

func (r *repository) CreateLocation(ctx context.Context, location *models.AgentLocation) error {
	return r.db.WithContext(ctx).Create(location).Error
}

func (r *repository) FindLocation(ctx context.Context, agentID, locationID uuid.UUID) (*models.AgentLocation, error) {
	var location models.AgentLocation
	err := r.db.WithContext(ctx).
		Where("id = ? AND agent_id = ?", locationID, agentID).
		First(&location).Error
	if err != nil {
		return nil, err
	}
	return &location, nil
}

func (r *repository) UpdateLocation(ctx context.Context, locationID uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.AgentLocation{}).
		Where("id = ?", locationID).
		Updates(updates).Error
}

func (r *repository) DeleteLocation(ctx context.Context, agentID, locationID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND agent_id = ?", locationID, agentID).
		Delete(&models.AgentLocation{})
	return res.RowsAffected, res.Error
}

func (r *repository) ListLocations(ctx context.Context, agentID uuid.UUID) ([]models.AgentLocation, error) {
	var locations []models.AgentLocation
	err := r.db.WithContext(ctx).
		Where("agent_id = ?", agentID).
		Find(&locations).Error
	if err != nil {
		return nil, err
	}
	return locations, nil
}

func (r *repository) FindOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// AcceptPendingOrder flips a pending order to accepted in one guarded update.
// The status predicate makes concurrent assignment attempts race on the same
// row: the loser sees zero rows affected.
func (r *repository) AcceptPendingOrder(ctx context.Context, orderID, agentID uuid.UUID, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", orderID, enums.OrderStatusPending).
		Updates(map[string]any{
			"agent_id":    agentID,
			"status":      enums.OrderStatusAccepted,
			"accepted_at": at,
		})
	return res.RowsAffected, res.Error
}

func (r *repository) UpdateShoppingListAssignment(ctx context.Context, listID, agentID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.ShoppingList{}).
		Where("id = ?", listID).
		Updates(map[string]any{
			"agent_id": agentID,
			"status":   enums.OrderStatusAccepted,
		}).Error
}

func (r *repository) CountOrdersByAgent(ctx context.Context, agentID uuid.UUID, statuses []string) (int64, error) {
	qb := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("agent_id = ?", agentID)
	if len(statuses) > 0 {
		qb = qb.Where("status IN ?", statuses)
	}
	var count int64
	err := qb.Count(&count).Error
	return count, err
}

func (r *repository) CountDistinctMarketsByAgent(ctx context.Context, agentID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Joins("JOIN shopping_lists ON shopping_lists.id = orders.shopping_list_id").
		Where("orders.agent_id = ?", agentID).
		Distinct("shopping_lists.market_id").
		Count(&count).Error
	return count, err
}
