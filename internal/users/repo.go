package users

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/marketrun/backend/pkg/db/models"
)

// Repository exposes user-related persistence operations.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, user *models.User) error
	CreateSettings(ctx context.Context, settings *models.UserSettings) error
	Save(ctx context.Context, user *models.User) error
	SaveSettings(ctx context.Context, settings *models.UserSettings) error

	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByGoogleID(ctx context.Context, googleID string) (*models.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	List(ctx context.Context, query UserQuery) ([]models.User, int64, error)

	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	Delete(ctx context.Context, id uuid.UUID) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository constructs a users repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Omit("Settings", "Locations").Create(user).Error
}

func (r *repository) CreateSettings(ctx context.Context, settings *models.UserSettings) error {
	return r.db.WithContext(ctx).Create(settings).Error
}

func (r *repository) Save(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Omit("Settings", "Locations").Save(user).Error
}

func (r *repository) SaveSettings(ctx context.Context, settings *models.UserSettings) error {
	return r.db.WithContext(ctx).Save(settings).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Preload("Settings").
		First(&user, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Preload("Settings").
		Where("email = ?", email).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repository) FindByGoogleID(ctx context.Context, googleID string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Preload("Settings").
		Where("google_id = ?", googleID).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repository) EmailExists(ctx context.Context, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("email = ?", email).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) List(ctx context.Context, query UserQuery) ([]models.User, int64, error) {
	qb := r.db.WithContext(ctx).
		Model(&models.User{}).
		Joins("LEFT JOIN user_settings ON user_settings.user_id = users.id")

	if query.Q != "" {
		pattern := "%" + query.Q + "%"
		qb = qb.Where(
			"(LOWER(users.first_name) LIKE LOWER(?) OR LOWER(users.last_name) LIKE LOWER(?) OR LOWER(users.email) LIKE LOWER(?))",
			pattern, pattern, pattern,
		)
	}
	if query.Role != nil {
		qb = qb.Where("users.role = ?", *query.Role)
	}
	if query.IsBlocked != nil {
		qb = qb.Where("user_settings.is_blocked = ?", *query.IsBlocked)
	}
	if query.IsDeactivated != nil {
		qb = qb.Where("user_settings.is_deactivated = ?", *query.IsDeactivated)
	}

	var count int64
	if err := qb.Count(&count).Error; err != nil {
		return nil, 0, err
	}

	if query.Page.Enabled() {
		limit, offset := query.Page.LimitOffset()
		qb = qb.Limit(limit).Offset(offset)
	}

	var all []models.User
	if err := qb.Preload("Settings").Order("users.created_at DESC").Find(&all).Error; err != nil {
		return nil, 0, err
	}
	return all, count, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.User{})
	return res.RowsAffected, res.Error
}
