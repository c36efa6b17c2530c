package markets

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/marketrun/backend/pkg/db/models"
)

// Repository defines persistence for market records.
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Market, error)
	Create(ctx context.Context, market *models.Market) error
	List(ctx context.Context) ([]models.Market, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a markets repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Market, error) {
	var market models.Market
	if err := r.db.WithContext(ctx).First(&market, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &market, nil
}

func (r *repository) Create(ctx context.Context, market *models.Market) error {
	return r.db.WithContext(ctx).Create(market).Error
}

func (r *repository) List(ctx context.Context) ([]models.Market, error) {
	var all []models.Market
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&all).Error; err != nil {
		return nil, err
	}
	return all, nil
}
