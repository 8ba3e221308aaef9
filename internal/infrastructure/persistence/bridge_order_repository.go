package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/erp/bridge/internal/domain/bridge"
	"github.com/erp/bridge/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormOrderRepository implements bridge.OrderRepository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

func (r *GormOrderRepository) query(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") })
}

// FindByID finds an order by its surrogate id
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*bridge.Order, error) {
	var model models.OrderModel
	if err := r.query(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, bridge.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByPlatformID finds an order by its platform id
func (r *GormOrderRepository) FindByPlatformID(ctx context.Context, platformID string) (*bridge.Order, error) {
	model, err := findOne[models.OrderModel](r.query(ctx).Where("platform_id = ?", platformID), "order "+platformID)
	if err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll returns every order, newest first
func (r *GormOrderRepository) FindAll(ctx context.Context) ([]*bridge.Order, error) {
	return r.find(r.query(ctx).Order("ordered_at DESC"))
}

// FindUpdatedSince returns orders changed after since
func (r *GormOrderRepository) FindUpdatedSince(ctx context.Context, since time.Time) ([]*bridge.Order, error) {
	return r.find(r.query(ctx).Where("updated_at > ?", since).Order("ordered_at DESC"))
}

func (r *GormOrderRepository) find(query *gorm.DB) ([]*bridge.Order, error) {
	var orderModels []models.OrderModel
	if err := query.Find(&orderModels).Error; err != nil {
		return nil, err
	}
	orders := make([]*bridge.Order, len(orderModels))
	for i := range orderModels {
		orders[i] = orderModels[i].ToDomain()
	}
	return orders, nil
}

// Save inserts or updates an order and its lines
func (r *GormOrderRepository) Save(ctx context.Context, order *bridge.Order) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		model := models.OrderModelFromDomain(order)

		if err := tx.Omit(clause.Associations).Save(model).Error; err != nil {
			return err
		}

		lineIDs := make([]uuid.UUID, len(model.Lines))
		for i := range model.Lines {
			lineIDs[i] = model.Lines[i].ID
		}
		stale := tx.Where("order_id = ?", order.ID)
		if len(lineIDs) > 0 {
			stale = stale.Where("id NOT IN ?", lineIDs)
		}
		if err := stale.Delete(&models.OrderLineModel{}).Error; err != nil {
			return err
		}
		for i := range model.Lines {
			if err := tx.Save(&model.Lines[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Purge deletes all orders and their lines
func (r *GormOrderRepository) Purge(ctx context.Context) (int64, error) {
	return purge(ctx, r.db, &models.OrderLineModel{}, &models.OrderModel{})
}

// Ensure GormOrderRepository implements bridge.OrderRepository
var _ bridge.OrderRepository = (*GormOrderRepository)(nil)
