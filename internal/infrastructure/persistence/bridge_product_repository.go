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

// GormProductRepository implements bridge.ProductRepository using GORM
type GormProductRepository struct {
	db *gorm.DB
}

// NewGormProductRepository creates a new GormProductRepository
func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

func (r *GormProductRepository) query(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Translations").
		Preload("Categories").
		Preload("Media", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order ASC") }).
		Preload("MarketplacePrices")
}

// FindByID finds a product by its surrogate id
func (r *GormProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*bridge.Product, error) {
	var model models.ProductModel
	if err := r.query(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, bridge.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByErpNr finds a product by its ERP article number
func (r *GormProductRepository) FindByErpNr(ctx context.Context, erpNr string) (*bridge.Product, error) {
	model, err := findOne[models.ProductModel](r.query(ctx).Where("erp_nr = ?", erpNr), "product "+erpNr)
	if err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll returns every product ordered by ERP number
func (r *GormProductRepository) FindAll(ctx context.Context) ([]*bridge.Product, error) {
	return r.find(r.query(ctx).Order("erp_nr ASC"))
}

// FindUpdatedSince returns products changed after since
func (r *GormProductRepository) FindUpdatedSince(ctx context.Context, since time.Time) ([]*bridge.Product, error) {
	return r.find(r.query(ctx).Where("updated_at > ?", since).Order("erp_nr ASC"))
}

func (r *GormProductRepository) find(query *gorm.DB) ([]*bridge.Product, error) {
	var productModels []models.ProductModel
	if err := query.Find(&productModels).Error; err != nil {
		return nil, err
	}
	products := make([]*bridge.Product, len(productModels))
	for i := range productModels {
		products[i] = productModels[i].ToDomain()
	}
	return products, nil
}

// Save inserts or updates a product and replaces its association rows
func (r *GormProductRepository) Save(ctx context.Context, product *bridge.Product) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		model := models.ProductModelFromDomain(product)

		if err := tx.Omit(clause.Associations).Save(model).Error; err != nil {
			return err
		}
		if err := replaceRows(tx, &models.ProductTranslationModel{}, "product_id", product.ID, model.Translations); err != nil {
			return err
		}
		if err := replaceRows(tx, &models.ProductCategoryModel{}, "product_id", product.ID, model.Categories); err != nil {
			return err
		}
		if err := replaceRows(tx, &models.ProductMediaModel{}, "product_id", product.ID, model.Media); err != nil {
			return err
		}
		return replaceRows(tx, &models.ProductMarketplacePriceModel{}, "product_id", product.ID, model.MarketplacePrices)
	})
}

// Purge deletes all products and their association rows
func (r *GormProductRepository) Purge(ctx context.Context) (int64, error) {
	return purge(ctx, r.db,
		&models.ProductTranslationModel{},
		&models.ProductCategoryModel{},
		&models.ProductMediaModel{},
		&models.ProductMarketplacePriceModel{},
		&models.ProductModel{},
	)
}

// Ensure GormProductRepository implements bridge.ProductRepository
var _ bridge.ProductRepository = (*GormProductRepository)(nil)
