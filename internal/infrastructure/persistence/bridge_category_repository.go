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

// GormCategoryRepository implements bridge.CategoryRepository using GORM
type GormCategoryRepository struct {
	db *gorm.DB
}

// NewGormCategoryRepository creates a new GormCategoryRepository
func NewGormCategoryRepository(db *gorm.DB) *GormCategoryRepository {
	return &GormCategoryRepository{db: db}
}

func (r *GormCategoryRepository) query(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Translations").
		Preload("Media", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order ASC") })
}

// FindByID finds a category by its surrogate id
func (r *GormCategoryRepository) FindByID(ctx context.Context, id uuid.UUID) (*bridge.Category, error) {
	var model models.CategoryModel
	if err := r.query(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, bridge.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByErpNr finds a category by its ERP product group number
func (r *GormCategoryRepository) FindByErpNr(ctx context.Context, erpNr string) (*bridge.Category, error) {
	model, err := findOne[models.CategoryModel](r.query(ctx).Where("erp_nr = ?", erpNr), "category "+erpNr)
	if err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDs loads categories by surrogate id
func (r *GormCategoryRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*bridge.Category, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return r.find(r.query(ctx).Where("id IN ?", ids).Order("depth ASC, erp_nr ASC"))
}

// FindAll returns categories ordered parents first
func (r *GormCategoryRepository) FindAll(ctx context.Context) ([]*bridge.Category, error) {
	return r.find(r.query(ctx).Order("depth ASC, erp_nr ASC"))
}

// FindUpdatedSince returns categories changed after since, parents first
func (r *GormCategoryRepository) FindUpdatedSince(ctx context.Context, since time.Time) ([]*bridge.Category, error) {
	return r.find(r.query(ctx).Where("updated_at > ?", since).Order("depth ASC, erp_nr ASC"))
}

func (r *GormCategoryRepository) find(query *gorm.DB) ([]*bridge.Category, error) {
	var categoryModels []models.CategoryModel
	if err := query.Find(&categoryModels).Error; err != nil {
		return nil, err
	}
	categories := make([]*bridge.Category, len(categoryModels))
	for i := range categoryModels {
		categories[i] = categoryModels[i].ToDomain()
	}
	return categories, nil
}

// Save inserts or updates a category with its translations and media links
func (r *GormCategoryRepository) Save(ctx context.Context, category *bridge.Category) error {
	model, err := models.CategoryModelFromDomain(category)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(model).Error; err != nil {
			return err
		}
		if err := replaceRows(tx, &models.CategoryTranslationModel{}, "category_id", category.ID, model.Translations); err != nil {
			return err
		}
		return replaceRows(tx, &models.CategoryMediaModel{}, "category_id", category.ID, model.Media)
	})
}

// Purge deletes all categories, their links and product assignments
func (r *GormCategoryRepository) Purge(ctx context.Context) (int64, error) {
	return purge(ctx, r.db,
		&models.CategoryTranslationModel{},
		&models.CategoryMediaModel{},
		&models.ProductCategoryModel{},
		&models.CategoryModel{},
	)
}

// Ensure GormCategoryRepository implements bridge.CategoryRepository
var _ bridge.CategoryRepository = (*GormCategoryRepository)(nil)
