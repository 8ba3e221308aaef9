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

// ---------------------------------------------------------------------------
// Tax
// ---------------------------------------------------------------------------

// GormTaxRepository implements bridge.TaxRepository using GORM
type GormTaxRepository struct {
	db *gorm.DB
}

// NewGormTaxRepository creates a new GormTaxRepository
func NewGormTaxRepository(db *gorm.DB) *GormTaxRepository {
	return &GormTaxRepository{db: db}
}

// FindByID finds a tax class by its surrogate id
func (r *GormTaxRepository) FindByID(ctx context.Context, id uuid.UUID) (*bridge.Tax, error) {
	var model models.TaxModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, bridge.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByErpNr finds a tax class by its ERP tax key
func (r *GormTaxRepository) FindByErpNr(ctx context.Context, erpNr string) (*bridge.Tax, error) {
	model, err := findOne[models.TaxModel](r.db.WithContext(ctx).Where("erp_nr = ?", erpNr), "tax "+erpNr)
	if err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll returns every tax class
func (r *GormTaxRepository) FindAll(ctx context.Context) ([]*bridge.Tax, error) {
	var taxModels []models.TaxModel
	if err := r.db.WithContext(ctx).Order("erp_nr ASC").Find(&taxModels).Error; err != nil {
		return nil, err
	}
	taxes := make([]*bridge.Tax, len(taxModels))
	for i := range taxModels {
		taxes[i] = taxModels[i].ToDomain()
	}
	return taxes, nil
}

// Save inserts or updates a tax class
func (r *GormTaxRepository) Save(ctx context.Context, tax *bridge.Tax) error {
	return r.db.WithContext(ctx).Save(models.TaxModelFromDomain(tax)).Error
}

// Purge deletes all tax classes and unlinks products
func (r *GormTaxRepository) Purge(ctx context.Context) (int64, error) {
	var affected int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.ProductModel{}).Where("tax_id IS NOT NULL").Update("tax_id", nil).Error; err != nil {
			return err
		}
		res := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.TaxModel{})
		affected = res.RowsAffected
		return res.Error
	})
	return affected, err
}

// ---------------------------------------------------------------------------
// Media
// ---------------------------------------------------------------------------

// GormMediaRepository implements bridge.MediaRepository using GORM
type GormMediaRepository struct {
	db *gorm.DB
}

// NewGormMediaRepository creates a new GormMediaRepository
func NewGormMediaRepository(db *gorm.DB) *GormMediaRepository {
	return &GormMediaRepository{db: db}
}

// FindByID finds a media file by its surrogate id
func (r *GormMediaRepository) FindByID(ctx context.Context, id uuid.UUID) (*bridge.Media, error) {
	var model models.MediaModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, bridge.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByFileName finds a media file by its file name
func (r *GormMediaRepository) FindByFileName(ctx context.Context, fileName string) (*bridge.Media, error) {
	model, err := findOne[models.MediaModel](r.db.WithContext(ctx).Where("file_name = ?", fileName), "media "+fileName)
	if err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDs loads media files by surrogate id
func (r *GormMediaRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*bridge.Media, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return r.find(r.db.WithContext(ctx).Where("id IN ?", ids))
}

// FindAll returns every media file ordered by name
func (r *GormMediaRepository) FindAll(ctx context.Context) ([]*bridge.Media, error) {
	return r.find(r.db.WithContext(ctx).Order("file_name ASC"))
}

// FindUpdatedSince returns media changed after since
func (r *GormMediaRepository) FindUpdatedSince(ctx context.Context, since time.Time) ([]*bridge.Media, error) {
	return r.find(r.db.WithContext(ctx).Where("updated_at > ?", since).Order("file_name ASC"))
}

func (r *GormMediaRepository) find(query *gorm.DB) ([]*bridge.Media, error) {
	var mediaModels []models.MediaModel
	if err := query.Find(&mediaModels).Error; err != nil {
		return nil, err
	}
	media := make([]*bridge.Media, len(mediaModels))
	for i := range mediaModels {
		media[i] = mediaModels[i].ToDomain()
	}
	return media, nil
}

// Save inserts or updates a media file
func (r *GormMediaRepository) Save(ctx context.Context, media *bridge.Media) error {
	return r.db.WithContext(ctx).Save(models.MediaModelFromDomain(media)).Error
}

// Purge deletes all media and their product and category links
func (r *GormMediaRepository) Purge(ctx context.Context) (int64, error) {
	return purge(ctx, r.db,
		&models.ProductMediaModel{},
		&models.CategoryMediaModel{},
		&models.MediaModel{},
	)
}

// ---------------------------------------------------------------------------
// Marketplace
// ---------------------------------------------------------------------------

// GormMarketplaceRepository implements bridge.MarketplaceRepository using GORM
type GormMarketplaceRepository struct {
	db *gorm.DB
}

// NewGormMarketplaceRepository creates a new GormMarketplaceRepository
func NewGormMarketplaceRepository(db *gorm.DB) *GormMarketplaceRepository {
	return &GormMarketplaceRepository{db: db}
}

// FindByID finds a marketplace by its surrogate id
func (r *GormMarketplaceRepository) FindByID(ctx context.Context, id uuid.UUID) (*bridge.Marketplace, error) {
	var model models.MarketplaceModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, bridge.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByPlatformID finds a marketplace by its sales channel id
func (r *GormMarketplaceRepository) FindByPlatformID(ctx context.Context, platformID string) (*bridge.Marketplace, error) {
	model, err := findOne[models.MarketplaceModel](r.db.WithContext(ctx).Where("platform_id = ?", platformID), "marketplace "+platformID)
	if err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll returns every marketplace
func (r *GormMarketplaceRepository) FindAll(ctx context.Context) ([]*bridge.Marketplace, error) {
	var marketplaceModels []models.MarketplaceModel
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&marketplaceModels).Error; err != nil {
		return nil, err
	}
	marketplaces := make([]*bridge.Marketplace, len(marketplaceModels))
	for i := range marketplaceModels {
		marketplaces[i] = marketplaceModels[i].ToDomain()
	}
	return marketplaces, nil
}

// Save inserts or updates a marketplace
func (r *GormMarketplaceRepository) Save(ctx context.Context, marketplace *bridge.Marketplace) error {
	return r.db.WithContext(ctx).Save(models.MarketplaceModelFromDomain(marketplace)).Error
}

// ---------------------------------------------------------------------------
// SyncMarker
// ---------------------------------------------------------------------------

// GormSyncMarkerRepository implements bridge.SyncMarkerRepository using GORM
type GormSyncMarkerRepository struct {
	db *gorm.DB
}

// NewGormSyncMarkerRepository creates a new GormSyncMarkerRepository
func NewGormSyncMarkerRepository(db *gorm.DB) *GormSyncMarkerRepository {
	return &GormSyncMarkerRepository{db: db}
}

// Get returns the marker for kind and direction
func (r *GormSyncMarkerRepository) Get(ctx context.Context, kind, direction string) (*bridge.SyncMarker, error) {
	var model models.SyncMarkerModel
	if err := r.db.WithContext(ctx).First(&model, "kind = ? AND direction = ?", kind, direction).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, bridge.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save stores the marker, replacing a previous one
func (r *GormSyncMarkerRepository) Save(ctx context.Context, marker *bridge.SyncMarker) error {
	model := &models.SyncMarkerModel{
		Kind:      marker.Kind,
		Direction: marker.Direction,
		SyncedAt:  marker.SyncedAt,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "kind"}, {Name: "direction"}},
		DoUpdates: clause.AssignmentColumns([]string{"synced_at"}),
	}).Create(model).Error
}

// Compile-time interface checks
var (
	_ bridge.TaxRepository         = (*GormTaxRepository)(nil)
	_ bridge.MediaRepository       = (*GormMediaRepository)(nil)
	_ bridge.MarketplaceRepository = (*GormMarketplaceRepository)(nil)
	_ bridge.SyncMarkerRepository  = (*GormSyncMarkerRepository)(nil)
)
