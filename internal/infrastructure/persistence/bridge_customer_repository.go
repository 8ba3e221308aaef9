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

// GormCustomerRepository implements bridge.CustomerRepository using GORM
type GormCustomerRepository struct {
	db *gorm.DB
}

// NewGormCustomerRepository creates a new GormCustomerRepository
func NewGormCustomerRepository(db *gorm.DB) *GormCustomerRepository {
	return &GormCustomerRepository{db: db}
}

func (r *GormCustomerRepository) query(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Addresses", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("Marketplaces")
}

// FindByID finds a customer by its surrogate id
func (r *GormCustomerRepository) FindByID(ctx context.Context, id uuid.UUID) (*bridge.Customer, error) {
	var model models.CustomerModel
	if err := r.query(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, bridge.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByEmail finds a customer by e-mail address
func (r *GormCustomerRepository) FindByEmail(ctx context.Context, email string) (*bridge.Customer, error) {
	email = bridge.NormalizeEmail(email)
	model, err := findOne[models.CustomerModel](r.query(ctx).Where("email = ?", email), "customer "+email)
	if err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByErpNr finds a customer by ERP customer number
func (r *GormCustomerRepository) FindByErpNr(ctx context.Context, erpNr string) (*bridge.Customer, error) {
	if erpNr == "" {
		return nil, bridge.ErrNotFound
	}
	model, err := findOne[models.CustomerModel](r.query(ctx).Where("erp_nr = ?", erpNr), "customer number "+erpNr)
	if err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByPlatformCustomerID finds the customer linked to a platform customer id
func (r *GormCustomerRepository) FindByPlatformCustomerID(ctx context.Context, platformCustomerID string) (*bridge.Customer, error) {
	sub := r.db.Model(&models.CustomerMarketplaceModel{}).
		Select("customer_id").
		Where("platform_customer_id = ?", platformCustomerID)
	model, err := findOne[models.CustomerModel](r.query(ctx).Where("id IN (?)", sub), "platform customer "+platformCustomerID)
	if err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll returns every customer ordered by e-mail
func (r *GormCustomerRepository) FindAll(ctx context.Context) ([]*bridge.Customer, error) {
	return r.find(r.query(ctx).Order("email ASC"))
}

// FindUpdatedSince returns customers changed after since
func (r *GormCustomerRepository) FindUpdatedSince(ctx context.Context, since time.Time) ([]*bridge.Customer, error) {
	return r.find(r.query(ctx).Where("updated_at > ?", since).Order("email ASC"))
}

func (r *GormCustomerRepository) find(query *gorm.DB) ([]*bridge.Customer, error) {
	var customerModels []models.CustomerModel
	if err := query.Find(&customerModels).Error; err != nil {
		return nil, err
	}
	customers := make([]*bridge.Customer, len(customerModels))
	for i := range customerModels {
		customers[i] = customerModels[i].ToDomain()
	}
	return customers, nil
}

// Save inserts or updates a customer, its addresses and marketplace links.
// Addresses no longer owned by the customer are deleted.
func (r *GormCustomerRepository) Save(ctx context.Context, customer *bridge.Customer) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		model := models.CustomerModelFromDomain(customer)

		if err := tx.Omit(clause.Associations).Save(model).Error; err != nil {
			return err
		}

		addressIDs := make([]uuid.UUID, len(model.Addresses))
		for i := range model.Addresses {
			addressIDs[i] = model.Addresses[i].ID
		}
		stale := tx.Where("customer_id = ?", customer.ID)
		if len(addressIDs) > 0 {
			stale = stale.Where("id NOT IN ?", addressIDs)
		}
		if err := stale.Delete(&models.CustomerAddressModel{}).Error; err != nil {
			return err
		}
		for i := range model.Addresses {
			if err := tx.Save(&model.Addresses[i]).Error; err != nil {
				return err
			}
		}

		return replaceRows(tx, &models.CustomerMarketplaceModel{}, "customer_id", customer.ID, model.Marketplaces)
	})
}

// Purge deletes all customers with their addresses and links, and unlinks orders
func (r *GormCustomerRepository) Purge(ctx context.Context) (int64, error) {
	if err := r.db.WithContext(ctx).Model(&models.OrderModel{}).
		Where("customer_id IS NOT NULL").
		Update("customer_id", nil).Error; err != nil {
		return 0, err
	}
	return purge(ctx, r.db,
		&models.CustomerMarketplaceModel{},
		&models.CustomerAddressModel{},
		&models.CustomerModel{},
	)
}

// Ensure GormCustomerRepository implements bridge.CustomerRepository
var _ bridge.CustomerRepository = (*GormCustomerRepository)(nil)
