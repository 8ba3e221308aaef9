package models

import (
	"github.com/erp/bridge/internal/domain/bridge"
	"github.com/erp/bridge/internal/domain/shared"
	"github.com/google/uuid"
)

// CustomerModel is the persistence model for bridge.Customer
type CustomerModel struct {
	BaseModel
	ErpNr              *string    `gorm:"type:varchar(20);uniqueIndex"`
	Email              string     `gorm:"type:varchar(255);not null;uniqueIndex"`
	VatID              string     `gorm:"type:varchar(50)"`
	StandardBillingID  *uuid.UUID `gorm:"type:uuid"`
	StandardShippingID *uuid.UUID `gorm:"type:uuid"`

	Addresses    []CustomerAddressModel     `gorm:"foreignKey:CustomerID"`
	Marketplaces []CustomerMarketplaceModel `gorm:"foreignKey:CustomerID"`
}

// TableName returns the table name for GORM
func (CustomerModel) TableName() string {
	return "customers"
}

// ToDomain converts the model and its loaded associations to a bridge.Customer
func (m *CustomerModel) ToDomain() *bridge.Customer {
	c := &bridge.Customer{
		BaseEntity:         m.BaseModel.ToDomain(),
		Email:              m.Email,
		VatID:              m.VatID,
		StandardBillingID:  uuidPtr(m.StandardBillingID),
		StandardShippingID: uuidPtr(m.StandardShippingID),
	}
	if m.ErpNr != nil {
		c.ErpNr = *m.ErpNr
	}
	for i := range m.Addresses {
		c.Addresses = append(c.Addresses, m.Addresses[i].ToDomain())
	}
	for _, mp := range m.Marketplaces {
		c.Marketplaces = append(c.Marketplaces, bridge.CustomerMarketplace{
			MarketplaceID:      mp.MarketplaceID,
			PlatformCustomerID: mp.PlatformCustomerID,
		})
	}
	return c
}

// CustomerModelFromDomain creates a model with addresses and marketplace links
func CustomerModelFromDomain(c *bridge.Customer) *CustomerModel {
	m := &CustomerModel{
		Email:              c.Email,
		VatID:              c.VatID,
		StandardBillingID:  uuidPtr(c.StandardBillingID),
		StandardShippingID: uuidPtr(c.StandardShippingID),
	}
	if c.ErpNr != "" {
		erpNr := c.ErpNr
		m.ErpNr = &erpNr
	}
	m.FromDomainBaseEntity(c.BaseEntity)
	for _, a := range c.Addresses {
		a.CustomerID = c.ID
		m.Addresses = append(m.Addresses, *CustomerAddressModelFromDomain(a))
	}
	for _, mp := range c.Marketplaces {
		m.Marketplaces = append(m.Marketplaces, CustomerMarketplaceModel{
			CustomerID:         c.ID,
			MarketplaceID:      mp.MarketplaceID,
			PlatformCustomerID: mp.PlatformCustomerID,
		})
	}
	return m
}

// CustomerAddressModel is the persistence model for bridge.CustomerAddress
type CustomerAddressModel struct {
	BaseModel
	CustomerID         uuid.UUID `gorm:"type:uuid;not null;index"`
	CombinedID         string    `gorm:"type:varchar(40);not null;default:'0;0;0';index"`
	ShippingCombinedID string    `gorm:"type:varchar(40);not null;default:'0;0;0'"`
	ErpNr              *int      `gorm:"index:idx_customer_address_erp_parts,priority:1"`
	ErpAnsNr           *int      `gorm:"index:idx_customer_address_erp_parts,priority:2"`
	ErpAspNr           *int      `gorm:"index:idx_customer_address_erp_parts,priority:3"`
	PlatformID         string    `gorm:"type:varchar(32);index"`
	Company            string    `gorm:"type:varchar(255)"`
	Department         string    `gorm:"type:varchar(255)"`
	Salutation         string    `gorm:"type:varchar(50)"`
	Title              string    `gorm:"type:varchar(50)"`
	FirstName          string    `gorm:"type:varchar(100)"`
	LastName           string    `gorm:"type:varchar(100)"`
	Street             string    `gorm:"type:varchar(255)"`
	AdditionalLine     string    `gorm:"type:varchar(255)"`
	Zip                string    `gorm:"type:varchar(20)"`
	City               string    `gorm:"type:varchar(100)"`
	CountryCode        string    `gorm:"type:varchar(3)"`
	Phone              string    `gorm:"type:varchar(50)"`
	Email              string    `gorm:"type:varchar(255)"`
}

// TableName returns the table name for GORM
func (CustomerAddressModel) TableName() string {
	return "customer_addresses"
}

// ToDomain converts the model to a bridge.CustomerAddress
func (m *CustomerAddressModel) ToDomain() *bridge.CustomerAddress {
	return &bridge.CustomerAddress{
		BaseEntity:         m.BaseModel.ToDomain(),
		CustomerID:         m.CustomerID,
		CombinedID:         m.CombinedID,
		ShippingCombinedID: m.ShippingCombinedID,
		ErpNr:              shared.FromPtr(m.ErpNr),
		ErpAnsNr:           shared.FromPtr(m.ErpAnsNr),
		ErpAspNr:           shared.FromPtr(m.ErpAspNr),
		PlatformID:         m.PlatformID,
		Company:            m.Company,
		Department:         m.Department,
		Salutation:         m.Salutation,
		Title:              m.Title,
		FirstName:          m.FirstName,
		LastName:           m.LastName,
		Street:             m.Street,
		AdditionalLine:     m.AdditionalLine,
		Zip:                m.Zip,
		City:               m.City,
		CountryCode:        m.CountryCode,
		Phone:              m.Phone,
		Email:              m.Email,
	}
}

// CustomerAddressModelFromDomain creates a model from a bridge.CustomerAddress
func CustomerAddressModelFromDomain(a *bridge.CustomerAddress) *CustomerAddressModel {
	m := &CustomerAddressModel{
		CustomerID:         a.CustomerID,
		CombinedID:         a.CombinedID,
		ShippingCombinedID: a.ShippingCombinedID,
		ErpNr:              a.ErpNr.Ptr(),
		ErpAnsNr:           a.ErpAnsNr.Ptr(),
		ErpAspNr:           a.ErpAspNr.Ptr(),
		PlatformID:         a.PlatformID,
		Company:            a.Company,
		Department:         a.Department,
		Salutation:         a.Salutation,
		Title:              a.Title,
		FirstName:          a.FirstName,
		LastName:           a.LastName,
		Street:             a.Street,
		AdditionalLine:     a.AdditionalLine,
		Zip:                a.Zip,
		City:               a.City,
		CountryCode:        a.CountryCode,
		Phone:              a.Phone,
		Email:              a.Email,
	}
	m.FromDomainBaseEntity(a.BaseEntity)
	return m
}

// CustomerMarketplaceModel links a customer to a marketplace
type CustomerMarketplaceModel struct {
	CustomerID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	MarketplaceID      uuid.UUID `gorm:"type:uuid;primaryKey"`
	PlatformCustomerID string    `gorm:"type:varchar(32);index"`
}

// TableName returns the table name for GORM
func (CustomerMarketplaceModel) TableName() string {
	return "customer_marketplaces"
}
