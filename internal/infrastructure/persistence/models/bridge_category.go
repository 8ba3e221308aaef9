package models

import (
	"github.com/erp/bridge/internal/domain/bridge"
	"github.com/google/uuid"
)

// CategoryModel is the persistence model for bridge.Category
type CategoryModel struct {
	BaseModel
	ErpNr       string `gorm:"type:varchar(50);not null;uniqueIndex"`
	ErpParentNr string `gorm:"type:varchar(50);index"`
	TreePath    string `gorm:"type:text;not null;default:'[]'"`
	Depth       int    `gorm:"not null;default:0;index"`
	PlatformID  string `gorm:"type:varchar(32);not null;uniqueIndex"`

	Translations []CategoryTranslationModel `gorm:"foreignKey:CategoryID"`
	Media        []CategoryMediaModel       `gorm:"foreignKey:CategoryID"`
}

// TableName returns the table name for GORM
func (CategoryModel) TableName() string {
	return "categories"
}

// ToDomain converts the model to a bridge.Category. An unreadable tree path
// decodes as empty.
func (m *CategoryModel) ToDomain() *bridge.Category {
	path, err := bridge.DecodeTreePath(m.TreePath)
	if err != nil {
		path = nil
	}
	c := &bridge.Category{
		BaseEntity:  m.BaseModel.ToDomain(),
		ErpNr:       m.ErpNr,
		ErpParentNr: m.ErpParentNr,
		TreePath:    path,
		PlatformID:  m.PlatformID,
	}
	for _, t := range m.Translations {
		c.Translations = append(c.Translations, bridge.Translation{
			Language:    t.Language,
			Name:        t.Name,
			Description: t.Description,
		})
	}
	for _, media := range m.Media {
		c.Media = append(c.Media, bridge.MediaLink{MediaID: media.MediaID, SortOrder: media.SortOrder})
	}
	return c
}

// CategoryModelFromDomain creates a model from a bridge.Category
func CategoryModelFromDomain(c *bridge.Category) (*CategoryModel, error) {
	path, err := bridge.EncodeTreePath(c.TreePath)
	if err != nil {
		return nil, err
	}
	m := &CategoryModel{
		ErpNr:       c.ErpNr,
		ErpParentNr: c.ErpParentNr,
		TreePath:    path,
		Depth:       c.Depth(),
		PlatformID:  c.PlatformID,
	}
	m.FromDomainBaseEntity(c.BaseEntity)
	for _, t := range c.Translations {
		m.Translations = append(m.Translations, CategoryTranslationModel{
			CategoryID:  c.ID,
			Language:    t.Language,
			Name:        t.Name,
			Description: t.Description,
		})
	}
	for _, link := range c.Media {
		m.Media = append(m.Media, CategoryMediaModel{CategoryID: c.ID, MediaID: link.MediaID, SortOrder: link.SortOrder})
	}
	return m, nil
}

// CategoryTranslationModel stores one language of a category
type CategoryTranslationModel struct {
	CategoryID  uuid.UUID `gorm:"type:uuid;primaryKey"`
	Language    string    `gorm:"type:varchar(10);primaryKey"`
	Name        string    `gorm:"type:varchar(255)"`
	Description string    `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (CategoryTranslationModel) TableName() string {
	return "category_translations"
}

// CategoryMediaModel links a category to a media file
type CategoryMediaModel struct {
	CategoryID uuid.UUID `gorm:"type:uuid;primaryKey"`
	MediaID    uuid.UUID `gorm:"type:uuid;primaryKey;index"`
	SortOrder  int       `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (CategoryMediaModel) TableName() string {
	return "category_media"
}
