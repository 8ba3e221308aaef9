package persistence

import (
	"context"
	"fmt"

	"github.com/erp/bridge/internal/domain/bridge"
	"gorm.io/gorm"
)

// findOne loads at most two rows for a natural-key query and maps the result
// to bridge.ErrNotFound or bridge.ErrAmbiguousMatch.
func findOne[M any](query *gorm.DB, key string) (*M, error) {
	var rows []M
	if err := query.Limit(2).Find(&rows).Error; err != nil {
		return nil, err
	}
	switch len(rows) {
	case 0:
		return nil, bridge.ErrNotFound
	case 1:
		return &rows[0], nil
	default:
		return nil, fmt.Errorf("%w: %s", bridge.ErrAmbiguousMatch, key)
	}
}

// replaceRows deletes the owner's rows of model and inserts rows
func replaceRows[M any](tx *gorm.DB, model *M, ownerColumn string, ownerID any, rows []M) error {
	if err := tx.Where(ownerColumn+" = ?", ownerID).Delete(model).Error; err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	return tx.Create(&rows).Error
}

// purge deletes every row of the given models in order and returns the
// number of rows removed from the last one.
func purge(ctx context.Context, db *gorm.DB, ms ...any) (int64, error) {
	var affected int64
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, m := range ms {
			res := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(m)
			if res.Error != nil {
				return res.Error
			}
			affected = res.RowsAffected
		}
		return nil
	})
	return affected, err
}
