// Package mapping converts records between the ERP, the bridge database and
// the platform. Functions are pure: they read one source record and build a
// candidate entity or payload without touching any store.
package mapping

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Mapping errors
var (
	ErrMissingField = errors.New("mapping: required field is empty")
	ErrInvalidValue = errors.New("mapping: invalid field value")
)

// Options carries the defaults and platform ids used while mapping
type Options struct {
	// Language is the ERP language written into translations, e.g. "de-DE"
	Language string
	// CurrencyID is the platform id of the currency prices are published in
	CurrencyID string
	// LanguageID is the platform id of the language translations are written to
	LanguageID string
	// MediaFolderID is the platform folder new media is created in
	MediaFolderID string
	// DefaultTaxRate applies to products without a resolvable tax class
	DefaultTaxRate decimal.Decimal
	// DefaultPriceFactor applies to products without their own factor
	DefaultPriceFactor decimal.Decimal
}

// DefaultOptions returns options with the built-in defaults
func DefaultOptions() Options {
	return Options{
		Language:           "de-DE",
		DefaultTaxRate:     decimal.NewFromInt(19),
		DefaultPriceFactor: decimal.NewFromInt(1),
	}
}

func missing(field string) error {
	return fmt.Errorf("%w: %s", ErrMissingField, field)
}

func invalid(field string, value any) error {
	return fmt.Errorf("%w: %s = %v", ErrInvalidValue, field, value)
}
