package bridge

import "errors"

// Bridge store errors
var (
	ErrNotFound       = errors.New("bridge: record not found")
	ErrAmbiguousMatch = errors.New("bridge: natural key matches more than one record")
)

// Validation errors
var (
	ErrEmptyErpNr          = errors.New("bridge: erp number is required")
	ErrEmptyEmail          = errors.New("bridge: email is required")
	ErrEmptyPlatformID     = errors.New("bridge: platform id is required")
	ErrEmptyFileName       = errors.New("bridge: media file name is required")
	ErrInvalidCombinedID   = errors.New("bridge: invalid combined id")
	ErrInvalidPriceFactor  = errors.New("bridge: price factor must be positive")
	ErrAddressNotOwned     = errors.New("bridge: address does not belong to customer")
	ErrNegativeQuantity    = errors.New("bridge: quantity must not be negative")
	ErrMarketplaceRequired = errors.New("bridge: marketplace is required")
)
