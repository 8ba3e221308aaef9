package syncer

import (
	"fmt"
	"strings"
)

// EntityKind selects the synchronizer of an entity type
type EntityKind string

// Entity kinds
const (
	KindTax         EntityKind = "tax"
	KindMarketplace EntityKind = "marketplace"
	KindMedia       EntityKind = "media"
	KindCategory    EntityKind = "category"
	KindProduct     EntityKind = "product"
	KindCustomer    EntityKind = "customer"
	KindWebCustomer EntityKind = "web-customer"
	KindOrder       EntityKind = "order"
	KindPrice       EntityKind = "price"
)

// AllKinds lists every kind in dependency order: referenced entities come
// before the entities that link to them.
var AllKinds = []EntityKind{
	KindTax,
	KindMarketplace,
	KindMedia,
	KindCategory,
	KindProduct,
	KindCustomer,
	KindWebCustomer,
	KindOrder,
	KindPrice,
}

// ParseEntityKind parses a kind name
func ParseEntityKind(s string) (EntityKind, error) {
	k := EntityKind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllKinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Direction is the flow of a sync run relative to the bridge database
type Direction string

// Directions
const (
	// ToBridge reads the ERP or the platform and writes the bridge
	ToBridge Direction = "to"
	// FromBridge reads the bridge and writes the platform or the ERP
	FromBridge Direction = "from"
)

// ParseDirection parses "to" or "from"
func ParseDirection(s string) (Direction, error) {
	switch d := Direction(strings.ToLower(strings.TrimSpace(s))); d {
	case ToBridge, FromBridge:
		return d, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidDirection, s)
	}
}
