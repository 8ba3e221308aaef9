// Package platform describes the REST entity API of the e-commerce platform.
package platform

import (
	"context"
	"errors"
	"io"
)

// Platform errors
var (
	ErrNotFound        = errors.New("platform: entity not found")
	ErrUnavailable     = errors.New("platform: temporarily unavailable")
	ErrRequestFailed   = errors.New("platform: request failed")
	ErrInvalidResponse = errors.New("platform: invalid response")
	ErrAuthFailed      = errors.New("platform: authentication failed")
	ErrNotConfigured   = errors.New("platform: not configured")
)

// Entity names used by the bridge
type Entity string

// Platform entities
const (
	EntityProduct           Entity = "product"
	EntityProductPrice      Entity = "product-price"
	EntityProductVisibility Entity = "product-visibility"
	EntityProductMedia      Entity = "product-media"
	EntityCategory          Entity = "category"
	EntityTax               Entity = "tax"
	EntityMedia             Entity = "media"
	EntityCustomer          Entity = "customer"
	EntityCustomerAddress   Entity = "customer-address"
	EntityOrder             Entity = "order"
	EntitySalesChannel      Entity = "sales-channel"
)

// Client is the platform's entity API
type Client interface {
	// Search returns entities matching criteria
	Search(ctx context.Context, entity Entity, criteria *Criteria) (*SearchResult, error)
	// Get returns one entity or ErrNotFound
	Get(ctx context.Context, entity Entity, id string) (Record, error)
	// Create creates an entity. The payload carries the id to use.
	Create(ctx context.Context, entity Entity, payload Payload) error
	// Update partially updates an entity
	Update(ctx context.Context, entity Entity, id string, payload Payload) error
	Delete(ctx context.Context, entity Entity, id string) error
	// Upsert creates or updates many entities keyed by their ids
	Upsert(ctx context.Context, entity Entity, payloads []Payload) error
}

// MediaUploader uploads the binary content of a media entity
type MediaUploader interface {
	UploadMedia(ctx context.Context, mediaID, fileName, contentType string, content io.Reader) error
}

// SearchResult is a page of search hits
type SearchResult struct {
	Total int
	Data  []Record
}

// First returns the first hit
func (r *SearchResult) First() (Record, bool) {
	if r == nil || len(r.Data) == 0 {
		return nil, false
	}
	return r.Data[0], true
}

// Payload is the JSON body written to the platform
type Payload map[string]any

// Merge copies every key of other onto p except the preserved keys
func (p Payload) Merge(other Payload, preserve ...string) Payload {
	keep := make(map[string]bool, len(preserve))
	for _, k := range preserve {
		keep[k] = true
	}
	for k, v := range other {
		if keep[k] {
			if _, exists := p[k]; exists {
				continue
			}
		}
		p[k] = v
	}
	return p
}

// Without returns a copy of p without the given keys
func (p Payload) Without(keys ...string) Payload {
	drop := make(map[string]bool, len(keys))
	for _, k := range keys {
		drop[k] = true
	}
	out := make(Payload, len(p))
	for k, v := range p {
		if !drop[k] {
			out[k] = v
		}
	}
	return out
}
