package bridge

import (
	"encoding/json"

	"github.com/erp/bridge/internal/domain/shared"
	"github.com/google/uuid"
)

// Category is a node of the ERP product group tree
type Category struct {
	shared.BaseEntity
	ErpNr        string
	ErpParentNr  string
	TreePath     []string
	PlatformID   string
	Translations Translations
	Media        []MediaLink
}

// NewCategory creates a category with a generated platform id
func NewCategory(erpNr string) (*Category, error) {
	if erpNr == "" {
		return nil, ErrEmptyErpNr
	}
	return &Category{
		BaseEntity: shared.NewBaseEntity(),
		ErpNr:      erpNr,
		PlatformID: shared.NewPlatformID(),
	}, nil
}

// IsRoot reports whether the category has no parent
func (c *Category) IsRoot() bool {
	return c.ErpParentNr == ""
}

// Depth is the number of ancestors
func (c *Category) Depth() int {
	return len(c.TreePath)
}

// Update copies the mapped fields of candidate onto c
func (c *Category) Update(candidate *Category) {
	c.ErpParentNr = candidate.ErpParentNr
	c.TreePath = append([]string(nil), candidate.TreePath...)
	c.Translations = c.Translations.Merge(candidate.Translations)
	if c.PlatformID == "" {
		c.PlatformID = shared.NewPlatformID()
	}
	c.Touch()
}

// AttachMedia links a media file or updates its sort order
func (c *Category) AttachMedia(mediaID uuid.UUID, sortOrder int) bool {
	links, added := attachMedia(c.Media, mediaID, sortOrder)
	c.Media = links
	return added
}

// CoverMediaID returns the media with the lowest sort order
func (c *Category) CoverMediaID() (uuid.UUID, bool) {
	return coverMedia(c.Media)
}

// EncodeTreePath serializes a tree path to its stored JSON form
func EncodeTreePath(path []string) (string, error) {
	if path == nil {
		path = []string{}
	}
	b, err := json.Marshal(path)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DecodeTreePath parses a stored JSON tree path
func DecodeTreePath(s string) ([]string, error) {
	if s == "" {
		return nil, nil
	}
	var path []string
	if err := json.Unmarshal([]byte(s), &path); err != nil {
		return nil, err
	}
	return path, nil
}

// BuildTreePath walks parent numbers from erpNr up to the root and returns the
// ancestors root first. Cycles stop the walk.
func BuildTreePath(erpNr string, parentOf map[string]string) []string {
	var reversed []string
	seen := map[string]bool{erpNr: true}
	current := parentOf[erpNr]
	for current != "" && !seen[current] {
		reversed = append(reversed, current)
		seen[current] = true
		current = parentOf[current]
	}
	path := make([]string, len(reversed))
	for i, nr := range reversed {
		path[len(reversed)-1-i] = nr
	}
	return path
}
