package bridge

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/erp/bridge/internal/domain/shared"
)

// CombinedIDSeparator separates the parts of a combined id
const CombinedIDSeparator = ";"

// Combined id part positions
const (
	PartAddress    = 0
	PartSubAddress = 1
	PartContact    = 2
)

// EmptyCombinedID is the combined id of an address that has no ERP records yet
const EmptyCombinedID = "0;0;0"

// CombinedID identifies an ERP address record (Adresse), its sub-address
// (Anschrift) and the contact (Ansprechpartner) beneath it. A part that has not
// been created in the ERP yet is absent.
type CombinedID struct {
	Address    shared.Optional[int]
	SubAddress shared.Optional[int]
	Contact    shared.Optional[int]
}

// NewCombinedID builds a combined id from three present parts
func NewCombinedID(address, subAddress, contact int) CombinedID {
	return CombinedID{
		Address:    shared.Some(address),
		SubAddress: shared.Some(subAddress),
		Contact:    shared.Some(contact),
	}
}

// String encodes the id, writing absent parts as 0
func (c CombinedID) String() string {
	parts := []shared.Optional[int]{c.Address, c.SubAddress, c.Contact}
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = strconv.Itoa(p.OrElse(0))
	}
	return strings.Join(out, CombinedIDSeparator)
}

// Complete reports whether all three parts are present
func (c CombinedID) Complete() bool {
	return c.Address.IsSome() && c.SubAddress.IsSome() && c.Contact.IsSome()
}

// Part returns the part at pos
func (c CombinedID) Part(pos int) shared.Optional[int] {
	switch pos {
	case PartAddress:
		return c.Address
	case PartSubAddress:
		return c.SubAddress
	case PartContact:
		return c.Contact
	default:
		return shared.None[int]()
	}
}

// EncodeCombinedID joins three explicitly set parts. Every part must be a
// positive number; 0 is the encoding of an absent part and only
// CombinedID.String writes it.
func EncodeCombinedID(address, subAddress, contact string) (string, error) {
	parts := []string{address, subAddress, contact}
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			return "", fmt.Errorf("%w: part %d is empty", ErrInvalidCombinedID, i)
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return "", fmt.Errorf("%w: part %d is not a number: %q", ErrInvalidCombinedID, i, p)
		}
		if n <= 0 {
			return "", fmt.Errorf("%w: part %d must be positive, got %d", ErrInvalidCombinedID, i, n)
		}
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, CombinedIDSeparator), nil
}

// ParseCombinedID decodes an encoded id. Parts equal to 0 decode to absent.
// Missing trailing parts are absent too.
func ParseCombinedID(s string) (CombinedID, error) {
	var c CombinedID
	if strings.TrimSpace(s) == "" {
		return c, nil
	}
	raw := strings.Split(s, CombinedIDSeparator)
	if len(raw) > 3 {
		return c, fmt.Errorf("%w: %q has %d parts", ErrInvalidCombinedID, s, len(raw))
	}
	values := make([]shared.Optional[int], 3)
	for i, p := range raw {
		v, err := parsePart(p)
		if err != nil {
			return c, fmt.Errorf("%w: %q: %v", ErrInvalidCombinedID, s, err)
		}
		values[i] = v
	}
	c.Address, c.SubAddress, c.Contact = values[0], values[1], values[2]
	return c, nil
}

// CombinedIDPart extracts the part at pos. ok is false when the part is missing
// or malformed; a present "0" yields ok with an absent value.
func CombinedIDPart(s string, pos int) (shared.Optional[int], bool) {
	raw := strings.Split(s, CombinedIDSeparator)
	if pos < 0 || pos >= len(raw) || strings.TrimSpace(s) == "" {
		return shared.None[int](), false
	}
	v, err := parsePart(raw[pos])
	if err != nil {
		return shared.None[int](), false
	}
	return v, true
}

func parsePart(p string) (shared.Optional[int], error) {
	p = strings.TrimSpace(p)
	if p == "" {
		return shared.None[int](), nil
	}
	n, err := strconv.Atoi(p)
	if err != nil {
		return shared.None[int](), err
	}
	if n == 0 {
		return shared.None[int](), nil
	}
	return shared.Some(n), nil
}
