// Package identity models the participant handle that verification records
// refer to.
package identity

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

// ErrInvalidAddress is returned when an address has neither a service id nor
// a phone number, or when either part is malformed.
var ErrInvalidAddress = errors.New("invalid address")

// Address identifies a conversation participant by service id, phone number,
// or both. The zero value is invalid.
type Address struct {
	ServiceID   uuid.UUID
	PhoneNumber string
}

// NewAddress builds an address from its parts. phoneNumber may be empty when
// serviceID is set, and serviceID may be uuid.Nil when phoneNumber is set.
func NewAddress(serviceID uuid.UUID, phoneNumber string) (Address, error) {
	phone, err := normalizePhone(phoneNumber)
	if err != nil {
		return Address{}, err
	}
	addr := Address{ServiceID: serviceID, PhoneNumber: phone}
	if !addr.IsValid() {
		return Address{}, fmt.Errorf("%w: empty address", ErrInvalidAddress)
	}
	return addr, nil
}

// ParseAddress parses "uuid", "+E164", or "uuid|+E164".
func ParseAddress(s string) (Address, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Address{}, fmt.Errorf("%w: empty address", ErrInvalidAddress)
	}

	var idPart, phonePart string
	if before, after, ok := strings.Cut(s, "|"); ok {
		idPart, phonePart = before, after
	} else if looksLikePhone(s) {
		phonePart = s
	} else {
		idPart = s
	}

	serviceID := uuid.Nil
	if idPart = strings.TrimSpace(idPart); idPart != "" {
		parsed, err := uuid.Parse(idPart)
		if err != nil {
			return Address{}, fmt.Errorf("%w: service id %q: %v", ErrInvalidAddress, idPart, err)
		}
		serviceID = parsed
	}

	return NewAddress(serviceID, phonePart)
}

// IsValid reports whether the address names a participant.
func (a Address) IsValid() bool {
	return a.ServiceID != uuid.Nil || a.PhoneNumber != ""
}

// ServiceIDString returns the service id, or "" when unset.
func (a Address) ServiceIDString() string {
	if a.ServiceID == uuid.Nil {
		return ""
	}
	return a.ServiceID.String()
}

// Equal reports whether two addresses name the same participant. When both
// carry a service id it decides; otherwise phone numbers are compared.
func (a Address) Equal(other Address) bool {
	if a.ServiceID != uuid.Nil && other.ServiceID != uuid.Nil {
		return a.ServiceID == other.ServiceID
	}
	return a.PhoneNumber != "" && a.PhoneNumber == other.PhoneNumber
}

// String renders the address in the form ParseAddress accepts.
func (a Address) String() string {
	switch {
	case a.ServiceID != uuid.Nil && a.PhoneNumber != "":
		return a.ServiceID.String() + "|" + a.PhoneNumber
	case a.ServiceID != uuid.Nil:
		return a.ServiceID.String()
	default:
		return a.PhoneNumber
	}
}

// FromStored rebuilds an address from its persisted columns.
func FromStored(serviceID, phoneNumber string) (Address, error) {
	id := uuid.Nil
	if serviceID != "" {
		parsed, err := uuid.Parse(serviceID)
		if err != nil {
			return Address{}, fmt.Errorf("stored service id %q: %w", serviceID, err)
		}
		id = parsed
	}
	return Address{ServiceID: id, PhoneNumber: phoneNumber}, nil
}

func looksLikePhone(s string) bool {
	return strings.HasPrefix(norm.NFKC.String(s), "+")
}

// normalizePhone folds compatibility characters (full-width digits and plus
// signs) to ASCII, drops formatting characters, and checks E.164 shape.
func normalizePhone(s string) (string, error) {
	s = norm.NFKC.String(strings.TrimSpace(s))
	if s == "" {
		return "", nil
	}

	var b strings.Builder
	for i, r := range s {
		switch {
		case r == '+' && i == 0:
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '(' || r == ')' || r == '.':
		default:
			return "", fmt.Errorf("%w: phone number %q", ErrInvalidAddress, s)
		}
	}

	phone := b.String()
	digits := len(phone) - 1
	if !strings.HasPrefix(phone, "+") || digits < 7 || digits > 15 {
		return "", fmt.Errorf("%w: phone number %q is not E.164", ErrInvalidAddress, s)
	}
	return phone, nil
}

// MarshalText encodes the address in its String form.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText decodes an address with ParseAddress.
func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
