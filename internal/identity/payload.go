// Package identity models the upstream identity provider's user payload and
// the projection rules that turn it into a local user record.
package identity

import "strings"

type EmailAddress struct {
	ID           string `json:"id"`
	EmailAddress string `json:"email_address" validate:"required"`
}

// UserPayload is the user object carried by lifecycle events. Deletion events
// carry only the id, so every field past it is optional.
type UserPayload struct {
	ID                    string         `json:"id" validate:"required"`
	FirstName             *string        `json:"first_name"`
	LastName              *string        `json:"last_name"`
	EmailAddresses        []EmailAddress `json:"email_addresses" validate:"omitempty,dive"`
	PrimaryEmailAddressID *string        `json:"primary_email_address_id"`
}

// DisplayName is the trimmed concatenation of given and family name.
// Either part may be absent; the result may be empty.
func (p UserPayload) DisplayName() string {
	return strings.TrimSpace(deref(p.FirstName) + " " + deref(p.LastName))
}

// PrimaryEmail picks the address flagged primary, else the first address,
// else the empty string.
func (p UserPayload) PrimaryEmail() string {
	if p.PrimaryEmailAddressID != nil {
		for _, e := range p.EmailAddresses {
			if e.ID == *p.PrimaryEmailAddressID {
				return e.EmailAddress
			}
		}
	}
	if len(p.EmailAddresses) > 0 {
		return p.EmailAddresses[0].EmailAddress
	}
	return ""
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
