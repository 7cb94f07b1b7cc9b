// Package record defines the two-level guest directory model — guests and
// the companions attached to them — plus the flattening of that hierarchy
// into display rows and the persistence repository for both collections.
package record

import (
	"github.com/jacentio/roster/schema"
)

// Profile is the attribute shape shared by guests and companions: the
// built-in fields plus the custom-field value map keyed by display label.
type Profile struct {
	FirstName    string   `dynamodbav:"first_name,omitempty"`
	LastName     string   `dynamodbav:"last_name,omitempty"`
	Email        string   `dynamodbav:"email,omitempty"`
	Phone        string   `dynamodbav:"phone,omitempty"`
	Relationship string   `dynamodbav:"relationship,omitempty"`
	Group        string   `dynamodbav:"group,omitempty"`
	Tags         []string `dynamodbav:"tags,omitempty"`
	DietaryNotes string   `dynamodbav:"dietary_notes,omitempty"`
	IsChild      bool     `dynamodbav:"is_child"`
	Age          int      `dynamodbav:"age"`

	// Custom holds custom-field values keyed by display label. Values are
	// strings for text/dropdown fields and bools for checkbox fields.
	Custom map[string]any `dynamodbav:"custom,omitempty"`
}

// Guest is a main directory record owning zero or more companions.
type Guest struct {
	ID        string `dynamodbav:"id"`
	AccountID string `dynamodbav:"account_id"`
	Profile

	// Companions are fetched independently and joined in memory; they are
	// not embedded in the stored guest item.
	Companions []Companion `dynamodbav:"-"`
}

// Companion is a dependent record attached to exactly one guest. The
// hierarchy is exactly two levels deep: companions never own companions.
type Companion struct {
	ID        string `dynamodbav:"id"`
	AccountID string `dynamodbav:"account_id"`
	GuestID   string `dynamodbav:"guest_id"`
	Profile
}

// Field returns the value stored under a display label: a built-in field's
// typed value, or the raw custom-map entry. Missing values are nil.
func (p *Profile) Field(label string) any {
	key, builtin := schema.StorageKey(label)
	if !builtin {
		v, ok := p.Custom[label]
		if !ok {
			return nil
		}
		return v
	}

	switch key {
	case "first_name":
		return p.FirstName
	case "last_name":
		return p.LastName
	case "email":
		return p.Email
	case "phone":
		return p.Phone
	case "relationship":
		return p.Relationship
	case "group":
		return p.Group
	case "tags":
		return p.Tags
	case "dietary_notes":
		return p.DietaryNotes
	case "is_child":
		return p.IsChild
	case "age":
		return p.Age
	}
	return nil
}
