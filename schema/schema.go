// Package schema owns the field model for the guest directory: the fixed
// built-in fields, user-defined custom fields, and the ordered visibility
// state that determines the column sequence.
package schema

// ValueType is the kind of value a custom field holds.
type ValueType string

const (
	TypeText     ValueType = "text"
	TypeDropdown ValueType = "dropdown"
	TypeCheckbox ValueType = "checkbox"
)

// FieldDefinition is a user-defined custom field. The label is the join key
// back to stored record values: renaming a label does not migrate values
// stored under the old one.
type FieldDefinition struct {
	ID      string    `dynamodbav:"id" json:"id"`
	Label   string    `dynamodbav:"label" json:"label"`
	Type    ValueType `dynamodbav:"type" json:"type"`
	Options []string  `dynamodbav:"options,omitempty" json:"options,omitempty"`
}

// builtin pairs a display label with its fixed storage key.
type builtin struct {
	label string
	key   string
}

// builtins is the fixed field set every account starts with, in display
// order. The storage key is the DynamoDB attribute name; any label not in
// this table is a custom field stored verbatim in the custom-value map.
var builtins = []builtin{
	{"First Name", "first_name"},
	{"Last Name", "last_name"},
	{"Email", "email"},
	{"Phone", "phone"},
	{"Relationship", "relationship"},
	{"Group", "group"},
	{"Tags", "tags"},
	{"Dietary Notes", "dietary_notes"},
	{"Is Child", "is_child"},
	{"Age", "age"},
}

// BuiltinLabels returns the built-in field labels in display order.
func BuiltinLabels() []string {
	labels := make([]string, len(builtins))
	for i, b := range builtins {
		labels[i] = b.label
	}
	return labels
}

// StorageKey maps a display label to its storage attribute. The second
// return is false for custom-field labels, which are stored verbatim.
func StorageKey(label string) (string, bool) {
	for _, b := range builtins {
		if b.label == label {
			return b.key, true
		}
	}
	return "", false
}

// IsBuiltin reports whether a label names a built-in field.
func IsBuiltin(label string) bool {
	_, ok := StorageKey(label)
	return ok
}
