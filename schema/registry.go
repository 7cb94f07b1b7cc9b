package schema

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var (
	// ErrEmptyLabel is returned when a field label is blank.
	ErrEmptyLabel = errors.New("roster: field label is empty")

	// ErrDuplicateLabel is returned when a label is already used by a
	// built-in or existing custom field.
	ErrDuplicateLabel = errors.New("roster: field label already in use")

	// ErrFieldNotFound is returned when editing a custom field that doesn't exist.
	ErrFieldNotFound = errors.New("roster: custom field not found")
)

// Registry holds an account's field schema: the custom field definitions
// layered over the built-ins, the full field order, and the visible set.
//
// The field order is always a permutation of every known label (built-in
// plus custom), and the visible set is always a subset of it.
type Registry struct {
	custom  []FieldDefinition
	order   []string
	visible map[string]bool
}

// NewRegistry creates a registry with the built-in fields, all visible.
func NewRegistry() *Registry {
	r := &Registry{visible: make(map[string]bool)}
	for _, label := range BuiltinLabels() {
		r.order = append(r.order, label)
		r.visible[label] = true
	}
	return r
}

// AddField defines a new custom field. The label must be non-blank and
// unused; the new field is appended to the field order and made visible.
func (r *Registry) AddField(label string, valueType ValueType, options []string) (FieldDefinition, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return FieldDefinition{}, ErrEmptyLabel
	}
	if r.labelTaken(label, "") {
		return FieldDefinition{}, fmt.Errorf("%w: %q", ErrDuplicateLabel, label)
	}

	def := FieldDefinition{
		ID:    uuid.NewString(),
		Label: label,
		Type:  valueType,
	}
	if valueType == TypeDropdown {
		def.Options = append([]string(nil), options...)
	}

	r.custom = append(r.custom, def)
	r.order = append(r.order, label)
	r.visible[label] = true
	return def, nil
}

// EditField updates a custom field in place. A label change renames the
// entry in the field order and visible set, but does not migrate record
// values stored under the old label, and a type change does not rewrite
// previously stored values.
func (r *Registry) EditField(id, label string, valueType ValueType, options []string) error {
	label = strings.TrimSpace(label)
	if label == "" {
		return ErrEmptyLabel
	}

	idx := -1
	for i, def := range r.custom {
		if def.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrFieldNotFound, id)
	}

	old := r.custom[idx]
	if label != old.Label && r.labelTaken(label, id) {
		return fmt.Errorf("%w: %q", ErrDuplicateLabel, label)
	}

	if label != old.Label {
		for i, l := range r.order {
			if l == old.Label {
				r.order[i] = label
			}
		}
		if r.visible[old.Label] {
			delete(r.visible, old.Label)
			r.visible[label] = true
		}
	}

	r.custom[idx].Label = label
	r.custom[idx].Type = valueType
	if valueType == TypeDropdown {
		r.custom[idx].Options = append([]string(nil), options...)
	} else {
		r.custom[idx].Options = nil
	}
	return nil
}

// DeleteField removes a custom field and its label from the field order and
// visible set. Unknown IDs are a no-op: the second return reports whether
// anything was removed, and the first is the removed label so callers can
// cascade it out of stats configuration.
func (r *Registry) DeleteField(id string) (string, bool) {
	idx := -1
	for i, def := range r.custom {
		if def.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return "", false
	}

	label := r.custom[idx].Label
	r.custom = append(r.custom[:idx], r.custom[idx+1:]...)
	for i, l := range r.order {
		if l == label {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	delete(r.visible, label)
	return label, true
}

// ToggleVisibility adds or removes a label from the visible set without
// touching the field order. Unknown labels are ignored.
func (r *Registry) ToggleVisibility(label string) {
	if !r.knows(label) {
		return
	}
	if r.visible[label] {
		delete(r.visible, label)
	} else {
		r.visible[label] = true
	}
}

// MoveField moves the field at fromIndex to toIndex in the full order.
// Out-of-range indices are a no-op.
func (r *Registry) MoveField(fromIndex, toIndex int) {
	if fromIndex < 0 || fromIndex >= len(r.order) || toIndex < 0 || toIndex >= len(r.order) {
		return
	}
	label := r.order[fromIndex]
	r.order = append(r.order[:fromIndex], r.order[fromIndex+1:]...)
	r.order = append(r.order[:toIndex], append([]string{label}, r.order[toIndex:]...)...)
}

// MoveVisibleField moves label directly before beforeLabel in the full
// order, changing only relative position. With beforeLabel == "" the field
// moves to the end. Unknown labels are a no-op.
func (r *Registry) MoveVisibleField(label, beforeLabel string) {
	if !r.knows(label) || label == beforeLabel {
		return
	}
	if beforeLabel != "" && !r.knows(beforeLabel) {
		return
	}

	for i, l := range r.order {
		if l == label {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	if beforeLabel == "" {
		r.order = append(r.order, label)
		return
	}
	for i, l := range r.order {
		if l == beforeLabel {
			r.order = append(r.order[:i], append([]string{label}, r.order[i:]...)...)
			return
		}
	}
}

// OrderedVisibleFields returns the visible labels in field order. This is
// the definitive column sequence for rendering.
func (r *Registry) OrderedVisibleFields() []string {
	var out []string
	for _, label := range r.order {
		if r.visible[label] {
			out = append(out, label)
		}
	}
	return out
}

// FieldOrder returns a copy of the full field order.
func (r *Registry) FieldOrder() []string {
	return append([]string(nil), r.order...)
}

// VisibleFields returns the visible labels in field order.
func (r *Registry) VisibleFields() []string {
	return r.OrderedVisibleFields()
}

// IsVisible reports whether a label is in the visible set.
func (r *Registry) IsVisible(label string) bool {
	return r.visible[label]
}

// CustomFields returns a copy of the custom field definitions in creation order.
func (r *Registry) CustomFields() []FieldDefinition {
	out := make([]FieldDefinition, len(r.custom))
	copy(out, r.custom)
	return out
}

// Restore republishes a view snapshot into the registry, replacing the
// custom set, order, and visibility. The permutation invariant is repaired
// on the way in: unknown labels are dropped and missing known labels are
// appended, so snapshots saved under an older schema still load.
func (r *Registry) Restore(custom []FieldDefinition, order []string, visible []string) {
	r.custom = make([]FieldDefinition, len(custom))
	copy(r.custom, custom)

	known := make(map[string]bool)
	for _, label := range BuiltinLabels() {
		known[label] = true
	}
	for _, def := range r.custom {
		known[def.Label] = true
	}

	r.order = r.order[:0]
	seen := make(map[string]bool)
	for _, label := range order {
		if known[label] && !seen[label] {
			r.order = append(r.order, label)
			seen[label] = true
		}
	}
	for _, label := range BuiltinLabels() {
		if !seen[label] {
			r.order = append(r.order, label)
			seen[label] = true
		}
	}
	for _, def := range r.custom {
		if !seen[def.Label] {
			r.order = append(r.order, def.Label)
			seen[def.Label] = true
		}
	}

	r.visible = make(map[string]bool)
	for _, label := range visible {
		if known[label] {
			r.visible[label] = true
		}
	}
}

// labelTaken reports whether a label is used by a built-in or by a custom
// field other than excludeID.
func (r *Registry) labelTaken(label, excludeID string) bool {
	if IsBuiltin(label) {
		return true
	}
	for _, def := range r.custom {
		if def.Label == label && def.ID != excludeID {
			return true
		}
	}
	return false
}

// knows reports whether a label exists in the field order.
func (r *Registry) knows(label string) bool {
	for _, l := range r.order {
		if l == label {
			return true
		}
	}
	return false
}
