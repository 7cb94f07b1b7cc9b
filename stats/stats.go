// Package stats evaluates declarative metric definitions over the guest
// directory. Evaluation is pure and total: it never mutates its input and a
// malformed definition evaluates to 0 instead of failing, so a bad stats
// configuration can never take down a listing render.
package stats

import (
	"fmt"
	"strings"

	"github.com/jacentio/roster/record"
)

// Kind selects the aggregation a definition performs.
type Kind string

const (
	// KindCountNonEmpty counts values that are not absent, nil, or "".
	KindCountNonEmpty Kind = "count_non_empty"

	// KindCheckboxTrue counts values strictly equal to boolean true.
	KindCheckboxTrue Kind = "count_checkbox_true"

	// KindCheckboxFalse counts values strictly equal to boolean false.
	KindCheckboxFalse Kind = "count_checkbox_false"

	// KindSpecial evaluates one of the synthetic population fields.
	KindSpecial Kind = "count_special"
)

// Synthetic population fields. These are stats-only pseudo-fields, not
// stored columns.
const (
	FieldAllParticipants  = "All Participants"
	FieldWithAgeExclusion = "All Participants (Age Exclusion)"

	childrenOverPrefix  = "Children > Age"
	childrenUnderPrefix = "Children ≤ Age"
)

// ChildrenOverLabel returns the synthetic label counting companion children
// older than the given threshold. The number in the label is always the
// live threshold: changing it re-labels and re-evaluates the field.
func ChildrenOverLabel(age int) string {
	return fmt.Sprintf("%s %d", childrenOverPrefix, age)
}

// ChildrenUnderLabel returns the synthetic label counting companion
// children at or under the given threshold.
func ChildrenUnderLabel(age int) string {
	return fmt.Sprintf("%s %d", childrenUnderPrefix, age)
}

// Definition is one declarative metric: a field (regular label or synthetic
// name) and the aggregation to apply to it.
type Definition struct {
	Field string `dynamodbav:"field" json:"field"`
	Kind  Kind   `dynamodbav:"kind" json:"kind"`
}

// Result pairs a definition with its computed value.
type Result struct {
	Definition Definition
	Value      int
}

// Relabel rewrites the age-threshold synthetic fields in a definition list
// to carry the current threshold, returning a new slice.
func Relabel(defs []Definition, childExclusionAge int) []Definition {
	out := make([]Definition, len(defs))
	copy(out, defs)
	for i, def := range out {
		switch {
		case strings.HasPrefix(def.Field, childrenOverPrefix):
			out[i].Field = ChildrenOverLabel(childExclusionAge)
		case strings.HasPrefix(def.Field, childrenUnderPrefix):
			out[i].Field = ChildrenUnderLabel(childExclusionAge)
		}
	}
	return out
}

// Strip returns defs without any definition referencing the given field
// label. Used when a custom field is deleted.
func Strip(defs []Definition, label string) []Definition {
	var out []Definition
	for _, def := range defs {
		if def.Field != label {
			out = append(out, def)
		}
	}
	return out
}

// Evaluate computes one value per definition over the full record set, in
// definition order. Unrecognized kind/field combinations evaluate to 0.
func Evaluate(defs []Definition, guests []record.Guest, childExclusionAge int) []Result {
	results := make([]Result, len(defs))
	for i, def := range defs {
		results[i] = Result{
			Definition: def,
			Value:      evaluateOne(def, guests, childExclusionAge),
		}
	}
	return results
}

func evaluateOne(def Definition, guests []record.Guest, childExclusionAge int) int {
	switch def.Kind {
	case KindSpecial:
		return evaluateSpecial(def.Field, guests, childExclusionAge)
	case KindCountNonEmpty:
		return countValues(guests, def.Field, nonEmpty)
	case KindCheckboxTrue:
		return countValues(guests, def.Field, func(v any) bool { return v == true })
	case KindCheckboxFalse:
		return countValues(guests, def.Field, func(v any) bool { return v == false })
	default:
		return 0
	}
}

func evaluateSpecial(field string, guests []record.Guest, childExclusionAge int) int {
	switch {
	case field == FieldAllParticipants:
		total := len(guests)
		for i := range guests {
			total += len(guests[i].Companions)
		}
		return total

	case field == FieldWithAgeExclusion:
		excluded := func(p *record.Profile) bool {
			return p.IsChild && p.Age <= childExclusionAge
		}
		total := 0
		for i := range guests {
			if !excluded(&guests[i].Profile) {
				total++
			}
			for j := range guests[i].Companions {
				if !excluded(&guests[i].Companions[j].Profile) {
					total++
				}
			}
		}
		return total

	case strings.HasPrefix(field, childrenOverPrefix):
		return countChildren(guests, func(age int) bool { return age > childExclusionAge })

	case strings.HasPrefix(field, childrenUnderPrefix):
		return countChildren(guests, func(age int) bool { return age <= childExclusionAge })
	}
	return 0
}

// countChildren counts companion records only: the age-threshold synthetic
// fields describe children brought along, never the primary invitee.
func countChildren(guests []record.Guest, match func(age int) bool) int {
	count := 0
	for i := range guests {
		for j := range guests[i].Companions {
			c := &guests[i].Companions[j]
			if c.IsChild && match(c.Age) {
				count++
			}
		}
	}
	return count
}

// countValues applies a predicate to a field's value across guests and
// companions alike.
func countValues(guests []record.Guest, field string, match func(any) bool) int {
	count := 0
	for i := range guests {
		if match(guests[i].Field(field)) {
			count++
		}
		for j := range guests[i].Companions {
			if match(guests[i].Companions[j].Field(field)) {
				count++
			}
		}
	}
	return count
}

// nonEmpty reports whether a value is present: not nil, not "", and for
// multi-valued fields not an empty list.
func nonEmpty(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case string:
		return val != ""
	case []string:
		return len(val) > 0
	default:
		return true
	}
}
