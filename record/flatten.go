package record

// RowKind tags a display row as a guest or companion row.
type RowKind string

const (
	RowGuest     RowKind = "guest"
	RowCompanion RowKind = "companion"
)

// DisplayRow is one row in the flattened directory listing. Key is the
// underlying record's ID — never a positional index — so rows stay
// addressable for editing and deletion across refreshes.
type DisplayRow struct {
	Key  string
	Kind RowKind

	Guest     *Guest
	Companion *Companion
}

// ExpandSet tracks which guests are expanded in the listing. Toggling
// expansion only mutates this set; stored data is never touched.
type ExpandSet map[string]bool

// NewExpandSet returns an empty expand set.
func NewExpandSet() ExpandSet {
	return make(ExpandSet)
}

// Toggle flips the expanded state of a guest.
func (e ExpandSet) Toggle(guestID string) {
	if e[guestID] {
		delete(e, guestID)
	} else {
		e[guestID] = true
	}
}

// IsExpanded reports whether a guest is expanded.
func (e ExpandSet) IsExpanded(guestID string) bool {
	return e[guestID]
}

// Flatten converts the guest hierarchy into one ordered row sequence: one
// guest row per guest in input order, followed by that guest's companion
// rows in their fetch order when the guest is expanded. Collapsed guests
// contribute exactly one row regardless of companion count.
//
// Flatten is pure and deterministic: the same inputs always produce the
// same sequence, which row-identity-keyed diffing depends on.
func Flatten(guests []Guest, expanded ExpandSet) []DisplayRow {
	var rows []DisplayRow
	for i := range guests {
		g := &guests[i]
		rows = append(rows, DisplayRow{
			Key:   g.ID,
			Kind:  RowGuest,
			Guest: g,
		})
		if !expanded.IsExpanded(g.ID) {
			continue
		}
		for j := range g.Companions {
			c := &g.Companions[j]
			rows = append(rows, DisplayRow{
				Key:       c.ID,
				Kind:      RowCompanion,
				Companion: c,
			})
		}
	}
	return rows
}
