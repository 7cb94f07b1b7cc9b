// Package view persists named display configurations: the field order and
// visibility, the stats definitions, a snapshot of the custom field schema,
// and the child exclusion age, all saved and loaded as one unit.
package view

import (
	"github.com/jacentio/roster/schema"
	"github.com/jacentio/roster/stats"
)

// Snapshot is the complete display/aggregation configuration a view
// carries. Selecting a view republishes this snapshot into the session;
// saving one captures the session state at that moment. Persisted views
// are never retroactively edited when the live schema changes.
type Snapshot struct {
	FieldOrder        []string                 `dynamodbav:"field_order"`
	VisibleFields     []string                 `dynamodbav:"visible_fields"`
	StatsConfig       []stats.Definition       `dynamodbav:"stats_config"`
	CustomFields      []schema.FieldDefinition `dynamodbav:"custom_fields"`
	ChildExclusionAge int                      `dynamodbav:"child_exclusion_age"`
}

// View is a named, persisted snapshot owned by one account. Name is unique
// per account and is the storage sort key: saving under an existing name
// replaces that view.
type View struct {
	ID        string `dynamodbav:"id"`
	AccountID string `dynamodbav:"account_id"`
	Name      string `dynamodbav:"name"`
	IsDefault bool   `dynamodbav:"is_default"`
	Snapshot
}

// ResolveInitial picks the view to load on first entry: the one flagged
// default, or nil when no default exists (the caller then stays on the
// built-in configuration).
func ResolveInitial(views []View) *View {
	for i := range views {
		if views[i].IsDefault {
			return &views[i]
		}
	}
	return nil
}
