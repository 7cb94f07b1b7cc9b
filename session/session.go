// Package session holds the per-account editing state for the guest
// directory: the field schema and ordering, the expand/collapse set, the
// stats configuration, and the selected view. One Session serves one
// logical editor; nothing in it is re-entrant across accounts.
//
// All in-memory operations are synchronous and side-effect free beyond the
// session's own state; only the view and record round-trips touch the
// store, and those take a context.
package session

import (
	"context"
	"log/slog"

	"github.com/jacentio/roster/record"
	"github.com/jacentio/roster/schema"
	"github.com/jacentio/roster/stats"
	"github.com/jacentio/roster/view"
)

// Defaults is the ambient configuration applied before any account view
// loads. The embedder decides where it comes from (stored client prefs,
// hard-coded product defaults); the session only consumes it.
type Defaults struct {
	// HiddenFields are built-in labels hidden until a view says otherwise.
	HiddenFields []string

	// StatsConfig is the metric set shown before a view is selected.
	StatsConfig []stats.Definition

	// ChildExclusionAge is the initial age threshold.
	ChildExclusionAge int
}

// Session is the state container for one account's directory editing.
type Session struct {
	accountID string

	registry     *schema.Registry
	expanded     record.ExpandSet
	statsConfig  []stats.Definition
	exclusionAge int

	views   *view.Store
	records *record.Repository
	current *view.View

	logger *slog.Logger
}

// New creates a session seeded from ambient defaults.
func New(accountID string, views *view.Store, records *record.Repository, defaults Defaults, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Session{
		accountID:    accountID,
		registry:     schema.NewRegistry(),
		expanded:     record.NewExpandSet(),
		statsConfig:  append([]stats.Definition(nil), defaults.StatsConfig...),
		exclusionAge: defaults.ChildExclusionAge,
		views:        views,
		records:      records,
		logger:       logger,
	}
	for _, label := range defaults.HiddenFields {
		if s.registry.IsVisible(label) {
			s.registry.ToggleVisibility(label)
		}
	}
	return s
}

// Registry exposes the schema and ordering state.
func (s *Session) Registry() *schema.Registry {
	return s.registry
}

// AccountID returns the owning account.
func (s *Session) AccountID() string {
	return s.accountID
}

// AddField defines a custom field, appending it to the order and visible set.
func (s *Session) AddField(label string, valueType schema.ValueType, options []string) (schema.FieldDefinition, error) {
	return s.registry.AddField(label, valueType, options)
}

// EditField updates a custom field in place. Record values stored under the
// old label are not migrated.
func (s *Session) EditField(id, label string, valueType schema.ValueType, options []string) error {
	return s.registry.EditField(id, label, valueType, options)
}

// DeleteField removes a custom field and cascades its label out of the
// field order, the visible set, and the stats configuration. Unknown IDs
// are a no-op. Persisted views are not retroactively edited.
func (s *Session) DeleteField(id string) {
	label, removed := s.registry.DeleteField(id)
	if !removed {
		return
	}
	s.statsConfig = stats.Strip(s.statsConfig, label)
}

// ToggleExpand flips a guest's expanded state. Stored data is untouched.
func (s *Session) ToggleExpand(guestID string) {
	s.expanded.Toggle(guestID)
}

// Rows flattens the guest hierarchy against the session's expand state.
func (s *Session) Rows(guests []record.Guest) []record.DisplayRow {
	return record.Flatten(guests, s.expanded)
}

// Stats evaluates the session's stats configuration over the record set.
func (s *Session) Stats(guests []record.Guest) []stats.Result {
	return stats.Evaluate(s.statsConfig, guests, s.exclusionAge)
}

// StatsConfig returns a copy of the current metric definitions.
func (s *Session) StatsConfig() []stats.Definition {
	return append([]stats.Definition(nil), s.statsConfig...)
}

// SetStatsConfig replaces the metric definitions.
func (s *Session) SetStatsConfig(defs []stats.Definition) {
	s.statsConfig = append([]stats.Definition(nil), defs...)
}

// ChildExclusionAge returns the current age threshold.
func (s *Session) ChildExclusionAge() int {
	return s.exclusionAge
}

// SetChildExclusionAge changes the threshold and re-labels the
// age-threshold synthetic fields in the stats configuration to match.
func (s *Session) SetChildExclusionAge(age int) {
	s.exclusionAge = age
	s.statsConfig = stats.Relabel(s.statsConfig, age)
}

// Snapshot captures the session state as a view snapshot.
func (s *Session) Snapshot() view.Snapshot {
	return view.Snapshot{
		FieldOrder:        s.registry.FieldOrder(),
		VisibleFields:     s.registry.VisibleFields(),
		StatsConfig:       s.StatsConfig(),
		CustomFields:      s.registry.CustomFields(),
		ChildExclusionAge: s.exclusionAge,
	}
}

// CurrentView returns the selected view, or nil when unselected.
func (s *Session) CurrentView() *view.View {
	return s.current
}

// ApplyView selects a view, republishing its snapshot into the session.
// This is a pure state change; stored views are only read.
func (s *Session) ApplyView(v view.View) {
	s.registry.Restore(v.CustomFields, v.FieldOrder, v.VisibleFields)
	s.statsConfig = append([]stats.Definition(nil), v.StatsConfig...)
	s.exclusionAge = v.ChildExclusionAge
	s.current = &v
	s.logger.Info("applied view", "account", s.accountID, "view", v.Name)
}

// LoadInitialView fetches the account's views and applies the default one,
// if any. With no default flagged, the session stays on its ambient
// configuration.
func (s *Session) LoadInitialView(ctx context.Context) error {
	views, err := s.views.List(ctx, s.accountID)
	if err != nil {
		return err
	}
	if v := view.ResolveInitial(views); v != nil {
		s.ApplyView(*v)
	}
	return nil
}

// SaveViewAs persists the current session state under a name and selects
// the saved view.
func (s *Session) SaveViewAs(ctx context.Context, name string) (view.View, error) {
	v, err := s.views.SaveAsNew(ctx, s.accountID, name, s.Snapshot())
	if err != nil {
		return view.View{}, err
	}
	s.current = &v
	return v, nil
}

// RenameCurrentView renames the selected view, carrying the live session
// state as its new snapshot.
func (s *Session) RenameCurrentView(ctx context.Context, newName string) (view.View, error) {
	if s.current == nil {
		return view.View{}, view.ErrViewNotFound
	}
	v, err := s.views.Rename(ctx, s.accountID, s.current.ID, newName, s.Snapshot())
	if err != nil {
		return view.View{}, err
	}
	s.current = &v
	return v, nil
}

// DeleteView removes a view. If it was the selected view, the session falls
// back to the account default, or to the unselected ambient state when no
// default remains.
func (s *Session) DeleteView(ctx context.Context, id string) error {
	if err := s.views.Delete(ctx, s.accountID, id); err != nil {
		return err
	}
	if s.current == nil || s.current.ID != id {
		return nil
	}

	s.current = nil
	views, err := s.views.List(ctx, s.accountID)
	if err != nil {
		return err
	}
	if v := view.ResolveInitial(views); v != nil {
		s.ApplyView(*v)
	}
	return nil
}

// SetDefaultView flags a view as the account default. The per-view updates
// are not transactional; the returned view list is re-read so the caller
// sees the settled state.
func (s *Session) SetDefaultView(ctx context.Context, id string) ([]view.View, error) {
	if err := s.views.SetDefault(ctx, s.accountID, id); err != nil {
		return nil, err
	}
	views, err := s.views.List(ctx, s.accountID)
	if err != nil {
		return nil, err
	}
	if s.current != nil {
		for i := range views {
			if views[i].ID == s.current.ID {
				s.current = &views[i]
			}
		}
	}
	return views, nil
}

// Guests lists the account's guests with companions joined.
func (s *Session) Guests(ctx context.Context) ([]record.Guest, error) {
	return s.records.ListGuests(ctx, s.accountID)
}

// IsUnselected reports whether the session is on the ambient configuration
// rather than a persisted view.
func (s *Session) IsUnselected() bool {
	return s.current == nil
}
