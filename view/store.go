package view

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/jacentio/roster/store"
)

var (
	// ErrBlankName is returned when saving or renaming a view to a blank name.
	ErrBlankName = errors.New("roster: view name is blank")

	// ErrViewNotFound is returned when an operation references a view ID
	// that doesn't exist for the account.
	ErrViewNotFound = errors.New("roster: view not found")
)

// Store persists views through the DynamoDB layer. Views are keyed by
// (account, name); the key is the upsert conflict key, so a save under an
// existing name silently replaces it — last writer wins, never a merge.
type Store struct {
	db     *store.Store
	logger *slog.Logger
}

// NewStore creates a view store. A nil logger falls back to slog.Default.
func NewStore(db *store.Store, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger}
}

// SaveAsNew persists a snapshot under a name, replacing any existing view
// with that name for the account.
func (s *Store) SaveAsNew(ctx context.Context, accountID, name string, snap Snapshot) (View, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return View{}, ErrBlankName
	}

	v := View{
		ID:        uuid.NewString(),
		AccountID: accountID,
		Name:      name,
		Snapshot:  snap,
	}
	if err := s.put(ctx, v); err != nil {
		return View{}, fmt.Errorf("save view %q: %w", name, err)
	}

	s.logger.Info("saved view", "account", accountID, "view", name)
	return v, nil
}

// Rename moves a view to a new name, carrying the given snapshot. When the
// name actually changes, the old record is deleted before the new one is
// written: the two steps are not atomic, so a failure in between can leave
// the view absent under both names. Callers should re-read the view list
// rather than trust local state after an error.
func (s *Store) Rename(ctx context.Context, accountID, id, newName string, snap Snapshot) (View, error) {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return View{}, ErrBlankName
	}

	current, err := s.byID(ctx, accountID, id)
	if err != nil {
		return View{}, err
	}

	renamed := *current
	renamed.Name = newName
	renamed.Snapshot = snap

	if current.Name != newName {
		if err := s.db.Delete(ctx, s.db.Config().ViewTable, viewKey(accountID, current.Name)); err != nil {
			return View{}, fmt.Errorf("delete old view name %q: %w", current.Name, err)
		}
	}
	if err := s.put(ctx, renamed); err != nil {
		return View{}, fmt.Errorf("save renamed view %q: %w", newName, err)
	}

	s.logger.Info("renamed view", "account", accountID, "from", current.Name, "to", newName)
	return renamed, nil
}

// SetDefault flags one view as the account default and clears the flag on
// every other view, one update per view. The updates are not transactional:
// a failure partway can transiently leave zero or several defaults, and
// callers must re-read the view list to observe the settled state.
func (s *Store) SetDefault(ctx context.Context, accountID, id string) error {
	views, err := s.List(ctx, accountID)
	if err != nil {
		return err
	}

	found := false
	for _, v := range views {
		if v.ID == id {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrViewNotFound, id)
	}

	for _, v := range views {
		isDefault := v.ID == id
		if v.IsDefault == isDefault {
			continue
		}
		patch := map[string]types.AttributeValue{
			"is_default": &types.AttributeValueMemberBOOL{Value: isDefault},
		}
		if err := s.db.Update(ctx, s.db.Config().ViewTable, viewKey(accountID, v.Name), patch); err != nil {
			return fmt.Errorf("update default flag on %q: %w", v.Name, err)
		}
	}

	s.logger.Info("set default view", "account", accountID, "view", id)
	return nil
}

// Delete removes a view by ID. Unknown IDs are a no-op.
func (s *Store) Delete(ctx context.Context, accountID, id string) error {
	current, err := s.byID(ctx, accountID, id)
	if errors.Is(err, ErrViewNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if err := s.db.Delete(ctx, s.db.Config().ViewTable, viewKey(accountID, current.Name)); err != nil {
		return fmt.Errorf("delete view %q: %w", current.Name, err)
	}

	s.logger.Info("deleted view", "account", accountID, "view", current.Name)
	return nil
}

// Get returns the view saved under a name.
func (s *Store) Get(ctx context.Context, accountID, name string) (View, error) {
	item, err := s.db.Get(ctx, s.db.Config().ViewTable, viewKey(accountID, name))
	if errors.Is(err, store.ErrNotFound) {
		return View{}, fmt.Errorf("%w: %q", ErrViewNotFound, name)
	}
	if err != nil {
		return View{}, err
	}

	var v View
	if err := attributevalue.UnmarshalMap(item.Raw, &v); err != nil {
		return View{}, fmt.Errorf("unmarshal view: %w", err)
	}
	return v, nil
}

// List returns all of an account's views in name order.
func (s *Store) List(ctx context.Context, accountID string) ([]View, error) {
	items, err := s.db.Query(ctx, store.QueryInput{
		TableName: s.db.Config().ViewTable,
		AccountID: accountID,
	})
	if err != nil {
		return nil, fmt.Errorf("query views: %w", err)
	}

	views := make([]View, 0, len(items))
	for _, item := range items {
		var v View
		if err := attributevalue.UnmarshalMap(item.Raw, &v); err != nil {
			return nil, fmt.Errorf("unmarshal view: %w", err)
		}
		views = append(views, v)
	}
	return views, nil
}

func (s *Store) put(ctx context.Context, v View) error {
	item, err := attributevalue.MarshalMap(v)
	if err != nil {
		return fmt.Errorf("marshal view: %w", err)
	}
	return s.db.Upsert(ctx, s.db.Config().ViewTable, item)
}

func (s *Store) byID(ctx context.Context, accountID, id string) (*View, error) {
	views, err := s.List(ctx, accountID)
	if err != nil {
		return nil, err
	}
	for i := range views {
		if views[i].ID == id {
			return &views[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrViewNotFound, id)
}

func viewKey(accountID, name string) store.PK {
	return store.PK{
		"account_id": &types.AttributeValueMemberS{Value: accountID},
		"name":       &types.AttributeValueMemberS{Value: name},
	}
}
