package record

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/jacentio/roster/internal/keys"
	"github.com/jacentio/roster/store"
)

// Repository persists guests and companions through the store.
type Repository struct {
	db     *store.Store
	logger *slog.Logger
}

// NewRepository creates a repository. A nil logger falls back to slog.Default.
func NewRepository(db *store.Store, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{db: db, logger: logger}
}

// CreateGuest inserts a new guest, generating an ID when absent.
func (r *Repository) CreateGuest(ctx context.Context, g *Guest) error {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	item, err := attributevalue.MarshalMap(g)
	if err != nil {
		return fmt.Errorf("marshal guest: %w", err)
	}

	if err := r.db.Insert(ctx, r.db.Config().GuestTable, item, "id"); err != nil {
		return fmt.Errorf("insert guest: %w", err)
	}
	return nil
}

// CreateCompanion inserts a new companion, validating transactionally that
// its guest exists and is not deleted.
func (r *Repository) CreateCompanion(ctx context.Context, c *Companion) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	item, err := attributevalue.MarshalMap(c)
	if err != nil {
		return fmt.Errorf("marshal companion: %w", err)
	}
	item["sk"] = &types.AttributeValueMemberS{Value: keys.CompanionSK(c.GuestID, c.ID)}

	err = r.db.InsertChild(ctx, r.db.Config().CompanionTable, item, store.ConditionCheck{
		TableName: r.db.Config().GuestTable,
		Key:       guestKey(c.AccountID, c.GuestID),
	})
	if err != nil {
		return fmt.Errorf("insert companion: %w", err)
	}
	return nil
}

// UpdateGuest patches a guest's stored fields. Fields race at attribute
// granularity: the last writer wins per field.
func (r *Repository) UpdateGuest(ctx context.Context, g *Guest) error {
	item, err := attributevalue.MarshalMap(g)
	if err != nil {
		return fmt.Errorf("marshal guest: %w", err)
	}
	if err := r.db.Update(ctx, r.db.Config().GuestTable, guestKey(g.AccountID, g.ID), item); err != nil {
		return fmt.Errorf("update guest: %w", err)
	}
	return nil
}

// UpdateCompanion patches a companion's stored fields.
func (r *Repository) UpdateCompanion(ctx context.Context, c *Companion) error {
	item, err := attributevalue.MarshalMap(c)
	if err != nil {
		return fmt.Errorf("marshal companion: %w", err)
	}
	key := companionKey(c.AccountID, c.GuestID, c.ID)
	if err := r.db.Update(ctx, r.db.Config().CompanionTable, key, item); err != nil {
		return fmt.Errorf("update companion: %w", err)
	}
	return nil
}

// DeleteGuest soft-deletes a guest by setting its TTL. Companion cleanup is
// propagated by the stream cascade handler.
func (r *Repository) DeleteGuest(ctx context.Context, accountID, guestID string) error {
	r.logger.Info("deleting guest", "account", accountID, "guest", keys.GuestRef(guestID))
	return r.db.SetTTL(ctx, r.db.Config().GuestTable, guestKey(accountID, guestID))
}

// DeleteCompanion soft-deletes a single companion.
func (r *Repository) DeleteCompanion(ctx context.Context, accountID, guestID, companionID string) error {
	r.logger.Info("deleting companion", "account", accountID, "companion", keys.CompanionRef(companionID))
	return r.db.SetTTL(ctx, r.db.Config().CompanionTable, companionKey(accountID, guestID, companionID))
}

// ListGuests returns an account's guests with their companions joined in
// memory. Companions are fetched independently of guests and attached by
// back-reference; each guest's companions keep their fetch order.
func (r *Repository) ListGuests(ctx context.Context, accountID string) ([]Guest, error) {
	guestItems, err := r.db.Query(ctx, store.QueryInput{
		TableName: r.db.Config().GuestTable,
		AccountID: accountID,
	})
	if err != nil {
		return nil, fmt.Errorf("query guests: %w", err)
	}

	companionItems, err := r.db.Query(ctx, store.QueryInput{
		TableName: r.db.Config().CompanionTable,
		AccountID: accountID,
	})
	if err != nil {
		return nil, fmt.Errorf("query companions: %w", err)
	}

	byGuest := make(map[string][]Companion)
	for _, item := range companionItems {
		var c Companion
		if err := attributevalue.UnmarshalMap(item.Raw, &c); err != nil {
			return nil, fmt.Errorf("unmarshal companion: %w", err)
		}
		byGuest[c.GuestID] = append(byGuest[c.GuestID], c)
	}

	guests := make([]Guest, 0, len(guestItems))
	for _, item := range guestItems {
		var g Guest
		if err := attributevalue.UnmarshalMap(item.Raw, &g); err != nil {
			return nil, fmt.Errorf("unmarshal guest: %w", err)
		}
		g.Companions = byGuest[g.ID]
		guests = append(guests, g)
	}

	return guests, nil
}

// ListCompanions returns the companions of one guest in fetch order.
func (r *Repository) ListCompanions(ctx context.Context, accountID, guestID string) ([]Companion, error) {
	items, err := r.db.Query(ctx, store.QueryInput{
		TableName:     r.db.Config().CompanionTable,
		AccountID:     accountID,
		SortKeyAttr:   "sk",
		SortKeyPrefix: keys.CompanionPrefix(guestID),
	})
	if err != nil {
		return nil, fmt.Errorf("query companions: %w", err)
	}

	companions := make([]Companion, 0, len(items))
	for _, item := range items {
		var c Companion
		if err := attributevalue.UnmarshalMap(item.Raw, &c); err != nil {
			return nil, fmt.Errorf("unmarshal companion: %w", err)
		}
		companions = append(companions, c)
	}
	return companions, nil
}

func guestKey(accountID, guestID string) store.PK {
	return store.PK{
		"account_id": &types.AttributeValueMemberS{Value: accountID},
		"id":         &types.AttributeValueMemberS{Value: guestID},
	}
}

func companionKey(accountID, guestID, companionID string) store.PK {
	return store.PK{
		"account_id": &types.AttributeValueMemberS{Value: accountID},
		"sk":         &types.AttributeValueMemberS{Value: keys.CompanionSK(guestID, companionID)},
	}
}
