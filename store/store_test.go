package store_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/roster/internal/memdb"
	"github.com/jacentio/roster/store"
)

func newTestStore() (*store.Store, *memdb.DB) {
	db := memdb.New()
	cfg := store.DefaultConfig()
	db.CreateTable(cfg.GuestTable, "account_id", "id")
	db.CreateTable(cfg.CompanionTable, "account_id", "sk")
	db.CreateTable(cfg.ViewTable, "account_id", "name")
	return store.New(db, cfg), db
}

func guestItem(account, id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"account_id": &types.AttributeValueMemberS{Value: account},
		"id":         &types.AttributeValueMemberS{Value: id},
	}
}

func guestKey(account, id string) store.PK {
	return store.PK{
		"account_id": &types.AttributeValueMemberS{Value: account},
		"id":         &types.AttributeValueMemberS{Value: id},
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := store.DefaultConfig()

	if cfg.GuestTable != "roster_guests" {
		t.Errorf("expected GuestTable 'roster_guests', got %q", cfg.GuestTable)
	}
	if cfg.CompanionTable != "roster_companions" {
		t.Errorf("expected CompanionTable 'roster_companions', got %q", cfg.CompanionTable)
	}
	if cfg.ViewTable != "roster_views" {
		t.Errorf("expected ViewTable 'roster_views', got %q", cfg.ViewTable)
	}
}

func TestConfigValidation(t *testing.T) {
	db := memdb.New()
	s := store.New(db, store.Config{GuestTable: "custom_guests"})

	cfg := s.Config()
	if cfg.GuestTable != "custom_guests" {
		t.Errorf("expected custom guest table to survive, got %q", cfg.GuestTable)
	}
	if cfg.CompanionTable != "roster_companions" {
		t.Errorf("expected companion table default, got %q", cfg.CompanionTable)
	}
	if cfg.ViewTable != "roster_views" {
		t.Errorf("expected view table default, got %q", cfg.ViewTable)
	}
}

func TestIsDeleted(t *testing.T) {
	tests := []struct {
		name     string
		item     map[string]types.AttributeValue
		expected bool
	}{
		{
			name:     "no ttl attribute",
			item:     map[string]types.AttributeValue{},
			expected: false,
		},
		{
			name: "ttl in past",
			item: map[string]types.AttributeValue{
				"ttl": &types.AttributeValueMemberN{Value: "1"},
			},
			expected: true,
		},
		{
			name: "ttl in future",
			item: map[string]types.AttributeValue{
				"ttl": &types.AttributeValueMemberN{Value: "99999999999"},
			},
			expected: false,
		},
		{
			name: "ttl wrong type",
			item: map[string]types.AttributeValue{
				"ttl": &types.AttributeValueMemberS{Value: "soon"},
			},
			expected: false,
		},
		{
			name: "ttl unparseable",
			item: map[string]types.AttributeValue{
				"ttl": &types.AttributeValueMemberN{Value: "not-a-number"},
			},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := store.IsDeleted(tt.item); got != tt.expected {
				t.Errorf("IsDeleted() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestInsertAndGet(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()

	item := guestItem("acct-1", "g1")
	item["first_name"] = &types.AttributeValueMemberS{Value: "Ada"}

	if err := s.Insert(ctx, s.Config().GuestTable, item, "id"); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	got, err := s.Get(ctx, s.Config().GuestTable, guestKey("acct-1", "g1"))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.CreatedAt == "" || got.UpdatedAt == "" {
		t.Error("expected managed timestamps to be set")
	}
	if v, ok := got.Raw["first_name"].(*types.AttributeValueMemberS); !ok || v.Value != "Ada" {
		t.Errorf("expected first_name 'Ada', got %v", got.Raw["first_name"])
	}
}

func TestInsert_AlreadyExists(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()

	if err := s.Insert(ctx, s.Config().GuestTable, guestItem("acct-1", "g1"), "id"); err != nil {
		t.Fatalf("first Insert: %v", err)
	}
	err := s.Insert(ctx, s.Config().GuestTable, guestItem("acct-1", "g1"), "id")
	if !errors.Is(err, store.ErrAlreadyExists) {
		t.Errorf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestGet_NotFound(t *testing.T) {
	s, _ := newTestStore()

	_, err := s.Get(context.Background(), s.Config().GuestTable, guestKey("acct-1", "missing"))
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestGet_DeletedIsNotFound(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()
	table := s.Config().GuestTable

	if err := s.Insert(ctx, table, guestItem("acct-1", "g1"), "id"); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := s.SetTTL(ctx, table, guestKey("acct-1", "g1")); err != nil {
		t.Fatalf("SetTTL: %v", err)
	}

	_, err := s.Get(ctx, table, guestKey("acct-1", "g1"))
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound after TTL delete, got %v", err)
	}
}

func TestQuery_AccountScoping(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()
	table := s.Config().GuestTable

	for _, pair := range [][2]string{{"acct-1", "g1"}, {"acct-1", "g2"}, {"acct-2", "g3"}} {
		if err := s.Insert(ctx, table, guestItem(pair[0], pair[1]), "id"); err != nil {
			t.Fatalf("Insert %v: %v", pair, err)
		}
	}

	items, err := s.Query(ctx, store.QueryInput{TableName: table, AccountID: "acct-1"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(items) != 2 {
		t.Errorf("expected 2 items for acct-1, got %d", len(items))
	}
}

func TestQuery_SortKeyPrefix(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()
	table := s.Config().CompanionTable

	for _, sk := range []string{"g1#c1", "g1#c2", "g2#c3"} {
		item := map[string]types.AttributeValue{
			"account_id": &types.AttributeValueMemberS{Value: "acct-1"},
			"id":         &types.AttributeValueMemberS{Value: sk},
			"sk":         &types.AttributeValueMemberS{Value: sk},
		}
		if err := s.Insert(ctx, table, item, "id"); err != nil {
			t.Fatalf("Insert %s: %v", sk, err)
		}
	}

	items, err := s.Query(ctx, store.QueryInput{
		TableName:     table,
		AccountID:     "acct-1",
		SortKeyAttr:   "sk",
		SortKeyPrefix: "g1#",
	})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(items) != 2 {
		t.Errorf("expected 2 companions for g1, got %d", len(items))
	}
}

func TestQuery_ExcludesDeleted(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()
	table := s.Config().GuestTable

	if err := s.Insert(ctx, table, guestItem("acct-1", "g1"), "id"); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := s.Insert(ctx, table, guestItem("acct-1", "g2"), "id"); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := s.SetTTL(ctx, table, guestKey("acct-1", "g1")); err != nil {
		t.Fatalf("SetTTL: %v", err)
	}

	items, err := s.Query(ctx, store.QueryInput{TableName: table, AccountID: "acct-1"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 active item, got %d", len(items))
	}

	all, err := s.Query(ctx, store.QueryInput{TableName: table, AccountID: "acct-1", IncludeDeleted: true})
	if err != nil {
		t.Fatalf("Query all: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("expected 2 items including deleted, got %d", len(all))
	}
}

func TestUpsert_ReplacesExisting(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()
	table := s.Config().ViewTable

	first := map[string]types.AttributeValue{
		"account_id": &types.AttributeValueMemberS{Value: "acct-1"},
		"name":       &types.AttributeValueMemberS{Value: "A"},
		"payload":    &types.AttributeValueMemberS{Value: "old"},
	}
	if err := s.Upsert(ctx, table, first); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	second := map[string]types.AttributeValue{
		"account_id": &types.AttributeValueMemberS{Value: "acct-1"},
		"name":       &types.AttributeValueMemberS{Value: "A"},
		"payload":    &types.AttributeValueMemberS{Value: "new"},
	}
	if err := s.Upsert(ctx, table, second); err != nil {
		t.Fatalf("Upsert replace: %v", err)
	}

	items, err := s.Query(ctx, store.QueryInput{TableName: table, AccountID: "acct-1"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item after replace, got %d", len(items))
	}
	if v, ok := items[0].Raw["payload"].(*types.AttributeValueMemberS); !ok || v.Value != "new" {
		t.Errorf("expected payload 'new', got %v", items[0].Raw["payload"])
	}
}

func TestUpdate_PatchesFields(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()
	table := s.Config().GuestTable

	item := guestItem("acct-1", "g1")
	item["first_name"] = &types.AttributeValueMemberS{Value: "Ada"}
	item["email"] = &types.AttributeValueMemberS{Value: "ada@example.com"}
	if err := s.Insert(ctx, table, item, "id"); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	patch := map[string]types.AttributeValue{
		"first_name": &types.AttributeValueMemberS{Value: "Grace"},
	}
	if err := s.Update(ctx, table, guestKey("acct-1", "g1"), patch); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, err := s.Get(ctx, table, guestKey("acct-1", "g1"))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if v := got.Raw["first_name"].(*types.AttributeValueMemberS).Value; v != "Grace" {
		t.Errorf("expected patched first_name 'Grace', got %q", v)
	}
	if v := got.Raw["email"].(*types.AttributeValueMemberS).Value; v != "ada@example.com" {
		t.Errorf("expected untouched email, got %q", v)
	}
}

func TestUpdate_MissingIsNotFound(t *testing.T) {
	s, _ := newTestStore()

	err := s.Update(context.Background(), s.Config().GuestTable, guestKey("acct-1", "missing"),
		map[string]types.AttributeValue{
			"first_name": &types.AttributeValueMemberS{Value: "Ada"},
		})
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSetTTL_Idempotent(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()
	table := s.Config().GuestTable

	if err := s.Insert(ctx, table, guestItem("acct-1", "g1"), "id"); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := s.SetTTL(ctx, table, guestKey("acct-1", "g1")); err != nil {
		t.Fatalf("first SetTTL: %v", err)
	}
	if err := s.SetTTL(ctx, table, guestKey("acct-1", "g1")); err != nil {
		t.Errorf("second SetTTL should be a no-op, got %v", err)
	}
}

func TestDelete_RemovesItem(t *testing.T) {
	s, db := newTestStore()
	ctx := context.Background()
	table := s.Config().ViewTable

	item := map[string]types.AttributeValue{
		"account_id": &types.AttributeValueMemberS{Value: "acct-1"},
		"name":       &types.AttributeValueMemberS{Value: "A"},
	}
	if err := s.Upsert(ctx, table, item); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	key := store.PK{
		"account_id": &types.AttributeValueMemberS{Value: "acct-1"},
		"name":       &types.AttributeValueMemberS{Value: "A"},
	}
	if err := s.Delete(ctx, table, key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if db.Len(table) != 0 {
		t.Errorf("expected hard delete to remove item, table has %d", db.Len(table))
	}
}

func TestInsertChild_GuestMissing(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()

	item := map[string]types.AttributeValue{
		"account_id": &types.AttributeValueMemberS{Value: "acct-1"},
		"id":         &types.AttributeValueMemberS{Value: "c1"},
		"sk":         &types.AttributeValueMemberS{Value: "g1#c1"},
	}
	err := s.InsertChild(ctx, s.Config().CompanionTable, item, store.ConditionCheck{
		TableName: s.Config().GuestTable,
		Key:       guestKey("acct-1", "g1"),
	})
	if !errors.Is(err, store.ErrGuestNotFound) {
		t.Errorf("expected ErrGuestNotFound, got %v", err)
	}
}

func TestInsertChild_Succeeds(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()

	if err := s.Insert(ctx, s.Config().GuestTable, guestItem("acct-1", "g1"), "id"); err != nil {
		t.Fatalf("Insert guest: %v", err)
	}

	item := map[string]types.AttributeValue{
		"account_id": &types.AttributeValueMemberS{Value: "acct-1"},
		"id":         &types.AttributeValueMemberS{Value: "c1"},
		"sk":         &types.AttributeValueMemberS{Value: "g1#c1"},
	}
	if err := s.InsertChild(ctx, s.Config().CompanionTable, item, store.ConditionCheck{
		TableName: s.Config().GuestTable,
		Key:       guestKey("acct-1", "g1"),
	}); err != nil {
		t.Fatalf("InsertChild: %v", err)
	}

	items, err := s.Query(ctx, store.QueryInput{
		TableName:     s.Config().CompanionTable,
		AccountID:     "acct-1",
		SortKeyAttr:   "sk",
		SortKeyPrefix: "g1#",
	})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(items) != 1 {
		t.Errorf("expected 1 companion, got %d", len(items))
	}
}

func TestErrors_Distinct(t *testing.T) {
	errs := []error{store.ErrNotFound, store.ErrAlreadyExists, store.ErrGuestNotFound}
	for i, a := range errs {
		for j, b := range errs {
			if i != j && errors.Is(a, b) {
				t.Errorf("errors %d and %d should be distinct", i, j)
			}
		}
	}
}
