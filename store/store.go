package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Store provides account-scoped DynamoDB operations for the roster collections.
type Store struct {
	client Client
	config Config
}

// New creates a new Store instance.
func New(client Client, config Config) *Store {
	config.validate()
	return &Store{
		client: client,
		config: config,
	}
}

// Config returns the validated table configuration.
func (s *Store) Config() Config {
	return s.config
}

// Get retrieves an item by key, returning ErrNotFound if deleted or missing.
func (s *Store) Get(ctx context.Context, table string, key PK) (*Item, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(table),
		Key:       key,
	})
	if err != nil {
		return nil, err
	}
	if result.Item == nil {
		return nil, ErrNotFound
	}

	// Check if the record is deleted (has expired TTL)
	if IsDeleted(result.Item) {
		return nil, ErrNotFound
	}

	return unmarshalItem(result.Item), nil
}

// Query returns all items for an account, optionally restricted to a sort-key
// prefix, with automatic TTL filtering. Results come back in sort-key order.
func (s *Store) Query(ctx context.Context, input QueryInput) ([]*Item, error) {
	keyCond := "account_id = :account"
	exprNames := map[string]string{}
	exprValues := map[string]types.AttributeValue{
		":account": &types.AttributeValueMemberS{Value: input.AccountID},
	}

	if input.SortKeyPrefix != "" {
		keyCond += " AND begins_with(#sk, :prefix)"
		exprNames["#sk"] = input.SortKeyAttr
		exprValues[":prefix"] = &types.AttributeValueMemberS{Value: input.SortKeyPrefix}
	}

	queryInput := &dynamodb.QueryInput{
		TableName:                 aws.String(input.TableName),
		KeyConditionExpression:    aws.String(keyCond),
		ExpressionAttributeValues: exprValues,
	}

	if !input.IncludeDeleted {
		queryInput.FilterExpression = aws.String(TTLFilterExpr())
		exprNames["#ttl"] = "ttl"
		exprValues[":now"] = &types.AttributeValueMemberN{
			Value: strconv.FormatInt(time.Now().Unix(), 10),
		}
	}
	if len(exprNames) > 0 {
		queryInput.ExpressionAttributeNames = exprNames
	}

	// Paginate through all results
	var items []*Item
	paginator := dynamodb.NewQueryPaginator(s.client, queryInput)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, raw := range page.Items {
			items = append(items, unmarshalItem(raw))
		}
	}

	return items, nil
}

// Insert creates a new item, failing with ErrAlreadyExists if the key is taken.
// keyAttr names the attribute checked for prior existence (e.g. "id").
func (s *Store) Insert(ctx context.Context, table string, item map[string]types.AttributeValue, keyAttr string) error {
	stampNew(item)

	_, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(table),
		Item:                item,
		ConditionExpression: aws.String(fmt.Sprintf("attribute_not_exists(%s)", keyAttr)),
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return ErrAlreadyExists
		}
		return err
	}
	return nil
}

// InsertChild creates a companion-style item transactionally, validating that
// its guest exists and is not deleted.
func (s *Store) InsertChild(ctx context.Context, table string, item map[string]types.AttributeValue, guestCheck ConditionCheck) error {
	stampNew(item)
	nowUnix := time.Now().Unix()

	guestCheckIndex := 0
	putIndex := 1
	items := []types.TransactWriteItem{
		{
			ConditionCheck: &types.ConditionCheck{
				TableName:           aws.String(guestCheck.TableName),
				Key:                 guestCheck.Key,
				ConditionExpression: aws.String(GuestExistsCondition()),
				ExpressionAttributeNames: map[string]string{
					"#ttl": "ttl",
				},
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":now": &types.AttributeValueMemberN{
						Value: strconv.FormatInt(nowUnix, 10),
					},
				},
			},
		},
		{
			Put: &types.Put{
				TableName:           aws.String(table),
				Item:                item,
				ConditionExpression: aws.String("attribute_not_exists(id)"),
			},
		},
	}

	_, err := s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: items,
	})

	return mapTransactionError(err, guestCheckIndex, putIndex)
}

// Upsert writes an item unconditionally. An existing item under the same key
// is replaced, not merged — last writer wins.
func (s *Store) Upsert(ctx context.Context, table string, item map[string]types.AttributeValue) error {
	now := time.Now().UTC().Format(time.RFC3339)
	if _, ok := item["created_at"]; !ok {
		item["created_at"] = &types.AttributeValueMemberS{Value: now}
	}
	item["updated_at"] = &types.AttributeValueMemberS{Value: now}

	_, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(table),
		Item:      item,
	})
	return err
}

// Update applies a field-level patch to an existing, non-deleted item.
// Concurrent updates race at field granularity; there is no version check.
func (s *Store) Update(ctx context.Context, table string, key PK, attrs map[string]types.AttributeValue) error {
	now := time.Now().UTC().Format(time.RFC3339)

	var setClauses []string
	exprNames := map[string]string{
		"#updated_at": "updated_at",
		"#ttl":        "ttl",
	}
	exprValues := map[string]types.AttributeValue{
		":updated_at": &types.AttributeValueMemberS{Value: now},
		":now": &types.AttributeValueMemberN{
			Value: strconv.FormatInt(time.Now().Unix(), 10),
		},
	}

	i := 0
	for k, v := range attrs {
		// Skip managed fields and key attributes
		if k == "account_id" || k == "id" || k == "sk" ||
			k == "created_at" || k == "updated_at" || k == "ttl" {
			continue
		}
		nameKey := fmt.Sprintf("#attr%d", i)
		valueKey := fmt.Sprintf(":val%d", i)
		exprNames[nameKey] = k
		exprValues[valueKey] = v
		setClauses = append(setClauses, fmt.Sprintf("%s = %s", nameKey, valueKey))
		i++
	}

	setClauses = append(setClauses, "#updated_at = :updated_at")
	updateExpr := "SET " + strings.Join(setClauses, ", ")

	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(table),
		Key:                       key,
		UpdateExpression:          aws.String(updateExpr),
		ConditionExpression:       aws.String("attribute_exists(account_id) AND (attribute_not_exists(#ttl) OR #ttl > :now)"),
		ExpressionAttributeNames:  exprNames,
		ExpressionAttributeValues: exprValues,
	})

	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// Delete removes an item immediately. Used for views, which are not
// soft-deleted: renaming depends on the old name actually going away.
func (s *Store) Delete(ctx context.Context, table string, key PK) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(table),
		Key:       key,
	})
	return err
}

// SetTTL marks a record for deletion by setting its TTL to now.
func (s *Store) SetTTL(ctx context.Context, table string, key PK) error {
	return s.SetTTLAt(ctx, table, key, time.Now().Unix())
}

// SetTTLAt marks a record for deletion with an explicit TTL.
// Used by cascade delete to propagate a guest's TTL to its companions.
func (s *Store) SetTTLAt(ctx context.Context, table string, key PK, ttl int64) error {
	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(table),
		Key:                 key,
		UpdateExpression:    aws.String("SET #ttl = :ttl"),
		ConditionExpression: aws.String("attribute_not_exists(#ttl)"),
		ExpressionAttributeNames: map[string]string{
			"#ttl": "ttl",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":ttl": &types.AttributeValueMemberN{
				Value: strconv.FormatInt(ttl, 10),
			},
		},
	})

	// Ignore condition failure - already has TTL (already deleted)
	var condErr *types.ConditionalCheckFailedException
	if errors.As(err, &condErr) {
		return nil
	}
	return err
}

// stampNew sets the managed timestamp fields on a fresh item.
func stampNew(item map[string]types.AttributeValue) {
	nowISO := time.Now().UTC().Format(time.RFC3339)
	item["created_at"] = &types.AttributeValueMemberS{Value: nowISO}
	item["updated_at"] = &types.AttributeValueMemberS{Value: nowISO}
}

// mapTransactionError maps DynamoDB transaction errors for InsertChild.
func mapTransactionError(err error, guestCheckIndex, putIndex int) error {
	if err == nil {
		return nil
	}

	var txErr *types.TransactionCanceledException
	if errors.As(err, &txErr) {
		for i, reason := range txErr.CancellationReasons {
			if reason.Code != nil && *reason.Code == "ConditionalCheckFailed" {
				if i == guestCheckIndex {
					return ErrGuestNotFound
				}
				if i == putIndex {
					return ErrAlreadyExists
				}
			}
		}
	}

	return err
}

// unmarshalItem converts a DynamoDB item to an Item struct.
func unmarshalItem(raw map[string]types.AttributeValue) *Item {
	item := &Item{Raw: raw}

	if v, ok := raw["created_at"].(*types.AttributeValueMemberS); ok {
		item.CreatedAt = v.Value
	}
	if v, ok := raw["updated_at"].(*types.AttributeValueMemberS); ok {
		item.UpdatedAt = v.Value
	}

	return item
}
