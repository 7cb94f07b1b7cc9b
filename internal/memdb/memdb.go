// Package memdb implements an in-memory stand-in for the narrow DynamoDB
// client surface the store uses. It understands only the expression shapes
// the store actually issues; it is a test double, not a DynamoDB emulator.
package memdb

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// tableDef describes a table's key schema.
type tableDef struct {
	pkAttr string
	skAttr string // empty for simple keys
}

// DB is an in-memory DynamoDB double.
type DB struct {
	mu     sync.Mutex
	tables map[string]tableDef
	items  map[string]map[string]map[string]types.AttributeValue // table -> flatKey -> item

	// FailNext, when set, makes the next API call return this error.
	FailNext error
}

// New creates an empty DB.
func New() *DB {
	return &DB{
		tables: make(map[string]tableDef),
		items:  make(map[string]map[string]map[string]types.AttributeValue),
	}
}

// CreateTable registers a table with its key attribute names.
// Pass skAttr == "" for a simple (partition-only) key.
func (d *DB) CreateTable(name, pkAttr, skAttr string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tables[name] = tableDef{pkAttr: pkAttr, skAttr: skAttr}
	d.items[name] = make(map[string]map[string]types.AttributeValue)
}

// Len returns the number of items in a table (including TTL-deleted ones).
func (d *DB) Len(table string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.items[table])
}

func (d *DB) takeFailure() error {
	err := d.FailNext
	d.FailNext = nil
	return err
}

func attrString(av types.AttributeValue) string {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return v.Value
	case *types.AttributeValueMemberN:
		return v.Value
	default:
		return ""
	}
}

func (d *DB) flatKey(def tableDef, item map[string]types.AttributeValue) string {
	key := attrString(item[def.pkAttr])
	if def.skAttr != "" {
		key += "\x00" + attrString(item[def.skAttr])
	}
	return key
}

func copyItem(item map[string]types.AttributeValue) map[string]types.AttributeValue {
	out := make(map[string]types.AttributeValue, len(item))
	for k, v := range item {
		out[k] = v
	}
	return out
}

func isDeleted(item map[string]types.AttributeValue) bool {
	av, ok := item["ttl"]
	if !ok {
		return false
	}
	n, ok := av.(*types.AttributeValueMemberN)
	if !ok {
		return false
	}
	ttl, err := strconv.ParseInt(n.Value, 10, 64)
	if err != nil {
		return false
	}
	return ttl <= time.Now().Unix()
}

// GetItem implements the client interface.
func (d *DB) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.takeFailure(); err != nil {
		return nil, err
	}

	table := *params.TableName
	def, ok := d.tables[table]
	if !ok {
		return nil, fmt.Errorf("memdb: unknown table %q", table)
	}

	item, ok := d.items[table][d.flatKey(def, params.Key)]
	if !ok {
		return &dynamodb.GetItemOutput{}, nil
	}
	return &dynamodb.GetItemOutput{Item: copyItem(item)}, nil
}

// PutItem implements the client interface. The only condition expression
// recognized is "attribute_not_exists(X)".
func (d *DB) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.takeFailure(); err != nil {
		return nil, err
	}

	table := *params.TableName
	def, ok := d.tables[table]
	if !ok {
		return nil, fmt.Errorf("memdb: unknown table %q", table)
	}

	key := d.flatKey(def, params.Item)
	if params.ConditionExpression != nil {
		expr := *params.ConditionExpression
		if strings.HasPrefix(expr, "attribute_not_exists(") {
			if _, exists := d.items[table][key]; exists {
				return nil, &types.ConditionalCheckFailedException{}
			}
		}
	}

	d.items[table][key] = copyItem(params.Item)
	return &dynamodb.PutItemOutput{}, nil
}

// DeleteItem implements the client interface.
func (d *DB) DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.takeFailure(); err != nil {
		return nil, err
	}

	table := *params.TableName
	def, ok := d.tables[table]
	if !ok {
		return nil, fmt.Errorf("memdb: unknown table %q", table)
	}

	delete(d.items[table], d.flatKey(def, params.Key))
	return &dynamodb.DeleteItemOutput{}, nil
}

// UpdateItem implements the client interface. Supports "SET a = :v, ..."
// expressions plus the store's not-deleted / not-already-deleted conditions.
func (d *DB) UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.takeFailure(); err != nil {
		return nil, err
	}

	table := *params.TableName
	def, ok := d.tables[table]
	if !ok {
		return nil, fmt.Errorf("memdb: unknown table %q", table)
	}

	key := d.flatKey(def, params.Key)
	item, exists := d.items[table][key]

	if params.ConditionExpression != nil {
		expr := *params.ConditionExpression
		switch {
		case strings.Contains(expr, "attribute_exists"):
			if !exists || isDeleted(item) {
				return nil, &types.ConditionalCheckFailedException{}
			}
		case strings.Contains(expr, "attribute_not_exists(#ttl)"):
			if exists {
				if _, hasTTL := item["ttl"]; hasTTL {
					return nil, &types.ConditionalCheckFailedException{}
				}
			}
		}
	}

	if !exists {
		item = copyItem(params.Key)
	} else {
		item = copyItem(item)
	}

	if err := applySet(item, params.UpdateExpression, params.ExpressionAttributeNames, params.ExpressionAttributeValues); err != nil {
		return nil, err
	}

	d.items[table][key] = item
	return &dynamodb.UpdateItemOutput{}, nil
}

// applySet applies a "SET name = value, ..." update expression.
func applySet(item map[string]types.AttributeValue, expr *string, names map[string]string, values map[string]types.AttributeValue) error {
	if expr == nil {
		return nil
	}
	s := strings.TrimPrefix(*expr, "SET ")
	for _, clause := range strings.Split(s, ", ") {
		parts := strings.SplitN(clause, " = ", 2)
		if len(parts) != 2 {
			return fmt.Errorf("memdb: unsupported update clause %q", clause)
		}
		name := parts[0]
		if resolved, ok := names[name]; ok {
			name = resolved
		}
		value, ok := values[parts[1]]
		if !ok {
			return fmt.Errorf("memdb: unresolved value %q", parts[1])
		}
		item[name] = value
	}
	return nil
}

// Query implements the client interface. Recognizes the store's key
// conditions: "account_id = :account" with an optional begins_with clause.
func (d *DB) Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.takeFailure(); err != nil {
		return nil, err
	}

	table := *params.TableName
	def, ok := d.tables[table]
	if !ok {
		return nil, fmt.Errorf("memdb: unknown table %q", table)
	}

	account := attrString(params.ExpressionAttributeValues[":account"])
	var prefix string
	if strings.Contains(*params.KeyConditionExpression, "begins_with") {
		prefix = attrString(params.ExpressionAttributeValues[":prefix"])
	}
	filterDeleted := params.FilterExpression != nil && strings.Contains(*params.FilterExpression, "#ttl")

	type entry struct {
		sortKey string
		item    map[string]types.AttributeValue
	}
	var matched []entry
	for _, item := range d.items[table] {
		if attrString(item[def.pkAttr]) != account {
			continue
		}
		sortKey := ""
		if def.skAttr != "" {
			sortKey = attrString(item[def.skAttr])
		}
		if prefix != "" && !strings.HasPrefix(sortKey, prefix) {
			continue
		}
		if filterDeleted && isDeleted(item) {
			continue
		}
		matched = append(matched, entry{sortKey: sortKey, item: copyItem(item)})
	}

	// DynamoDB returns items in sort-key order within a partition.
	sort.Slice(matched, func(i, j int) bool { return matched[i].sortKey < matched[j].sortKey })

	out := &dynamodb.QueryOutput{}
	for _, e := range matched {
		out.Items = append(out.Items, e.item)
	}
	return out, nil
}

// TransactWriteItems implements the client interface for the store's
// guest-check-plus-put transaction shape.
func (d *DB) TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.takeFailure(); err != nil {
		return nil, err
	}

	conditionFailed := func(index int) error {
		code := "ConditionalCheckFailed"
		reasons := make([]types.CancellationReason, len(params.TransactItems))
		reasons[index] = types.CancellationReason{Code: &code}
		return &types.TransactionCanceledException{CancellationReasons: reasons}
	}

	// Validate all condition checks before applying any writes.
	for i, tx := range params.TransactItems {
		switch {
		case tx.ConditionCheck != nil:
			def, ok := d.tables[*tx.ConditionCheck.TableName]
			if !ok {
				return nil, fmt.Errorf("memdb: unknown table %q", *tx.ConditionCheck.TableName)
			}
			item, exists := d.items[*tx.ConditionCheck.TableName][d.flatKey(def, tx.ConditionCheck.Key)]
			if !exists || isDeleted(item) {
				return nil, conditionFailed(i)
			}
		case tx.Put != nil:
			def, ok := d.tables[*tx.Put.TableName]
			if !ok {
				return nil, fmt.Errorf("memdb: unknown table %q", *tx.Put.TableName)
			}
			if tx.Put.ConditionExpression != nil && strings.HasPrefix(*tx.Put.ConditionExpression, "attribute_not_exists") {
				if _, exists := d.items[*tx.Put.TableName][d.flatKey(def, tx.Put.Item)]; exists {
					return nil, conditionFailed(i)
				}
			}
		}
	}

	for _, tx := range params.TransactItems {
		if tx.Put != nil {
			def := d.tables[*tx.Put.TableName]
			d.items[*tx.Put.TableName][d.flatKey(def, tx.Put.Item)] = copyItem(tx.Put.Item)
		}
	}

	return &dynamodb.TransactWriteItemsOutput{}, nil
}
