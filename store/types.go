package store

import (
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// PK represents a DynamoDB primary key.
type PK map[string]types.AttributeValue

// Item represents a retrieved DynamoDB item with the store-managed fields extracted.
type Item struct {
	// Raw is the raw DynamoDB item.
	Raw map[string]types.AttributeValue

	// CreatedAt is the ISO 8601 creation timestamp.
	CreatedAt string

	// UpdatedAt is the ISO 8601 last update timestamp.
	UpdatedAt string
}

// ConditionCheck defines a parent existence check for transactional writes.
type ConditionCheck struct {
	TableName string
	Key       PK
}

// QueryInput defines parameters for an account-scoped query.
type QueryInput struct {
	// TableName is the DynamoDB table to query.
	TableName string

	// AccountID is the owning account; every query is scoped by it.
	AccountID string

	// SortKeyAttr is the sort key attribute name, required when
	// SortKeyPrefix is set (e.g. "sk" for the companions table).
	SortKeyAttr string

	// SortKeyPrefix restricts results to sort keys with this prefix.
	SortKeyPrefix string

	// IncludeDeleted returns items whose TTL is already set.
	IncludeDeleted bool
}
