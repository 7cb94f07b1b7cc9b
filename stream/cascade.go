// Package stream provides the DynamoDB Streams handler that cascades guest
// deletion to companions.
package stream

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/aws/aws-lambda-go/events"

	"github.com/jacentio/roster/internal/keys"
	"github.com/jacentio/roster/store"
)

// Handler processes guest-table stream events, propagating a newly set TTL
// to the guest's companions.
type Handler struct {
	store  *store.Store
	logger *slog.Logger
}

// NewHandler creates a new stream handler.
func NewHandler(s *store.Store, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		store:  s,
		logger: logger,
	}
}

// HandleCascadeDelete processes DynamoDB stream events from the guest table.
// This function is designed to be used as an AWS Lambda handler.
func (h *Handler) HandleCascadeDelete(ctx context.Context, event events.DynamoDBEvent) error {
	for _, rec := range event.Records {
		if err := h.processRecord(ctx, rec); err != nil {
			h.logger.Error("failed to process record",
				"eventID", rec.EventID,
				"error", err,
			)
			return err // Will retry, eventually DLQ
		}
	}
	return nil
}

// processRecord handles a single stream record. Only MODIFY events where a
// TTL was newly set are cascaded; everything else is ignored.
func (h *Handler) processRecord(ctx context.Context, rec events.DynamoDBEventRecord) error {
	if rec.EventName != "MODIFY" {
		return nil
	}

	oldTTL := getNumberAttr(rec.Change.OldImage, "ttl")
	newTTL := getNumberAttr(rec.Change.NewImage, "ttl")
	if oldTTL != 0 || newTTL == 0 {
		return nil
	}

	accountID := getStringAttr(rec.Change.NewImage, "account_id")
	guestID := getStringAttr(rec.Change.NewImage, "id")
	if accountID == "" || guestID == "" {
		return nil
	}

	h.logger.Info("cascading guest delete",
		"account", accountID,
		"guest", keys.GuestRef(guestID),
		"ttl", newTTL,
	)

	companions, err := h.companionKeys(ctx, accountID, guestID)
	if err != nil {
		return fmt.Errorf("query companions: %w", err)
	}

	// Setting the same TTL on every companion is idempotent: already-deleted
	// companions are skipped by the conditional write.
	for _, key := range companions {
		if err := h.store.SetTTLAt(ctx, h.store.Config().CompanionTable, key, newTTL); err != nil {
			h.logger.Warn("failed to set TTL on companion",
				"guest", keys.GuestRef(guestID),
				"error", err,
			)
			// Continue - idempotent, will retry
		}
	}

	h.logger.Info("cascade delete completed",
		"account", accountID,
		"guest", keys.GuestRef(guestID),
		"companions", len(companions),
	)

	return nil
}

// companionKeys returns the table keys of every companion of a guest,
// including already-deleted ones so retries stay idempotent.
func (h *Handler) companionKeys(ctx context.Context, accountID, guestID string) ([]store.PK, error) {
	items, err := h.store.Query(ctx, store.QueryInput{
		TableName:      h.store.Config().CompanionTable,
		AccountID:      accountID,
		SortKeyAttr:    "sk",
		SortKeyPrefix:  keys.CompanionPrefix(guestID),
		IncludeDeleted: true,
	})
	if err != nil {
		return nil, err
	}

	pks := make([]store.PK, 0, len(items))
	for _, item := range items {
		pks = append(pks, store.PK{
			"account_id": item.Raw["account_id"],
			"sk":         item.Raw["sk"],
		})
	}
	return pks, nil
}

// getStringAttr extracts a string attribute from a DynamoDB stream image.
func getStringAttr(image map[string]events.DynamoDBAttributeValue, key string) string {
	if v, ok := image[key]; ok {
		return v.String()
	}
	return ""
}

// getNumberAttr extracts a number attribute from a DynamoDB stream image.
func getNumberAttr(image map[string]events.DynamoDBAttributeValue, key string) int64 {
	if v, ok := image[key]; ok {
		if v.DataType() == events.DataTypeNumber {
			n, _ := strconv.ParseInt(v.Number(), 10, 64)
			return n
		}
	}
	return 0
}
