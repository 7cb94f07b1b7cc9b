// Package store provides the DynamoDB data access layer for the roster
// collections: guests, companions, and saved views.
//
// Every operation is scoped by an owning account ID supplied by the caller;
// the store performs no authorization beyond that scoping.
//
// # Collections
//
//   - Guests: partition key account_id, sort key id.
//   - Companions: partition key account_id, sort key "<guest_id>#<companion_id>",
//     so a single prefix query returns one guest's companions in order.
//   - Views: partition key account_id, sort key name. The table key is also
//     the upsert conflict key: writing a view under an existing name
//     replaces it (last writer wins).
//
// # Deletion
//
// Guests and companions are soft-deleted by setting a TTL, which both hides
// them from queries immediately and lets DynamoDB Streams propagate the
// delete to a guest's companions (see the stream package). Views are
// hard-deleted, because rename semantics require the old name to be gone.
//
// # Concurrency
//
// There is no optimistic locking. Concurrent editors race at field
// granularity on Update and at whole-item granularity on Upsert; the last
// write wins. The engine assumes a single logical editor per account.
//
// # Errors
//
//   - [ErrNotFound] - record doesn't exist or is deleted
//   - [ErrAlreadyExists] - insert hit an existing key
//   - [ErrGuestNotFound] - companion creation failed guest validation
//
// Transport failures from the SDK are propagated as-is so callers can see
// which collection failed.
package store
