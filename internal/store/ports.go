package store

import "context"

// Snapshot keys shared by every backend.
const (
	KeySummaries = "summariesByMonth"
	KeyTotals    = "fields"
)

// Ports for persistence adapters.
type (
	// KeyValueStore is an opaque string store. Save and Remove apply all of
	// their keys or none of them.
	KeyValueStore interface {
		// Load returns the values of the requested keys; absent keys are omitted.
		Load(ctx context.Context, keys ...string) (map[string]string, error)
		// Save writes every value in one operation.
		Save(ctx context.Context, values map[string]string) error
		// Remove deletes the keys. Missing keys are not an error.
		Remove(ctx context.Context, keys ...string) error
		Close() error
	}
)
