// Package repository keeps player profiles in memory. Profiles are spread
// over independently locked shards so that bays working on different
// players never contend on one lock.
package repository

import "context"

// Store provides keyed access to records of type V.
type Store[V any] interface {
	// Create adds v under id. Returns ErrExists if id is taken.
	Create(ctx context.Context, id string, v V) error
	// Get returns the record for id or ErrNotFound.
	Get(ctx context.Context, id string) (V, error)
	// Delete removes id. Returns ErrNotFound if it is unknown.
	Delete(ctx context.Context, id string) error
	// Range calls fn for every record until fn returns false. Order is
	// unspecified.
	Range(ctx context.Context, fn func(id string, v V) bool)
	// Count returns the number of records.
	Count(ctx context.Context) int
}
