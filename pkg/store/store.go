// Package store defines the repository holding the ad format collection.
// Implementations must provide identical semantics across backends: reads
// return deep copies, ReplaceEvents is atomic with respect to other calls,
// and records come back in ascending id order.
package store

import (
	"context"
	"errors"

	"github.com/wilhg/adformats/pkg/adformat"
)

// ErrNotFound is returned when no record matches the requested id.
var ErrNotFound = errors.New("ad format not found")

// Repository stores ad format records.
type Repository interface {
	// List returns every record ordered by id.
	List(ctx context.Context) ([]adformat.AdFormat, error)
	// Get returns the record with the given id or ErrNotFound.
	Get(ctx context.Context, id int) (adformat.AdFormat, error)
	// ReplaceEvents overwrites the events of one record and returns the
	// updated record, or ErrNotFound without mutating anything.
	ReplaceEvents(ctx context.Context, id int, events []adformat.EventLabel) (adformat.AdFormat, error)
	// Reset discards the current collection and stores records instead.
	Reset(ctx context.Context, records []adformat.AdFormat) error
	// Close releases backend resources.
	Close() error
}
