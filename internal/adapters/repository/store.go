// Package repository stores recorded checkpoint events.
package repository

import (
	"context"

	"github.com/okian/checkpoint/internal/domain/model"
)

// Store provides read/write access to recorded events.
type Store interface {
	// Append assigns the next sequential ID to e, stores it and returns the stored copy.
	Append(ctx context.Context, e model.Event) (model.Event, error)

	// List returns events newest first, filtered by f and truncated to f.Limit when positive.
	List(ctx context.Context, f model.Filter) ([]model.Event, error)

	// Count returns the number of events currently held.
	Count(ctx context.Context) int
}
