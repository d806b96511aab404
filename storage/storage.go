package storage

import (
	"context"
	"time"

	"github.com/sig-0/bnarates/storage/types"
)

// Storage is an abstraction over the persisted sell rates.
// Implementations keep at most one record per date
type Storage interface {
	// Upsert validates and saves the record, replacing any record for the same date
	Upsert(context.Context, *types.RateRecord) error

	// Recent fetches the most recently fetched records, newest first
	Recent(context.Context, int) ([]*types.RateRecord, error)

	// All fetches every record, newest date first
	All(context.Context) ([]*types.RateRecord, error)

	// InRange fetches the records within the inclusive date range, oldest first
	InRange(context.Context, time.Time, time.Time) ([]*types.RateRecord, error)

	// Stats computes the aggregate statistics of the stored records
	Stats(context.Context) (*types.Stats, error)
}
