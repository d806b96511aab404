package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sig-0/bnarates/storage/types"
)

// scheduledIngest is a single scheduled Provider ingest job
type scheduledIngest struct {
	at         time.Time
	provider   Provider
	providerID xid.ID
}

// Less is utilized to sort scheduled ingests by their due-time (latest == first)
func (a scheduledIngest) Less(b scheduledIngest) bool {
	return a.at.Before(b.at)
}

// workerInfo is the work context for the provider routine
type workerInfo struct {
	provider   Provider
	resCh      chan<- *workerResponse
	providerID xid.ID
}

// workerResponse is the provider routine response
type workerResponse struct {
	error      error               // encountered error, if any
	records    []*types.RateRecord // the fetched rate records
	providerID xid.ID              // the provider ID
}

// handleJob fetches using the provider
func handleJob(
	ctx context.Context,
	info *workerInfo,
) {
	records, err := safeFetch(ctx, info.provider)

	response := &workerResponse{
		error:      err,
		records:    records,
		providerID: info.providerID,
	}

	select {
	case <-ctx.Done():
	case info.resCh <- response:
	}
}

// safeFetch runs the provider fetch, turning a panic into an error
func safeFetch(ctx context.Context, p Provider) (records []*types.RateRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			records = nil
			err = fmt.Errorf("%w: %v", errPanic, r)
		}
	}()

	return p.Fetch(ctx)
}
