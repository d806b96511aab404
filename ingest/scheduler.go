package ingest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/rs/xid"
	"github.com/sig-0/iq"

	"github.com/sig-0/bnarates/storage"
)

const (
	defaultQueryInterval = time.Second
	defaultRetryDelay    = time.Minute
	defaultSaveTimeout   = 10 * time.Second
)

var (
	errInvalidProvider = errors.New("invalid provider")
	errInvalidInterval = errors.New("invalid interval")
)

// Scheduler is the job scheduler for registered providers.
// Each provider runs on its own interval, and its records are saved to the storage
type Scheduler struct {
	storage storage.Storage
	logger  *slog.Logger

	registeredProviders sync.Map

	q             iq.Queue[scheduledIngest]
	queryInterval time.Duration
	retryDelay    time.Duration
	qMux          sync.Mutex
}

// NewScheduler creates a new Scheduler instance
func NewScheduler(storage storage.Storage, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		storage:       storage,
		q:             iq.NewQueue[scheduledIngest](),
		queryInterval: defaultQueryInterval,
		retryDelay:    defaultRetryDelay,
	}

	// Apply the options
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Register registers a new provider with the scheduler.
// The provider is immediately queued up for execution
func (s *Scheduler) Register(p Provider) error {
	if p == nil || p.Name() == "" {
		return errInvalidProvider
	}

	if p.Interval() <= 0 {
		return errInvalidInterval
	}

	// Register the provider
	id := xid.New()
	s.registeredProviders.Store(id, p)

	s.logger.Info(
		"registered new provider",
		"name", p.Name(),
		"interval", p.Interval().String(),
	)

	// Schedule the job
	s.scheduleIngest(
		time.Now().UTC(),
		id,
		p,
	)

	return nil
}

// Start starts the provider scheduling loop [BLOCKING]
func (s *Scheduler) Start(ctx context.Context) error {
	collectorCh := make(chan *workerResponse, 100)

	// Start a listener for monitoring jobs
	ticker := time.NewTicker(s.queryInterval)
	defer ticker.Stop()

	// handleIngest initializes all jobs that are executable (due)
	handleIngest := func() {
		for {
			select {
			case <-ctx.Done():
				return
			default:
				nextSI := s.nextIngest()
				if nextSI == nil {
					return // nothing to schedule anymore
				}

				s.logger.Info(
					"scheduling ingest",
					"name", nextSI.provider.Name(),
				)

				// Spawn worker
				info := &workerInfo{
					provider:   nextSI.provider,
					providerID: nextSI.providerID,
					resCh:      collectorCh,
				}

				go handleJob(ctx, info)
			}
		}
	}

	// Initialize the first set of due jobs (on boot)
	handleIngest()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler shut down")

			return nil
		case <-ticker.C:
			handleIngest()
		case response := <-collectorCh:
			s.handleResponse(ctx, response)
		}
	}
}

// handleResponse saves a finished job's records and reschedules the provider
func (s *Scheduler) handleResponse(ctx context.Context, response *workerResponse) {
	now := time.Now().UTC()

	rpRaw, ok := s.registeredProviders.Load(response.providerID)
	if !ok {
		s.logger.Error(
			"unable to load registered provider",
			"id", response.providerID.String(),
		)

		return
	}

	rp, _ := rpRaw.(Provider)

	if response.error != nil {
		s.logger.Error(
			"error encountered during rate fetch",
			"name", rp.Name(),
			"err", response.error.Error(),
		)

		// Retry ingest job soon
		s.scheduleIngest(
			now.Add(s.retryDelay),
			response.providerID,
			rp,
		)

		return
	}

	// Save the provider-fetched rates
	for _, record := range response.records {
		saveCtx, cancelFn := context.WithTimeout(ctx, defaultSaveTimeout)

		if err := s.storage.Upsert(saveCtx, record); err != nil {
			s.logger.Error(
				"unable to save rate",
				"date", record.Date,
				"source", record.Source,
				"err", err,
			)
		} else {
			s.logger.Info(
				"saved rate",
				"date", record.Date,
				"source", record.Source,
				"rate", record.RateSell,
			)
		}

		cancelFn()
	}

	// Schedule a new ingest for this provider
	s.scheduleIngest(
		now.Add(rp.Interval()),
		response.providerID,
		rp,
	)
}

// scheduleIngest schedules a new provider ingest
func (s *Scheduler) scheduleIngest(
	at time.Time,
	providerID xid.ID,
	provider Provider,
) {
	s.qMux.Lock()
	defer s.qMux.Unlock()

	futureSI := scheduledIngest{
		at:         at,
		providerID: providerID,
		provider:   provider,
	}

	s.q.Push(futureSI)
}

// nextIngest fetches the next due ingest job, as of the moment of calling
func (s *Scheduler) nextIngest() *scheduledIngest {
	s.qMux.Lock()
	defer s.qMux.Unlock()

	now := time.Now().UTC()

	// Check if anything needs to be scheduled
	if s.q.Len() == 0 {
		return nil // nothing to schedule, all jobs are running
	}

	// Check if the top element is due
	if s.q.Index(0).at.After(now) {
		return nil // nothing to schedule, latest job is in the future
	}

	// Grab the next job
	return s.q.PopFront()
}
