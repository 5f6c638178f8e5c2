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
)

var (
	errInvalidJob      = errors.New("invalid job")
	errInvalidSchedule = errors.New("invalid schedule")
)

const (
	defaultRetryDelay = 10 * time.Second
	defaultRunTimeout = 30 * time.Minute
)

// Orchestrator is the main scheduler for registered jobs
type Orchestrator struct {
	logger *slog.Logger

	registeredJobs sync.Map

	q             iq.Queue[scheduledRun]
	queryInterval time.Duration
	retryDelay    time.Duration
	runTimeout    time.Duration
	immediate     bool
	qMux          sync.Mutex
}

// New creates a new Orchestrator instance
func New(opts ...Option) *Orchestrator {
	o := &Orchestrator{
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		q:             iq.NewQueue[scheduledRun](),
		queryInterval: time.Second, // every second
		retryDelay:    defaultRetryDelay,
		runTimeout:    defaultRunTimeout,
	}

	// Apply the options
	for _, opt := range opts {
		opt(o)
	}

	return o
}

// Register registers a new job with the orchestrator.
// The job is queued up for its first scheduled time,
// or for immediate execution if so configured
func (o *Orchestrator) Register(j Job) error {
	if j == nil || j.Name() == "" {
		return errInvalidJob
	}

	now := time.Now()

	next := j.Next(now)
	if !next.After(now) {
		return errInvalidSchedule
	}

	if o.immediate {
		next = now
	}

	// Register the job
	id := xid.New()
	o.registeredJobs.Store(id, j)

	o.logger.Info(
		"registered new job",
		"name", j.Name(),
		"first_run", next.String(),
	)

	// Schedule the job
	o.scheduleRun(next, id, j)

	return nil
}

// Start starts the job orchestration service loop [BLOCKING]
func (o *Orchestrator) Start(ctx context.Context) error {
	collectorCh := make(chan *workerResponse, 100)

	// Start a listener for monitoring jobs
	ticker := time.NewTicker(o.queryInterval)
	defer ticker.Stop()

	// handleRuns initializes all jobs that are executable (due)
	handleRuns := func() {
		for {
			select {
			case <-ctx.Done():
				return
			default:
				next := o.nextRun()
				if next == nil {
					return // nothing to schedule anymore
				}

				o.logger.Info(
					"starting job",
					"name", next.job.Name(),
				)

				// Spawn worker
				info := &workerInfo{
					job:     next.job,
					jobID:   next.jobID,
					resCh:   collectorCh,
					timeout: o.runTimeout,
				}

				go handleJob(ctx, info)
			}
		}
	}

	// Initialize the first set of due jobs (on boot)
	handleRuns()

	for {
		select {
		case <-ctx.Done():
			o.logger.Info("orchestrator service shut down")

			return nil
		case <-ticker.C:
			handleRuns()
		case response := <-collectorCh:
			now := time.Now()

			jRaw, ok := o.registeredJobs.Load(response.jobID)
			if !ok {
				o.logger.Error(
					"unable to load registered job",
					"id", response.jobID.String(),
				)

				continue
			}

			j, _ := jRaw.(Job)

			if response.error != nil {
				o.logger.Error(
					"error encountered during job run",
					"name", j.Name(),
					"id", response.jobID.String(),
					"err", response.error,
				)

				// Retry the job soon
				o.scheduleRun(now.Add(o.retryDelay), response.jobID, j)

				continue
			}

			next := j.Next(now)

			o.logger.Info(
				"job completed",
				"name", j.Name(),
				"duration", response.duration.String(),
				"next_run", next.String(),
			)

			// Schedule the next run of this job
			o.scheduleRun(next, response.jobID, j)
		}
	}
}

// scheduleRun schedules a new job run
func (o *Orchestrator) scheduleRun(
	at time.Time,
	jobID xid.ID,
	j Job,
) {
	o.qMux.Lock()
	defer o.qMux.Unlock()

	o.q.Push(scheduledRun{
		at:    at,
		jobID: jobID,
		job:   j,
	})
}

// nextRun fetches the next due job run, as of the moment of calling
func (o *Orchestrator) nextRun() *scheduledRun {
	o.qMux.Lock()
	defer o.qMux.Unlock()

	// Check if anything needs to be scheduled
	if o.q.Len() == 0 {
		return nil // nothing to schedule, all jobs are running
	}

	// Check if the top element is due
	if o.q.Index(0).at.After(time.Now()) {
		return nil // nothing to schedule, earliest run is in the future
	}

	// Grab the next run
	return o.q.PopFront()
}
