package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/xid"
)

// scheduledRun is a single scheduled job execution
type scheduledRun struct {
	at    time.Time
	job   Job
	jobID xid.ID
}

// Less is utilized to sort scheduled runs by their due-time (earliest == first)
func (a scheduledRun) Less(b scheduledRun) bool {
	return a.at.Before(b.at)
}

// workerInfo is the work context for the job routine
type workerInfo struct {
	job     Job
	resCh   chan<- *workerResponse
	jobID   xid.ID
	timeout time.Duration // 0 means no limit
}

// workerResponse is the job routine response
type workerResponse struct {
	error    error         // encountered error, if any
	duration time.Duration // the run duration
	jobID    xid.ID        // the job ID
}

// handleJob executes the job, bounded by the run timeout.
// A panicking job is reported as a failed run
func handleJob(
	ctx context.Context,
	info *workerInfo,
) {
	start := time.Now()

	err := runJob(ctx, info)

	response := &workerResponse{
		error:    err,
		duration: time.Since(start),
		jobID:    info.jobID,
	}

	select {
	case <-ctx.Done():
	case info.resCh <- response:
	}
}

func runJob(ctx context.Context, info *workerInfo) (err error) {
	if info.timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, info.timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", info.job.Name(), r)
		}
	}()

	return info.job.Run(ctx)
}
