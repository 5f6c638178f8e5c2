package ingest

import (
	"context"
	"time"
)

// Job is a single recurring unit of work
type Job interface {
	// Name returns the human-readable name of the job
	Name() string

	// Next returns the next execution time after the given moment
	Next(now time.Time) time.Time

	// Run executes the job once
	Run(context.Context) error
}

// Schedule yields the execution times of a job
type Schedule interface {
	Next(now time.Time) time.Time
}

type every time.Duration

// Every schedules a job at a fixed interval
func Every(d time.Duration) Schedule {
	return every(d)
}

func (e every) Next(now time.Time) time.Time {
	return now.Add(time.Duration(e))
}

// HourlyWindow schedules a job at the top of every hour
// between the Start and End hours (inclusive), in the given location
type HourlyWindow struct {
	Location *time.Location
	Start    int
	End      int
}

func (w HourlyWindow) Next(now time.Time) time.Time {
	loc := w.Location
	if loc == nil {
		loc = time.UTC
	}

	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), local.Hour()+1, 0, 0, 0, loc)

	switch {
	case next.Hour() < w.Start:
		return time.Date(next.Year(), next.Month(), next.Day(), w.Start, 0, 0, 0, loc)
	case next.Hour() > w.End:
		return time.Date(next.Year(), next.Month(), next.Day()+1, w.Start, 0, 0, 0, loc)
	default:
		return next
	}
}

type job struct {
	schedule Schedule
	run      func(context.Context) error
	name     string
}

// NewJob creates a job out of a schedule and a run function
func NewJob(name string, schedule Schedule, run func(context.Context) error) Job {
	return &job{
		name:     name,
		schedule: schedule,
		run:      run,
	}
}

func (j *job) Name() string {
	return j.name
}

func (j *job) Next(now time.Time) time.Time {
	return j.schedule.Next(now)
}

func (j *job) Run(ctx context.Context) error {
	return j.run(ctx)
}
