package ingest

import (
	"context"
	"time"
)

type (
	nameDelegate func() string
	nextDelegate func(time.Time) time.Time
	runDelegate  func(context.Context) error
)

type mockJob struct {
	nameFn nameDelegate
	nextFn nextDelegate
	runFn  runDelegate
}

func (m *mockJob) Name() string {
	if m.nameFn != nil {
		return m.nameFn()
	}

	return ""
}

func (m *mockJob) Next(now time.Time) time.Time {
	if m.nextFn != nil {
		return m.nextFn(now)
	}

	return now
}

func (m *mockJob) Run(ctx context.Context) error {
	if m.runFn != nil {
		return m.runFn(ctx)
	}

	return nil
}
