package fetch

import "errors"

var (
	// ErrFetcherRequired indicates a nil fetcher was passed to NewScheduler.
	ErrFetcherRequired = errors.New("fetcher is required")

	// ErrNotScheduled indicates a URL was never handed to a worker because
	// the run was cancelled first.
	ErrNotScheduled = errors.New("fetch not scheduled: run cancelled")
)
