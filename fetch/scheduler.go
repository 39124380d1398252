// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"golang.org/x/time/rate"
)

const (
	// DefaultConcurrency is the default hard ceiling on simultaneous
	// in-flight fetches.
	DefaultConcurrency = 5

	// DefaultLaunchInterval paces task launches. Five launches per second
	// matches an aggregate rate of one five-wide batch per second.
	DefaultLaunchInterval = 200 * time.Millisecond

	// DefaultRequestTimeout bounds a single page fetch.
	DefaultRequestTimeout = 30 * time.Second
)

// Scheduler fans an ordered URL list out over a fixed-size worker pool.
// Peak concurrency never exceeds the pool size; launches are paced by a
// token-bucket limiter so aggregate request rate stays bounded independent
// of pool size.
type Scheduler struct {
	fetcher        Fetcher
	pool           *ants.Pool
	limiter        *rate.Limiter
	concurrency    int
	launchInterval time.Duration
	requestTimeout time.Duration
	logger         *slog.Logger
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler) error

// WithConcurrency sets the worker pool size, the hard ceiling on in-flight
// fetches. Values below 1 are clamped to 1.
func WithConcurrency(n int) SchedulerOption {
	return func(s *Scheduler) error {
		if n < 1 {
			n = 1
		}
		s.concurrency = n
		return nil
	}
}

// WithLaunchInterval sets the minimum spacing between task launches.
// A zero or negative interval disables pacing.
func WithLaunchInterval(d time.Duration) SchedulerOption {
	return func(s *Scheduler) error {
		s.launchInterval = d
		return nil
	}
}

// WithRequestTimeout bounds each individual page fetch.
func WithRequestTimeout(d time.Duration) SchedulerOption {
	return func(s *Scheduler) error {
		if d <= 0 {
			return fmt.Errorf("request timeout must be positive, got %v", d)
		}
		s.requestTimeout = d
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) SchedulerOption {
	return func(s *Scheduler) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewScheduler creates a scheduler around the given fetcher.
func NewScheduler(fetcher Fetcher, opts ...SchedulerOption) (*Scheduler, error) {
	if fetcher == nil {
		return nil, ErrFetcherRequired
	}

	s := &Scheduler{
		fetcher:        fetcher,
		concurrency:    DefaultConcurrency,
		launchInterval: DefaultLaunchInterval,
		requestTimeout: DefaultRequestTimeout,
		logger:         slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	pool, err := ants.NewPool(s.concurrency)
	if err != nil {
		return nil, err
	}
	s.pool = pool

	if s.launchInterval > 0 {
		s.limiter = rate.NewLimiter(rate.Every(s.launchInterval), 1)
	} else {
		s.limiter = rate.NewLimiter(rate.Inf, 1)
	}

	return s, nil
}

// FetchAll fetches every URL and returns one terminal result per URL, in
// input order. Failures are recorded, never propagated: the only error paths
// out of a worker are captured in the Result. When ctx is cancelled no new
// tasks are launched, in-flight fetches drain to completion, and unlaunched
// URLs are reported with ErrNotScheduled.
func (s *Scheduler) FetchAll(ctx context.Context, urls []string) *Report {
	report := &Report{
		Results: make([]Result, len(urls)),
	}
	if len(urls) == 0 {
		return report
	}

	results := make(chan Result)
	collectorDone := make(chan struct{})

	// Single collector: the only writer of the report.
	go func() {
		defer close(collectorDone)
		for r := range results {
			report.Results[r.index] = r
			if r.Err != nil {
				report.FailCount++
			} else {
				report.SuccessCount++
			}
		}
	}()

	var wg sync.WaitGroup
	launched := 0

	for i, url := range urls {
		if err := s.limiter.Wait(ctx); err != nil {
			break
		}

		idx, u := i, url
		sessionID := fmt.Sprintf("session_%d", idx)

		wg.Add(1)
		err := s.pool.Submit(func() {
			defer wg.Done()
			results <- s.fetchOne(ctx, u, sessionID, idx)
		})
		if err != nil {
			wg.Done()
			results <- Result{URL: u, Err: fmt.Errorf("failed to schedule fetch: %w", err), index: idx}
		}
		launched++
	}

	// Cancelled before the list was exhausted: report the remainder without
	// fetching. In-flight tasks are left to finish.
	for i := launched; i < len(urls); i++ {
		results <- Result{URL: urls[i], Err: ErrNotScheduled, index: i}
	}

	wg.Wait()
	close(results)
	<-collectorDone

	s.logger.Info("fetch pass complete",
		"urls", len(urls),
		"succeeded", report.SuccessCount,
		"failed", report.FailCount)

	return report
}

// fetchOne runs a single fetch under its own timeout. The timeout context is
// detached from the run context so an already-launched fetch drains instead
// of aborting mid-request when the run is cancelled.
func (s *Scheduler) fetchOne(ctx context.Context, url, sessionID string, idx int) Result {
	fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.requestTimeout)
	defer cancel()

	page, err := s.fetcher.Fetch(fetchCtx, url, sessionID)
	if err != nil {
		s.logger.Warn("fetch failed", "url", url, "session", sessionID, "err", err)
		return Result{URL: url, Err: fmt.Errorf("failed to fetch %s: %w", url, err), index: idx}
	}

	s.logger.Debug("fetch succeeded", "url", url, "session", sessionID, "bytes", len(page.Markdown))
	return Result{URL: url, Page: page, index: idx}
}

// Release releases the worker pool. The scheduler must not be used after
// calling Release.
func (s *Scheduler) Release() {
	if s.pool != nil {
		s.pool.Release()
	}
}
