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


// Package fetch drives bounded-concurrency retrieval of documentation pages.
//
// The Scheduler runs a fixed-size worker pool over an ordered URL list,
// pacing launches against a rate limiter and collecting every outcome,
// success or failure, through a single collector goroutine. One URL's
// failure never disturbs its siblings, and cancellation stops new launches
// while letting in-flight fetches drain.
package fetch

import (
	"context"

	"github.com/poiesic/docrag/core"
)

// Fetcher retrieves one documentation page as normalized markdown.
// The sessionID is an opaque per-task identifier the fetcher may use for
// isolation (separate browser contexts, connection affinity); it carries no
// other semantics.
type Fetcher interface {
	Fetch(ctx context.Context, url, sessionID string) (*core.SourcePage, error)
}

// Result is the terminal outcome for one URL: exactly one of Page or Err is
// set.
type Result struct {
	URL  string
	Page *core.SourcePage
	Err  error

	// index is the URL's position in the input list; used by the collector
	// to restore input ordering.
	index int
}

// Report aggregates one scheduling pass. Results holds one entry per input
// URL, in input order.
type Report struct {
	Results      []Result
	SuccessCount int
	FailCount    int
}
