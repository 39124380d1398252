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


// Package web implements the page fetcher over plain HTTP: GET the page,
// isolate its main content, and normalize it to markdown.
package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/poiesic/docrag/core"
)

const (
	// DefaultUserAgent identifies the crawler to documentation hosts.
	DefaultUserAgent = "docrag/1.0 (+https://github.com/poiesic/docrag)"

	// DefaultMaxBodySize caps a single page download at 8 MiB.
	DefaultMaxBodySize = 8 << 20

	// sessionHeader carries the scheduler-assigned session identifier, so
	// per-task traffic is distinguishable in host logs.
	sessionHeader = "X-Docrag-Session"
)

// ErrEmptyDocument indicates a page converted to no usable markdown.
var ErrEmptyDocument = errors.New("page has no textual content")

// StatusError reports a non-success HTTP response.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d %s", e.Code, http.StatusText(e.Code))
}

// PageFetcher retrieves documentation pages over HTTP and converts them to
// markdown. It implements fetch.Fetcher.
type PageFetcher struct {
	client      *http.Client
	converter   *Converter
	userAgent   string
	maxBodySize int64
	logger      *slog.Logger
}

// PageFetcherOption configures a PageFetcher.
type PageFetcherOption func(*PageFetcher)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(client *http.Client) PageFetcherOption {
	return func(f *PageFetcher) {
		if client != nil {
			f.client = client
		}
	}
}

// WithUserAgent sets the User-Agent header sent with each request.
func WithUserAgent(ua string) PageFetcherOption {
	return func(f *PageFetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// WithMaxBodySize caps the downloaded page size in bytes.
func WithMaxBodySize(n int64) PageFetcherOption {
	return func(f *PageFetcher) {
		if n > 0 {
			f.maxBodySize = n
		}
	}
}

// WithFetchLogger sets a custom logger.
func WithFetchLogger(logger *slog.Logger) PageFetcherOption {
	return func(f *PageFetcher) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// NewPageFetcher creates an HTTP page fetcher.
func NewPageFetcher(opts ...PageFetcherOption) *PageFetcher {
	f := &PageFetcher{
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:    10,
				IdleConnTimeout: 90 * time.Second,
			},
		},
		converter:   NewConverter(),
		userAgent:   DefaultUserAgent,
		maxBodySize: DefaultMaxBodySize,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch downloads one page and returns it as normalized markdown.
func (f *PageFetcher) Fetch(ctx context.Context, url, sessionID string) (*core.SourcePage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
	req.Header.Set(sessionHeader, sessionID)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	if int64(len(body)) > f.maxBodySize {
		return nil, fmt.Errorf("page exceeds %d bytes", f.maxBodySize)
	}

	markdown, err := f.converter.Convert(body)
	if err != nil {
		return nil, fmt.Errorf("failed to convert page: %w", err)
	}
	if markdown == "" {
		return nil, ErrEmptyDocument
	}

	f.logger.Debug("page fetched", "url", url, "bytes", len(body), "markdown_bytes", len(markdown))

	return &core.SourcePage{URL: url, Markdown: markdown}, nil
}
