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


// Package catalog defines the documentation source catalog: a base URL plus
// an ordered list of section paths, loaded from a TOML file. The catalog is
// data, not code; swapping documentation sites means swapping catalog files.
package catalog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

var (
	// ErrEmptyBaseURL indicates a catalog without a base URL.
	ErrEmptyBaseURL = errors.New("catalog base_url is empty")

	// ErrNoSections indicates a catalog without any section paths.
	ErrNoSections = errors.New("catalog has no sections")
)

// Catalog describes one documentation site to ingest.
type Catalog struct {
	// BaseURL is the site root. A trailing slash, if present, is trimmed
	// when URLs are built.
	BaseURL string `toml:"base_url"`

	// Sections are site-relative paths, in ingestion order.
	Sections []string `toml:"sections"`
}

// Load reads and validates a catalog from a TOML file.
func Load(path string) (*Catalog, error) {
	var c Catalog
	if _, err := toml.DecodeFile(path, &c); err != nil {
		return nil, fmt.Errorf("failed to decode catalog %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks the catalog is usable.
func (c *Catalog) Validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return ErrEmptyBaseURL
	}
	if len(c.Sections) == 0 {
		return ErrNoSections
	}
	return nil
}

// URLs expands the catalog into the ordered list of page URLs. Each section
// path is joined onto the base URL with single slashes and a trailing slash,
// so "manual/layers" under "https://example.org/docs" becomes
// "https://example.org/docs/manual/layers/".
func (c *Catalog) URLs() []string {
	base := strings.TrimRight(c.BaseURL, "/")
	urls := make([]string, len(c.Sections))
	for i, section := range c.Sections {
		s := strings.Trim(section, "/")
		urls[i] = base + "/" + s + "/"
	}
	return urls
}

// Default returns the built-in catalog covering the Tiled map editor manual.
// Used when no catalog file is supplied on the command line.
func Default() *Catalog {
	return &Catalog{
		BaseURL: "https://doc.mapeditor.org/en/stable",
		Sections: []string{
			"manual/introduction",
			"manual/about",
			"manual/getting-started",
			"manual/projects",
			"manual/layers",
			"manual/editing-tile-layers",
			"manual/objects",
			"manual/objects/edit-polygons",
			"manual/editing-tilesets",
			"manual/custom-properties",
			"manual/using-templates",
			"manual/terrain",
			"manual/using-infinite-maps",
			"manual/worlds",
			"manual/using-commands",
			"manual/automapping",
			"manual/export",
			"manual/export/generic",
			"manual/export/defold",
			"manual/export/tbin",
			"manual/export/python",
			"manual/keyboard-shortcuts",
			"manual/preferences",
			"manual/scripting",
			"reference/support-for-tmx-maps",
			"reference/tmx-map-format",
			"reference/json-map-format",
			"reference/tmx-changelog",
			"reference/global-tile-ids",
		},
	}
}
