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


package web

import (
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"golang.org/x/net/html"
)

var excessiveBlankLines = regexp.MustCompile(`\n{4,}`)

// chromeTags are page-chrome elements stripped before conversion when no
// dedicated main-content element exists.
var chromeTags = []string{
	"nav", "header", "footer", "aside", "script", "style", "noscript",
	"iframe", "form", "input", "button",
}

// chromeClasses mark wrapper divs that carry navigation or boilerplate on
// documentation sites built with common theme generators.
var chromeClasses = []string{
	"nav", "navbar", "navigation", "sidebar", "menu", "toc",
	"table-of-contents", "footer", "header", "breadcrumb", "breadcrumbs",
	"searchbox", "related", "sphinxsidebar",
}

// Converter turns documentation HTML into normalized GitHub-flavored
// markdown, keeping only the page's main content.
type Converter struct {
	md *md.Converter
}

// NewConverter creates a converter with GitHub-flavored markdown rules, so
// fenced code blocks and tables survive conversion.
func NewConverter() *Converter {
	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())
	return &Converter{md: converter}
}

// Convert extracts the main content of a documentation page and renders it
// as markdown. Returns an empty string when the page has no textual content.
func (c *Converter) Convert(page []byte) (string, error) {
	content := mainContent(page)

	markdown, err := c.md.ConvertString(content)
	if err != nil {
		return "", err
	}

	return normalizeMarkdown(markdown), nil
}

// mainContent isolates the content-bearing subtree of the page. It prefers a
// semantic main/article element; failing that it prunes known chrome from the
// body.
func mainContent(page []byte) string {
	doc, err := html.Parse(strings.NewReader(string(page)))
	if err != nil {
		return string(page)
	}

	for _, tag := range []string{"main", "article"} {
		if node := firstElement(doc, tag); node != nil {
			return render(node)
		}
	}
	if node := firstByRole(doc, "main"); node != nil {
		return render(node)
	}

	pruneTags(doc, chromeTags)
	pruneClasses(doc, chromeClasses)

	if body := firstElement(doc, "body"); body != nil {
		return render(body)
	}
	return string(page)
}

func firstElement(n *html.Node, tag string) *html.Node {
	var found *html.Node
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if found != nil {
			return
		}
		if node.Type == html.ElementNode && node.Data == tag {
			found = node
			return
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return found
}

func firstByRole(n *html.Node, role string) *html.Node {
	var found *html.Node
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if found != nil {
			return
		}
		if node.Type == html.ElementNode {
			for _, a := range node.Attr {
				if a.Key == "role" && a.Val == role {
					found = node
					return
				}
			}
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return found
}

func pruneTags(n *html.Node, tags []string) {
	drop := make(map[string]bool, len(tags))
	for _, t := range tags {
		drop[t] = true
	}
	prune(n, func(node *html.Node) bool {
		return drop[node.Data]
	})
}

func pruneClasses(n *html.Node, classes []string) {
	drop := make(map[string]bool, len(classes))
	for _, c := range classes {
		drop[strings.ToLower(c)] = true
	}
	prune(n, func(node *html.Node) bool {
		for _, a := range node.Attr {
			if a.Key != "class" {
				continue
			}
			for _, c := range strings.Fields(strings.ToLower(a.Val)) {
				if drop[c] {
					return true
				}
			}
		}
		return false
	})
}

// prune removes every element node matching the predicate, subtree included.
func prune(n *html.Node, match func(*html.Node) bool) {
	var victims []*html.Node
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.ElementNode && match(node) {
			victims = append(victims, node)
			return
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)

	for _, v := range victims {
		if v.Parent != nil {
			v.Parent.RemoveChild(v)
		}
	}
}

func render(n *html.Node) string {
	var sb strings.Builder
	html.Render(&sb, n)
	return sb.String()
}

// normalizeMarkdown collapses runaway blank lines, strips trailing spaces,
// and trims the document.
func normalizeMarkdown(content string) string {
	content = excessiveBlankLines.ReplaceAllString(content, "\n\n\n")

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}

	return strings.TrimSpace(strings.Join(lines, "\n"))
}
