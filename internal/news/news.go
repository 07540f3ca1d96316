// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package news fetches headlines from RSS and Atom feeds.
package news

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.astrophena.name/tinkerbot/internal/logger"
	"go.astrophena.name/tinkerbot/internal/request"

	"github.com/mmcdole/gofeed"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultLimit is the number of headlines returned when no limit is given.
	DefaultLimit = 8

	perFeedLimit          = 12      // only the first N entries of every feed are considered
	fetchConcurrencyLimit = 4       // N fetches that can run at the same time
	feedReadLimit         = 4 << 20 // 4 MiB
)

// Category groups feeds.
type Category string

// Feed categories.
const (
	General Category = "general"
	AI      Category = "ai"
	IoT     Category = "iot"
)

// Categories lists feed categories in display order.
var Categories = []Category{General, AI, IoT}

// ParseCategory parses a category name. An empty name means [General].
func ParseCategory(s string) (Category, bool) {
	switch c := Category(strings.ToLower(strings.TrimSpace(s))); c {
	case "":
		return General, true
	case General, AI, IoT:
		return c, true
	}
	return "", false
}

// Feed is a configured feed.
type Feed struct {
	URL      string
	Title    string
	Category Category
}

// Item is a headline.
type Item struct {
	Title string
	Link  string
	Date  string // YYYY-MM-DD, may be empty
}

// Fetcher fetches feeds.
type Fetcher struct {
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Fetch fetches feeds concurrently and returns up to limit headlines, with
// duplicate links dropped. Headlines keep the order of feeds and of entries
// within each feed. Feeds that fail to fetch or parse are logged and skipped.
func (f *Fetcher) Fetch(ctx context.Context, feeds []Feed, limit int) []Item {
	if limit <= 0 {
		limit = DefaultLimit
	}
	log := f.Logger
	if log == nil {
		log = logger.Discard()
	}

	perFeed := make([][]Item, len(feeds))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrencyLimit)
	for i, fd := range feeds {
		g.Go(func() error {
			items, err := f.fetch(ctx, fd.URL)
			if err != nil {
				log.Warn("fetching feed failed", "feed", fd.URL, "error", err)
				return nil
			}
			perFeed[i] = items
			return nil
		})
	}
	g.Wait()

	return merge(perFeed, limit)
}

func merge(perFeed [][]Item, limit int) []Item {
	var (
		items []Item
		seen  = make(map[string]bool)
	)
	for _, feedItems := range perFeed {
		for _, it := range feedItems {
			if it.Link == "" || seen[it.Link] {
				continue
			}
			seen[it.Link] = true
			items = append(items, it)
			if len(items) == limit {
				return items
			}
		}
	}
	return items
}

func (f *Fetcher) fetch(ctx context.Context, url string) ([]Item, error) {
	b, err := request.Bytes(ctx, request.Params{
		URL:        url,
		Headers:    map[string]string{"Accept": "application/rss+xml, application/atom+xml, application/xml;q=0.9, */*;q=0.8"},
		HTTPClient: f.HTTPClient,
		ReadLimit:  feedReadLimit,
	})
	if err != nil {
		return nil, err
	}
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", url, err)
	}

	entries := feed.Items
	if len(entries) > perFeedLimit {
		entries = entries[:perFeedLimit]
	}
	items := make([]Item, 0, len(entries))
	for _, e := range entries {
		title := strings.TrimSpace(e.Title)
		if title == "" {
			title = "Untitled"
		}
		items = append(items, Item{
			Title: title,
			Link:  strings.TrimSpace(e.Link),
			Date:  itemDate(e),
		})
	}
	return items, nil
}

func itemDate(e *gofeed.Item) string {
	for _, t := range []*time.Time{e.PublishedParsed, e.UpdatedParsed} {
		if t != nil && !t.IsZero() {
			return t.UTC().Format(time.DateOnly)
		}
	}
	return ""
}

// Format renders headlines as an HTML message under title.
func Format(items []Item, title string) string {
	if len(items) == 0 {
		return "No headlines found."
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "📰 <b>%s</b>\n", html.EscapeString(title))
	for i, it := range items {
		fmt.Fprintf(&sb, "\n%d. <a href=\"%s\">%s</a>", i+1, html.EscapeString(it.Link), html.EscapeString(it.Title))
		if it.Date != "" {
			sb.WriteString(" · " + it.Date)
		}
	}
	return sb.String()
}
