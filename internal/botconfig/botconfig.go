// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package botconfig loads the content configuration of the bot: news feeds
// and code snippets. Configuration is written in Starlark.
package botconfig

import (
	_ "embed"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"net/url"
	"os"
	"slices"
	"strings"

	"go.astrophena.name/tinkerbot/internal/logger"
	"go.astrophena.name/tinkerbot/internal/news"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// Default is the built-in configuration.
//
//go:embed default.star
var Default string

// Config is the parsed configuration.
type Config struct {
	Feeds    []news.Feed
	Snippets []Snippet
}

// Snippet is a short piece of example code.
type Snippet struct {
	Title string
	Tags  []string
	Code  string
	Desc  string
}

// Text renders the snippet as an HTML message.
func (s *Snippet) Text() string {
	var sb strings.Builder
	sb.WriteString("💡 <b>" + html.EscapeString(s.Title) + "</b>\n")
	if s.Desc != "" {
		sb.WriteString(html.EscapeString(s.Desc) + "\n")
	}
	sb.WriteString("\n<pre><code>" + html.EscapeString(s.Code) + "</code></pre>")
	return sb.String()
}

// Load reads the configuration from the file at path, or returns the
// built-in one if path is empty.
func Load(path string, log *slog.Logger) (*Config, error) {
	if path == "" {
		return Parse("default.star", Default, log)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(path, string(b), log)
}

// Parse executes src and collects the feeds and snippets lists it defines.
// Starlark print output goes to log.
func Parse(filename, src string, log *slog.Logger) (*Config, error) {
	if log == nil {
		log = logger.Discard()
	}
	globals, err := starlark.ExecFileOptions(
		&syntax.FileOptions{
			TopLevelControl: true,
		},
		&starlark.Thread{
			Name:  filename,
			Print: func(_ *starlark.Thread, msg string) { log.Info(msg, "config", filename) },
		},
		filename,
		src,
		starlark.StringDict{
			"feed":    starlark.NewBuiltin("feed", feedBuiltin),
			"snippet": starlark.NewBuiltin("snippet", snippetBuiltin),
		},
	)
	if err != nil {
		return nil, err
	}

	cfg := new(Config)

	feeds, ok := globals["feeds"].(*starlark.List)
	if !ok {
		return nil, errors.New("feeds must be defined and be a list")
	}
	for elem := range feeds.Elements() {
		f, ok := elem.(*feedValue)
		if !ok {
			return nil, fmt.Errorf("feeds: want feed, got %s", elem.Type())
		}
		cfg.Feeds = append(cfg.Feeds, f.Feed)
	}

	if v, ok := globals["snippets"]; ok {
		snippets, ok := v.(*starlark.List)
		if !ok {
			return nil, errors.New("snippets must be a list")
		}
		for elem := range snippets.Elements() {
			s, ok := elem.(*snippetValue)
			if !ok {
				return nil, fmt.Errorf("snippets: want snippet, got %s", elem.Type())
			}
			cfg.Snippets = append(cfg.Snippets, s.Snippet)
		}
	}

	return cfg, nil
}

// FeedsIn returns the feeds of category c.
func (c *Config) FeedsIn(cat news.Category) []news.Feed {
	var feeds []news.Feed
	for _, f := range c.Feeds {
		if f.Category == cat {
			feeds = append(feeds, f)
		}
	}
	return feeds
}

// PickSnippet picks a snippet tagged tag, or any snippet if tag is empty,
// using pick to choose among candidates. pick receives the number of
// candidates and returns an index, like [math/rand/v2.IntN].
func (c *Config) PickSnippet(tag string, pick func(n int) int) (*Snippet, bool) {
	tag = strings.ToLower(strings.TrimSpace(tag))
	var pool []*Snippet
	for i := range c.Snippets {
		if tag == "" || slices.Contains(c.Snippets[i].Tags, tag) {
			pool = append(pool, &c.Snippets[i])
		}
	}
	if len(pool) == 0 {
		return nil, false
	}
	return pool[pick(len(pool))], true
}

type feedValue struct{ news.Feed }

func (f *feedValue) String() string        { return fmt.Sprintf("<feed url=%q>", f.URL) }
func (f *feedValue) Type() string          { return "feed" }
func (f *feedValue) Freeze()               {} // immutable
func (f *feedValue) Truth() starlark.Bool  { return starlark.Bool(f.URL != "") }
func (f *feedValue) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable: %s", f.Type()) }

func feedBuiltin(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if len(args) > 0 {
		return nil, fmt.Errorf("%s: unexpected positional arguments", b.Name())
	}
	var (
		f        = new(feedValue)
		category string
	)
	if err := starlark.UnpackArgs(b.Name(), args, kwargs,
		"url", &f.URL,
		"title?", &f.Title,
		"category?", &category,
	); err != nil {
		return nil, err
	}
	u, err := url.Parse(f.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("%s: invalid URL %q", b.Name(), f.URL)
	}
	cat, ok := news.ParseCategory(category)
	if !ok {
		return nil, fmt.Errorf("%s: unknown category %q", b.Name(), category)
	}
	f.Category = cat
	if f.Title == "" {
		f.Title = u.Host
	}
	return f, nil
}

type snippetValue struct{ Snippet }

func (s *snippetValue) String() string        { return fmt.Sprintf("<snippet title=%q>", s.Title) }
func (s *snippetValue) Type() string          { return "snippet" }
func (s *snippetValue) Freeze()               {} // immutable
func (s *snippetValue) Truth() starlark.Bool  { return starlark.Bool(s.Code != "") }
func (s *snippetValue) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable: %s", s.Type()) }

func snippetBuiltin(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if len(args) > 0 {
		return nil, fmt.Errorf("%s: unexpected positional arguments", b.Name())
	}
	var (
		s    = new(snippetValue)
		tags *starlark.List
	)
	if err := starlark.UnpackArgs(b.Name(), args, kwargs,
		"title", &s.Title,
		"code", &s.Code,
		"tags?", &tags,
		"desc?", &s.Desc,
	); err != nil {
		return nil, err
	}
	if tags != nil {
		for v := range tags.Elements() {
			tag, ok := starlark.AsString(v)
			if !ok {
				return nil, fmt.Errorf("%s: tags must be strings, got %s", b.Name(), v.Type())
			}
			s.Tags = append(s.Tags, strings.ToLower(tag))
		}
	}
	return s, nil
}
