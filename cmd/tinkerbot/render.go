// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"
	"unicode/utf8"

	"go.astrophena.name/tinkerbot/internal/catalog"
	"go.astrophena.name/tinkerbot/internal/github"
	"go.astrophena.name/tinkerbot/internal/search"
	"go.astrophena.name/tinkerbot/internal/session"
	"go.astrophena.name/tinkerbot/internal/store"
	"go.astrophena.name/tinkerbot/internal/telegram"
)

// inlineLimit is the longest rendered text sent as a message. Longer content
// is uploaded as a document.
const inlineLimit = 3500

var spinnerFrames = []string{"⏳", "⌛"}

func searchingText(frame int, elapsed time.Duration) string {
	return fmt.Sprintf("%s Searching GitHub… %ds", spinnerFrames[frame%len(spinnerFrames)], int(elapsed.Seconds()))
}

// runSearch answers a query in the catalog first and falls back to GitHub.
func (e *engine) runSearch(ctx context.Context, chat, user int64, f search.Facet, term string) error {
	st := e.sessions.Update(user, func(s *session.State) { s.LastQuery = term })

	if hits := e.searchCatalog(&st, f, term); len(hits) > 0 {
		text := fmt.Sprintf("📚 Found in the catalog (%d):", len(hits))
		return e.send(ctx, chat, text, localResults(hits))
	}

	progress, err := e.tg.SendMessage(ctx, chat, searchingText(0, 0), nil)
	if err != nil {
		return err
	}

	results, err := e.searchGitHub(ctx, chat, progress.ID, f, term, st.Language)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		e.log.Warn("search timed out", "facet", f, "term", term, "results", len(results))
		if len(results) == 0 {
			return e.edit(ctx, chat, progress.ID, "⏱️ Search timed out. Try a shorter query.", facetMenu(st.Language))
		}
	case errors.Is(err, github.ErrRateLimited):
		e.log.Warn("search rate limited", "facet", f, "term", term, "results", len(results))
		if len(results) == 0 {
			return e.edit(ctx, chat, progress.ID, "🚦 GitHub rate limit reached. Try again in a minute. Setting GITHUB_TOKEN raises the limit.", facetMenu(st.Language))
		}
	case err != nil:
		e.log.Error("search failed", "facet", f, "term", term, "error", err)
		if len(results) == 0 {
			return e.edit(ctx, chat, progress.ID, errorText, facetMenu(st.Language))
		}
	}

	if len(results) == 0 {
		text := fmt.Sprintf("🙁 Nothing found for <b>%s</b>. Try other words.", telegram.Escape(term))
		return e.edit(ctx, chat, progress.ID, text, facetMenu(st.Language))
	}

	var gen uint64
	e.sessions.Update(user, func(s *session.State) { gen = s.SetResults(results) })
	text := fmt.Sprintf("%s Results for <b>%s</b> (%d):", resultIcon(f), telegram.Escape(term), len(results))
	if err != nil {
		text += "\n<i>The search was cut short, results may be incomplete.</i>"
	}
	return e.edit(ctx, chat, progress.ID, text, externalResults(f, gen, results))
}

// searchCatalog searches the local catalog for f. Schematics are never kept
// locally. While the user is in a category only its projects are kept.
func (e *engine) searchCatalog(st *session.State, f search.Facet, term string) []catalog.Hit {
	var hits []catalog.Hit
	switch f {
	case search.FacetCode, search.FacetFree:
		hits = e.catalog.SearchAny(term)
	case search.FacetParts:
		hits = e.catalog.SearchParts(term)
	case search.FacetGuide:
		hits = e.catalog.SearchDescription(term)
	case search.FacetSchematic, search.FacetNone:
		return nil
	}
	domain, ok := st.ActiveDomain()
	if !ok {
		return hits
	}
	var kept []catalog.Hit
	for _, h := range hits {
		if h.Kind == catalog.HitProject && h.Category == domain {
			kept = append(kept, h)
		}
	}
	return kept
}

// searchGitHub runs the search with a deadline, updating the progress message
// while it runs.
func (e *engine) searchGitHub(ctx context.Context, chat, progress int64, f search.Facet, term string, lang search.Language) ([]search.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, e.searchTimeout)
	defer cancel()

	type outcome struct {
		results []search.Result
		err     error
	}
	done := make(chan outcome, 1)
	go func() {
		results, err := e.search.Search(ctx, f, term, lang)
		done <- outcome{results, err}
	}()

	start := time.Now()
	ticker := time.NewTicker(e.spinnerInterval)
	defer ticker.Stop()
	for frame := 1; ; frame++ {
		select {
		case o := <-done:
			return o.results, o.err
		case <-ticker.C:
			err := e.tg.EditMessageText(ctx, chat, progress, searchingText(frame, time.Since(start)), nil)
			if err != nil && !errors.Is(err, telegram.ErrNotModified) {
				e.log.Debug("updating progress failed", "error", err)
			}
		}
	}
}

// deliver sends the content of a search result to chat. If that fails, the
// user gets a link to the file instead.
func (e *engine) deliver(ctx context.Context, chat int64, r search.Result) error {
	caption := fmt.Sprintf("%s <b>%s</b>\n%s", resultIcon(search.FacetNone), telegram.Escape(r.Name), telegram.Escape(r.Key()))

	var err error
	switch r.ContentOf() {
	case search.ContentImage:
		err = e.tg.SendPhoto(ctx, chat, r.RawURL, caption)
	case search.ContentDocument:
		err = e.tg.SendDocumentURL(ctx, chat, r.RawURL, caption)
	default:
		err = e.deliverText(ctx, chat, r, caption)
	}
	if err == nil {
		return nil
	}

	e.log.Warn("delivering result failed", "url", r.HTMLURL, "error", err)
	if r.HTMLURL == "" {
		return e.send(ctx, chat, "⚠️ Could not load this file.", nil)
	}
	kb := telegram.Keyboard([]telegram.InlineKeyboardButton{telegram.URLButton("Open on GitHub", r.HTMLURL)})
	return e.send(ctx, chat, "⚠️ Could not load this file. Open it on GitHub:\n"+telegram.Escape(r.HTMLURL), kb)
}

func (e *engine) deliverText(ctx context.Context, chat int64, r search.Result, caption string) error {
	if r.RawURL == "" {
		return fmt.Errorf("no raw URL for %s", r.Key())
	}
	b, err := store.Cached(ctx, e.rawCache, r.RawURL, func(ctx context.Context) ([]byte, error) {
		return e.gh.FetchRaw(ctx, r.RawURL)
	})
	if err != nil {
		return err
	}
	return e.sendCode(ctx, chat, caption, string(b), r.Name, nil)
}

// sendCode sends code under header, inline when short enough and as a
// document called filename otherwise.
func (e *engine) sendCode(ctx context.Context, chat int64, header, code, filename string, kb *telegram.InlineKeyboardMarkup) error {
	text := header + "\n\n<pre><code>" + telegram.Escape(code) + "</code></pre>"
	if utf8.RuneCountInString(text) <= inlineLimit {
		return e.send(ctx, chat, text, kb)
	}
	return e.tg.SendDocument(ctx, chat, filename, []byte(code), header)
}

// textFileName replaces the extension of name with .txt.
func textFileName(name string) string {
	return strings.TrimSuffix(name, path.Ext(name)) + ".txt"
}

func projectText(p *catalog.Project) string {
	var sb strings.Builder
	sb.WriteString("📁 <b>" + telegram.Escape(p.DisplayTitle()) + "</b>\n")
	if d := strings.TrimSpace(p.Description); d != "" {
		sb.WriteString("\n" + telegram.Escape(d) + "\n")
	}
	if len(p.Boards) > 0 {
		sb.WriteString("\n🔌 <b>Boards:</b> " + telegram.Escape(strings.Join(p.Boards, ", ")))
	}
	if len(p.Parts) > 0 {
		sb.WriteString("\n🧩 <b>Parts:</b> " + telegram.Escape(strings.Join(p.Parts, ", ")))
	}
	if !p.HasCode() {
		sb.WriteString("\n\n<i>No code yet.</i>")
	}
	return sb.String()
}

func libraryText(lib *catalog.Library) string {
	var sb strings.Builder
	sb.WriteString("🐍 <b>" + telegram.Escape(lib.Name) + "</b>")
	if lib.Category != "" {
		sb.WriteString(" · " + telegram.Escape(lib.Category))
	}
	sb.WriteString("\n")
	if lib.Description != "" {
		sb.WriteString("\n" + telegram.Escape(lib.Description) + "\n")
	}
	if lib.Install != "" {
		sb.WriteString("\n<b>Install:</b>\n<pre>" + telegram.Escape(lib.Install) + "</pre>")
	}
	if lib.Example != "" {
		sb.WriteString("\n<b>Example:</b>\n<pre><code>" + telegram.Escape(trim(lib.Example, 1500)) + "</code></pre>")
	}
	return sb.String()
}
