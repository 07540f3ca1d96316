// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.astrophena.name/tinkerbot/internal/catalog"
	"go.astrophena.name/tinkerbot/internal/news"
	"go.astrophena.name/tinkerbot/internal/search"
	"go.astrophena.name/tinkerbot/internal/session"
	"go.astrophena.name/tinkerbot/internal/telegram"
)

const helpText = `<b>Tinkerbot</b> helps you find robotics and IoT projects.

/start: main menu
/search: search the catalog and GitHub
/news [general|ai|iot]: latest headlines
/snippet [tag]: a random code snippet
/help: this message`

func (e *engine) handleMessage(ctx context.Context, m *telegram.Message) error {
	if m.From == nil || m.From.IsBot || m.Text == "" {
		return nil
	}
	user, chat := m.From.ID, m.Chat.ID

	cmd, args := parseCommand(m.Text, e.me.Username)
	switch cmd {
	case "":
	case "start":
		e.sessions.Update(user, (*session.State).Reset)
		return e.send(ctx, chat, homeText, mainMenu())
	case "help":
		return e.send(ctx, chat, helpText, nil)
	case "search":
		st := e.sessions.Update(user, func(s *session.State) { s.StartSearch(search.FacetNone) })
		return e.send(ctx, chat, facetMenuText(st.ActiveDomain()), facetMenu(st.Language))
	case "news":
		cat, ok := news.ParseCategory(args)
		if !ok {
			return e.send(ctx, chat, "Unknown news category. Pick one:", newsMenu())
		}
		return e.sendNews(ctx, chat, cat)
	case "snippet":
		return e.sendSnippet(ctx, chat, args)
	default:
		return e.send(ctx, chat, useMenuText, mainMenu())
	}

	st := e.sessions.Get(user)
	if st.Mode != session.ModeSearch {
		return e.send(ctx, chat, useMenuText, mainMenu())
	}
	f, ok := st.ActiveFacet()
	if !ok {
		return e.send(ctx, chat, facetMenuText(st.ActiveDomain()), facetMenu(st.Language))
	}
	term := strings.TrimSpace(m.Text)
	if term == "" {
		return e.send(ctx, chat, facetPrompt(f), promptMenu(f, st.Language))
	}
	return e.runSearch(ctx, chat, user, f, term)
}

// parseCommand splits a "/command@bot args" message. cmd is empty for
// messages that are not commands or are addressed to another bot.
func parseCommand(text, botName string) (cmd, args string) {
	if !strings.HasPrefix(text, "/") {
		return "", ""
	}
	first, rest, _ := strings.Cut(text[1:], " ")
	name, target, addressed := strings.Cut(first, "@")
	if addressed && !strings.EqualFold(target, botName) {
		return "", ""
	}
	return strings.ToLower(name), strings.TrimSpace(rest)
}

// callback is a callback query being handled.
type callback struct {
	id    string
	user  int64
	chat  int64
	msg   int64
	alert string // shown to the user when the query is answered
}

type callbackHandler func(e *engine, ctx context.Context, c *callback, arg string) error

var callbackRoutes = map[string]callbackHandler{
	"home":    (*engine).onHome,
	"cat":     (*engine).onCategory,
	"libs":    (*engine).onLibraries,
	"lib":     (*engine).onLibrary,
	"libdl":   (*engine).onLibraryDownload,
	"proj":    (*engine).onProject,
	"code":    (*engine).onCode,
	"dl":      (*engine).onDownload,
	"zip":     (*engine).onZip,
	"search":  (*engine).onSearch,
	"facet":   (*engine).onFacet,
	"langs":   (*engine).onLanguages,
	"lang":    (*engine).onLanguage,
	"res":     (*engine).onResult,
	"news":    (*engine).onNews,
	"snippet": (*engine).onSnippet,
}

func (e *engine) handleCallback(ctx context.Context, q *telegram.CallbackQuery) error {
	if q.Message == nil {
		return e.tg.AnswerCallbackQuery(ctx, q.ID, "", false)
	}
	c := &callback{
		id:   q.ID,
		user: q.From.ID,
		chat: q.Message.Chat.ID,
		msg:  q.Message.ID,
	}

	route, arg, _ := strings.Cut(q.Data, ":")
	h, ok := callbackRoutes[route]
	var err error
	if ok {
		err = h(e, ctx, c, arg)
	} else {
		e.log.Debug("unknown callback", "data", q.Data, "user", c.user)
		c.alert = staleText
	}
	if err != nil && c.alert == "" {
		c.alert = errorText
	}

	if aerr := e.tg.AnswerCallbackQuery(ctx, c.id, c.alert, c.alert != ""); aerr != nil {
		e.log.Warn("answering callback query failed", "error", aerr)
	}
	if err != nil {
		return fmt.Errorf("callback %q: %w", q.Data, err)
	}
	return nil
}

func (e *engine) onHome(ctx context.Context, c *callback, _ string) error {
	e.sessions.Update(c.user, (*session.State).Reset)
	return e.edit(ctx, c.chat, c.msg, homeText, mainMenu())
}

func (e *engine) onCategory(ctx context.Context, c *callback, arg string) error {
	cat, ok := catalog.ParseCategory(arg)
	if !ok {
		c.alert = staleText
		return nil
	}
	e.sessions.Update(c.user, func(s *session.State) { s.Domain = cat })
	projects := e.catalog.Projects(cat)
	if len(projects) == 0 {
		return e.edit(ctx, c.chat, c.msg, "No projects in this category yet.", telegram.Keyboard([]telegram.InlineKeyboardButton{backHome}))
	}
	return e.edit(ctx, c.chat, c.msg, categoryTitle(cat), projectList(cat, projects))
}

func (e *engine) onLibraries(ctx context.Context, c *callback, _ string) error {
	if len(e.catalog.PyLibs) == 0 {
		return e.edit(ctx, c.chat, c.msg, "No libraries yet.", telegram.Keyboard([]telegram.InlineKeyboardButton{backHome}))
	}
	return e.edit(ctx, c.chat, c.msg, "🐍 Python libraries:", libraryList(e.catalog.PyLibs))
}

func (e *engine) onLibrary(ctx context.Context, c *callback, name string) error {
	lib, ok := e.catalog.Library(name)
	if !ok {
		c.alert = "Library not found."
		return nil
	}
	e.sessions.Update(c.user, func(s *session.State) { s.CurrentLib = lib.Name })
	return e.edit(ctx, c.chat, c.msg, libraryText(lib), libraryMenu())
}

func (e *engine) onLibraryDownload(ctx context.Context, c *callback, what string) error {
	st := e.sessions.Get(c.user)
	lib, ok := e.catalog.Library(st.CurrentLib)
	if !ok {
		c.alert = staleText
		return nil
	}
	name := strings.ReplaceAll(lib.Name, " ", "_")
	switch what {
	case "example":
		if strings.TrimSpace(lib.Example) == "" {
			c.alert = "This library has no example."
			return nil
		}
		return e.tg.SendDocument(ctx, c.chat, name+"_example.py", []byte(lib.Example), "🐍 "+telegram.Escape(lib.Name))
	case "json":
		b, err := json.MarshalIndent(lib, "", "  ")
		if err != nil {
			return err
		}
		return e.tg.SendDocument(ctx, c.chat, name+".json", b, "🐍 "+telegram.Escape(lib.Name))
	}
	c.alert = staleText
	return nil
}

// projectArg parses "<category>:<id>" and looks up the project.
func (e *engine) projectArg(arg string) (catalog.Category, *catalog.Project, bool) {
	rawCat, id, ok := strings.Cut(arg, ":")
	if !ok {
		return "", nil, false
	}
	cat, ok := catalog.ParseCategory(rawCat)
	if !ok {
		return "", nil, false
	}
	p, ok := e.catalog.Project(cat, id)
	return cat, p, ok
}

// projectLangArg parses "<category>:<id>:<lang>". The language is taken after
// the last colon so identifiers may contain colons.
func (e *engine) projectLangArg(arg string) (catalog.Category, *catalog.Project, string, bool) {
	i := strings.LastIndexByte(arg, ':')
	if i < 0 {
		return "", nil, "", false
	}
	cat, p, ok := e.projectArg(arg[:i])
	return cat, p, arg[i+1:], ok
}

func (e *engine) onProject(ctx context.Context, c *callback, arg string) error {
	cat, p, ok := e.projectArg(arg)
	if !ok {
		c.alert = "Project not found."
		return nil
	}
	return e.edit(ctx, c.chat, c.msg, projectText(p), codeMenu(cat, p, ""))
}

func (e *engine) onCode(ctx context.Context, c *callback, arg string) error {
	cat, p, lang, ok := e.projectLangArg(arg)
	if !ok {
		c.alert = "Project not found."
		return nil
	}
	code := p.Code[lang]
	if code == "" {
		c.alert = "No code for " + strings.ToUpper(lang) + "."
		return nil
	}
	header := fmt.Sprintf("💻 <b>%s</b> · %s", telegram.Escape(p.DisplayTitle()), strings.ToUpper(lang))
	return e.sendCode(ctx, c.chat, header, code, textFileName(p.FileName(lang)), codeMenu(cat, p, lang))
}

func (e *engine) onDownload(ctx context.Context, c *callback, arg string) error {
	_, p, lang, ok := e.projectLangArg(arg)
	if !ok {
		c.alert = "Project not found."
		return nil
	}
	code := p.Code[lang]
	if code == "" {
		c.alert = "No code for " + strings.ToUpper(lang) + "."
		return nil
	}
	return e.tg.SendDocument(ctx, c.chat, p.FileName(lang), []byte(code), "💻 "+telegram.Escape(p.DisplayTitle()))
}

func (e *engine) onZip(ctx context.Context, c *callback, arg string) error {
	_, p, ok := e.projectArg(arg)
	if !ok {
		c.alert = "Project not found."
		return nil
	}
	b, err := p.Zip()
	if errors.Is(err, catalog.ErrNoCode) {
		c.alert = "This project has no code."
		return nil
	}
	if err != nil {
		return err
	}
	return e.tg.SendDocument(ctx, c.chat, p.ZipName(), b, "🗜️ "+telegram.Escape(p.DisplayTitle()))
}

func (e *engine) onSearch(ctx context.Context, c *callback, _ string) error {
	st := e.sessions.Update(c.user, func(s *session.State) { s.StartSearch(search.FacetNone) })
	return e.edit(ctx, c.chat, c.msg, facetMenuText(st.ActiveDomain()), facetMenu(st.Language))
}

func (e *engine) onFacet(ctx context.Context, c *callback, arg string) error {
	f, ok := search.ParseFacet(arg)
	if !ok {
		c.alert = staleText
		return nil
	}
	st := e.sessions.Update(c.user, func(s *session.State) { s.StartSearch(f) })
	return e.edit(ctx, c.chat, c.msg, facetPrompt(f), promptMenu(f, st.Language))
}

func (e *engine) onLanguages(ctx context.Context, c *callback, arg string) error {
	st := e.sessions.Get(c.user)
	if arg == "done" {
		if f, ok := st.ActiveFacet(); ok {
			return e.edit(ctx, c.chat, c.msg, facetPrompt(f), promptMenu(f, st.Language))
		}
		return e.edit(ctx, c.chat, c.msg, facetMenuText(st.ActiveDomain()), facetMenu(st.Language))
	}
	return e.edit(ctx, c.chat, c.msg, languageMenuText(st.Language), languageMenu(st.Language))
}

func (e *engine) onLanguage(ctx context.Context, c *callback, arg string) error {
	lang, ok := search.ParseLanguage(arg)
	if !ok {
		c.alert = staleText
		return nil
	}
	e.sessions.Update(c.user, func(s *session.State) { s.Language = lang })
	return e.edit(ctx, c.chat, c.msg, languageMenuText(lang), languageMenu(lang))
}

func (e *engine) onResult(ctx context.Context, c *callback, arg string) error {
	rawGen, rawIdx, _ := strings.Cut(arg, ":")
	gen, gerr := strconv.ParseUint(rawGen, 10, 64)
	idx, ierr := strconv.Atoi(rawIdx)
	var (
		r   search.Result
		err = errors.Join(gerr, ierr)
	)
	if err == nil {
		st := e.sessions.Get(c.user)
		r, err = st.Result(gen, idx)
	}
	if err != nil {
		e.log.Debug("stale result selection", "data", arg, "user", c.user, "error", err)
		c.alert = staleText
		return nil
	}
	return e.deliver(ctx, c.chat, r)
}

func (e *engine) onNews(ctx context.Context, c *callback, arg string) error {
	cat, ok := news.ParseCategory(arg)
	if !ok {
		c.alert = staleText
		return nil
	}
	return e.sendNews(ctx, c.chat, cat)
}

func (e *engine) onSnippet(ctx context.Context, c *callback, tag string) error {
	return e.sendSnippet(ctx, c.chat, tag)
}

func (e *engine) sendNews(ctx context.Context, chat int64, cat news.Category) error {
	items := e.news.Fetch(ctx, e.config.FeedsIn(cat), news.DefaultLimit)
	return e.send(ctx, chat, news.Format(items, newsTitle(cat)+" headlines"), newsMenu())
}

func (e *engine) sendSnippet(ctx context.Context, chat int64, tag string) error {
	sn, ok := e.config.PickSnippet(tag, e.randIntN)
	if !ok {
		return e.send(ctx, chat, fmt.Sprintf("No snippets tagged <b>%s</b>.", telegram.Escape(tag)), nil)
	}
	kb := telegram.Keyboard([]telegram.InlineKeyboardButton{
		telegram.Button("💡 Another", "snippet"),
		backHome,
	})
	return e.send(ctx, chat, sn.Text(), kb)
}

// send sends a new message.
func (e *engine) send(ctx context.Context, chat int64, text string, kb *telegram.InlineKeyboardMarkup) error {
	_, err := e.tg.SendMessage(ctx, chat, text, kb)
	return err
}

// edit replaces the text of a message, or sends a new one if the message can't
// be edited.
func (e *engine) edit(ctx context.Context, chat, msg int64, text string, kb *telegram.InlineKeyboardMarkup) error {
	err := e.tg.EditMessageText(ctx, chat, msg, text, kb)
	if errors.Is(err, telegram.ErrNotModified) {
		return nil
	}
	if err != nil {
		e.log.Debug("editing message failed, sending a new one", "chat", chat, "error", err)
		return e.send(ctx, chat, text, kb)
	}
	return nil
}
