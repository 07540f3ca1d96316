// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"go.astrophena.name/tinkerbot/internal/catalog"
	"go.astrophena.name/tinkerbot/internal/news"
	"go.astrophena.name/tinkerbot/internal/search"
	"go.astrophena.name/tinkerbot/internal/telegram"
)

// Keyboards and menu texts.

const (
	homeText       = "👋 Hi! Pick a section from the menu:"
	useMenuText    = "Use the menu below to start:"
	pickFacetText  = "First tell me what you are looking for:"
	staleText      = "This list is outdated. Run the search again."
	errorText      = "⚠️ Something went wrong. Try again later."
	buttonTitleMax = 60
)

var backHome = telegram.Button("🔙 Back", "home")

func mainMenu() *telegram.InlineKeyboardMarkup {
	return telegram.Keyboard(
		[]telegram.InlineKeyboardButton{
			telegram.Button("🤖 Robotics", "cat:"+string(catalog.Robotics)),
			telegram.Button("🌐 IoT", "cat:"+string(catalog.IoT)),
		},
		[]telegram.InlineKeyboardButton{telegram.Button("🐍 Python libraries", "libs")},
		[]telegram.InlineKeyboardButton{telegram.Button("🔎 Search", "search")},
		[]telegram.InlineKeyboardButton{
			telegram.Button("📰 News", "news:"+string(news.General)),
			telegram.Button("💡 Snippet", "snippet"),
		},
	)
}

func categoryTitle(cat catalog.Category) string {
	switch cat {
	case catalog.Robotics:
		return "🤖 Robotics projects:"
	case catalog.IoT:
		return "🌐 IoT projects:"
	}
	return string(cat)
}

func categoryName(cat catalog.Category) string {
	switch cat {
	case catalog.Robotics:
		return "Robotics"
	case catalog.IoT:
		return "IoT"
	}
	return string(cat)
}

// button returns a callback button, or false if data does not fit into a
// callback query.
func button(text, data string) (telegram.InlineKeyboardButton, bool) {
	if len(data) > telegram.MaxCallbackData {
		return telegram.InlineKeyboardButton{}, false
	}
	return telegram.Button(trim(text, buttonTitleMax), data), true
}

func projectList(cat catalog.Category, projects []catalog.Project) *telegram.InlineKeyboardMarkup {
	var rows [][]telegram.InlineKeyboardButton
	for i := range projects {
		p := &projects[i]
		if b, ok := button(p.DisplayTitle(), projectData(cat, string(p.ID))); ok {
			rows = append(rows, []telegram.InlineKeyboardButton{b})
		}
	}
	rows = append(rows, []telegram.InlineKeyboardButton{backHome})
	return telegram.Keyboard(rows...)
}

func projectData(cat catalog.Category, id string) string {
	return "proj:" + string(cat) + ":" + id
}

func libraryList(libs []catalog.Library) *telegram.InlineKeyboardMarkup {
	var buttons []telegram.InlineKeyboardButton
	for _, lib := range libs {
		if lib.Name == "" {
			continue
		}
		if b, ok := button(lib.Name, "lib:"+lib.Name); ok {
			buttons = append(buttons, b)
		}
	}
	rows := telegram.Grid(2, buttons...)
	rows = append(rows, []telegram.InlineKeyboardButton{backHome})
	return telegram.Keyboard(rows...)
}

func libraryMenu() *telegram.InlineKeyboardMarkup {
	return telegram.Keyboard(
		[]telegram.InlineKeyboardButton{
			telegram.Button("⬇️ Example", "libdl:example"),
			telegram.Button("⬇️ Library JSON", "libdl:json"),
		},
		[]telegram.InlineKeyboardButton{telegram.Button("🔙 Back", "libs")},
	)
}

// codeMenu builds the keyboard of a project page. lang is the language
// currently shown, if any.
func codeMenu(cat catalog.Category, p *catalog.Project, lang string) *telegram.InlineKeyboardMarkup {
	suffix := ":" + string(cat) + ":" + string(p.ID)
	var langs []telegram.InlineKeyboardButton
	for _, l := range catalog.CodeLanguages {
		if b, ok := button(strings.ToUpper(l), "code"+suffix+":"+l); ok {
			langs = append(langs, b)
		}
	}
	rows := telegram.Grid(2, langs...)
	var downloads []telegram.InlineKeyboardButton
	if lang != "" && p.Code[lang] != "" {
		if b, ok := button("⬇️ Download "+strings.ToUpper(lang), "dl"+suffix+":"+lang); ok {
			downloads = append(downloads, b)
		}
	}
	if b, ok := button("🗜️ Download all (ZIP)", "zip"+suffix); ok {
		downloads = append(downloads, b)
	}
	rows = append(rows, downloads)
	rows = append(rows, []telegram.InlineKeyboardButton{telegram.Button("🔙 Back", "cat:"+string(cat))})
	return telegram.Keyboard(rows...)
}

func facetMenu(lang search.Language) *telegram.InlineKeyboardMarkup {
	return telegram.Keyboard(
		[]telegram.InlineKeyboardButton{
			telegram.Button("💻 Code", "facet:code"),
			telegram.Button("🧩 Schematic", "facet:schematic"),
		},
		[]telegram.InlineKeyboardButton{
			telegram.Button("🛒 Parts (BOM)", "facet:parts"),
			telegram.Button("📘 Guide", "facet:guide"),
		},
		[]telegram.InlineKeyboardButton{telegram.Button("🌍 Free search", "facet:free")},
		[]telegram.InlineKeyboardButton{telegram.Button("🎛️ Language filter: "+lang.Title(), "langs")},
		[]telegram.InlineKeyboardButton{backHome},
	)
}

func facetMenuText(domain catalog.Category, ok bool) string {
	if !ok {
		return pickFacetText
	}
	return pickFacetText + "\n\nSearching within <b>" + categoryName(domain) + "</b>."
}

func facetPrompt(f search.Facet) string {
	switch f {
	case search.FacetCode:
		return "🔎 Send a code topic, for example: esp32 mqtt."
	case search.FacetSchematic:
		return "🔎 Send a schematic topic, for example: line follower."
	case search.FacetParts:
		return "🔎 Send a part name or model, for example: L298N or HC-SR04."
	case search.FacetGuide:
		return "🔎 Send a topic for a guide, for example: servo sweep arduino."
	}
	return "🔎 Send anything, for example: weather station."
}

func languageMenu(current search.Language) *telegram.InlineKeyboardMarkup {
	var buttons []telegram.InlineKeyboardButton
	for _, l := range search.Languages {
		title := l.Title()
		if l == current {
			title = "✅ " + title
		}
		buttons = append(buttons, telegram.Button(title, "lang:"+l.String()))
	}
	rows := telegram.Grid(2, buttons...)
	rows = append(rows, []telegram.InlineKeyboardButton{telegram.Button("🔙 Done", "langs:done")})
	return telegram.Keyboard(rows...)
}

func languageMenuText(current search.Language) string {
	return fmt.Sprintf("🎛️ Current filter: <b>%s</b>\nPick one:", current.Title())
}

func localResults(hits []catalog.Hit) *telegram.InlineKeyboardMarkup {
	var rows [][]telegram.InlineKeyboardButton
	for _, h := range hits {
		var (
			b  telegram.InlineKeyboardButton
			ok bool
		)
		switch h.Kind {
		case catalog.HitProject:
			b, ok = button("📁 "+h.Title, projectData(h.Category, h.Key))
		case catalog.HitLibrary:
			b, ok = button("🐍 "+h.Title, "lib:"+h.Key)
		}
		if ok {
			rows = append(rows, []telegram.InlineKeyboardButton{b})
		}
	}
	rows = append(rows, []telegram.InlineKeyboardButton{backHome})
	return telegram.Keyboard(rows...)
}

func resultIcon(f search.Facet) string {
	switch f {
	case search.FacetSchematic:
		return "🧩"
	case search.FacetParts:
		return "🛒"
	case search.FacetGuide:
		return "📘"
	}
	return "📄"
}

func externalResults(f search.Facet, gen uint64, results []search.Result) *telegram.InlineKeyboardMarkup {
	var rows [][]telegram.InlineKeyboardButton
	for i, r := range results {
		data := fmt.Sprintf("res:%d:%d", gen, i)
		rows = append(rows, []telegram.InlineKeyboardButton{telegram.Button(resultIcon(f)+" "+trim(r.Title(), buttonTitleMax), data)})
	}
	rows = append(rows, []telegram.InlineKeyboardButton{
		telegram.Button("🔎 New search", "search"),
		backHome,
	})
	return telegram.Keyboard(rows...)
}

func newsMenu() *telegram.InlineKeyboardMarkup {
	var buttons []telegram.InlineKeyboardButton
	for _, c := range news.Categories {
		buttons = append(buttons, telegram.Button(newsTitle(c), "news:"+string(c)))
	}
	return telegram.Keyboard(buttons, []telegram.InlineKeyboardButton{backHome})
}

func newsTitle(c news.Category) string {
	switch c {
	case news.AI:
		return "AI"
	case news.IoT:
		return "IoT & Robotics"
	}
	return "Tech"
}

// trim shortens s to n runes, marking the cut with an ellipsis.
func trim(s string, n int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-1]) + "…"
}

// promptMenu is shown under the prompt of facet f.
func promptMenu(f search.Facet, lang search.Language) *telegram.InlineKeyboardMarkup {
	var rows [][]telegram.InlineKeyboardButton
	if f == search.FacetCode || f == search.FacetFree {
		rows = append(rows, []telegram.InlineKeyboardButton{telegram.Button("🎛️ Language filter: "+lang.Title(), "langs")})
	}
	rows = append(rows, []telegram.InlineKeyboardButton{telegram.Button("🔙 Back", "search")})
	return telegram.Keyboard(rows...)
}
