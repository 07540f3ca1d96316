// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package search

import (
	"regexp"
	"strings"
)

// MaxQueries is the maximum number of query variants built for one search.
const MaxQueries = 10

// defaultBias is appended to terms too short to search for.
const defaultBias = "arduino"

var (
	codeHints = map[Language][]string{
		LangAny:         {"language:Arduino", "language:C++", "language:C", "language:Python", "extension:ino"},
		LangArduino:     {"language:Arduino", "extension:ino"},
		LangCPP:         {"language:C++", "extension:cpp", "extension:h"},
		LangMicroPython: {"language:Python", "micropython"},
	}
	edaExtensions = []string{"kicad_sch", "kicad_pcb", "sch", "brd", "fzz"}
	edaKeywords   = []string{"kicad", "eagle", "fritzing", "schematic"}
	partsHints    = []string{
		`"bill of materials"`,
		"bom",
		`"parts list"`,
		"filename:bom",
		"filename:BOM.csv",
		"filename:parts",
		"filename:components",
	}
	guideHints = []string{
		"filename:README extension:md",
		"filename:README.md in:path",
		"path:docs extension:md",
		"filename:GUIDE",
		"design extension:md",
		"setup extension:md",
		"wiring extension:md",
	}
	freeHints = []string{"in:file", "arduino", "esp32", "robotics", "iot"}
)

// SanitizeTerm normalizes whitespace in a user-provided search term. Terms
// shorter than two characters get a default bias term appended, so the result
// is never empty.
func SanitizeTerm(term string) string {
	term = strings.Join(strings.Fields(term), " ")
	if len([]rune(term)) < 2 {
		term = strings.TrimSpace(term + " " + defaultBias)
	}
	return term
}

// BuildQueries returns the ordered, deduplicated list of query variants for
// searching term within facet. lang only affects [FacetCode]. The list is
// never empty and has at most [MaxQueries] entries.
func BuildQueries(facet Facet, term string, lang Language) []string {
	term = SanitizeTerm(term)

	var hints []string
	switch facet {
	case FacetCode:
		for _, h := range codeHints[lang] {
			hints = append(hints, h+" in:file")
		}
	case FacetSchematic:
		for _, ext := range edaExtensions {
			hints = append(hints, "extension:"+ext+" in:path")
		}
		for _, kw := range edaKeywords {
			hints = append(hints, kw+" in:path")
		}
	case FacetParts:
		hints = partsHints
	case FacetGuide:
		hints = guideHints
	case FacetFree, FacetNone:
		hints = freeHints
	}
	if len(hints) == 0 {
		hints = freeHints
	}

	queries := make([]string, 0, len(hints))
	seen := make(map[string]bool)
	for _, h := range hints {
		q := term + " " + h
		if seen[q] {
			continue
		}
		seen[q] = true
		queries = append(queries, q)
		if len(queries) == MaxQueries {
			break
		}
	}
	return queries
}

var qualifierRx = regexp.MustCompile(`^-?[A-Za-z_]+:\S*$`)

// SimplifyQuery strips everything from q that the code search parser may
// reject: qualifiers like extension:ino, parentheses and boolean operators. The
// result ends in a single in:file directive.
func SimplifyQuery(q string) string {
	q = strings.NewReplacer("(", " ", ")", " ").Replace(q)
	var kept []string
	for _, tok := range strings.Fields(q) {
		switch tok {
		case "OR", "AND", "NOT":
			continue
		}
		if qualifierRx.MatchString(tok) {
			continue
		}
		kept = append(kept, tok)
	}
	if len(kept) == 0 {
		kept = append(kept, defaultBias)
	}
	return strings.Join(kept, " ") + " in:file"
}
