// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package search bridges the bot to GitHub code search.
//
// It turns a user's search term into an ordered list of query variants for a
// facet, runs them one by one against the code search API, deduplicates and
// ranks what comes back and derives URLs of the raw file contents.
package search

import "strings"

// Facet is the kind of artifact being searched for.
type Facet int

const (
	// FacetNone means that no facet is selected.
	FacetNone Facet = iota
	// FacetFree is an unfaceted search.
	FacetFree
	// FacetCode looks for source files.
	FacetCode
	// FacetSchematic looks for schematics, PCB layouts and wiring diagrams.
	FacetSchematic
	// FacetParts looks for bills of materials and parts lists.
	FacetParts
	// FacetGuide looks for READMEs and other guides.
	FacetGuide
)

// Facets lists the facets a user can select, in menu order.
var Facets = []Facet{FacetCode, FacetSchematic, FacetParts, FacetGuide, FacetFree}

// String implements the [fmt.Stringer] interface.
func (f Facet) String() string {
	switch f {
	case FacetFree:
		return "free"
	case FacetCode:
		return "code"
	case FacetSchematic:
		return "schematic"
	case FacetParts:
		return "parts"
	case FacetGuide:
		return "guide"
	}
	return "none"
}

// ParseFacet parses the text form of a facet. "howto" is accepted as an alias
// of "guide".
func ParseFacet(s string) (Facet, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "free":
		return FacetFree, true
	case "code":
		return FacetCode, true
	case "schematic":
		return FacetSchematic, true
	case "parts":
		return FacetParts, true
	case "guide", "howto":
		return FacetGuide, true
	}
	return FacetNone, false
}

// Language restricts code searches to a family of sources.
type Language int

const (
	// LangAny does not restrict code searches.
	LangAny Language = iota
	// LangArduino prefers Arduino sketches.
	LangArduino
	// LangCPP prefers C++ sources and headers.
	LangCPP
	// LangMicroPython prefers MicroPython scripts.
	LangMicroPython
)

// Languages lists all languages, in menu order.
var Languages = []Language{LangAny, LangArduino, LangCPP, LangMicroPython}

// String implements the [fmt.Stringer] interface.
func (l Language) String() string {
	switch l {
	case LangArduino:
		return "arduino"
	case LangCPP:
		return "cpp"
	case LangMicroPython:
		return "micropython"
	}
	return "any"
}

// Title returns a human-readable name of l.
func (l Language) Title() string {
	switch l {
	case LangArduino:
		return "Arduino"
	case LangCPP:
		return "C++"
	case LangMicroPython:
		return "MicroPython"
	}
	return "Any"
}

// ParseLanguage parses the text form of a language.
func ParseLanguage(s string) (Language, bool) {
	for _, l := range Languages {
		if strings.EqualFold(strings.TrimSpace(s), l.String()) {
			return l, true
		}
	}
	return LangAny, false
}
