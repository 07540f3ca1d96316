// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package search

import (
	"cmp"
	"path"
	"slices"
	"strings"
)

// noiseDirs are path fragments of vendored code, tests, build output and CI
// configuration.
var noiseDirs = []string{
	"/node_modules/",
	"/vendor/",
	"/third_party/",
	"/test/",
	"/tests/",
	"/__tests__/",
	"/testdata/",
	"/fixtures/",
	"/build/",
	"/dist/",
	"/out/",
	"/.pio/",
	"/.github/",
	"/.circleci/",
	"/.gitlab/",
}

// IsNoise reports whether a file at p is unlikely to be useful: tests, vendored
// dependencies, build artifacts and the like.
func IsNoise(p string) bool {
	p = "/" + strings.ToLower(strings.TrimPrefix(p, "/"))
	for _, d := range noiseDirs {
		if strings.Contains(p, d) {
			return true
		}
	}
	return false
}

var (
	edaExts   = []string{".kicad_sch", ".kicad_pcb", ".sch", ".brd", ".fzz", ".pcb", ".kicad_pro"}
	imageExts = []string{".png", ".jpg", ".jpeg", ".gif", ".webp", ".svg", ".bmp"}
	sheetExts = []string{".csv", ".tsv", ".xlsx", ".xls", ".ods", ".md"}
	codeExts  = []string{".ino", ".c", ".cc", ".cpp", ".h", ".hpp", ".py"}

	diagramWords = []string{"schem", "circuit", "wiring", "diagram", "pcb"}
	partsDirs    = []string{"bom", "boms", "parts", "bill_of_materials"}
	docsDirs     = []string{"docs", "doc", "documentation"}
	guidePrefix  = []string{"readme", "guide", "design"}
)

// Score rates how well a file called name at path p matches facet. Higher is
// better; unfaceted searches always score zero.
func Score(facet Facet, name, p string) int {
	lname := strings.ToLower(name)
	lpath := strings.ToLower(p)
	ext := path.Ext(lname)
	dirs := dirSegments(lpath)

	score := 0
	switch facet {
	case FacetSchematic:
		if slices.Contains(edaExts, ext) {
			score += 5
		}
		if strings.Contains(lpath, "schematic") {
			score += 3
		}
		if (slices.Contains(imageExts, ext) || ext == ".pdf") && containsAny(lname, diagramWords) {
			score += 2
		}
	case FacetParts:
		if strings.Contains(lname, "bom") || strings.Contains(lname, "parts") {
			score += 5
		}
		if slices.Contains(sheetExts, ext) {
			score += 2
		}
		if containsAnySegment(dirs, partsDirs) {
			score += 3
		}
	case FacetGuide:
		for _, pfx := range guidePrefix {
			if strings.HasPrefix(lname, pfx) {
				score += 5
				break
			}
		}
		if containsAnySegment(dirs, docsDirs) {
			score += 3
		}
	case FacetCode:
		if slices.Contains(codeExts, ext) {
			score += 3
		}
		if slices.Contains(dirs, "src") {
			score += 2
		}
		if slices.Contains(dirs, "examples") {
			score += 1
		}
	case FacetFree, FacetNone:
	}
	return score
}

// Rank drops noise from results and, for faceted searches, orders the rest by
// descending score and then by name. Unfaceted searches keep the order of the
// search API. results is not modified.
func Rank(facet Facet, results []Result) []Result {
	ranked := make([]Result, 0, len(results))
	for _, r := range results {
		if !IsNoise(r.Path) {
			ranked = append(ranked, r)
		}
	}
	if facet == FacetFree || facet == FacetNone {
		return ranked
	}
	slices.SortStableFunc(ranked, func(a, b Result) int {
		return cmp.Or(
			cmp.Compare(Score(facet, b.Name, b.Path), Score(facet, a.Name, a.Path)),
			strings.Compare(a.Name, b.Name),
		)
	})
	return ranked
}

// dirSegments returns the directory components of p.
func dirSegments(p string) []string {
	dir := path.Dir(strings.Trim(p, "/"))
	if dir == "." || dir == "" {
		return nil
	}
	return strings.Split(dir, "/")
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func containsAnySegment(segs, want []string) bool {
	for _, s := range segs {
		if slices.Contains(want, s) {
			return true
		}
	}
	return false
}
