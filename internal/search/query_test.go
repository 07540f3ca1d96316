// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package search

import (
	"strings"
	"testing"

	"go.astrophena.name/tinkerbot/internal/testutil"
)

func TestSanitizeTerm(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		in, want string
	}{
		"plain":           {in: "line follower", want: "line follower"},
		"outer spaces":    {in: "  servo  ", want: "servo"},
		"newlines":        {in: "esp32\r\nmqtt\nclient", want: "esp32 mqtt client"},
		"inner spaces":    {in: "hc-sr04   \t sensor", want: "hc-sr04 sensor"},
		"empty":           {in: "", want: "arduino"},
		"whitespace only": {in: " \n\t ", want: "arduino"},
		"one letter":      {in: "x", want: "x arduino"},
		"one rune":        {in: "ж", want: "ж arduino"},
		"two runes":       {in: "жж", want: "жж"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			testutil.AssertEqual(t, SanitizeTerm(tc.in), tc.want)
		})
	}
}

func TestBuildQueries(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		facet Facet
		lang  Language
		term  string
		want  []string
	}{
		"code, any": {
			facet: FacetCode,
			term:  "servo",
			want: []string{
				"servo language:Arduino in:file",
				"servo language:C++ in:file",
				"servo language:C in:file",
				"servo language:Python in:file",
				"servo extension:ino in:file",
			},
		},
		"code, arduino": {
			facet: FacetCode,
			lang:  LangArduino,
			term:  "servo",
			want:  []string{"servo language:Arduino in:file", "servo extension:ino in:file"},
		},
		"code, cpp": {
			facet: FacetCode,
			lang:  LangCPP,
			term:  "pid",
			want:  []string{"pid language:C++ in:file", "pid extension:cpp in:file", "pid extension:h in:file"},
		},
		"code, micropython": {
			facet: FacetCode,
			lang:  LangMicroPython,
			term:  "neopixel",
			want:  []string{"neopixel language:Python in:file", "neopixel micropython in:file"},
		},
		"schematic": {
			facet: FacetSchematic,
			term:  "line follower",
			want: []string{
				"line follower extension:kicad_sch in:path",
				"line follower extension:kicad_pcb in:path",
				"line follower extension:sch in:path",
				"line follower extension:brd in:path",
				"line follower extension:fzz in:path",
				"line follower kicad in:path",
				"line follower eagle in:path",
				"line follower fritzing in:path",
				"line follower schematic in:path",
			},
		},
		"parts": {
			facet: FacetParts,
			term:  "l298n",
			want: []string{
				`l298n "bill of materials"`,
				"l298n bom",
				`l298n "parts list"`,
				"l298n filename:bom",
				"l298n filename:BOM.csv",
				"l298n filename:parts",
				"l298n filename:components",
			},
		},
		"guide": {
			facet: FacetGuide,
			term:  "servo sweep",
			want: []string{
				"servo sweep filename:README extension:md",
				"servo sweep filename:README.md in:path",
				"servo sweep path:docs extension:md",
				"servo sweep filename:GUIDE",
				"servo sweep design extension:md",
				"servo sweep setup extension:md",
				"servo sweep wiring extension:md",
			},
		},
		"free": {
			facet: FacetFree,
			term:  "rover",
			want:  []string{"rover in:file", "rover arduino", "rover esp32", "rover robotics", "rover iot"},
		},
		"none behaves like free": {
			facet: FacetNone,
			term:  "rover",
			want:  []string{"rover in:file", "rover arduino", "rover esp32", "rover robotics", "rover iot"},
		},
		"empty term gets bias": {
			facet: FacetFree,
			term:  "",
			want:  []string{"arduino in:file", "arduino arduino", "arduino esp32", "arduino robotics", "arduino iot"},
		},
		"language ignored outside code": {
			facet: FacetParts,
			lang:  LangCPP,
			term:  "motor",
			want: []string{
				`motor "bill of materials"`,
				"motor bom",
				`motor "parts list"`,
				"motor filename:bom",
				"motor filename:BOM.csv",
				"motor filename:parts",
				"motor filename:components",
			},
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			testutil.AssertEqual(t, BuildQueries(tc.facet, tc.term, tc.lang), tc.want)
		})
	}
}

func TestBuildQueriesProperties(t *testing.T) {
	t.Parallel()

	terms := []string{
		"", " ", "a", "\n\r", "line follower", "esp32\nmqtt",
		strings.Repeat("robot ", 100), "(OR", `"`, "язык", "extension:ino",
	}
	facets := append([]Facet{FacetNone}, Facets...)
	for _, f := range facets {
		for _, l := range Languages {
			for _, term := range terms {
				qs := BuildQueries(f, term, l)
				if len(qs) == 0 || len(qs) > MaxQueries {
					t.Fatalf("BuildQueries(%v, %q, %v) returned %d queries", f, term, l, len(qs))
				}
				seen := make(map[string]bool)
				for _, q := range qs {
					if seen[q] {
						t.Fatalf("BuildQueries(%v, %q, %v) returned %q twice", f, term, l, q)
					}
					seen[q] = true
					if strings.ContainsAny(q, "\r\n") || strings.TrimSpace(q) != q || len(strings.Fields(q)) < 2 {
						t.Fatalf("BuildQueries(%v, %q, %v) returned unusable query %q", f, term, l, q)
					}
				}
			}
		}
	}
}

func TestSimplifyQuery(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		in, want string
	}{
		"qualifiers":      {in: "servo language:C++ in:file", want: "servo in:file"},
		"parens and ops":  {in: "(arduino OR esp32) AND robot NOT -path:test", want: "arduino esp32 robot in:file"},
		"quoted phrase":   {in: `l298n "bill of materials"`, want: `l298n "bill of materials" in:file`},
		"only qualifiers": {in: "filename:bom extension:csv", want: "arduino in:file"},
		"path directive":  {in: "ws2812 x in:path", want: "ws2812 x in:file"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			testutil.AssertEqual(t, SimplifyQuery(tc.in), tc.want)
		})
	}
}

func TestParseFacet(t *testing.T) {
	t.Parallel()
	for _, f := range Facets {
		got, ok := ParseFacet(f.String())
		if !ok || got != f {
			t.Errorf("ParseFacet(%q) = %v, %v", f.String(), got, ok)
		}
	}
	if got, ok := ParseFacet("howto"); !ok || got != FacetGuide {
		t.Errorf("ParseFacet(howto) = %v, %v", got, ok)
	}
	if _, ok := ParseFacet("none"); ok {
		t.Error("none must not be selectable")
	}
}

func TestParseLanguage(t *testing.T) {
	t.Parallel()
	for _, l := range Languages {
		got, ok := ParseLanguage(l.String())
		if !ok || got != l {
			t.Errorf("ParseLanguage(%q) = %v, %v", l.String(), got, ok)
		}
	}
	if _, ok := ParseLanguage("rust"); ok {
		t.Error("unknown language parsed")
	}
}
