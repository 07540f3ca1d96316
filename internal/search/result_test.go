// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package search

import (
	"testing"

	"go.astrophena.name/tinkerbot/internal/github"
	"go.astrophena.name/tinkerbot/internal/testutil"
)

func TestRawURL(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		webURL, path, branch string
		want                 string
	}{
		"branch": {
			webURL: "https://github.com/OWNER/REPO",
			path:   "a/b.txt",
			branch: "main",
			want:   "https://raw.githubusercontent.com/OWNER/REPO/main/a/b.txt",
		},
		"branch, trailing slash and leading slash": {
			webURL: "https://github.com/OWNER/REPO/",
			path:   "/a/b.txt",
			branch: "dev",
			want:   "https://raw.githubusercontent.com/OWNER/REPO/dev/a/b.txt",
		},
		"blob": {
			webURL: "https://github.com/OWNER/REPO/blob/REF/a/b.txt",
			path:   "ignored.txt",
			want:   "https://raw.githubusercontent.com/OWNER/REPO/REF/a/b.txt",
		},
		"blob with sha": {
			webURL: "https://github.com/alice/bot/blob/0123abcd/hw/robot.kicad_sch",
			want:   "https://raw.githubusercontent.com/alice/bot/0123abcd/hw/robot.kicad_sch",
		},
		"head": {
			webURL: "https://github.com/OWNER/REPO",
			path:   "a/b.txt",
			want:   "https://raw.githubusercontent.com/OWNER/REPO/HEAD/a/b.txt",
		},
		"not a URL": {
			webURL: "nope",
			path:   "a.txt",
			want:   "nope",
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			testutil.AssertEqual(t, RawURL(tc.webURL, tc.path, tc.branch), tc.want)
		})
	}
}

func TestResultFromItem(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		item github.CodeItem
		want Result
	}{
		"default branch": {
			item: github.CodeItem{
				Name:    "robot.kicad_sch",
				Path:    "hardware/robot.kicad_sch",
				HTMLURL: "https://github.com/alice/bot/blob/abc/hardware/robot.kicad_sch",
				Repository: github.Repository{
					FullName:      "alice/bot",
					HTMLURL:       "https://github.com/alice/bot",
					DefaultBranch: "main",
				},
			},
			want: Result{
				Name:    "robot.kicad_sch",
				Path:    "hardware/robot.kicad_sch",
				Repo:    "alice/bot",
				HTMLURL: "https://github.com/alice/bot/blob/abc/hardware/robot.kicad_sch",
				RawURL:  "https://raw.githubusercontent.com/alice/bot/main/hardware/robot.kicad_sch",
			},
		},
		"blob url": {
			item: github.CodeItem{
				Name:       "x.py",
				Path:       "x.py",
				HTMLURL:    "https://github.com/foo/bar/blob/abc/x.py",
				Repository: github.Repository{FullName: "foo/bar", HTMLURL: "https://github.com/foo/bar"},
			},
			want: Result{
				Name:    "x.py",
				Path:    "x.py",
				Repo:    "foo/bar",
				HTMLURL: "https://github.com/foo/bar/blob/abc/x.py",
				RawURL:  "https://raw.githubusercontent.com/foo/bar/abc/x.py",
			},
		},
		"repository only": {
			item: github.CodeItem{
				Path:       "lib/y.h",
				Repository: github.Repository{HTMLURL: "https://github.com/foo/bar"},
			},
			want: Result{
				Name:    "y.h",
				Path:    "lib/y.h",
				Repo:    "foo/bar",
				HTMLURL: "https://github.com/foo/bar",
				RawURL:  "https://raw.githubusercontent.com/foo/bar/HEAD/lib/y.h",
			},
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			testutil.AssertEqual(t, resultFromItem(tc.item), tc.want)
		})
	}
}

func TestResultContent(t *testing.T) {
	t.Parallel()

	cases := map[string]Content{
		"robot.PNG":       ContentImage,
		"wiring.jpeg":     ContentImage,
		"diagram.svg":     ContentDocument,
		"board.kicad_pcb": ContentDocument,
		"layout.brd":      ContentDocument,
		"datasheet.pdf":   ContentDocument,
		"robot.kicad_sch": ContentDocument,
		"main.ino":        ContentText,
		"README":          ContentText,
	}
	for name, want := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			testutil.AssertEqual(t, Result{Name: name}.ContentOf(), want)
		})
	}
}

func TestResultKey(t *testing.T) {
	t.Parallel()
	r := Result{Name: "y.py", Path: "x/y.py", Repo: "foo/bar"}
	testutil.AssertEqual(t, r.Key(), "foo/bar/x/y.py")
	testutil.AssertEqual(t, r.Title(), "y.py · foo/bar/x/y.py")
}
