// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package search

import (
	"net/url"
	"path"
	"slices"
	"strings"

	"go.astrophena.name/tinkerbot/internal/github"
)

// Result is a file found by code search.
type Result struct {
	Name    string `json:"name"`
	Path    string `json:"path"`
	Repo    string `json:"repo"`     // owner/name
	HTMLURL string `json:"html_url"` // page on github.com
	RawURL  string `json:"raw_url"`  // file contents
}

// Key identifies the file across queries.
func (r Result) Key() string { return r.Repo + "/" + r.Path }

// Title is a short human-readable description of r.
func (r Result) Title() string { return r.Name + " · " + r.Key() }

// Content classifies how a file is best delivered to a chat.
type Content int

const (
	// ContentText files are fetched and shown inline or uploaded.
	ContentText Content = iota
	// ContentImage files are sent as photos by URL.
	ContentImage
	// ContentDocument files, EDA designs and other binaries, are sent as
	// documents by URL.
	ContentDocument
)

var documentExts = []string{
	".svg", ".fzz", ".fzpz", ".sch", ".kicad_sch", ".kicad_pcb", ".kicad_pro",
	".brd", ".pcb", ".fcstd", ".dxf", ".pdf", ".zip", ".stl", ".step", ".stp",
	".gbr", ".xlsx", ".xls", ".ods",
}

// ContentOf classifies r by its file extension.
func (r Result) ContentOf() Content {
	ext := strings.ToLower(path.Ext(r.Name))
	switch {
	case slices.Contains(imageExts, ext) && ext != ".svg":
		return ContentImage
	case slices.Contains(documentExts, ext):
		return ContentDocument
	}
	return ContentText
}

// RawURL derives the raw contents URL of a file.
//
// With a known branch, webURL is the repository page
// (https://github.com/OWNER/REPO) and the result is
// https://raw.githubusercontent.com/OWNER/REPO/BRANCH/PATH. Without a branch, a
// blob page URL (…/blob/REF/PATH) is rewritten to the raw host with the blob
// segment removed and p is ignored. Otherwise HEAD is used as the branch.
func RawURL(webURL, p, branch string) string {
	u, err := url.Parse(strings.TrimSpace(webURL))
	if err != nil || u.Host == "" {
		return webURL
	}
	u.Scheme = "https"
	u.Host = "raw.githubusercontent.com"
	u.RawQuery = ""
	u.Fragment = ""
	u.RawPath = ""

	repoPath := strings.TrimSuffix(u.Path, "/")
	p = strings.TrimPrefix(p, "/")

	switch {
	case branch != "":
		u.Path = repoPath + "/" + branch + "/" + p
	case strings.Contains(repoPath, "/blob/"):
		u.Path = strings.Replace(repoPath, "/blob/", "/", 1)
	default:
		u.Path = repoPath + "/HEAD/" + p
	}
	return u.String()
}

// resultFromItem converts a code search hit, choosing the best available input
// for [RawURL].
func resultFromItem(it github.CodeItem) Result {
	r := Result{
		Name:    it.Name,
		Path:    it.Path,
		Repo:    it.Repository.FullName,
		HTMLURL: it.HTMLURL,
	}
	repoURL := it.Repository.HTMLURL
	if r.Repo == "" && repoURL != "" {
		if u, err := url.Parse(repoURL); err == nil {
			r.Repo = strings.Trim(u.Path, "/")
		}
	}
	if r.Name == "" {
		r.Name = path.Base(it.Path)
	}

	switch {
	case repoURL != "" && it.Repository.DefaultBranch != "":
		r.RawURL = RawURL(repoURL, it.Path, it.Repository.DefaultBranch)
	case strings.Contains(it.HTMLURL, "/blob/"):
		r.RawURL = RawURL(it.HTMLURL, it.Path, "")
	case repoURL != "":
		r.RawURL = RawURL(repoURL, it.Path, "")
	default:
		r.RawURL = it.HTMLURL
	}
	if r.HTMLURL == "" {
		r.HTMLURL = repoURL
	}
	return r
}
