// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package catalog

import "strings"

// MaxHits caps the number of results of a local search.
const MaxHits = 50

// HitKind tells what a [Hit] points to.
type HitKind int

// Hit kinds.
const (
	HitProject HitKind = iota
	HitLibrary
)

// Hit is a single local search result.
type Hit struct {
	Kind     HitKind
	Category Category // for projects
	Key      string   // project ID or library name
	Title    string
}

func projectHit(cat Category, p *Project) Hit {
	return Hit{Kind: HitProject, Category: cat, Key: string(p.ID), Title: p.DisplayTitle()}
}

func normalize(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// SearchAny finds projects whose title, description, boards or parts contain
// q, followed by libraries whose name, category or description does.
// Matching is case-insensitive.
func (c *Catalog) SearchAny(q string) []Hit {
	q = normalize(q)
	if q == "" {
		return nil
	}
	var hits []Hit
	c.eachProject(func(cat Category, p *Project) bool {
		hay := strings.ToLower(strings.Join([]string{
			p.Title,
			p.Description,
			strings.Join(p.Boards, ","),
			strings.Join(p.Parts, ","),
		}, " "))
		if strings.Contains(hay, q) {
			hits = append(hits, projectHit(cat, p))
		}
		return len(hits) < MaxHits
	})
	for i := range c.PyLibs {
		if len(hits) >= MaxHits {
			break
		}
		lib := &c.PyLibs[i]
		hay := strings.ToLower(lib.Name + " " + lib.Category + " " + lib.Description)
		if strings.Contains(hay, q) {
			title := lib.Name
			if title == "" {
				title = "(lib)"
			}
			hits = append(hits, Hit{Kind: HitLibrary, Key: lib.Name, Title: title})
		}
	}
	return hits
}

// SearchParts finds projects with a part containing q.
func (c *Catalog) SearchParts(q string) []Hit {
	q = normalize(q)
	if q == "" {
		return nil
	}
	var hits []Hit
	c.eachProject(func(cat Category, p *Project) bool {
		for _, part := range p.Parts {
			if strings.Contains(strings.ToLower(part), q) {
				hits = append(hits, projectHit(cat, p))
				break
			}
		}
		return len(hits) < MaxHits
	})
	return hits
}

// SearchDescription finds projects whose description contains q.
func (c *Catalog) SearchDescription(q string) []Hit {
	q = normalize(q)
	if q == "" {
		return nil
	}
	var hits []Hit
	c.eachProject(func(cat Category, p *Project) bool {
		if strings.Contains(strings.ToLower(p.Description), q) {
			hits = append(hits, projectHit(cat, p))
		}
		return len(hits) < MaxHits
	})
	return hits
}

// eachProject calls f for every project in category order until f returns
// false.
func (c *Catalog) eachProject(f func(Category, *Project) bool) {
	for _, cat := range Categories {
		projects := c.Projects(cat)
		for i := range projects {
			if !f(cat, &projects[i]) {
				return
			}
		}
	}
}
