// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package catalog holds the local collection of robotics and IoT projects and
// Python libraries the bot can show without asking GitHub.
package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Category is a project category.
type Category string

// Project categories.
const (
	Robotics Category = "robotics"
	IoT      Category = "iot"
)

// Categories lists project categories in menu order.
var Categories = []Category{Robotics, IoT}

// ParseCategory returns the category named s.
func ParseCategory(s string) (Category, bool) {
	switch c := Category(s); c {
	case Robotics, IoT:
		return c, true
	}
	return "", false
}

// CodeLanguages lists the languages a project may carry code for, in menu
// order.
var CodeLanguages = []string{"c", "cpp", "micropython"}

var langExt = map[string]string{
	"c":           ".c",
	"cpp":         ".cpp",
	"micropython": ".py",
}

// ID identifies a project. Catalog files use both numbers and strings for
// IDs, so both decode into their textual form.
type ID string

// UnmarshalJSON implements the [json.Unmarshaler] interface.
func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("catalog: project id must be a string or a number, got %s", b)
	}
	*id = ID(n.String())
	return nil
}

// UnmarshalYAML implements the [yaml.Unmarshaler] interface.
func (id *ID) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("catalog: line %d: project id must be a scalar", value.Line)
	}
	*id = ID(value.Value)
	return nil
}

// Project is a catalog project.
type Project struct {
	ID          ID                `json:"id" yaml:"id"`
	Title       string            `json:"title" yaml:"title"`
	Description string            `json:"description" yaml:"description"`
	Boards      []string          `json:"boards" yaml:"boards"`
	Parts       []string          `json:"parts" yaml:"parts"`
	Code        map[string]string `json:"code" yaml:"code"`
}

// DisplayTitle returns the title of the project or a placeholder.
func (p *Project) DisplayTitle() string {
	if t := strings.TrimSpace(p.Title); t != "" {
		return t
	}
	return "(untitled)"
}

// HasCode reports whether the project has code in any language.
func (p *Project) HasCode() bool {
	for _, code := range p.Code {
		if code != "" {
			return true
		}
	}
	return false
}

// FileName returns the name of the file holding the project's code in lang.
func (p *Project) FileName(lang string) string {
	ext, ok := langExt[lang]
	if !ok {
		ext = ".txt"
	}
	return baseName(p.Title) + ext
}

func baseName(title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		title = "project"
	}
	return strings.ReplaceAll(title, " ", "_")
}

// Library is a Python library entry.
type Library struct {
	Name        string `json:"name" yaml:"name"`
	Category    string `json:"category" yaml:"category"`
	Description string `json:"description" yaml:"description"`
	Install     string `json:"install" yaml:"install"`
	Example     string `json:"example" yaml:"example"`
}

// Catalog is the whole local collection. Entries are not required to be
// unique; lookups return the first match.
type Catalog struct {
	Robotics []Project `json:"robotics" yaml:"robotics"`
	IoT      []Project `json:"iot" yaml:"iot"`
	PyLibs   []Library `json:"py_libs" yaml:"py_libs"`
}

// Load reads a catalog from the file at path. Files ending in .yaml or .yml
// are parsed as YAML, everything else as JSON.
func Load(path string) (*Catalog, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(b)
	}
	return ParseJSON(b)
}

// ParseJSON parses a JSON catalog.
func ParseJSON(b []byte) (*Catalog, error) {
	c := new(Catalog)
	if len(bytes.TrimSpace(b)) == 0 {
		return c, nil
	}
	if err := json.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("catalog: parsing JSON: %w", err)
	}
	return c, nil
}

// ParseYAML parses a YAML catalog.
func ParseYAML(b []byte) (*Catalog, error) {
	c := new(Catalog)
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("catalog: parsing YAML: %w", err)
	}
	return c, nil
}

// Projects returns projects of category c.
func (c *Catalog) Projects(cat Category) []Project {
	switch cat {
	case Robotics:
		return c.Robotics
	case IoT:
		return c.IoT
	}
	return nil
}

// Project returns the first project of category cat with the given id.
func (c *Catalog) Project(cat Category, id string) (*Project, bool) {
	projects := c.Projects(cat)
	for i := range projects {
		if string(projects[i].ID) == id {
			return &projects[i], true
		}
	}
	return nil, false
}

// Library returns the first library called name.
func (c *Catalog) Library(name string) (*Library, bool) {
	for i := range c.PyLibs {
		if c.PyLibs[i].Name == name {
			return &c.PyLibs[i], true
		}
	}
	return nil, false
}

// Stats returns a short summary of the catalog size, suitable for logging.
func (c *Catalog) Stats() string {
	return "robotics=" + strconv.Itoa(len(c.Robotics)) +
		" iot=" + strconv.Itoa(len(c.IoT)) +
		" py_libs=" + strconv.Itoa(len(c.PyLibs))
}
